// Package docapi defines the wire contract of the document service: message types,
// procedure names, the JSON codec, and Connect client/handler constructors for
// DocumentService and AuthService.
//
// Messages are plain Go structs; every client and handler built here is configured
// with Codec so requests travel as application/json.
package docapi
