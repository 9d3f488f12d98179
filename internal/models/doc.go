// Package models defines the core domain models for notekeeper.
//
// # Models
//
//   - Note: a user-owned text record, the unit the CLI and list controller work with
//   - Document: a schemaless record in the document store; notes are stored as documents
//   - User: a registered account on the document service
//
// # Design Principles
//
// 1. **Store owns metadata**: IDs and timestamps of notes and documents are assigned by the store
// 2. **Owner scoping by ID**: a note references its owner through a plain user ID string
// 3. **Avoid circular references**: use ID strings instead of pointers for relationships
package models
