package docapi

import (
	"context"
	"net/http"
	"strings"

	"connectrpc.com/connect"
)

// DocumentServiceName is the fully-qualified name of the DocumentService.
const DocumentServiceName = "notekeeper.docstore.v1.DocumentService"

// Procedure paths of DocumentService.
const (
	DocumentServiceListDocumentsProcedure  = "/" + DocumentServiceName + "/ListDocuments"
	DocumentServiceCreateDocumentProcedure = "/" + DocumentServiceName + "/CreateDocument"
	DocumentServiceGetDocumentProcedure    = "/" + DocumentServiceName + "/GetDocument"
	DocumentServiceUpdateDocumentProcedure = "/" + DocumentServiceName + "/UpdateDocument"
	DocumentServiceDeleteDocumentProcedure = "/" + DocumentServiceName + "/DeleteDocument"
)

// DocumentServiceHandler is implemented by the server side of DocumentService.
type DocumentServiceHandler interface {
	ListDocuments(context.Context, *connect.Request[ListDocumentsRequest]) (*connect.Response[ListDocumentsResponse], error)
	CreateDocument(context.Context, *connect.Request[CreateDocumentRequest]) (*connect.Response[CreateDocumentResponse], error)
	GetDocument(context.Context, *connect.Request[GetDocumentRequest]) (*connect.Response[GetDocumentResponse], error)
	UpdateDocument(context.Context, *connect.Request[UpdateDocumentRequest]) (*connect.Response[UpdateDocumentResponse], error)
	DeleteDocument(context.Context, *connect.Request[DeleteDocumentRequest]) (*connect.Response[DeleteDocumentResponse], error)
}

// DocumentServiceClient calls DocumentService over the network.
type DocumentServiceClient interface {
	ListDocuments(context.Context, *connect.Request[ListDocumentsRequest]) (*connect.Response[ListDocumentsResponse], error)
	CreateDocument(context.Context, *connect.Request[CreateDocumentRequest]) (*connect.Response[CreateDocumentResponse], error)
	GetDocument(context.Context, *connect.Request[GetDocumentRequest]) (*connect.Response[GetDocumentResponse], error)
	UpdateDocument(context.Context, *connect.Request[UpdateDocumentRequest]) (*connect.Response[UpdateDocumentResponse], error)
	DeleteDocument(context.Context, *connect.Request[DeleteDocumentRequest]) (*connect.Response[DeleteDocumentResponse], error)
}

// NewDocumentServiceHandler builds an HTTP handler serving every DocumentService procedure.
// It returns the path to mount the handler on.
func NewDocumentServiceHandler(svc DocumentServiceHandler, opts ...connect.HandlerOption) (string, http.Handler) {
	opts = append([]connect.HandlerOption{connect.WithCodec(Codec{})}, opts...)

	list := connect.NewUnaryHandler(DocumentServiceListDocumentsProcedure, svc.ListDocuments, opts...)
	create := connect.NewUnaryHandler(DocumentServiceCreateDocumentProcedure, svc.CreateDocument, opts...)
	get := connect.NewUnaryHandler(DocumentServiceGetDocumentProcedure, svc.GetDocument, opts...)
	update := connect.NewUnaryHandler(DocumentServiceUpdateDocumentProcedure, svc.UpdateDocument, opts...)
	del := connect.NewUnaryHandler(DocumentServiceDeleteDocumentProcedure, svc.DeleteDocument, opts...)

	return "/" + DocumentServiceName + "/", http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case DocumentServiceListDocumentsProcedure:
			list.ServeHTTP(w, r)
		case DocumentServiceCreateDocumentProcedure:
			create.ServeHTTP(w, r)
		case DocumentServiceGetDocumentProcedure:
			get.ServeHTTP(w, r)
		case DocumentServiceUpdateDocumentProcedure:
			update.ServeHTTP(w, r)
		case DocumentServiceDeleteDocumentProcedure:
			del.ServeHTTP(w, r)
		default:
			http.NotFound(w, r)
		}
	})
}

type documentServiceClient struct {
	list   *connect.Client[ListDocumentsRequest, ListDocumentsResponse]
	create *connect.Client[CreateDocumentRequest, CreateDocumentResponse]
	get    *connect.Client[GetDocumentRequest, GetDocumentResponse]
	update *connect.Client[UpdateDocumentRequest, UpdateDocumentResponse]
	del    *connect.Client[DeleteDocumentRequest, DeleteDocumentResponse]
}

// NewDocumentServiceClient constructs a client for the DocumentService at baseURL.
func NewDocumentServiceClient(httpClient connect.HTTPClient, baseURL string, opts ...connect.ClientOption) DocumentServiceClient {
	baseURL = strings.TrimRight(baseURL, "/")
	opts = append([]connect.ClientOption{connect.WithCodec(Codec{})}, opts...)
	return &documentServiceClient{
		list:   connect.NewClient[ListDocumentsRequest, ListDocumentsResponse](httpClient, baseURL+DocumentServiceListDocumentsProcedure, opts...),
		create: connect.NewClient[CreateDocumentRequest, CreateDocumentResponse](httpClient, baseURL+DocumentServiceCreateDocumentProcedure, opts...),
		get:    connect.NewClient[GetDocumentRequest, GetDocumentResponse](httpClient, baseURL+DocumentServiceGetDocumentProcedure, opts...),
		update: connect.NewClient[UpdateDocumentRequest, UpdateDocumentResponse](httpClient, baseURL+DocumentServiceUpdateDocumentProcedure, opts...),
		del:    connect.NewClient[DeleteDocumentRequest, DeleteDocumentResponse](httpClient, baseURL+DocumentServiceDeleteDocumentProcedure, opts...),
	}
}

func (c *documentServiceClient) ListDocuments(ctx context.Context, req *connect.Request[ListDocumentsRequest]) (*connect.Response[ListDocumentsResponse], error) {
	return c.list.CallUnary(ctx, req)
}

func (c *documentServiceClient) CreateDocument(ctx context.Context, req *connect.Request[CreateDocumentRequest]) (*connect.Response[CreateDocumentResponse], error) {
	return c.create.CallUnary(ctx, req)
}

func (c *documentServiceClient) GetDocument(ctx context.Context, req *connect.Request[GetDocumentRequest]) (*connect.Response[GetDocumentResponse], error) {
	return c.get.CallUnary(ctx, req)
}

func (c *documentServiceClient) UpdateDocument(ctx context.Context, req *connect.Request[UpdateDocumentRequest]) (*connect.Response[UpdateDocumentResponse], error) {
	return c.update.CallUnary(ctx, req)
}

func (c *documentServiceClient) DeleteDocument(ctx context.Context, req *connect.Request[DeleteDocumentRequest]) (*connect.Response[DeleteDocumentResponse], error) {
	return c.del.CallUnary(ctx, req)
}
