// Package remote implements docstore.Store against a docstored server over Connect.
package remote

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"connectrpc.com/connect"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
	"github.com/mmynk/notekeeper/pkg/docapi"
)

var _ docstore.Store = (*Store)(nil)

// Store forwards every operation to the DocumentService at an endpoint.
type Store struct {
	client docapi.DocumentServiceClient
}

type options struct {
	httpClient  connect.HTTPClient
	timeout     time.Duration
	tokens      docapi.TokenSource
	interceptor []connect.Interceptor
}

// Option configures a remote Store.
type Option func(*options)

// WithHTTPClient replaces http.DefaultClient.
func WithHTTPClient(c connect.HTTPClient) Option {
	return func(o *options) { o.httpClient = c }
}

// WithTimeout bounds every call. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithTokenSource authenticates calls with the bearer token src returns.
func WithTokenSource(src docapi.TokenSource) Option {
	return func(o *options) { o.tokens = src }
}

// WithInterceptors adds client interceptors.
func WithInterceptors(interceptors ...connect.Interceptor) Option {
	return func(o *options) { o.interceptor = append(o.interceptor, interceptors...) }
}

// New creates a Store talking to the server at endpoint.
func New(endpoint string, opts ...Option) *Store {
	o := options{httpClient: http.DefaultClient}
	for _, opt := range opts {
		opt(&o)
	}
	if hc, ok := o.httpClient.(*http.Client); ok && o.timeout > 0 {
		withTimeout := *hc
		withTimeout.Timeout = o.timeout
		o.httpClient = &withTimeout
	}

	var clientOpts []connect.ClientOption
	if o.tokens != nil {
		clientOpts = append(clientOpts, docapi.WithBearerToken(o.tokens))
	}
	if len(o.interceptor) > 0 {
		clientOpts = append(clientOpts, connect.WithInterceptors(o.interceptor...))
	}

	return &Store{client: docapi.NewDocumentServiceClient(o.httpClient, endpoint, clientOpts...)}
}

// NewWithClient wraps an existing DocumentService client.
func NewWithClient(client docapi.DocumentServiceClient) *Store {
	return &Store{client: client}
}

// ListDocuments returns the matching documents, newest first.
func (s *Store) ListDocuments(ctx context.Context, databaseID, collectionID string, filters ...docstore.Filter) ([]*models.Document, error) {
	resp, err := s.client.ListDocuments(ctx, connect.NewRequest(&docapi.ListDocumentsRequest{
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		Queries:      docapi.QueriesFromFilters(filters),
	}))
	if err != nil {
		return nil, fromConnectError(err)
	}

	docs := make([]*models.Document, 0, len(resp.Msg.Documents))
	for _, d := range resp.Msg.Documents {
		if d == nil {
			continue
		}
		docs = append(docs, d.Model())
	}
	return docs, nil
}

// CreateDocument creates a document owned by the authenticated user.
func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	resp, err := s.client.CreateDocument(ctx, connect.NewRequest(&docapi.CreateDocumentRequest{
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		DocumentID:   documentID,
		Data:         fields,
	}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return documentOf(resp.Msg.Document)
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*models.Document, error) {
	resp, err := s.client.GetDocument(ctx, connect.NewRequest(&docapi.GetDocumentRequest{
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		DocumentID:   documentID,
	}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return documentOf(resp.Msg.Document)
}

// UpdateDocument merges fields into a document.
func (s *Store) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	resp, err := s.client.UpdateDocument(ctx, connect.NewRequest(&docapi.UpdateDocumentRequest{
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		DocumentID:   documentID,
		Data:         fields,
	}))
	if err != nil {
		return nil, fromConnectError(err)
	}
	return documentOf(resp.Msg.Document)
}

// DeleteDocument removes a document.
func (s *Store) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	_, err := s.client.DeleteDocument(ctx, connect.NewRequest(&docapi.DeleteDocumentRequest{
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		DocumentID:   documentID,
	}))
	if err != nil {
		return fromConnectError(err)
	}
	return nil
}

func documentOf(d *docapi.Document) (*models.Document, error) {
	if d == nil {
		return nil, errors.New("server returned no document")
	}
	return d.Model(), nil
}

// fromConnectError maps RPC codes back onto docstore sentinels so callers
// can match them with errors.Is.
func fromConnectError(err error) error {
	var connectErr *connect.Error
	if !errors.As(err, &connectErr) {
		return err
	}

	msg := connectErr.Message()
	var sentinel error
	switch connectErr.Code() {
	case connect.CodeNotFound:
		sentinel = docstore.ErrNotFound
	case connect.CodeAlreadyExists:
		sentinel = docstore.ErrAlreadyExists
	case connect.CodeUnauthenticated, connect.CodePermissionDenied:
		sentinel = docstore.ErrUnauthenticated
	case connect.CodeInvalidArgument:
		sentinel = docstore.ErrInvalidFilter
		for _, candidate := range []error{docstore.ErrInvalidID, docstore.ErrInvalidField, docstore.ErrInvalidFilter} {
			if strings.HasPrefix(msg, candidate.Error()) {
				sentinel = candidate
				break
			}
		}
	case connect.CodeCanceled:
		sentinel = context.Canceled
	case connect.CodeDeadlineExceeded:
		sentinel = context.DeadlineExceeded
	default:
		return err
	}

	if msg == "" || msg == sentinel.Error() {
		return sentinel
	}
	return fmt.Errorf("%w: %s", sentinel, strings.TrimPrefix(msg, sentinel.Error()+": "))
}
