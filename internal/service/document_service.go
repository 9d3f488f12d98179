package service

import (
	"context"
	"errors"
	"log/slog"

	"connectrpc.com/connect"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/metrics"
	"github.com/mmynk/notekeeper/internal/middleware"
	"github.com/mmynk/notekeeper/internal/models"
	"github.com/mmynk/notekeeper/pkg/docapi"
)

var (
	errMissingDatabase   = errors.New("databaseId and collectionId are required")
	errMissingDocumentID = errors.New("documentId is required")
)

// DocumentStore is the storage a DocumentService serves from. Documents are
// created with the caller recorded as owner.
type DocumentStore interface {
	docstore.Store
	docstore.OwnedCreator
}

// DocumentService implements the Connect DocumentService.
// Every call runs as the authenticated user and only sees documents that user created.
type DocumentService struct {
	store   DocumentStore
	logger  *slog.Logger
	metrics *metrics.Metrics
}

// NewDocumentService creates a new DocumentService with the given storage backend.
// metrics may be nil.
func NewDocumentService(store DocumentStore, logger *slog.Logger, m *metrics.Metrics) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{store: store, logger: logger, metrics: m}
}

// ListDocuments returns the caller's documents matching every query, newest first.
func (s *DocumentService) ListDocuments(ctx context.Context, req *connect.Request[docapi.ListDocumentsRequest]) (*connect.Response[docapi.ListDocumentsResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.DatabaseID == "" || req.Msg.CollectionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingDatabase)
	}

	filters, err := docapi.FiltersFromQueries(req.Msg.Queries)
	if err != nil {
		return nil, connect.NewError(connect.CodeInvalidArgument, err)
	}
	filters = append(filters, docstore.Owner(userID))

	s.logger.Debug("ListDocuments request received",
		"collection_id", req.Msg.CollectionID,
		"queries", len(req.Msg.Queries),
		"user_id", userID,
	)

	docs, err := s.store.ListDocuments(ctx, req.Msg.DatabaseID, req.Msg.CollectionID, filters...)
	if err != nil {
		s.logger.Error("ListDocuments failed", "collection_id", req.Msg.CollectionID, "error", err)
		return nil, toConnectError(err)
	}
	s.metrics.ObserveDocumentOp("list", req.Msg.CollectionID)

	out := make([]*docapi.Document, len(docs))
	for i, doc := range docs {
		out[i] = docapi.FromModel(doc)
	}

	return connect.NewResponse(&docapi.ListDocumentsResponse{
		Total:     len(out),
		Documents: out,
	}), nil
}

// CreateDocument stores a new document owned by the caller.
func (s *DocumentService) CreateDocument(ctx context.Context, req *connect.Request[docapi.CreateDocumentRequest]) (*connect.Response[docapi.CreateDocumentResponse], error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if req.Msg.DatabaseID == "" || req.Msg.CollectionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingDatabase)
	}

	doc, err := s.store.CreateOwnedDocument(ctx, req.Msg.DatabaseID, req.Msg.CollectionID, req.Msg.DocumentID, userID, req.Msg.Data)
	if err != nil {
		s.logger.Error("CreateDocument failed", "collection_id", req.Msg.CollectionID, "error", err)
		return nil, toConnectError(err)
	}
	s.metrics.ObserveDocumentOp("create", req.Msg.CollectionID)

	s.logger.Info("Document created", "document_id", doc.ID, "collection_id", doc.CollectionID, "user_id", userID)

	return connect.NewResponse(&docapi.CreateDocumentResponse{Document: docapi.FromModel(doc)}), nil
}

// GetDocument retrieves one of the caller's documents by ID.
func (s *DocumentService) GetDocument(ctx context.Context, req *connect.Request[docapi.GetDocumentRequest]) (*connect.Response[docapi.GetDocumentResponse], error) {
	doc, err := s.ownedDocument(ctx, req.Msg.DatabaseID, req.Msg.CollectionID, req.Msg.DocumentID)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveDocumentOp("get", req.Msg.CollectionID)

	return connect.NewResponse(&docapi.GetDocumentResponse{Document: docapi.FromModel(doc)}), nil
}

// UpdateDocument merges the given attributes into one of the caller's documents.
func (s *DocumentService) UpdateDocument(ctx context.Context, req *connect.Request[docapi.UpdateDocumentRequest]) (*connect.Response[docapi.UpdateDocumentResponse], error) {
	if _, err := s.ownedDocument(ctx, req.Msg.DatabaseID, req.Msg.CollectionID, req.Msg.DocumentID); err != nil {
		return nil, err
	}

	doc, err := s.store.UpdateDocument(ctx, req.Msg.DatabaseID, req.Msg.CollectionID, req.Msg.DocumentID, req.Msg.Data)
	if err != nil {
		s.logger.Error("UpdateDocument failed", "document_id", req.Msg.DocumentID, "error", err)
		return nil, toConnectError(err)
	}
	s.metrics.ObserveDocumentOp("update", req.Msg.CollectionID)

	s.logger.Info("Document updated", "document_id", doc.ID, "fields", len(req.Msg.Data))

	return connect.NewResponse(&docapi.UpdateDocumentResponse{Document: docapi.FromModel(doc)}), nil
}

// DeleteDocument removes one of the caller's documents.
func (s *DocumentService) DeleteDocument(ctx context.Context, req *connect.Request[docapi.DeleteDocumentRequest]) (*connect.Response[docapi.DeleteDocumentResponse], error) {
	if _, err := s.ownedDocument(ctx, req.Msg.DatabaseID, req.Msg.CollectionID, req.Msg.DocumentID); err != nil {
		return nil, err
	}

	if err := s.store.DeleteDocument(ctx, req.Msg.DatabaseID, req.Msg.CollectionID, req.Msg.DocumentID); err != nil {
		s.logger.Error("DeleteDocument failed", "document_id", req.Msg.DocumentID, "error", err)
		return nil, toConnectError(err)
	}
	s.metrics.ObserveDocumentOp("delete", req.Msg.CollectionID)

	s.logger.Info("Document deleted", "document_id", req.Msg.DocumentID)

	return connect.NewResponse(&docapi.DeleteDocumentResponse{}), nil
}

// ownedDocument loads a document and checks the caller created it.
// Documents owned by someone else are reported as not found.
func (s *DocumentService) ownedDocument(ctx context.Context, databaseID, collectionID, documentID string) (*models.Document, error) {
	userID, err := requireUser(ctx)
	if err != nil {
		return nil, err
	}
	if databaseID == "" || collectionID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingDatabase)
	}
	if documentID == "" {
		return nil, connect.NewError(connect.CodeInvalidArgument, errMissingDocumentID)
	}

	doc, err := s.store.GetDocument(ctx, databaseID, collectionID, documentID)
	if err != nil {
		if !errors.Is(err, docstore.ErrNotFound) {
			s.logger.Error("GetDocument failed", "document_id", documentID, "error", err)
		}
		return nil, toConnectError(err)
	}
	if doc.OwnerID != userID {
		s.logger.Warn("Document access denied", "document_id", documentID, "user_id", userID)
		return nil, connect.NewError(connect.CodeNotFound, docstore.ErrNotFound)
	}
	return doc, nil
}

func requireUser(ctx context.Context) (string, error) {
	userID := middleware.GetUserID(ctx)
	if userID == "" {
		return "", connect.NewError(connect.CodeUnauthenticated, errors.New("authentication required"))
	}
	return userID, nil
}

// toConnectError maps store sentinels onto RPC codes.
func toConnectError(err error) error {
	switch {
	case errors.Is(err, docstore.ErrNotFound):
		return connect.NewError(connect.CodeNotFound, err)
	case errors.Is(err, docstore.ErrInvalidID),
		errors.Is(err, docstore.ErrInvalidFilter),
		errors.Is(err, docstore.ErrInvalidField):
		return connect.NewError(connect.CodeInvalidArgument, err)
	case errors.Is(err, docstore.ErrAlreadyExists):
		return connect.NewError(connect.CodeAlreadyExists, err)
	case errors.Is(err, context.Canceled):
		return connect.NewError(connect.CodeCanceled, err)
	case errors.Is(err, context.DeadlineExceeded):
		return connect.NewError(connect.CodeDeadlineExceeded, err)
	default:
		return connect.NewError(connect.CodeInternal, err)
	}
}
