package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"connectrpc.com/connect"
	"golang.org/x/crypto/bcrypt"

	"github.com/mmynk/notekeeper/internal/auth"
	"github.com/mmynk/notekeeper/internal/docstore/sqlite"
	"github.com/mmynk/notekeeper/internal/metrics"
	"github.com/mmynk/notekeeper/internal/middleware"
	"github.com/mmynk/notekeeper/pkg/docapi"
)

const (
	testDatabase   = "main"
	testCollection = "notes"
)

type testServer struct {
	url     string
	auth    docapi.AuthServiceClient
	metrics *metrics.Metrics
}

// setupTestServer creates a test server with both DocumentService and AuthService
func setupTestServer(t *testing.T) *testServer {
	t.Helper()

	store, err := sqlite.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}

	m := metrics.New(false)
	jwtManager := auth.NewJWTManager("test-secret", time.Hour)
	revocations := auth.NewMemoryRevocationList()
	authenticator := auth.NewPasswordAuthenticator(store).WithCost(bcrypt.MinCost)

	docPath, docHandler := docapi.NewDocumentServiceHandler(
		NewDocumentService(store, nil, m),
		connect.WithInterceptors(middleware.RequireAuth(jwtManager, revocations)),
	)
	authPath, authHandler := docapi.NewAuthServiceHandler(
		NewAuthService(authenticator, jwtManager, revocations, nil, m),
		connect.WithInterceptors(middleware.OptionalAuth(jwtManager, revocations)),
	)

	mux := http.NewServeMux()
	mux.Handle(docPath, docHandler)
	mux.Handle(authPath, authHandler)

	server := httptest.NewServer(mux)
	t.Cleanup(func() {
		server.Close()
		store.Close()
	})

	return &testServer{
		url:     server.URL,
		auth:    docapi.NewAuthServiceClient(http.DefaultClient, server.URL),
		metrics: m,
	}
}

func (s *testServer) documents(token string) docapi.DocumentServiceClient {
	return docapi.NewDocumentServiceClient(http.DefaultClient, s.url,
		docapi.WithBearerToken(docapi.TokenFunc(func() string { return token })))
}

func (s *testServer) authAs(token string) docapi.AuthServiceClient {
	return docapi.NewAuthServiceClient(http.DefaultClient, s.url,
		docapi.WithBearerToken(docapi.TokenFunc(func() string { return token })))
}

func (s *testServer) register(t *testing.T, email string) (*docapi.User, string) {
	t.Helper()
	resp, err := s.auth.Register(context.Background(), connect.NewRequest(&docapi.RegisterRequest{
		Email:       email,
		DisplayName: email,
		Password:    "password123",
	}))
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return resp.Msg.User, resp.Msg.Token
}

func TestDocumentServiceOwnerScoping(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	alice, aliceToken := srv.register(t, "alice@example.com")
	_, bobToken := srv.register(t, "bob@example.com")
	aliceDocs := srv.documents(aliceToken)
	bobDocs := srv.documents(bobToken)

	created, err := aliceDocs.CreateDocument(ctx, connect.NewRequest(&docapi.CreateDocumentRequest{
		DatabaseID:   testDatabase,
		CollectionID: testCollection,
		DocumentID:   "unique()",
		Data:         map[string]any{"text": "buy milk", "user_id": alice.ID},
	}))
	if err != nil {
		t.Fatalf("CreateDocument failed: %v", err)
	}
	doc := created.Msg.Document
	if doc.ID == "" || doc.ID == "unique()" {
		t.Fatalf("expected a generated ID, got %q", doc.ID)
	}
	if doc.OwnerID != alice.ID {
		t.Errorf("owner = %q, want %q", doc.OwnerID, alice.ID)
	}

	t.Run("owner lists own documents", func(t *testing.T) {
		resp, err := aliceDocs.ListDocuments(ctx, connect.NewRequest(&docapi.ListDocumentsRequest{
			DatabaseID:   testDatabase,
			CollectionID: testCollection,
			Queries:      []docapi.Query{docapi.Equal("user_id", alice.ID)},
		}))
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if resp.Msg.Total != 1 || len(resp.Msg.Documents) != 1 {
			t.Fatalf("expected 1 document, got %d", len(resp.Msg.Documents))
		}
		if got := resp.Msg.Documents[0].Data["text"]; got != "buy milk" {
			t.Errorf("text = %v, want buy milk", got)
		}
	})

	t.Run("other users see nothing", func(t *testing.T) {
		// Even when asking for alice's user_id explicitly.
		resp, err := bobDocs.ListDocuments(ctx, connect.NewRequest(&docapi.ListDocumentsRequest{
			DatabaseID:   testDatabase,
			CollectionID: testCollection,
			Queries:      []docapi.Query{docapi.Equal("user_id", alice.ID)},
		}))
		if err != nil {
			t.Fatalf("ListDocuments failed: %v", err)
		}
		if len(resp.Msg.Documents) != 0 {
			t.Errorf("expected no documents, got %d", len(resp.Msg.Documents))
		}

		_, err = bobDocs.GetDocument(ctx, connect.NewRequest(&docapi.GetDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: doc.ID,
		}))
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("GetDocument code = %v, want not_found", connect.CodeOf(err))
		}

		_, err = bobDocs.UpdateDocument(ctx, connect.NewRequest(&docapi.UpdateDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: doc.ID,
			Data: map[string]any{"text": "hijacked"},
		}))
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("UpdateDocument code = %v, want not_found", connect.CodeOf(err))
		}

		_, err = bobDocs.DeleteDocument(ctx, connect.NewRequest(&docapi.DeleteDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: doc.ID,
		}))
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("DeleteDocument code = %v, want not_found", connect.CodeOf(err))
		}
	})

	t.Run("owner updates and deletes", func(t *testing.T) {
		updated, err := aliceDocs.UpdateDocument(ctx, connect.NewRequest(&docapi.UpdateDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: doc.ID,
			Data: map[string]any{"text": "buy oat milk"},
		}))
		if err != nil {
			t.Fatalf("UpdateDocument failed: %v", err)
		}
		if got := updated.Msg.Document.Data["text"]; got != "buy oat milk" {
			t.Errorf("text = %v, want buy oat milk", got)
		}
		if got := updated.Msg.Document.Data["user_id"]; got != alice.ID {
			t.Errorf("partial update dropped user_id: %v", got)
		}

		_, err = aliceDocs.DeleteDocument(ctx, connect.NewRequest(&docapi.DeleteDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: doc.ID,
		}))
		if err != nil {
			t.Fatalf("DeleteDocument failed: %v", err)
		}

		_, err = aliceDocs.GetDocument(ctx, connect.NewRequest(&docapi.GetDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: doc.ID,
		}))
		if connect.CodeOf(err) != connect.CodeNotFound {
			t.Errorf("GetDocument after delete code = %v, want not_found", connect.CodeOf(err))
		}
	})
}

func TestDocumentServiceErrors(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()
	_, token := srv.register(t, "carol@example.com")
	docs := srv.documents(token)

	t.Run("missing token", func(t *testing.T) {
		_, err := srv.documents("").ListDocuments(ctx, connect.NewRequest(&docapi.ListDocumentsRequest{
			DatabaseID: testDatabase, CollectionID: testCollection,
		}))
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("code = %v, want unauthenticated", connect.CodeOf(err))
		}
	})

	t.Run("missing collection", func(t *testing.T) {
		_, err := docs.ListDocuments(ctx, connect.NewRequest(&docapi.ListDocumentsRequest{DatabaseID: testDatabase}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("code = %v, want invalid_argument", connect.CodeOf(err))
		}
	})

	t.Run("unsupported query", func(t *testing.T) {
		_, err := docs.ListDocuments(ctx, connect.NewRequest(&docapi.ListDocumentsRequest{
			DatabaseID: testDatabase, CollectionID: testCollection,
			Queries: []docapi.Query{{Method: "search", Attribute: "text", Values: []any{"milk"}}},
		}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("code = %v, want invalid_argument", connect.CodeOf(err))
		}
	})

	t.Run("invalid document id", func(t *testing.T) {
		_, err := docs.CreateDocument(ctx, connect.NewRequest(&docapi.CreateDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: "!bad id",
			Data: map[string]any{"text": "x"},
		}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("code = %v, want invalid_argument", connect.CodeOf(err))
		}
	})

	t.Run("duplicate document id", func(t *testing.T) {
		req := &docapi.CreateDocumentRequest{
			DatabaseID: testDatabase, CollectionID: testCollection, DocumentID: "fixed-id",
			Data: map[string]any{"text": "x"},
		}
		if _, err := docs.CreateDocument(ctx, connect.NewRequest(req)); err != nil {
			t.Fatalf("first CreateDocument failed: %v", err)
		}
		_, err := docs.CreateDocument(ctx, connect.NewRequest(req))
		if connect.CodeOf(err) != connect.CodeAlreadyExists {
			t.Errorf("code = %v, want already_exists", connect.CodeOf(err))
		}
	})
}

func TestAuthService(t *testing.T) {
	srv := setupTestServer(t)
	ctx := context.Background()

	user, token := srv.register(t, "Dave@Example.com")
	if user.Email != "dave@example.com" {
		t.Errorf("email = %q, want normalized dave@example.com", user.Email)
	}
	if token == "" {
		t.Fatal("expected a token")
	}

	t.Run("duplicate email", func(t *testing.T) {
		_, err := srv.auth.Register(ctx, connect.NewRequest(&docapi.RegisterRequest{
			Email: "dave@example.com", DisplayName: "Dave", Password: "password123",
		}))
		if connect.CodeOf(err) != connect.CodeAlreadyExists {
			t.Errorf("code = %v, want already_exists", connect.CodeOf(err))
		}
	})

	t.Run("weak password", func(t *testing.T) {
		_, err := srv.auth.Register(ctx, connect.NewRequest(&docapi.RegisterRequest{
			Email: "erin@example.com", DisplayName: "Erin", Password: "short",
		}))
		if connect.CodeOf(err) != connect.CodeInvalidArgument {
			t.Errorf("code = %v, want invalid_argument", connect.CodeOf(err))
		}
	})

	t.Run("wrong password", func(t *testing.T) {
		_, err := srv.auth.Login(ctx, connect.NewRequest(&docapi.LoginRequest{
			Email: "dave@example.com", Password: "wrong-password",
		}))
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("code = %v, want unauthenticated", connect.CodeOf(err))
		}
	})

	t.Run("login and current user", func(t *testing.T) {
		resp, err := srv.auth.Login(ctx, connect.NewRequest(&docapi.LoginRequest{
			Email: "dave@example.com", Password: "password123",
		}))
		if err != nil {
			t.Fatalf("Login failed: %v", err)
		}
		me, err := srv.authAs(resp.Msg.Token).GetCurrentUser(ctx, connect.NewRequest(&docapi.GetCurrentUserRequest{}))
		if err != nil {
			t.Fatalf("GetCurrentUser failed: %v", err)
		}
		if me.Msg.User.ID != user.ID || me.Msg.User.DisplayName != "Dave@Example.com" {
			t.Errorf("current user = %+v", me.Msg.User)
		}
	})

	t.Run("logout revokes token", func(t *testing.T) {
		client := srv.authAs(token)
		if _, err := client.Logout(ctx, connect.NewRequest(&docapi.LogoutRequest{})); err != nil {
			t.Fatalf("Logout failed: %v", err)
		}
		_, err := client.GetCurrentUser(ctx, connect.NewRequest(&docapi.GetCurrentUserRequest{}))
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("code = %v, want unauthenticated", connect.CodeOf(err))
		}
		_, err = srv.documents(token).ListDocuments(ctx, connect.NewRequest(&docapi.ListDocumentsRequest{
			DatabaseID: testDatabase, CollectionID: testCollection,
		}))
		if connect.CodeOf(err) != connect.CodeUnauthenticated {
			t.Errorf("documents code = %v, want unauthenticated", connect.CodeOf(err))
		}
	})
}
