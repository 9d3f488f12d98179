// Package sqlite provides a SQLite-backed implementation of the docstore.Store interface.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/goccy/go-json"
	_ "modernc.org/sqlite" // Pure Go SQLite driver (no CGO)

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
)

// Ensure SQLiteStore implements docstore.Store
var (
	_ docstore.Store        = (*SQLiteStore)(nil)
	_ docstore.OwnedCreator = (*SQLiteStore)(nil)
)

// SQLiteStore implements docstore.Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// New creates a new SQLiteStore with the given database path.
// It creates the parent directories and runs migrations automatically.
func New(dbPath string) (*SQLiteStore, error) {
	// Create parent directory if it doesn't exist
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// Open database with pure Go driver
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// A single connection serialises writers; SQLite locks the whole file anyway.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set busy timeout: %w", err)
	}

	// Run migrations
	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &SQLiteStore{db: db}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ListDocuments returns the documents of a collection matching every filter, newest first.
func (s *SQLiteStore) ListDocuments(ctx context.Context, databaseID, collectionID string, filters ...docstore.Filter) ([]*models.Document, error) {
	if err := docstore.ValidateFilters(filters); err != nil {
		return nil, err
	}

	query := `
		SELECT id, owner_id, fields, created_at, updated_at
		FROM documents
		WHERE database_id = ? AND collection_id = ?`
	args := []any{databaseID, collectionID}

	for _, f := range filters {
		if f.Field == docstore.OwnerAttr {
			query += " AND owner_id = ?"
			args = append(args, f.Value)
			continue
		}
		value, err := bindValue(f.Value)
		if err != nil {
			return nil, err
		}
		query += " AND json_extract(fields, ?) = ?"
		args = append(args, jsonPath(f.Field), value)
	}
	query += " ORDER BY created_at DESC, rowid DESC"

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*models.Document
	for rows.Next() {
		doc := &models.Document{DatabaseID: databaseID, CollectionID: collectionID}
		if err := scanDocument(rows, doc); err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// CreateDocument persists a new document without an owner.
func (s *SQLiteStore) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	return s.CreateOwnedDocument(ctx, databaseID, collectionID, documentID, "", fields)
}

// CreateOwnedDocument persists a new document recording ownerID as its creator.
func (s *SQLiteStore) CreateOwnedDocument(ctx context.Context, databaseID, collectionID, documentID, ownerID string, fields map[string]any) (*models.Document, error) {
	id, err := docstore.ResolveID(documentID)
	if err != nil {
		return nil, err
	}
	if err := docstore.ValidateFields(fields); err != nil {
		return nil, err
	}
	if fields == nil {
		fields = map[string]any{}
	}

	body, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO documents (database_id, collection_id, id, owner_id, fields, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		databaseID, collectionID, id, ownerID, string(body), now.UnixNano(), now.UnixNano(),
	)
	if err != nil {
		if isConstraintError(err) {
			return nil, fmt.Errorf("%w: %s", docstore.ErrAlreadyExists, id)
		}
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return &models.Document{
		ID:           id,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		OwnerID:      ownerID,
		Fields:       docstore.CloneFields(fields),
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// GetDocument retrieves a document by ID.
func (s *SQLiteStore) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*models.Document, error) {
	return getDocument(ctx, s.db, databaseID, collectionID, documentID)
}

// UpdateDocument merges fields into the stored body inside a transaction.
func (s *SQLiteStore) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	if err := docstore.ValidateFields(fields); err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	doc, err := getDocument(ctx, tx, databaseID, collectionID, documentID)
	if err != nil {
		return nil, err
	}
	for k, v := range fields {
		doc.Fields[k] = v
	}

	body, err := json.Marshal(doc.Fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode document: %w", err)
	}

	doc.UpdatedAt = time.Now().UTC()
	_, err = tx.ExecContext(ctx,
		`UPDATE documents SET fields = ?, updated_at = ?
		 WHERE database_id = ? AND collection_id = ? AND id = ?`,
		string(body), doc.UpdatedAt.UnixNano(), databaseID, collectionID, documentID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return doc, nil
}

// DeleteDocument removes a document by ID.
func (s *SQLiteStore) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	result, err := s.db.ExecContext(ctx,
		"DELETE FROM documents WHERE database_id = ? AND collection_id = ? AND id = ?",
		databaseID, collectionID, documentID,
	)
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}

	return nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getDocument(ctx context.Context, q queryer, databaseID, collectionID, documentID string) (*models.Document, error) {
	row := q.QueryRowContext(ctx,
		`SELECT id, owner_id, fields, created_at, updated_at
		 FROM documents WHERE database_id = ? AND collection_id = ? AND id = ?`,
		databaseID, collectionID, documentID,
	)

	doc := &models.Document{DatabaseID: databaseID, CollectionID: collectionID}
	err := scanDocument(row, doc)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}
	if err != nil {
		return nil, err
	}
	return doc, nil
}

func scanDocument(row scanner, doc *models.Document) error {
	var body string
	var createdAt, updatedAt int64
	if err := row.Scan(&doc.ID, &doc.OwnerID, &body, &createdAt, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return err
		}
		return fmt.Errorf("failed to scan document: %w", err)
	}

	doc.Fields = make(map[string]any)
	if err := json.Unmarshal([]byte(body), &doc.Fields); err != nil {
		return fmt.Errorf("failed to decode document %s: %w", doc.ID, err)
	}
	doc.CreatedAt = time.Unix(0, createdAt).UTC()
	doc.UpdatedAt = time.Unix(0, updatedAt).UTC()
	return nil
}

// jsonPath quotes an attribute name for json_extract.
func jsonPath(field string) string {
	return `$."` + field + `"`
}

// bindValue converts a filter value into something json_extract can be compared with.
func bindValue(v any) (any, error) {
	switch val := v.(type) {
	case string, float64, float32, int, int32, int64:
		return val, nil
	case bool:
		// json_extract yields 1/0 for JSON booleans
		if val {
			return 1, nil
		}
		return 0, nil
	default:
		return nil, fmt.Errorf("%w: unsupported value type %T", docstore.ErrInvalidFilter, v)
	}
}

func isConstraintError(err error) bool {
	return strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "PRIMARY KEY")
}
