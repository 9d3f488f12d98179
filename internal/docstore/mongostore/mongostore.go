// Package mongostore provides a MongoDB-backed implementation of docstore.Store.
//
// Each (database, collection) pair maps onto the MongoDB database and collection of the
// same name. Documents are stored as
//
//	{_id, owner_id, data: {...attributes}, created_at, updated_at}
//
// so attribute filters translate to equality matches on "data.<attribute>".
package mongostore

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
)

var (
	_ docstore.Store        = (*Store)(nil)
	_ docstore.OwnedCreator = (*Store)(nil)
)

// Options configures the connection.
type Options struct {
	// URI is a mongodb:// or mongodb+srv:// connection string.
	URI string

	// Timeout bounds connection, server selection and socket operations. Zero keeps driver defaults.
	Timeout time.Duration

	// UsersDatabase holds the "users" collection used by the auth service.
	UsersDatabase string

	Logger *slog.Logger
}

// Store implements docstore.Store on top of a MongoDB client.
type Store struct {
	client        *mongo.Client
	usersDatabase string
	logger        *slog.Logger
}

type record struct {
	ID        string    `bson:"_id"`
	OwnerID   string    `bson:"owner_id"`
	Data      bson.M    `bson:"data"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

// Connect dials MongoDB, verifies the connection and prepares the users collection.
func Connect(ctx context.Context, opts Options) (*Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.UsersDatabase == "" {
		opts.UsersDatabase = "notekeeper"
	}

	clientOpts := options.Client().ApplyURI(opts.URI).SetMinPoolSize(1).SetMaxPoolSize(5)
	if opts.Timeout > 0 {
		clientOpts = clientOpts.
			SetConnectTimeout(opts.Timeout).
			SetServerSelectionTimeout(opts.Timeout).
			SetSocketTimeout(opts.Timeout)
	}

	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}

	s := &Store{client: client, usersDatabase: opts.UsersDatabase, logger: opts.Logger}
	if err := s.ensureUserIndexes(ctx); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}

	opts.Logger.Info("Connected to MongoDB", "users_database", opts.UsersDatabase)
	return s, nil
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

func (s *Store) collection(databaseID, collectionID string) *mongo.Collection {
	return s.client.Database(databaseID).Collection(collectionID)
}

// ListDocuments returns the documents matching every filter, newest first.
func (s *Store) ListDocuments(ctx context.Context, databaseID, collectionID string, filters ...docstore.Filter) ([]*models.Document, error) {
	filter, err := filterDoc(filters)
	if err != nil {
		return nil, err
	}

	findOpts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	cursor, err := s.collection(databaseID, collectionID).Find(ctx, filter, findOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []*models.Document
	for cursor.Next(ctx) {
		var rec record
		if err := cursor.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, rec.toDocument(databaseID, collectionID))
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}

	return docs, nil
}

// CreateDocument inserts a document without an owner.
func (s *Store) CreateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	return s.CreateOwnedDocument(ctx, databaseID, collectionID, documentID, "", fields)
}

// CreateOwnedDocument inserts a document recording ownerID as its creator.
func (s *Store) CreateOwnedDocument(ctx context.Context, databaseID, collectionID, documentID, ownerID string, fields map[string]any) (*models.Document, error) {
	id, err := docstore.ResolveID(documentID)
	if err != nil {
		return nil, err
	}
	if err := docstore.ValidateFields(fields); err != nil {
		return nil, err
	}

	// MongoDB keeps millisecond precision; truncate so the returned document matches what is stored.
	now := time.Now().UTC().Truncate(time.Millisecond)
	rec := record{
		ID:        id,
		OwnerID:   ownerID,
		Data:      bson.M(docstore.CloneFields(fields)),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if _, err := s.collection(databaseID, collectionID).InsertOne(ctx, rec); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: %s", docstore.ErrAlreadyExists, id)
		}
		return nil, fmt.Errorf("failed to insert document: %w", err)
	}

	return rec.toDocument(databaseID, collectionID), nil
}

// GetDocument retrieves a document by ID.
func (s *Store) GetDocument(ctx context.Context, databaseID, collectionID, documentID string) (*models.Document, error) {
	var rec record
	err := s.collection(databaseID, collectionID).FindOne(ctx, bson.D{{Key: "_id", Value: documentID}}).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return rec.toDocument(databaseID, collectionID), nil
}

// UpdateDocument sets the given attributes and returns the updated document.
func (s *Store) UpdateDocument(ctx context.Context, databaseID, collectionID, documentID string, fields map[string]any) (*models.Document, error) {
	if err := docstore.ValidateFields(fields); err != nil {
		return nil, err
	}

	set := bson.D{{Key: "updated_at", Value: time.Now().UTC().Truncate(time.Millisecond)}}
	for k, v := range fields {
		set = append(set, bson.E{Key: "data." + k, Value: v})
	}

	var rec record
	err := s.collection(databaseID, collectionID).FindOneAndUpdate(ctx,
		bson.D{{Key: "_id", Value: documentID}},
		bson.D{{Key: "$set", Value: set}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update document: %w", err)
	}
	return rec.toDocument(databaseID, collectionID), nil
}

// DeleteDocument removes a document by ID.
func (s *Store) DeleteDocument(ctx context.Context, databaseID, collectionID, documentID string) error {
	res, err := s.collection(databaseID, collectionID).DeleteOne(ctx, bson.D{{Key: "_id", Value: documentID}})
	if err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", docstore.ErrNotFound, documentID)
	}
	return nil
}

// filterDoc translates equality filters into a MongoDB query document.
func filterDoc(filters []docstore.Filter) (bson.D, error) {
	if err := docstore.ValidateFilters(filters); err != nil {
		return nil, err
	}
	out := bson.D{}
	for _, f := range filters {
		if f.Field == docstore.OwnerAttr {
			out = append(out, bson.E{Key: "owner_id", Value: f.Value})
			continue
		}
		out = append(out, bson.E{Key: "data." + f.Field, Value: f.Value})
	}
	return out, nil
}

func (r *record) toDocument(databaseID, collectionID string) *models.Document {
	fields := make(map[string]any, len(r.Data))
	for k, v := range r.Data {
		fields[k] = normalize(v)
	}
	return &models.Document{
		ID:           r.ID,
		DatabaseID:   databaseID,
		CollectionID: collectionID,
		OwnerID:      r.OwnerID,
		Fields:       fields,
		CreatedAt:    r.CreatedAt.UTC(),
		UpdatedAt:    r.UpdatedAt.UTC(),
	}
}

// normalize converts BSON container and numeric types into the plain values
// the other adapters return for decoded JSON.
func normalize(v any) any {
	switch val := v.(type) {
	case bson.M:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = normalize(item)
		}
		return out
	case bson.D:
		out := make(map[string]any, len(val))
		for _, e := range val {
			out[e.Key] = normalize(e.Value)
		}
		return out
	case bson.A:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = normalize(item)
		}
		return out
	case int32:
		return float64(val)
	case int64:
		return float64(val)
	case primitive.DateTime:
		return val.Time().UTC()
	default:
		return v
	}
}
