package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/models"
)

func TestStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New()

	first, err := s.CreateDocument(ctx, "db", "notes", docstore.UniqueID, models.NoteFields("one", "u1"))
	require.NoError(t, err)
	second, err := s.CreateOwnedDocument(ctx, "db", "notes", docstore.UniqueID, "u2", models.NoteFields("two", "u2"))
	require.NoError(t, err)
	_, err = s.CreateDocument(ctx, "db", "notes", docstore.UniqueID, models.NoteFields("three", "u1"))
	require.NoError(t, err)

	docs, err := s.ListDocuments(ctx, "db", "notes", docstore.Equal(models.NoteOwnerField, "u1"))
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "three", docs[0].String("text"), "newest first")
	assert.Equal(t, "one", docs[1].String("text"))

	owned, err := s.ListDocuments(ctx, "db", "notes", docstore.Owner("u2"))
	require.NoError(t, err)
	require.Len(t, owned, 1)
	assert.Equal(t, second.ID, owned[0].ID)

	updated, err := s.UpdateDocument(ctx, "db", "notes", first.ID, map[string]any{"text": "uno"})
	require.NoError(t, err)
	assert.Equal(t, "uno", updated.String("text"))
	assert.Equal(t, "u1", updated.String("user_id"))
	assert.True(t, updated.UpdatedAt.After(first.UpdatedAt))

	require.NoError(t, s.DeleteDocument(ctx, "db", "notes", first.ID))
	assert.ErrorIs(t, s.DeleteDocument(ctx, "db", "notes", first.ID), docstore.ErrNotFound)
	_, err = s.GetDocument(ctx, "db", "notes", first.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := New()

	doc, err := s.CreateDocument(ctx, "db", "notes", "n1", models.NoteFields("original", "u1"))
	require.NoError(t, err)
	doc.Fields["text"] = "mutated"

	got, err := s.GetDocument(ctx, "db", "notes", "n1")
	require.NoError(t, err)
	assert.Equal(t, "original", got.String("text"))
}

func TestStoreHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New().ListDocuments(ctx, "db", "notes")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestStoreNumericFilters(t *testing.T) {
	ctx := context.Background()
	s := New()

	_, err := s.CreateDocument(ctx, "db", "c", docstore.UniqueID, map[string]any{"priority": float64(2)})
	require.NoError(t, err)

	docs, err := s.ListDocuments(ctx, "db", "c", docstore.Equal("priority", 2))
	require.NoError(t, err)
	assert.Len(t, docs, 1)
}

func TestUsers(t *testing.T) {
	ctx := context.Background()
	users := NewUsers()

	user := models.NewUser("a@example.com", "Alice", "hash")
	require.NoError(t, users.CreateUser(ctx, user))
	assert.ErrorIs(t, users.CreateUser(ctx, models.NewUser("a@example.com", "Other", "hash")), ErrDuplicateEmail)

	byEmail, err := users.GetUserByEmail(ctx, "a@example.com")
	require.NoError(t, err)
	require.NotNil(t, byEmail)
	assert.Equal(t, user.ID, byEmail.ID)

	byID, err := users.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	require.NotNil(t, byID)
	assert.Equal(t, "Alice", byID.DisplayName)

	missing, err := users.GetUserByEmail(ctx, "nobody@example.com")
	require.NoError(t, err)
	assert.Nil(t, missing)
}
