package notes

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmynk/notekeeper/internal/docstore"
	"github.com/mmynk/notekeeper/internal/docstore/memory"
	"github.com/mmynk/notekeeper/internal/models"
)

const (
	testDatabase   = "db"
	testCollection = "notes"
)

var errNetwork = errors.New("network unreachable")

// failingStore fails every call.
type failingStore struct{ err error }

func (s failingStore) ListDocuments(context.Context, string, string, ...docstore.Filter) ([]*models.Document, error) {
	return nil, s.err
}

func (s failingStore) CreateDocument(context.Context, string, string, string, map[string]any) (*models.Document, error) {
	return nil, s.err
}

func (s failingStore) GetDocument(context.Context, string, string, string) (*models.Document, error) {
	return nil, s.err
}

func (s failingStore) UpdateDocument(context.Context, string, string, string, map[string]any) (*models.Document, error) {
	return nil, s.err
}

func (s failingStore) DeleteDocument(context.Context, string, string, string) error {
	return s.err
}

// leakyStore ignores filters on list, as a misbehaving backend might.
type leakyStore struct {
	*memory.Store
}

func (s leakyStore) ListDocuments(ctx context.Context, databaseID, collectionID string, _ ...docstore.Filter) ([]*models.Document, error) {
	return s.Store.ListDocuments(ctx, databaseID, collectionID)
}

func newRepo(store docstore.Store) *Repository {
	return NewRepository(store, testDatabase, testCollection, nil)
}

func TestCreateThenList(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())

	created, err := repo.Create(ctx, "buy milk", "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.NotEqual(t, docstore.UniqueID, created.ID)
	assert.Equal(t, "buy milk", created.Text)
	assert.Equal(t, "u1", created.OwnerID)

	second, err := repo.Create(ctx, "call mom", "u1")
	require.NoError(t, err)
	_, err = repo.Create(ctx, "someone else's", "u2")
	require.NoError(t, err)

	notes, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	assert.Equal(t, second.ID, notes[0].ID, "newest first")
	assert.Equal(t, created.ID, notes[1].ID)
	for _, n := range notes {
		assert.Equal(t, "u1", n.OwnerID)
	}
}

func TestCreateDoesNotValidateText(t *testing.T) {
	repo := newRepo(memory.New())
	note, err := repo.Create(context.Background(), "", "u1")
	require.NoError(t, err)
	assert.Equal(t, "", note.Text)
}

func TestListEmpty(t *testing.T) {
	notes, err := newRepo(memory.New()).List(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, notes)
}

func TestListDropsForeignOwners(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	repo := newRepo(leakyStore{store})

	for _, owner := range []string{"u1", "u2", "u1", "u3"} {
		_, err := store.CreateDocument(ctx, testDatabase, testCollection, docstore.UniqueID,
			models.NoteFields("note of "+owner, owner))
		require.NoError(t, err)
	}

	notes, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, notes, 2)
	for _, n := range notes {
		assert.Equal(t, "u1", n.OwnerID)
	}
}

func TestUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())

	a, err := repo.Create(ctx, "a", "u1")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "b", "u1")
	require.NoError(t, err)

	updated, err := repo.Update(ctx, a.ID, "a2")
	require.NoError(t, err)
	assert.Equal(t, a.ID, updated.ID)
	assert.Equal(t, "a2", updated.Text)
	assert.Equal(t, "u1", updated.OwnerID, "owner survives a partial update")

	notes, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 2)
	byID := map[string]string{}
	for _, n := range notes {
		byID[n.ID] = n.Text
	}
	assert.Equal(t, "a2", byID[a.ID])
	assert.Equal(t, "b", byID[b.ID])

	_, err = repo.Update(ctx, "missing", "x")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())

	a, err := repo.Create(ctx, "a", "u1")
	require.NoError(t, err)
	b, err := repo.Create(ctx, "b", "u1")
	require.NoError(t, err)

	require.NoError(t, repo.Delete(ctx, a.ID))

	notes, err := repo.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, b.ID, notes[0].ID)

	err = repo.Delete(ctx, a.ID)
	assert.ErrorIs(t, err, docstore.ErrNotFound)
	assert.Contains(t, err.Error(), "failed to delete note")
}

func TestGet(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(memory.New())

	a, err := repo.Create(ctx, "a", "u1")
	require.NoError(t, err)

	got, err := repo.Get(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, *a, *got)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, docstore.ErrNotFound)
}

func TestErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(failingStore{err: errNetwork})

	_, err := repo.List(ctx, "u1")
	assert.ErrorIs(t, err, errNetwork)

	_, err = repo.Create(ctx, "x", "u1")
	assert.ErrorIs(t, err, errNetwork)

	_, err = repo.Update(ctx, "n1", "x")
	assert.ErrorIs(t, err, errNetwork)

	assert.ErrorIs(t, repo.Delete(ctx, "n1"), errNetwork)

	_, err = repo.Get(ctx, "n1")
	assert.ErrorIs(t, err, errNetwork)
}

func TestListOrEmpty(t *testing.T) {
	ctx := context.Background()

	notes := newRepo(failingStore{err: errNetwork}).ListOrEmpty(ctx, "u1")
	assert.NotNil(t, notes)
	assert.Empty(t, notes)

	repo := newRepo(memory.New())
	_, err := repo.Create(ctx, "a", "u1")
	require.NoError(t, err)
	assert.Len(t, repo.ListOrEmpty(ctx, "u1"), 1)
}
