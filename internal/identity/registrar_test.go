package identity

import (
	"context"
	"testing"

	"github.com/inkwellhq/inkwell-backend/internal/models"
	"github.com/inkwellhq/inkwell-backend/internal/repositories"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeAccountStore struct {
	fakeNameStore
	bySubject map[string]*models.User
}

func newFakeAccountStore() *fakeAccountStore {
	return &fakeAccountStore{
		fakeNameStore: *newFakeNameStore(),
		bySubject:     map[string]*models.User{},
	}
}

func (f *fakeAccountStore) GetUserBySubjectID(_ context.Context, subjectID string) (*models.User, error) {
	if user, ok := f.bySubject[subjectID]; ok {
		return user, nil
	}
	return nil, repositories.ErrNotFound
}

func (f *fakeAccountStore) CreateUser(_ context.Context, user *models.User) error {
	if f.names[user.Username] {
		return repositories.ErrDuplicate
	}
	user.ID = primitive.NewObjectID()
	f.names[user.Username] = true
	f.bySubject[user.SubjectID] = user
	return nil
}

func TestEnsure_CreatesUserFromDisplayName(t *testing.T) {
	store := newFakeAccountStore()
	r := NewRegistrar(store)

	user, err := r.Ensure(context.Background(), "sub-1", "eve@example.com", "eve", "")
	require.NoError(t, err)
	assert.Equal(t, "eve", user.Username)
	assert.Equal(t, "sub-1", user.SubjectID)
	assert.Equal(t, "eve@example.com", user.Email)
}

func TestEnsure_Idempotent(t *testing.T) {
	store := newFakeAccountStore()
	r := NewRegistrar(store)

	first, err := r.Ensure(context.Background(), "sub-1", "eve@example.com", "eve", "")
	require.NoError(t, err)
	second, err := r.Ensure(context.Background(), "sub-1", "eve@example.com", "eve", "")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, store.bySubject, 1)
}

func TestEnsure_InvalidDisplayNameReplaced(t *testing.T) {
	store := newFakeAccountStore()
	r := NewRegistrar(store)

	user, err := r.Ensure(context.Background(), "sub-2", "frank@example.com", "frank@example.com", "")
	require.NoError(t, err)
	assert.Equal(t, "frank", user.Username)
}

func TestEnsure_CollisionSuffixed(t *testing.T) {
	store := newFakeAccountStore()
	store.names["grace"] = true
	r := NewRegistrar(store)

	user, err := r.Ensure(context.Background(), "sub-3", "grace@example.com", "grace", "")
	require.NoError(t, err)
	assert.Equal(t, "grace_1", user.Username)
}

func TestEnsure_MissingEmailStoresSentinel(t *testing.T) {
	store := newFakeAccountStore()
	r := NewRegistrar(store)

	user, err := r.Ensure(context.Background(), "sub-4", "", "", "")
	require.NoError(t, err)
	assert.Equal(t, "no-email", user.Email)
	assert.True(t, ValidUsername(user.Username))
}

func TestEnsure_EmptySubjectRejected(t *testing.T) {
	r := NewRegistrar(newFakeAccountStore())

	_, err := r.Ensure(context.Background(), "", "x@example.com", "x", "")
	assert.Error(t, err)
}
