package session

import (
	"errors"
	"os"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Panchalparth471/Peppo-AI-Backend/types"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(t.TempDir(), zap.NewNop())
}

func TestStore_CreateAndLoad(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)
	assert.Len(t, id, 32) // uuid4 hex, no dashes

	sess, err := store.Load(id)
	require.NoError(t, err)
	assert.Equal(t, id, sess.ID)
	assert.Empty(t, sess.Messages)
	assert.False(t, sess.CreatedAt.IsZero())
}

func TestStore_CreateWithID_Idempotent(t *testing.T) {
	store := newTestStore(t)

	id, err := store.CreateWithID("client-supplied")
	require.NoError(t, err)
	require.NoError(t, store.Append(id, types.RoleUser, "hello", nil))

	// A second create must not clobber existing history.
	again, err := store.CreateWithID("client-supplied")
	require.NoError(t, err)
	assert.Equal(t, id, again)

	sess, err := store.Load(id)
	require.NoError(t, err)
	assert.Len(t, sess.Messages, 1)
}

func TestStore_Load_NotFound(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Load("nope")
	require.Error(t, err)
	assert.Equal(t, types.ErrSessionNotFound, types.GetErrorCode(err))
}

func TestStore_Append_SelfHealing(t *testing.T) {
	store := newTestStore(t)

	// Appending to a session that was never created recreates it.
	err := store.Append("stale-id", types.RoleUser, "hi", map[string]any{"source": "frontend"})
	require.NoError(t, err)

	sess, err := store.Load("stale-id")
	require.NoError(t, err)
	require.Len(t, sess.Messages, 1)
	assert.Equal(t, types.RoleUser, sess.Messages[0].Role)
	assert.Equal(t, "hi", sess.Messages[0].Text)
	assert.Equal(t, "frontend", sess.Messages[0].Meta["source"])
	assert.False(t, sess.Messages[0].TS.IsZero())
}

func TestStore_Append_Ordering(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)

	require.NoError(t, store.Append(id, types.RoleUser, "first", nil))
	require.NoError(t, store.Append(id, types.RoleAssistant, "second", nil))

	sess, err := store.Load(id)
	require.NoError(t, err)
	require.Len(t, sess.Messages, 2)
	assert.Equal(t, "first", sess.Messages[0].Text)
	assert.Equal(t, "second", sess.Messages[1].Text)
}

func TestStore_Append_ConcurrentSameSession(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)

	const goroutines = 16
	var wg sync.WaitGroup
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = store.Append(id, types.RoleUser, "msg", nil)
		}()
	}
	wg.Wait()

	sess, err := store.Load(id)
	require.NoError(t, err)
	// Per-session locking makes the read-modify-write atomic in-process.
	assert.Len(t, sess.Messages, goroutines)
}

func TestStore_Load_CorruptRecord(t *testing.T) {
	store := newTestStore(t)

	id, err := store.Create()
	require.NoError(t, err)

	// Corrupt the record behind the store's back.
	require.NoError(t, os.WriteFile(store.path(id), []byte("{not json"), 0o644))

	_, err = store.Load(id)
	require.Error(t, err)

	var typed *types.Error
	assert.False(t, errors.As(err, &typed), "corrupt record is an I/O error, not a typed service error")
}
