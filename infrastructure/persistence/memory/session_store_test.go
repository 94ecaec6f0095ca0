package memory_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"lifetree-backend/application/ports"
	"lifetree-backend/infrastructure/persistence/memory"
)

type stubHandle struct {
	id      string
	created time.Time
	touched time.Time
	stopped bool
}

func newStubHandle(id string) *stubHandle {
	now := time.Now()
	return &stubHandle{id: id, created: now, touched: now}
}

func (h *stubHandle) ID() string                { return h.id }
func (h *stubHandle) CreatedAt() time.Time      { return h.created }
func (h *stubHandle) LastAccessedAt() time.Time { return h.touched }
func (h *stubHandle) Touch()                    { h.touched = time.Now() }
func (h *stubHandle) Stop()                     { h.stopped = true }

func TestSessionStore_PutGetRoundTrip(t *testing.T) {
	store := memory.NewSessionStore()
	ctx := context.Background()

	handle := newStubHandle("sess-1")
	require.NoError(t, store.Put(ctx, handle))

	got, ok := store.Get(ctx, "sess-1")
	require.True(t, ok)
	assert.Equal(t, "sess-1", got.ID())
	assert.Equal(t, 1, store.Count(ctx))
}

func TestSessionStore_GetMissing(t *testing.T) {
	store := memory.NewSessionStore()

	got, ok := store.Get(context.Background(), "nope")
	assert.False(t, ok)
	assert.Nil(t, got)
}

func TestSessionStore_PutReplacesSameID(t *testing.T) {
	store := memory.NewSessionStore()
	ctx := context.Background()

	first := newStubHandle("sess-1")
	second := newStubHandle("sess-1")
	require.NoError(t, store.Put(ctx, first))
	require.NoError(t, store.Put(ctx, second))

	got, ok := store.Get(ctx, "sess-1")
	require.True(t, ok)
	assert.Same(t, second, got.(*stubHandle))
	assert.Equal(t, 1, store.Count(ctx))
}

func TestSessionStore_ListReturnsAll(t *testing.T) {
	store := memory.NewSessionStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.Put(ctx, newStubHandle(fmt.Sprintf("sess-%d", i))))
	}

	handles := store.List(ctx)
	require.Len(t, handles, 3)

	ids := map[string]bool{}
	for _, h := range handles {
		ids[h.ID()] = true
	}
	assert.True(t, ids["sess-0"] && ids["sess-1"] && ids["sess-2"])
}

func TestSessionStore_RemoveDoesNotStop(t *testing.T) {
	store := memory.NewSessionStore()
	ctx := context.Background()

	handle := newStubHandle("sess-1")
	require.NoError(t, store.Put(ctx, handle))
	require.NoError(t, store.Remove(ctx, "sess-1"))

	_, ok := store.Get(ctx, "sess-1")
	assert.False(t, ok)
	assert.Zero(t, store.Count(ctx))
	assert.False(t, handle.stopped, "stopping the loop is the manager's job")

	assert.NoError(t, store.Remove(ctx, "sess-1"), "removing twice is harmless")
}

func TestSessionStore_ConcurrentAccess(t *testing.T) {
	store := memory.NewSessionStore()
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			id := fmt.Sprintf("sess-%d", n)
			_ = store.Put(ctx, newStubHandle(id))
			store.Get(ctx, id)
			store.List(ctx)
			store.Count(ctx)
			_ = store.Remove(ctx, id)
		}(i)
	}
	wg.Wait()

	assert.Zero(t, store.Count(ctx))
}

var _ ports.SessionStore = (*memory.SessionStore)(nil)
