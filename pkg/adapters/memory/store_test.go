package memory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyshop/cadenza/pkg/adapters/memory"
	"github.com/harmonyshop/cadenza/pkg/domain"
)

func TestStoreAppendAndLoad(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.Load(ctx, "t1")
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	st := domain.NewState("t1", 7)
	st.LastUserMsg = "hello"

	cp1, err := store.Append(ctx, "t1", st)
	require.NoError(t, err)
	assert.Equal(t, int64(1), cp1.Seq)

	st.LastUserMsg = "again"
	cp2, err := store.Append(ctx, "t1", st)
	require.NoError(t, err)
	assert.Equal(t, int64(2), cp2.Seq)

	latest, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), latest.Seq)
	assert.Equal(t, "again", latest.State.LastUserMsg)
	assert.Equal(t, 2, store.Len("t1"))
}

func TestStoreIsolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	st := domain.NewState("t1", 7)
	st.History = []domain.Message{{Role: domain.RoleUser, Content: "one"}}
	_, err := store.Append(ctx, "t1", st)
	require.NoError(t, err)

	// Mutating the original after Append must not leak into the store.
	st.History[0].Content = "mutated"
	st.Verified = true

	latest, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "one", latest.State.History[0].Content)
	assert.False(t, latest.State.Verified)

	// Mutating a loaded snapshot must not leak either.
	latest.State.History[0].Content = "poked"
	again, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "one", again.State.History[0].Content)
}

func TestStoreDeleteAndList(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	_, err := store.Append(ctx, "a", domain.NewState("a", 1))
	require.NoError(t, err)
	_, err = store.Append(ctx, "b", domain.NewState("b", 2))
	require.NoError(t, err)

	threads, err := store.List(ctx)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, threads)

	require.NoError(t, store.Delete(ctx, "a"))
	_, err = store.Load(ctx, "a")
	assert.ErrorIs(t, err, domain.ErrThreadNotFound)

	threads, err = store.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, threads)
}
