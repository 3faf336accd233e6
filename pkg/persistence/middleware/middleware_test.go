package middleware_test

import (
	"context"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyshop/cadenza/pkg/adapters/memory"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/persistence/middleware"
)

func newKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, 32)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func sampleState() *domain.State {
	st := domain.NewState("t1", 7)
	st.History = []domain.Message{{Role: domain.RoleUser, Content: "update my email"}}
	st.Verification.CurrentEmail = "luisg@embraer.com.br"
	st.Verification.Phone = "+55 (12) 3923-5555"
	return st
}

func TestEncryptionRoundTrip(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	key := newKey(t)
	store := middleware.Chain(backend, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: key,
	}))

	cp, err := store.Append(ctx, "t1", sampleState())
	require.NoError(t, err)
	assert.Equal(t, "luisg@embraer.com.br", cp.State.Verification.CurrentEmail)

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "luisg@embraer.com.br", loaded.State.Verification.CurrentEmail)
	assert.Equal(t, int64(1), loaded.Seq)

	// The backend only ever sees the sealed envelope.
	raw, err := backend.Load(ctx, "t1")
	require.NoError(t, err)
	assert.NotEmpty(t, raw.State.Sealed)
	assert.Empty(t, raw.State.Verification.CurrentEmail)
	assert.Empty(t, raw.State.History)
}

func TestEncryptionKeyRotation(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	oldKey := newKey(t)

	oldStore := middleware.Chain(backend, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: oldKey,
	}))
	_, err := oldStore.Append(ctx, "t1", sampleState())
	require.NoError(t, err)

	// New active key, old key demoted to fallback.
	newStore := middleware.Chain(backend, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey:    newKey(t),
		FallbackKeys: [][]byte{oldKey},
	}))
	loaded, err := newStore.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "luisg@embraer.com.br", loaded.State.Verification.CurrentEmail)
}

func TestEncryptionWrongKeyFails(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()

	store := middleware.Chain(backend, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: newKey(t),
	}))
	_, err := store.Append(ctx, "t1", sampleState())
	require.NoError(t, err)

	other := middleware.Chain(backend, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: newKey(t),
	}))
	_, err = other.Load(ctx, "t1")
	assert.ErrorContains(t, err, "decrypt state")
}

func TestEncryptionRejectsPlaintextCheckpoint(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	_, err := backend.Append(ctx, "t1", sampleState())
	require.NoError(t, err)

	store := middleware.Chain(backend, middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{
		ActiveKey: newKey(t),
	}))
	_, err = store.Load(ctx, "t1")
	assert.ErrorContains(t, err, "missing encrypted envelope")
}

func TestRedactionScrubsEnteredCode(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	store := middleware.Chain(backend, middleware.NewRedactionMiddleware())

	st := sampleState()
	st.Verification.LastCodeEntered = "123456"
	_, err := store.Append(ctx, "t1", st)
	require.NoError(t, err)

	// Live state untouched, persisted state scrubbed.
	assert.Equal(t, "123456", st.Verification.LastCodeEntered)
	loaded, err := backend.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.State.Verification.LastCodeEntered)
}

func TestChainOrdersRedactionBeforeEncryption(t *testing.T) {
	ctx := context.Background()
	backend := memory.NewStore()
	key := newKey(t)
	store := middleware.Chain(backend,
		middleware.NewRedactionMiddleware(),
		middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: key}),
	)

	st := sampleState()
	st.Verification.LastCodeEntered = "123456"
	_, err := store.Append(ctx, "t1", st)
	require.NoError(t, err)

	loaded, err := store.Load(ctx, "t1")
	require.NoError(t, err)
	assert.Equal(t, "***", loaded.State.Verification.LastCodeEntered)
	assert.Equal(t, "luisg@embraer.com.br", loaded.State.Verification.CurrentEmail)
}
