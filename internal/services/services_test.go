package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyshop/cadenza/pkg/ports"
)

func TestVerifierFixedCode(t *testing.T) {
	ctx := context.Background()
	v := NewVerifier()

	id, err := v.SendCode(ctx, "+15551234567")
	require.NoError(t, err)
	require.NotEmpty(t, id)
	assert.Equal(t, FixedCode, v.PendingCode(id))

	ok, err := v.CheckCode(ctx, id, "000000")
	require.NoError(t, err)
	assert.False(t, ok)

	// Whitespace around the code is tolerated.
	ok, err = v.CheckCode(ctx, id, " 123456 ")
	require.NoError(t, err)
	assert.True(t, ok)

	// A correct check consumes the verification.
	ok, err = v.CheckCode(ctx, id, "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestVerifierUnknownID(t *testing.T) {
	v := NewVerifier()
	ok, err := v.CheckCode(context.Background(), "nope", "123456")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMaskPhone(t *testing.T) {
	assert.Equal(t, "***4567", MaskPhone("+15551234567"))
	assert.Equal(t, "****", MaskPhone("123"))
}

func TestGatewayChargeIdempotent(t *testing.T) {
	ctx := context.Background()
	g := NewGateway()

	intent, err := g.CreateIntent(ctx, 1.98, 1, nil)
	require.NoError(t, err)
	assert.Regexp(t, `^pi_[0-9a-f]{16}$`, intent)

	first, err := g.Charge(ctx, intent, 1.98, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, ports.ChargeSucceeded, first.Status)
	assert.Regexp(t, `^txn_[0-9a-f]{12}$`, first.TransactionID)

	// Replaying the same intent returns the recorded outcome verbatim.
	second, err := g.Charge(ctx, intent, 1.98, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestGatewayDeclineIsSticky(t *testing.T) {
	ctx := context.Background()
	g := NewGateway(WithFailureRate(1))

	intent, err := g.CreateIntent(ctx, 0.99, 1, nil)
	require.NoError(t, err)

	first, err := g.Charge(ctx, intent, 0.99, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, ports.ChargeFailed, first.Status)
	assert.Empty(t, first.TransactionID)
	assert.Equal(t, "card declined", first.Reason)

	second, err := g.Charge(ctx, intent, 0.99, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestMatcherRanksAndFilters(t *testing.T) {
	ctx := context.Background()
	m := NewMatcher()

	matches, err := m.SearchByLyrics(ctx, "is this the real life")
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, "Bohemian Rhapsody", matches[0].Title)
	assert.GreaterOrEqual(t, matches[0].Score, 0.8)

	for i := 1; i < len(matches); i++ {
		assert.LessOrEqual(t, matches[i].Score, matches[i-1].Score)
	}

	matches, err = m.SearchByLyrics(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, matches)

	matches, err = m.SearchByLyrics(ctx, "zzzzqqqqxxxx")
	require.NoError(t, err)
	assert.Empty(t, matches)
}

func TestVideoLookupDeterministic(t *testing.T) {
	ctx := context.Background()
	f := NewVideoLookup()

	v1, err := f.Search(ctx, "Bohemian Rhapsody Queen official audio")
	require.NoError(t, err)
	v2, err := f.Search(ctx, "Bohemian Rhapsody Queen official audio")
	require.NoError(t, err)

	assert.Equal(t, v1.ID, v2.ID)
	assert.Len(t, v1.ID, 11)
	assert.NotContains(t, v1.ID, "a")
	assert.NotContains(t, v1.ID, "e")
	assert.Equal(t, "Bohemian Rhapsody Queen", v1.Title)
	assert.Contains(t, v1.URL, v1.ID)

	html := f.EmbedHTML(v1.ID, true)
	assert.Contains(t, html, "embed/"+v1.ID+"?autoplay=1")
	assert.Contains(t, html, "<iframe")
}
