package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

func TestMemoryCustomer(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySeeded()

	contact, err := m.CustomerContact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "luisg@embraer.com.br", contact.Email)
	assert.NotEmpty(t, contact.Phone)

	require.NoError(t, m.UpdateCustomerEmail(ctx, 1, "new@example.com"))
	contact, err = m.CustomerContact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", contact.Email)

	_, err = m.CustomerContact(ctx, 999)
	assert.True(t, domain.IsNotFound(err))
	err = m.UpdateCustomerEmail(ctx, 999, "x@y.z")
	assert.True(t, domain.IsNotFound(err))
}

func TestMemoryTrackLookups(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySeeded()

	track, err := m.TrackByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bohemian Rhapsody", track.Name)
	assert.Equal(t, "Queen", track.Artist)
	assert.Equal(t, 0.99, track.UnitPrice)

	_, err = m.TrackByID(ctx, 404)
	assert.True(t, domain.IsNotFound(err))

	hits, err := m.SearchTracksByTitle(ctx, "black", 5)
	require.NoError(t, err)
	require.Len(t, hits, 2)

	hits, err = m.SearchTracksByTitle(ctx, "black", 1)
	require.NoError(t, err)
	assert.Len(t, hits, 1)

	track, err = m.FindTrackByTitleArtist(ctx, "rehab", "winehouse")
	require.NoError(t, err)
	assert.Equal(t, 7, track.ID)
}

func TestMemoryPurchases(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySeeded()

	owned, err := m.AlreadyPurchased(ctx, 1, 9)
	require.NoError(t, err)
	assert.False(t, owned)

	inv, err := m.CreateInvoice(ctx, 1, 9, 0.99, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, inv.ID)
	assert.InDelta(t, 0.99, inv.Total, 1e-9)
	require.Len(t, inv.Lines, 1)
	assert.Equal(t, 9, inv.Lines[0].TrackID)
	assert.Contains(t, inv.Lines[0].Name, "For Those About to Rock")

	owned, err = m.AlreadyPurchased(ctx, 1, 9)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestMemoryBrowsing(t *testing.T) {
	ctx := context.Background()
	m := NewMemorySeeded()

	genres, err := m.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rock", "Soul"}, genres)

	artists, err := m.ArtistsByGenre(ctx, "soul")
	require.NoError(t, err)
	assert.Equal(t, []string{"Amy Winehouse"}, artists)

	albums, err := m.AlbumsByArtist(ctx, "queen")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "A Night at the Opera", albums[0].Title)

	tracks, err := m.TracksByGenre(ctx, "rock", 10)
	require.NoError(t, err)
	assert.Len(t, tracks, 7)
}
