package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

func newSeededSQLite(t *testing.T) *SQLite {
	t.Helper()
	c, err := OpenSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { c.Close() })

	ctx := context.Background()
	require.NoError(t, c.EnsureSchema(ctx))
	require.NoError(t, c.SeedDemo(ctx))
	return c
}

func TestSQLiteCustomerAndTracks(t *testing.T) {
	ctx := context.Background()
	c := newSeededSQLite(t)

	contact, err := c.CustomerContact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "luisg@embraer.com.br", contact.Email)

	require.NoError(t, c.UpdateCustomerEmail(ctx, 1, "updated@example.com"))
	contact, err = c.CustomerContact(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "updated@example.com", contact.Email)

	_, err = c.CustomerContact(ctx, 999)
	assert.True(t, domain.IsNotFound(err))

	track, err := c.TrackByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Bohemian Rhapsody", track.Name)
	assert.Equal(t, "A Night at the Opera", track.Album)
	assert.Equal(t, "Queen", track.Artist)

	hits, err := c.SearchTracksByTitle(ctx, "black", 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	found, err := c.FindTrackByTitleArtist(ctx, "rehab", "winehouse")
	require.NoError(t, err)
	assert.Equal(t, 7, found.ID)
}

func TestSQLiteInvoiceFlow(t *testing.T) {
	ctx := context.Background()
	c := newSeededSQLite(t)

	owned, err := c.AlreadyPurchased(ctx, 1, 9)
	require.NoError(t, err)
	assert.False(t, owned)

	inv, err := c.CreateInvoice(ctx, 1, 9, 0.99, 1)
	require.NoError(t, err)
	assert.NotZero(t, inv.ID)
	assert.InDelta(t, 0.99, inv.Total, 1e-9)

	owned, err = c.AlreadyPurchased(ctx, 1, 9)
	require.NoError(t, err)
	assert.True(t, owned)

	_, err = c.CreateInvoice(ctx, 999, 9, 0.99, 1)
	assert.True(t, domain.IsNotFound(err))
}

func TestSQLiteBrowsing(t *testing.T) {
	ctx := context.Background()
	c := newSeededSQLite(t)

	genres, err := c.Genres(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rock", "Soul"}, genres)

	artists, err := c.ArtistsByGenre(ctx, "rock")
	require.NoError(t, err)
	assert.Contains(t, artists, "Queen")
	assert.NotContains(t, artists, "Amy Winehouse")

	albums, err := c.AlbumsByArtist(ctx, "eagles")
	require.NoError(t, err)
	require.Len(t, albums, 1)
	assert.Equal(t, "Hotel California", albums[0].Title)

	tracks, err := c.TracksByArtist(ctx, "zeppelin", 10)
	require.NoError(t, err)
	assert.Len(t, tracks, 2)
}
