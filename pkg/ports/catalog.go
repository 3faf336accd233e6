package ports

import (
	"context"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Contact is a customer's stored contact information.
type Contact struct {
	Email string
	Phone string
}

// Album is a catalogue album with its artist.
type Album struct {
	Title  string
	Artist string
}

// Invoice is the record created for a completed purchase.
type Invoice struct {
	ID    int
	Total float64
	Lines []domain.LineItem
}

// Catalog is the typed data-access interface over the music store. Lookups
// raise *domain.NotFoundError for unknown ids, distinct from other failures.
type Catalog interface {
	// Customer operations.
	CustomerContact(ctx context.Context, customerID int) (Contact, error)
	UpdateCustomerEmail(ctx context.Context, customerID int, email string) error

	// Track operations.
	TrackByID(ctx context.Context, trackID int) (domain.Track, error)
	SearchTracksByTitle(ctx context.Context, title string, limit int) ([]domain.Track, error)
	FindTrackByTitleArtist(ctx context.Context, title, artist string) (domain.Track, error)

	// Ownership and purchasing.
	AlreadyPurchased(ctx context.Context, customerID, trackID int) (bool, error)
	CreateInvoice(ctx context.Context, customerID, trackID int, unitPrice float64, qty int) (Invoice, error)

	// Browsing.
	Genres(ctx context.Context) ([]string, error)
	ArtistsByGenre(ctx context.Context, genre string) ([]string, error)
	AlbumsByGenre(ctx context.Context, genre string) ([]Album, error)
	TracksByGenre(ctx context.Context, genre string, limit int) ([]domain.Track, error)
	SearchArtists(ctx context.Context, name string) ([]string, error)
	SearchAlbums(ctx context.Context, title string) ([]Album, error)
	AlbumsByArtist(ctx context.Context, artist string) ([]Album, error)
	TracksByArtist(ctx context.Context, artist string, limit int) ([]domain.Track, error)
}
