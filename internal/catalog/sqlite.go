// Package catalog provides access to the music store database: customers,
// tracks, albums, genres, ownership and invoicing. The SQLite implementation
// targets a Chinook-shaped schema; Memory serves tests and demo mode.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// SQLite implements ports.Catalog over a Chinook-shaped SQLite database.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite opens the database at path.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	// SQLite handles one writer; serializing through a single connection
	// avoids SQLITE_BUSY under concurrent turns.
	db.SetMaxOpenConns(1)
	return &SQLite{db: db}, nil
}

// NewSQLite wraps an existing handle.
func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{db: db}
}

// Close closes the database.
func (c *SQLite) Close() error {
	return c.db.Close()
}

// CustomerContact returns the customer's email and phone.
func (c *SQLite) CustomerContact(ctx context.Context, customerID int) (ports.Contact, error) {
	var contact ports.Contact
	err := c.db.QueryRowContext(ctx,
		`SELECT Email, Phone FROM Customer WHERE CustomerId = ?`, customerID,
	).Scan(&contact.Email, &contact.Phone)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Contact{}, &domain.NotFoundError{Kind: "customer", ID: customerID}
	}
	if err != nil {
		return ports.Contact{}, fmt.Errorf("customer contact: %w", err)
	}
	return contact, nil
}

// UpdateCustomerEmail writes the customer's new email address.
func (c *SQLite) UpdateCustomerEmail(ctx context.Context, customerID int, email string) error {
	res, err := c.db.ExecContext(ctx,
		`UPDATE Customer SET Email = ? WHERE CustomerId = ?`, email, customerID,
	)
	if err != nil {
		return fmt.Errorf("update customer email: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &domain.NotFoundError{Kind: "customer", ID: customerID}
	}
	return nil
}

const trackColumns = `
	Track.TrackId, Track.Name, Track.UnitPrice, Album.Title, Artist.Name
	FROM Track
	JOIN Album ON Track.AlbumId = Album.AlbumId
	JOIN Artist ON Album.ArtistId = Artist.ArtistId`

// TrackByID returns the track with the given id.
func (c *SQLite) TrackByID(ctx context.Context, trackID int) (domain.Track, error) {
	var t domain.Track
	err := c.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` WHERE Track.TrackId = ?`, trackID,
	).Scan(&t.ID, &t.Name, &t.UnitPrice, &t.Album, &t.Artist)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Track{}, &domain.NotFoundError{Kind: "track", ID: trackID}
	}
	if err != nil {
		return domain.Track{}, fmt.Errorf("track by id: %w", err)
	}
	return t, nil
}

// SearchTracksByTitle returns tracks whose title contains the substring.
func (c *SQLite) SearchTracksByTitle(ctx context.Context, title string, limit int) ([]domain.Track, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+trackColumns+` WHERE Track.Name LIKE ? ORDER BY Track.Name LIMIT ?`,
		"%"+title+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("search tracks: %w", err)
	}
	defer rows.Close()
	return scanTracks(rows)
}

// FindTrackByTitleArtist returns the first track matching both substrings.
func (c *SQLite) FindTrackByTitleArtist(ctx context.Context, title, artist string) (domain.Track, error) {
	var t domain.Track
	err := c.db.QueryRowContext(ctx,
		`SELECT `+trackColumns+` WHERE Track.Name LIKE ? AND Artist.Name LIKE ? LIMIT 1`,
		"%"+title+"%", "%"+artist+"%",
	).Scan(&t.ID, &t.Name, &t.UnitPrice, &t.Album, &t.Artist)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.Track{}, &domain.NotFoundError{Kind: "track", ID: title + " / " + artist}
	}
	if err != nil {
		return domain.Track{}, fmt.Errorf("find track: %w", err)
	}
	return t, nil
}

// AlreadyPurchased reports whether the customer owns the track.
func (c *SQLite) AlreadyPurchased(ctx context.Context, customerID, trackID int) (bool, error) {
	var count int
	err := c.db.QueryRowContext(ctx, `
		SELECT COUNT(*)
		FROM InvoiceLine
		JOIN Invoice ON InvoiceLine.InvoiceId = Invoice.InvoiceId
		WHERE Invoice.CustomerId = ? AND InvoiceLine.TrackId = ?`,
		customerID, trackID,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("already purchased: %w", err)
	}
	return count > 0, nil
}

// CreateInvoice records a purchase: one invoice with one line, committed
// atomically.
func (c *SQLite) CreateInvoice(ctx context.Context, customerID, trackID int, unitPrice float64, qty int) (ports.Invoice, error) {
	total := unitPrice * float64(qty)

	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return ports.Invoice{}, fmt.Errorf("begin invoice tx: %w", err)
	}
	defer tx.Rollback()

	var addr, city, state, country, postal sql.NullString
	err = tx.QueryRowContext(ctx,
		`SELECT Address, City, State, Country, PostalCode FROM Customer WHERE CustomerId = ?`,
		customerID,
	).Scan(&addr, &city, &state, &country, &postal)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.Invoice{}, &domain.NotFoundError{Kind: "customer", ID: customerID}
	}
	if err != nil {
		return ports.Invoice{}, fmt.Errorf("customer billing info: %w", err)
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO Invoice (
			CustomerId, InvoiceDate,
			BillingAddress, BillingCity, BillingState,
			BillingCountry, BillingPostalCode, Total
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		customerID, time.Now().UTC().Format("2006-01-02 15:04:05"),
		addr, city, state, country, postal, total,
	)
	if err != nil {
		return ports.Invoice{}, fmt.Errorf("insert invoice: %w", err)
	}
	invoiceID, err := res.LastInsertId()
	if err != nil {
		return ports.Invoice{}, err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO InvoiceLine (InvoiceId, TrackId, UnitPrice, Quantity)
		VALUES (?, ?, ?, ?)`,
		invoiceID, trackID, unitPrice, qty,
	); err != nil {
		return ports.Invoice{}, fmt.Errorf("insert invoice line: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return ports.Invoice{}, fmt.Errorf("commit invoice: %w", err)
	}

	track, err := c.TrackByID(ctx, trackID)
	name := track.Name
	if err != nil {
		name = ""
	}

	return ports.Invoice{
		ID:    int(invoiceID),
		Total: total,
		Lines: []domain.LineItem{{
			TrackID:   trackID,
			Name:      name,
			Qty:       qty,
			UnitPrice: unitPrice,
		}},
	}, nil
}

// Genres returns every genre with at least one track.
func (c *SQLite) Genres(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT Genre.Name
		FROM Genre
		JOIN Track ON Genre.GenreId = Track.GenreId
		ORDER BY Genre.Name`)
	if err != nil {
		return nil, fmt.Errorf("genres: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// ArtistsByGenre returns artists with tracks in a matching genre.
func (c *SQLite) ArtistsByGenre(ctx context.Context, genre string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT Artist.Name
		FROM Artist
		JOIN Album ON Artist.ArtistId = Album.ArtistId
		JOIN Track ON Album.AlbumId = Track.AlbumId
		JOIN Genre ON Track.GenreId = Genre.GenreId
		WHERE Genre.Name LIKE ?
		ORDER BY Artist.Name
		LIMIT 50`, "%"+genre+"%")
	if err != nil {
		return nil, fmt.Errorf("artists by genre: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// AlbumsByGenre returns albums containing tracks of a matching genre.
func (c *SQLite) AlbumsByGenre(ctx context.Context, genre string) ([]ports.Album, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT DISTINCT Album.Title, Artist.Name
		FROM Album
		JOIN Artist ON Album.ArtistId = Artist.ArtistId
		JOIN Track ON Album.AlbumId = Track.AlbumId
		JOIN Genre ON Track.GenreId = Genre.GenreId
		WHERE Genre.Name LIKE ?
		ORDER BY Album.Title
		LIMIT 50`, "%"+genre+"%")
	if err != nil {
		return nil, fmt.Errorf("albums by genre: %w", err)
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// TracksByGenre returns tracks of a matching genre.
func (c *SQLite) TracksByGenre(ctx context.Context, genre string, limit int) ([]domain.Track, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+trackColumns+`
		JOIN Genre ON Track.GenreId = Genre.GenreId
		WHERE Genre.Name LIKE ?
		ORDER BY Track.Name LIMIT ?`,
		"%"+genre+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("tracks by genre: %w", err)
	}
	defer rows.Close()
	return scanTracks(rows)
}

// SearchArtists returns artist names containing the substring.
func (c *SQLite) SearchArtists(ctx context.Context, name string) ([]string, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT Name FROM Artist WHERE Name LIKE ? ORDER BY Name LIMIT 20`,
		"%"+name+"%",
	)
	if err != nil {
		return nil, fmt.Errorf("search artists: %w", err)
	}
	defer rows.Close()
	return scanStrings(rows)
}

// SearchAlbums returns albums whose title contains the substring.
func (c *SQLite) SearchAlbums(ctx context.Context, title string) ([]ports.Album, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT Album.Title, Artist.Name
		FROM Album
		JOIN Artist ON Album.ArtistId = Artist.ArtistId
		WHERE Album.Title LIKE ?
		ORDER BY Album.Title
		LIMIT 20`, "%"+title+"%")
	if err != nil {
		return nil, fmt.Errorf("search albums: %w", err)
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// AlbumsByArtist returns albums by a matching artist.
func (c *SQLite) AlbumsByArtist(ctx context.Context, artist string) ([]ports.Album, error) {
	rows, err := c.db.QueryContext(ctx, `
		SELECT Album.Title, Artist.Name
		FROM Album
		JOIN Artist ON Album.ArtistId = Artist.ArtistId
		WHERE Artist.Name LIKE ?
		ORDER BY Album.Title
		LIMIT 20`, "%"+artist+"%")
	if err != nil {
		return nil, fmt.Errorf("albums by artist: %w", err)
	}
	defer rows.Close()
	return scanAlbums(rows)
}

// TracksByArtist returns tracks by a matching artist.
func (c *SQLite) TracksByArtist(ctx context.Context, artist string, limit int) ([]domain.Track, error) {
	rows, err := c.db.QueryContext(ctx,
		`SELECT `+trackColumns+` WHERE Artist.Name LIKE ? ORDER BY Track.Name LIMIT ?`,
		"%"+artist+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("tracks by artist: %w", err)
	}
	defer rows.Close()
	return scanTracks(rows)
}

func scanTracks(rows *sql.Rows) ([]domain.Track, error) {
	var tracks []domain.Track
	for rows.Next() {
		var t domain.Track
		if err := rows.Scan(&t.ID, &t.Name, &t.UnitPrice, &t.Album, &t.Artist); err != nil {
			return nil, err
		}
		tracks = append(tracks, t)
	}
	return tracks, rows.Err()
}

func scanAlbums(rows *sql.Rows) ([]ports.Album, error) {
	var albums []ports.Album
	for rows.Next() {
		var a ports.Album
		if err := rows.Scan(&a.Title, &a.Artist); err != nil {
			return nil, err
		}
		albums = append(albums, a)
	}
	return albums, rows.Err()
}

func scanStrings(rows *sql.Rows) ([]string, error) {
	var out []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}
