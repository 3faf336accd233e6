package catalog

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

type memTrack struct {
	domain.Track
	Genre string
}

type memCustomer struct {
	ID    int
	Email string
	Phone string
}

type memInvoiceLine struct {
	InvoiceID  int
	CustomerID int
	TrackID    int
	UnitPrice  float64
	Qty        int
}

// Memory implements ports.Catalog in process memory. Tests and demo mode use
// it so nothing touches disk.
type Memory struct {
	mu        sync.RWMutex
	tracks    []memTrack
	customers map[int]*memCustomer
	lines     []memInvoiceLine
	nextInv   int
}

// NewMemory creates an empty in-memory catalogue.
func NewMemory() *Memory {
	return &Memory{
		customers: make(map[int]*memCustomer),
		nextInv:   1,
	}
}

// NewMemorySeeded creates an in-memory catalogue preloaded with the demo
// data: a small rock catalogue and customer 1.
func NewMemorySeeded() *Memory {
	m := NewMemory()
	m.AddCustomer(1, "luisg@embraer.com.br", "+55 (12) 3923-5555")
	seed := []struct {
		id     int
		name   string
		album  string
		artist string
		genre  string
	}{
		{1, "Bohemian Rhapsody", "A Night at the Opera", "Queen", "Rock"},
		{2, "Love of My Life", "A Night at the Opera", "Queen", "Rock"},
		{3, "Hotel California", "Hotel California", "Eagles", "Rock"},
		{4, "New Kid in Town", "Hotel California", "Eagles", "Rock"},
		{5, "Stairway to Heaven", "Led Zeppelin IV", "Led Zeppelin", "Rock"},
		{6, "Black Dog", "Led Zeppelin IV", "Led Zeppelin", "Rock"},
		{7, "Rehab", "Back to Black", "Amy Winehouse", "Soul"},
		{8, "Back to Black", "Back to Black", "Amy Winehouse", "Soul"},
		{9, "For Those About to Rock (We Salute You)", "For Those About to Rock We Salute You", "AC/DC", "Rock"},
	}
	for _, s := range seed {
		m.AddTrack(domain.Track{
			ID: s.id, Name: s.name, UnitPrice: 0.99, Album: s.album, Artist: s.artist,
		}, s.genre)
	}
	return m
}

// AddTrack registers a track.
func (m *Memory) AddTrack(t domain.Track, genre string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tracks = append(m.tracks, memTrack{Track: t, Genre: genre})
}

// AddCustomer registers a customer.
func (m *Memory) AddCustomer(id int, email, phone string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[id] = &memCustomer{ID: id, Email: email, Phone: phone}
}

func (m *Memory) CustomerContact(ctx context.Context, customerID int) (ports.Contact, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	cust, ok := m.customers[customerID]
	if !ok {
		return ports.Contact{}, &domain.NotFoundError{Kind: "customer", ID: customerID}
	}
	return ports.Contact{Email: cust.Email, Phone: cust.Phone}, nil
}

func (m *Memory) UpdateCustomerEmail(ctx context.Context, customerID int, email string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cust, ok := m.customers[customerID]
	if !ok {
		return &domain.NotFoundError{Kind: "customer", ID: customerID}
	}
	cust.Email = email
	return nil
}

func (m *Memory) TrackByID(ctx context.Context, trackID int) (domain.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tracks {
		if t.ID == trackID {
			return t.Track, nil
		}
	}
	return domain.Track{}, &domain.NotFoundError{Kind: "track", ID: trackID}
}

func (m *Memory) SearchTracksByTitle(ctx context.Context, title string, limit int) ([]domain.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Track
	for _, t := range m.tracks {
		if containsFold(t.Name, title) {
			out = append(out, t.Track)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) FindTrackByTitleArtist(ctx context.Context, title, artist string) (domain.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, t := range m.tracks {
		if containsFold(t.Name, title) && containsFold(t.Artist, artist) {
			return t.Track, nil
		}
	}
	return domain.Track{}, &domain.NotFoundError{Kind: "track", ID: title + " / " + artist}
}

func (m *Memory) AlreadyPurchased(ctx context.Context, customerID, trackID int) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, line := range m.lines {
		if line.CustomerID == customerID && line.TrackID == trackID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) CreateInvoice(ctx context.Context, customerID, trackID int, unitPrice float64, qty int) (ports.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.customers[customerID]; !ok {
		return ports.Invoice{}, &domain.NotFoundError{Kind: "customer", ID: customerID}
	}

	var name string
	for _, t := range m.tracks {
		if t.ID == trackID {
			name = t.Name
			break
		}
	}

	id := m.nextInv
	m.nextInv++
	m.lines = append(m.lines, memInvoiceLine{
		InvoiceID:  id,
		CustomerID: customerID,
		TrackID:    trackID,
		UnitPrice:  unitPrice,
		Qty:        qty,
	})

	return ports.Invoice{
		ID:    id,
		Total: unitPrice * float64(qty),
		Lines: []domain.LineItem{{
			TrackID:   trackID,
			Name:      name,
			Qty:       qty,
			UnitPrice: unitPrice,
		}},
	}, nil
}

func (m *Memory) Genres(ctx context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, t := range m.tracks {
		if t.Genre != "" && !seen[t.Genre] {
			seen[t.Genre] = true
			out = append(out, t.Genre)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) ArtistsByGenre(ctx context.Context, genre string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, t := range m.tracks {
		if containsFold(t.Genre, genre) && !seen[t.Artist] {
			seen[t.Artist] = true
			out = append(out, t.Artist)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) AlbumsByGenre(ctx context.Context, genre string) ([]ports.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectAlbums(func(t memTrack) bool {
		return containsFold(t.Genre, genre)
	}), nil
}

func (m *Memory) TracksByGenre(ctx context.Context, genre string, limit int) ([]domain.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Track
	for _, t := range m.tracks {
		if containsFold(t.Genre, genre) {
			out = append(out, t.Track)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

func (m *Memory) SearchArtists(ctx context.Context, name string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, t := range m.tracks {
		if containsFold(t.Artist, name) && !seen[t.Artist] {
			seen[t.Artist] = true
			out = append(out, t.Artist)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *Memory) SearchAlbums(ctx context.Context, title string) ([]ports.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectAlbums(func(t memTrack) bool {
		return containsFold(t.Album, title)
	}), nil
}

func (m *Memory) AlbumsByArtist(ctx context.Context, artist string) ([]ports.Album, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.collectAlbums(func(t memTrack) bool {
		return containsFold(t.Artist, artist)
	}), nil
}

func (m *Memory) TracksByArtist(ctx context.Context, artist string, limit int) ([]domain.Track, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []domain.Track
	for _, t := range m.tracks {
		if containsFold(t.Artist, artist) {
			out = append(out, t.Track)
			if len(out) == limit {
				break
			}
		}
	}
	return out, nil
}

// collectAlbums gathers distinct albums from tracks passing the filter.
// Caller holds the lock.
func (m *Memory) collectAlbums(match func(memTrack) bool) []ports.Album {
	seen := make(map[string]bool)
	var out []ports.Album
	for _, t := range m.tracks {
		if !match(t) || seen[t.Album] {
			continue
		}
		seen[t.Album] = true
		out = append(out, ports.Album{Title: t.Album, Artist: t.Artist})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Title < out[j].Title })
	return out
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
