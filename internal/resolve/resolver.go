// Package resolve maps free-form user references to catalogue tracks. It
// combines explicit id patterns, numeric references against recently shown
// lists, and bounded title search.
package resolve

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// SearchLimit bounds title searches so a vague query cannot flood the user.
const SearchLimit = 5

var (
	idPattern  = regexp.MustCompile(`(?i)\btrack\s*id\b\D*(\d+)|\btrack\s+(\d+)\b|\bid\b\D*(\d+)`)
	intPattern = regexp.MustCompile(`\d+`)
)

// Resolver answers track lookups against the store catalogue.
type Resolver struct {
	catalog ports.Catalog
}

// New creates a Resolver over the given catalogue.
func New(catalog ports.Catalog) *Resolver {
	return &Resolver{catalog: catalog}
}

// ByID fetches a track by catalogue id.
func (r *Resolver) ByID(ctx context.Context, trackID int) (domain.Track, error) {
	return r.catalog.TrackByID(ctx, trackID)
}

// ByTitle searches tracks by title, capped at SearchLimit results.
func (r *Resolver) ByTitle(ctx context.Context, title string) ([]domain.Track, error) {
	return r.catalog.SearchTracksByTitle(ctx, title, SearchLimit)
}

// Owned reports whether the customer already purchased the track.
func (r *Resolver) Owned(ctx context.Context, customerID, trackID int) (bool, error) {
	return r.catalog.AlreadyPurchased(ctx, customerID, trackID)
}

// ParseTrackID extracts an explicit track id from text: a "track N",
// "track id N" or "id N" phrase. A bare number is deliberately not explicit;
// it is a numeric reference to be grounded against context first. Returns 0
// when the text carries no explicit id.
func ParseTrackID(text string) int {
	m := idPattern.FindStringSubmatch(text)
	if m == nil {
		return 0
	}
	for _, g := range m[1:] {
		if g == "" {
			continue
		}
		if n, err := strconv.Atoi(g); err == nil && n > 0 {
			return n
		}
	}
	return 0
}

// BareInt returns the number when text is a single number and nothing else,
// the common reply to a "which track?" prompt. Returns 0 otherwise.
func BareInt(text string) int {
	n, err := strconv.Atoi(strings.TrimSpace(text))
	if err != nil || n <= 0 {
		return 0
	}
	return n
}

// FirstInt returns the first integer embedded anywhere in text, or 0.
func FirstInt(text string) int {
	m := intPattern.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// FromContext interprets a numeric reference against the track ids most
// recently shown to the user. A number that matches one of the ids wins over
// a positional reading; otherwise n is a 1-based position into the list.
// Returns 0 when the reference cannot be grounded.
func FromContext(ids []int, n int) int {
	if n <= 0 || len(ids) == 0 {
		return 0
	}
	for _, id := range ids {
		if id == n {
			return id
		}
	}
	if n <= len(ids) {
		return ids[n-1]
	}
	return 0
}
