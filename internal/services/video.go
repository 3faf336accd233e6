package services

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// VideoLookup implements ports.VideoFinder with deterministic results: the
// video id is derived from the query, so the same song always yields the
// same embed.
type VideoLookup struct{}

// NewVideoLookup creates a VideoLookup.
func NewVideoLookup() *VideoLookup {
	return &VideoLookup{}
}

// Search returns a playable video for the query.
func (VideoLookup) Search(ctx context.Context, query string) (domain.Video, error) {
	if strings.TrimSpace(query) == "" {
		return domain.Video{
			ID:      "dQw4w9WgXcQ",
			Title:   "Unknown Video",
			URL:     "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			Channel: "Unknown",
		}, nil
	}

	id := videoID(query)
	return domain.Video{
		ID:      id,
		Title:   formatTitle(query),
		URL:     "https://www.youtube.com/watch?v=" + id,
		Channel: "Mock Channel",
	}, nil
}

// EmbedHTML renders the iframe embed for a video id.
func (VideoLookup) EmbedHTML(videoID string, autoplay bool) string {
	auto := "0"
	if autoplay {
		auto = "1"
	}
	return fmt.Sprintf(
		`<iframe width="560" height="315" src="https://www.youtube.com/embed/%s?autoplay=%s" frameborder="0" allow="accelerometer; autoplay; clipboard-write; encrypted-media; gyroscope; picture-in-picture" allowfullscreen></iframe>`,
		videoID, auto,
	)
}

// videoID derives a deterministic 11-character id from the query.
func videoID(query string) string {
	sum := md5.Sum([]byte(query))
	id := hex.EncodeToString(sum[:])[:11]
	id = strings.ReplaceAll(id, "a", "A")
	id = strings.ReplaceAll(id, "e", "E")
	return id
}

// formatTitle turns a search query back into a display title.
func formatTitle(query string) string {
	lowered := strings.ToLower(query)
	for _, suffix := range []string{" official audio", " official video", " music video", " lyrics"} {
		lowered = strings.ReplaceAll(lowered, suffix, "")
	}
	words := strings.Fields(lowered)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
