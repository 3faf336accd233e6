package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
	"github.com/harmonyshop/cadenza/pkg/registry"
)

// browseLimit bounds catalogue listings surfaced in conversation.
const browseLimit = 20

type artistArgs struct {
	Artist string `mapstructure:"artist"`
}

type genreArgs struct {
	Genre string `mapstructure:"genre"`
}

type titleArgs struct {
	Title string `mapstructure:"title"`
}

type queryArgs struct {
	Query string `mapstructure:"query"`
}

// BindCatalogTools registers the closed tool set over the catalogue and
// video finder. Purchasing is not a tool: buying goes through the purchase
// and payment flows so confirmation and idempotency stay enforced.
func BindCatalogTools(reg *registry.Registry, cat ports.Catalog, video ports.VideoFinder, customerID int) {
	reg.Register(domain.Tool{
		Name:        "get_genres",
		Description: "List all genres available in the catalogue.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		genres, err := cat.Genres(ctx)
		if err != nil {
			return registry.Output{}, err
		}
		if len(genres) == 0 {
			return registry.Output{Text: "The catalogue has no genres yet."}, nil
		}
		return registry.Output{Text: "Available genres: " + strings.Join(genres, ", ")}, nil
	})

	reg.Register(domain.Tool{
		Name:        "get_artists_in_genre",
		Description: "Find artists with tracks in a genre.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a genreArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		artists, err := cat.ArtistsByGenre(ctx, a.Genre)
		if err != nil {
			return registry.Output{}, err
		}
		if len(artists) == 0 {
			return registry.Output{Text: fmt.Sprintf("No artists found in genre %q.", a.Genre)}, nil
		}
		return registry.Output{Text: fmt.Sprintf("Artists in %s: %s", a.Genre, strings.Join(artists, ", "))}, nil
	})

	reg.Register(domain.Tool{
		Name:        "get_albums_in_genre",
		Description: "Find albums with tracks in a genre.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a genreArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		albums, err := cat.AlbumsByGenre(ctx, a.Genre)
		if err != nil {
			return registry.Output{}, err
		}
		return registry.Output{Text: formatAlbums(albums, "in genre "+a.Genre)}, nil
	})

	reg.Register(domain.Tool{
		Name:        "get_songs_in_genre",
		Description: "Find tracks in a genre.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a genreArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		tracks, err := cat.TracksByGenre(ctx, a.Genre, browseLimit)
		if err != nil {
			return registry.Output{}, err
		}
		return trackOutput(tracks, "in genre "+a.Genre), nil
	})

	reg.Register(domain.Tool{
		Name:        "search_all_artists",
		Description: "Search artists by name.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a artistArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		artists, err := cat.SearchArtists(ctx, a.Artist)
		if err != nil {
			return registry.Output{}, err
		}
		if len(artists) == 0 {
			return registry.Output{Text: fmt.Sprintf("No artists matching %q.", a.Artist)}, nil
		}
		return registry.Output{Text: "Artists: " + strings.Join(artists, ", ")}, nil
	})

	reg.Register(domain.Tool{
		Name:        "search_all_albums",
		Description: "Search albums by title.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a titleArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		albums, err := cat.SearchAlbums(ctx, a.Title)
		if err != nil {
			return registry.Output{}, err
		}
		return registry.Output{Text: formatAlbums(albums, fmt.Sprintf("matching %q", a.Title))}, nil
	})

	reg.Register(domain.Tool{
		Name:        "search_albums_by_artist",
		Description: "Find albums by an artist.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a artistArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		albums, err := cat.AlbumsByArtist(ctx, a.Artist)
		if err != nil {
			return registry.Output{}, err
		}
		return registry.Output{Text: formatAlbums(albums, "by "+a.Artist)}, nil
	})

	reg.Register(domain.Tool{
		Name:        "search_tracks_by_artist",
		Description: "Find tracks by an artist, with track ids for purchase.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a artistArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		tracks, err := cat.TracksByArtist(ctx, a.Artist, browseLimit)
		if err != nil {
			return registry.Output{}, err
		}
		return trackOutput(tracks, "by "+a.Artist), nil
	})

	reg.Register(domain.Tool{
		Name:        "search_songs_by_title",
		Description: "Search tracks by title, with track ids for purchase.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a titleArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		tracks, err := cat.SearchTracksByTitle(ctx, a.Title, browseLimit)
		if err != nil {
			return registry.Output{}, err
		}
		return trackOutput(tracks, fmt.Sprintf("matching %q", a.Title)), nil
	})

	reg.Register(domain.Tool{
		Name:        "search_song_video",
		Description: "Find a playable video for a song.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		var a queryArgs
		if err := registry.Decode(args, &a); err != nil {
			return registry.Output{}, err
		}
		v, err := video.Search(ctx, a.Query)
		if err != nil {
			return registry.Output{}, err
		}
		return registry.Output{Text: fmt.Sprintf("Found %s: %s", v.Title, v.URL)}, nil
	})

	reg.Register(domain.Tool{
		Name:        "get_customer_contact",
		Description: "Look up the customer's email and phone on file.",
	}, func(ctx context.Context, args map[string]any) (registry.Output, error) {
		contact, err := cat.CustomerContact(ctx, customerID)
		if err != nil {
			return registry.Output{}, err
		}
		return registry.Output{
			Text: fmt.Sprintf("Email on file: %s. Phone on file: %s.", contact.Email, contact.Phone),
		}, nil
	})
}

func formatAlbums(albums []ports.Album, qualifier string) string {
	if len(albums) == 0 {
		return "No albums found " + qualifier + "."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Found %d album(s) %s:\n", len(albums), qualifier)
	for _, a := range albums {
		fmt.Fprintf(&b, "- %s by %s\n", a.Title, a.Artist)
	}
	return strings.TrimRight(b.String(), "\n")
}

func trackOutput(tracks []domain.Track, qualifier string) registry.Output {
	if len(tracks) == 0 {
		return registry.Output{Text: "No tracks found " + qualifier + "."}
	}
	var b strings.Builder
	ids := make([]int, 0, len(tracks))
	fmt.Fprintf(&b, "Found %d track(s) %s:\n", len(tracks), qualifier)
	for _, t := range tracks {
		fmt.Fprintf(&b, "- [id %d] %s by %s ($%.2f)\n", t.ID, t.Name, t.Artist, t.UnitPrice)
		ids = append(ids, t.ID)
	}
	return registry.Output{Text: strings.TrimRight(b.String(), "\n"), TrackIDs: ids}
}
