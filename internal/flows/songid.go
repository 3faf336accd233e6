package flows

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Song identification graph steps.
const (
	songExtract engine.StepID = "extract"
	songSearch  engine.StepID = "search"
	songLookup  engine.StepID = "lookup"
	songListen  engine.StepID = "listen"
	songVideo   engine.StepID = "video"
	songOffer   engine.StepID = "offer"
	songBuy     engine.StepID = "buy"
	songPay     engine.StepID = "pay"
	songPayment engine.StepID = "payment"
	songRequest engine.StepID = "request"
	songFinish  engine.StepID = "finish"
)

var (
	quotedPattern  = regexp.MustCompile(`["'](.+?)["']`)
	lyricsPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)(?:song|track|music)\s+(?:that\s+)?(?:goes|has|with)\s+(?:like\s+)?["']?(.+)`),
		regexp.MustCompile(`(?i)lyrics?\s+(?:that\s+)?(?:say|go|are)\s+["']?(.+)`),
		regexp.MustCompile(`(?i)looking\s+for\s+(?:a\s+)?song\s+(?:with\s+)?["']?(.+)`),
	}
	queryPrefixes = []string{"what song", "which song", "find the song", "what's the song"}
)

// ExtractLyricsQuery pulls the lyrics snippet out of a user message: quoted
// text first, then "song that goes ..." style patterns, then the message
// itself with question prefixes stripped.
func ExtractLyricsQuery(message string) string {
	if m := quotedPattern.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	for _, p := range lyricsPatterns {
		if m := p.FindStringSubmatch(message); m != nil {
			return strings.Trim(strings.TrimSpace(m[1]), `"'`)
		}
	}
	cleaned := message
	for _, prefix := range queryPrefixes {
		if strings.HasPrefix(strings.ToLower(cleaned), prefix) {
			cleaned = strings.TrimSpace(cleaned[len(prefix):])
		}
	}
	return cleaned
}

// songIDGraph identifies a song from a lyrics snippet, offers a listen, and
// then either sells the track, short-circuits when it is already owned, or
// records interest in adding it to the catalogue.
func (s *Set) songIDGraph() *engine.Graph {
	g := &engine.Graph{
		Name:  "songid",
		Entry: songExtract,
		Steps: map[engine.StepID]engine.StepFunc{
			songExtract: s.songIDExtract,
			songSearch:  s.songIDSearch,
			songLookup:  s.songIDLookup,
			songListen:  s.songIDListen,
			songVideo:   s.songIDVideo,
			songOffer:   s.songIDOffer,
			songBuy:     s.songIDBuy,
			songPay:     s.songIDPay,
			songRequest: s.songIDRequest,
			songFinish:  s.songIDFinish,
		},
	}
	g.Steps[songPayment] = s.exec.Subgraph(s.payment, songFinish)
	return g
}

func (s *Set) songIDExtract(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := domain.DefaultSongID()
	sl.Status = domain.StatusSearching
	sl.Query = ExtractLyricsQuery(st.LastUserMsg)
	return engine.Next{Update: domain.Update{SongID: &sl}, To: songSearch}, nil
}

func (s *Set) songIDSearch(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.SongID
	matches, err := s.deps.Matcher.SearchByLyrics(ctx, sl.Query)
	if err != nil {
		return nil, &domain.ExternalServiceError{Service: "song matcher", Err: err}
	}
	if len(matches) == 0 {
		sl.Status = domain.StatusDone
		return engine.Done{Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem(
				"I couldn't find a song matching those lyrics. Try providing a longer or different snippet?",
			)},
		}}, nil
	}

	sl.Best = matches[0]
	return engine.Next{Update: domain.Update{SongID: &sl}, To: songLookup}, nil
}

func (s *Set) songIDLookup(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.SongID

	track, err := s.deps.Catalog.FindTrackByTitleArtist(ctx, sl.Best.Title, sl.Best.Artist)
	switch {
	case err == nil:
		sl.CatalogTrack = &track
		owned, err := s.deps.Catalog.AlreadyPurchased(ctx, st.UserID, track.ID)
		if err != nil {
			return nil, err
		}
		sl.AlreadyOwned = owned
	case domain.IsNotFound(err):
		sl.CatalogTrack = nil
	default:
		return nil, err
	}

	sl.Status = domain.StatusAwaitListenConfirm
	return engine.Next{
		Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem(identifiedMessage(sl))},
		},
		To: songListen,
	}, nil
}

// identifiedMessage names the best match and its catalogue status. It doubles
// as the listen prompt's context so the finding survives a suspension.
func identifiedMessage(sl domain.SongIDSlice) string {
	switch {
	case sl.CatalogTrack != nil && sl.AlreadyOwned:
		return fmt.Sprintf("I think you're thinking of %q by %s! Good news - you already own this track!",
			sl.Best.Title, sl.Best.Artist)
	case sl.CatalogTrack != nil:
		return fmt.Sprintf("I think you're thinking of %q by %s! Great news - it's in our catalogue for $%.2f.",
			sl.Best.Title, sl.Best.Artist, sl.CatalogTrack.UnitPrice)
	default:
		return fmt.Sprintf("I think you're thinking of %q by %s. Unfortunately, it's not currently in our catalogue.",
			sl.Best.Title, sl.Best.Artist)
	}
}

func (s *Set) songIDListen(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	prompt := domain.Confirm("Song Identified", "Would you like to have a listen?").
		WithContext(identifiedMessage(st.SongID))
	if resume == nil {
		return engine.Suspend{Prompt: prompt, ResumeTo: songListen}, nil
	}
	switch *resume {
	case domain.ChoiceYes:
		return engine.Next{To: songVideo}, nil
	case domain.ChoiceNo:
		sl := st.SongID
		sl.Status = domain.StatusDone
		return engine.Done{Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem("No problem! Let me know if you'd like help with anything else.")},
		}}, nil
	default:
		return engine.Suspend{Prompt: prompt, ResumeTo: songListen}, nil
	}
}

func (s *Set) songIDVideo(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.SongID
	query := fmt.Sprintf("%s %s official audio", sl.Best.Title, sl.Best.Artist)
	video, err := s.deps.Video.Search(ctx, query)
	if err != nil {
		return nil, &domain.ExternalServiceError{Service: "video finder", Err: err}
	}

	sl.Status = domain.StatusPlaying
	sl.Video = video
	return engine.Next{Update: domain.Update{SongID: &sl}, To: songOffer}, nil
}

func (s *Set) songIDOffer(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.SongID
	embed := domain.EmbedItem(domain.Embed{
		Provider: "youtube",
		VideoID:  sl.Video.ID,
		URL:      sl.Video.URL,
		HTML:     s.deps.Video.EmbedHTML(sl.Video.ID, true),
	})

	if sl.AlreadyOwned {
		sl.Status = domain.StatusDone
		return engine.Done{Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{
				embed,
				domain.TextItem("Enjoy your music! Let me know if you need anything else."),
			},
		}}, nil
	}

	sl.Status = domain.StatusAwaitBuyOrRequest
	to := songRequest
	if sl.CatalogTrack != nil {
		to = songBuy
	}
	return engine.Next{
		Update: domain.Update{SongID: &sl, Outbox: []domain.OutboxItem{embed}},
		To:     to,
	}, nil
}

func (s *Set) songIDBuy(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	sl := st.SongID
	prompt := domain.Confirm("Purchase Track",
		fmt.Sprintf("Would you like to purchase this track for $%.2f?", sl.CatalogTrack.UnitPrice)).
		WithContext("Now playing: " + sl.Video.URL)
	if resume == nil {
		return engine.Suspend{Prompt: prompt, ResumeTo: songBuy}, nil
	}
	switch *resume {
	case domain.ChoiceYes:
		return engine.Next{To: songPay}, nil
	case domain.ChoiceNo:
		sl.Status = domain.StatusDone
		return engine.Done{Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem("No worries! Enjoy the preview. Let me know if you need anything else.")},
		}}, nil
	default:
		return engine.Suspend{Prompt: prompt, ResumeTo: songBuy}, nil
	}
}

// songIDPay stages the payment slice for the catalogue track and hands off
// to the payment sub-graph.
func (s *Set) songIDPay(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	track := st.SongID.CatalogTrack
	if track == nil {
		sl := st.SongID
		sl.Status = domain.StatusFailed
		return engine.Done{Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem("Sorry, there was an error finding the track. Please try again.")},
		}}, nil
	}

	pay := domain.DefaultPayment()
	pay.Items = []domain.LineItem{{
		TrackID:   track.ID,
		Name:      track.Name,
		Qty:       1,
		UnitPrice: track.UnitPrice,
	}}
	pay.Total = track.UnitPrice
	return engine.Next{
		Update: domain.Update{Payment: &pay, LastTrackIDs: []int{track.ID}},
		To:     songPayment,
	}, nil
}

func (s *Set) songIDRequest(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	sl := st.SongID
	prompt := domain.Confirm("Request Song", "Is this the sort of song you'd like to see added to our catalogue?").
		WithContext("Now playing: " + sl.Video.URL)
	if resume == nil {
		return engine.Suspend{Prompt: prompt, ResumeTo: songRequest}, nil
	}

	sl.Status = domain.StatusDone
	switch *resume {
	case domain.ChoiceYes:
		return engine.Done{Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem(
				"Great! I've noted your interest. We'll consider adding this song to our catalogue. Is there anything else I can help with?",
			)},
		}}, nil
	case domain.ChoiceNo:
		return engine.Done{Update: domain.Update{
			SongID: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem("No worries! Enjoy the preview. Let me know if you need anything else.")},
		}}, nil
	default:
		return engine.Suspend{Prompt: prompt, ResumeTo: songRequest}, nil
	}
}

func (s *Set) songIDFinish(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.SongID
	sl.Status = domain.StatusDone
	return engine.Done{Update: domain.Update{SongID: &sl}}, nil
}
