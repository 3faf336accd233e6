package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/internal/resolve"
	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Purchase graph steps.
const (
	purInit     engine.StepID = "init"
	purResolve  engine.StepID = "resolve"
	purAsk      engine.StepID = "ask"
	purFreeText engine.StepID = "freetext"
	purChoose   engine.StepID = "choose"
	purPrepare  engine.StepID = "prepare"
	purPayment  engine.StepID = "payment"
	purFinish   engine.StepID = "finish"
)

const chooseLimit = 10

// purchaseGraph resolves which track the user wants to buy and hands off to
// the payment sub-graph. Resolution order: explicit id in the message, then
// the cross-turn track context (an id match beats a positional reading),
// then asking the user, then free-text id-or-title search. The ownership
// check gates every path so an owned track never reaches payment.
func (s *Set) purchaseGraph() *engine.Graph {
	g := &engine.Graph{
		Name:  "purchase",
		Entry: purInit,
		Steps: map[engine.StepID]engine.StepFunc{
			purInit:     s.purchaseInit,
			purResolve:  s.purchaseResolve,
			purAsk:      s.purchaseAsk,
			purFreeText: s.purchaseFreeText,
			purChoose:   s.purchaseChoose,
			purPrepare:  s.purchasePrepare,
			purFinish:   s.purchaseFinish,
		},
	}
	g.Steps[purPayment] = s.exec.Subgraph(s.payment, purFinish)
	return g
}

func (s *Set) purchaseInit(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := domain.DefaultPurchase()
	sl.Status = domain.StatusResolving
	sl.Query = st.LastUserMsg
	sl.ParsedTrackID = resolve.ParseTrackID(st.LastUserMsg)
	sl.NumericRef = resolve.FirstInt(st.LastUserMsg)
	return engine.Next{Update: domain.Update{Purchase: &sl}, To: purResolve}, nil
}

func (s *Set) purchaseResolve(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.Purchase

	if sl.ParsedTrackID > 0 {
		track, err := s.deps.Tracks.ByID(ctx, sl.ParsedTrackID)
		if domain.IsNotFound(err) {
			sl.Status = domain.StatusDone
			return engine.Done{Update: domain.Update{
				Purchase: &sl,
				Outbox: []domain.OutboxItem{domain.TextItem(fmt.Sprintf(
					"I couldn't find a track with Track ID %d. Please share a valid Track ID or a song title to search.",
					sl.ParsedTrackID,
				))},
			}}, nil
		}
		if err != nil {
			return nil, err
		}
		return s.selectTrack(ctx, st, sl, track)
	}

	ids := st.LastTrackIDs
	if len(ids) == 0 && st.SongID.CatalogTrack != nil {
		ids = []int{st.SongID.CatalogTrack.ID}
	}

	if len(ids) == 1 {
		track, err := s.deps.Tracks.ByID(ctx, ids[0])
		if err == nil {
			return s.selectTrack(ctx, st, sl, track)
		}
		if !domain.IsNotFound(err) {
			return nil, err
		}
		// Stale context id: fall through and ask.
	}

	if len(ids) > 1 {
		if sl.NumericRef > 0 {
			if chosen := resolve.FromContext(ids, sl.NumericRef); chosen > 0 {
				track, err := s.deps.Tracks.ByID(ctx, chosen)
				if err != nil {
					return nil, err
				}
				return s.selectTrack(ctx, st, sl, track)
			}
		}
		sl.CandidateTrackID = append([]int(nil), ids...)
		return engine.Next{Update: domain.Update{Purchase: &sl}, To: purChoose}, nil
	}

	return engine.Next{To: purAsk}, nil
}

func (s *Set) purchaseAsk(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	if resume == nil {
		prompt := domain.Input("Purchase Track",
			"Which track would you like to buy? Share a Track ID (e.g. 2269) or a song title.", "")
		return engine.Suspend{Prompt: prompt, ResumeTo: purAsk}, nil
	}

	answer := strings.TrimSpace(*resume)
	sl := st.Purchase
	if answer == "" {
		sl.Status = domain.StatusCancelled
		return engine.Done{Update: domain.Update{
			Purchase: &sl,
			Outbox:   []domain.OutboxItem{domain.TextItem("No problem! Purchase cancelled.")},
		}}, nil
	}

	sl.Query = answer
	sl.ParsedTrackID = resolve.ParseTrackID(answer)
	sl.NumericRef = resolve.FirstInt(answer)
	return engine.Next{Update: domain.Update{Purchase: &sl}, To: purFreeText}, nil
}

func (s *Set) purchaseFreeText(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.Purchase
	trackID := sl.ParsedTrackID

	// Grounding a bare number: context first, otherwise read it as an id.
	if trackID == 0 {
		if bare := resolve.BareInt(sl.Query); bare > 0 {
			trackID = bare
			if chosen := resolve.FromContext(st.LastTrackIDs, bare); chosen > 0 {
				trackID = chosen
			}
		}
	}

	if trackID > 0 {
		track, err := s.deps.Tracks.ByID(ctx, trackID)
		if domain.IsNotFound(err) {
			sl.Status = domain.StatusDone
			return engine.Done{Update: domain.Update{
				Purchase: &sl,
				Outbox: []domain.OutboxItem{domain.TextItem(fmt.Sprintf(
					"I couldn't find Track ID %d. Try another ID or a title.", trackID,
				))},
			}}, nil
		}
		if err != nil {
			return nil, err
		}
		return s.selectTrack(ctx, st, sl, track)
	}

	results, err := s.deps.Tracks.ByTitle(ctx, sl.Query)
	if err != nil {
		return nil, err
	}
	switch len(results) {
	case 0:
		sl.Status = domain.StatusDone
		return engine.Done{Update: domain.Update{
			Purchase: &sl,
			Outbox: []domain.OutboxItem{domain.TextItem(fmt.Sprintf(
				"I couldn't find any tracks matching %q. Try a different title or a Track ID.", sl.Query,
			))},
		}}, nil
	case 1:
		return s.selectTrack(ctx, st, sl, results[0])
	default:
		ids := make([]int, 0, len(results))
		for _, t := range results {
			ids = append(ids, t.ID)
		}
		sl.CandidateTrackID = ids
		return engine.Next{Update: domain.Update{Purchase: &sl}, To: purChoose}, nil
	}
}

func (s *Set) purchaseChoose(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	sl := st.Purchase

	if resume == nil {
		choices, err := s.candidateChoices(ctx, st.UserID, sl.CandidateTrackID)
		if err != nil {
			return nil, err
		}
		if len(choices) == 0 {
			sl.Status = domain.StatusFailed
			return engine.Done{Update: domain.Update{
				Purchase: &sl,
				Outbox:   []domain.OutboxItem{domain.TextItem("Sorry, I lost track of the options. Try again.")},
			}}, nil
		}
		prompt := domain.Choose("Choose a Track", "Which one would you like to purchase?", choices)
		return engine.Suspend{Prompt: prompt, ResumeTo: purChoose}, nil
	}

	answer := strings.TrimSpace(*resume)
	if answer == "" {
		sl.Status = domain.StatusCancelled
		return engine.Done{Update: domain.Update{
			Purchase: &sl,
			Outbox:   []domain.OutboxItem{domain.TextItem("No problem! Purchase cancelled.")},
		}}, nil
	}

	chosen := resolve.ParseTrackID(answer)
	if chosen == 0 {
		chosen = resolve.FromContext(sl.CandidateTrackID, resolve.BareInt(answer))
	}
	if chosen == 0 {
		verr := &domain.ValidationError{Field: "selection", Value: answer}
		s.deps.Logger.Debug("rejected track selection", "err", verr)
		choices, err := s.candidateChoices(ctx, st.UserID, sl.CandidateTrackID)
		if err != nil {
			return nil, err
		}
		prompt := domain.Choose("Choose a Track", "Which one would you like to purchase?", choices).
			WithContext("Sorry, I couldn't understand that selection.")
		return engine.Suspend{Prompt: prompt, ResumeTo: purChoose}, nil
	}

	track, err := s.deps.Tracks.ByID(ctx, chosen)
	if domain.IsNotFound(err) {
		sl.Status = domain.StatusDone
		return engine.Done{Update: domain.Update{
			Purchase: &sl,
			Outbox:   []domain.OutboxItem{domain.TextItem("Sorry, that track is no longer available.")},
		}}, nil
	}
	if err != nil {
		return nil, err
	}
	return s.selectTrack(ctx, st, sl, track)
}

// candidateChoices renders the selection labels, flagging tracks the user
// already owns.
func (s *Set) candidateChoices(ctx context.Context, userID int, candidates []int) ([]string, error) {
	if len(candidates) > chooseLimit {
		candidates = candidates[:chooseLimit]
	}
	var choices []string
	for _, id := range candidates {
		track, err := s.deps.Tracks.ByID(ctx, id)
		if domain.IsNotFound(err) {
			continue
		}
		if err != nil {
			return nil, err
		}
		owned, err := s.deps.Tracks.Owned(ctx, userID, track.ID)
		if err != nil {
			return nil, err
		}
		label := fmt.Sprintf("%s - %s ($%.2f) [Track ID: %d]", track.Name, track.Artist, track.UnitPrice, track.ID)
		if owned {
			label += " (already owned)"
		}
		choices = append(choices, label)
	}
	return choices, nil
}

// selectTrack is the ownership gate every resolution path funnels through:
// an owned track ends the flow with a notice, anything else moves on to
// payment preparation. Either way the track becomes the cross-turn context.
func (s *Set) selectTrack(ctx context.Context, st *domain.State, sl domain.PurchaseSlice, track domain.Track) (engine.StepResult, error) {
	owned, err := s.deps.Tracks.Owned(ctx, st.UserID, track.ID)
	if err != nil {
		return nil, err
	}

	sl.SelectedTrackID = track.ID
	if owned {
		sl.Status = domain.StatusDone
		return engine.Done{Update: domain.Update{
			Purchase:     &sl,
			LastTrackIDs: []int{track.ID},
			Outbox: []domain.OutboxItem{domain.TextItem(
				fmt.Sprintf("You already own %q by %s.", track.Name, track.Artist),
			)},
		}}, nil
	}

	return engine.Next{
		Update: domain.Update{Purchase: &sl, LastTrackIDs: []int{track.ID}},
		To:     purPrepare,
	}, nil
}

// purchasePrepare stages the payment slice for the selected track.
func (s *Set) purchasePrepare(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.Purchase
	if sl.SelectedTrackID == 0 {
		sl.Status = domain.StatusFailed
		return engine.Done{Update: domain.Update{
			Purchase: &sl,
			Outbox:   []domain.OutboxItem{domain.TextItem("Sorry, I couldn't determine which track to buy.")},
		}}, nil
	}

	track, err := s.deps.Tracks.ByID(ctx, sl.SelectedTrackID)
	if domain.IsNotFound(err) {
		sl.Status = domain.StatusFailed
		return engine.Done{Update: domain.Update{
			Purchase: &sl,
			Outbox:   []domain.OutboxItem{domain.TextItem("Sorry, that track wasn't found.")},
		}}, nil
	}
	if err != nil {
		return nil, err
	}

	pay := domain.DefaultPayment()
	pay.Items = []domain.LineItem{{
		TrackID:   track.ID,
		Name:      fmt.Sprintf("%s - %s", track.Name, track.Artist),
		Qty:       1,
		UnitPrice: track.UnitPrice,
	}}
	pay.Total = track.UnitPrice
	return engine.Next{Update: domain.Update{Payment: &pay}, To: purPayment}, nil
}

func (s *Set) purchaseFinish(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	sl := st.Purchase
	if !sl.Status.Terminal() {
		sl.Status = domain.StatusDone
	}
	return engine.Done{Update: domain.Update{Purchase: &sl}}, nil
}
