package flows

import (
	"context"
	"strings"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Turn graph steps.
const (
	turnRoute        engine.StepID = "route"
	turnVerification engine.StepID = "verification"
	turnSongID       engine.StepID = "songid"
	turnPurchase     engine.StepID = "purchase"
	turnConversation engine.StepID = "conversation"
	turnFinish       engine.StepID = "finish"
)

// explicitUpdateKeywords keep the email flow reachable right after it
// finished: without one of these, an updateEmail classification on the very
// next turn is demoted to normal conversation.
var explicitUpdateKeywords = []string{"update", "change", "modify", "new email"}

// turnGraph is the top-level graph: classify the turn, damp accidental flow
// re-entry, reset finished flow slices, then dispatch to the matching
// sub-graph.
func (s *Set) turnGraph() *engine.Graph {
	g := &engine.Graph{
		Name:  "turn",
		Entry: turnRoute,
		Steps: map[engine.StepID]engine.StepFunc{
			turnRoute:  s.routeTurn,
			turnFinish: s.finishTurn,
		},
	}
	g.Steps[turnVerification] = s.exec.Subgraph(s.verification, turnFinish)
	g.Steps[turnSongID] = s.exec.Subgraph(s.songID, turnFinish)
	g.Steps[turnPurchase] = s.exec.Subgraph(s.purchase, turnFinish)
	g.Steps[turnConversation] = s.exec.Subgraph(s.conversation, turnFinish)
	return g
}

func (s *Set) routeTurn(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	route := domain.RouteNormal
	cls, err := s.deps.Classifier.Classify(ctx, st.History)
	if err != nil {
		// The classifier is never retried; an undecidable turn is a normal one.
		s.deps.Logger.Warn("intent classification failed", "err", err)
	} else {
		route = cls.Route
		s.deps.Logger.Debug("routed turn", "route", route, "rationale", cls.Rationale)
	}

	// Damping: a verification flow that just finished must not restart off a
	// stray email mention.
	if route == domain.RouteUpdateEmail && st.Verification.Status.Terminal() {
		msg := strings.ToLower(st.LastUserMsg)
		explicit := false
		for _, kw := range explicitUpdateKeywords {
			if strings.Contains(msg, kw) {
				explicit = true
				break
			}
		}
		if !explicit {
			route = domain.RouteNormal
		}
	}

	st.ResetFinishedFlows()

	to := turnConversation
	switch route {
	case domain.RouteUpdateEmail:
		to = turnVerification
	case domain.RouteSongIdentify:
		to = turnSongID
	case domain.RoutePurchase:
		to = turnPurchase
	}
	return engine.Next{Update: domain.Update{Route: domain.RouteOf(route)}, To: to}, nil
}

func (s *Set) finishTurn(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	return engine.Done{}, nil
}
