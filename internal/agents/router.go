// Package agents contains the conversational collaborators: the intent
// classifier that picks a route per turn and the catalogue assistant that
// drives the tool set. Both are deliberately simple keyword-driven
// implementations behind the ports interfaces, so a model-backed classifier
// can replace them without touching the engine.
package agents

import (
	"context"
	"strings"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// KeywordRouter implements ports.IntentClassifier with a keyword table.
// Whenever signals are ambiguous it answers RouteNormal.
type KeywordRouter struct{}

// NewKeywordRouter creates a KeywordRouter.
func NewKeywordRouter() *KeywordRouter {
	return &KeywordRouter{}
}

var greetings = map[string]bool{
	"hi": true, "hello": true, "hey": true,
	"hi there": true, "hello there": true, "hey there": true,
	"thanks": true, "thank you": true, "ok": true, "yes": true, "no": true,
}

var purchaseKeywords = []string{
	"buy", "purchase", "checkout", "pay for",
}

var emailKeywords = []string{
	"update my email", "change my email", "modify my email",
	"new email", "update email", "change email", "email address",
}

var lyricsKeywords = []string{
	"what song", "which song", "song that goes", "song with the lyrics",
	"lyrics", "identify this song", "name of the song", "song goes like",
}

// Classify routes the current turn based on the latest user message.
func (KeywordRouter) Classify(ctx context.Context, history []domain.Message) (ports.Classification, error) {
	msg := strings.ToLower(strings.TrimSpace(lastUserMessage(history)))

	// Greetings and closing-question answers are never a flow trigger.
	if greetings[msg] {
		return ports.Classification{Route: domain.RouteNormal, Rationale: "greeting"}, nil
	}

	for _, kw := range emailKeywords {
		if strings.Contains(msg, kw) {
			return ports.Classification{Route: domain.RouteUpdateEmail, Rationale: "email keyword: " + kw}, nil
		}
	}

	// Purchase wins over lyrics: "buy the song that goes..." is a purchase.
	for _, kw := range purchaseKeywords {
		if strings.Contains(msg, kw) {
			return ports.Classification{Route: domain.RoutePurchase, Rationale: "purchase keyword: " + kw}, nil
		}
	}

	for _, kw := range lyricsKeywords {
		if strings.Contains(msg, kw) {
			return ports.Classification{Route: domain.RouteSongIdentify, Rationale: "lyrics keyword: " + kw}, nil
		}
	}

	return ports.Classification{Route: domain.RouteNormal, Rationale: "default"}, nil
}

func lastUserMessage(history []domain.Message) string {
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role == domain.RoleUser {
			return history[i].Content
		}
	}
	return ""
}
