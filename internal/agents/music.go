package agents

import (
	"context"
	"regexp"
	"strings"

	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// MusicAssistant implements ports.ChatAgent: a rule-based catalogue
// assistant that answers from tool results only, never from made-up data.
// It issues at most one tool call per round and finalizes once results are
// in the history.
type MusicAssistant struct{}

// NewMusicAssistant creates a MusicAssistant.
func NewMusicAssistant() *MusicAssistant {
	return &MusicAssistant{}
}

var (
	albumsByRe = regexp.MustCompile(`(?i)\balbums?\b.*\b(?:by|from)\s+(.+)`)
	tracksByRe = regexp.MustCompile(`(?i)\b(?:songs?|tracks?)\b.*\b(?:by|from)\s+(.+)`)
	videoRe    = regexp.MustCompile(`(?i)\b(?:video|watch|play)\s+(?:the\s+)?(?:video\s+)?(?:for\s+|of\s+)?(.+)`)
	haveRe     = regexp.MustCompile(`(?i)\b(?:do you have|looking for|find)\s+(?:the\s+song\s+)?(.+)`)
	genreOfRe  = regexp.MustCompile(`(?i)\b(?:artists|albums|songs|tracks)\s+in\s+(.+)`)
)

var accountKeywords = []string{
	"my email", "my phone", "my account", "my contact", "on file",
}

// Respond produces the next round: a tool call grounded in the user's
// question, or final text once tool results are available. A nil tool set
// forces a tool-free answer.
func (MusicAssistant) Respond(ctx context.Context, history []domain.Message, tools []domain.Tool) (ports.AgentReply, error) {
	// Tool results are in: summarize them as the final answer.
	if results := trailingToolResults(history); len(results) > 0 {
		return ports.AgentReply{Text: strings.Join(results, "\n")}, nil
	}

	msg := strings.TrimSpace(lastUserMessage(history))
	lowered := strings.ToLower(msg)

	if greetings[lowered] {
		return ports.AgentReply{Text: "Hello! I can help you browse our catalogue: genres, artists, albums and tracks. What are you looking for?"}, nil
	}

	if tools != nil {
		if call, ok := pickToolCall(lowered, msg, tools); ok {
			return ports.AgentReply{ToolCalls: []domain.ToolCall{call}}, nil
		}
	}

	return ports.AgentReply{Text: "I can look up genres, artists, albums and tracks in our catalogue, play videos, or help with your account. What would you like?"}, nil
}

// pickToolCall maps the message to one tool call from the offered set.
func pickToolCall(lowered, original string, tools []domain.Tool) (domain.ToolCall, bool) {
	offered := make(map[string]bool, len(tools))
	for _, t := range tools {
		offered[t.Name] = true
	}
	call := func(name string, args map[string]any) (domain.ToolCall, bool) {
		if !offered[name] {
			return domain.ToolCall{}, false
		}
		return domain.ToolCall{ID: "call_" + name, Name: name, Args: args}, true
	}

	for _, kw := range accountKeywords {
		if strings.Contains(lowered, kw) {
			return call("get_customer_contact", nil)
		}
	}

	if strings.Contains(lowered, "genre") {
		if m := genreOfRe.FindStringSubmatch(original); m != nil {
			subject := strings.ToLower(strings.Fields(lowered)[0])
			genre := cleanArg(m[1])
			switch {
			case strings.HasPrefix(subject, "artist"):
				return call("get_artists_in_genre", map[string]any{"genre": genre})
			case strings.HasPrefix(subject, "album"):
				return call("get_albums_in_genre", map[string]any{"genre": genre})
			default:
				return call("get_songs_in_genre", map[string]any{"genre": genre})
			}
		}
		return call("get_genres", nil)
	}

	if m := albumsByRe.FindStringSubmatch(original); m != nil {
		return call("search_albums_by_artist", map[string]any{"artist": cleanArg(m[1])})
	}
	if m := tracksByRe.FindStringSubmatch(original); m != nil {
		return call("search_tracks_by_artist", map[string]any{"artist": cleanArg(m[1])})
	}
	if m := videoRe.FindStringSubmatch(original); m != nil {
		return call("search_song_video", map[string]any{"query": cleanArg(m[1]) + " official audio"})
	}
	if m := haveRe.FindStringSubmatch(original); m != nil {
		return call("search_songs_by_title", map[string]any{"title": cleanArg(m[1])})
	}

	return domain.ToolCall{}, false
}

// trailingToolResults collects tool messages after the last user message.
func trailingToolResults(history []domain.Message) []string {
	var results []string
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Role != domain.RoleTool {
			break
		}
		results = append([]string{history[i].Content}, results...)
	}
	return results
}

// cleanArg strips punctuation and filler from an extracted argument.
func cleanArg(s string) string {
	s = strings.TrimSpace(s)
	s = strings.Trim(s, `?!."'`)
	for _, cut := range []string{" in the catalogue", " in your catalogue", " do you have"} {
		s = strings.TrimSuffix(s, cut)
	}
	return strings.TrimSpace(s)
}
