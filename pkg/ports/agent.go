package ports

import (
	"context"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Classification is the intent classifier's decision for a turn.
type Classification struct {
	Route     domain.Route
	Rationale string
}

// IntentClassifier turns the conversation history into a routing decision.
// It must have no side effects observable to the engine; the engine never
// retries it, and implementations default to RouteNormal whenever signals
// are ambiguous.
type IntentClassifier interface {
	Classify(ctx context.Context, history []domain.Message) (Classification, error)
}

// AgentReply is the chat agent's answer for one round: either final text or
// a set of tool calls to execute, never both.
type AgentReply struct {
	Text      string
	ToolCalls []domain.ToolCall
}

// ChatAgent produces a conversational reply, optionally requesting tool
// executions. The engine runs any returned tool calls against the bound
// implementations and feeds the results back until the agent answers with
// text or the iteration cap forces a tool-free round (tools == nil).
type ChatAgent interface {
	Respond(ctx context.Context, history []domain.Message, tools []domain.Tool) (AgentReply, error)
}
