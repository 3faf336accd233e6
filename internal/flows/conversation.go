package flows

import (
	"context"
	"fmt"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/pkg/domain"
)

const convRespond engine.StepID = "respond"

// conversationGraph handles a normal turn: the chat agent answers directly
// or requests tool calls, which run against the registry with their results
// fed back. The loop never suspends; after engine.ToolRounds rounds the
// agent gets a final, tool-free round so the turn always produces text.
func (s *Set) conversationGraph() *engine.Graph {
	return &engine.Graph{
		Name:  "conversation",
		Entry: convRespond,
		Steps: map[engine.StepID]engine.StepFunc{
			convRespond: s.converse,
		},
	}
}

func (s *Set) converse(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	specs := s.deps.Tools.Specs()
	work := append([]domain.Message(nil), st.History...)

	var (
		added    []domain.Message
		trackIDs []int
	)

	for round := 0; round <= engine.ToolRounds; round++ {
		avail := specs
		if round == engine.ToolRounds {
			avail = nil
		}

		reply, err := s.deps.Agent.Respond(ctx, work, avail)
		if err != nil {
			text := fmt.Sprintf("I apologize, but I encountered an error: %v. Please try again.", err)
			added = append(added, domain.Message{Role: domain.RoleAssistant, Content: text})
			return engine.Done{Update: domain.Update{
				History: added,
				Outbox:  []domain.OutboxItem{domain.TextItem(text)},
			}}, nil
		}

		if len(reply.ToolCalls) == 0 {
			added = append(added, domain.Message{Role: domain.RoleAssistant, Content: reply.Text})
			u := domain.Update{
				History: added,
				Outbox:  []domain.OutboxItem{domain.TextItem(reply.Text)},
			}
			if len(trackIDs) > 0 {
				u.LastTrackIDs = trackIDs
			}
			return engine.Done{Update: u}, nil
		}

		for _, call := range reply.ToolCalls {
			out, err := s.deps.Tools.Execute(ctx, call)
			text := out.Text
			if err != nil {
				text = fmt.Sprintf("tool %s failed: %v", call.Name, err)
				s.deps.Logger.Warn("tool execution failed", "tool", call.Name, "err", err)
			}
			if len(out.TrackIDs) > 0 {
				trackIDs = append([]int(nil), out.TrackIDs...)
			}
			msg := domain.Message{Role: domain.RoleTool, Content: text}
			work = append(work, msg)
			added = append(added, msg)
		}
	}

	// Unreachable: the final round runs without tools, so the agent must
	// answer with text.
	return nil, fmt.Errorf("conversation loop exceeded %d tool rounds", engine.ToolRounds)
}
