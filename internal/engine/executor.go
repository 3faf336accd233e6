// Package engine runs directed graphs of steps over the aggregate state.
// Steps are pure functions of state that return a tagged result: an update
// plus the next step, a suspension awaiting outside input, or terminal.
// Sub-graphs are themselves steps; a suspension raised anywhere inside a
// nested graph bubbles up through a persisted frame stack, and a later
// resume re-enters exactly the step that suspended.
package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// StepID names a step within a graph.
type StepID string

// StepFunc executes one step. resume is non-nil only for the step a
// suspension recorded as its resume target; all other invocations receive
// nil. A step receiving an unrecognized resume value should re-issue the
// same kind of suspension rather than fail the flow.
type StepFunc func(ctx context.Context, st *domain.State, resume *string) (StepResult, error)

// StepResult is the tagged outcome of a step.
type StepResult interface{ stepResult() }

// Next applies an update and continues at To. Routing decisions are made by
// the step itself; the executor's only job is to follow the tag.
type Next struct {
	Update domain.Update
	To     StepID
}

// Suspend applies an update, freezes execution and asks the caller to show
// Prompt. The supplied resume value later re-enters at ResumeTo.
type Suspend struct {
	Update   domain.Update
	Prompt   domain.Prompt
	ResumeTo StepID
}

// Done applies an update and ends the current graph.
type Done struct {
	Update domain.Update
}

// bubbled signals that a sub-graph suspended; the child has already written
// its frames into state and the parent must prepend its own.
type bubbled struct{}

func (Next) stepResult()    {}
func (Suspend) stepResult() {}
func (Done) stepResult()    {}
func (bubbled) stepResult() {}

// Graph is a named set of steps with a single entry point.
type Graph struct {
	Name  string
	Entry StepID
	Steps map[StepID]StepFunc
}

// ToolRounds caps agent tool-calling loops. On reaching the cap the loop is
// forced into a final, tool-free round so the turn always terminates.
const ToolRounds = 5

const defaultMaxSteps = 100

// Executor drives graphs to a terminal step or the first suspension.
type Executor struct {
	maxSteps int
	logger   *slog.Logger
}

// Option configures the Executor.
type Option func(*Executor)

// WithLogger sets a structured logger for step tracing.
func WithLogger(logger *slog.Logger) Option {
	return func(x *Executor) {
		if logger != nil {
			x.logger = logger
		}
	}
}

// WithMaxSteps overrides the per-invocation step budget guarding against
// graph cycles.
func WithMaxSteps(n int) Option {
	return func(x *Executor) {
		if n > 0 {
			x.maxSteps = n
		}
	}
}

// New creates an Executor.
func New(opts ...Option) *Executor {
	x := &Executor{
		maxSteps: defaultMaxSteps,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Run executes g against st until a terminal step or a suspension. On
// suspension the returned prompt is non-nil and st.Pending records the frame
// path; executing again with a resume value continues exactly at the
// suspended step, never re-running anything before it.
func (x *Executor) Run(ctx context.Context, g *Graph, st *domain.State, resume *string) (*domain.Prompt, error) {
	cur := g.Entry

	if resume != nil {
		if st.Pending == nil || len(st.Pending.Frames) == 0 {
			return nil, domain.ErrNoPendingPrompt
		}
		frame := st.Pending.Frames[0]
		if frame.Graph != g.Name {
			return nil, fmt.Errorf("resume frame targets graph %q, executing %q", frame.Graph, g.Name)
		}
		st.Pending.Frames = st.Pending.Frames[1:]
		cur = StepID(frame.Step)
		if len(st.Pending.Frames) == 0 {
			// Innermost frame reached: the suspension is consumed and the
			// step at cur interprets the resume value.
			st.Pending = nil
		}
		// Otherwise cur is a sub-graph step; the wrapper passes resume down.
	}

	for i := 0; i < x.maxSteps; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		fn, ok := g.Steps[cur]
		if !ok {
			return nil, fmt.Errorf("graph %s: unknown step %q", g.Name, cur)
		}

		x.logger.Debug("step", "graph", g.Name, "step", cur)
		res, err := fn(ctx, st, resume)
		resume = nil
		if err != nil {
			return nil, fmt.Errorf("graph %s step %s: %w", g.Name, cur, err)
		}

		switch r := res.(type) {
		case Next:
			st.Apply(r.Update)
			cur = r.To

		case Suspend:
			st.Apply(r.Update)
			st.Pending = &domain.Pending{
				Frames: []domain.Frame{{Graph: g.Name, Step: string(r.ResumeTo)}},
				Prompt: r.Prompt,
			}
			prompt := r.Prompt
			x.logger.Debug("suspended", "graph", g.Name, "step", cur, "kind", prompt.Kind)
			return &prompt, nil

		case Done:
			st.Apply(r.Update)
			return nil, nil

		case bubbled:
			// A nested graph suspended under this step: record the path back.
			if st.Pending == nil {
				return nil, fmt.Errorf("graph %s step %s: sub-graph bubbled without pending state", g.Name, cur)
			}
			st.Pending.Frames = append(
				[]domain.Frame{{Graph: g.Name, Step: string(cur)}},
				st.Pending.Frames...,
			)
			prompt := st.Pending.Prompt
			return &prompt, nil

		default:
			return nil, fmt.Errorf("graph %s step %s: unknown result %T", g.Name, cur, res)
		}
	}

	return nil, fmt.Errorf("graph %s: step budget (%d) exhausted, likely a cycle", g.Name, x.maxSteps)
}

// Subgraph wraps child as a step of a parent graph. The child runs against
// the same aggregate state; its updates merge through the shared reducers as
// it executes, and on completion the parent continues at then. A suspension
// inside the child bubbles to the parent unchanged.
func (x *Executor) Subgraph(child *Graph, then StepID) StepFunc {
	return func(ctx context.Context, st *domain.State, resume *string) (StepResult, error) {
		prompt, err := x.Run(ctx, child, st, resume)
		if err != nil {
			return nil, err
		}
		if prompt != nil {
			return bubbled{}, nil
		}
		return Next{To: then}, nil
	}
}
