// Package controller drives complete turn invocations: it owns the
// lock-load-run-checkpoint cycle around the workflow executor and is the
// single entry point shared by the HTTP adapter, the chat CLI and the
// library facade.
package controller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/internal/flows"
	"github.com/harmonyshop/cadenza/internal/logging"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/observability"
	"github.com/harmonyshop/cadenza/pkg/session"
)

// DefaultUserID is the demo account used when no user id is configured.
const DefaultUserID = 1

// Controller executes turns against checkpointed thread state.
type Controller struct {
	sessions *session.Manager
	exec     *engine.Executor
	flows    *flows.Set
	userID   int
	metrics  *observability.Metrics
	logger   *slog.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithUserID sets the account new threads are bound to.
func WithUserID(id int) Option {
	return func(c *Controller) {
		c.userID = id
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics enables turn instrumentation.
func WithMetrics(m *observability.Metrics) Option {
	return func(c *Controller) {
		c.metrics = m
	}
}

// New creates a Controller over the given session manager and flow set.
func New(sessions *session.Manager, exec *engine.Executor, set *flows.Set, opts ...Option) *Controller {
	c := &Controller{
		sessions: sessions,
		exec:     exec,
		flows:    set,
		userID:   DefaultUserID,
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Submit runs one user message through the turn graph. If the thread is
// suspended on a prompt, the message is treated as the answer to that prompt
// instead of starting a new turn.
func (c *Controller) Submit(ctx context.Context, threadID, text string) (domain.TurnResult, error) {
	text, err := SanitizeInput(text)
	if err != nil {
		return domain.TurnResult{}, err
	}

	var result domain.TurnResult
	err = c.sessions.WithLock(ctx, threadID, func(ctx context.Context) error {
		state, err := c.loadOrStart(ctx, threadID)
		if err != nil {
			return err
		}

		if state.Pending != nil {
			result, err = c.resumeLocked(ctx, state, text)
			return err
		}

		// A fresh turn starts with an empty outbox; any receipt from a
		// previous resume is stale once the conversation moves on.
		state.Outbox = nil
		state.LastReceipt = nil
		state.Apply(domain.Update{
			History:     []domain.Message{{Role: domain.RoleUser, Content: text}},
			LastUserMsg: domain.MsgOf(text),
		})

		result, err = c.runLocked(ctx, state, nil)
		return err
	})
	return result, err
}

// Resume answers the thread's pending prompt. Replaying the value recorded in
// the last receipt returns the identical result without re-running any step,
// so a client that crashed before reading the response can safely retry.
// The replay guard only covers a resume whose first run ended the turn: if
// the first run produced a further suspension, a retried value is consumed
// as the answer to that new prompt.
func (c *Controller) Resume(ctx context.Context, threadID, value string) (domain.TurnResult, error) {
	value, err := SanitizeInput(value)
	if err != nil {
		return domain.TurnResult{}, err
	}

	var result domain.TurnResult
	err = c.sessions.WithLock(ctx, threadID, func(ctx context.Context) error {
		state, err := c.load(ctx, threadID)
		if err != nil {
			return err
		}

		if state.Pending == nil {
			if r := state.LastReceipt; r != nil && r.Value == value {
				result = domain.TurnResult{Outbox: r.Outbox, Prompt: r.Prompt}
				return nil
			}
			return domain.ErrNoPendingPrompt
		}

		result, err = c.resumeLocked(ctx, state, value)
		return err
	})
	return result, err
}

// Get returns the latest checkpointed state of a thread.
func (c *Controller) Get(ctx context.Context, threadID string) (*domain.State, error) {
	return c.sessions.Load(ctx, threadID)
}

// Reset deletes a thread's checkpoint log.
func (c *Controller) Reset(ctx context.Context, threadID string) error {
	return c.sessions.Delete(ctx, threadID)
}

// Threads lists known thread ids.
func (c *Controller) Threads(ctx context.Context) ([]string, error) {
	return c.sessions.List(ctx)
}

// load and loadOrStart use the store directly: the caller already holds the
// thread lock and Manager methods would try to take it again.
func (c *Controller) load(ctx context.Context, threadID string) (*domain.State, error) {
	cp, err := c.sessions.Store().Load(ctx, threadID)
	if err != nil {
		return nil, err
	}
	return cp.State, nil
}

func (c *Controller) loadOrStart(ctx context.Context, threadID string) (*domain.State, error) {
	state, err := c.load(ctx, threadID)
	if errors.Is(err, domain.ErrThreadNotFound) {
		return domain.NewState(threadID, c.userID), nil
	}
	return state, err
}

func (c *Controller) resumeLocked(ctx context.Context, state *domain.State, value string) (domain.TurnResult, error) {
	state.Outbox = nil
	return c.runLocked(ctx, state, &value)
}

func (c *Controller) runLocked(ctx context.Context, state *domain.State, resume *string) (domain.TurnResult, error) {
	start := time.Now()
	prompt, err := c.exec.Run(ctx, c.flows.Turn(), state, resume)
	if err != nil {
		c.logger.Error("turn failed", "thread_id", state.ThreadID, "error", err)
		return domain.TurnResult{}, err
	}
	c.metrics.ObserveTurn(state.Route, prompt, time.Since(start))

	outbox := append([]domain.OutboxItem(nil), state.Outbox...)

	// The receipt goes into the same checkpoint as the turn's effects, so a
	// crash between checkpoint write and response delivery is recoverable by
	// replaying the resume value.
	if resume != nil {
		state.LastReceipt = &domain.TurnReceipt{
			Value:  *resume,
			Outbox: outbox,
			Prompt: prompt,
		}
	}

	if _, err := c.sessions.Store().Append(ctx, state.ThreadID, state); err != nil {
		return domain.TurnResult{}, fmt.Errorf("append checkpoint: %w", err)
	}

	c.logger.Debug("turn complete",
		"thread_id", state.ThreadID,
		"route", state.Route,
		"suspended", prompt != nil,
		"outbox_items", len(outbox))

	return domain.TurnResult{Outbox: outbox, Prompt: prompt}, nil
}
