// Package registry holds the closed set of named operations the chat agent
// may invoke. The engine owns validation and execution; collaborators only
// select tools by name.
package registry

import (
	"context"
	"fmt"
	"sync"

	"github.com/mitchellh/mapstructure"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Output is what a tool hands back: user-facing text plus any track ids it
// surfaced (which feed the cross-turn context).
type Output struct {
	Text     string
	TrackIDs []int
}

// ToolFunc is a tool implementation. Args arrive as the raw map selected by
// the agent; use Decode to map them into a typed argument struct.
type ToolFunc func(ctx context.Context, args map[string]any) (Output, error)

type entry struct {
	spec domain.Tool
	fn   ToolFunc
}

// Registry manages the available tools.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]entry
	order []string
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{tools: make(map[string]entry)}
}

// Register adds a tool. Re-registering a name overwrites it.
func (r *Registry) Register(spec domain.Tool, fn ToolFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[spec.Name]; !exists {
		r.order = append(r.order, spec.Name)
	}
	r.tools[spec.Name] = entry{spec: spec, fn: fn}
}

// Specs returns the tool descriptions in registration order.
func (r *Registry) Specs() []domain.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	specs := make([]domain.Tool, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name].spec)
	}
	return specs
}

// Execute looks up a tool by name and runs it.
func (r *Registry) Execute(ctx context.Context, call domain.ToolCall) (Output, error) {
	r.mu.RLock()
	e, ok := r.tools[call.Name]
	r.mu.RUnlock()

	if !ok {
		return Output{}, fmt.Errorf("tool not found: %s", call.Name)
	}
	return e.fn(ctx, call.Args)
}

// Decode maps raw tool arguments into a typed argument struct using
// mapstructure tags. Unknown keys are ignored; type mismatches error.
func Decode(args map[string]any, target any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(args); err != nil {
		return fmt.Errorf("invalid tool arguments: %w", err)
	}
	return nil
}
