// Package flows defines the conversation graphs: the four flow state
// machines (verification, song identification, purchase, payment), the
// normal-conversation tool loop, and the top-level turn graph that routes
// between them. Graphs are plain data over engine.StepFunc; all
// collaborators arrive through Deps so nothing here holds global state.
package flows

import (
	"log/slog"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/internal/logging"
	"github.com/harmonyshop/cadenza/internal/resolve"
	"github.com/harmonyshop/cadenza/pkg/ports"
	"github.com/harmonyshop/cadenza/pkg/registry"
)

// Deps bundles every collaborator the flows touch.
type Deps struct {
	Catalog    ports.Catalog
	Verifier   ports.CodeVerifier
	Gateway    ports.PaymentGateway
	Matcher    ports.SongMatcher
	Video      ports.VideoFinder
	Classifier ports.IntentClassifier
	Agent      ports.ChatAgent
	Tools      *registry.Registry
	Tracks     *resolve.Resolver
	Logger     *slog.Logger
}

// Set holds the compiled graphs for one engine instance. Graphs reference
// each other (payment is a sub-graph of both purchase and song
// identification), so they are built once, together.
type Set struct {
	deps Deps
	exec *engine.Executor

	payment      *engine.Graph
	verification *engine.Graph
	songID       *engine.Graph
	purchase     *engine.Graph
	conversation *engine.Graph
	turn         *engine.Graph
}

// New compiles the graph set.
func New(exec *engine.Executor, deps Deps) *Set {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	s := &Set{deps: deps, exec: exec}
	s.payment = s.paymentGraph()
	s.verification = s.verificationGraph()
	s.songID = s.songIDGraph()
	s.purchase = s.purchaseGraph()
	s.conversation = s.conversationGraph()
	s.turn = s.turnGraph()
	return s
}

// Turn returns the top-level graph one engine invocation executes.
func (s *Set) Turn() *engine.Graph {
	return s.turn
}
