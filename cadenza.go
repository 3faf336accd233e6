package cadenza

import (
	"context"
	"log/slog"
	"net/http"

	adapterhttp "github.com/harmonyshop/cadenza/internal/adapters/http"
	"github.com/harmonyshop/cadenza/internal/agents"
	"github.com/harmonyshop/cadenza/internal/catalog"
	"github.com/harmonyshop/cadenza/internal/controller"
	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/internal/flows"
	"github.com/harmonyshop/cadenza/internal/logging"
	"github.com/harmonyshop/cadenza/internal/resolve"
	"github.com/harmonyshop/cadenza/internal/services"
	"github.com/harmonyshop/cadenza/pkg/adapters/memory"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/observability"
	"github.com/harmonyshop/cadenza/pkg/ports"
	"github.com/harmonyshop/cadenza/pkg/registry"
	"github.com/harmonyshop/cadenza/pkg/session"
)

// Version is the library version reported by the CLI and the HTTP API.
var Version = "0.2.0"

// Engine is the high-level entry point for the Cadenza library.
// It wires the workflow executor, the flow graphs and the checkpointed
// session layer behind a two-method conversational API: Submit a message,
// Resume a pending prompt.
type Engine struct {
	ctrl     *controller.Controller
	sessions *session.Manager
	metrics  *observability.Metrics

	store      ports.CheckpointStore
	locker     ports.DistributedLocker
	catalog    ports.Catalog
	verifier   ports.CodeVerifier
	gateway    ports.PaymentGateway
	matcher    ports.SongMatcher
	video      ports.VideoFinder
	classifier ports.IntentClassifier
	agent      ports.ChatAgent
	logger     *slog.Logger
	userID     int
	maxSteps   int
}

// Option defines a functional option for configuring the Engine.
type Option func(*Engine)

// WithStore sets the checkpoint store. Defaults to in-memory.
func WithStore(store ports.CheckpointStore) Option {
	return func(e *Engine) { e.store = store }
}

// WithLocker enables distributed per-thread locking across replicas.
func WithLocker(locker ports.DistributedLocker) Option {
	return func(e *Engine) { e.locker = locker }
}

// WithCatalog sets the music catalogue backend. Defaults to the seeded
// in-memory catalogue.
func WithCatalog(c ports.Catalog) Option {
	return func(e *Engine) { e.catalog = c }
}

// WithVerifier sets the phone verification service.
func WithVerifier(v ports.CodeVerifier) Option {
	return func(e *Engine) { e.verifier = v }
}

// WithGateway sets the payment gateway.
func WithGateway(g ports.PaymentGateway) Option {
	return func(e *Engine) { e.gateway = g }
}

// WithMatcher sets the lyrics-to-song matcher.
func WithMatcher(m ports.SongMatcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithVideo sets the video lookup service.
func WithVideo(v ports.VideoFinder) Option {
	return func(e *Engine) { e.video = v }
}

// WithClassifier sets the turn intent classifier.
func WithClassifier(c ports.IntentClassifier) Option {
	return func(e *Engine) { e.classifier = c }
}

// WithAgent sets the conversational agent used for normal turns.
func WithAgent(a ports.ChatAgent) Option {
	return func(e *Engine) { e.agent = a }
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithMetrics enables Prometheus instrumentation of turns and charges.
func WithMetrics(m *observability.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

// WithUserID binds new threads to the given account.
func WithUserID(id int) Option {
	return func(e *Engine) { e.userID = id }
}

// WithMaxSteps overrides the per-invocation step budget.
func WithMaxSteps(n int) Option {
	return func(e *Engine) { e.maxSteps = n }
}

// New initializes a Cadenza Engine. With no options everything runs
// in-memory against the seeded demo catalogue, so New() alone yields a
// fully working engine for tests and local use.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger: logging.NewNop(),
		userID: controller.DefaultUserID,
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.store == nil {
		e.store = memory.NewStore()
	}
	if e.catalog == nil {
		e.catalog = catalog.NewMemorySeeded()
	}
	if e.verifier == nil {
		e.verifier = services.NewVerifier()
	}
	if e.gateway == nil {
		e.gateway = services.NewGateway()
	}
	if e.matcher == nil {
		e.matcher = services.NewMatcher()
	}
	if e.video == nil {
		e.video = services.NewVideoLookup()
	}
	if e.classifier == nil {
		e.classifier = agents.NewKeywordRouter()
	}
	if e.agent == nil {
		e.agent = agents.NewMusicAssistant()
	}
	if e.metrics != nil {
		e.gateway = e.metrics.InstrumentGateway(e.gateway)
	}

	reg := registry.New()
	agents.BindCatalogTools(reg, e.catalog, e.video, e.userID)

	execOpts := []engine.Option{engine.WithLogger(e.logger)}
	if e.maxSteps > 0 {
		execOpts = append(execOpts, engine.WithMaxSteps(e.maxSteps))
	}
	exec := engine.New(execOpts...)

	set := flows.New(exec, flows.Deps{
		Catalog:    e.catalog,
		Verifier:   e.verifier,
		Gateway:    e.gateway,
		Matcher:    e.matcher,
		Video:      e.video,
		Classifier: e.classifier,
		Agent:      e.agent,
		Tools:      reg,
		Tracks:     resolve.New(e.catalog),
		Logger:     e.logger,
	})

	sessionOpts := []session.Option{session.WithLogger(e.logger)}
	if e.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(e.locker))
	}
	e.sessions = session.NewManager(e.store, sessionOpts...)

	ctrlOpts := []controller.Option{
		controller.WithUserID(e.userID),
		controller.WithLogger(e.logger),
	}
	if e.metrics != nil {
		ctrlOpts = append(ctrlOpts, controller.WithMetrics(e.metrics))
	}
	e.ctrl = controller.New(e.sessions, exec, set, ctrlOpts...)

	return e
}

// Submit runs one user message through the turn workflow. If the thread is
// waiting on a prompt, the message answers that prompt.
func (e *Engine) Submit(ctx context.Context, threadID, text string) (domain.TurnResult, error) {
	return e.ctrl.Submit(ctx, threadID, text)
}

// Resume answers the thread's pending prompt with value. Replaying the last
// answered value returns the recorded result without re-running anything.
func (e *Engine) Resume(ctx context.Context, threadID, value string) (domain.TurnResult, error) {
	return e.ctrl.Resume(ctx, threadID, value)
}

// Thread returns the latest checkpointed state of a thread.
func (e *Engine) Thread(ctx context.Context, threadID string) (*domain.State, error) {
	return e.ctrl.Get(ctx, threadID)
}

// Reset deletes a thread's checkpoint log.
func (e *Engine) Reset(ctx context.Context, threadID string) error {
	return e.ctrl.Reset(ctx, threadID)
}

// Threads lists known thread ids.
func (e *Engine) Threads(ctx context.Context) ([]string, error) {
	return e.ctrl.Threads(ctx)
}

// Handler returns the JSON REST handler for the engine, with the metrics
// endpoint mounted when metrics are configured.
func (e *Engine) Handler() http.Handler {
	opts := []adapterhttp.Option{
		adapterhttp.WithLogger(e.logger),
		adapterhttp.WithVersion(Version),
	}
	if e.metrics != nil {
		opts = append(opts, adapterhttp.WithMetrics(e.metrics))
	}
	return adapterhttp.NewHandler(e.ctrl, opts...)
}
