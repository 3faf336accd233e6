package services

import (
	"context"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harmonyshop/cadenza/internal/logging"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// Gateway implements ports.PaymentGateway. Charges are idempotent on the
// intent id: the first outcome is recorded and every repeat returns it
// verbatim, so a replayed confirmation can never charge twice.
type Gateway struct {
	mu          sync.Mutex
	processed   map[string]ports.ChargeResult
	failureRate float64
	logger      *slog.Logger
}

// GatewayOption configures the Gateway.
type GatewayOption func(*Gateway)

// WithFailureRate makes the given fraction of first-time charges decline.
func WithFailureRate(rate float64) GatewayOption {
	return func(g *Gateway) {
		g.failureRate = rate
	}
}

// WithGatewayLogger sets the logger.
func WithGatewayLogger(logger *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// NewGateway creates a Gateway. All charges succeed by default.
func NewGateway(opts ...GatewayOption) *Gateway {
	g := &Gateway{
		processed: make(map[string]ports.ChargeResult),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// CreateIntent registers a payment intent and returns its id.
func (g *Gateway) CreateIntent(ctx context.Context, amount float64, payerID int, items []domain.LineItem) (string, error) {
	id := "pi_" + hexID(16)
	g.logger.Info("payment intent created", "intent_id", id, "amount", amount, "payer_id", payerID)
	return id, nil
}

// Charge processes a charge for the intent.
func (g *Gateway) Charge(ctx context.Context, intentID string, amount float64, payerID int, items []domain.LineItem) (ports.ChargeResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if cached, ok := g.processed[intentID]; ok {
		g.logger.Info("returning recorded outcome", "intent_id", intentID, "status", cached.Status)
		return cached, nil
	}

	var result ports.ChargeResult
	if rand.Float64() < g.failureRate {
		result = ports.ChargeResult{
			Status: ports.ChargeFailed,
			Reason: "card declined",
		}
	} else {
		result = ports.ChargeResult{
			Status:        ports.ChargeSucceeded,
			TransactionID: "txn_" + hexID(12),
		}
		g.logger.Info("charge succeeded", "intent_id", intentID, "txn", result.TransactionID, "amount", amount)
	}

	g.processed[intentID] = result
	return result, nil
}

// hexID returns n hex characters sourced from a random uuid.
func hexID(n int) string {
	hex := strings.ReplaceAll(uuid.NewString(), "-", "")
	if n > len(hex) {
		n = len(hex)
	}
	return hex[:n]
}
