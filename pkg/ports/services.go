package ports

import (
	"context"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// CodeVerifier sends and checks one-time phone verification codes.
type CodeVerifier interface {
	// SendCode delivers a code to the phone number and returns an opaque
	// verification id to check against.
	SendCode(ctx context.Context, phone string) (string, error)

	// CheckCode reports whether the code matches the verification id.
	CheckCode(ctx context.Context, verificationID, code string) (bool, error)
}

// ChargeStatus is the outcome of a charge attempt.
type ChargeStatus string

const (
	ChargeSucceeded ChargeStatus = "succeeded"
	ChargeFailed    ChargeStatus = "failed"
)

// ChargeResult is the gateway's answer to a charge request.
type ChargeResult struct {
	Status        ChargeStatus
	TransactionID string
	Reason        string
}

// PaymentGateway moves money. Charge is idempotent on the intent id: a
// repeated call with the same id returns the original outcome and never
// charges twice.
type PaymentGateway interface {
	CreateIntent(ctx context.Context, amount float64, payerID int, items []domain.LineItem) (string, error)
	Charge(ctx context.Context, intentID string, amount float64, payerID int, items []domain.LineItem) (ChargeResult, error)
}

// SongMatcher resolves a lyrics or title snippet to ranked song candidates.
type SongMatcher interface {
	SearchByLyrics(ctx context.Context, snippet string) ([]domain.SongMatch, error)
}

// VideoFinder locates a playable video for a song.
type VideoFinder interface {
	Search(ctx context.Context, query string) (domain.Video, error)
	EmbedHTML(videoID string, autoplay bool) string
}
