// Package services provides the external collaborators of the support bot:
// phone code verification, the payment gateway, lyrics search and video
// lookup. All are local implementations with deterministic behavior so the
// bot runs self-contained.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/harmonyshop/cadenza/internal/logging"
)

// FixedCode is the verification code used unless random codes are enabled.
const FixedCode = "123456"

type pendingVerification struct {
	phone string
	code  string
}

// Verifier implements ports.CodeVerifier. Codes are single-use: a correct
// check consumes the verification.
type Verifier struct {
	mu            sync.Mutex
	verifications map[string]pendingVerification
	randomCodes   bool
	logger        *slog.Logger
}

// VerifierOption configures the Verifier.
type VerifierOption func(*Verifier)

// WithRandomCodes generates a random six-digit code per send instead of the
// fixed one.
func WithRandomCodes() VerifierOption {
	return func(v *Verifier) {
		v.randomCodes = true
	}
}

// WithVerifierLogger sets the logger.
func WithVerifierLogger(logger *slog.Logger) VerifierOption {
	return func(v *Verifier) {
		if logger != nil {
			v.logger = logger
		}
	}
}

// NewVerifier creates a Verifier.
func NewVerifier(opts ...VerifierOption) *Verifier {
	v := &Verifier{
		verifications: make(map[string]pendingVerification),
		logger:        logging.NewNop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// SendCode registers a verification for the phone and returns its id.
func (v *Verifier) SendCode(ctx context.Context, phone string) (string, error) {
	code := FixedCode
	if v.randomCodes {
		code = fmt.Sprintf("%06d", 100000+rand.Intn(900000))
	}

	id := uuid.NewString()
	v.mu.Lock()
	v.verifications[id] = pendingVerification{phone: phone, code: code}
	v.mu.Unlock()

	v.logger.Info("verification code sent", "phone", MaskPhone(phone), "verification_id", id)
	return id, nil
}

// CheckCode reports whether code matches the pending verification. A match
// consumes the verification; further checks against the same id fail.
func (v *Verifier) CheckCode(ctx context.Context, verificationID, code string) (bool, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	pending, ok := v.verifications[verificationID]
	if !ok {
		v.logger.Warn("unknown verification id", "verification_id", verificationID)
		return false, nil
	}

	if strings.TrimSpace(code) != pending.code {
		return false, nil
	}
	delete(v.verifications, verificationID)
	return true, nil
}

// PendingCode returns the code for a verification, for tests.
func (v *Verifier) PendingCode(verificationID string) string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.verifications[verificationID].code
}

// MaskPhone hides all but the last four digits of a phone number.
func MaskPhone(phone string) string {
	if len(phone) <= 4 {
		return "****"
	}
	return "***" + phone[len(phone)-4:]
}
