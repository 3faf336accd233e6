package flows

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/pkg/domain"
)

// Verification graph steps.
const (
	verInit        engine.StepID = "init"
	verConfirmSend engine.StepID = "confirm_send"
	verSendCode    engine.StepID = "send_code"
	verEnterCode   engine.StepID = "enter_code"
	verCheckCode   engine.StepID = "check_code"
	verNewEmail    engine.StepID = "new_email"
	verUpdate      engine.StepID = "update"
	verCancel      engine.StepID = "cancel"
	verFailed      engine.StepID = "failed"
)

var emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)

// verificationGraph updates a customer's email behind a phone verification
// gate: confirm sending a code, three attempts to enter it, then collect and
// validate the new address. A malformed address re-prompts without spending
// a code attempt.
func (s *Set) verificationGraph() *engine.Graph {
	return &engine.Graph{
		Name:  "verification",
		Entry: verInit,
		Steps: map[engine.StepID]engine.StepFunc{
			verInit:        s.verificationInit,
			verConfirmSend: s.verificationConfirmSend,
			verSendCode:    s.verificationSendCode,
			verEnterCode:   s.verificationEnterCode,
			verCheckCode:   s.verificationCheckCode,
			verNewEmail:    s.verificationNewEmail,
			verUpdate:      s.verificationUpdate,
			verCancel:      s.verificationCancel,
			verFailed:      s.verificationFailed,
		},
	}
}

func (s *Set) verificationInit(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	contact, err := s.deps.Catalog.CustomerContact(ctx, st.UserID)
	if err != nil {
		v := st.Verification
		v.Status = domain.StatusFailed
		v.Error = err.Error()
		return engine.Done{Update: domain.Update{
			Verification: &v,
			Outbox:       []domain.OutboxItem{domain.TextItem("Sorry, I couldn't find your account information.")},
		}}, nil
	}

	v := domain.DefaultVerification()
	v.Status = domain.StatusConfirmSend
	v.CurrentEmail = contact.Email
	v.Phone = contact.Phone

	intro := fmt.Sprintf(
		"I can update your email address. For security, I'll need to verify using the phone number on file ending in %s. Would you like me to send a verification code?",
		maskedTail(contact.Phone),
	)
	return engine.Next{
		Update: domain.Update{
			Verification: &v,
			Outbox:       []domain.OutboxItem{domain.TextItem(intro)},
		},
		To: verConfirmSend,
	}, nil
}

func (s *Set) verificationConfirmSend(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	prompt := domain.Confirm("Send Verification Code", "Send verification code to the phone number on file?")
	if resume == nil {
		return engine.Suspend{Prompt: prompt, ResumeTo: verConfirmSend}, nil
	}
	switch *resume {
	case domain.ChoiceYes:
		return engine.Next{To: verSendCode}, nil
	case domain.ChoiceNo:
		return engine.Next{To: verCancel}, nil
	default:
		return engine.Suspend{Prompt: prompt, ResumeTo: verConfirmSend}, nil
	}
}

func (s *Set) verificationSendCode(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	v := st.Verification
	id, err := s.deps.Verifier.SendCode(ctx, v.Phone)
	if err != nil {
		v.Error = err.Error()
		return engine.Next{Update: domain.Update{Verification: &v}, To: verFailed}, nil
	}

	v.Status = domain.StatusAwaitCode
	v.VerificationID = id
	return engine.Next{
		Update: domain.Update{
			Verification: &v,
			Outbox:       []domain.OutboxItem{domain.TextItem("I've sent a verification code to your phone. Please enter the 6-digit code.")},
		},
		To: verEnterCode,
	}, nil
}

func (s *Set) verificationEnterCode(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	v := st.Verification
	if resume == nil {
		prompt := domain.Input("Enter Verification Code", "Please enter the 6-digit verification code sent to your phone.", "123456")
		if v.CodeAttemptsLeft < domain.CodeAttempts {
			prompt = prompt.WithContext(fmt.Sprintf("Incorrect code. %d attempt(s) left.", v.CodeAttemptsLeft))
		}
		return engine.Suspend{Prompt: prompt, ResumeTo: verEnterCode}, nil
	}

	v.LastCodeEntered = strings.TrimSpace(*resume)
	return engine.Next{Update: domain.Update{Verification: &v}, To: verCheckCode}, nil
}

func (s *Set) verificationCheckCode(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	v := st.Verification
	ok, err := s.deps.Verifier.CheckCode(ctx, v.VerificationID, v.LastCodeEntered)
	if err != nil {
		v.Error = err.Error()
		return engine.Next{Update: domain.Update{Verification: &v}, To: verFailed}, nil
	}

	if ok {
		v.Status = domain.StatusAwaitNewEmail
		return engine.Next{
			Update: domain.Update{
				Verification: &v,
				Verified:     domain.VerifiedOf(true),
				Outbox:       []domain.OutboxItem{domain.TextItem("Code verified! What's your new email address?")},
			},
			To: verNewEmail,
		}, nil
	}

	v.CodeAttemptsLeft--
	if v.CodeAttemptsLeft > 0 {
		return engine.Next{
			Update: domain.Update{
				Verification: &v,
				Outbox:       []domain.OutboxItem{domain.TextItem(fmt.Sprintf("Incorrect code. %d attempt(s) left.", v.CodeAttemptsLeft))},
			},
			To: verEnterCode,
		}, nil
	}

	v.CodeAttemptsLeft = 0
	v.Error = "too many failed attempts"
	return engine.Next{Update: domain.Update{Verification: &v}, To: verFailed}, nil
}

func (s *Set) verificationNewEmail(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	if resume == nil {
		prompt := domain.Input("New Email Address", "Please enter your new email address.", "newemail@example.com")
		return engine.Suspend{Prompt: prompt, ResumeTo: verNewEmail}, nil
	}

	v := st.Verification
	v.ProposedEmail = strings.TrimSpace(*resume)
	return engine.Next{Update: domain.Update{Verification: &v}, To: verUpdate}, nil
}

func (s *Set) verificationUpdate(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	v := st.Verification

	// Validation failures loop back without touching the code attempt budget.
	if !emailPattern.MatchString(v.ProposedEmail) {
		verr := &domain.ValidationError{Field: "email", Value: v.ProposedEmail}
		s.deps.Logger.Debug("rejected new email address", "err", verr)
		return engine.Next{
			Update: domain.Update{
				Outbox: []domain.OutboxItem{domain.TextItem(
					fmt.Sprintf("'%s' doesn't look like a valid email address. Please try again.", v.ProposedEmail),
				)},
			},
			To: verNewEmail,
		}, nil
	}

	if err := s.deps.Catalog.UpdateCustomerEmail(ctx, st.UserID, v.ProposedEmail); err != nil {
		v.Status = domain.StatusFailed
		v.Error = err.Error()
		return engine.Done{Update: domain.Update{
			Verification: &v,
			Outbox:       []domain.OutboxItem{domain.TextItem(fmt.Sprintf("Sorry, there was an error updating your email: %v", err))},
		}}, nil
	}

	v.Status = domain.StatusDone
	return engine.Done{Update: domain.Update{
		Verification: &v,
		Outbox:       []domain.OutboxItem{domain.TextItem(fmt.Sprintf("Done! Your email has been updated to %s.", v.ProposedEmail))},
	}}, nil
}

func (s *Set) verificationCancel(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	v := st.Verification
	v.Status = domain.StatusCancelled
	return engine.Done{Update: domain.Update{
		Verification: &v,
		Outbox:       []domain.OutboxItem{domain.TextItem("No problem! Email update cancelled. What else can I help you with?")},
	}}, nil
}

func (s *Set) verificationFailed(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	v := st.Verification
	reason := v.Error
	if reason == "" {
		reason = "verification failed"
	}
	v.Status = domain.StatusFailed
	return engine.Done{Update: domain.Update{
		Verification: &v,
		Outbox: []domain.OutboxItem{domain.TextItem(
			fmt.Sprintf("Sorry, the email update could not be completed: %s. Please try again later or contact support.", reason),
		)},
	}}, nil
}

// maskedTail shows only the last four digits of a phone number.
func maskedTail(phone string) string {
	if len(phone) < 4 {
		return "****"
	}
	return "***" + phone[len(phone)-4:]
}
