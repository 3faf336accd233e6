package flows

import (
	"context"
	"fmt"
	"strings"

	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
)

// Payment graph steps.
const (
	payQuote   engine.StepID = "quote"
	payConfirm engine.StepID = "confirm"
	payCharge  engine.StepID = "charge"
	payInvoice engine.StepID = "invoice"
	payReceipt engine.StepID = "receipt"
	payCancel  engine.StepID = "cancel"
)

// paymentGraph charges for the items already staged in the payment slice.
// The intent id is minted once at quote time; the gateway treats it as an
// idempotency key, so a replayed charge returns the original outcome instead
// of charging twice.
func (s *Set) paymentGraph() *engine.Graph {
	return &engine.Graph{
		Name:  "payment",
		Entry: payQuote,
		Steps: map[engine.StepID]engine.StepFunc{
			payQuote:   s.paymentQuote,
			payConfirm: s.paymentConfirm,
			payCharge:  s.paymentCharge,
			payInvoice: s.paymentInvoice,
			payReceipt: s.paymentReceipt,
			payCancel:  s.paymentCancel,
		},
	}
}

func (s *Set) paymentQuote(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	pay := st.Payment
	if len(pay.Items) == 0 {
		pay.Status = domain.StatusFailed
		pay.Error = "no items to purchase"
		return engine.Done{Update: domain.Update{
			Payment: &pay,
			Outbox:  []domain.OutboxItem{domain.TextItem("Sorry, there was an error with your order. No items found.")},
		}}, nil
	}

	var total float64
	display := make([]string, 0, len(pay.Items))
	for _, item := range pay.Items {
		total += item.UnitPrice * float64(item.Qty)
		display = append(display, fmt.Sprintf("%s ($%.2f)", item.Name, item.UnitPrice))
	}

	intentID, err := s.deps.Gateway.CreateIntent(ctx, total, st.UserID, pay.Items)
	if err != nil {
		pay.Status = domain.StatusFailed
		pay.Error = err.Error()
		return engine.Done{Update: domain.Update{
			Payment: &pay,
			Outbox:  []domain.OutboxItem{domain.TextItem("Sorry, there was an error with your order. Please try again.")},
		}}, nil
	}

	pay.Status = domain.StatusDraft
	pay.IntentID = intentID
	pay.Total = total
	return engine.Next{
		Update: domain.Update{
			Payment: &pay,
			Outbox: []domain.OutboxItem{domain.TextItem(
				fmt.Sprintf("Order summary: %s\n\nTotal: $%.2f", strings.Join(display, ", "), total),
			)},
		},
		To: payConfirm,
	}, nil
}

func (s *Set) paymentConfirm(ctx context.Context, st *domain.State, resume *string) (engine.StepResult, error) {
	prompt := domain.Confirm("Confirm Purchase", fmt.Sprintf("Confirm purchase for $%.2f?", st.Payment.Total))
	if resume == nil {
		return engine.Suspend{Prompt: prompt, ResumeTo: payConfirm}, nil
	}
	switch *resume {
	case domain.ChoiceYes:
		pay := st.Payment
		pay.Status = domain.StatusConfirmed
		return engine.Next{Update: domain.Update{Payment: &pay}, To: payCharge}, nil
	case domain.ChoiceNo:
		return engine.Next{To: payCancel}, nil
	default:
		return engine.Suspend{Prompt: prompt, ResumeTo: payConfirm}, nil
	}
}

func (s *Set) paymentCharge(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	pay := st.Payment
	res, err := s.deps.Gateway.Charge(ctx, pay.IntentID, pay.Total, st.UserID, pay.Items)
	if err != nil {
		return nil, &domain.ExternalServiceError{Service: "payment gateway", Err: err}
	}

	if res.Status != ports.ChargeSucceeded {
		reason := res.Reason
		if reason == "" {
			reason = "payment failed"
		}
		pay.Status = domain.StatusFailed
		pay.Error = reason
		return engine.Done{Update: domain.Update{
			Payment: &pay,
			Outbox: []domain.OutboxItem{domain.TextItem(
				fmt.Sprintf("Sorry, the payment could not be processed: %s. Please try again.", reason),
			)},
		}}, nil
	}

	pay.Status = domain.StatusSucceeded
	pay.TransactionID = res.TransactionID
	return engine.Next{Update: domain.Update{Payment: &pay}, To: payInvoice}, nil
}

// paymentInvoice commits the invoice. The charge has already succeeded, so a
// commit failure must not fail the flow: it is flagged as a partial failure
// and surfaces in the receipt text.
func (s *Set) paymentInvoice(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	pay := st.Payment
	item := pay.Items[0]

	inv, err := s.deps.Catalog.CreateInvoice(ctx, st.UserID, item.TrackID, item.UnitPrice, item.Qty)
	if err != nil {
		pfe := &domain.PartialFailureError{TransactionID: pay.TransactionID, Err: err}
		s.deps.Logger.Warn("invoice commit failed after successful charge", "err", pfe, "intent", pay.IntentID)
		pay.PartialFailure = true
		return engine.Next{Update: domain.Update{Payment: &pay}, To: payReceipt}, nil
	}

	pay.InvoiceID = inv.ID
	return engine.Next{Update: domain.Update{Payment: &pay}, To: payReceipt}, nil
}

func (s *Set) paymentReceipt(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	pay := st.Payment
	receipt := domain.Receipt{
		InvoiceID:     pay.InvoiceID,
		TransactionID: pay.TransactionID,
		Total:         pay.Total,
		Lines:         append([]domain.LineItem(nil), pay.Items...),
	}

	text := "Purchase complete! Thank you for your order."
	if pay.PartialFailure {
		text = "Purchase complete! Thank you for your order. " +
			"We hit a problem recording your invoice; support has been notified and will follow up."
	}

	return engine.Done{Update: domain.Update{
		Outbox: []domain.OutboxItem{
			domain.ReceiptItem(receipt),
			domain.TextItem(text),
		},
	}}, nil
}

func (s *Set) paymentCancel(ctx context.Context, st *domain.State, _ *string) (engine.StepResult, error) {
	pay := st.Payment
	pay.Status = domain.StatusCancelled
	return engine.Done{Update: domain.Update{
		Payment: &pay,
		Outbox:  []domain.OutboxItem{domain.TextItem("No problem! Purchase cancelled. Let me know if you change your mind.")},
	}}, nil
}
