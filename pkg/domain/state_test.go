package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResetFinishedFlows(t *testing.T) {
	st := NewState("t1", 1)
	st.Verification.Status = StatusCancelled
	st.Verification.VerificationID = "v-1"
	st.SongID.Status = StatusSearching
	st.SongID.Query = "yellow submarine"
	st.Purchase.Status = StatusDone
	st.Payment.Status = StatusFailed

	st.ResetFinishedFlows()

	// Terminal flows return to idle defaults.
	assert.Equal(t, DefaultVerification(), st.Verification)
	assert.Equal(t, DefaultPurchase(), st.Purchase)
	assert.Equal(t, DefaultPayment(), st.Payment)

	// In-flight flows are untouched.
	assert.Equal(t, StatusSearching, st.SongID.Status)
	assert.Equal(t, "yellow submarine", st.SongID.Query)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Field: "email", Value: "not-an-address"}
	assert.Equal(t, `invalid email: "not-an-address"`, err.Error())
}
