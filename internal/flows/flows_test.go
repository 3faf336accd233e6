package flows

import (
	"context"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harmonyshop/cadenza/internal/agents"
	"github.com/harmonyshop/cadenza/internal/catalog"
	"github.com/harmonyshop/cadenza/internal/engine"
	"github.com/harmonyshop/cadenza/internal/resolve"
	"github.com/harmonyshop/cadenza/internal/services"
	"github.com/harmonyshop/cadenza/pkg/domain"
	"github.com/harmonyshop/cadenza/pkg/ports"
	"github.com/harmonyshop/cadenza/pkg/registry"
)

// fixture wires the full graph set over in-memory collaborators, plus a
// single thread state it drives turn by turn the way the controller would.
type fixture struct {
	set  *Set
	exec *engine.Executor
	st   *domain.State
	cat  *catalog.Memory
	gw   *services.Gateway
}

func newFixture(t *testing.T, override ...func(*Deps)) *fixture {
	t.Helper()

	cat := catalog.NewMemorySeeded()
	gw := services.NewGateway()
	video := services.NewVideoLookup()
	reg := registry.New()
	agents.BindCatalogTools(reg, cat, video, 1)

	deps := Deps{
		Catalog:    cat,
		Verifier:   services.NewVerifier(),
		Gateway:    gw,
		Matcher:    services.NewMatcher(),
		Video:      video,
		Classifier: agents.NewKeywordRouter(),
		Agent:      agents.NewMusicAssistant(),
		Tools:      reg,
		Tracks:     resolve.New(cat),
	}
	for _, fn := range override {
		fn(&deps)
	}

	exec := engine.New()
	return &fixture{
		set:  New(exec, deps),
		exec: exec,
		st:   domain.NewState("thread-1", 1),
		cat:  cat,
		gw:   gw,
	}
}

// submit starts a new turn with a user message.
func (f *fixture) submit(t *testing.T, text string) *domain.Prompt {
	t.Helper()
	f.st.Outbox = nil
	f.st.Apply(domain.Update{
		History:     []domain.Message{{Role: domain.RoleUser, Content: text}},
		LastUserMsg: domain.MsgOf(text),
	})
	prompt, err := f.exec.Run(context.Background(), f.set.Turn(), f.st, nil)
	require.NoError(t, err)
	return prompt
}

// resume answers the pending prompt.
func (f *fixture) resume(t *testing.T, value string) *domain.Prompt {
	t.Helper()
	f.st.Outbox = nil
	prompt, err := f.exec.Run(context.Background(), f.set.Turn(), f.st, &value)
	require.NoError(t, err)
	return prompt
}

// texts flattens the outbox text items of the last invocation.
func (f *fixture) texts() []string {
	var out []string
	for _, it := range f.st.Outbox {
		if it.Kind == domain.OutboxText {
			out = append(out, it.Text)
		}
	}
	return out
}

func (f *fixture) receipt(t *testing.T) domain.Receipt {
	t.Helper()
	for _, it := range f.st.Outbox {
		if it.Kind == domain.OutboxReceipt {
			return *it.Receipt
		}
	}
	t.Fatal("no receipt in outbox")
	return domain.Receipt{}
}

func (f *fixture) own(t *testing.T, trackID int) {
	t.Helper()
	_, err := f.cat.CreateInvoice(context.Background(), 1, trackID, 0.99, 1)
	require.NoError(t, err)
}

func TestEmailUpdateEndToEnd(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, "I want to update my email")
	require.NotNil(t, prompt)
	assert.Equal(t, domain.PromptConfirm, prompt.Kind)
	assert.Equal(t, "Send Verification Code", prompt.Title)
	assert.Equal(t, domain.StatusConfirmSend, f.st.Verification.Status)
	require.Len(t, f.texts(), 1)
	assert.Contains(t, f.texts()[0], "ending in ***5555")

	require.NotNil(t, f.st.Pending)
	assert.Equal(t, []domain.Frame{
		{Graph: "turn", Step: "verification"},
		{Graph: "verification", Step: "confirm_send"},
	}, f.st.Pending.Frames)

	prompt = f.resume(t, "Yes")
	require.NotNil(t, prompt)
	assert.Equal(t, domain.PromptInput, prompt.Kind)
	assert.Equal(t, "Enter Verification Code", prompt.Title)
	assert.Equal(t, domain.StatusAwaitCode, f.st.Verification.Status)
	assert.Contains(t, f.texts()[0], "I've sent a verification code")

	prompt = f.resume(t, services.FixedCode)
	require.NotNil(t, prompt)
	assert.Equal(t, "New Email Address", prompt.Title)
	assert.True(t, f.st.Verified)
	assert.Contains(t, f.texts()[0], "Code verified!")

	prompt = f.resume(t, "person@example.com")
	assert.Nil(t, prompt)
	assert.Nil(t, f.st.Pending)
	assert.Equal(t, domain.StatusDone, f.st.Verification.Status)
	assert.Contains(t, f.texts()[0], "Done! Your email has been updated to person@example.com.")

	contact, err := f.cat.CustomerContact(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, "person@example.com", contact.Email)
}

func TestEmailUpdateThreeWrongCodesFails(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "update my email please")
	f.resume(t, "Yes")

	prompt := f.resume(t, "000000")
	require.NotNil(t, prompt)
	assert.Equal(t, "Incorrect code. 2 attempt(s) left.", prompt.Context)

	prompt = f.resume(t, "999999")
	require.NotNil(t, prompt)
	assert.Equal(t, "Incorrect code. 1 attempt(s) left.", prompt.Context)

	prompt = f.resume(t, "111111")
	assert.Nil(t, prompt)
	assert.Nil(t, f.st.Pending)
	assert.Equal(t, domain.StatusFailed, f.st.Verification.Status)
	require.Len(t, f.texts(), 1)
	assert.Contains(t, f.texts()[0], "too many failed attempts")
	assert.Contains(t, f.texts()[0], "contact support")
}

func TestEmailUpdateInvalidAddressRepromptsWithoutSpendingAttempts(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "change my email")
	f.resume(t, "Yes")
	f.resume(t, services.FixedCode)

	attempts := f.st.Verification.CodeAttemptsLeft
	prompt := f.resume(t, "not-an-email")
	require.NotNil(t, prompt)
	assert.Equal(t, "New Email Address", prompt.Title)
	assert.Equal(t, attempts, f.st.Verification.CodeAttemptsLeft)
	assert.Contains(t, f.texts()[0], "'not-an-email' doesn't look like a valid email address")

	prompt = f.resume(t, "fixed@example.com")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusDone, f.st.Verification.Status)
}

func TestEmailUpdateCancelled(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "update my email")

	prompt := f.resume(t, "No")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusCancelled, f.st.Verification.Status)
	assert.Contains(t, f.texts()[0], "Email update cancelled")
}

func TestBadResumeValueReissuesPrompt(t *testing.T) {
	f := newFixture(t)
	first := f.submit(t, "update my email")

	prompt := f.resume(t, "maybe later")
	require.NotNil(t, prompt)
	assert.Equal(t, first.Title, prompt.Title)
	require.NotNil(t, f.st.Pending)
	assert.Equal(t, []domain.Frame{
		{Graph: "turn", Step: "verification"},
		{Graph: "verification", Step: "confirm_send"},
	}, f.st.Pending.Frames)

	// The flow is still alive and accepts a proper answer.
	prompt = f.resume(t, "Yes")
	require.NotNil(t, prompt)
	assert.Equal(t, "Enter Verification Code", prompt.Title)
}

func TestPurchaseTrack9EndToEnd(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, "buy track 9")
	require.NotNil(t, prompt)
	assert.Equal(t, "Confirm Purchase", prompt.Title)
	assert.Equal(t, "Confirm purchase for $0.99?", prompt.Text)
	require.Len(t, f.texts(), 1)
	assert.Contains(t, f.texts()[0], "Order summary: For Those About to Rock (We Salute You) - AC/DC ($0.99)")
	assert.Contains(t, f.texts()[0], "Total: $0.99")
	assert.Equal(t, []domain.Frame{
		{Graph: "turn", Step: "purchase"},
		{Graph: "purchase", Step: "payment"},
		{Graph: "payment", Step: "confirm"},
	}, f.st.Pending.Frames)

	intentID := f.st.Payment.IntentID
	require.NotEmpty(t, intentID)

	prompt = f.resume(t, "Yes")
	assert.Nil(t, prompt)
	assert.Nil(t, f.st.Pending)
	assert.Equal(t, domain.StatusDone, f.st.Purchase.Status)
	assert.Equal(t, domain.StatusSucceeded, f.st.Payment.Status)

	rcpt := f.receipt(t)
	assert.Equal(t, 0.99, rcpt.Total)
	assert.Regexp(t, regexp.MustCompile(`^txn_[0-9a-f]{12}$`), rcpt.TransactionID)
	require.Len(t, rcpt.Lines, 1)
	assert.Equal(t, 9, rcpt.Lines[0].TrackID)
	assert.Contains(t, f.texts()[0], "Purchase complete!")

	owned, err := f.cat.AlreadyPurchased(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.True(t, owned)

	// Replaying the same intent key returns the original outcome, it never
	// charges twice.
	res, err := f.gw.Charge(context.Background(), intentID, 0.99, 1, f.st.Payment.Items)
	require.NoError(t, err)
	assert.Equal(t, rcpt.TransactionID, res.TransactionID)
}

func TestPurchaseAlreadyOwnedShortCircuits(t *testing.T) {
	f := newFixture(t)
	f.own(t, 3)

	prompt := f.submit(t, "buy track 3")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusDone, f.st.Purchase.Status)
	assert.Equal(t, domain.StatusIdle, f.st.Payment.Status)
	require.Len(t, f.texts(), 1)
	assert.Contains(t, f.texts()[0], `You already own "Hotel California" by Eagles.`)
	assert.Equal(t, []int{3}, f.st.LastTrackIDs)
}

func TestPurchaseNumericReferenceAgainstContext(t *testing.T) {
	// A bare number that matches a shown track id is that id; otherwise it
	// is a 1-based position into the shown list.
	t.Run("id match wins", func(t *testing.T) {
		f := newFixture(t)
		f.st.Apply(domain.Update{LastTrackIDs: []int{1, 2}})

		prompt := f.submit(t, "buy 2")
		require.NotNil(t, prompt)
		assert.Equal(t, 2, f.st.Purchase.SelectedTrackID)
		assert.Contains(t, f.texts()[0], "Love of My Life")
	})

	t.Run("positional fallback", func(t *testing.T) {
		f := newFixture(t)
		f.st.Apply(domain.Update{LastTrackIDs: []int{5, 6}})

		prompt := f.submit(t, "buy 2")
		require.NotNil(t, prompt)
		assert.Equal(t, 6, f.st.Purchase.SelectedTrackID)
		assert.Contains(t, f.texts()[0], "Black Dog")
	})
}

func TestPurchaseAskWhichThenTitleSearch(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, "I want to buy a song")
	require.NotNil(t, prompt)
	assert.Equal(t, domain.PromptInput, prompt.Kind)
	assert.Equal(t, "Purchase Track", prompt.Title)

	prompt = f.resume(t, "Hotel California")
	require.NotNil(t, prompt)
	assert.Equal(t, "Confirm Purchase", prompt.Title)
	assert.Equal(t, 3, f.st.Purchase.SelectedTrackID)
	require.Len(t, f.st.Payment.Items, 1)
	assert.Equal(t, "Hotel California - Eagles", f.st.Payment.Items[0].Name)
}

func TestPurchaseMultipleTitleMatchesOfferChoice(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, "purchase a song")
	require.NotNil(t, prompt)

	prompt = f.resume(t, "Black")
	require.NotNil(t, prompt)
	assert.Equal(t, "Choose a Track", prompt.Title)
	require.Len(t, prompt.Choices, 2)
	assert.Contains(t, prompt.Choices[0], "[Track ID: 6]")
	assert.Contains(t, prompt.Choices[1], "[Track ID: 8]")

	prompt = f.resume(t, prompt.Choices[1])
	require.NotNil(t, prompt)
	assert.Equal(t, "Confirm Purchase", prompt.Title)
	assert.Equal(t, 8, f.st.Purchase.SelectedTrackID)
}

func TestPurchaseUnknownTrackID(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, "buy track 4040")
	assert.Nil(t, prompt)
	assert.Contains(t, f.texts()[0], "I couldn't find a track with Track ID 4040.")
	assert.Equal(t, domain.StatusDone, f.st.Purchase.Status)
}

func TestPaymentDeclineReportsFailure(t *testing.T) {
	f := newFixture(t, func(d *Deps) {
		d.Gateway = services.NewGateway(services.WithFailureRate(1))
	})

	prompt := f.submit(t, "buy track 9")
	require.NotNil(t, prompt)

	prompt = f.resume(t, "Yes")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusFailed, f.st.Payment.Status)
	assert.Contains(t, f.texts()[0], "Sorry, the payment could not be processed: card declined.")

	owned, err := f.cat.AlreadyPurchased(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.False(t, owned)
}

func TestPaymentCancelled(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "buy track 9")

	prompt := f.resume(t, "No")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusCancelled, f.st.Payment.Status)
	assert.Contains(t, f.texts()[0], "Purchase cancelled")

	owned, err := f.cat.AlreadyPurchased(context.Background(), 1, 9)
	require.NoError(t, err)
	assert.False(t, owned)
}

// failingInvoiceCatalog declines every invoice commit while delegating the
// rest of the catalogue.
type failingInvoiceCatalog struct {
	*catalog.Memory
}

func (failingInvoiceCatalog) CreateInvoice(ctx context.Context, customerID, trackID int, unitPrice float64, qty int) (ports.Invoice, error) {
	return ports.Invoice{}, assert.AnError
}

func TestPaymentInvoiceFailureIsPartialNotSilent(t *testing.T) {
	cat := catalog.NewMemorySeeded()
	f := newFixture(t, func(d *Deps) {
		d.Catalog = failingInvoiceCatalog{Memory: cat}
	})

	f.submit(t, "buy track 9")
	prompt := f.resume(t, "Yes")
	assert.Nil(t, prompt)

	// The charge stands: this is a success with a flagged commit failure,
	// never a rollback and never a plain success.
	assert.Equal(t, domain.StatusSucceeded, f.st.Payment.Status)
	assert.True(t, f.st.Payment.PartialFailure)
	assert.Zero(t, f.st.Payment.InvoiceID)

	rcpt := f.receipt(t)
	assert.NotEmpty(t, rcpt.TransactionID)
	assert.Contains(t, f.texts()[0], "Purchase complete!")
	assert.Contains(t, f.texts()[0], "support has been notified")
}

func TestSongIdentifyAlreadyOwnedSkipsPurchase(t *testing.T) {
	f := newFixture(t)
	f.own(t, 1)

	prompt := f.submit(t, `what song goes "is this the real life"`)
	require.NotNil(t, prompt)
	assert.Equal(t, "Song Identified", prompt.Title)
	assert.Contains(t, prompt.Context, "you already own this track")
	assert.True(t, f.st.SongID.AlreadyOwned)

	prompt = f.resume(t, "Yes")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusDone, f.st.SongID.Status)
	assert.Equal(t, domain.StatusIdle, f.st.Payment.Status)
	assert.Contains(t, f.texts()[0], "Enjoy your music!")

	var embeds int
	for _, it := range f.st.Outbox {
		if it.Kind == domain.OutboxEmbed {
			embeds++
			assert.Equal(t, "youtube", it.Embed.Provider)
			assert.NotEmpty(t, it.Embed.HTML)
		}
	}
	assert.Equal(t, 1, embeds)
}

func TestSongIdentifyBuyEndToEnd(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, `what song goes "is this the real life"`)
	require.NotNil(t, prompt)
	assert.Equal(t, "Song Identified", prompt.Title)
	assert.Contains(t, f.texts()[0], `"Bohemian Rhapsody" by Queen`)
	assert.Contains(t, f.texts()[0], "$0.99")

	prompt = f.resume(t, "Yes")
	require.NotNil(t, prompt)
	assert.Equal(t, "Purchase Track", prompt.Title)
	assert.Contains(t, prompt.Context, "Now playing: https://")

	prompt = f.resume(t, "Yes")
	require.NotNil(t, prompt)
	assert.Equal(t, "Confirm Purchase", prompt.Title)
	assert.Equal(t, []domain.Frame{
		{Graph: "turn", Step: "songid"},
		{Graph: "songid", Step: "payment"},
		{Graph: "payment", Step: "confirm"},
	}, f.st.Pending.Frames)

	prompt = f.resume(t, "Yes")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusDone, f.st.SongID.Status)
	assert.Equal(t, domain.StatusSucceeded, f.st.Payment.Status)
	assert.Equal(t, 0.99, f.receipt(t).Total)

	owned, err := f.cat.AlreadyPurchased(context.Background(), 1, 1)
	require.NoError(t, err)
	assert.True(t, owned)
}

func TestSongIdentifyNotInCatalogueOffersRequest(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, `what song goes "with the lights out"`)
	require.NotNil(t, prompt)
	assert.Contains(t, prompt.Context, "not currently in our catalogue")

	prompt = f.resume(t, "Yes")
	require.NotNil(t, prompt)
	assert.Equal(t, "Request Song", prompt.Title)

	prompt = f.resume(t, "Yes")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusDone, f.st.SongID.Status)
	assert.Contains(t, f.texts()[0], "I've noted your interest")
}

func TestSongIdentifyNoMatch(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, `what song goes "zzz qqq xxx"`)
	assert.Nil(t, prompt)
	assert.Equal(t, domain.StatusDone, f.st.SongID.Status)
	assert.Contains(t, f.texts()[0], "I couldn't find a song matching those lyrics.")
}

func TestConversationToolLoopFeedsCrossTurnContext(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, "What tracks do you have by Queen?")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.RouteNormal, f.st.Route)
	assert.Equal(t, []int{1, 2}, f.st.LastTrackIDs)
	require.Len(t, f.texts(), 1)
	assert.Contains(t, f.texts()[0], "[id 1] Bohemian Rhapsody")

	// The surfaced ids ground a follow-up purchase by position.
	prompt = f.submit(t, "buy 1")
	require.NotNil(t, prompt)
	assert.Equal(t, 1, f.st.Purchase.SelectedTrackID)
	assert.Contains(t, f.texts()[0], "Bohemian Rhapsody")
}

func TestRouteDampingAfterFinishedVerification(t *testing.T) {
	f := newFixture(t)
	f.submit(t, "update my email")
	f.resume(t, "No")
	require.Equal(t, domain.StatusCancelled, f.st.Verification.Status)

	// An email mention without explicit update keywords stays a normal turn.
	prompt := f.submit(t, "what is my email address?")
	assert.Nil(t, prompt)
	assert.Equal(t, domain.RouteNormal, f.st.Route)
	assert.Equal(t, domain.StatusIdle, f.st.Verification.Status)
	assert.Contains(t, f.texts()[0], "Email on file: luisg@embraer.com.br")

	// Asking explicitly re-enters the flow.
	prompt = f.submit(t, "please update my email")
	require.NotNil(t, prompt)
	assert.Equal(t, "Send Verification Code", prompt.Title)
}

func TestConversationGreeting(t *testing.T) {
	f := newFixture(t)

	prompt := f.submit(t, "hello")
	assert.Nil(t, prompt)
	require.Len(t, f.texts(), 1)
	assert.Contains(t, f.texts()[0], "browse our catalogue")
}

func TestExtractLyricsQuery(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{`what song goes "is this the real life"`, "is this the real life"},
		{"find the song that goes like on a dark desert highway", "on a dark desert highway"},
		{"lyrics that say we salute you", "we salute you"},
		{"looking for a song with purple haze all in my brain", "purple haze all in my brain"},
		{"what song has no no no in it", "no no no in it"},
		{"breaking the law breaking the law", "breaking the law breaking the law"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, ExtractLyricsQuery(tc.in), "input %q", tc.in)
	}
}
