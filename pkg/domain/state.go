package domain

// Route is the classified intent of the current turn.
type Route string

const (
	RouteNormal       Route = "normal"
	RouteUpdateEmail  Route = "update_email"
	RouteSongIdentify Route = "song_identify"
	RoutePurchase     Route = "purchase"
)

// Role identifies the author of a history entry.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// Message is one entry in the conversation history.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// FlowStatus is the lifecycle status of a flow slice.
type FlowStatus string

const (
	StatusIdle FlowStatus = "idle"

	// Verification flow.
	StatusConfirmSend   FlowStatus = "confirm_send"
	StatusAwaitCode     FlowStatus = "await_code"
	StatusAwaitNewEmail FlowStatus = "await_new_email"

	// Song identification flow.
	StatusSearching          FlowStatus = "searching"
	StatusAwaitListenConfirm FlowStatus = "await_listen_confirm"
	StatusPlaying            FlowStatus = "playing"
	StatusAwaitBuyOrRequest  FlowStatus = "await_buy_or_request"

	// Purchase flow.
	StatusResolving FlowStatus = "resolving"

	// Payment flow.
	StatusDraft     FlowStatus = "draft"
	StatusConfirmed FlowStatus = "confirmed"
	StatusSucceeded FlowStatus = "succeeded"

	// Shared terminal states.
	StatusDone      FlowStatus = "done"
	StatusCancelled FlowStatus = "cancelled"
	StatusFailed    FlowStatus = "failed"
)

// Terminal reports whether the status ends its flow.
func (s FlowStatus) Terminal() bool {
	switch s {
	case StatusDone, StatusCancelled, StatusFailed, StatusSucceeded:
		return true
	}
	return false
}

// Track is a catalogue item.
type Track struct {
	ID        int     `json:"id"`
	Name      string  `json:"name"`
	UnitPrice float64 `json:"unit_price"`
	Album     string  `json:"album"`
	Artist    string  `json:"artist"`
}

// SongMatch is a ranked result from the lyrics matcher.
type SongMatch struct {
	Title  string  `json:"title"`
	Artist string  `json:"artist"`
	Score  float64 `json:"score"`
	RefID  string  `json:"ref_id"`
}

// Video is a playable result from the video finder.
type Video struct {
	ID      string `json:"id"`
	Title   string `json:"title"`
	URL     string `json:"url"`
	Channel string `json:"channel"`
}

// LineItem is one purchasable unit inside a payment.
type LineItem struct {
	TrackID   int     `json:"track_id"`
	Name      string  `json:"name"`
	Qty       int     `json:"qty"`
	UnitPrice float64 `json:"unit_price"`
}

// VerificationSlice is the private state of the email verification flow.
type VerificationSlice struct {
	Status           FlowStatus `json:"status"`
	CurrentEmail     string     `json:"current_email,omitempty"`
	Phone            string     `json:"phone,omitempty"`
	VerificationID   string     `json:"verification_id,omitempty"`
	CodeAttemptsLeft int        `json:"code_attempts_left"`
	LastCodeEntered  string     `json:"last_code_entered,omitempty"`
	ProposedEmail    string     `json:"proposed_email,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// CodeAttempts is how many incorrect verification codes a user may enter.
const CodeAttempts = 3

// DefaultVerification returns the idle verification slice.
func DefaultVerification() VerificationSlice {
	return VerificationSlice{Status: StatusIdle, CodeAttemptsLeft: CodeAttempts}
}

// SongIDSlice is the private state of the song identification flow.
type SongIDSlice struct {
	Status       FlowStatus `json:"status"`
	Query        string     `json:"query,omitempty"`
	Best         SongMatch  `json:"best,omitempty"`
	CatalogTrack *Track     `json:"catalog_track,omitempty"`
	AlreadyOwned bool       `json:"already_owned,omitempty"`
	Video        Video      `json:"video,omitempty"`
}

// DefaultSongID returns the idle song identification slice.
func DefaultSongID() SongIDSlice {
	return SongIDSlice{Status: StatusIdle}
}

// PurchaseSlice is the private state of the purchase resolution flow.
// Zero values mean "not parsed": track ids and list positions are 1-based.
type PurchaseSlice struct {
	Status           FlowStatus `json:"status"`
	Query            string     `json:"query,omitempty"`
	ParsedTrackID    int        `json:"parsed_track_id,omitempty"`
	NumericRef       int        `json:"numeric_ref,omitempty"`
	CandidateTrackID []int      `json:"candidate_track_ids,omitempty"`
	SelectedTrackID  int        `json:"selected_track_id,omitempty"`
	Error            string     `json:"error,omitempty"`
}

// DefaultPurchase returns the idle purchase slice.
func DefaultPurchase() PurchaseSlice {
	return PurchaseSlice{Status: StatusIdle}
}

// PaymentSlice is the private state of the payment flow.
type PaymentSlice struct {
	Status         FlowStatus `json:"status"`
	IntentID       string     `json:"intent_id,omitempty"`
	Items          []LineItem `json:"items,omitempty"`
	Total          float64    `json:"total"`
	TransactionID  string     `json:"transaction_id,omitempty"`
	InvoiceID      int        `json:"invoice_id,omitempty"`
	PartialFailure bool       `json:"partial_failure,omitempty"`
	Error          string     `json:"error,omitempty"`
}

// DefaultPayment returns the idle payment slice.
func DefaultPayment() PaymentSlice {
	return PaymentSlice{Status: StatusIdle}
}

// Frame is one level of the suspension path: the graph that was executing
// and the step that must receive the resume value.
type Frame struct {
	Graph string `json:"graph"`
	Step  string `json:"step"`
}

// Pending records an in-flight suspension: the prompt shown to the user and
// the path of graph frames (outermost first) leading back to the suspended
// step.
type Pending struct {
	Frames []Frame `json:"frames"`
	Prompt Prompt  `json:"prompt"`
}

// TurnReceipt is the recorded outcome of the last resume, kept so that a
// client that crashed between checkpoint write and response delivery can
// replay the resume and observe the identical result without re-running any
// side effects.
type TurnReceipt struct {
	Value  string       `json:"value"`
	Outbox []OutboxItem `json:"outbox"`
	Prompt *Prompt      `json:"prompt,omitempty"`
}

// State is the aggregate conversation state threaded through every step of
// every graph. One live State exists per thread.
type State struct {
	ThreadID    string    `json:"thread_id"`
	UserID      int       `json:"user_id"`
	History     []Message `json:"history"`
	Route       Route     `json:"route"`
	LastUserMsg string    `json:"last_user_msg,omitempty"`
	Verified    bool      `json:"verified,omitempty"`

	Verification VerificationSlice `json:"verification"`
	SongID       SongIDSlice       `json:"song_id"`
	Purchase     PurchaseSlice     `json:"purchase"`
	Payment      PaymentSlice      `json:"payment"`

	// LastTrackIDs is the cross-turn context: the catalogue track ids most
	// recently shown to the user. Replaced wholesale, never appended.
	LastTrackIDs []int `json:"last_track_ids,omitempty"`

	// Outbox accumulates the output of the current invocation only.
	Outbox []OutboxItem `json:"outbox,omitempty"`

	// Pending is set while a suspension awaits a resume value.
	Pending *Pending `json:"pending,omitempty"`

	// LastReceipt records the outcome of the most recent resume.
	LastReceipt *TurnReceipt `json:"last_receipt,omitempty"`

	// Sealed holds the encrypted serialized form of the state when the
	// store is wrapped by the encryption middleware. A sealed state carries
	// no other fields.
	Sealed string `json:"sealed,omitempty"`
}

// NewState creates the initial state for a fresh thread.
func NewState(threadID string, userID int) *State {
	return &State{
		ThreadID:     threadID,
		UserID:       userID,
		Route:        RouteNormal,
		Verification: DefaultVerification(),
		SongID:       DefaultSongID(),
		Purchase:     DefaultPurchase(),
		Payment:      DefaultPayment(),
	}
}

// Clone returns a deep copy so stores and checkpoints never alias live state.
func (s *State) Clone() *State {
	if s == nil {
		return nil
	}
	next := *s
	next.History = append([]Message(nil), s.History...)
	next.LastTrackIDs = append([]int(nil), s.LastTrackIDs...)
	next.Outbox = cloneOutbox(s.Outbox)
	next.Payment.Items = append([]LineItem(nil), s.Payment.Items...)
	next.Purchase.CandidateTrackID = append([]int(nil), s.Purchase.CandidateTrackID...)
	if s.SongID.CatalogTrack != nil {
		t := *s.SongID.CatalogTrack
		next.SongID.CatalogTrack = &t
	}
	if s.Pending != nil {
		p := Pending{
			Frames: append([]Frame(nil), s.Pending.Frames...),
			Prompt: s.Pending.Prompt.clone(),
		}
		next.Pending = &p
	}
	if s.LastReceipt != nil {
		r := TurnReceipt{
			Value:  s.LastReceipt.Value,
			Outbox: cloneOutbox(s.LastReceipt.Outbox),
		}
		if s.LastReceipt.Prompt != nil {
			pp := s.LastReceipt.Prompt.clone()
			r.Prompt = &pp
		}
		next.LastReceipt = &r
	}
	return &next
}

// ResetFinishedFlows returns finished flow slices to their idle defaults so a
// completed flow cannot be accidentally re-entered on the next turn.
func (s *State) ResetFinishedFlows() {
	if s.Verification.Status.Terminal() {
		s.Verification = DefaultVerification()
	}
	if s.SongID.Status.Terminal() {
		s.SongID = DefaultSongID()
	}
	if s.Purchase.Status.Terminal() {
		s.Purchase = DefaultPurchase()
	}
	if s.Payment.Status.Terminal() {
		s.Payment = DefaultPayment()
	}
}

func cloneOutbox(items []OutboxItem) []OutboxItem {
	if items == nil {
		return nil
	}
	out := make([]OutboxItem, len(items))
	for i, it := range items {
		out[i] = it.clone()
	}
	return out
}
