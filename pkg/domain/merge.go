package domain

// Update is the state delta returned by one step. Merge semantics are
// explicit and field-specific: History and Outbox concatenate onto the
// aggregate, everything else replaces when set. This is the reducer invoked
// both for ordinary steps and when a sub-graph's result folds back into its
// parent.
type Update struct {
	History []Message
	Outbox  []OutboxItem

	Route       *Route
	LastUserMsg *string
	Verified    *bool

	Verification *VerificationSlice
	SongID       *SongIDSlice
	Purchase     *PurchaseSlice
	Payment      *PaymentSlice

	// LastTrackIDs replaces the cross-turn track context when non-nil.
	LastTrackIDs []int
}

// Apply merges the update into the state.
func (s *State) Apply(u Update) {
	s.History = append(s.History, u.History...)
	s.Outbox = append(s.Outbox, u.Outbox...)

	if u.Route != nil {
		s.Route = *u.Route
	}
	if u.LastUserMsg != nil {
		s.LastUserMsg = *u.LastUserMsg
	}
	if u.Verified != nil {
		s.Verified = *u.Verified
	}
	if u.Verification != nil {
		s.Verification = *u.Verification
	}
	if u.SongID != nil {
		s.SongID = *u.SongID
	}
	if u.Purchase != nil {
		s.Purchase = *u.Purchase
	}
	if u.Payment != nil {
		s.Payment = *u.Payment
	}
	if u.LastTrackIDs != nil {
		s.LastTrackIDs = append([]int(nil), u.LastTrackIDs...)
	}
}

func ptr[T any](v T) *T { return &v }

// RouteOf, MsgOf and VerifiedOf build pointer fields for updates.
func RouteOf(r Route) *Route { return ptr(r) }
func MsgOf(m string) *string { return ptr(m) }
func VerifiedOf(v bool) *bool { return ptr(v) }
