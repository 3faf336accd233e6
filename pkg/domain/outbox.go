package domain

// OutboxKind identifies the shape of one output unit.
type OutboxKind string

const (
	OutboxText    OutboxKind = "text"
	OutboxEmbed   OutboxKind = "embed"
	OutboxReceipt OutboxKind = "receipt"
)

// Embed is a playable media reference surfaced to the user.
type Embed struct {
	Provider string `json:"provider"`
	VideoID  string `json:"video_id"`
	URL      string `json:"url"`
	HTML     string `json:"html,omitempty"`
}

// Receipt summarizes a completed purchase.
type Receipt struct {
	InvoiceID     int        `json:"invoice_id"`
	TransactionID string     `json:"transaction_id"`
	Total         float64    `json:"total"`
	Lines         []LineItem `json:"lines"`
}

// OutboxItem is one unit of assistant output produced during an invocation.
type OutboxItem struct {
	Kind    OutboxKind `json:"kind"`
	Text    string     `json:"text,omitempty"`
	Embed   *Embed     `json:"embed,omitempty"`
	Receipt *Receipt   `json:"receipt,omitempty"`
}

// TextItem wraps plain assistant text as an outbox item.
func TextItem(text string) OutboxItem {
	return OutboxItem{Kind: OutboxText, Text: text}
}

// EmbedItem wraps a media embed as an outbox item.
func EmbedItem(e Embed) OutboxItem {
	return OutboxItem{Kind: OutboxEmbed, Embed: &e}
}

// ReceiptItem wraps a purchase receipt as an outbox item.
func ReceiptItem(r Receipt) OutboxItem {
	return OutboxItem{Kind: OutboxReceipt, Receipt: &r}
}

func (it OutboxItem) clone() OutboxItem {
	if it.Embed != nil {
		e := *it.Embed
		it.Embed = &e
	}
	if it.Receipt != nil {
		r := *it.Receipt
		r.Lines = append([]LineItem(nil), it.Receipt.Lines...)
		it.Receipt = &r
	}
	return it
}

// TurnResult is what one engine invocation hands back to the caller: the
// output produced this invocation, and the prompt to show if the turn
// suspended waiting for the user.
type TurnResult struct {
	Outbox []OutboxItem `json:"outbox"`
	Prompt *Prompt      `json:"prompt,omitempty"`
}

// Suspended reports whether the turn stopped at a suspension.
func (r TurnResult) Suspended() bool {
	return r.Prompt != nil
}
