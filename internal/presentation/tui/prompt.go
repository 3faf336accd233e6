package tui

import (
	"fmt"
	"strings"

	"github.com/harmonyshop/cadenza/pkg/domain"
)

// FormatPrompt renders a suspension prompt as markdown for the chat loop.
func FormatPrompt(p domain.Prompt) string {
	var b strings.Builder
	if p.Context != "" {
		fmt.Fprintf(&b, "%s\n\n", p.Context)
	}
	fmt.Fprintf(&b, "**%s**\n\n%s\n", p.Title, p.Text)
	if len(p.Choices) > 0 {
		b.WriteString("\n")
		for i, choice := range p.Choices {
			fmt.Fprintf(&b, "%d. %s\n", i+1, choice)
		}
	}
	if p.Kind == domain.PromptInput && p.Placeholder != "" {
		fmt.Fprintf(&b, "\n_e.g. %s_\n", p.Placeholder)
	}
	return b.String()
}

// FormatOutbox renders the turn's output items as one markdown document.
func FormatOutbox(items []domain.OutboxItem) string {
	var parts []string
	for _, it := range items {
		switch it.Kind {
		case domain.OutboxText:
			parts = append(parts, it.Text)
		case domain.OutboxEmbed:
			if it.Embed != nil {
				parts = append(parts, fmt.Sprintf("▶ %s", it.Embed.URL))
			}
		case domain.OutboxReceipt:
			if it.Receipt != nil {
				parts = append(parts, formatReceipt(*it.Receipt))
			}
		}
	}
	return strings.Join(parts, "\n\n")
}

func formatReceipt(r domain.Receipt) string {
	var b strings.Builder
	b.WriteString("```\n")
	fmt.Fprintf(&b, "Receipt #%d\n", r.InvoiceID)
	for _, line := range r.Lines {
		fmt.Fprintf(&b, "  %s  x%d  $%.2f\n", line.Name, line.Qty, line.UnitPrice)
	}
	fmt.Fprintf(&b, "  Total: $%.2f\n", r.Total)
	fmt.Fprintf(&b, "  Transaction: %s\n", r.TransactionID)
	b.WriteString("```")
	return b.String()
}
