package domain

// PromptKind distinguishes the two suspension payload shapes.
type PromptKind string

const (
	// PromptConfirm asks the user to pick one of a closed set of choices.
	PromptConfirm PromptKind = "confirm"
	// PromptInput asks the user for free text.
	PromptInput PromptKind = "input"
)

// Canonical confirm choices.
const (
	ChoiceYes = "Yes"
	ChoiceNo  = "No"
)

// Prompt is the payload of a suspension: what the caller should show the
// user to collect the resume value. The shape is stable regardless of
// transport.
type Prompt struct {
	Kind        PromptKind `json:"kind"`
	Title       string     `json:"title"`
	Text        string     `json:"text"`
	Context     string     `json:"context,omitempty"`
	Choices     []string   `json:"choices,omitempty"`
	Placeholder string     `json:"placeholder,omitempty"`
}

// Confirm builds a yes/no confirmation prompt.
func Confirm(title, text string) Prompt {
	return Prompt{
		Kind:    PromptConfirm,
		Title:   title,
		Text:    text,
		Choices: []string{ChoiceYes, ChoiceNo},
	}
}

// Choose builds a confirmation prompt over an explicit choice list.
func Choose(title, text string, choices []string) Prompt {
	return Prompt{
		Kind:    PromptConfirm,
		Title:   title,
		Text:    text,
		Choices: choices,
	}
}

// Input builds a free-text prompt.
func Input(title, text, placeholder string) Prompt {
	return Prompt{
		Kind:        PromptInput,
		Title:       title,
		Text:        text,
		Placeholder: placeholder,
	}
}

// WithContext returns a copy of the prompt carrying pre-question context
// (for example the error from a rejected previous answer).
func (p Prompt) WithContext(ctx string) Prompt {
	p.Context = ctx
	return p
}

func (p Prompt) clone() Prompt {
	p.Choices = append([]string(nil), p.Choices...)
	return p
}
