package domain

// ToolCall is a request from the chat agent to execute one named operation
// from the closed tool set. The engine owns validation and execution; the
// agent only selects from the set.
type ToolCall struct {
	ID   string         `json:"id" mapstructure:"id"`
	Name string         `json:"name" mapstructure:"name"`
	Args map[string]any `json:"args,omitempty" mapstructure:"args"`
}

// ToolResult is the outcome of executing a ToolCall.
type ToolResult struct {
	ID      string `json:"id"`
	Text    string `json:"text,omitempty"`
	IsError bool   `json:"is_error,omitempty"`
	Error   string `json:"error,omitempty"`

	// TrackIDs lists catalogue track ids the tool surfaced to the user,
	// feeding the cross-turn context.
	TrackIDs []int `json:"track_ids,omitempty"`
}

// Tool describes one operation available to the chat agent.
type Tool struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}
