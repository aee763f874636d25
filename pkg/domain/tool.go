package domain

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // raw JSON object
}

// ToolResult is the output of a ToolCall, fed back to the model.
type ToolResult struct {
	ID      string `json:"id"` // Must match the ToolCall.ID
	Name    string `json:"name"`
	Content string `json:"content"`
	IsError bool   `json:"is_error,omitempty"`
}

// Tool defines metadata about a tool offered to the model.
type Tool struct {
	Name        string         `json:"name" mapstructure:"name"`
	Description string         `json:"description" mapstructure:"description"`
	Parameters  map[string]any `json:"parameters,omitempty" mapstructure:"parameters"` // JSON Schema
}
