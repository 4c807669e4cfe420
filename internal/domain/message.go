// Package domain holds the data types shared by the channel store, the
// MCP tool surface, and the agent controllers. None of these types know
// how they are persisted.
package domain

// MessageKind classifies a channel entry. The zero value is a plain
// agent-visible message.
type MessageKind string

const (
	KindMessage  MessageKind = ""
	KindSystem   MessageKind = "system"
	KindOutput   MessageKind = "output"
	KindToolCall MessageKind = "tool_call"
	KindDebug    MessageKind = "debug"
)

// ToolCall is populated on entries with Kind == KindToolCall.
type ToolCall struct {
	Name   string         `json:"name"`
	Args   map[string]any `json:"args,omitempty"`
	Source string         `json:"source,omitempty"`
}

// Message is the sole durable communication unit. Once appended it is
// immutable: no field is ever rewritten.
type Message struct {
	ID        string      `json:"id"`
	Timestamp string      `json:"timestamp"` // ISO-8601 UTC, millisecond precision
	From      string      `json:"from"`
	Content   string      `json:"content"`
	Mentions  []string    `json:"mentions,omitempty"`
	To        string      `json:"to,omitempty"`
	Kind      MessageKind `json:"kind,omitempty"`
	ToolCall  *ToolCall   `json:"toolCall,omitempty"`
}

// InboxEntry is one annotated message returned by a getInbox query.
type InboxEntry struct {
	Message
	Priority string `json:"priority"` // "dm" | "mention" | "system-mention"
	Seen     bool   `json:"seen"`
}
