package core

import (
	"time"

	"github.com/hupe1980/agentloop/internal/util"
)

// Role identifies the author type of a message.
type Role string

const (
	// RoleSystem marks the system prompt message.
	RoleSystem Role = "system"
	// RoleUser marks messages authored by the end user.
	RoleUser Role = "user"
	// RoleAssistant marks messages produced by the model.
	RoleAssistant Role = "assistant"
	// RoleTool marks tool execution results fed back to the model.
	RoleTool Role = "tool"
)

// ToolCall is a model request to invoke a named tool. Arguments is the raw
// JSON object string as emitted by the model.
type ToolCall struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// Message is a single entry in a conversation thread. Messages are treated as
// immutable after construction: stores copy on read and callers must not
// mutate returned slices.
type Message struct {
	ID         string     `json:"id"`
	Role       Role       `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
	ToolName   string     `json:"tool_name,omitempty"`
	Timestamp  time.Time  `json:"timestamp"`
}

// HasToolCalls reports whether the message carries at least one tool call.
func (m Message) HasToolCalls() bool {
	return len(m.ToolCalls) > 0
}

// NewSystemMessage creates a system prompt message.
func NewSystemMessage(content string) Message {
	return newMessage(RoleSystem, content)
}

// NewUserMessage creates a user message.
func NewUserMessage(content string) Message {
	return newMessage(RoleUser, content)
}

// NewAssistantMessage creates an assistant message without tool calls.
func NewAssistantMessage(content string) Message {
	return newMessage(RoleAssistant, content)
}

// NewAssistantToolCallMessage creates an assistant message that requests tool
// invocations. Content may be empty when the model emits only calls.
func NewAssistantToolCallMessage(content string, calls []ToolCall) Message {
	msg := newMessage(RoleAssistant, content)
	msg.ToolCalls = append([]ToolCall(nil), calls...)
	return msg
}

// NewToolMessage creates a tool result message bound to the originating call.
func NewToolMessage(callID, toolName, content string) Message {
	msg := newMessage(RoleTool, content)
	msg.ToolCallID = callID
	msg.ToolName = toolName
	return msg
}

func newMessage(role Role, content string) Message {
	return Message{
		ID:        util.NewID(),
		Role:      role,
		Content:   content,
		Timestamp: time.Now().UTC(),
	}
}

// CloneMessages returns a shallow copy of a message slice with tool call
// slices copied as well, so callers can hold the result without aliasing.
func CloneMessages(msgs []Message) []Message {
	if msgs == nil {
		return nil
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	for i := range out {
		if len(out[i].ToolCalls) > 0 {
			out[i].ToolCalls = append([]ToolCall(nil), out[i].ToolCalls...)
		}
	}
	return out
}
