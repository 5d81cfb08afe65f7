package session

import "github.com/hupe1980/agentloop/core"

// Store persists conversation history per thread. Implementations must
// guarantee per-thread append atomicity: an Append either lands completely or
// not at all, and concurrent Appends on one thread never interleave their
// messages.
type Store interface {
	// Load returns the full history of a thread in insertion order. Loading
	// an unknown thread returns an empty slice and has no side effects.
	Load(threadID string) []core.Message

	// Append adds messages to the end of a thread's history, creating the
	// thread on first use.
	Append(threadID string, msgs []core.Message) error

	// Clear removes a thread's history. It reports whether the thread existed.
	Clear(threadID string) bool
}
