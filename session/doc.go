// Package session provides conversation history storage keyed by thread
// identifier. The Store interface allows alternative backends; InMemoryStore
// is the default process-local implementation.
package session
