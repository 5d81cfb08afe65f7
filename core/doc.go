// Package core contains the shared data types of agentloop: conversation
// messages, tool call references and the turn configuration. These types are
// intentionally free of behavior beyond construction and validation so that
// every other package can depend on them without cycles.
package core
