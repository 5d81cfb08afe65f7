// Package flow implements the turn state machine: the loop that alternates
// model invocations and tool dispatch until the model produces a final answer
// or the round limit is reached.
package flow
