// Package tool provides the tool registry and the built-in tools of
// agentloop: sandboxed file access, a safe arithmetic calculator, a
// deterministic web search stub and a system information report.
//
// Tools are registered as Specs. The registry validates arguments against the
// spec's JSON schema before dispatch and converts handler panics into error
// results, so a misbehaving tool can never crash a turn.
package tool
