// Package agent implements the tool-calling loop: an Agent repeatedly asks a
// provider for the next assistant message, executes any requested tools, and
// feeds the results back until the model stops calling tools, a stop
// condition fires, or the step budget runs out.
//
// Tool failures never abort a run; they are fed back to the model as
// error-flagged results. Provider failures abort immediately and are never
// retried here; wrap the provider with the resilience package when retries
// are wanted.
package agent
