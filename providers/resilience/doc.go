// Package resilience wraps providers with failure-handling behavior: retries
// with exponential backoff, a circuit breaker, and an ordered fallback chain.
// Every wrapper implements ai.Provider itself, so they compose freely; the
// [Resilient] builder assembles the conventional stack (breaker innermost,
// retry around it, fallback outermost).
//
// The agent loop and the graph executor stay oblivious to all of this: they
// see one Provider.
package resilience
