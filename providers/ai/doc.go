// Package ai defines the shared data model and the provider contract that the
// rest of the module builds on: messages made of ordered typed parts, token
// usage accounting, generation options, the Provider and StreamProvider
// interfaces, the typed error family used for resilience classification, and
// the streaming event iterator.
//
// Everything above this package (the agent loop, the graph orchestrator, the
// resilience wrappers) talks to a model exclusively through [Provider], so a
// concrete implementation only has to translate between these types and its
// wire format.
package ai
