// Package bridge is the entry point the engine's callback lands in.
//
// The engine invokes a fixed-signature callback from arbitrary internal
// threads: a message kind, a JSON detail blob, and the opaque context token
// issued at registration. Notify and NotifyCode are that callback's Go
// ends. Their contract is strict: return promptly, never panic, never let a
// decoding or dispatch failure unwind into the engine.
//
// The path per invocation is registry resolve (pinning the registration),
// envelope decode, variant resolve, enqueue to the dispatch sink, release.
// Decoding is bounded CPU work and happens inline on the calling thread;
// handler execution never does. Malformed envelopes and stale tokens are
// absorbed as diagnostics; the stream for a token ends only through
// Deregister or Close.
//
// Duplicate envelope ids are delivered as independent events. The layer
// performs no deduplication.
package bridge
