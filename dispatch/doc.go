// Package dispatch delivers resolved events to registered handlers.
//
// The engine invokes the callback from its own internal threads and must
// never be stalled by a slow consumer. The sink therefore decouples the two
// sides: the trampoline only enqueues, and a per-token worker goroutine
// drains the queue and invokes the handler.
//
// Guarantees:
//
//   - Per-token order: events are delivered in the order they were offered
//     for that token. Nothing is guaranteed across tokens.
//   - Bounded enqueue: Offer returns within the overflow policy's bound.
//     The policies are DropNewest (default), DropOldest, and Block with a
//     timeout. Every drop is surfaced as a queue_overflow Diagnostic, never
//     silently.
//   - Contained handlers: a panicking handler is logged and the worker
//     moves on to the next event.
//
// Closing a token drops its undelivered backlog and waits for the in-flight
// handler call to return.
package dispatch
