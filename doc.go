// Package notifybridge decodes and dispatches callbacks from a
// long-running automation engine to Go consumers.
//
// The engine reports progress through a C-style callback: a message kind,
// a JSON payload, and an opaque context token. This library turns that
// into typed events delivered in order to registered Go handlers, without
// ever letting a malformed payload or a stale token unwind into the
// engine's calling thread.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	notifybridge/        Root package re-exporting the consumer-facing API
//	├── bridge/          Trampoline entry points and pipeline assembly
//	├── envelope/        Outer callback payload decoding and validation
//	├── variant/         Tagged payload resolution and the kind catalog
//	├── registry/        Context token table with safe deregistration
//	├── dispatch/        Per-token ordered delivery queues
//	├── config/          Environment-driven configuration
//	├── store/           Postgres persistence for callback history
//	├── relay/           NATS publishing of resolved events
//	└── errors/          Structured error types for diagnostics
//
// # Quick Start
//
// Register a handler and feed it callbacks:
//
//	b, _ := notifybridge.New()
//	defer b.Close()
//
//	token, _ := b.Register(notifybridge.HandlerFunc(
//		func(ctx context.Context, ev *notifybridge.Event) {
//			log.Println(ev.Summary, ev.Path())
//		}))
//
//	// From the engine callback:
//	b.Notify(kind, payloadJSON, token)
//
// Deregistration is safe at any time: when Deregister returns, no handler
// invocation is running and none will start.
package notifybridge
