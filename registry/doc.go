// Package registry issues and tracks the context tokens exchanged with the
// engine.
//
// The engine callback carries an opaque token chosen at registration time;
// the registry is the only owner of the token to handler mapping. Tokens are
// generation-tagged arena handles, never raw pointers: the engine holds a
// lookup key, and a deregistered token stays dead forever even after its
// slot is recycled.
//
// Resolve returns a Lease that pins the slot for the duration of one
// callback. Deregister removes the mapping and then blocks until every
// outstanding lease is released, which is the guarantee that lets the
// consumer destroy the handler afterward: once Deregister returns, no
// callback can be touching it.
//
// Resolving a token that was never issued, or has been deregistered, simply
// reports false. The trampoline treats that as a silent drop, since the
// engine may still emit in-flight callbacks for a torn-down registration.
package registry
