package bridge

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/maago/notify-bridge/config"
	"github.com/maago/notify-bridge/dispatch"
	"github.com/maago/notify-bridge/envelope"
	"github.com/maago/notify-bridge/errors"
	"github.com/maago/notify-bridge/registry"
	"github.com/maago/notify-bridge/variant"
)

// Bridge wires the context registry, envelope decoder, variant resolver and
// dispatch sink into the single notification path the engine calls into.
type Bridge struct {
	registry *registry.Registry
	sink     *dispatch.Sink
	resolver *variant.Resolver
	diag     dispatch.DiagnosticFunc
}

// Option customizes a Bridge.
type Option func(*options)

type options struct {
	catalog *variant.Catalog
	diag    dispatch.DiagnosticFunc
}

// WithCatalog replaces the built-in variant catalog.
func WithCatalog(c *variant.Catalog) Option {
	return func(o *options) { o.catalog = c }
}

// WithDiagnosticHandler installs a hook for absorbed failures: malformed
// envelopes, stale tokens, queue overflow. The hook is called from engine
// and worker goroutines and must be safe for concurrent use.
func WithDiagnosticHandler(fn dispatch.DiagnosticFunc) Option {
	return func(o *options) { o.diag = fn }
}

// New builds a bridge from configuration.
func New(cfg *config.Config, opts ...Option) (*Bridge, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}
	if o.catalog == nil {
		o.catalog = variant.Builtin()
	}

	policy, err := dispatch.ParsePolicy(cfg.OverflowPolicy)
	if err != nil {
		return nil, err
	}

	b := &Bridge{
		registry: registry.New(),
		resolver: variant.NewResolver(o.catalog, cfg.MaxDepth),
		diag:     o.diag,
	}
	b.sink = dispatch.NewSink(dispatch.Options{
		Capacity:     cfg.QueueCapacity,
		Policy:       policy,
		BlockTimeout: cfg.BlockTimeout,
		OnDiagnostic: o.diag,
	})
	return b, nil
}

// Register creates a new registration for handler and returns the token to
// hand to the engine.
func (b *Bridge) Register(handler dispatch.Handler) (registry.Token, error) {
	token := b.registry.Register(handler)
	if token == 0 {
		return 0, errors.Closed(errors.PhaseRegistry, "bridge")
	}
	if err := b.sink.Open(token, handler); err != nil {
		b.registry.Deregister(token)
		return 0, err
	}
	return token, nil
}

// Deregister tears down a registration. When it returns, no callback is
// executing for the token, nothing further will be delivered, and the
// consumer may destroy the handler. Engine callbacks still naming the token
// are dropped as stale.
func (b *Bridge) Deregister(token registry.Token) bool {
	// Registry first: once this returns, no trampoline invocation holds a
	// lease, so no new event can reach the queue.
	ok := b.registry.Deregister(token)
	b.sink.Close(token)
	return ok
}

// Close tears down every registration.
func (b *Bridge) Close() {
	b.registry.Close()
	b.sink.CloseAll()
}

// Len returns the number of live registrations.
func (b *Bridge) Len() int {
	return b.registry.Len()
}

// Notify is the stabilized trampoline: the engine calls it with the message
// kind, the envelope JSON, and the context token echoed from registration.
//
// It is safe to call from any goroutine or engine thread, concurrently and
// reentrantly. It never panics and never blocks beyond the configured
// enqueue bound; every failure is absorbed into a diagnostic.
func (b *Bridge) Notify(kind string, detailsJSON string, token registry.Token) {
	defer b.absorb(token)

	env, err := envelope.DecodeTagged(kind, []byte(detailsJSON))
	b.deliver(env, err, token)
}

// NotifyCode is the legacy trampoline for engines that still emit numeric
// message kinds.
func (b *Bridge) NotifyCode(code int, detailsJSON string, token registry.Token) {
	defer b.absorb(token)

	env, err := envelope.DecodeLegacy(code, []byte(detailsJSON))
	b.deliver(env, err, token)
}

func (b *Bridge) deliver(env *envelope.Envelope, decodeErr error, token registry.Token) {
	lease, ok := b.registry.Resolve(token)
	if !ok {
		// The engine may emit in-flight callbacks for a registration that
		// was just torn down. Drop silently, log once per occurrence.
		b.report(errors.StaleToken(uint64(token)), token)
		return
	}
	defer lease.Release()

	if decodeErr != nil {
		b.report(asStructured(decodeErr), token)
		return
	}

	root, err := b.resolver.Resolve(env.Type, env.Details)
	if err != nil {
		b.report(asStructured(err), token)
		return
	}

	// Offer reports overflow through the sink's own diagnostic path.
	_ = b.sink.Offer(token, variant.NewEvent(env, root))
}

// absorb keeps a defect anywhere in decode or dispatch from unwinding into
// the engine's calling thread.
func (b *Bridge) absorb(token registry.Token) {
	if r := recover(); r != nil {
		Logger().Error("trampoline panic",
			zap.Uint64("token", uint64(token)),
			zap.Any("panic", r))
	}
}

func (b *Bridge) report(err *errors.Error, token registry.Token) {
	Logger().Warn("notification absorbed",
		zap.Uint64("token", uint64(token)),
		zap.String("phase", string(err.Phase)),
		zap.String("kind", string(err.Kind)),
		zap.Error(err))
	if b.diag != nil {
		b.diag(dispatch.Diagnostic{Err: err, Token: token})
	}
}

func asStructured(err error) *errors.Error {
	if e, ok := err.(*errors.Error); ok {
		return e
	}
	return errors.Wrap(errors.PhaseParse, errors.KindMalformedEnvelope, err, "decode failed")
}

// EncodeEvent renders a resolved event back to JSON for transports and
// inspection tools. The shape mirrors the wire envelope with the resolved
// path and leaf fields in place of the raw details.
func EncodeEvent(ev *variant.Event) ([]byte, error) {
	leaf := ev.Leaf()
	out := map[string]any{
		"id":        ev.ID.String(),
		"timestamp": ev.Timestamp,
		"msg":       ev.Summary,
		"path":      ev.Path(),
	}
	if leaf != nil {
		out["leaf"] = leaf.NodeTag
		out["unknown"] = leaf.Unknown
		if leaf.Fields != nil {
			out["fields"] = leaf.Fields
		} else {
			out["fields"] = leaf.Raw
		}
	}
	return json.Marshal(out)
}
