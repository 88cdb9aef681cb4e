package notifybridge

import (
	"github.com/maago/notify-bridge/bridge"
	"github.com/maago/notify-bridge/config"
	"github.com/maago/notify-bridge/dispatch"
	"github.com/maago/notify-bridge/registry"
	"github.com/maago/notify-bridge/variant"
)

// Token identifies one handler registration. The engine echoes it back on
// every callback; the bridge resolves it to the handler, or drops the
// callback as stale after deregistration.
type Token = registry.Token

// Handler consumes resolved events in registration order.
type Handler = dispatch.Handler

// HandlerFunc adapts a function to the Handler interface.
type HandlerFunc = dispatch.HandlerFunc

// Event is a decoded callback: envelope identity plus the resolved
// payload tree.
type Event = variant.Event

// Diagnostic reports an absorbed failure: a malformed envelope, a stale
// token, or a dropped event.
type Diagnostic = dispatch.Diagnostic

// Bridge is the callback decoding and dispatch pipeline.
type Bridge = bridge.Bridge

// Option configures a Bridge.
type Option = bridge.Option

// WithCatalog installs a variant catalog other than the built-in one.
var WithCatalog = bridge.WithCatalog

// WithDiagnosticHandler installs a hook receiving every absorbed failure.
var WithDiagnosticHandler = bridge.WithDiagnosticHandler

// New builds a bridge with default configuration, applying any overrides
// from the environment.
func New(opts ...Option) (*Bridge, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return bridge.New(cfg, opts...)
}

// NewWithConfig builds a bridge from explicit configuration.
func NewWithConfig(cfg *config.Config, opts ...Option) (*Bridge, error) {
	return bridge.New(cfg, opts...)
}
