package relay

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/maago/notify-bridge/bridge"
	"github.com/maago/notify-bridge/dispatch"
	"github.com/maago/notify-bridge/variant"
)

// DefaultSubjectPrefix is the first subject token when none is configured.
const DefaultSubjectPrefix = "notify"

// Connect establishes a NATS connection with reconnect handling suitable
// for a long-running bridge process.
func Connect(url, name string) (*nats.Conn, error) {
	nc, err := nats.Connect(url,
		nats.Name(name),
		nats.Timeout(10*time.Second),
		nats.ReconnectWait(2*time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			Logger().Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			Logger().Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("relay: connect %s: %w", url, err)
	}
	return nc, nil
}

// Relay publishes resolved events to NATS. Each event goes out on
// <prefix>.<device>.<leaf>, so consumers can subscribe to a whole device
// with a wildcard or to one callback kind across devices.
type Relay struct {
	nc     *nats.Conn
	prefix string
}

// New wraps an existing connection. An empty prefix selects
// DefaultSubjectPrefix.
func New(nc *nats.Conn, prefix string) *Relay {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Relay{nc: nc, prefix: prefix}
}

// Publish sends one event for device.
func (r *Relay) Publish(_ context.Context, device string, ev *variant.Event) error {
	data, err := bridge.EncodeEvent(ev)
	if err != nil {
		return fmt.Errorf("relay: encode event: %w", err)
	}

	subject := r.Subject(device, ev.LeafTag())
	if err := r.nc.Publish(subject, data); err != nil {
		return fmt.Errorf("relay: publish %s: %w", subject, err)
	}
	return nil
}

// Subject returns the subject an event for device with the given leaf tag
// is published on.
func (r *Relay) Subject(device, leaf string) string {
	return r.prefix + "." + sanitizeToken(device) + "." + sanitizeToken(leaf)
}

// Flush waits for all published events to reach the server.
func (r *Relay) Flush() error {
	return r.nc.Flush()
}

// Close drains and closes the connection.
func (r *Relay) Close() {
	r.nc.Close()
}

// Handler adapts the relay into a dispatch handler for device. Publish
// failures are logged, not propagated; a flapping broker must not stall
// the dispatch queue's worker.
func (r *Relay) Handler(device string) dispatch.Handler {
	return dispatch.HandlerFunc(func(ctx context.Context, ev *variant.Event) {
		if err := r.Publish(ctx, device, ev); err != nil {
			Logger().Warn("publish failed",
				zap.String("device", device),
				zap.String("event_id", ev.ID.String()),
				zap.Error(err))
		}
	})
}

// sanitizeToken makes a value safe as a single NATS subject token. Dots,
// wildcards, and whitespace are structural in subjects and get replaced.
func sanitizeToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t', '\n', '\r':
			return '_'
		}
		return r
	}, s)
}
