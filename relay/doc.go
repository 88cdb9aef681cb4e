// Package relay publishes resolved callback events to NATS.
//
// Subjects follow <prefix>.<device>.<leaf>, so a consumer can watch one
// device with "notify.dev-1.>" or one callback kind everywhere with
// "notify.*.TaskChainCompleted". The relay plugs into dispatch as an
// ordinary handler and never blocks delivery on the broker.
package relay
