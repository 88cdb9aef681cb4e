// Package store persists resolved callback events to Postgres.
//
// Each event is appended to a per-device log; consumers read back the
// most recent N records or drop a device's history outright. The store
// plugs into dispatch as an ordinary handler, so persistence rides the
// same per-token queue as any other consumer.
package store
