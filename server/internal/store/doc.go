// Package store is the durable persistence layer: check events, alerts and
// notification attempts in a SQLite database accessed through GORM.
//
// Events and notification attempts are append-only. Alerts transition
// OPEN → ACK → RESOLVED (or OPEN → RESOLVED directly) and RESOLVED is
// terminal — UpdateStatus rejects any transition out of it. A partial unique
// index on alerts(target_url) for open statuses backs the correlator's
// one-open-alert-per-target invariant at the storage level.
package store
