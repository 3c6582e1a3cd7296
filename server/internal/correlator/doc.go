// Package correlator maps the stream of check results for a target onto
// alert lifecycles.
//
// Per target the machine has two states: healthy (no open alert) and
// degraded (one OPEN/ACK alert). A failure report opens an ERROR alert only
// when no live alert covers the target, so repeated failures during one
// incident notify exactly once. A success report resolves every live alert
// for the target and emits one RECOVERY alert that is born RESOLVED.
//
// The check-then-create is serialized per target with a mutex held across
// the whole read-modify-write, so concurrent failure reports for one target
// cannot open duplicate alerts. The store's partial unique index on open
// alerts backs the same invariant durably.
package correlator
