// Package notify delivers alerts through the configured notification
// channels and records one NotificationAttempt per channel per dispatch.
//
// Channels are failure-isolated: a channel reports its outcome as a value,
// never as a propagated error, so one dead channel (or all of them) cannot
// fail the alert operation that triggered the dispatch or starve a sibling
// channel of its attempt.
package notify
