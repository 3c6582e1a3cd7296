// Package transmitter delivers check results to the pulsewatch-server events
// endpoint.
//
// Deliver blocks for the whole retry sequence: a connection failure is
// retried with exponential backoff (backoff_base^attempt seconds) up to
// max_retries times, then the result is dropped — there is no persistent
// outbound queue, the next probe cycle supersedes a lost result. A response
// other than 201 Created is a permanent rejection and is not retried.
//
// The sleep function and HTTP client are injectable for tests.
package transmitter
