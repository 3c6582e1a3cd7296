// Package ws streams newly created alerts to WebSocket subscribers.
//
// The hub is push-driven: the correlator publishes each alert as it is
// created and the hub fans it out to every connected client. Slow clients
// are disconnected rather than allowed to stall the fan-out.
package ws
