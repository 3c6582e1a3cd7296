// Package auth provides API key authentication middleware for the inbound
// event submission endpoint.
package auth
