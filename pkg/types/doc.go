// Package types defines the shared wire types exchanged between
// pulsewatch-agent and pulsewatch-server over the events submission endpoint.
package types
