// Package api is the HTTP surface of pulsewatch-server: the authenticated
// event submission endpoint that drives the correlator, and the alert and
// notification query/update endpoints.
package api
