// Package probe performs a single black-box HTTP check of the monitored
// target and normalizes the outcome into a CheckResult: status code and
// latency on a response, a descriptive error message otherwise. An HTTP
// status in [200, 400) counts as success.
package probe
