package types

// CheckResult is one probe outcome as submitted by the agent.
// Timestamp is RFC 3339 UTC; StatusCode and ErrorMessage are nil when the
// probe never received an HTTP response.
type CheckResult struct {
	TargetURL      string  `json:"target_url"`
	StatusCode     *int    `json:"status_code"`
	ResponseTimeMs int     `json:"response_time_ms"`
	IsSuccess      bool    `json:"is_success"`
	Timestamp      string  `json:"timestamp"`
	ErrorMessage   *string `json:"error_message,omitempty"`
}

// SubmitResponse is the server's confirmation for an accepted check result.
type SubmitResponse struct {
	Success bool `json:"success"`
	EventID uint `json:"event_id"`
}
