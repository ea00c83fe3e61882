package security

// StatusResponse is the admin view of one identity's block state
type StatusResponse struct {
	Kind              string `json:"kind"`
	Blocked           bool   `json:"blocked"`
	RetryAfterSeconds int    `json:"retry_after_seconds"`
	Attempts          int    `json:"attempts"`
}
