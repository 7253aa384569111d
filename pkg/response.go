package pkg

// APIResponse is the envelope of every successful API response.
type APIResponse struct {
	TraceID string `json:"traceId"`
	Data    any    `json:"data"`
}
