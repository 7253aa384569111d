package pkg

const (
	HeaderTraceId   string = "X-Trace-Id"
	HeaderRequestId string = "X-Request-Id"
)

const (
	TraceId  string = "trace_id"
	FormId   string = "form_id"
	Field    string = "field"
	Token    string = "token"
	Currency string = "currency"
	Network  string = "network"
)

// DefaultToken is the source asset selected when a form is created.
const DefaultToken = "USDC"

type SubmissionStatus string

const (
	SubmissionStatusEncrypted SubmissionStatus = "encrypted"
	SubmissionStatusRejected  SubmissionStatus = "rejected"
	SubmissionStatusFailed    SubmissionStatus = "failed"
)
