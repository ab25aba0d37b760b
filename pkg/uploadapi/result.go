package uploadapi

// Kind classifies the outcome of an upload step. The set is closed: every
// network-facing operation ends in exactly one of these.
type Kind string

const (
	// KindSuccess is a completed operation.
	KindSuccess Kind = "success"

	// KindSkipped means the step was intentionally not performed (gate or
	// dry run). Skipped steps count as successful for CI purposes.
	KindSkipped Kind = "skipped"

	// KindNotFound means the build artifact was absent from both search
	// locations. No network activity happened.
	KindNotFound Kind = "not_found"

	// KindCredentialError is an invalid or expired API key (HTTP 401).
	// User-actionable.
	KindCredentialError Kind = "credential_error"

	// KindProtocolError is a 200 response whose payload violates the
	// Upload API contract. Not user-fixable.
	KindProtocolError Kind = "protocol_error"

	// KindServerError is any other non-200 status from the service.
	KindServerError Kind = "server_error"

	// KindTransportError is a DNS, connection or TLS level failure.
	KindTransportError Kind = "transport_error"

	// KindIOError is a local failure reading the build file.
	KindIOError Kind = "io_error"
)

// Result is the uniform outcome of every step. Message is always meant
// for direct display and may embed the raw server payload, success or not,
// to aid support diagnosis.
type Result struct {
	Success bool   `json:"success"`
	Kind    Kind   `json:"kind"`
	Message string `json:"message"`
}

// Succeeded builds a successful Result.
func Succeeded(message string) Result {
	return Result{Success: true, Kind: KindSuccess, Message: message}
}

// Skipped builds a Result for a step that was deliberately not run.
func Skipped(message string) Result {
	return Result{Success: true, Kind: KindSkipped, Message: message}
}

// Failed builds a failed Result of the given kind.
func Failed(kind Kind, message string) Result {
	return Result{Success: false, Kind: kind, Message: message}
}
