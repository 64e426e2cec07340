package core

// Endpoint is a framework-agnostic route specification. Adapters map
// the OperationID to their own handler implementation.
type Endpoint struct {
	Path     string
	Method   string
	Auth     bool // requires an active session
	Metadata EndpointMetadata
}

type EndpointMetadata struct {
	OperationID string
	Description string
}

// ErrorResponse represents an error response structure
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}
