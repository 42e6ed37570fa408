package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC7807 error body, always written as application/problem+json.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`

	// TraceID is the request id, also echoed in X-Request-Id.
	TraceID string `json:"trace_id"`

	// Errors lists invalid fields, or failed travel modes for upstream failures.
	Errors []FieldError `json:"errors,omitempty"`
}

// FieldError names one invalid input field or one failed travel mode.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.ecoroute.dev/problems/"

// Problem type URIs.
const (
	ProblemTypeValidation      = problemBase + "validation-error"
	ProblemTypeUnauthorized    = problemBase + "unauthorized"
	ProblemTypeNotFound        = problemBase + "not-found"
	ProblemTypeTooManyRequests = problemBase + "too-many-requests"
	ProblemTypeInternal        = problemBase + "internal-error"
	ProblemTypeConfiguration   = problemBase + "configuration-missing"
	ProblemTypeUpstream        = problemBase + "upstream-failure"
	ProblemTypeTimeout         = problemBase + "upstream-timeout"
	ProblemTypeUnavailable     = problemBase + "service-unavailable"
	ProblemTypeTLSRequired     = problemBase + "tls-required"
)

type problemKind struct {
	title  string
	status int
}

var problemKinds = map[string]problemKind{
	ProblemTypeValidation:      {"Validation error", http.StatusBadRequest},
	ProblemTypeUnauthorized:    {"Unauthorized", http.StatusUnauthorized},
	ProblemTypeNotFound:        {"Not found", http.StatusNotFound},
	ProblemTypeTooManyRequests: {"Too many requests", http.StatusTooManyRequests},
	ProblemTypeInternal:        {"Internal server error", http.StatusInternalServerError},
	ProblemTypeConfiguration:   {"Configuration missing", http.StatusInternalServerError},
	ProblemTypeUpstream:        {"Upstream failure", http.StatusBadGateway},
	ProblemTypeTimeout:         {"Upstream timeout", http.StatusGatewayTimeout},
	ProblemTypeUnavailable:     {"Service unavailable", http.StatusServiceUnavailable},
	ProblemTypeTLSRequired:     {"TLS required", http.StatusForbidden},
}

// NewProblem creates a Problem with an explicit title and status.
func NewProblem(problemType, title string, status int, traceID string) *Problem {
	return &Problem{
		Type:    problemType,
		Title:   title,
		Status:  status,
		TraceID: traceID,
	}
}

// ofType builds a Problem from the catalogue. Unknown types are internal errors.
func ofType(problemType, traceID, detail string) *Problem {
	kind, ok := problemKinds[problemType]
	if !ok {
		problemType, kind = ProblemTypeInternal, problemKinds[ProblemTypeInternal]
	}
	p := NewProblem(problemType, kind.title, kind.status, traceID)
	p.Detail = detail
	return p
}

// WithDetail sets the detail message.
func (p *Problem) WithDetail(detail string) *Problem {
	p.Detail = detail
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors sets the field errors.
func (p *Problem) WithErrors(errors []FieldError) *Problem {
	p.Errors = errors
	return p
}

// Write sends the Problem with its status code.
func (p *Problem) Write(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-Id", p.TraceID)
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p) //nolint:errcheck // status already sent
}

// NewBadRequest is a 400 for invalid input.
func NewBadRequest(traceID, detail string, errors []FieldError) *Problem {
	return ofType(ProblemTypeValidation, traceID, detail).WithErrors(errors)
}

func NewUnauthorized(traceID, detail string) *Problem {
	return ofType(ProblemTypeUnauthorized, traceID, detail)
}

func NewNotFound(traceID, detail string) *Problem {
	return ofType(ProblemTypeNotFound, traceID, detail)
}

func NewTooManyRequests(traceID, detail string) *Problem {
	return ofType(ProblemTypeTooManyRequests, traceID, detail)
}

func NewInternalError(traceID, detail string) *Problem {
	return ofType(ProblemTypeInternal, traceID, detail)
}

// NewConfigurationMissing is a 500 for an absent provider API key.
func NewConfigurationMissing(traceID, detail string) *Problem {
	return ofType(ProblemTypeConfiguration, traceID, detail)
}

// NewBadGateway is a 502 for provider failures; errors carries one entry per failed mode.
func NewBadGateway(traceID, detail string, errors []FieldError) *Problem {
	return ofType(ProblemTypeUpstream, traceID, detail).WithErrors(errors)
}

// NewGatewayTimeout is a 504 for provider timeouts.
func NewGatewayTimeout(traceID, detail string) *Problem {
	return ofType(ProblemTypeTimeout, traceID, detail)
}

func NewServiceUnavailable(traceID, detail string) *Problem {
	return ofType(ProblemTypeUnavailable, traceID, detail)
}

// NewTLSRequired is a 403 for plain-HTTP requests when TLS is enforced.
func NewTLSRequired(traceID, detail string) *Problem {
	return ofType(ProblemTypeTLSRequired, traceID, detail)
}
