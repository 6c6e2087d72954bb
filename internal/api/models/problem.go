package models

import (
	"encoding/json"
	"net/http"
)

// Problem is an RFC 7807 error body, served as application/problem+json.
type Problem struct {
	Type     string       `json:"type"`
	Title    string       `json:"title"`
	Status   int          `json:"status"`
	Detail   string       `json:"detail,omitempty"`
	Instance string       `json:"instance,omitempty"`
	TraceID  string       `json:"traceId"`
	Errors   []FieldError `json:"errors,omitempty"`
}

// FieldError points at one invalid request field.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

const problemBase = "https://api.fleetminder.io/problems/"

// ProblemTypeTLSRequired marks plain-HTTP requests rejected by the edge check.
const ProblemTypeTLSRequired = problemBase + "tls-required"

type problemKind struct {
	slug  string
	title string
}

// problemKinds gives each status the API emits a stable type URI.
var problemKinds = map[int]problemKind{
	http.StatusBadRequest:           {"validation-error", "Validation error"},
	http.StatusUnauthorized:         {"unauthorized", "Unauthorized"},
	http.StatusForbidden:            {"forbidden", "Forbidden"},
	http.StatusNotFound:             {"not-found", "Not found"},
	http.StatusConflict:             {"conflict", "Conflict"},
	http.StatusUnsupportedMediaType: {"unsupported-media-type", "Unsupported media type"},
	http.StatusTooManyRequests:      {"too-many-requests", "Too many requests"},
	http.StatusInternalServerError:  {"internal-error", "Internal server error"},
	http.StatusServiceUnavailable:   {"service-unavailable", "Service unavailable"},
}

// NewProblem builds the problem for status. Statuses without a registered
// kind get type "about:blank" and the standard status text.
func NewProblem(status int, traceID, detail string) *Problem {
	p := &Problem{Status: status, TraceID: traceID, Detail: detail}
	if kind, ok := problemKinds[status]; ok {
		p.Type = problemBase + kind.slug
		p.Title = kind.title
	} else {
		p.Type = "about:blank"
		p.Title = http.StatusText(status)
	}
	return p
}

// ProblemType returns the type URI NewProblem uses for status.
func ProblemType(status int) string {
	return NewProblem(status, "", "").Type
}

// WithType overrides the type URI and title.
func (p *Problem) WithType(uri, title string) *Problem {
	p.Type = uri
	p.Title = title
	return p
}

// WithInstance sets the request path the problem occurred on.
func (p *Problem) WithInstance(instance string) *Problem {
	p.Instance = instance
	return p
}

// WithErrors attaches field errors.
func (p *Problem) WithErrors(errs []FieldError) *Problem {
	p.Errors = errs
	return p
}

// Write sends the problem. The trace ID is echoed as X-Request-Id.
func (p *Problem) Write(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "application/problem+json")
	if p.TraceID != "" {
		h.Set("X-Request-Id", p.TraceID)
	}
	w.WriteHeader(p.Status)
	_ = json.NewEncoder(w).Encode(p) //nolint:errcheck // client went away
}
