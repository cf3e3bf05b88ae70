package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"tally/internal/core"
	applog "tally/internal/log"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"storage_failure","message":"encode response"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(append(data, '\n'))
}

// errorBody is the JSON shape of every failed request.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Error kinds that only exist at the HTTP boundary.
const (
	errUnauthorized = "unauthorized"
	errRateLimited  = "rate_limited"
	errTooLarge     = "too_large"
)

// statusFor maps an error kind to its HTTP status.
func statusFor(kind core.Kind) int {
	switch kind {
	case core.KindNotFound:
		return http.StatusNotFound
	case core.KindForbidden:
		return http.StatusForbidden
	case core.KindValidation:
		return http.StatusBadRequest
	case core.KindConflict:
		return http.StatusConflict
	case core.KindUpstreamFailure:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// ErrorResponse builds the response for err. Errors without a kind are
// reported as storage failures without leaking their text.
func ErrorResponse(err error) *JSONResponseBuilder {
	kind := core.KindOf(err)
	msg := err.Error()
	var ce *core.Error
	if !errors.As(err, &ce) {
		kind = core.KindStorageFailure
		msg = "internal error"
	} else if ce.Message != "" {
		msg = ce.Message
	}
	return NewJSONResponse().
		Status(statusFor(kind)).
		Body(errorBody{Error: string(kind), Message: msg})
}

// writeError logs failures the caller cannot fix and writes the response.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	kind := core.KindOf(err)
	if status := statusFor(kind); status >= http.StatusInternalServerError {
		applog.LogError(r.Context(), "Request failed", err, string(kind), op, ownerFrom(r.Context()), r.PathValue("id"))
	}
	ErrorResponse(err).Write(w)
}

// writeStatusError writes a boundary error that has no core kind.
func writeStatusError(w http.ResponseWriter, status int, kind, message string) {
	NewJSONResponse().
		Status(status).
		Body(errorBody{Error: kind, Message: message}).
		Write(w)
}
