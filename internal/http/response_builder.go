// This file builds JSON and CSV responses and maps domain errors to
// status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"spendlog/internal/core"
	"spendlog/internal/log"
)

// ResponseBuilder provides a fluent API for building responses.
type ResponseBuilder struct {
	statusCode int
	body       []byte
	headers    map[string]string
	err        error
}

func NewResponse() *ResponseBuilder {
	return &ResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *ResponseBuilder) Status(code int) *ResponseBuilder {
	b.statusCode = code
	return b
}

func (b *ResponseBuilder) Header(name, value string) *ResponseBuilder {
	b.headers[name] = value
	return b
}

// JSON encodes v as the body.
func (b *ResponseBuilder) JSON(v any) *ResponseBuilder {
	data, err := json.Marshal(v)
	if err != nil {
		b.err = err
		return b
	}
	b.headers["Content-Type"] = "application/json"
	b.body = append(data, '\n')
	return b
}

// CSV sets a CSV download body.
func (b *ResponseBuilder) CSV(filename string, data []byte) *ResponseBuilder {
	b.headers["Content-Type"] = "text/csv; charset=utf-8"
	b.headers["Content-Disposition"] = attachmentName(filename)
	b.body = data
	return b
}

func (b *ResponseBuilder) BodyString(content string) *ResponseBuilder {
	b.headers["Content-Type"] = "text/plain; charset=utf-8"
	b.body = []byte(content)
	return b
}

// Write sends the response. An encoding failure becomes a 500.
func (b *ResponseBuilder) Write(w http.ResponseWriter) {
	if b.err != nil {
		ErrorResponse(http.StatusInternalServerError, "failed to encode response").Write(w)
		return
	}
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.WriteHeader(b.statusCode)
	if len(b.body) > 0 {
		_, _ = w.Write(b.body)
	}
}

type errorBody struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// ErrorResponse creates a {"error": message} response.
func ErrorResponse(statusCode int, message string) *ResponseBuilder {
	return NewResponse().Status(statusCode).JSON(errorBody{Error: message})
}

// classify maps err to a status, a client-safe message and a log error type.
func classify(err error) (status int, body errorBody, errorType string) {
	var verr *core.ValidationError
	var merr *core.MalformedStoreError
	var serr *core.StorageIOError

	switch {
	case errors.As(err, &verr):
		return http.StatusUnprocessableEntity, errorBody{Error: verr.Error(), Field: verr.Field}, log.ErrorTypeValidation
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, errorBody{Error: err.Error()}, log.ErrorTypeBadRequest
	case errors.As(err, &merr):
		return http.StatusInternalServerError, errorBody{Error: "stored ledger is malformed"}, log.ErrorTypeMalformed
	case errors.As(err, &serr):
		return http.StatusInternalServerError, errorBody{Error: "failed to persist ledger"}, log.ErrorTypeStorage
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return http.StatusServiceUnavailable, errorBody{Error: "request cancelled"}, log.ErrorTypeInternal
	default:
		return http.StatusInternalServerError, errorBody{Error: "internal error"}, log.ErrorTypeInternal
	}
}

// writeError logs err and sends the mapped error response.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, body, errorType := classify(err)

	if status >= 500 {
		s.logs.LogError(r.Context(), "Request failed", err, errorType, log.ComponentHTTP, op, nil)
	} else {
		s.logger.WarnContext(r.Context(), "Request rejected",
			log.FieldOperation, op,
			log.FieldErrorType, errorType,
			log.FieldError, err.Error())
	}
	NewResponse().Status(status).JSON(body).Write(w)
}
