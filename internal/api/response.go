package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/cloo-solutions/jeeinsight/internal/domain"
)

// CodeTimeout is reported when a request outlives its deadline.
const CodeTimeout = "TIMEOUT"

// SuccessResponse is the envelope of every successful response.
type SuccessResponse struct {
	Data any `json:"data"`
}

// ErrorResponse is the envelope of every failed response.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// JSON writes v with the given status. A nil v writes headers only.
func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func Success(w http.ResponseWriter, status int, data any) {
	JSON(w, status, SuccessResponse{Data: data})
}

func Error(w http.ResponseWriter, status int, message string) {
	JSON(w, status, ErrorResponse{Error: message})
}

// StatusFor maps an error to its HTTP status. A deadline anywhere in the
// chain is a gateway timeout, even when a generator wrapped it in its own
// code; otherwise the first DomainError decides.
func StatusFor(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return http.StatusGatewayTimeout
	}
	switch domain.ErrorCode(err) {
	case domain.ErrCodeValidation:
		return http.StatusBadRequest
	case domain.ErrCodeNotFound:
		return http.StatusNotFound
	case domain.ErrCodeAlreadyExists:
		return http.StatusConflict
	case domain.ErrCodeUnauthorized:
		return http.StatusUnauthorized
	case domain.ErrCodeTooLarge:
		return http.StatusRequestEntityTooLarge
	case domain.ErrCodeExternalService:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// HandleError writes err in the error envelope. Errors that carry no
// domain code are reported generically so driver and SQL text stay in
// the logs.
func HandleError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	code := domain.ErrorCode(err)
	message := err.Error()

	switch {
	case status == http.StatusGatewayTimeout:
		code, message = CodeTimeout, "request timed out"
	case code == "":
		code, message = domain.ErrCodeInternalError, "internal server error"
	}
	JSON(w, status, ErrorResponse{Error: message, Code: code})
}

// DecodeJSON reads the request body into v. With allowEmpty an absent
// body leaves v untouched. Malformed input is a validation error and a
// body cut off by http.MaxBytesReader is PAYLOAD_TOO_LARGE.
func DecodeJSON(r *http.Request, v any, allowEmpty bool) error {
	err := json.NewDecoder(r.Body).Decode(v)
	if err == nil || (allowEmpty && errors.Is(err, io.EOF)) {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return domain.ErrBodyTooLarge
	}
	return domain.NewDomainErrorWithCause(domain.ErrCodeValidation, "invalid request body", err)
}
