package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/yanqian/allergy-risk/pkg/errors"
)

// HTTPError captures the metadata required to serialize an error response consistently.
type HTTPError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

// Error implements the error interface.
func (e *HTTPError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes the domain error for errors.Is checks.
func (e *HTTPError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// NewHTTPError is a helper to build an HTTPError instance.
func NewHTTPError(status int, code, message string, err error) *HTTPError {
	return &HTTPError{Status: status, Code: code, Message: message, Err: err}
}

// errorBody mirrors the success envelopes: {"success":false,"error":{...}}.
type errorBody struct {
	Success bool        `json:"success"`
	Error   errorDetail `json:"error"`
}

type errorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *HTTPError) body() errorBody {
	message := e.Message
	if message == "" {
		message = e.Error()
	}
	return errorBody{Error: errorDetail{Code: e.Code, Message: message}}
}

// codeStatus maps service error codes onto transport statuses; unlisted codes are 500.
var codeStatus = map[string]int{
	"invalid_input":           http.StatusBadRequest,
	"invalid_feature_vector":  http.StatusUnprocessableEntity,
	"model_not_trained":       http.StatusServiceUnavailable,
	"environment_unavailable": http.StatusBadGateway,
}

// domainError turns a service error into its transport form, keeping the service code.
func domainError(err error) *HTTPError {
	code := apperrors.CodeOf(err)
	if code == "" {
		return NewHTTPError(http.StatusInternalServerError, "internal_error", errMessage(err), err)
	}
	status, ok := codeStatus[code]
	if !ok {
		status = http.StatusInternalServerError
	}
	return NewHTTPError(status, code, errMessage(err), err)
}

func asHTTPError(err error) *HTTPError {
	if err == nil {
		return nil
	}
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr
	}
	return &HTTPError{
		Status:  http.StatusInternalServerError,
		Code:    "internal_error",
		Message: "something went wrong",
		Err:     err,
	}
}

func abortWithError(c *gin.Context, err *HTTPError) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

// writeError renders err outside gin, for middleware wrapping the engine.
func writeError(w http.ResponseWriter, err *HTTPError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(err.Status)
	_ = json.NewEncoder(w).Encode(err.body())
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
