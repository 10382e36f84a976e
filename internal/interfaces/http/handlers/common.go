// Package handlers implements the HTTP endpoints of the scoring service.
package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/turtacn/leadscore/pkg/errors"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// ErrorResponse is the standard error response body.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// writeError writes a structured error response.
func writeError(w http.ResponseWriter, statusCode int, code errors.ErrorCode, message string) {
	writeJSON(w, statusCode, ErrorResponse{Code: code.String(), Message: message})
}

// writeAppError maps an application error to its HTTP status. Server side
// failures are masked with the default message of their code.
func writeAppError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	if code == errors.CodeUnknown {
		code = errors.ErrCodeInternal
	}
	status := errors.HTTPStatusForCode(code)

	message := errors.DefaultMessageForCode(code)
	var ae *errors.AppError
	if status < http.StatusInternalServerError || status == http.StatusServiceUnavailable {
		if errors.As(err, &ae) && ae.Message != "" {
			message = ae.Message
		}
	}
	writeError(w, status, code, message)
}

//Personal.AI order the ending
