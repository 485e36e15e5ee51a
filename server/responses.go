package server

import (
	"encoding/json"
	"net/http"

	"github.com/jrsteele09/go-nafath-server/verification"
)

const contentTypeJSON = "application/json; charset=utf-8"

// JSON error codes
const (
	errCodeInvalidRequest  = "invalid_request"
	errCodeNotConfigured   = "not_configured"
	errCodeSessionNotFound = "session_not_found"
	errCodeInternal        = "internal_error"
)

// Generic messages shown to the browser. Provider and store detail is only ever logged.
const (
	msgInvalidRequest  = "The request is invalid"
	msgInvalidGender   = "Gender must be male or female"
	msgNotConfigured   = "Nafath verification is not available, please use manual entry instead"
	msgSessionNotFound = "Verification session not found or expired"
	msgInternal        = "An unexpected error occurred, please try again"
)

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

type statusResponse struct {
	Configured bool   `json:"configured"`
	Message    string `json:"message"`
}

type initiateRequest struct {
	Gender string `json:"gender"`
}

type initiateResponse struct {
	AuthURL      string `json:"authUrl"`
	SessionToken string `json:"sessionToken"`
	Message      string `json:"message"`
}

type sessionResponse struct {
	Data    *verification.IdentityView `json:"data"`
	Message string                     `json:"message"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, errorCode, message string, statusCode int) {
	writeJSON(w, statusCode, errorResponse{Error: errorCode, Message: message})
}
