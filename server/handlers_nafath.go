package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"

	apperrors "github.com/jrsteele09/go-nafath-server/internal/errors"
	"github.com/rs/zerolog/log"
)

const maxInitiateBodyBytes = 4 << 10

// Callback redirect query parameters and error codes
const (
	paramSession = "nafath_session"
	paramSuccess = "nafath_success"
	paramError   = "nafath_error"

	callbackErrMissingParameters  = "missing_parameters"
	callbackErrProviderDenied     = "provider_denied"
	callbackErrInvalidSession     = "invalid_session"
	callbackErrSessionExpired     = "session_expired"
	callbackErrVerificationFailed = "verification_failed"
	callbackErrNotConfigured      = "not_configured"
)

// NafathStatusHandler reports whether the integration is usable
func (s *Server) NafathStatusHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if !s.verifier.IsConfigured() {
			writeJSON(w, http.StatusOK, statusResponse{Configured: false, Message: msgNotConfigured})
			return
		}
		writeJSON(w, http.StatusOK, statusResponse{Configured: true, Message: "Nafath verification is available"})
	}
}

// NafathInitiateHandler starts a verification flow and returns the provider URL
func (s *Server) NafathInitiateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initiateRequest
		decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInitiateBodyBytes))
		if err := decoder.Decode(&req); err != nil && !errors.Is(err, io.EOF) {
			writeJSONError(w, errCodeInvalidRequest, msgInvalidRequest, http.StatusBadRequest)
			return
		}

		initiation, err := s.verifier.Initiate(r.Context(), req.Gender)
		if err != nil {
			switch {
			case apperrors.Is(err, apperrors.ErrNotConfigured):
				writeJSONError(w, errCodeNotConfigured, msgNotConfigured, http.StatusServiceUnavailable)
			case apperrors.Is(err, apperrors.ErrInvalidInput):
				writeJSONError(w, errCodeInvalidRequest, msgInvalidGender, http.StatusBadRequest)
			default:
				log.Err(err).Msg("Failed to initiate Nafath verification")
				writeJSONError(w, errCodeInternal, msgInternal, http.StatusInternalServerError)
			}
			return
		}

		writeJSON(w, http.StatusOK, initiateResponse{
			AuthURL:      initiation.AuthURL,
			SessionToken: initiation.SessionToken,
			Message:      "Redirect to Nafath to complete verification",
		})
	}
}

// NafathCallbackHandler receives the provider redirect and sends the browser back to
// the application with either the session token or an error code.
func (s *Server) NafathCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		code := query.Get("code")
		state := query.Get("state")

		if providerErr := query.Get("error"); providerErr != "" {
			log.Warn().
				Str("error", providerErr).
				Str("error_description", query.Get("error_description")).
				Msg("Nafath returned an authorization error")
			if err := s.verifier.AbortCallback(r.Context(), state); err != nil {
				log.Err(err).Msg("Failed to discard session after provider error")
			}
			s.redirectToApp(w, r, url.Values{paramError: {callbackErrProviderDenied}})
			return
		}

		if code == "" || state == "" {
			s.redirectToApp(w, r, url.Values{paramError: {callbackErrMissingParameters}})
			return
		}

		if !s.verifier.IsConfigured() {
			s.redirectToApp(w, r, url.Values{paramError: {callbackErrNotConfigured}})
			return
		}

		token, err := s.verifier.HandleCallback(r.Context(), code, state)
		if err != nil {
			s.redirectToApp(w, r, url.Values{paramError: {callbackErrorCode(err)}})
			return
		}

		s.redirectToApp(w, r, url.Values{paramSession: {token}, paramSuccess: {"true"}})
	}
}

func callbackErrorCode(err error) string {
	switch {
	case apperrors.Is(err, apperrors.ErrSessionExpired):
		return callbackErrSessionExpired
	case apperrors.Is(err, apperrors.ErrInvalidOrExpiredSession):
		return callbackErrInvalidSession
	case apperrors.Is(err, apperrors.ErrInvalidInput):
		return callbackErrMissingParameters
	case apperrors.Is(err, apperrors.ErrNotConfigured):
		return callbackErrNotConfigured
	case apperrors.Is(err, apperrors.ErrVerificationFailed):
		return callbackErrVerificationFailed
	default:
		log.Err(err).Msg("Nafath callback failed")
		return callbackErrVerificationFailed
	}
}

func (s *Server) redirectToApp(w http.ResponseWriter, r *http.Request, params url.Values) {
	target, err := url.Parse(s.config.GetAppReturnURL())
	if err != nil {
		log.Err(err).Msg("Invalid application return URL")
		writeJSONError(w, errCodeInternal, msgInternal, http.StatusInternalServerError)
		return
	}

	query := target.Query()
	for key, values := range params {
		query[key] = values
	}
	target.RawQuery = query.Encode()

	http.Redirect(w, r, target.String(), http.StatusFound)
}

// NafathSessionHandler returns the verified identity for a session token
func (s *Server) NafathSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.verifier.GetSessionData(r.Context(), r.PathValue("token"))
		if err != nil {
			s.writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Data: view, Message: "Verified identity retrieved"})
	}
}

// NafathConsumeHandler returns the verified identity once and removes the session
func (s *Server) NafathConsumeHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		view, err := s.verifier.Consume(r.Context(), r.PathValue("token"))
		if err != nil {
			s.writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{Data: view, Message: "Verified identity consumed"})
	}
}

func (s *Server) writeSessionError(w http.ResponseWriter, err error) {
	if apperrors.Is(err, apperrors.ErrInvalidOrExpiredSession) {
		writeJSONError(w, errCodeSessionNotFound, msgSessionNotFound, http.StatusNotFound)
		return
	}
	log.Err(err).Msg("Failed to read verification session")
	writeJSONError(w, errCodeInternal, msgInternal, http.StatusInternalServerError)
}

// NafathDeleteSessionHandler discards a session. Unknown tokens are not an error.
func (s *Server) NafathDeleteSessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := s.verifier.Delete(r.Context(), r.PathValue("token")); err != nil {
			log.Err(err).Msg("Failed to delete verification session")
			writeJSONError(w, errCodeInternal, msgInternal, http.StatusInternalServerError)
			return
		}
		writeJSON(w, http.StatusOK, messageResponse{Message: "Verification session deleted"})
	}
}

// HealthHandler reports liveness, and readiness when a health check is configured
func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s.healthCheck != nil {
			if err := s.healthCheck(r.Context()); err != nil {
				log.Err(err).Msg("Health check failed")
				writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
				return
			}
		}
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
