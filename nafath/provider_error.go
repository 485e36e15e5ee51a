package nafath

import (
	"errors"
	"fmt"

	"golang.org/x/oauth2"
)

const maxErrorBodyLength = 512

// ProviderError describes a failed call to the identity provider. It is meant for
// server-side logs only and must never be written to a client response.
type ProviderError struct {
	Endpoint   string
	StatusCode int    // Zero when no HTTP response was received
	Body       string // Truncated response body
	Err        error
}

func (e *ProviderError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("nafath %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("nafath %s: %v", e.Endpoint, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

func newProviderError(endpoint string, err error) *ProviderError {
	pe := &ProviderError{Endpoint: endpoint, Err: err}
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		pe.Body = truncate(retrieveErr.Body)
		if retrieveErr.Response != nil {
			pe.StatusCode = retrieveErr.Response.StatusCode
		}
	}
	return pe
}

func truncate(body []byte) string {
	if len(body) <= maxErrorBodyLength {
		return string(body)
	}
	return string(body[:maxErrorBodyLength]) + "...(truncated)"
}
