package verification

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/jrsteele09/go-nafath-server/internal/errors"
)

// DefaultSessionTTL is how long a verification session stays usable after initiation.
const DefaultSessionTTL = 30 * time.Minute

// SubjectCategory classifies which applicant pool a session belongs to.
type SubjectCategory string

const (
	CategoryMale   SubjectCategory = "male"
	CategoryFemale SubjectCategory = "female"
)

// ParseSubjectCategory accepts "male" or "female" in any case.
func ParseSubjectCategory(value string) (SubjectCategory, error) {
	switch c := SubjectCategory(strings.ToLower(strings.TrimSpace(value))); c {
	case CategoryMale, CategoryFemale:
		return c, nil
	default:
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "unknown subject category %q", value)
	}
}

// Session is a server-side identity verification session.
//
// A session is created unverified when the browser starts the flow, becomes verified
// in a single write when the provider callback succeeds, and is deleted on expiry,
// on any callback failure, on explicit request, or when consumed.
type Session struct {
	SessionToken      string          // Opaque token handed to the browser
	State             string          // OAuth anti-forgery value, only ever placed in the authorization URL
	SubjectCategory   SubjectCategory // Set at creation, never mutated
	AuthorizationCode *string         // Set together with Verified
	AccessToken       *string         // Set together with Verified
	IdentityData      *IdentityData   // Set together with Verified
	Verified          bool
	CreatedAt         time.Time
	ExpiresAt         time.Time
}

// IsExpired reports whether the session is past its expiry at now.
func (s *Session) IsExpired(now time.Time) bool {
	return now.After(s.ExpiresAt)
}

// CheckIntegrity enforces that a verified session carries its token and identity.
func (s *Session) CheckIntegrity() error {
	if !s.Verified {
		return nil
	}
	if s.AccessToken == nil || *s.AccessToken == "" {
		return fmt.Errorf("verified session has no access token")
	}
	if s.IdentityData == nil {
		return fmt.Errorf("verified session has no identity data")
	}
	return s.IdentityData.Validate()
}

// VerificationResult is everything written to a session when the callback completes.
type VerificationResult struct {
	AuthorizationCode string
	AccessToken       string
	IdentityData      IdentityData
}

// Initiation is returned to the browser when a flow starts.
type Initiation struct {
	SessionToken string
	AuthURL      string
	ExpiresAt    time.Time
}
