package verification

import (
	"context"
	"fmt"
	"time"

	apperrors "github.com/jrsteele09/go-nafath-server/internal/errors"
)

// Repo is the durable session store. Lookups that match nothing return an error
// wrapping apperrors.ErrNotFound.
type Repo interface {
	// Create inserts a new session. Token and state must both be unique.
	Create(ctx context.Context, session *Session) error

	// GetUnverifiedByState finds the in-flight session for an OAuth state value
	GetUnverifiedByState(ctx context.Context, state string) (*Session, error)

	// GetVerifiedByToken finds a completed session by its token
	GetVerifiedByToken(ctx context.Context, token string) (*Session, error)

	// GetByToken finds a session by token regardless of verification status
	GetByToken(ctx context.Context, token string) (*Session, error)

	// MarkVerified writes the verification result in one update, only if the session
	// is still unverified. It returns ErrNotFound when no unverified row matched.
	MarkVerified(ctx context.Context, token string, result VerificationResult) error

	// Delete removes a session and reports whether a row existed
	Delete(ctx context.Context, token string) (bool, error)

	// DeleteExpired removes every session with ExpiresAt strictly before the given time
	DeleteExpired(ctx context.Context, before time.Time) (int64, error)
}

// CorruptRecordError is returned by a Repo when a stored row cannot be trusted.
type CorruptRecordError struct {
	SessionToken string
	Err          error
}

func (e *CorruptRecordError) Error() string {
	return fmt.Sprintf("corrupt session record %s: %v", e.SessionToken, e.Err)
}

func (e *CorruptRecordError) Unwrap() error {
	return e.Err
}

func (e *CorruptRecordError) Is(target error) bool {
	return target == apperrors.ErrCorruptRecord
}
