package repofake

import (
	"context"
	"fmt"
	"sync"
	"time"

	apperrors "github.com/jrsteele09/go-nafath-server/internal/errors"
	"github.com/jrsteele09/go-nafath-server/internal/utils"
	"github.com/jrsteele09/go-nafath-server/verification"
)

var _ verification.Repo = (*FakeSessionRepo)(nil)

// FakeSessionRepo is a thread-safe in-memory session store. Sessions are copied in
// and out so callers can never mutate stored state.
type FakeSessionRepo struct {
	sessions map[string]*verification.Session // sessionToken -> session
	states   map[string]string                // state -> sessionToken
	lock     sync.RWMutex
}

func NewFakeSessionRepo() *FakeSessionRepo {
	return &FakeSessionRepo{
		sessions: make(map[string]*verification.Session),
		states:   make(map[string]string),
	}
}

func (sr *FakeSessionRepo) Create(_ context.Context, session *verification.Session) error {
	if session == nil || session.SessionToken == "" || session.State == "" {
		return fmt.Errorf("session token and state are required")
	}

	sr.lock.Lock()
	defer sr.lock.Unlock()

	if _, exists := sr.sessions[session.SessionToken]; exists {
		return fmt.Errorf("session token already exists")
	}
	if _, exists := sr.states[session.State]; exists {
		return fmt.Errorf("state already exists")
	}

	sr.sessions[session.SessionToken] = copySession(session)
	sr.states[session.State] = session.SessionToken
	return nil
}

func (sr *FakeSessionRepo) GetUnverifiedByState(_ context.Context, state string) (*verification.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	token, ok := sr.states[state]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	session, ok := sr.sessions[token]
	if !ok || session.Verified {
		return nil, apperrors.ErrNotFound
	}
	return copySession(session), nil
}

func (sr *FakeSessionRepo) GetVerifiedByToken(_ context.Context, token string) (*verification.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[token]
	if !ok || !session.Verified {
		return nil, apperrors.ErrNotFound
	}
	return copySession(session), nil
}

func (sr *FakeSessionRepo) GetByToken(_ context.Context, token string) (*verification.Session, error) {
	sr.lock.RLock()
	defer sr.lock.RUnlock()

	session, ok := sr.sessions[token]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return copySession(session), nil
}

func (sr *FakeSessionRepo) MarkVerified(_ context.Context, token string, result verification.VerificationResult) error {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[token]
	if !ok || session.Verified {
		return apperrors.ErrNotFound
	}

	identity := result.IdentityData
	session.AuthorizationCode = utils.PtrOrNil(result.AuthorizationCode)
	session.AccessToken = utils.Ptr(result.AccessToken)
	session.IdentityData = &identity
	session.Verified = true
	return nil
}

func (sr *FakeSessionRepo) Delete(_ context.Context, token string) (bool, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	session, ok := sr.sessions[token]
	if !ok {
		return false, nil
	}
	delete(sr.states, session.State)
	delete(sr.sessions, token)
	return true, nil
}

func (sr *FakeSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int64, error) {
	sr.lock.Lock()
	defer sr.lock.Unlock()

	var deleted int64
	for token, session := range sr.sessions {
		if session.ExpiresAt.Before(before) {
			delete(sr.states, session.State)
			delete(sr.sessions, token)
			deleted++
		}
	}
	return deleted, nil
}

// Len returns the number of stored sessions
func (sr *FakeSessionRepo) Len() int {
	sr.lock.RLock()
	defer sr.lock.RUnlock()
	return len(sr.sessions)
}

// Put stores a session as-is, bypassing uniqueness checks (test setup only)
func (sr *FakeSessionRepo) Put(session *verification.Session) {
	sr.lock.Lock()
	defer sr.lock.Unlock()
	sr.sessions[session.SessionToken] = copySession(session)
	sr.states[session.State] = session.SessionToken
}

func copySession(s *verification.Session) *verification.Session {
	c := *s
	if s.AuthorizationCode != nil {
		c.AuthorizationCode = utils.Ptr(*s.AuthorizationCode)
	}
	if s.AccessToken != nil {
		c.AccessToken = utils.Ptr(*s.AccessToken)
	}
	if s.IdentityData != nil {
		identity := *s.IdentityData
		c.IdentityData = &identity
	}
	return &c
}
