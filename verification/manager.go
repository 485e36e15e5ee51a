package verification

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/jrsteele09/go-nafath-server/internal/errors"
	"github.com/jrsteele09/go-nafath-server/nafath"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// IdentityProvider is the part of the identity provider client the manager needs.
type IdentityProvider interface {
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	UserInfo(ctx context.Context, token *oauth2.Token) (*nafath.UserInfo, error)
}

// Config is the static configuration of a Manager.
type Config struct {
	Provider   nafath.Config
	SessionTTL time.Duration // Zero means DefaultSessionTTL
}

// Manager runs the identity verification session protocol. All session state lives
// in the Repo, so a Manager can serve concurrent requests without locking.
type Manager struct {
	config   Config
	repo     Repo
	provider IdentityProvider
	nowTime  func() time.Time // nowTime function (injectable for testing)
}

// ManagerOption defines a function type to modify the Manager instance.
type ManagerOption func(*Manager)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ManagerOption {
	return func(m *Manager) {
		m.nowTime = nowFunc
	}
}

// WithIdentityProvider replaces the provider client built from Config.Provider
func WithIdentityProvider(provider IdentityProvider) ManagerOption {
	return func(m *Manager) {
		m.provider = provider
	}
}

// NewManager creates a Manager. Missing provider secrets are not an error here;
// they make IsConfigured return false and Initiate fail with ErrNotConfigured.
func NewManager(config Config, repo Repo, options ...ManagerOption) (*Manager, error) {
	if repo == nil {
		return nil, errors.New("[NewManager] session repo is required")
	}
	if config.SessionTTL <= 0 {
		config.SessionTTL = DefaultSessionTTL
	}

	m := &Manager{
		config:  config,
		repo:    repo,
		nowTime: time.Now,
	}
	for _, opt := range options {
		opt(m)
	}
	if m.provider == nil {
		m.provider = nafath.NewClient(config.Provider)
	}
	return m, nil
}

// IsConfigured reports whether the identity provider integration has all its secrets.
func (m *Manager) IsConfigured() bool {
	return m.config.Provider.IsConfigured()
}

// Initiate starts a verification flow for the given subject category. It stores a new
// unverified session and returns its token with the provider authorization URL.
func (m *Manager) Initiate(ctx context.Context, category string) (*Initiation, error) {
	if !m.IsConfigured() {
		return nil, apperrors.Wrapf(apperrors.ErrNotConfigured, "[Manager Initiate]")
	}

	subjectCategory, err := ParseSubjectCategory(category)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager Initiate]")
	}

	state, err := generateState()
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager Initiate]")
	}
	token, err := generateSessionToken()
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager Initiate]")
	}

	now := m.nowTime()
	session := &Session{
		SessionToken:    token,
		State:           state,
		SubjectCategory: subjectCategory,
		Verified:        false,
		CreatedAt:       now,
		ExpiresAt:       now.Add(m.config.SessionTTL),
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return nil, apperrors.Wrapf(err, "[Manager Initiate] failed to store session")
	}

	initiationsTotal.WithLabelValues(string(subjectCategory)).Inc()
	log.Info().
		Str("session", redact(token)).
		Str("category", string(subjectCategory)).
		Time("expires_at", session.ExpiresAt).
		Msg("Nafath verification initiated")

	return &Initiation{
		SessionToken: token,
		AuthURL:      m.provider.AuthCodeURL(state),
		ExpiresAt:    session.ExpiresAt,
	}, nil
}

// HandleCallback completes the flow for the provider redirect carrying code and state.
// On success the session is verified and its token returned. Any failure after the
// session was found deletes the session.
func (m *Manager) HandleCallback(ctx context.Context, code, state string) (string, error) {
	if code == "" || state == "" {
		return "", apperrors.Wrapf(apperrors.ErrInvalidInput, "[Manager HandleCallback] code and state are required")
	}

	session, err := m.repo.GetUnverifiedByState(ctx, state)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) || m.discardCorrupt(ctx, err) {
			callbacksTotal.WithLabelValues(outcomeInvalidSession).Inc()
			return "", apperrors.Wrapf(apperrors.ErrInvalidOrExpiredSession, "[Manager HandleCallback]")
		}
		callbacksTotal.WithLabelValues(outcomeStoreError).Inc()
		return "", apperrors.Wrapf(err, "[Manager HandleCallback] failed to look up session")
	}

	if session.IsExpired(m.nowTime()) {
		m.discard(ctx, session.SessionToken, "expired")
		callbacksTotal.WithLabelValues(outcomeExpired).Inc()
		return "", apperrors.Wrapf(apperrors.ErrSessionExpired, "[Manager HandleCallback]")
	}

	result, err := m.exchange(ctx, code)
	if err != nil {
		m.logProviderFailure(session.SessionToken, err)
		m.discard(ctx, session.SessionToken, "verification_failed")
		callbacksTotal.WithLabelValues(outcomeVerificationFailed).Inc()
		return "", apperrors.Wrapf(apperrors.ErrVerificationFailed, "[Manager HandleCallback]")
	}

	if err := m.repo.MarkVerified(ctx, session.SessionToken, *result); err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			// Another callback for the same state completed first.
			callbacksTotal.WithLabelValues(outcomeInvalidSession).Inc()
			return "", apperrors.Wrapf(apperrors.ErrInvalidOrExpiredSession, "[Manager HandleCallback]")
		}
		log.Err(err).Str("session", redact(session.SessionToken)).Msg("Failed to store verification result")
		m.discard(ctx, session.SessionToken, "verification_failed")
		callbacksTotal.WithLabelValues(outcomeStoreError).Inc()
		return "", apperrors.Wrapf(apperrors.ErrVerificationFailed, "[Manager HandleCallback]")
	}

	callbacksTotal.WithLabelValues(outcomeVerified).Inc()
	log.Info().Str("session", redact(session.SessionToken)).Msg("Nafath verification completed")
	return session.SessionToken, nil
}

// AbortCallback discards the in-flight session for state after the provider reported an
// error instead of a code. An unknown or empty state is not an error.
func (m *Manager) AbortCallback(ctx context.Context, state string) error {
	if state == "" {
		return nil
	}
	session, err := m.repo.GetUnverifiedByState(ctx, state)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) || m.discardCorrupt(ctx, err) {
			return nil
		}
		return apperrors.Wrapf(err, "[Manager AbortCallback]")
	}
	if _, err := m.repo.Delete(ctx, session.SessionToken); err != nil {
		return apperrors.Wrapf(err, "[Manager AbortCallback]")
	}
	sessionsPurgedTotal.WithLabelValues("provider_denied").Inc()
	return nil
}

func (m *Manager) exchange(ctx context.Context, code string) (*VerificationResult, error) {
	token, err := m.provider.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}
	info, err := m.provider.UserInfo(ctx, token)
	if err != nil {
		return nil, err
	}
	identity := identityFromUserInfo(info)
	if err := identity.Validate(); err != nil {
		return nil, err
	}
	return &VerificationResult{
		AuthorizationCode: code,
		AccessToken:       token.AccessToken,
		IdentityData:      identity,
	}, nil
}

// GetSessionData returns the identity view of a verified, unexpired session. Unverified
// sessions are invisible here. An expired session is deleted and reported as not found.
func (m *Manager) GetSessionData(ctx context.Context, token string) (*IdentityView, error) {
	session, err := m.verifiedSession(ctx, token)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager GetSessionData]")
	}
	return m.view(ctx, session)
}

// Consume returns the identity view like GetSessionData and then deletes the session,
// so a submitted application releases the identity exactly once.
func (m *Manager) Consume(ctx context.Context, token string) (*IdentityView, error) {
	session, err := m.verifiedSession(ctx, token)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager Consume]")
	}
	view, err := m.view(ctx, session)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager Consume]")
	}

	deleted, err := m.repo.Delete(ctx, token)
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Manager Consume] failed to delete session")
	}
	if !deleted {
		// A concurrent consumer got there first.
		return nil, apperrors.Wrapf(apperrors.ErrInvalidOrExpiredSession, "[Manager Consume]")
	}
	sessionsPurgedTotal.WithLabelValues("consumed").Inc()
	return view, nil
}

func (m *Manager) verifiedSession(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, apperrors.ErrInvalidOrExpiredSession
	}
	session, err := m.repo.GetVerifiedByToken(ctx, token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) || m.discardCorrupt(ctx, err) {
			return nil, apperrors.ErrInvalidOrExpiredSession
		}
		return nil, err
	}
	if session.IsExpired(m.nowTime()) {
		m.discard(ctx, token, "expired")
		return nil, apperrors.ErrSessionExpired
	}
	return session, nil
}

func (m *Manager) view(ctx context.Context, session *Session) (*IdentityView, error) {
	view, err := NewIdentityView(session, m.nowTime())
	if err != nil {
		m.discardCorrupt(ctx, &CorruptRecordError{SessionToken: session.SessionToken, Err: err})
		return nil, apperrors.ErrInvalidOrExpiredSession
	}
	return view, nil
}

// IsValid reports whether a session exists and has not expired. Expired sessions are
// deleted. The verification status is deliberately not exposed.
func (m *Manager) IsValid(ctx context.Context, token string) (bool, error) {
	if token == "" {
		return false, nil
	}
	session, err := m.repo.GetByToken(ctx, token)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) || m.discardCorrupt(ctx, err) {
			return false, nil
		}
		return false, apperrors.Wrapf(err, "[Manager IsValid]")
	}
	if session.IsExpired(m.nowTime()) {
		m.discard(ctx, token, "expired")
		return false, nil
	}
	return true, nil
}

// Delete removes a session. Deleting an unknown token is not an error.
func (m *Manager) Delete(ctx context.Context, token string) error {
	if token == "" {
		return nil
	}
	deleted, err := m.repo.Delete(ctx, token)
	if err != nil {
		return apperrors.Wrapf(err, "[Manager Delete]")
	}
	if deleted {
		sessionsPurgedTotal.WithLabelValues("client_request").Inc()
	}
	return nil
}

// Sweep deletes every session whose expiry is strictly before now and returns the count.
func (m *Manager) Sweep(ctx context.Context) (int64, error) {
	deleted, err := m.repo.DeleteExpired(ctx, m.nowTime())
	if err != nil {
		return 0, apperrors.Wrapf(err, "[Manager Sweep]")
	}
	sessionsPurgedTotal.WithLabelValues("sweep").Add(float64(deleted))
	return deleted, nil
}

// discard deletes a session on a failure path. A failed delete is logged only; the
// session will still expire and be swept. The delete outlives a cancelled request.
func (m *Manager) discard(ctx context.Context, token, reason string) {
	if _, err := m.repo.Delete(context.WithoutCancel(ctx), token); err != nil {
		log.Err(err).Str("session", redact(token)).Str("reason", reason).Msg("Failed to delete session")
		return
	}
	sessionsPurgedTotal.WithLabelValues(reason).Inc()
}

// discardCorrupt deletes the row behind a CorruptRecordError and reports whether err was one.
func (m *Manager) discardCorrupt(ctx context.Context, err error) bool {
	var corrupt *CorruptRecordError
	if !errors.As(err, &corrupt) {
		return false
	}
	log.Warn().Err(corrupt.Err).Str("session", redact(corrupt.SessionToken)).Msg("Discarding corrupt session record")
	m.discard(ctx, corrupt.SessionToken, "corrupt")
	return true
}

func (m *Manager) logProviderFailure(token string, err error) {
	event := log.Warn().Err(err).Str("session", redact(token))
	var providerErr *nafath.ProviderError
	if errors.As(err, &providerErr) {
		event = event.
			Str("endpoint", providerErr.Endpoint).
			Int("status", providerErr.StatusCode).
			Str("body", providerErr.Body)
	}
	event.Msg("Nafath verification failed")
}

// redact keeps enough of a token to correlate log lines without making it usable.
func redact(token string) string {
	if len(token) <= 8 {
		return "***"
	}
	return token[:8] + "***"
}
