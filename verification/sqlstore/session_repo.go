package sqlstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	apperrors "github.com/jrsteele09/go-nafath-server/internal/errors"
	"github.com/jrsteele09/go-nafath-server/internal/utils"
	"github.com/jrsteele09/go-nafath-server/verification"
)

var _ verification.Repo = (*SessionRepo)(nil)

const sessionColumns = `session_token, state, subject_category, authorization_code, access_token,
	identity_data, verified, created_at, expires_at`

// SessionRepo implements verification.Repo on PostgreSQL or SQLite
type SessionRepo struct {
	db *sqlx.DB
}

// NewSessionRepo creates a session repository on an open store
func NewSessionRepo(store *Store) *SessionRepo {
	return &SessionRepo{db: store.DB}
}

// sessionRow is the database representation of a session.
// Timestamps are unix nanoseconds so expiry comparisons are plain integer comparisons on both drivers.
type sessionRow struct {
	SessionToken      string         `db:"session_token"`
	State             string         `db:"state"`
	SubjectCategory   string         `db:"subject_category"`
	AuthorizationCode sql.NullString `db:"authorization_code"`
	AccessToken       sql.NullString `db:"access_token"`
	IdentityData      sql.NullString `db:"identity_data"`
	Verified          bool           `db:"verified"`
	CreatedAt         int64          `db:"created_at"`
	ExpiresAt         int64          `db:"expires_at"`
}

func (r *sessionRow) toEntity() (*verification.Session, error) {
	session := &verification.Session{
		SessionToken:    r.SessionToken,
		State:           r.State,
		SubjectCategory: verification.SubjectCategory(r.SubjectCategory),
		Verified:        r.Verified,
		CreatedAt:       time.Unix(0, r.CreatedAt).UTC(),
		ExpiresAt:       time.Unix(0, r.ExpiresAt).UTC(),
	}
	if r.AuthorizationCode.Valid {
		session.AuthorizationCode = utils.Ptr(r.AuthorizationCode.String)
	}
	if r.AccessToken.Valid {
		session.AccessToken = utils.Ptr(r.AccessToken.String)
	}
	if r.IdentityData.Valid {
		var identity verification.IdentityData
		if err := json.Unmarshal([]byte(r.IdentityData.String), &identity); err != nil {
			return nil, &verification.CorruptRecordError{SessionToken: r.SessionToken, Err: fmt.Errorf("invalid identity data: %w", err)}
		}
		session.IdentityData = &identity
	}
	if _, err := verification.ParseSubjectCategory(r.SubjectCategory); err != nil {
		return nil, &verification.CorruptRecordError{SessionToken: r.SessionToken, Err: err}
	}
	if err := session.CheckIntegrity(); err != nil {
		return nil, &verification.CorruptRecordError{SessionToken: r.SessionToken, Err: err}
	}
	return session, nil
}

func nullString(s *string) sql.NullString {
	return sql.NullString{String: utils.Value(s), Valid: s != nil}
}

// Create inserts a new unverified session
func (r *SessionRepo) Create(ctx context.Context, session *verification.Session) error {
	if session == nil || session.SessionToken == "" || session.State == "" {
		return fmt.Errorf("[SessionRepo Create] session token and state are required")
	}

	row := sessionRow{
		SessionToken:      session.SessionToken,
		State:             session.State,
		SubjectCategory:   string(session.SubjectCategory),
		AuthorizationCode: nullString(session.AuthorizationCode),
		AccessToken:       nullString(session.AccessToken),
		Verified:          session.Verified,
		CreatedAt:         session.CreatedAt.UnixNano(),
		ExpiresAt:         session.ExpiresAt.UnixNano(),
	}
	if session.IdentityData != nil {
		data, err := json.Marshal(session.IdentityData)
		if err != nil {
			return fmt.Errorf("[SessionRepo Create] failed to encode identity data: %w", err)
		}
		row.IdentityData = sql.NullString{String: string(data), Valid: true}
	}

	query := `
		INSERT INTO nafath_sessions (` + sessionColumns + `)
		VALUES (:session_token, :state, :subject_category, :authorization_code, :access_token,
			:identity_data, :verified, :created_at, :expires_at)`

	if _, err := r.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("[SessionRepo Create] failed to create session: %w", err)
	}
	return nil
}

// GetUnverifiedByState finds the in-flight session for a state value
func (r *SessionRepo) GetUnverifiedByState(ctx context.Context, state string) (*verification.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM nafath_sessions WHERE state = ? AND verified = ?`)
	return r.getOne(ctx, "GetUnverifiedByState", query, state, false)
}

// GetVerifiedByToken finds a completed session by token
func (r *SessionRepo) GetVerifiedByToken(ctx context.Context, token string) (*verification.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM nafath_sessions WHERE session_token = ? AND verified = ?`)
	return r.getOne(ctx, "GetVerifiedByToken", query, token, true)
}

// GetByToken finds a session by token regardless of status
func (r *SessionRepo) GetByToken(ctx context.Context, token string) (*verification.Session, error) {
	query := r.db.Rebind(`SELECT ` + sessionColumns + ` FROM nafath_sessions WHERE session_token = ?`)
	return r.getOne(ctx, "GetByToken", query, token)
}

func (r *SessionRepo) getOne(ctx context.Context, op, query string, args ...any) (*verification.Session, error) {
	var row sessionRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.Wrapf(apperrors.ErrNotFound, "[SessionRepo %s]", op)
		}
		return nil, fmt.Errorf("[SessionRepo %s] failed to get session: %w", op, err)
	}
	return row.toEntity()
}

// MarkVerified stores the verification result, only while the session is still unverified
func (r *SessionRepo) MarkVerified(ctx context.Context, token string, result verification.VerificationResult) error {
	data, err := json.Marshal(result.IdentityData)
	if err != nil {
		return fmt.Errorf("[SessionRepo MarkVerified] failed to encode identity data: %w", err)
	}

	query := r.db.Rebind(`
		UPDATE nafath_sessions
		SET authorization_code = ?, access_token = ?, identity_data = ?, verified = ?
		WHERE session_token = ? AND verified = ?`)

	res, err := r.db.ExecContext(ctx, query,
		nullString(utils.PtrOrNil(result.AuthorizationCode)), result.AccessToken, string(data), true, token, false)
	if err != nil {
		return fmt.Errorf("[SessionRepo MarkVerified] failed to update session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("[SessionRepo MarkVerified] failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return apperrors.Wrapf(apperrors.ErrNotFound, "[SessionRepo MarkVerified]")
	}
	return nil
}

// Delete removes a session and reports whether it existed
func (r *SessionRepo) Delete(ctx context.Context, token string) (bool, error) {
	query := r.db.Rebind(`DELETE FROM nafath_sessions WHERE session_token = ?`)

	res, err := r.db.ExecContext(ctx, query, token)
	if err != nil {
		return false, fmt.Errorf("[SessionRepo Delete] failed to delete session: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("[SessionRepo Delete] failed to get rows affected: %w", err)
	}
	return rows > 0, nil
}

// DeleteExpired removes all sessions that expired strictly before the given time
func (r *SessionRepo) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	query := r.db.Rebind(`DELETE FROM nafath_sessions WHERE expires_at < ?`)

	res, err := r.db.ExecContext(ctx, query, before.UnixNano())
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo DeleteExpired] failed to delete expired sessions: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("[SessionRepo DeleteExpired] failed to get rows affected: %w", err)
	}
	return rows, nil
}
