package sessionauth

import (
	"context"
	"database/sql"
	"time"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Sessions is the session registry: the source of truth for which refresh
// tokens are currently honorable. No in-process caching sits in front of it;
// staleness would reopen the replay window rotation closes.
type Sessions interface {
	Open(ctx context.Context, sess *Session) (*Session, error)
	OpenTx(ctx context.Context, tx bun.IDB, sess *Session) (*Session, error)

	// FindActive returns the session bound to the refresh token and role,
	// or nil when no such session is active. Absence is not an error;
	// callers translate it into ErrSessionNotFound.
	FindActive(ctx context.Context, refreshToken string, role Role) (*Session, error)
	FindActiveTx(ctx context.Context, tx bun.IDB, refreshToken string, role Role) (*Session, error)

	// FindByToken looks the session up regardless of lifecycle state, used
	// by logout so revocation stays idempotent.
	FindByToken(ctx context.Context, refreshToken string, role Role) (*Session, error)

	// Rotate atomically swaps the session's refresh token and expiry
	// window. The update is conditioned on the old token still being in
	// place: of two concurrent refresh calls holding the same stale token
	// exactly one wins, the loser observes ErrSessionNotFound.
	Rotate(ctx context.Context, id uuid.UUID, oldToken, newToken string, issuedAt, expiresAt time.Time) (*Session, error)
	RotateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, oldToken, newToken string, issuedAt, expiresAt time.Time) (*Session, error)

	// Revoke terminates the session. Revoking twice is a no-op.
	Revoke(ctx context.Context, id uuid.UUID) error
	RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error

	RevokeAllForPrincipal(ctx context.Context, userID uuid.UUID, role Role) error
	RevokeAllForPrincipalTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, role Role) error
}

type sessions struct {
	db  *bun.DB
	now func() time.Time
}

var _ Sessions = (*sessions)(nil)

// SessionsOption configures the sessions repository.
type SessionsOption func(*sessions)

// WithSessionClock overrides the registry time source.
func WithSessionClock(now func() time.Time) SessionsOption {
	return func(s *sessions) {
		if now != nil {
			s.now = now
		}
	}
}

func NewSessionsRepository(db *bun.DB, opts ...SessionsOption) Sessions {
	repo := &sessions{
		db:  db,
		now: time.Now,
	}

	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}

	return repo
}

func (r *sessions) Open(ctx context.Context, sess *Session) (*Session, error) {
	return r.OpenTx(ctx, r.db, sess)
}

func (r *sessions) OpenTx(ctx context.Context, tx bun.IDB, sess *Session) (*Session, error) {
	if sess.ID == uuid.Nil {
		sess.ID = uuid.New()
	}
	if sess.IssuedAt.IsZero() {
		sess.IssuedAt = r.now()
	}

	if _, err := tx.NewInsert().Model(sess).Exec(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to open session")
	}

	return sess, nil
}

func (r *sessions) FindActive(ctx context.Context, refreshToken string, role Role) (*Session, error) {
	return r.FindActiveTx(ctx, r.db, refreshToken, role)
}

func (r *sessions) FindActiveTx(ctx context.Context, tx bun.IDB, refreshToken string, role Role) (*Session, error) {
	sess := &Session{}
	err := tx.NewSelect().
		Model(sess).
		Where("?TableAlias.refresh_token = ?", refreshToken).
		Where("?TableAlias.role = ?", role).
		Where("?TableAlias.revoked_at IS NULL").
		Where("?TableAlias.expires_at > ?", r.now()).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up session")
	}

	return sess, nil
}

func (r *sessions) FindByToken(ctx context.Context, refreshToken string, role Role) (*Session, error) {
	sess := &Session{}
	err := r.db.NewSelect().
		Model(sess).
		Where("?TableAlias.refresh_token = ?", refreshToken).
		Where("?TableAlias.role = ?", role).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to look up session")
	}

	return sess, nil
}

func (r *sessions) Rotate(ctx context.Context, id uuid.UUID, oldToken, newToken string, issuedAt, expiresAt time.Time) (*Session, error) {
	return r.RotateTx(ctx, r.db, id, oldToken, newToken, issuedAt, expiresAt)
}

func (r *sessions) RotateTx(ctx context.Context, tx bun.IDB, id uuid.UUID, oldToken, newToken string, issuedAt, expiresAt time.Time) (*Session, error) {
	res, err := tx.NewUpdate().
		Model((*Session)(nil)).
		Set("refresh_token = ?", newToken).
		Set("issued_at = ?", issuedAt).
		Set("expires_at = ?", expiresAt).
		Set("updated_at = ?", r.now()).
		Where("id = ?", id).
		Where("refresh_token = ?", oldToken).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to rotate session")
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to read rotation result")
	}
	if rows == 0 {
		// the token was rotated away or revoked between read and write
		return nil, ErrSessionNotFound
	}

	sess := &Session{}
	if err := tx.NewSelect().Model(sess).Where("?TableAlias.id = ?", id).Scan(ctx); err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to reload rotated session")
	}

	return sess, nil
}

func (r *sessions) Revoke(ctx context.Context, id uuid.UUID) error {
	return r.RevokeTx(ctx, r.db, id)
}

func (r *sessions) RevokeTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	_, err := tx.NewUpdate().
		Model((*Session)(nil)).
		Set("revoked_at = ?", r.now()).
		Set("updated_at = ?", r.now()).
		Where("id = ?", id).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke session")
	}

	return nil
}

func (r *sessions) RevokeAllForPrincipal(ctx context.Context, userID uuid.UUID, role Role) error {
	return r.RevokeAllForPrincipalTx(ctx, r.db, userID, role)
}

func (r *sessions) RevokeAllForPrincipalTx(ctx context.Context, tx bun.IDB, userID uuid.UUID, role Role) error {
	_, err := tx.NewUpdate().
		Model((*Session)(nil)).
		Set("revoked_at = ?", r.now()).
		Set("updated_at = ?", r.now()).
		Where("user_id = ?", userID).
		Where("role = ?", role).
		Where("revoked_at IS NULL").
		Exec(ctx)
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "failed to revoke principal sessions")
	}

	return nil
}
