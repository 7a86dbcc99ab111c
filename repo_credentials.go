package sessionauth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Credentials is the credential store: one row per (role, provider,
// provider_key), soft-delete aware on every read.
type Credentials interface {
	repository.Repository[*Credential]

	Register(ctx context.Context, record *Credential) (*Credential, error)
	RegisterTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error)
	GetByIdentity(ctx context.Context, role Role, provider, providerKey string) (*Credential, error)
	GetByIdentityTx(ctx context.Context, tx bun.IDB, role Role, provider, providerKey string) (*Credential, error)
	RotateSecret(ctx context.Context, id uuid.UUID, secretHash string) error
	RotateSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, secretHash string) error

	TrackAttemptedLogin(ctx context.Context, record *Credential) error
	TrackSucccessfulLogin(ctx context.Context, record *Credential) error
}

type credentials struct {
	repository.Repository[*Credential]
	db *bun.DB
}

var (
	_ Credentials                        = (*credentials)(nil)
	_ repository.Repository[*Credential] = (*credentials)(nil)
)

func NewCredentialsRepository(db *bun.DB) Credentials {
	repo := repository.NewRepository[*Credential](db, repository.ModelHandlers[*Credential]{
		NewRecord: func() *Credential { return &Credential{} },
		GetID: func(c *Credential) uuid.UUID {
			if c == nil {
				return uuid.Nil
			}
			return c.ID
		},
		SetID: func(c *Credential, id uuid.UUID) {
			if c != nil {
				c.ID = id
			}
		},
		GetIdentifier: func() string {
			return "provider_key"
		},
	})

	return &credentials{
		Repository: repo,
		db:         db,
	}
}

func (a *credentials) Register(ctx context.Context, record *Credential) (*Credential, error) {
	return a.RegisterTx(ctx, a.db, record)
}

// RegisterTx inserts exactly one credential row. A non-deleted row with the
// same (role, provider, provider_key) fails with ErrDuplicateIdentity; the
// unique index backs this check up under concurrent registration.
func (a *credentials) RegisterTx(ctx context.Context, tx bun.IDB, record *Credential) (*Credential, error) {
	existing, err := a.GetByIdentityTx(ctx, tx, record.Role, record.Provider, record.ProviderKey)
	if err != nil && !repository.IsRecordNotFound(err) {
		return nil, err
	}
	if existing != nil {
		return nil, ErrDuplicateIdentity.Clone().WithMetadata(map[string]any{
			"role":     record.Role.String(),
			"provider": record.Provider,
		})
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	return a.Repository.CreateTx(ctx, tx, record)
}

func (a *credentials) GetByIdentity(ctx context.Context, role Role, provider, providerKey string) (*Credential, error) {
	return a.GetByIdentityTx(ctx, a.db, role, provider, providerKey)
}

func (a *credentials) GetByIdentityTx(ctx context.Context, tx bun.IDB, role Role, provider, providerKey string) (*Credential, error) {
	record := &Credential{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.role = ?", role).
		Where("?TableAlias.provider = ?", provider).
		Where("?TableAlias.provider_key = ?", providerKey).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"role":     role.String(),
					"provider": provider,
				})
		}
		return nil, err
	}

	return record, nil
}

func (a *credentials) RotateSecret(ctx context.Context, id uuid.UUID, secretHash string) error {
	return a.RotateSecretTx(ctx, a.db, id, secretHash)
}

func (a *credentials) RotateSecretTx(ctx context.Context, tx bun.IDB, id uuid.UUID, secretHash string) error {
	res, err := tx.NewUpdate().
		Model((*Credential)(nil)).
		Set("secret_hash = ?", secretHash).
		Set("updated_at = ?", time.Now()).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	if err != nil {
		return err
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		return repository.NewRecordNotFound().
			WithMetadata(map[string]any{"id": id.String()})
	}

	return nil
}

func (a *credentials) TrackSucccessfulLogin(ctx context.Context, record *Credential) error {
	// NOTE: Updating using the ORM fails to reset the attempt fields to
	// their zero values, so this stays raw SQL.
	loggedInAt := time.Now()
	_, err := a.db.NewRaw(`
		UPDATE "credentials" AS "cred"
		SET
			"loggedin_at" = ?,
			"login_attempt_at" = NULL,
			"login_attempts" = 0
		WHERE
			("cred".id = ?)
			AND "cred"."deleted_at" IS NULL;
	`, loggedInAt, record.ID).Exec(ctx)

	return err
}

func (a *credentials) TrackAttemptedLogin(ctx context.Context, record *Credential) error {
	criteria := []repository.UpdateCriteria{
		repository.UpdateByID(record.ID.String()),
	}

	update := &Credential{}
	update.ID = record.ID
	update.LoginAttempts = record.LoginAttempts + 1
	now := time.Now()
	update.LoginAttemptAt = &now

	_, err := a.Repository.Update(ctx, update, criteria...)

	return err
}
