package sessionauth

import (
	"context"
	"time"

	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Principals is the store of principal-owning user records. Reads go through
// bun's soft-delete filter, so deactivated users are invisible to every
// lookup without call sites repeating the filter.
type Principals interface {
	repository.Repository[*User]

	Register(ctx context.Context, user *User) (*User, error)
	RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error)
	GetActiveByID(ctx context.Context, id uuid.UUID) (*User, error)
	GetActiveByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error)
	Deactivate(ctx context.Context, id uuid.UUID) error
	DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error
}

type principals struct {
	repository.Repository[*User]
	db *bun.DB
}

var (
	_ Principals                   = (*principals)(nil)
	_ repository.Repository[*User] = (*principals)(nil)
)

func NewPrincipalsRepository(db *bun.DB) Principals {
	repo := repository.NewRepository[*User](db, repository.ModelHandlers[*User]{
		NewRecord: func() *User { return &User{} },
		GetID: func(u *User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
		GetIdentifier: func() string {
			return "email"
		},
	})

	return &principals{
		Repository: repo,
		db:         db,
	}
}

func (p *principals) Register(ctx context.Context, user *User) (*User, error) {
	return p.RegisterTx(ctx, p.db, user)
}

func (p *principals) RegisterTx(ctx context.Context, tx bun.IDB, user *User) (*User, error) {
	prepareUserDefaults(user)
	return p.Repository.CreateTx(ctx, tx, user)
}

func (p *principals) GetActiveByID(ctx context.Context, id uuid.UUID) (*User, error) {
	return p.GetActiveByIDTx(ctx, p.db, id)
}

// GetActiveByIDTx loads a non-deleted user. A soft-deleted user surfaces as
// record-not-found, which callers translate into ErrPrincipalDeactivated.
func (p *principals) GetActiveByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*User, error) {
	record := &User{}
	err := tx.NewSelect().
		Model(record).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{"id": id.String()})
		}
		return nil, err
	}

	return record, nil
}

func (p *principals) Deactivate(ctx context.Context, id uuid.UUID) error {
	return p.DeactivateTx(ctx, p.db, id)
}

// DeactivateTx marks the user as soft-deleted. The row stays in place while
// sessions reference it.
func (p *principals) DeactivateTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	now := time.Now()
	_, err := tx.NewUpdate().
		Model((*User)(nil)).
		Set("deleted_at = ?", now).
		Where("id = ?", id).
		Where("deleted_at IS NULL").
		Exec(ctx)
	return err
}

func prepareUserDefaults(record *User) {
	if record == nil {
		return
	}

	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
}
