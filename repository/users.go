package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/goliatone/go-accounts"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Users implements accounts.Users on bun
type Users struct {
	repo repository.Repository[*accounts.User]
	db   *bun.DB
}

var _ accounts.Users = (*Users)(nil)

// NewUsers creates a Users repository
func NewUsers(db *bun.DB) *Users {
	repo := repository.NewRepository[*accounts.User](db, repository.ModelHandlers[*accounts.User]{
		NewRecord: func() *accounts.User { return &accounts.User{} },
		GetID: func(u *accounts.User) uuid.UUID {
			if u == nil {
				return uuid.Nil
			}
			return u.ID
		},
		SetID: func(u *accounts.User, id uuid.UUID) {
			if u != nil {
				u.ID = id
			}
		},
	})

	return &Users{
		repo: repo,
		db:   db,
	}
}

func (r *Users) GetByID(ctx context.Context, id uuid.UUID) (*accounts.User, error) {
	user, err := r.repo.GetByID(ctx, id.String())
	if err != nil {
		return nil, mapNotFound(err, accounts.ErrUserNotFound)
	}
	return user, nil
}

func (r *Users) GetByIDTx(ctx context.Context, tx bun.IDB, id uuid.UUID) (*accounts.User, error) {
	user := &accounts.User{}
	err := tx.NewSelect().
		Model(user).
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err, accounts.ErrUserNotFound)
	}
	return user, nil
}

func (r *Users) GetByEmail(ctx context.Context, email string) (*accounts.User, error) {
	return r.GetByEmailTx(ctx, r.db, email)
}

func (r *Users) GetByEmailTx(ctx context.Context, tx bun.IDB, email string) (*accounts.User, error) {
	user := &accounts.User{}
	err := tx.NewSelect().
		Model(user).
		Where("?TableAlias.email = ?", email).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, mapNotFound(err, accounts.ErrUserNotFound)
	}
	return user, nil
}

func (r *Users) List(ctx context.Context) ([]*accounts.User, error) {
	users := make([]*accounts.User, 0)
	err := r.db.NewSelect().
		Model(&users).
		Order("created_at ASC").
		Scan(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list users")
	}
	return users, nil
}

func (r *Users) Create(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	return r.CreateTx(ctx, r.db, user)
}

func (r *Users) CreateTx(ctx context.Context, tx bun.IDB, user *accounts.User) (*accounts.User, error) {
	accounts.PrepareUserDefaults(user)
	return r.repo.CreateTx(ctx, tx, user)
}

func (r *Users) Update(ctx context.Context, user *accounts.User) (*accounts.User, error) {
	return r.UpdateTx(ctx, r.db, user)
}

func (r *Users) UpdateTx(ctx context.Context, tx bun.IDB, user *accounts.User) (*accounts.User, error) {
	res, err := tx.NewUpdate().
		Model(user).
		Column("name", "email", "password_hash", "role", "status", "kyc_status", "active", "updated_at").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user")
	}
	if !affected(res) {
		return nil, accounts.ErrUserNotFound
	}
	return user, nil
}

func (r *Users) UpdateStatus(ctx context.Context, id uuid.UUID, status accounts.UserStatus) (*accounts.User, error) {
	return r.UpdateStatusTx(ctx, r.db, id, status)
}

func (r *Users) UpdateStatusTx(ctx context.Context, tx bun.IDB, id uuid.UUID, status accounts.UserStatus) (*accounts.User, error) {
	res, err := tx.NewUpdate().
		Model((*accounts.User)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user status")
	}
	if !affected(res) {
		return nil, accounts.ErrUserNotFound
	}
	return r.GetByIDTx(ctx, tx, id)
}

func (r *Users) Delete(ctx context.Context, id uuid.UUID) error {
	return r.DeleteTx(ctx, r.db, id)
}

func (r *Users) DeleteTx(ctx context.Context, tx bun.IDB, id uuid.UUID) error {
	res, err := tx.NewDelete().
		Model((*accounts.User)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete user")
	}
	if !affected(res) {
		return accounts.ErrUserNotFound
	}
	return nil
}

func mapNotFound(err error, notFound error) error {
	if errors.Is(err, sql.ErrNoRows) || repository.IsRecordNotFound(err) {
		return notFound
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "query failed")
}

func affected(res sql.Result) bool {
	if res == nil {
		return false
	}
	n, err := res.RowsAffected()
	return err == nil && n > 0
}
