package pgx

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ljmarquez/latch"
)

const uniqueViolation = "23505"

func (a *Adapter) CreateAccount(ctx context.Context, acc *latch.Account) error {
	query := `INSERT INTO public.accounts (id, email, password_hash, external_id, has_set_password)
	          VALUES ($1, $2, $3, $4, $5)
	          RETURNING version, created_at, updated_at`

	var version int64
	var createdAt, updatedAt time.Time
	err := a.pool.QueryRow(ctx, query,
		acc.ID, acc.Email, acc.PasswordHash, acc.ExternalID, acc.HasSetPassword,
	).Scan(&version, &createdAt, &updatedAt)

	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "external_id") {
				return latch.ErrIdentityConflict
			}
			return latch.ErrEmailTaken
		}
		return err
	}

	acc.Version = version
	acc.CreatedAt = createdAt
	acc.UpdatedAt = updatedAt
	return nil
}

func (a *Adapter) GetAccountByID(ctx context.Context, id string) (*latch.Account, error) {
	q := `SELECT id, email, password_hash, external_id, has_set_password, version, created_at, updated_at
	      FROM public.accounts WHERE id = $1`

	return a.scanAccount(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetAccountByEmail(ctx context.Context, email string) (*latch.Account, error) {
	q := `SELECT id, email, password_hash, external_id, has_set_password, version, created_at, updated_at
	      FROM public.accounts WHERE email = $1`

	return a.scanAccount(a.pool.QueryRow(ctx, q, email))
}

// UpdateAccount writes the account back guarded by the version read with
// it. Zero rows affected means a concurrent writer got there first; the
// caller re-reads and re-applies.
func (a *Adapter) UpdateAccount(ctx context.Context, acc *latch.Account) error {
	q := `UPDATE public.accounts
	      SET email = $1, password_hash = $2, external_id = $3, has_set_password = $4,
	          version = version + 1, updated_at = now()
	      WHERE id = $5 AND version = $6
	      RETURNING version, updated_at`

	var version int64
	var updatedAt time.Time
	err := a.pool.QueryRow(ctx, q,
		acc.Email, acc.PasswordHash, acc.ExternalID, acc.HasSetPassword, acc.ID, acc.Version,
	).Scan(&version, &updatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return latch.ErrVersionConflict
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			if strings.Contains(pgErr.ConstraintName, "external_id") {
				return latch.ErrIdentityConflict
			}
			return latch.ErrEmailTaken
		}
		return err
	}

	acc.Version = version
	acc.UpdatedAt = updatedAt
	return nil
}

func (a *Adapter) scanAccount(row pgx.Row) (*latch.Account, error) {
	acc := &latch.Account{}
	var externalID *string
	err := row.Scan(
		&acc.ID, &acc.Email, &acc.PasswordHash, &externalID, &acc.HasSetPassword,
		&acc.Version, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, latch.ErrAccountNotFound
		}
		return nil, err
	}
	acc.ExternalID = externalID
	return acc, nil
}
