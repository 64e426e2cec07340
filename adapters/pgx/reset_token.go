package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ljmarquez/latch"
)

func (a *Adapter) CreateResetToken(ctx context.Context, t *latch.ResetToken) error {
	query := `INSERT INTO public.reset_tokens (id, account_id, token_hash, expires_at, created_at)
	          VALUES ($1, $2, $3, $4, $5)`

	_, err := a.pool.Exec(ctx, query, t.ID, t.AccountID, t.TokenHash, t.ExpiresAt, t.CreatedAt)
	return err
}

// ConsumeResetToken deletes and returns the token in one statement, so
// concurrent consumers race on the row and exactly one sees it.
func (a *Adapter) ConsumeResetToken(ctx context.Context, tokenHash string) (*latch.ResetToken, error) {
	query := `DELETE FROM public.reset_tokens
	          WHERE token_hash = $1 AND expires_at > now()
	          RETURNING id, account_id, token_hash, expires_at, created_at`

	t := &latch.ResetToken{}
	err := a.pool.QueryRow(ctx, query, tokenHash).Scan(
		&t.ID, &t.AccountID, &t.TokenHash, &t.ExpiresAt, &t.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, latch.ErrInvalidResetToken
		}
		return nil, err
	}

	return t, nil
}

func (a *Adapter) DeleteAccountResetTokens(ctx context.Context, accountID string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM public.reset_tokens WHERE account_id = $1`, accountID)
	return err
}
