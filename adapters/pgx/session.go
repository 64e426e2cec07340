package pgx

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/ljmarquez/latch"
)

func (a *Adapter) CreateSession(ctx context.Context, s *latch.Session) error {
	query := `INSERT INTO public.sessions (id, account_id, token_hash, ip_address, user_agent, expires_at)
	          VALUES ($1, $2, $3, $4, $5, $6)
	          RETURNING created_at, updated_at`

	return a.pool.QueryRow(ctx, query,
		s.ID, s.AccountID, s.TokenHash, s.IPAddress, s.UserAgent, s.ExpiresAt,
	).Scan(&s.CreatedAt, &s.UpdatedAt)
}

func (a *Adapter) GetSessionByHash(ctx context.Context, tokenHash string) (*latch.Session, error) {
	q := `SELECT id, account_id, token_hash, ip_address, user_agent, expires_at, created_at, updated_at
	      FROM public.sessions WHERE token_hash = $1`

	return a.scanSession(a.pool.QueryRow(ctx, q, tokenHash))
}

func (a *Adapter) GetSessionByID(ctx context.Context, id string) (*latch.Session, error) {
	q := `SELECT id, account_id, token_hash, ip_address, user_agent, expires_at, created_at, updated_at
	      FROM public.sessions WHERE id = $1`

	return a.scanSession(a.pool.QueryRow(ctx, q, id))
}

func (a *Adapter) GetAccountSessions(ctx context.Context, accountID string) ([]*latch.Session, error) {
	q := `SELECT id, account_id, token_hash, ip_address, user_agent, expires_at, created_at, updated_at
	      FROM public.sessions WHERE account_id = $1`

	rows, err := a.pool.Query(ctx, q, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []*latch.Session
	for rows.Next() {
		s := &latch.Session{}
		err := rows.Scan(
			&s.ID, &s.AccountID, &s.TokenHash, &s.IPAddress, &s.UserAgent,
			&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
		)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, s)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}

	return sessions, nil
}

func (a *Adapter) DeleteSessionByID(ctx context.Context, id string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE id = $1`, id)
	return err
}

func (a *Adapter) DeleteSessionByHash(ctx context.Context, tokenHash string) error {
	_, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE token_hash = $1`, tokenHash)
	return err
}

func (a *Adapter) DeleteAccountSessions(ctx context.Context, accountID string) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE account_id = $1`, accountID)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) DeleteExpiredSessions(ctx context.Context) (int, error) {
	tag, err := a.pool.Exec(ctx, `DELETE FROM public.sessions WHERE expires_at <= now()`)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

func (a *Adapter) scanSession(row pgx.Row) (*latch.Session, error) {
	s := &latch.Session{}
	err := row.Scan(
		&s.ID, &s.AccountID, &s.TokenHash, &s.IPAddress, &s.UserAgent,
		&s.ExpiresAt, &s.CreatedAt, &s.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, latch.ErrSessionNotFound
		}
		return nil, err
	}
	return s, nil
}
