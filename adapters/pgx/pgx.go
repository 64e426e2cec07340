package pgx

import (
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ljmarquez/latch"
)

type Adapter struct {
	pool *pgxpool.Pool
}

var _ latch.AuthStorage = (*Adapter)(nil)

func New(pool *pgxpool.Pool) *Adapter {
	return &Adapter{
		pool: pool,
	}
}
