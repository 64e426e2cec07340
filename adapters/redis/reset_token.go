package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/ljmarquez/latch"
)

const (
	resetKeyPrefix        = "latch:reset:"
	resetAccountKeyPrefix = "latch:reset-account:"
)

// ResetTokenStore keeps reset tokens in Redis, keyed by token hash.
// Expiry is a key TTL and consumption is GETDEL, so single use holds
// without any locking on our side: concurrent consumers race on one
// atomic command and exactly one gets the value.
//
// A per-account set tracks outstanding token keys so they can be
// revoked together.
type ResetTokenStore struct {
	client *goredis.Client
}

var _ latch.ResetTokenStorage = (*ResetTokenStore)(nil)

func NewResetTokenStore(client *goredis.Client) *ResetTokenStore {
	return &ResetTokenStore{client: client}
}

func (s *ResetTokenStore) CreateResetToken(ctx context.Context, t *latch.ResetToken) error {
	ttl := time.Until(t.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("reset token expiry must be in the future")
	}

	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("marshal reset token: %w", err)
	}

	key := resetKeyPrefix + t.TokenHash
	accountKey := resetAccountKeyPrefix + t.AccountID

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, key, data, ttl)
	pipe.SAdd(ctx, accountKey, key)
	pipe.Expire(ctx, accountKey, ttl)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *ResetTokenStore) ConsumeResetToken(ctx context.Context, tokenHash string) (*latch.ResetToken, error) {
	val, err := s.client.GetDel(ctx, resetKeyPrefix+tokenHash).Result()
	if errors.Is(err, goredis.Nil) {
		return nil, latch.ErrInvalidResetToken
	}
	if err != nil {
		return nil, err
	}

	var t latch.ResetToken
	if err := json.Unmarshal([]byte(val), &t); err != nil {
		return nil, fmt.Errorf("unmarshal reset token: %w", err)
	}

	s.client.SRem(ctx, resetAccountKeyPrefix+t.AccountID, resetKeyPrefix+tokenHash)

	return &t, nil
}

func (s *ResetTokenStore) DeleteAccountResetTokens(ctx context.Context, accountID string) error {
	accountKey := resetAccountKeyPrefix + accountID

	keys, err := s.client.SMembers(ctx, accountKey).Result()
	if err != nil {
		return err
	}

	if len(keys) > 0 {
		if err := s.client.Del(ctx, keys...).Err(); err != nil {
			return err
		}
	}

	return s.client.Del(ctx, accountKey).Err()
}
