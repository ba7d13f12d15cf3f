package otp

import (
	"context"
	"errors"
	"time"

	"github.com/librisvault/librisvault-backend/pkg/config"
	"github.com/librisvault/librisvault-backend/pkg/redis"
	"github.com/librisvault/librisvault-backend/pkg/security"
)

type kv interface {
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	IncrWithTTL(ctx context.Context, key string, ttl time.Duration) (int64, error)
	Del(ctx context.Context, keys ...string) error
	OTPKey(phone string) string
	OTPAttemptsKey(phone string) string
}

const defaultAttemptsTTL = 10 * time.Minute

// RedisStore shares pending codes across API instances.
type RedisStore struct {
	kv          kv
	maxAttempts int
	ttl         time.Duration
}

// NewRedisStore wires a Store backed by the shared redis client.
func NewRedisStore(client *redis.Client, cfg config.OTPConfig) *RedisStore {
	return &RedisStore{kv: client, maxAttempts: cfg.MaxAttempts, ttl: cfg.TTL}
}

func (s *RedisStore) Save(ctx context.Context, phone, code string, ttl time.Duration) error {
	if err := s.kv.Del(ctx, s.kv.OTPAttemptsKey(phone)); err != nil {
		return err
	}
	return s.kv.Set(ctx, s.kv.OTPKey(phone), code, ttl)
}

func (s *RedisStore) Verify(ctx context.Context, phone, code string) error {
	codeKey := s.kv.OTPKey(phone)
	attemptsKey := s.kv.OTPAttemptsKey(phone)

	stored, err := s.kv.Get(ctx, codeKey)
	if errors.Is(err, redis.ErrNil) {
		return ErrCodeNotFound
	}
	if err != nil {
		return err
	}

	if security.ConstantTimeEqual(stored, code) {
		return s.kv.Del(ctx, codeKey, attemptsKey)
	}

	ttl := s.ttl
	if ttl <= 0 {
		ttl = defaultAttemptsTTL
	}
	attempts, err := s.kv.IncrWithTTL(ctx, attemptsKey, ttl)
	if err != nil {
		return err
	}
	if s.maxAttempts > 0 && attempts >= int64(s.maxAttempts) {
		if err := s.kv.Del(ctx, codeKey, attemptsKey); err != nil {
			return err
		}
		return ErrTooManyAttempts
	}
	return ErrCodeMismatch
}
