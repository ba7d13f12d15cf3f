package otp

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/librisvault/librisvault-backend/pkg/redis"
)

func TestMemoryStoreVerify(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(3)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "+15550001", "123456", time.Minute))
	require.ErrorIs(t, store.Verify(ctx, "+15550001", "000000"), ErrCodeMismatch)
	require.NoError(t, store.Verify(ctx, "+15550001", "123456"))
	require.ErrorIs(t, store.Verify(ctx, "+15550001", "123456"), ErrCodeNotFound)
}

func TestMemoryStoreExpiresAndBurnsCodes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(2)
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, "+1", "111111", time.Minute))
	now = now.Add(time.Minute)
	require.ErrorIs(t, store.Verify(ctx, "+1", "111111"), ErrCodeNotFound)

	require.NoError(t, store.Save(ctx, "+1", "222222", time.Minute))
	require.ErrorIs(t, store.Verify(ctx, "+1", "000000"), ErrCodeMismatch)
	require.ErrorIs(t, store.Verify(ctx, "+1", "000001"), ErrTooManyAttempts)
	require.ErrorIs(t, store.Verify(ctx, "+1", "222222"), ErrCodeNotFound)
}

type fakeKV struct {
	values map[string]string
	counts map[string]int64
}

func newFakeKV() *fakeKV {
	return &fakeKV{values: map[string]string{}, counts: map[string]int64{}}
}

func (f *fakeKV) Set(_ context.Context, key string, value any, _ time.Duration) error {
	f.values[key] = value.(string)
	return nil
}

func (f *fakeKV) Get(_ context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", redis.ErrNil
	}
	return v, nil
}

func (f *fakeKV) IncrWithTTL(_ context.Context, key string, _ time.Duration) (int64, error) {
	f.counts[key]++
	return f.counts[key], nil
}

func (f *fakeKV) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
		delete(f.counts, key)
	}
	return nil
}

func (f *fakeKV) OTPKey(phone string) string         { return "otp:code:" + phone }
func (f *fakeKV) OTPAttemptsKey(phone string) string { return "otp:attempts:" + phone }

func TestRedisStoreVerify(t *testing.T) {
	ctx := context.Background()
	kv := newFakeKV()
	store := &RedisStore{kv: kv, maxAttempts: 2, ttl: time.Minute}

	require.ErrorIs(t, store.Verify(ctx, "+1", "123456"), ErrCodeNotFound)

	require.NoError(t, store.Save(ctx, "+1", "123456", time.Minute))
	require.ErrorIs(t, store.Verify(ctx, "+1", "999999"), ErrCodeMismatch)
	require.NoError(t, store.Verify(ctx, "+1", "123456"))
	require.Empty(t, kv.values)

	require.NoError(t, store.Save(ctx, "+1", "654321", time.Minute))
	require.ErrorIs(t, store.Verify(ctx, "+1", "000000"), ErrCodeMismatch)
	require.ErrorIs(t, store.Verify(ctx, "+1", "000000"), ErrTooManyAttempts)
	require.ErrorIs(t, store.Verify(ctx, "+1", "654321"), ErrCodeNotFound)
}
