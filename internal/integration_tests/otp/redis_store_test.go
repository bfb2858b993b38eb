//go:build integration

package otp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"regportal/internal/officerauth/store/otp"
	"regportal/pkg/platform/sentinel"
	"regportal/pkg/testutil/containers"
)

func newRedisStore(t *testing.T) (*otp.RedisStore, context.Context) {
	rc := containers.NewRedisContainer(t)
	require.NoError(t, rc.FlushAll(context.Background()))
	return otp.NewRedisStore(rc.Client), context.Background()
}

func record(key, code string, expiresAt time.Time) otp.Record {
	return otp.Record{
		RegistrationNumber: key,
		Code:               code,
		ExpiresAt:          expiresAt,
		OfficerID:          uuid.New(),
		ApplicationID:      uuid.New(),
	}
}

func TestRedisConsumeIsSingleUse(t *testing.T) {
	store, ctx := newRedisStore(t)
	now := time.Now()
	key := "CPC/COM/REG/2026/0001"

	rec := record(key, "123456", now.Add(10*time.Minute))
	require.NoError(t, store.Put(ctx, rec))

	got, err := store.Consume(ctx, key, "123456", now)
	require.NoError(t, err)
	assert.Equal(t, rec.OfficerID, got.OfficerID)
	assert.Empty(t, got.Code)

	_, err = store.Consume(ctx, key, "123456", now)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisMismatchRetainsRecord(t *testing.T) {
	store, ctx := newRedisStore(t)
	now := time.Now()
	key := "CPC/COM/REG/2026/0002"

	require.NoError(t, store.Put(ctx, record(key, "654321", now.Add(10*time.Minute))))

	_, err := store.Consume(ctx, key, "000000", now)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	got, err := store.Consume(ctx, key, "654321", now)
	require.NoError(t, err)
	assert.Equal(t, key, got.RegistrationNumber)
}

func TestRedisTTLExpiresRecord(t *testing.T) {
	store, ctx := newRedisStore(t)
	now := time.Now()
	key := "CPC/COM/REG/2026/0003"

	require.NoError(t, store.Put(ctx, record(key, "111111", now.Add(time.Second))))
	time.Sleep(1500 * time.Millisecond)

	_, err := store.Consume(ctx, key, "111111", time.Now())
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisStaleRecordReportsExpiredNotMismatch(t *testing.T) {
	store, ctx := newRedisStore(t)
	now := time.Now()
	key := "CPC/COM/REG/2026/0005"

	require.NoError(t, store.Put(ctx, record(key, "111111", now.Add(10*time.Minute))))

	// The record is still live under the Redis TTL, but the caller's clock is
	// past the deadline. A wrong code must report expired, not a mismatch,
	// and the record must be gone afterwards.
	_, err := store.Consume(ctx, key, "000000", now.Add(10*time.Minute+time.Second))
	assert.ErrorIs(t, err, sentinel.ErrExpired)

	_, err = store.Consume(ctx, key, "111111", now)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}

func TestRedisLastRequestWins(t *testing.T) {
	store, ctx := newRedisStore(t)
	now := time.Now()
	key := "CPC/COM/REG/2026/0004"

	second := record(key, "222222", now.Add(10*time.Minute))
	require.NoError(t, store.Put(ctx, record(key, "111111", now.Add(10*time.Minute))))
	require.NoError(t, store.Put(ctx, second))

	_, err := store.Consume(ctx, key, "111111", now)
	assert.ErrorIs(t, err, sentinel.ErrInvalidState)

	got, err := store.Consume(ctx, key, "222222", now)
	require.NoError(t, err)
	assert.Equal(t, second.OfficerID, got.OfficerID)
}
