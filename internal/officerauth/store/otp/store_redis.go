package otp

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"regportal/pkg/platform/sentinel"
)

const keyPrefix = "otp:reg:"

// consumeScript makes verify-then-delete atomic across instances. Expiry is
// checked before the code compare so a stale record reports expired, never a
// mismatch, matching the in-memory store. Only a digest of the code is
// stored; the script hashes the submitted code server-side for the compare.
// Deletes on match and on expiry; returns the stored JSON on match.
var consumeScript = redis.NewScript(`
local value = redis.call("GET", KEYS[1])
if not value then
	return false
end
local record = cjson.decode(value)
if tonumber(ARGV[2]) > record.exp then
	redis.call("DEL", KEYS[1])
	return "EXPIRED"
end
if record.codeSha1 == redis.sha1hex(ARGV[1]) then
	redis.call("DEL", KEYS[1])
	return value
end
return "MISMATCH"
`)

// redisRecord is the at-rest form: the code is replaced by its SHA-1 digest
// and the expiry is duplicated as unix seconds for the Lua compare.
type redisRecord struct {
	RegistrationNumber string    `json:"registrationNumber"`
	CodeSHA1           string    `json:"codeSha1"`
	ExpiresAt          time.Time `json:"expiresAt"`
	ExpiresAtUnix      int64     `json:"exp"`
	OfficerID          uuid.UUID `json:"officerId"`
	ApplicationID      uuid.UUID `json:"applicationId"`
}

func codeDigest(code string) string {
	sum := sha1.Sum([]byte(code))
	return hex.EncodeToString(sum[:])
}

// RedisStore is the OTP store for multi-instance deployments. Redis TTL
// bounds record lifetime, so the sweep is a no-op here.
type RedisStore struct {
	client redis.UniversalClient
}

func NewRedisStore(client redis.UniversalClient) *RedisStore {
	return &RedisStore{client: client}
}

func (s *RedisStore) Put(ctx context.Context, record Record) error {
	stored := redisRecord{
		RegistrationNumber: record.RegistrationNumber,
		CodeSHA1:           codeDigest(record.Code),
		ExpiresAt:          record.ExpiresAt,
		ExpiresAtUnix:      record.ExpiresAt.Unix(),
		OfficerID:          record.OfficerID,
		ApplicationID:      record.ApplicationID,
	}
	value, err := json.Marshal(stored)
	if err != nil {
		return fmt.Errorf("marshal otp record: %w", err)
	}
	ttl := time.Until(record.ExpiresAt)
	if ttl <= 0 {
		return fmt.Errorf("otp record already expired: %w", sentinel.ErrExpired)
	}
	// SET with TTL replaces any live record for the key: last request wins.
	if err := s.client.Set(ctx, keyPrefix+record.RegistrationNumber, value, ttl).Err(); err != nil {
		return fmt.Errorf("store otp record: %w", err)
	}
	return nil
}

func (s *RedisStore) Consume(ctx context.Context, key, code string, now time.Time) (*Record, error) {
	result, err := consumeScript.Run(ctx, s.client, []string{keyPrefix + key}, code, now.Unix()).Result()
	if errors.Is(err, redis.Nil) {
		// Redis TTL removed it or it never existed; either way there is no
		// live code for this key.
		return nil, fmt.Errorf("no code issued: %w", sentinel.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("consume otp record: %w", err)
	}

	raw, ok := result.(string)
	if !ok {
		return nil, fmt.Errorf("unexpected script result %T", result)
	}
	switch raw {
	case "EXPIRED":
		return nil, fmt.Errorf("code expired: %w", sentinel.ErrExpired)
	case "MISMATCH":
		return nil, fmt.Errorf("code mismatch: %w", sentinel.ErrInvalidState)
	}

	var stored redisRecord
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, fmt.Errorf("unmarshal otp record: %w", err)
	}
	return &Record{
		RegistrationNumber: stored.RegistrationNumber,
		ExpiresAt:          stored.ExpiresAt,
		OfficerID:          stored.OfficerID,
		ApplicationID:      stored.ApplicationID,
	}, nil
}

func (s *RedisStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("delete otp record: %w", err)
	}
	return nil
}

// DeleteExpired is a no-op: Redis TTLs expire records server-side.
func (s *RedisStore) DeleteExpired(context.Context, time.Time) (int, error) {
	return 0, nil
}
