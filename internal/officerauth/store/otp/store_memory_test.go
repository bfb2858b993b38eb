package otp

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"regportal/pkg/platform/sentinel"
)

type MemoryStoreSuite struct {
	suite.Suite
	ctx   context.Context
	store *InMemoryStore
	now   time.Time
}

func (s *MemoryStoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = NewInMemoryStore()
	s.now = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
}

func TestMemoryStoreSuite(t *testing.T) {
	suite.Run(t, new(MemoryStoreSuite))
}

func (s *MemoryStoreSuite) record(key, code string) Record {
	return Record{
		RegistrationNumber: key,
		Code:               code,
		ExpiresAt:          s.now.Add(10 * time.Minute),
		OfficerID:          uuid.New(),
		ApplicationID:      uuid.New(),
	}
}

func (s *MemoryStoreSuite) TestConsumeIsSingleUse() {
	key := "CPC/COM/REG/2026/0001"
	require.NoError(s.T(), s.store.Put(s.ctx, s.record(key, "123456")))

	record, err := s.store.Consume(s.ctx, key, "123456", s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), key, record.RegistrationNumber)

	// The same code again: the record is gone.
	_, err = s.store.Consume(s.ctx, key, "123456", s.now)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestConsumeUnknownKey() {
	_, err := s.store.Consume(s.ctx, "CPC/COM/REG/2026/9999", "123456", s.now)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestMismatchRetainsRecord() {
	key := "CPC/COM/REG/2026/0002"
	require.NoError(s.T(), s.store.Put(s.ctx, s.record(key, "654321")))

	_, err := s.store.Consume(s.ctx, key, "000000", s.now)
	assert.ErrorIs(s.T(), err, sentinel.ErrInvalidState)

	// Correct code still works before expiry.
	record, err := s.store.Consume(s.ctx, key, "654321", s.now.Add(time.Minute))
	require.NoError(s.T(), err)
	assert.Equal(s.T(), key, record.RegistrationNumber)
}

func (s *MemoryStoreSuite) TestExpiredCodeIsDeleted() {
	key := "CPC/COM/REG/2026/0003"
	require.NoError(s.T(), s.store.Put(s.ctx, s.record(key, "111111")))

	_, err := s.store.Consume(s.ctx, key, "111111", s.now.Add(10*time.Minute+time.Second))
	assert.ErrorIs(s.T(), err, sentinel.ErrExpired)

	// Expiry deletes; the next attempt sees no record at all.
	_, err = s.store.Consume(s.ctx, key, "111111", s.now)
	assert.ErrorIs(s.T(), err, sentinel.ErrNotFound)
}

func (s *MemoryStoreSuite) TestConsumeAtExactExpiryStillValid() {
	key := "CPC/COM/REG/2026/0004"
	rec := s.record(key, "222222")
	require.NoError(s.T(), s.store.Put(s.ctx, rec))

	record, err := s.store.Consume(s.ctx, key, "222222", rec.ExpiresAt)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), rec.OfficerID, record.OfficerID)
}

func (s *MemoryStoreSuite) TestLastRequestWins() {
	key := "CPC/COM/REG/2026/0005"
	second := s.record(key, "222222")
	require.NoError(s.T(), s.store.Put(s.ctx, s.record(key, "111111")))
	require.NoError(s.T(), s.store.Put(s.ctx, second))

	// The superseded code no longer verifies, and the mismatch does not
	// destroy the live one.
	_, err := s.store.Consume(s.ctx, key, "111111", s.now)
	assert.ErrorIs(s.T(), err, sentinel.ErrInvalidState)

	record, err := s.store.Consume(s.ctx, key, "222222", s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), second.OfficerID, record.OfficerID)
}

func (s *MemoryStoreSuite) TestCodeHashedAtRest() {
	key := "CPC/COM/REG/2026/0008"
	require.NoError(s.T(), s.store.Put(s.ctx, s.record(key, "987654")))

	s.store.mu.RLock()
	stored := s.store.records[key].Code
	s.store.mu.RUnlock()
	assert.NotEqual(s.T(), "987654", stored)
	assert.NoError(s.T(), bcrypt.CompareHashAndPassword([]byte(stored), []byte("987654")))

	// The consumed record does not echo the credential back.
	record, err := s.store.Consume(s.ctx, key, "987654", s.now)
	require.NoError(s.T(), err)
	assert.Empty(s.T(), record.Code)
}

func (s *MemoryStoreSuite) TestDeleteExpiredSweepsOnlyStale() {
	live := s.record("CPC/COM/REG/2026/0006", "333333")
	stale := s.record("CPC/COM/REG/2026/0007", "444444")
	stale.ExpiresAt = s.now.Add(-time.Minute)
	require.NoError(s.T(), s.store.Put(s.ctx, live))
	require.NoError(s.T(), s.store.Put(s.ctx, stale))

	deleted, err := s.store.DeleteExpired(s.ctx, s.now)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), 1, deleted)

	_, err = s.store.Consume(s.ctx, live.RegistrationNumber, "333333", s.now)
	assert.NoError(s.T(), err)
}
