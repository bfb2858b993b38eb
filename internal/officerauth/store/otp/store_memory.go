package otp

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"regportal/pkg/platform/sentinel"
)

// InMemoryStore keeps OTP records in a mutex-guarded map. Codes are bcrypt-
// hashed at rest. This is the single-process production store; the Redis
// variant exists for multi-instance deployments.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]Record)}
}

func (s *InMemoryStore) Put(_ context.Context, record Record) error {
	hashed, err := bcrypt.GenerateFromPassword([]byte(record.Code), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash code: %w", err)
	}
	record.Code = string(hashed)

	s.mu.Lock()
	defer s.mu.Unlock()
	// Overwrites any unconsumed record for the key: last request wins.
	s.records[record.RegistrationNumber] = record
	return nil
}

func (s *InMemoryStore) Consume(_ context.Context, key, code string, now time.Time) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[key]
	if !ok {
		return nil, fmt.Errorf("no code issued: %w", sentinel.ErrNotFound)
	}
	if now.After(record.ExpiresAt) {
		delete(s.records, key)
		return nil, fmt.Errorf("code expired: %w", sentinel.ErrExpired)
	}
	if bcrypt.CompareHashAndPassword([]byte(record.Code), []byte(code)) != nil {
		// Record stays; the officer may retry until expiry.
		return nil, fmt.Errorf("code mismatch: %w", sentinel.ErrInvalidState)
	}

	delete(s.records, key)
	record.Code = ""
	return &record, nil
}

func (s *InMemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, key)
	return nil
}

func (s *InMemoryStore) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	deleted := 0
	for key, record := range s.records {
		if now.After(record.ExpiresAt) {
			delete(s.records, key)
			deleted++
		}
	}
	return deleted, nil
}
