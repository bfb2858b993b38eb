// Package otp holds the one-time-code store behind officer login.
//
// Per-key lifecycle: NONE -> ISSUED -> {VERIFIED | EXPIRED}. At most one live
// record exists per registration number; a new Put supersedes the previous
// record (last request wins, intentional). A record is consumed on successful
// verify and unusable past its expiry regardless of consumption.
package otp

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Record is the ephemeral credential state for one registration number.
// Code is plaintext only in flight: stores persist a hash of it, and records
// returned by Consume carry an empty Code.
type Record struct {
	RegistrationNumber string    `json:"registrationNumber"`
	Code               string    `json:"code"`
	ExpiresAt          time.Time `json:"expiresAt"`
	OfficerID          uuid.UUID `json:"officerId"`
	ApplicationID      uuid.UUID `json:"applicationId"`
}

// Store is the keyed-expiry container for issued codes.
//
// Error Contract (sentinel errors, wrapped):
// - Consume returns ErrNotFound when no record exists for the key
// - Consume returns ErrExpired (and deletes the record) past the deadline
// - Consume returns ErrInvalidState on code mismatch, leaving the record
//   intact so the officer can retry before expiry
// - On success Consume deletes the record (single use) and returns it
type Store interface {
	Put(ctx context.Context, record Record) error
	Consume(ctx context.Context, key, code string, now time.Time) (*Record, error)
	Delete(ctx context.Context, key string) error
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
