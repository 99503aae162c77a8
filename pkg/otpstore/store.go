// Package otpstore holds short-lived one-time code state keyed by string.
//
// Every implementation honours the same TTL contract: once a key's TTL has
// elapsed, Get reports it as absent even if nothing has evicted it yet.
package otpstore

import (
	"context"
	"time"
)

type Store interface {
	// Set stores value under key for ttl, replacing any previous value.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Get returns the value and true, or "" and false when the key is
	// missing or expired.
	Get(ctx context.Context, key string) (string, bool, error)
	// Incr adds one to the counter under key and returns the new value.
	// A new counter expires after ttl; an existing one keeps its expiry.
	Incr(ctx context.Context, key string, ttl time.Duration) (int64, error)
	// Take deletes key only if it still holds value, and reports whether it
	// did. Of several concurrent calls for the same value at most one wins.
	Take(ctx context.Context, key, value string) (bool, error)
	Delete(ctx context.Context, keys ...string) error
}
