package domain

import (
	"context"
	"io"
	"time"
)

// PriceCache provides fast access to the latest observed price per token.
type PriceCache interface {
	SetPrice(ctx context.Context, tokenID string, price float64, ts time.Time) error
	GetPrice(ctx context.Context, tokenID string) (float64, time.Time, error)
}

// LockManager provides distributed locking. The executor core holds no lock
// itself; callers use a per-portfolio lock to guarantee a single in-flight
// execution batch.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// BlobWriter uploads objects to cold storage.
type BlobWriter interface {
	Put(ctx context.Context, path string, data io.Reader, contentType string) error
}
