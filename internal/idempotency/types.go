package idempotency

import (
	"context"
	"errors"
	"time"
)

const (
	// results are replayable for a day
	DefaultResultTTL = 24 * time.Hour
	// a crashed request frees its key after this long
	DefaultLockTTL = 10 * time.Minute

	// covers submission, debit and response on top of the polling time
	lockSlack = 2 * time.Minute

	pendingMarker = "\x00pending"
)

// the key is reserved by a request that has not finished yet
var ErrInFlight = errors.New("request with this idempotency key is still in progress")

// replay protection for client retries
type Store interface {
	// claims key; when a finished result exists it is returned instead
	Reserve(ctx context.Context, key string) (stored []byte, err error)
	// stores the result of a finished request
	Complete(ctx context.Context, key string, result []byte) error
	// frees a key whose request failed so the client may retry
	Release(ctx context.Context, key string) error
}

// lock ttl that outlives a job of the given duration; never below DefaultLockTTL
func LockTTL(jobBudget time.Duration) time.Duration {
	return max(DefaultLockTTL, jobBudget+lockSlack)
}
