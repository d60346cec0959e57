package recalc

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

const defaultLockTTL = 30 * time.Second

// lockStore defines the Redis surface the order lock uses.
type lockStore interface {
	SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
	LockKey(scope, id string) string
}

// OrderLocker serializes cross-process recalculation of the same order
// with a per-order Redis SETNX lease. The database row lock already
// serializes writers inside one transaction; this keeps a second process
// from even starting a competing run.
type OrderLocker struct {
	store lockStore
	ttl   time.Duration
}

// NewOrderLocker constructs a locker over the given Redis store.
func NewOrderLocker(store lockStore, ttl time.Duration) (*OrderLocker, error) {
	if store == nil {
		return nil, errors.New("redis store required for order lock")
	}
	if ttl <= 0 {
		ttl = defaultLockTTL
	}
	return &OrderLocker{store: store, ttl: ttl}, nil
}

// Lease is an acquired per-order lock.
type Lease struct {
	store lockStore
	key   string
	owner string
}

// Acquire tries to take the per-order lease. ok is false when another
// process currently holds it.
func (l *OrderLocker) Acquire(ctx context.Context, orderID uuid.UUID) (*Lease, bool, error) {
	key := l.store.LockKey("order-recalc", orderID.String())
	owner := uuid.NewString()
	ok, err := l.store.SetNX(ctx, key, owner, l.ttl)
	if err != nil {
		return nil, false, fmt.Errorf("acquire order lock: %w", err)
	}
	if !ok {
		return nil, false, nil
	}
	return &Lease{store: l.store, key: key, owner: owner}, true, nil
}

// Release frees the lease only while this process still owns it; a lease
// that expired and was re-acquired elsewhere is left alone. Ownership
// check and deletion run as one atomic server-side step.
func (l *Lease) Release(ctx context.Context) error {
	if l == nil || l.owner == "" {
		return nil
	}
	if _, err := l.store.CompareAndDelete(ctx, l.key, l.owner); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}
	l.owner = ""
	return nil
}
