package fleet

import (
	"context"
	"sync"
)

// entityLocks serializes mutations per entity id. Locks are channel-based so
// acquisition respects the caller's context deadline; a timed-out request
// aborts before touching state.
//
// Lock order is fixed: vehicle before deployment. Every write path acquires
// in that order, which rules out deadlock between the two entity types.
type entityLocks struct {
	mu    sync.Mutex
	chans map[string]chan struct{}
}

func newEntityLocks() *entityLocks {
	return &entityLocks{chans: make(map[string]chan struct{})}
}

func (l *entityLocks) chanFor(id string) chan struct{} {
	l.mu.Lock()
	defer l.mu.Unlock()
	ch, ok := l.chans[id]
	if !ok {
		ch = make(chan struct{}, 1)
		l.chans[id] = ch
	}
	return ch
}

// acquire blocks until the entity lock is held or ctx expires. The returned
// release function must be called exactly once.
func (l *entityLocks) acquire(ctx context.Context, id string) (func(), error) {
	ch := l.chanFor(id)
	select {
	case ch <- struct{}{}:
		return func() { <-ch }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}
