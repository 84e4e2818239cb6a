// Package lock provides the keyed mutual exclusion that serializes booking
// writes for one facility on one date, and transitions of one reservation.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/codr1/clubreserve/internal/models"
)

// Locker acquires an exclusive hold on key until unlock is called or ctx ends
// while waiting.
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}

// SlotKey is the lock key for a facility's bookings on date.
func SlotKey(facilityID int64, date time.Time) string {
	return fmt.Sprintf("booking:facility:%d:%s", facilityID, date.Format(models.DateLayout))
}

// ReservationKey is the lock key held across a reservation's transition,
// including the sales calls it makes. Take it before any SlotKey.
func ReservationKey(reservationID int64) string {
	return fmt.Sprintf("booking:reservation:%d", reservationID)
}

type memoryEntry struct {
	ch   chan struct{}
	refs int
}

// MemoryLocker serializes holders within one process. Entries are dropped
// once no goroutine holds or waits on them.
type MemoryLocker struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
}

func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{entries: make(map[string]*memoryEntry)}
}

func (m *MemoryLocker) Lock(ctx context.Context, key string) (func(), error) {
	m.mu.Lock()
	entry, ok := m.entries[key]
	if !ok {
		entry = &memoryEntry{ch: make(chan struct{}, 1)}
		m.entries[key] = entry
	}
	entry.refs++
	m.mu.Unlock()

	select {
	case entry.ch <- struct{}{}:
	case <-ctx.Done():
		m.release(key, entry)
		return nil, fmt.Errorf("acquire lock %s: %w", key, ctx.Err())
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			<-entry.ch
			m.release(key, entry)
		})
	}, nil
}

func (m *MemoryLocker) release(key string, entry *memoryEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	entry.refs--
	if entry.refs == 0 {
		delete(m.entries, key)
	}
}
