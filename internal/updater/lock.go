package updater

import (
	"sync"

	"github.com/google/uuid"
)

// keyedMutex hands out one mutex per product so that append, predict and
// evaluate run as a unit for any single product.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[uuid.UUID]*sync.Mutex
}

// lock blocks until the product's mutex is held and returns the release
// function.
func (k *keyedMutex) lock(id uuid.UUID) func() {
	k.mu.Lock()
	if k.locks == nil {
		k.locks = make(map[uuid.UUID]*sync.Mutex)
	}
	m, ok := k.locks[id]
	if !ok {
		m = &sync.Mutex{}
		k.locks[id] = m
	}
	k.mu.Unlock()

	m.Lock()
	return m.Unlock
}
