package repository

import "sync"

// keyedMutex hands out one mutex per transaction id. It backs the
// exclusive per-transaction lock that serializes submission attempts.
// Entries are kept for the life of the process; the id space is bounded
// by the number of invoices flowing through the service.
type keyedMutex struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedMutex() *keyedMutex {
	return &keyedMutex{locks: make(map[string]*sync.Mutex)}
}

func (k *keyedMutex) get(key string) *sync.Mutex {
	k.mu.Lock()
	defer k.mu.Unlock()

	if m, ok := k.locks[key]; ok {
		return m
	}
	m := &sync.Mutex{}
	k.locks[key] = m
	return m
}
