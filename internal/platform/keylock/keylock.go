// Package keylock provides per-key mutual exclusion. The conversation
// service locks on the conversation id so concurrent advances of the same
// conversation serialize instead of racing load-modify-save.
package keylock

import "sync"

type entry struct {
	mu   sync.Mutex
	refs int
}

type KeyedMutex struct {
	mu      sync.Mutex
	entries map[string]*entry
}

func New() *KeyedMutex {
	return &KeyedMutex{entries: make(map[string]*entry)}
}

// Lock blocks until the lock for key is held and returns the unlock func.
// Entries are reference-counted and removed once the last holder releases.
func (k *KeyedMutex) Lock(key string) func() {
	k.mu.Lock()
	e, ok := k.entries[key]
	if !ok {
		e = &entry{}
		k.entries[key] = e
	}
	e.refs++
	k.mu.Unlock()

	e.mu.Lock()
	return func() {
		e.mu.Unlock()
		k.mu.Lock()
		e.refs--
		if e.refs == 0 {
			delete(k.entries, key)
		}
		k.mu.Unlock()
	}
}
