// Package mempool maintains the mempool for the blockchain.
package mempool

import (
	"sync"

	"github.com/ardanlabs/ledger/foundation/blockchain/database"
)

// Entry is a transaction held in the mempool along with the id it was
// assigned on arrival. Two identical transfers can be pending at the same
// time, so the id and not the content identifies an entry.
type Entry struct {
	ID uint64
	Tx database.SignedTx
}

// Mempool represents a cache of transactions kept in arrival order.
type Mempool struct {
	mu     sync.RWMutex
	pool   []Entry
	nextID uint64
}

// New constructs a new mempool.
func New() *Mempool {
	return &Mempool{}
}

// Count returns the current number of transaction in the pool.
func (mp *Mempool) Count() int {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	return len(mp.pool)
}

// Add appends a transaction to the end of the pool and returns the id it
// was assigned.
func (mp *Mempool) Add(tx database.SignedTx) uint64 {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	mp.nextID++
	mp.pool = append(mp.pool, Entry{ID: mp.nextID, Tx: tx})

	return mp.nextID
}

// Delete removes the entries with the specified ids from the mempool.
// Entries that are not in the pool are ignored.
func (mp *Mempool) Delete(ids ...uint64) {
	if len(ids) == 0 {
		return
	}

	remove := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		remove[id] = struct{}{}
	}

	mp.mu.Lock()
	defer mp.mu.Unlock()

	pool := mp.pool[:0]
	for _, entry := range mp.pool {
		if _, exists := remove[entry.ID]; !exists {
			pool = append(pool, entry)
		}
	}

	// Clear the tail so removed transactions can be collected.
	for i := len(pool); i < len(mp.pool); i++ {
		mp.pool[i] = Entry{}
	}
	mp.pool = pool
}

// PickFirst returns the oldest entries in arrival order. Pass -1 for all
// the entries.
func (mp *Mempool) PickFirst(howMany int) []Entry {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	if howMany < 0 || howMany > len(mp.pool) {
		howMany = len(mp.pool)
	}

	entries := make([]Entry, howMany)
	copy(entries, mp.pool)

	return entries
}

// Copy returns a copy of the pending transactions in arrival order.
func (mp *Mempool) Copy() []database.SignedTx {
	mp.mu.RLock()
	defer mp.mu.RUnlock()

	trans := make([]database.SignedTx, len(mp.pool))
	for i, entry := range mp.pool {
		trans[i] = entry.Tx
	}

	return trans
}
