// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package mempool holds validated-but-uncommitted records in three pools —
// opens, votes, ends — each keyed by record hash, mirroring the chain
// store's reorg scratchpad (spec.md §4.3): every entry carries a New flag
// meaning "not yet committed on the currently-best chain", flipped back to
// true on a reorg that discards the block that had committed it.
package mempool

import (
	"sync"

	"github.com/decred/slog"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/record"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Entry is one mempool-resident record and its commitment status.
type Entry struct {
	Record record.Record
	New    bool
}

// Pool is a single record-hash-keyed pool (opens, votes, or ends).
type Pool struct {
	mu      sync.RWMutex
	entries map[chainhash.Hash]*Entry
}

func newPool() *Pool {
	return &Pool{entries: make(map[chainhash.Hash]*Entry)}
}

// Add inserts r as a new (uncommitted) entry, replacing any existing entry
// for the same hash.
func (p *Pool) Add(r record.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	hash := r.Hash()
	if _, exists := p.entries[hash]; exists {
		log.Debugf("mempool: replacing existing entry %s", hash)
	}
	p.entries[hash] = &Entry{Record: r, New: true}
}

// Remove deletes hash from the pool outright. Chain extension does not use
// it (see MarkCommitted); a reorg uses it to discard a pending
// EndOfElection whose election is not on the new best chain.
func (p *Pool) Remove(hash chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.entries, hash)
}

// Get returns the entry for hash, if present.
func (p *Pool) Get(hash chainhash.Hash) (*Entry, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	e, ok := p.entries[hash]
	return e, ok
}

// Has reports whether hash is pending in the pool.
func (p *Pool) Has(hash chainhash.Hash) bool {
	_, ok := p.Get(hash)
	return ok
}

// MarkCommitted flips hash's New flag to false without removing it — used
// by chain extension, which treats the mempool as the reorg scratchpad
// rather than evicting committed records outright.
func (p *Pool) MarkCommitted(hash chainhash.Hash) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if e, ok := p.entries[hash]; ok {
		e.New = false
	}
}

// MarkAllNew flips every entry's New flag to true — the first step of a
// reorg, before the new best chain is walked to re-mark what it commits.
func (p *Pool) MarkAllNew() {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		e.New = true
	}
}

// New returns every record currently flagged New (eligible for inclusion
// in the next mined block).
func (p *Pool) New() []record.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]record.Record, 0, len(p.entries))
	for _, e := range p.entries {
		if e.New {
			out = append(out, e.Record)
		}
	}
	return out
}

// Len returns the number of entries currently held.
func (p *Pool) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Pools is the chain store's three record-hash-keyed mempools.
type Pools struct {
	Opens *Pool
	Votes *Pool
	Ends  *Pool
}

// NewPools creates three empty pools.
func NewPools() *Pools {
	return &Pools{Opens: newPool(), Votes: newPool(), Ends: newPool()}
}

// Add routes r into the pool matching its kind.
func (p *Pools) Add(r record.Record) {
	p.poolFor(r.Kind()).Add(r)
}

// Remove deletes hash from the pool matching kind.
func (p *Pools) Remove(kind record.Kind, hash chainhash.Hash) {
	p.poolFor(kind).Remove(hash)
}

func (p *Pools) poolFor(kind record.Kind) *Pool {
	switch kind {
	case record.KindElection:
		return p.Opens
	case record.KindVote:
		return p.Votes
	case record.KindEndOfElection:
		return p.Ends
	default:
		panic("mempool: unknown record kind " + string(kind))
	}
}
