// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockalloc owns every known block by value, keyed by header
// hash. Blocks reference their parent by hash rather than by pointer, so
// the arena — not the blocks themselves — holds the only strong
// references; there is no parent/child ownership cycle to break when a
// branch is discarded.
package blockalloc

import (
	"sync"

	"github.com/decred/slog"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/wire"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Entry is one block retained in the arena, together with the
// chain-relative metadata the chain store needs without re-walking
// ancestry on every lookup.
type Entry struct {
	Block          *wire.Block
	Hash           chainhash.Hash
	ParentHash     chainhash.Hash
	CumulativeWork uint64
}

// Arena is a concurrency-safe map of every block this node has ever
// accepted, keyed by header hash.
type Arena struct {
	mu      sync.RWMutex
	entries map[chainhash.Hash]*Entry
}

// New creates an empty Arena.
func New() *Arena {
	return &Arena{entries: make(map[chainhash.Hash]*Entry)}
}

// Put inserts block into the arena, computing its cumulative work from
// parentWork (0 for genesis). Returns the stored Entry.
func (a *Arena) Put(block *wire.Block, parentWork uint64) *Entry {
	entry := &Entry{
		Block:          block,
		Hash:           block.Header.Hash(),
		ParentHash:     block.Header.PrevHash,
		CumulativeWork: parentWork + uint64(block.Header.Difficulty),
	}
	a.mu.Lock()
	a.entries[entry.Hash] = entry
	a.mu.Unlock()
	return entry
}

// Get looks up a block by header hash.
func (a *Arena) Get(hash chainhash.Hash) (*Entry, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	e, ok := a.entries[hash]
	return e, ok
}

// Has reports whether hash is already known.
func (a *Arena) Has(hash chainhash.Hash) bool {
	_, ok := a.Get(hash)
	return ok
}

// Len returns the number of blocks held in the arena.
func (a *Arena) Len() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.entries)
}

// WalkBack calls visit once for the entry at hash, then recursively for
// each ancestor by parent hash, stopping when visit returns false, the
// genesis block (index 0) has been visited, or an ancestor is unknown.
func (a *Arena) WalkBack(hash chainhash.Hash, visit func(*Entry) bool) {
	for {
		entry, ok := a.Get(hash)
		if !ok {
			return
		}
		if !visit(entry) {
			return
		}
		if entry.Block.Header.Index == 0 {
			return
		}
		hash = entry.ParentHash
	}
}

// Ancestors returns up to limit ancestor entries starting at hash
// (inclusive), walking toward genesis. A limit of 0 means unbounded.
func (a *Arena) Ancestors(hash chainhash.Hash, limit int) []*Entry {
	var out []*Entry
	a.WalkBack(hash, func(e *Entry) bool {
		out = append(out, e)
		return limit <= 0 || len(out) < limit
	})
	return out
}
