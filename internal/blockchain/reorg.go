// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/monetarium/votechain/internal/blockalloc"
	"github.com/monetarium/votechain/record"
)

// reorgTo switches the store's best tip to newBest, whose ancestry diverges
// from the chain ending at the current best. Per spec.md §4.3: mark every
// mempool record new, walk the new best chain from tip to genesis marking
// every record it commits as no-longer-new, then drop any pending
// EndOfElection whose opening election is not on the new chain (it is
// discarded, never re-injected).
func (s *Store) reorgTo(newBest *blockalloc.Entry) {
	s.pools.Opens.MarkAllNew()
	s.pools.Votes.MarkAllNew()
	s.pools.Ends.MarkAllNew()

	view := BuildChainView(s.arena, newBest.Hash)

	for _, entry := range s.arena.Ancestors(newBest.Hash, 0) {
		for _, r := range entry.Block.Body {
			switch r.Kind() {
			case record.KindElection:
				s.pools.Opens.MarkCommitted(r.Hash())
			case record.KindVote:
				s.pools.Votes.MarkCommitted(r.Hash())
			case record.KindEndOfElection:
				s.pools.Ends.MarkCommitted(r.Hash())
			}
		}
	}

	for _, r := range s.pools.Ends.New() {
		end := r.(*record.EndOfElection)
		if _, ok := view.Elections[end.ElectionHash]; !ok {
			s.pools.Ends.Remove(r.Hash())
		}
	}

	s.view = view
	s.best = newBest

	log.Infof("reorg: best tip switched to %s (height %d, cumulative work %d)",
		newBest.Hash, newBest.Block.Header.Index, newBest.CumulativeWork)
}
