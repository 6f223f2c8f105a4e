// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/internal/blockalloc"
	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

// ChainView summarizes everything a record-validity or tally check needs
// from the chain ending at a given tip: which elections are committed and
// at what height, which are already closed, which (election, voter) pairs
// have already voted, and the running per-choice tally for every election.
// It is rebuilt by walking the arena from the tip back to genesis — the
// same O(chain length × records) walk spec.md §4.3 describes for reorg.
type ChainView struct {
	Elections      map[chainhash.Hash]*record.Election
	ElectionHeight map[chainhash.Hash]uint32
	Closed         map[chainhash.Hash]bool
	UsedVoters     map[string]struct{}
	Tally          map[chainhash.Hash]map[string]int
}

func newChainView() *ChainView {
	return &ChainView{
		Elections:      make(map[chainhash.Hash]*record.Election),
		ElectionHeight: make(map[chainhash.Hash]uint32),
		Closed:         make(map[chainhash.Hash]bool),
		UsedVoters:     make(map[string]struct{}),
		Tally:          make(map[chainhash.Hash]map[string]int),
	}
}

func voterKey(electionHash chainhash.Hash, publicKey []byte) string {
	return electionHash.String() + "|" + string(publicKey)
}

// BuildChainView walks every block from tipHash back to genesis and
// folds its committed records into a ChainView. tipHash may be the zero
// hash, in which case an empty view (no committed elections) is returned —
// the correct view for a genesis candidate, which has no parent.
func BuildChainView(arena *blockalloc.Arena, tipHash chainhash.Hash) *ChainView {
	view := newChainView()
	if _, ok := arena.Get(tipHash); !ok {
		return view
	}
	for _, entry := range arena.Ancestors(tipHash, 0) {
		view.Extend(entry.Block)
	}
	return view
}

// Extend folds one additional block's committed records into v in place.
// Used both by BuildChainView (folding every ancestor) and by the chain
// store's cheap extension path (folding just the one new tip block,
// avoiding a full re-walk — spec.md §4.3 reserves the full walk for
// reorgs).
func (v *ChainView) Extend(b *wire.Block) {
	height := b.Header.Index
	for _, r := range b.Body {
		switch rec := r.(type) {
		case *record.Election:
			hash := rec.Hash()
			v.Elections[hash] = rec
			v.ElectionHeight[hash] = height
		case *record.Vote:
			v.UsedVoters[voterKey(rec.ElectionHash, rec.PublicKey)] = struct{}{}
			tally := v.Tally[rec.ElectionHash]
			if tally == nil {
				tally = make(map[string]int)
				v.Tally[rec.ElectionHash] = tally
			}
			tally[rec.Choice]++
		case *record.EndOfElection:
			v.Closed[rec.ElectionHash] = true
		}
	}
}

// OpenElections returns the committed elections in view that have not been
// closed by a committed EndOfElection — the "mining-target open elections
// set" of spec.md §4.2.
func (v *ChainView) OpenElections() map[chainhash.Hash]*record.Election {
	open := make(map[chainhash.Hash]*record.Election, len(v.Elections))
	for hash, e := range v.Elections {
		if !v.Closed[hash] {
			open[hash] = e
		}
	}
	return open
}

// TallyFor returns the committed per-choice vote counts for electionHash,
// as an empty (not nil) map when the election has no committed votes.
func (v *ChainView) TallyFor(electionHash chainhash.Hash) map[string]int {
	if t, ok := v.Tally[electionHash]; ok {
		return t
	}
	return map[string]int{}
}
