// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package blockchain implements the replicated chain store and consensus
// rules of spec.md §4.2/§4.3: the block index, heads set, best-tip
// tracking, orphan pool, proof-of-work and difficulty checks, record
// validity, and the extend/reorg logic that keeps the mempool and the
// open-elections view in sync with whichever chain currently carries the
// most cumulative work.
package blockchain

import (
	"sync"
	"time"

	"github.com/decred/slog"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/internal/blockalloc"
	"github.com/monetarium/votechain/internal/mempool"
	"github.com/monetarium/votechain/merkle"
	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// AddBlockResult reports what AddBlock did with a submitted block.
type AddBlockResult int

const (
	// BlockAccepted means the block was validated and added to the
	// arena, possibly becoming (or extending, or replacing) the best
	// tip.
	BlockAccepted AddBlockResult = iota

	// BlockDuplicate means a block with this header hash is already
	// known; nothing changed.
	BlockDuplicate

	// BlockOrphan means the block's parent is not yet known; it was
	// buffered and the caller should request the parent.
	BlockOrphan

	// BlockRejected means the block failed a consensus rule check; the
	// accompanying error names which one.
	BlockRejected
)

// Store is the single coarse-locked owner of all chain and mempool state:
// the block arena, the current heads, the best tip, the orphan pool, and
// the three mempool record pools. Every exported method except Pools takes
// the data lock for its duration; none perform network I/O while holding it.
type Store struct {
	mu sync.Mutex

	arena   *blockalloc.Arena
	heads   map[chainhash.Hash]struct{}
	best    *blockalloc.Entry
	orphans map[chainhash.Hash][]*wire.Block
	pools   *mempool.Pools
	view    *ChainView
}

// NewStore creates an empty chain store with no genesis block yet.
func NewStore() *Store {
	return &Store{
		arena:   blockalloc.New(),
		heads:   make(map[chainhash.Hash]struct{}),
		orphans: make(map[chainhash.Hash][]*wire.Block),
		pools:   mempool.NewPools(),
		view:    newChainView(),
	}
}

// Best returns the current best tip, or nil if no block has been accepted
// yet.
func (s *Store) Best() *blockalloc.Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.best
}

// Pools exposes the mempool, for the miner and network layer to read
// candidate records from and add client-submitted records to.
func (s *Store) Pools() *mempool.Pools {
	return s.pools
}

// GetBlock looks up a block by header hash.
func (s *Store) GetBlock(hash chainhash.Hash) (*wire.Block, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.arena.Get(hash)
	if !ok {
		return nil, false
	}
	return entry.Block, true
}

// BestHeaders returns up to limit headers of the best chain, newest first,
// starting no lower than startIndex. A limit of 0 means unbounded.
func (s *Store) BestHeaders(startIndex uint32, limit int) []*wire.BlockHeader {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.best == nil {
		return nil
	}
	var headers []*wire.BlockHeader
	s.arena.WalkBack(s.best.Hash, func(e *blockalloc.Entry) bool {
		if e.Block.Header.Index < startIndex {
			return false
		}
		headers = append(headers, &e.Block.Header)
		return limit <= 0 || len(headers) < limit
	})
	return headers
}

// ActiveElections returns the elections currently open (committed, not yet
// closed) on the best chain.
func (s *Store) ActiveElections() map[chainhash.Hash]*record.Election {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view.OpenElections()
}

// MiningSnapshot is a point-in-time copy of everything the miner needs to
// assemble and validate a candidate block without holding the store's lock
// for the duration of a (potentially long) proof-of-work search.
type MiningSnapshot struct {
	Index      uint32
	PrevHash   chainhash.Hash
	Difficulty uint32
	Open       map[chainhash.Hash]*record.Election
	Tally      map[chainhash.Hash]map[string]int
}

// MiningSnapshot captures the next block's index, parent hash, and
// required difficulty, together with the currently open elections and
// their committed tallies.
func (s *Store) MiningSnapshot() MiningSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := MiningSnapshot{
		Open:  s.view.OpenElections(),
		Tally: make(map[chainhash.Hash]map[string]int, len(s.view.Tally)),
	}
	for hash, tally := range s.view.Tally {
		cp := make(map[string]int, len(tally))
		for choice, count := range tally {
			cp[choice] = count
		}
		snap.Tally[hash] = cp
	}
	if s.best != nil {
		snap.Index = s.best.Block.Header.Index + 1
		snap.PrevHash = s.best.Hash
	}
	snap.Difficulty = CalcNextDifficulty(s.arena, s.best)
	return snap
}

// AddBlock validates b against the current store state and, if valid,
// accepts it: extending the best chain, replacing it via reorg, or simply
// recording a side branch, per spec.md §4.3. A block whose parent is
// unknown is buffered in the orphan pool and BlockOrphan is returned so the
// caller can request the missing parent.
func (s *Store) AddBlock(b *wire.Block) (AddBlockResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.addBlockLocked(b, time.Now())
}

func (s *Store) addBlockLocked(b *wire.Block, now time.Time) (AddBlockResult, error) {
	headerHash := b.Header.Hash()
	if s.arena.Has(headerHash) {
		return BlockDuplicate, nil
	}

	var parent *blockalloc.Entry
	if b.Header.Index == 0 {
		if !b.Header.PrevHash.IsZero() {
			return BlockRejected, ruleErrorf(ErrUnknownParent, "genesis block must have an all-zero previous hash")
		}
	} else {
		p, ok := s.arena.Get(b.Header.PrevHash)
		if !ok {
			s.orphans[b.Header.PrevHash] = append(s.orphans[b.Header.PrevHash], b)
			log.Debugf("buffered orphan block %s awaiting parent %s", headerHash, b.Header.PrevHash)
			return BlockOrphan, nil
		}
		parent = p
	}

	if err := ValidateHeader(s.arena, b, parent, now); err != nil {
		return BlockRejected, err
	}
	parentView := s.viewEndingAt(parent)
	if err := ValidateBody(b, parentView); err != nil {
		return BlockRejected, err
	}

	var parentWork uint64
	if parent != nil {
		parentWork = parent.CumulativeWork
	}
	entry := s.arena.Put(b, parentWork)

	if parent != nil {
		delete(s.heads, parent.Hash)
	}
	s.heads[entry.Hash] = struct{}{}

	switch {
	case s.best == nil, parent != nil && s.best.Hash == parent.Hash:
		s.extendBest(entry)
	case entry.CumulativeWork > s.best.CumulativeWork:
		s.reorgTo(entry)
	}

	s.processOrphans(headerHash, now)
	return BlockAccepted, nil
}

// viewEndingAt returns the ChainView for the chain ending at parent (nil
// for a genesis candidate). The common case — parent is the current best
// tip — reuses the store's cached view instead of re-walking the chain.
func (s *Store) viewEndingAt(parent *blockalloc.Entry) *ChainView {
	if parent == nil {
		return newChainView()
	}
	if s.best != nil && parent.Hash == s.best.Hash {
		return s.view
	}
	return BuildChainView(s.arena, parent.Hash)
}

// extendBest makes entry the new best tip when its parent is (or there was
// no previous) best tip: the cheap O(records) path of spec.md §4.3, marking
// only this block's records committed instead of re-walking the chain.
func (s *Store) extendBest(entry *blockalloc.Entry) {
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
	s.view.Extend(entry.Block)
	s.best = entry
	log.Infof("chain extended: height %d, hash %s, %d records", entry.Block.Header.Index, entry.Hash, len(entry.Block.Body))
}

// processOrphans re-verifies every block buffered waiting on parentHash,
// now that it has arrived. A re-verified orphan may itself unblock further
// orphans, so this recurses through AddBlock.
func (s *Store) processOrphans(parentHash chainhash.Hash, now time.Time) {
	pending, ok := s.orphans[parentHash]
	if !ok {
		return
	}
	delete(s.orphans, parentHash)
	for _, orphan := range pending {
		if _, err := s.addBlockLocked(orphan, now); err != nil {
			log.Warnf("orphan block failed re-verification: %s", err)
		}
	}
}

// SubmitElection validates and adds a client-submitted election to the
// open mempool. Rejects only an election already committed on the best
// chain (open or closed), one already pending in the mempool, or one whose
// deadline has already passed, mirroring the
// source's handle_election (no signature is involved — anyone may open an
// election).
func (s *Store) SubmitElection(e *record.Election, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := e.Hash()
	if _, open := s.view.Elections[hash]; open {
		return ruleErrorf(ErrInvalidRecord, "election %s is already committed", hash)
	}
	if s.pools.Opens.Has(hash) {
		return ruleErrorf(ErrInvalidRecord, "election %s is already pending", hash)
	}
	if e.EndTime < now.Unix() {
		return ruleErrorf(ErrInvalidRecord, "election %s has already ended", hash)
	}
	s.pools.Opens.Add(e)
	return nil
}

// SubmitVote validates and adds a client-submitted vote to the mempool. The
// election it targets must be committed and open on the best chain (a vote
// for a merely-pending election is rejected, matching the source's
// open_elections-only lookup); eligibility, choice, signature, and
// double-vote checks are the same ones applied at block-validation time.
func (s *Store) SubmitVote(v *record.Vote) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	election, ok := s.view.Elections[v.ElectionHash]
	if !ok {
		return ruleErrorf(ErrUnknownElection, "vote targets unknown or unopened election %s", v.ElectionHash)
	}
	if s.view.Closed[v.ElectionHash] {
		return ruleErrorf(ErrUnknownElection, "election %s is already closed", v.ElectionHash)
	}
	if !election.IsEligible(v.PublicKey) {
		return ruleErrorf(ErrIneligibleVoter, "public key is not eligible for election %s", v.ElectionHash)
	}
	if !election.HasChoice(v.Choice) {
		return ruleErrorf(ErrBadChoice, "choice %q is not on the ballot for election %s", v.Choice, v.ElectionHash)
	}
	if !v.CheckSignature() {
		return ruleErrorf(ErrBadSignature, "vote signature does not verify")
	}

	key := voterKey(v.ElectionHash, v.PublicKey)
	if _, used := s.view.UsedVoters[key]; used {
		return ruleErrorf(ErrIneligibleVoter, "public key already voted in election %s", v.ElectionHash)
	}
	for _, r := range s.pools.Votes.New() {
		pending := r.(*record.Vote)
		if pending.ElectionHash == v.ElectionHash && string(pending.PublicKey) == string(v.PublicKey) {
			return ruleErrorf(ErrIneligibleVoter, "public key already has a pending vote for election %s", v.ElectionHash)
		}
	}

	s.pools.Votes.Add(v)
	return nil
}

// ElectionResult builds the ELECTION_RES payload for electionHash: the
// height it opened at, every committed vote with a Merkle proof against its
// containing block, and — once closed — the EndOfElection and its proof.
// Returns false if the election has never been committed on the best
// chain.
func (s *Store) ElectionResult(electionHash chainhash.Hash) (wire.ElectionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	height, ok := s.view.ElectionHeight[electionHash]
	if !ok {
		return wire.ElectionResult{}, false
	}
	result := wire.ElectionResult{Start: int(height)}

	if s.best == nil {
		return result, true
	}
	s.arena.WalkBack(s.best.Hash, func(e *blockalloc.Entry) bool {
		for i, r := range e.Block.Body {
			switch rec := r.(type) {
			case *record.Vote:
				if rec.ElectionHash != electionHash {
					continue
				}
				proof, err := proofFor(e.Block, i)
				if err != nil {
					continue
				}
				result.Votes = append(result.Votes, wire.VoteProof{
					Vote:  rec.CanonicalJSON(),
					Proof: wire.NewMerkleProof(e.Hash, i, proof),
				})
			case *record.EndOfElection:
				if rec.ElectionHash != electionHash || result.End != nil {
					continue
				}
				proof, err := proofFor(e.Block, i)
				if err != nil {
					continue
				}
				result.End = &wire.EndProof{
					End:   rec.CanonicalJSON(),
					Proof: wire.NewMerkleProof(e.Hash, i, proof),
				}
			}
		}
		return true
	})
	return result, true
}

// proofFor computes the Merkle inclusion proof for the leaf at index in
// block's body.
func proofFor(block *wire.Block, index int) ([]merkle.Step, error) {
	tree, err := merkle.New(block.LeafHashes())
	if err != nil {
		return nil, err
	}
	return tree.Proof(index)
}
