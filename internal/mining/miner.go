// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"sync"
	"sync/atomic"
	"time"

	decredrand "github.com/decred/dcrd/crypto/rand"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/internal/blockchain"
	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

// NonceCheckInterval is how many nonces the search loop tries between
// checks of whether the best tip moved out from under the block being
// mined (spec.md §4.4).
const NonceCheckInterval = 10_000_000

// maxNonce is the largest value the header's 4-byte nonce field can hold.
const maxNonce = ^uint32(0)

// Miner repeatedly assembles a candidate block from the chain store's
// mempool and searches for a nonce satisfying the current difficulty,
// submitting anything it finds back through the same AddBlock path an
// inbound network block takes.
type Miner struct {
	store     *blockchain.Store
	allocator *BlockSpaceAllocator

	wg     sync.WaitGroup
	quit   chan struct{}
	mining atomic.Bool
}

// New creates a Miner drawing candidates from store, bounding assembled
// block bodies to maxBlockSize.
func New(store *blockchain.Store, maxBlockSize uint32) *Miner {
	return &Miner{
		store:     store,
		allocator: NewBlockSpaceAllocator(maxBlockSize),
		quit:      make(chan struct{}),
	}
}

// Start launches the mining loop in its own goroutine. Calling Start on an
// already-running Miner is a no-op.
func (m *Miner) Start() {
	if !m.mining.CompareAndSwap(false, true) {
		return
	}
	m.wg.Add(1)
	go m.run()
}

// Stop signals the mining loop to exit and waits for it to do so.
func (m *Miner) Stop() {
	if !m.mining.CompareAndSwap(true, false) {
		return
	}
	close(m.quit)
	m.wg.Wait()
}

func (m *Miner) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.quit:
			return
		default:
		}
		m.mineOneBlock()
	}
}

// mineOneBlock sweeps expired elections into the mempool, assembles one
// candidate block from the current snapshot, and searches the nonce space
// until either a solution is found and submitted, the best tip moves out
// from under the candidate, or Stop is called. It always returns to run,
// which takes a fresh snapshot for the next round.
func (m *Miner) mineOneBlock() {
	m.sweepExpiredElections(time.Now())

	snap := m.store.MiningSnapshot()
	block := &wire.Block{
		Header: wire.BlockHeader{
			Index:      snap.Index,
			PrevHash:   snap.PrevHash,
			Difficulty: snap.Difficulty,
			Timestamp:  time.Now().Unix(),
		},
		Body: m.assembleBody(snap),
	}
	root, err := block.ComputeMerkleRoot()
	if err != nil {
		log.Warnf("mining: failed to compute merkle root for candidate block: %s", err)
		return
	}
	block.Header.MerkleRoot = root

	var checks int
	nonce := uint32(0)
	for {
		select {
		case <-m.quit:
			return
		default:
		}

		block.Header.Nonce = nonce
		headerHash := block.Header.Hash()
		if blockchain.CheckProofOfWork(headerHash, snap.Difficulty) {
			result, err := m.store.AddBlock(block)
			if err != nil {
				log.Warnf("mined block %s rejected: %s", headerHash, err)
				return
			}
			if result == blockchain.BlockAccepted {
				log.Infof("mined block %s at height %d with %d records",
					headerHash, snap.Index, len(block.Body))
			}
			return
		}

		checks++
		if checks >= NonceCheckInterval {
			checks = 0
			if m.tipMoved(snap.PrevHash) {
				log.Debugf("best tip moved while mining height %d, restarting", snap.Index)
				return
			}
		}

		if nonce == maxNonce {
			nonce = 0
			block.Header.Timestamp = time.Now().Unix()
		} else {
			nonce++
		}
	}
}

func (m *Miner) tipMoved(prevHash chainhash.Hash) bool {
	best := m.store.Best()
	var bestHash chainhash.Hash
	if best != nil {
		bestHash = best.Hash
	}
	return bestHash != prevHash
}

// sweepExpiredElections synthesizes an EndOfElection for every open
// election whose deadline has passed and injects it into the ends
// mempool, ready to be picked up by the next assembleBody call. Only a
// miner does this (spec.md §4.4); every other node simply checks a
// miner-supplied EndOfElection's declared tally against its own view.
func (m *Miner) sweepExpiredElections(now time.Time) {
	snap := m.store.MiningSnapshot()
	for hash, election := range snap.Open {
		if election.EndTime > now.Unix() {
			continue
		}
		results := snap.Tally[hash]
		if results == nil {
			results = map[string]int{}
		}
		m.store.Pools().Ends.Add(&record.EndOfElection{ElectionHash: hash, Results: results})
	}
}

// assembleBody builds the shuffled, size-bounded record list for a
// candidate block: pending ends and votes are filtered down to elections
// still open as of snap, each category is independently shuffled so
// miners cannot bias ordering within a category, and the result is fit
// into the block's byte and leaf-count budget in strict end/open/vote
// priority order.
func (m *Miner) assembleBody(snap blockchain.MiningSnapshot) []record.Record {
	pools := m.store.Pools()

	ends := filterByOpenElection(pools.Ends.New(), snap, func(r record.Record) chainhash.Hash {
		return r.(*record.EndOfElection).ElectionHash
	})
	opens := filterUnexpiredElections(pools.Opens.New(), time.Now())
	votes := filterByOpenElection(pools.Votes.New(), snap, func(r record.Record) chainhash.Hash {
		return r.(*record.Vote).ElectionHash
	})

	decredrand.Shuffle(len(ends), func(i, j int) { ends[i], ends[j] = ends[j], ends[i] })
	decredrand.Shuffle(len(opens), func(i, j int) { opens[i], opens[j] = opens[j], opens[i] })
	decredrand.Shuffle(len(votes), func(i, j int) { votes[i], votes[j] = votes[j], votes[i] })

	return m.allocator.AllocateBlockSpace(ends, opens, votes).Ordered()
}

// filterUnexpiredElections drops pending Election opens whose end_time has
// already passed: spec.md §4.4 never lets a miner commit an election that
// could never receive a vote.
func filterUnexpiredElections(candidates []record.Record, now time.Time) []record.Record {
	out := make([]record.Record, 0, len(candidates))
	for _, r := range candidates {
		if r.(*record.Election).EndTime > now.Unix() {
			out = append(out, r)
		}
	}
	return out
}

// filterByOpenElection keeps only the candidates whose election (extracted
// by electionOf) is still open as of snap — discarding, for example, a
// pending vote for an election another miner's block has already closed.
func filterByOpenElection(candidates []record.Record, snap blockchain.MiningSnapshot, electionOf func(record.Record) chainhash.Hash) []record.Record {
	out := make([]record.Record, 0, len(candidates))
	for _, r := range candidates {
		if _, open := snap.Open[electionOf(r)]; open {
			out = append(out, r)
		}
	}
	return out
}
