// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package lightnode implements the header-only verification and
// GET_ELECTION_RES aggregation client of spec.md §4.6: a participant that
// stores no block bodies, never mines, and relies entirely on Merkle
// inclusion proofs from full nodes to answer an election query.
package lightnode

import (
	"fmt"
	"sync"
	"time"

	"github.com/decred/slog"

	decredrand "github.com/decred/dcrd/crypto/rand"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/internal/blockchain"
	"github.com/monetarium/votechain/merkle"
	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// PeerQuerier is the subset of a full node's network surface a light node
// needs to answer an election query: fanning out GET_ELECTION_RES requests
// to a sample of peers. Headers reach the light node separately, through
// HandleHeader. Implemented by internal/node's seedQuerier in production
// and faked directly in tests.
type PeerQuerier interface {
	// QueryElectionResult sends GET_ELECTION_RES for electionHash to up
	// to sampleSize distinct peers and returns every ELECTION_RES reply
	// received within the given timeout.
	QueryElectionResult(electionHash chainhash.Hash, sampleSize int, timeout time.Duration) []wire.ElectionResult
}

// SampleSize is how many peers a light node queries per election lookup
// (spec.md §4.6: "up to 5 random peers").
const SampleSize = 5

// QueryTimeout bounds how long a light node waits for ELECTION_RES replies
// before giving up and returning whatever it has collected.
const QueryTimeout = 5 * time.Second

// headerEntry is one link in the light node's header-only chain: enough to
// validate a subsequent header (link, PoW, difficulty, timestamp) without
// ever holding a block body.
type headerEntry struct {
	header         wire.BlockHeader
	hash           chainhash.Hash
	cumulativeWork uint64
}

// Node maintains only headers: it validates and relays BLOCK messages
// without ever requesting or storing a body, and answers election queries
// by aggregating ELECTION_RES replies from full nodes.
type Node struct {
	peers PeerQuerier

	mu      sync.Mutex
	headers map[chainhash.Hash]*headerEntry
	best    *headerEntry
	orphans map[chainhash.Hash][]*wire.BlockHeader
}

// New creates an empty light node that will query peers through peers.
func New(peers PeerQuerier) *Node {
	return &Node{
		peers:   peers,
		headers: make(map[chainhash.Hash]*headerEntry),
		orphans: make(map[chainhash.Hash][]*wire.BlockHeader),
	}
}

// HandleHeader validates a single header against the light node's header
// store and, if valid, links it in and reports whether it should be
// forwarded to other peers. A header whose parent is unknown is buffered
// exactly like a full node's orphan pool, keyed by the missing parent
// hash, and is never forwarded until its parent arrives (spec.md §4.6: "it
// never stores bodies and never mines" — but the orphan discipline that
// keeps blocks from becoming visible before their parent is identical to
// the full node's).
func (n *Node) HandleHeader(h *wire.BlockHeader, now time.Time) (forward bool, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.handleHeaderLocked(h, now)
}

func (n *Node) handleHeaderLocked(h *wire.BlockHeader, now time.Time) (bool, error) {
	hash := h.Hash()
	if _, ok := n.headers[hash]; ok {
		return false, nil
	}

	var parent *headerEntry
	if h.Index == 0 {
		if !h.PrevHash.IsZero() {
			return false, fmt.Errorf("lightnode: genesis header must have an all-zero previous hash")
		}
	} else {
		p, ok := n.headers[h.PrevHash]
		if !ok {
			n.orphans[h.PrevHash] = append(n.orphans[h.PrevHash], h)
			return false, nil
		}
		parent = p
	}

	if !blockchain.CheckProofOfWork(hash, h.Difficulty) {
		return false, fmt.Errorf("lightnode: header %s fails proof of work at difficulty %d", hash, h.Difficulty)
	}
	wantDifficulty := n.calcNextDifficulty(parent)
	if h.Difficulty != wantDifficulty {
		return false, fmt.Errorf("lightnode: header %s declares difficulty %d, want %d", hash, h.Difficulty, wantDifficulty)
	}
	if err := n.checkTimestamp(parent, h.Timestamp, now); err != nil {
		return false, err
	}

	var parentWork uint64
	if parent != nil {
		parentWork = parent.cumulativeWork
	}
	entry := &headerEntry{header: *h, hash: hash, cumulativeWork: parentWork + uint64(h.Difficulty)}
	n.headers[hash] = entry

	if n.best == nil || entry.cumulativeWork > n.best.cumulativeWork {
		n.best = entry
	}

	n.processOrphansLocked(hash, now)
	return true, nil
}

// checkTimestamp applies the same median-of-six / future-drift rule a full
// node applies, walking the light node's own header store instead of a
// block arena.
func (n *Node) checkTimestamp(parent *headerEntry, timestamp int64, now time.Time) error {
	if timestamp > now.Add(blockchain.FutureDrift).Unix() {
		return fmt.Errorf("lightnode: timestamp %d is too far ahead of current time", timestamp)
	}
	if parent == nil {
		return nil
	}
	var timestamps []int64
	cur := parent
	for i := 0; i < blockchain.TimestampWindow && cur != nil; i++ {
		timestamps = append(timestamps, cur.header.Timestamp)
		if cur.header.Index == 0 {
			break
		}
		prev, ok := n.headers[cur.header.PrevHash]
		if !ok {
			break
		}
		cur = prev
	}
	median := medianInt64(timestamps)
	if timestamp < median {
		return fmt.Errorf("lightnode: timestamp %d precedes median ancestor timestamp %d", timestamp, median)
	}
	return nil
}

// calcNextDifficulty runs the shared retarget algorithm
// (blockchain.CalcNextDifficultyFromHistory) over this light node's own
// header-only ancestor chain, so a header's declared difficulty can be
// checked without ever holding a block body (spec.md §4.6: "validates the
// header (link, PoW, difficulty, timestamp)").
func (n *Node) calcNextDifficulty(parent *headerEntry) uint32 {
	if parent == nil {
		return blockchain.DefaultDifficulty
	}
	var history []blockchain.AncestorDifficulty
	cur := parent
	for i := 0; i < retargetWindow; i++ {
		history = append(history, blockchain.AncestorDifficulty{
			Timestamp:  cur.header.Timestamp,
			Difficulty: cur.header.Difficulty,
		})
		if cur.header.Index == 0 {
			break
		}
		prev, ok := n.headers[cur.header.PrevHash]
		if !ok {
			break
		}
		cur = prev
	}
	return blockchain.CalcNextDifficultyFromHistory(history, parent.header.Difficulty)
}

// retargetWindow mirrors internal/blockchain's 11-timestamp/10-difficulty
// retarget window (spec.md §4.2); it is unexported there, so the light
// node keeps its own copy rather than adding another cross-package export
// for a single constant.
const retargetWindow = 11

func medianInt64(xs []int64) int64 {
	if len(xs) == 0 {
		return 0
	}
	sorted := append([]int64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

func (n *Node) processOrphansLocked(parentHash chainhash.Hash, now time.Time) {
	pending, ok := n.orphans[parentHash]
	if !ok {
		return
	}
	delete(n.orphans, parentHash)
	for _, h := range pending {
		if _, err := n.handleHeaderLocked(h, now); err != nil {
			log.Debugf("lightnode: orphan header failed re-verification: %s", err)
		}
	}
}

// BestHash returns the header hash of the light node's current best tip,
// and false if no header has been accepted yet.
func (n *Node) BestHash() (chainhash.Hash, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.best == nil {
		return chainhash.Hash{}, false
	}
	return n.best.hash, true
}

// Header looks up a previously accepted header by hash.
func (n *Node) Header(hash chainhash.Hash) (*wire.BlockHeader, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	e, ok := n.headers[hash]
	if !ok {
		return nil, false
	}
	h := e.header
	return &h, true
}

// ElectionQueryResult is the outcome of QueryElection: either a final,
// Merkle-verified tally (from a reply carrying a verified EndOfElection)
// or a provisional best-effort tally built from unverified-final vote
// counts (spec.md §4.6: "If no reply contains a verifiable EndOfElection,
// the answer is marked provisional").
type ElectionQueryResult struct {
	Tally       map[string]int
	Final       bool
	RepliesSeen int
}

// QueryElection sends GET_ELECTION_RES to a random sample of peers,
// verifies every reply's Merkle proofs against this node's own header
// store, and aggregates the result per spec.md §4.6:
//
//  1. The reply's claimed opening height must be on this node's best
//     header chain (see verifyElectionInclusion; the reply carries no
//     inclusion proof for the election record itself).
//  2. Every vote's Merkle proof must verify against its claimed header,
//     and the vote's signature must verify. When election is non-nil the
//     voter must also be eligible in it and the choice one of its
//     choices; when election is nil those two checks are skipped.
//  3. If a reply carries a verified EndOfElection, its result is returned
//     as final immediately. Otherwise votes are tallied across replies
//     and the best-effort count is returned as provisional.
func (n *Node) QueryElection(electionHash chainhash.Hash, election *record.Election) ElectionQueryResult {
	replies := n.peers.QueryElectionResult(electionHash, SampleSize, QueryTimeout)

	tally := make(map[string]int)
	seen := make(map[string]struct{}) // voter public key -> counted, to avoid double counting across overlapping replies
	var repliesUsed int

	for _, reply := range replies {
		if !n.verifyElectionInclusion(electionHash, reply) {
			continue
		}
		repliesUsed++

		if reply.End != nil {
			if final, ok := n.verifyEnd(electionHash, reply.End); ok {
				return ElectionQueryResult{Tally: final.Results, Final: true, RepliesSeen: repliesUsed}
			}
		}

		for _, vp := range reply.Votes {
			v, choice, ok := n.verifyVote(electionHash, election, vp)
			if !ok {
				continue
			}
			key := string(v.PublicKey)
			if _, counted := seen[key]; counted {
				continue
			}
			seen[key] = struct{}{}
			tally[choice]++
		}
	}

	return ElectionQueryResult{Tally: tally, Final: false, RepliesSeen: repliesUsed}
}

// verifyElectionInclusion confirms reply's claimed opening height is one
// this light node's current best chain actually has a header for. The
// wire ELECTION_RES payload (spec.md §4.5) carries no separate Merkle
// proof for the election record itself — only for its votes and its
// EndOfElection — so the strongest check available here is that the
// claimed height is on a chain this light node has independently validated
// via CheckProofOfWork/CheckTimestamp; per-vote and per-end proofs below
// are what anchor each record to a specific header.
func (n *Node) verifyElectionInclusion(electionHash chainhash.Hash, reply wire.ElectionResult) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.best == nil {
		return false
	}
	found := false
	cur := n.best
	for {
		if int(cur.header.Index) == reply.Start {
			found = true
			break
		}
		if cur.header.Index == 0 {
			break
		}
		parent, ok := n.headers[cur.header.PrevHash]
		if !ok {
			break
		}
		cur = parent
	}
	return found
}

// verifyVote checks vp's Merkle proof against its claimed block header and
// the vote's own validity (signature, eligibility, choice) against
// election.
func (n *Node) verifyVote(electionHash chainhash.Hash, election *record.Election, vp wire.VoteProof) (*record.Vote, string, bool) {
	r, err := record.Parse(vp.Vote)
	if err != nil {
		return nil, "", false
	}
	v, ok := r.(*record.Vote)
	if !ok || v.ElectionHash != electionHash {
		return nil, "", false
	}

	header, ok := n.Header(vp.Proof.BlockHash)
	if !ok {
		return nil, "", false
	}
	if !merkle.VerifyProof(v.Hash(), vp.Proof.Steps(), header.MerkleRoot) {
		return nil, "", false
	}

	if election != nil {
		if !election.IsEligible(v.PublicKey) || !election.HasChoice(v.Choice) {
			return nil, "", false
		}
	}
	if !v.CheckSignature() {
		return nil, "", false
	}
	return v, v.Choice, true
}

// verifyEnd checks an EndOfElection reply's Merkle proof against its
// claimed block header.
func (n *Node) verifyEnd(electionHash chainhash.Hash, ep *wire.EndProof) (*record.EndOfElection, bool) {
	r, err := record.Parse(ep.End)
	if err != nil {
		return nil, false
	}
	end, ok := r.(*record.EndOfElection)
	if !ok || end.ElectionHash != electionHash {
		return nil, false
	}
	header, ok := n.Header(ep.Proof.BlockHash)
	if !ok {
		return nil, false
	}
	if !merkle.VerifyProof(end.Hash(), ep.Proof.Steps(), header.MerkleRoot) {
		return nil, false
	}
	return end, true
}

// RandomPeerSample is a thin helper over decredrand.Shuffle, exported so a
// PeerQuerier implementation can draw the "up to 5 random peers" sample
// spec.md §4.6 calls for using the same non-cryptographic shuffle source
// the miner uses for candidate ordering, rather than introducing a second
// RNG dependency.
func RandomPeerSample[T any](all []T, n int) []T {
	if n >= len(all) {
		out := append([]T(nil), all...)
		decredrand.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
		return out
	}
	shuffled := append([]T(nil), all...)
	decredrand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	return shuffled[:n]
}
