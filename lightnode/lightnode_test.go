// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package lightnode

import (
	"testing"
	"time"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/internal/blockchain"
	"github.com/monetarium/votechain/merkle"
	"github.com/monetarium/votechain/wire"
)

type stubQuerier struct {
	replies []wire.ElectionResult
}

func (s *stubQuerier) QueryElectionResult(chainhash.Hash, int, time.Duration) []wire.ElectionResult {
	return s.replies
}

func genesisHeader() *wire.BlockHeader {
	h := &wire.BlockHeader{Index: 0, Difficulty: blockchain.DefaultDifficulty, Timestamp: 1000}
	root, _ := merkle.Root(nil)
	h.MerkleRoot = root
	mineHeader(h)
	return h
}

// mineHeader brute-forces a nonce satisfying the header's declared
// difficulty, for test fixtures only.
func mineHeader(h *wire.BlockHeader) {
	for nonce := uint32(0); ; nonce++ {
		h.Nonce = nonce
		if blockchain.CheckProofOfWork(h.Hash(), h.Difficulty) {
			return
		}
	}
}

func TestHandleHeaderAcceptsGenesis(t *testing.T) {
	n := New(&stubQuerier{})
	g := genesisHeader()
	forward, err := n.HandleHeader(g, time.Unix(1000, 0))
	if err != nil {
		t.Fatalf("HandleHeader: %v", err)
	}
	if !forward {
		t.Fatalf("expected genesis header to be forwarded")
	}
	best, ok := n.BestHash()
	if !ok || best != g.Hash() {
		t.Fatalf("expected best hash to be genesis hash")
	}
}

func TestHandleHeaderRejectsBadProofOfWork(t *testing.T) {
	n := New(&stubQuerier{})
	h := &wire.BlockHeader{Index: 0, Difficulty: blockchain.DefaultDifficulty, Timestamp: 1000}
	root, _ := merkle.Root(nil)
	h.MerkleRoot = root
	// Deliberately do not mine: nonce 0 essentially never satisfies PoW.
	if _, err := n.HandleHeader(h, time.Unix(1000, 0)); err == nil {
		t.Fatalf("expected proof-of-work failure")
	}
}

func TestHandleHeaderBuffersOrphan(t *testing.T) {
	n := New(&stubQuerier{})
	g := genesisHeader()

	child := &wire.BlockHeader{Index: 1, PrevHash: g.Hash(), Difficulty: blockchain.DefaultDifficulty, Timestamp: g.Timestamp + 30}
	root, _ := merkle.Root(nil)
	child.MerkleRoot = root
	mineHeader(child)

	forward, err := n.HandleHeader(child, time.Unix(g.Timestamp+30, 0))
	if err != nil {
		t.Fatalf("HandleHeader: %v", err)
	}
	if forward {
		t.Fatalf("orphan header must not be forwarded")
	}
	if _, ok := n.Header(child.Hash()); ok {
		t.Fatalf("orphan header must not be linked in yet")
	}

	// Now deliver the parent; the orphan should be re-verified and linked.
	if _, err := n.HandleHeader(g, time.Unix(g.Timestamp, 0)); err != nil {
		t.Fatalf("HandleHeader(parent): %v", err)
	}
	if _, ok := n.Header(child.Hash()); !ok {
		t.Fatalf("expected orphan to be linked in after parent arrived")
	}
	best, _ := n.BestHash()
	if best != child.Hash() {
		t.Fatalf("expected best hash to advance to child")
	}
}

func TestHandleHeaderDuplicateIsNoop(t *testing.T) {
	n := New(&stubQuerier{})
	g := genesisHeader()
	if _, err := n.HandleHeader(g, time.Unix(g.Timestamp, 0)); err != nil {
		t.Fatalf("HandleHeader: %v", err)
	}
	forward, err := n.HandleHeader(g, time.Unix(g.Timestamp, 0))
	if err != nil {
		t.Fatalf("HandleHeader duplicate: %v", err)
	}
	if forward {
		t.Fatalf("duplicate header must not be forwarded")
	}
}

func TestQueryElectionProvisionalWithoutEnd(t *testing.T) {
	n := New(&stubQuerier{replies: []wire.ElectionResult{{Start: 0}}})
	g := genesisHeader()
	if _, err := n.HandleHeader(g, time.Unix(g.Timestamp, 0)); err != nil {
		t.Fatalf("HandleHeader: %v", err)
	}
	result := n.QueryElection(chainhash.Hash{1}, nil)
	if result.Final {
		t.Fatalf("expected provisional result with no EndOfElection reply")
	}
}

func TestQueryElectionIgnoresUnanchoredReply(t *testing.T) {
	n := New(&stubQuerier{replies: []wire.ElectionResult{{Start: 7}}})
	result := n.QueryElection(chainhash.Hash{1}, nil)
	if result.RepliesSeen != 0 {
		t.Fatalf("expected reply referencing an unknown height to be discarded, got %d replies used", result.RepliesSeen)
	}
}

func TestRandomPeerSampleBounds(t *testing.T) {
	peers := []int{1, 2, 3, 4, 5, 6, 7, 8}
	sample := RandomPeerSample(peers, 5)
	if len(sample) != 5 {
		t.Fatalf("expected sample of 5, got %d", len(sample))
	}
	all := RandomPeerSample(peers, 100)
	if len(all) != len(peers) {
		t.Fatalf("expected full set when n exceeds population, got %d", len(all))
	}
}
