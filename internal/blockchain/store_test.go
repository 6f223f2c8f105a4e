// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"testing"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

// mineBlock fills in MerkleRoot and brute-forces Nonce until the header
// satisfies its own declared Difficulty.
func mineBlock(t *testing.T, b *wire.Block) {
	t.Helper()
	root, err := b.ComputeMerkleRoot()
	if err != nil {
		t.Fatalf("ComputeMerkleRoot: %v", err)
	}
	b.Header.MerkleRoot = root
	for nonce := uint32(0); ; nonce++ {
		b.Header.Nonce = nonce
		if CheckProofOfWork(b.Header.Hash(), b.Header.Difficulty) {
			return
		}
		if nonce == ^uint32(0) {
			t.Fatalf("exhausted nonce space without finding a valid proof of work")
		}
	}
}

// mineGenesis builds and mines a genesis candidate. Genesis always requires
// DefaultDifficulty (CalcNextDifficulty's parent == nil case), regardless of
// what a retarget over the (nonexistent) ancestor history would say.
func mineGenesis(t *testing.T, timestamp int64, body []record.Record) *wire.Block {
	t.Helper()
	b := &wire.Block{
		Header: wire.BlockHeader{
			Index:      0,
			Difficulty: DefaultDifficulty,
			Timestamp:  timestamp,
		},
		Body: body,
	}
	mineBlock(t, b)
	return b
}

// mineChild builds and mines a block extending parentHash, already accepted
// into s. Its required difficulty is computed the same way AddBlock computes
// it, so the result always satisfies ValidateHeader's declared-difficulty
// check regardless of how deep the retarget window reaches.
func mineChild(t *testing.T, s *Store, parentHash chainhash.Hash, timestamp int64, body []record.Record) *wire.Block {
	t.Helper()
	parent, ok := s.arena.Get(parentHash)
	if !ok {
		t.Fatalf("mineChild: parent %s not found in store", parentHash)
	}
	b := &wire.Block{
		Header: wire.BlockHeader{
			Index:      parent.Block.Header.Index + 1,
			PrevHash:   parentHash,
			Difficulty: CalcNextDifficulty(s.arena, parent),
			Timestamp:  timestamp,
		},
		Body: body,
	}
	mineBlock(t, b)
	return b
}

func TestStoreAddBlockAcceptsGenesis(t *testing.T) {
	s := NewStore()
	g := mineGenesis(t, 1000, nil)
	result, err := s.AddBlock(g)
	if err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}
	if result != BlockAccepted {
		t.Fatalf("got %v, want BlockAccepted", result)
	}
	best := s.Best()
	if best == nil || best.Hash != g.Header.Hash() {
		t.Fatalf("expected genesis to become the best tip")
	}
}

func TestStoreAddBlockDuplicateIsNoop(t *testing.T) {
	s := NewStore()
	g := mineGenesis(t, 1000, nil)
	if _, err := s.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}
	result, err := s.AddBlock(g)
	if err != nil {
		t.Fatalf("AddBlock(duplicate): %v", err)
	}
	if result != BlockDuplicate {
		t.Fatalf("got %v, want BlockDuplicate", result)
	}
}

func TestStoreAddBlockBuffersOrphanThenRecoversOnParentArrival(t *testing.T) {
	s := NewStore()
	g := mineGenesis(t, 1000, nil)

	// Mine the child against a store that already has g accepted, then
	// submit it to a second, empty store so it arrives before its parent.
	s2 := NewStore()
	if _, err := s.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis) on reference store: %v", err)
	}
	child := mineChild(t, s, g.Header.Hash(), 1100, nil)

	result, err := s2.AddBlock(child)
	if err != nil {
		t.Fatalf("AddBlock(child before parent): %v", err)
	}
	if result != BlockOrphan {
		t.Fatalf("got %v, want BlockOrphan", result)
	}
	if best := s2.Best(); best != nil {
		t.Fatalf("expected no best tip before the parent arrives")
	}

	if _, err := s2.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}
	best := s2.Best()
	if best == nil || best.Hash != child.Header.Hash() {
		t.Fatalf("expected the orphan to be adopted as the best tip once its parent arrived")
	}
}

func TestStoreAddBlockOrphansUnknownParent(t *testing.T) {
	s := NewStore()
	g := mineGenesis(t, 1000, nil)
	if _, err := s.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}

	bad := &wire.Block{
		Header: wire.BlockHeader{
			Index:      1,
			PrevHash:   chainhash.Hash{1, 2, 3},
			Difficulty: MinDifficulty,
			Timestamp:  1100,
		},
	}
	mineBlock(t, bad)

	result, err := s.AddBlock(bad)
	if err != nil {
		t.Fatalf("AddBlock(bad parent): %v", err)
	}
	if result != BlockOrphan {
		t.Fatalf("got %v, want BlockOrphan for a block whose declared parent is unknown", result)
	}
}

func TestStoreReorgToHeavierSideChain(t *testing.T) {
	s := NewStore()
	g := mineGenesis(t, 1000, nil)
	if _, err := s.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}

	a1 := mineChild(t, s, g.Header.Hash(), 1100, nil)
	if _, err := s.AddBlock(a1); err != nil {
		t.Fatalf("AddBlock(a1): %v", err)
	}
	if best := s.Best(); best == nil || best.Hash != a1.Header.Hash() {
		t.Fatalf("expected a1 to be the best tip")
	}

	// A different timestamp than a1's keeps b1 from mining to the
	// identical header.
	b1 := mineChild(t, s, g.Header.Hash(), 1101, nil)
	if _, err := s.AddBlock(b1); err != nil {
		t.Fatalf("AddBlock(b1): %v", err)
	}
	// Equal work to a1: first-seen (a1) must remain best (Open Question 3).
	if best := s.Best(); best == nil || best.Hash != a1.Header.Hash() {
		t.Fatalf("expected first-seen tie-break to keep a1 as best tip")
	}

	b2 := mineChild(t, s, b1.Header.Hash(), 1200, nil)
	if _, err := s.AddBlock(b2); err != nil {
		t.Fatalf("AddBlock(b2): %v", err)
	}
	if best := s.Best(); best == nil || best.Hash != b2.Header.Hash() {
		t.Fatalf("expected the b-chain to become best tip once it carries more cumulative work")
	}
}

func TestStoreSubmitVoteRejectsSecondVoteFromSameKey(t *testing.T) {
	priv, der := mustRSAKey(t)
	e := &record.Election{Name: "E", Choices: []string{"A", "B"}, PublicKeys: [][]byte{der}, EndTime: 1_000_000}

	s := NewStore()
	g := mineGenesis(t, 1000, []record.Record{e})
	if _, err := s.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}

	v1 := signedVote(t, priv, der, e.Hash(), "A")
	if err := s.SubmitVote(v1); err != nil {
		t.Fatalf("SubmitVote(first): %v", err)
	}
	v2 := signedVote(t, priv, der, e.Hash(), "B")
	if err := s.SubmitVote(v2); err == nil {
		t.Fatalf("expected second pending vote from the same key to be rejected")
	}
}

func TestStoreElectionResultReflectsCommittedVotesAndClose(t *testing.T) {
	priv, der := mustRSAKey(t)
	e := &record.Election{Name: "E", Choices: []string{"A", "B"}, PublicKeys: [][]byte{der}, EndTime: 1050}

	s := NewStore()
	g := mineGenesis(t, 1000, []record.Record{e})
	if _, err := s.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}

	v := signedVote(t, priv, der, e.Hash(), "A")
	voteBlock := mineChild(t, s, g.Header.Hash(), 1040, []record.Record{v})
	if _, err := s.AddBlock(voteBlock); err != nil {
		t.Fatalf("AddBlock(voteBlock): %v", err)
	}

	result, ok := s.ElectionResult(e.Hash())
	if !ok {
		t.Fatalf("expected ElectionResult to find the committed election")
	}
	if len(result.Votes) != 1 {
		t.Fatalf("got %d votes, want 1", len(result.Votes))
	}
	if result.End != nil {
		t.Fatalf("expected no EndOfElection before the election is closed")
	}

	end := &record.EndOfElection{ElectionHash: e.Hash(), Results: map[string]int{"A": 1}}
	endBlock := mineChild(t, s, voteBlock.Header.Hash(), 1060, []record.Record{end})
	if _, err := s.AddBlock(endBlock); err != nil {
		t.Fatalf("AddBlock(endBlock): %v", err)
	}

	result, ok = s.ElectionResult(e.Hash())
	if !ok {
		t.Fatalf("expected ElectionResult to still find the committed election")
	}
	if result.End == nil {
		t.Fatalf("expected an EndOfElection proof after the election is closed")
	}
}

func TestStoreMiningSnapshotReflectsOpenElectionsAndDifficulty(t *testing.T) {
	e := &record.Election{Name: "E", Choices: []string{"A"}, PublicKeys: nil, EndTime: 1_000_000}

	s := NewStore()
	g := mineGenesis(t, 1000, []record.Record{e})
	if _, err := s.AddBlock(g); err != nil {
		t.Fatalf("AddBlock(genesis): %v", err)
	}

	snap := s.MiningSnapshot()
	if snap.Index != 1 {
		t.Fatalf("got index %d, want 1", snap.Index)
	}
	if snap.PrevHash != g.Header.Hash() {
		t.Fatalf("expected PrevHash to be the genesis hash")
	}
	if _, ok := snap.Open[e.Hash()]; !ok {
		t.Fatalf("expected the genesis election to be in the open set")
	}
	if snap.Difficulty != DefaultDifficulty {
		t.Fatalf("got difficulty %d, want DefaultDifficulty (fewer than two retarget timestamps)", snap.Difficulty)
	}
}
