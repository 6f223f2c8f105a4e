// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package merkle implements the fixed-depth binary Merkle tree committed in
// every block header: leaves are record hashes in body order, zero-padded
// up to 2^MaxLevels, with SHA-256(left‖right) internal nodes. The shape
// (linear level-by-level array, (sibling, isLeft) proof entries) mirrors
// the level-by-level tree this code is modeled on, adapted from
// transaction hashes to record hashes.
package merkle

import (
	"fmt"

	"github.com/jrick/bitset"

	"github.com/monetarium/votechain/chainhash"
)

// MaxLevels is the fixed depth of the tree (2^MaxLevels leaves).
const MaxLevels = 8

// MaxLeaves is the number of leaf slots in a tree, 2^MaxLevels.
const MaxLeaves = 1 << MaxLevels

// Step is one entry of an inclusion proof: the sibling digest at a given
// level, and whether that sibling sits to the left of the running hash.
type Step struct {
	Sibling      chainhash.Hash
	SiblingIsLeft bool
}

// Tree is a precomputed Merkle tree over a fixed leaf set. Build once with
// New, then call Root/Proof as many times as needed.
type Tree struct {
	levels   [][]chainhash.Hash // levels[0] is the padded leaf row
	occupied bitset.Bytes       // which of the MaxLeaves slots hold a real record
	count    int
}

// New builds a Tree over hashes, which must number no more than MaxLeaves.
// hashes are zero-padded (with chainhash.ZeroHash) up to MaxLeaves.
func New(hashes []chainhash.Hash) (*Tree, error) {
	if len(hashes) > MaxLeaves {
		return nil, fmt.Errorf("merkle: %d leaves exceeds max of %d", len(hashes), MaxLeaves)
	}

	occupied := bitset.NewBytes(MaxLeaves)
	leaves := make([]chainhash.Hash, MaxLeaves)
	for i, h := range hashes {
		leaves[i] = h
		occupied.Set(uint32(i))
	}
	// Remaining leaves are already chainhash.ZeroHash (the zero value).

	levels := [][]chainhash.Hash{leaves}
	cur := leaves
	for len(cur) > 1 {
		next := make([]chainhash.Hash, len(cur)/2)
		for i := 0; i < len(cur); i += 2 {
			next[i/2] = hashPair(cur[i], cur[i+1])
		}
		levels = append(levels, next)
		cur = next
	}

	return &Tree{levels: levels, occupied: occupied, count: len(hashes)}, nil
}

func hashPair(left, right chainhash.Hash) chainhash.Hash {
	var buf [2 * chainhash.HashSize]byte
	copy(buf[:chainhash.HashSize], left[:])
	copy(buf[chainhash.HashSize:], right[:])
	return chainhash.HashH(buf[:])
}

// Root returns the tree's root digest, sitting at level MaxLevels.
func (t *Tree) Root() chainhash.Hash {
	top := t.levels[len(t.levels)-1]
	return top[0]
}

// Occupied reports whether leaf index i holds a real record rather than
// zero padding.
func (t *Tree) Occupied(i int) bool {
	if i < 0 || i >= MaxLeaves {
		return false
	}
	return t.occupied.Get(uint32(i))
}

// Proof returns the MaxLevels-entry inclusion proof for the leaf at index.
func (t *Tree) Proof(index int) ([]Step, error) {
	if index < 0 || index >= MaxLeaves {
		return nil, fmt.Errorf("merkle: leaf index %d out of range [0,%d)", index, MaxLeaves)
	}
	proof := make([]Step, 0, MaxLevels)
	idx := index
	for level := 0; level < MaxLevels; level++ {
		row := t.levels[level]
		if idx%2 == 1 {
			proof = append(proof, Step{Sibling: row[idx-1], SiblingIsLeft: true})
		} else {
			proof = append(proof, Step{Sibling: row[idx+1], SiblingIsLeft: false})
		}
		idx /= 2
	}
	return proof, nil
}

// Root computes the Merkle root of hashes without returning the tree: it
// builds one with New and returns its Root, for callers that only need the
// root (e.g. header verification).
func Root(hashes []chainhash.Hash) (chainhash.Hash, error) {
	tree, err := New(hashes)
	if err != nil {
		return chainhash.Hash{}, err
	}
	return tree.Root(), nil
}

// VerifyProof recomputes the running hash from leaf up through proof and
// compares it against root. This is the only check a light client needs to
// trust a record's inclusion in a block it has only the header for.
func VerifyProof(leaf chainhash.Hash, proof []Step, root chainhash.Hash) bool {
	cur := leaf
	for _, step := range proof {
		if step.SiblingIsLeft {
			cur = hashPair(step.Sibling, cur)
		} else {
			cur = hashPair(cur, step.Sibling)
		}
	}
	return cur == root
}
