// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"encoding/binary"

	"github.com/monetarium/votechain/chainhash"
)

// LeadingZeroBytes is the number of leading zero bytes a header hash must
// have to be considered for the target comparison at all (spec.md §4.2).
const LeadingZeroBytes = 2

// Target is the PoW denominator: a header hash passes at difficulty d iff
// its leading-zero bytes are all zero and the big-endian uint32 that
// follows is strictly less than Target/d (integer division).
const Target uint64 = 1 << 32

// DefaultDifficulty is the difficulty assigned to the genesis block and
// used as the retarget algorithm's fallback when too little history exists.
const DefaultDifficulty uint32 = 128

// MinDifficulty and MaxDifficulty bound every difficulty value, genesis
// included.
const (
	MinDifficulty uint32 = 1
	MaxDifficulty uint32 = 1<<32 - 1
)

// CheckProofOfWork reports whether headerHash satisfies difficulty: its
// first LeadingZeroBytes bytes must be zero, and the big-endian uint32
// formed by the next 4 bytes must be strictly less than Target/difficulty.
//
// difficulty 0 is never satisfiable (division by zero is avoided by
// treating it as an automatic failure) — callers are expected to reject a
// zero difficulty before ever calling this, since MinDifficulty is 1.
func CheckProofOfWork(headerHash chainhash.Hash, difficulty uint32) bool {
	if difficulty == 0 {
		return false
	}
	for i := 0; i < LeadingZeroBytes; i++ {
		if headerHash[i] != 0 {
			return false
		}
	}
	window := binary.BigEndian.Uint32(headerHash[LeadingZeroBytes : LeadingZeroBytes+4])
	target := Target / uint64(difficulty)
	return uint64(window) < target
}
