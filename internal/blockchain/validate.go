// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"sort"
	"time"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/internal/blockalloc"
	"github.com/monetarium/votechain/merkle"
	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

// FutureDrift bounds how far ahead of wall-clock a block's timestamp may
// be (spec.md §4.2).
const FutureDrift = 120 * time.Second

// TimestampWindow is the number of ancestor timestamps (parent included)
// the median-of-six rule draws from.
const TimestampWindow = 6

// CheckTimestamp reports whether timestamp is acceptable for a block whose
// parent is parent: it must be >= the median of up to TimestampWindow
// ancestor timestamps (parent inclusive) and <= now + FutureDrift. A
// genesis block (parent == nil) has no lower bound.
func CheckTimestamp(arena *blockalloc.Arena, parent *blockalloc.Entry, timestamp int64, now time.Time) error {
	if timestamp > now.Add(FutureDrift).Unix() {
		return ruleErrorf(ErrBadTimestamp, "timestamp %d is more than %s ahead of current time", timestamp, FutureDrift)
	}
	if parent == nil {
		return nil
	}
	ancestors := arena.Ancestors(parent.Hash, TimestampWindow)
	timestamps := make([]int64, len(ancestors))
	for i, e := range ancestors {
		timestamps[i] = e.Block.Header.Timestamp
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] < timestamps[j] })
	median := medianInt64(timestamps)
	if timestamp < median {
		return ruleErrorf(ErrBadTimestamp, "timestamp %d precedes median ancestor timestamp %d", timestamp, median)
	}
	return nil
}

func medianInt64(sorted []int64) int64 {
	n := len(sorted)
	if n == 0 {
		return 0
	}
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// ValidateHeader checks a block's header fields — PoW, declared difficulty,
// and timestamp — and the header's commitment to the body: the Merkle root
// recomputed from the body, the record count, and the encoded body size.
// The records themselves are checked by ValidateBody. parent is nil for a
// genesis candidate.
func ValidateHeader(arena *blockalloc.Arena, b *wire.Block, parent *blockalloc.Entry, now time.Time) error {
	headerHash := b.Header.Hash()
	if !CheckProofOfWork(headerHash, b.Header.Difficulty) {
		return ruleErrorf(ErrBadProofOfWork, "header hash %s does not satisfy difficulty %d", headerHash, b.Header.Difficulty)
	}

	wantDifficulty := CalcNextDifficulty(arena, parent)
	if b.Header.Difficulty != wantDifficulty {
		return ruleErrorf(ErrBadDifficulty, "declared difficulty %d, want %d", b.Header.Difficulty, wantDifficulty)
	}

	if err := CheckTimestamp(arena, parent, b.Header.Timestamp, now); err != nil {
		return err
	}

	root, err := b.ComputeMerkleRoot()
	if err != nil {
		return ruleErrorf(ErrBadMerkleRoot, "%s", err)
	}
	if root != b.Header.MerkleRoot {
		return ruleErrorf(ErrBadMerkleRoot, "computed root %s does not match declared root %s", root, b.Header.MerkleRoot)
	}

	if len(b.Body) > merkle.MaxLeaves {
		return ruleErrorf(ErrOversizeBlock, "%d records exceeds max of %d", len(b.Body), merkle.MaxLeaves)
	}
	if body, _ := b.EncodeBody(); len(body) > wire.MaxBlockSize {
		return ruleErrorf(ErrOversizeBlock, "body of %d bytes exceeds max of %d", len(body), wire.MaxBlockSize)
	}

	return nil
}

// ValidateBody checks every record committed in b.Body against the chain
// view ending at b's parent (parentView), per spec.md §4.2's vote and
// EndOfElection rules. Elections opened earlier in the same block body are
// visible to later votes in that body (an election and a vote on it may
// share a block), but an EndOfElection may only reference an election
// already committed as of the parent — the tally it claims is computed
// over the chain ending at the parent, never including this block.
func ValidateBody(b *wire.Block, parentView *ChainView) error {
	localElections := make(map[chainhash.Hash]*record.Election, len(parentView.Elections))
	for h, e := range parentView.Elections {
		localElections[h] = e
	}
	localHeights := make(map[chainhash.Hash]uint32, len(parentView.ElectionHeight))
	for h, height := range parentView.ElectionHeight {
		localHeights[h] = height
	}
	localUsed := make(map[string]struct{}, len(parentView.UsedVoters))
	for k := range parentView.UsedVoters {
		localUsed[k] = struct{}{}
	}

	for i, r := range b.Body {
		switch rec := r.(type) {
		case *record.Election:
			hash := rec.Hash()
			localElections[hash] = rec
			localHeights[hash] = b.Header.Index

		case *record.Vote:
			election, ok := localElections[rec.ElectionHash]
			if !ok {
				return ruleErrorf(ErrUnknownElection, "vote %d targets unknown election %s", i, rec.ElectionHash)
			}
			if localHeights[rec.ElectionHash] > b.Header.Index {
				return ruleErrorf(ErrUnknownElection, "vote %d targets election committed at a later height", i)
			}
			if !election.IsEligible(rec.PublicKey) {
				return ruleErrorf(ErrIneligibleVoter, "vote %d public key is not eligible for election %s", i, rec.ElectionHash)
			}
			if !election.HasChoice(rec.Choice) {
				return ruleErrorf(ErrBadChoice, "vote %d choice %q is not on the ballot for election %s", i, rec.Choice, rec.ElectionHash)
			}
			if !rec.CheckSignature() {
				return ruleErrorf(ErrBadSignature, "vote %d signature does not verify", i)
			}
			key := voterKey(rec.ElectionHash, rec.PublicKey)
			if _, used := localUsed[key]; used {
				return ruleErrorf(ErrIneligibleVoter, "vote %d public key already voted in election %s", i, rec.ElectionHash)
			}
			localUsed[key] = struct{}{}

		case *record.EndOfElection:
			election, ok := parentView.Elections[rec.ElectionHash]
			if !ok {
				return ruleErrorf(ErrUnknownElection, "end_of_election %d references uncommitted election %s", i, rec.ElectionHash)
			}
			if parentView.Closed[rec.ElectionHash] {
				return ruleErrorf(ErrInvalidRecord, "end_of_election %d closes already-closed election %s", i, rec.ElectionHash)
			}
			if election.EndTime > b.Header.Timestamp {
				return ruleErrorf(ErrInvalidRecord, "end_of_election %d closes election before its end_time", i)
			}
			if err := checkTallyMatch(rec.Results, parentView.TallyFor(rec.ElectionHash)); err != nil {
				return ruleErrorf(ErrBadTally, "end_of_election %d: %s", i, err)
			}

		default:
			return ruleErrorf(ErrInvalidRecord, "record %d has unrecognized type", i)
		}
	}
	return nil
}

func checkTallyMatch(declared, actual map[string]int) error {
	for choice, count := range declared {
		if actual[choice] != count {
			return ruleErrorf(ErrBadTally, "declared count %d for %q, computed %d", count, choice, actual[choice])
		}
	}
	for choice, count := range actual {
		if count == 0 {
			continue
		}
		if declared[choice] != count {
			return ruleErrorf(ErrBadTally, "computed count %d for %q missing from declared results", count, choice)
		}
	}
	return nil
}
