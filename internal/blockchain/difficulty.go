// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import (
	"math"
	"sort"

	"github.com/monetarium/votechain/internal/blockalloc"
)

// TimeTarget is the desired average seconds between blocks (spec.md §4.2).
const TimeTarget = 30.0

// Clamp bounds how much the difficulty may move in a single retarget step,
// relative to the parent's difficulty.
const Clamp = 1.2

// retargetWindow is 11 timestamps / 10 difficulties (spec.md §4.2).
const retargetWindow = 11

// CalcNextDifficulty computes the difficulty a block extending parent must
// declare. Genesis (parent == nil) always returns DefaultDifficulty per the
// spec's explicit design note that block 0 is not retargeted.
func CalcNextDifficulty(arena *blockalloc.Arena, parent *blockalloc.Entry) uint32 {
	if parent == nil {
		return DefaultDifficulty
	}

	ancestors := arena.Ancestors(parent.Hash, retargetWindow)
	history := make([]AncestorDifficulty, len(ancestors))
	for i, e := range ancestors {
		history[i] = AncestorDifficulty{Timestamp: e.Block.Header.Timestamp, Difficulty: e.Block.Header.Difficulty}
	}
	return CalcNextDifficultyFromHistory(history, parent.Block.Header.Difficulty)
}

// AncestorDifficulty is one entry of retarget history: a block's timestamp
// and declared difficulty. CalcNextDifficulty builds this from the chain
// store's block arena; lightnode builds the identical shape from its
// header-only store, so both run the exact same retarget arithmetic
// (spec.md §4.2 makes no distinction between a full and light node's
// difficulty check).
type AncestorDifficulty struct {
	Timestamp  int64
	Difficulty uint32
}

// CalcNextDifficultyFromHistory is the retarget algorithm of spec.md §4.2,
// factored out of CalcNextDifficulty so both the full chain store and
// lightnode's header-only verifier can share it. history must be ordered
// newest-first starting at the parent (as arena.Ancestors/lightnode's
// ancestor walk both produce) and contain at most retargetWindow entries.
// parentDifficulty is history[0].Difficulty when history is non-empty.
func CalcNextDifficultyFromHistory(history []AncestorDifficulty, parentDifficulty uint32) uint32 {
	if len(history) < 2 {
		return DefaultDifficulty
	}

	timestamps := make([]int64, len(history))
	for i, h := range history {
		timestamps[i] = h.Timestamp
	}
	sort.Slice(timestamps, func(i, j int) bool { return timestamps[i] > timestamps[j] })

	diffCount := len(history) - 1
	freqs := make([]float64, diffCount)
	for i := 0; i < diffCount; i++ {
		delta := timestamps[i] - timestamps[i+1]
		if delta <= 0 {
			delta = 1
		}
		freqs[i] = float64(delta)
	}
	avgFreq := mean(freqs)

	difficulties := make([]float64, diffCount)
	for i := 0; i < diffCount; i++ {
		difficulties[i] = float64(history[i].Difficulty)
	}
	avgDiff := mean(difficulties)

	candidate := math.Round(avgDiff * TimeTarget / avgFreq)

	parentDiff := float64(parentDifficulty)
	lo := math.Max(float64(MinDifficulty), parentDiff/Clamp)
	hi := math.Min(float64(MaxDifficulty), parentDiff*Clamp)
	if candidate < lo {
		candidate = lo
	}
	if candidate > hi {
		candidate = hi
	}
	if candidate < float64(MinDifficulty) {
		candidate = float64(MinDifficulty)
	}
	if candidate > float64(MaxDifficulty) {
		candidate = float64(MaxDifficulty)
	}
	return uint32(candidate)
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}
