// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "testing"

func TestCalcNextDifficultyFromHistoryTooShortReturnsDefault(t *testing.T) {
	if got := CalcNextDifficultyFromHistory(nil, 500); got != DefaultDifficulty {
		t.Fatalf("got %d, want DefaultDifficulty with no history", got)
	}
	one := []AncestorDifficulty{{Timestamp: 1000, Difficulty: 500}}
	if got := CalcNextDifficultyFromHistory(one, 500); got != DefaultDifficulty {
		t.Fatalf("got %d, want DefaultDifficulty with a single timestamp", got)
	}
}

func TestCalcNextDifficultyFromHistoryStableAtTarget(t *testing.T) {
	// 11 timestamps spaced exactly TimeTarget apart, all at the same
	// difficulty: avg_freq == TimeTarget, so the candidate equals avg_diff
	// exactly and the clamp never engages.
	history := make([]AncestorDifficulty, retargetWindow)
	ts := int64(100000)
	for i := range history {
		history[i] = AncestorDifficulty{Timestamp: ts, Difficulty: 1000}
		ts -= int64(TimeTarget)
	}
	got := CalcNextDifficultyFromHistory(history, 1000)
	if got != 1000 {
		t.Fatalf("got %d, want 1000 (stable retarget)", got)
	}
}

func TestCalcNextDifficultyFromHistoryClampsUpward(t *testing.T) {
	// Blocks arriving far faster than TimeTarget push the candidate above
	// parentDifficulty*Clamp; it must be clamped there instead.
	history := make([]AncestorDifficulty, retargetWindow)
	ts := int64(100000)
	for i := range history {
		history[i] = AncestorDifficulty{Timestamp: ts, Difficulty: 1000}
		ts -= 1 // 1 second apart: far faster than the 30s target
	}
	got := CalcNextDifficultyFromHistory(history, 1000)
	want := uint32(1000 * Clamp)
	if got != want {
		t.Fatalf("got %d, want clamp ceiling %d", got, want)
	}
}

func TestCalcNextDifficultyFromHistoryClampsDownward(t *testing.T) {
	// Blocks arriving far slower than TimeTarget pull the candidate below
	// parentDifficulty/Clamp; it must be clamped there instead.
	history := make([]AncestorDifficulty, retargetWindow)
	ts := int64(100000)
	for i := range history {
		history[i] = AncestorDifficulty{Timestamp: ts, Difficulty: 1000}
		ts -= 10000 // far slower than the 30s target
	}
	got := CalcNextDifficultyFromHistory(history, 1000)
	floor := 1000 / Clamp
	want := uint32(floor)
	if got != want {
		t.Fatalf("got %d, want clamp floor %d", got, want)
	}
}

func TestCalcNextDifficultyFromHistoryZeroDeltaTreatedAsOne(t *testing.T) {
	// Two identical timestamps would otherwise divide by zero; the spec
	// requires substituting 1 for a non-positive delta.
	history := make([]AncestorDifficulty, retargetWindow)
	for i := range history {
		history[i] = AncestorDifficulty{Timestamp: 100000, Difficulty: 1000}
	}
	got := CalcNextDifficultyFromHistory(history, 1000)
	// avg_freq == 1 (every delta clamped to 1), so candidate =
	// 1000*30/1 = 30000, clamped to the upward ceiling of 1000*1.2=1200.
	want := uint32(1000 * Clamp)
	if got != want {
		t.Fatalf("got %d, want %d", got, want)
	}
}

func TestCalcNextDifficultyNilParentIsGenesisDefault(t *testing.T) {
	if got := CalcNextDifficulty(nil, nil); got != DefaultDifficulty {
		t.Fatalf("got %d, want DefaultDifficulty for genesis", got)
	}
}

func TestCalcNextDifficultyBoundsAtMinAndMax(t *testing.T) {
	history := make([]AncestorDifficulty, retargetWindow)
	ts := int64(100000)
	for i := range history {
		history[i] = AncestorDifficulty{Timestamp: ts, Difficulty: MinDifficulty}
		ts -= int64(TimeTarget)
	}
	if got := CalcNextDifficultyFromHistory(history, MinDifficulty); got < MinDifficulty {
		t.Fatalf("got %d, difficulty must never drop below MinDifficulty", got)
	}

	for i := range history {
		history[i].Difficulty = MaxDifficulty
	}
	if got := CalcNextDifficultyFromHistory(history, MaxDifficulty); got > MaxDifficulty {
		t.Fatalf("got %d, difficulty must never exceed MaxDifficulty", got)
	}
}
