// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mining

import (
	"github.com/decred/slog"

	"github.com/monetarium/votechain/merkle"
	"github.com/monetarium/votechain/record"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// Category is one of the three record kinds competing for block space, in
// mining priority order.
type Category int

// Categories in strict priority order: ends always go in first, opens
// second, votes last.
const (
	CategoryEnd Category = iota
	CategoryOpen
	CategoryVote
)

func (c Category) String() string {
	switch c {
	case CategoryEnd:
		return "end_of_election"
	case CategoryOpen:
		return "election"
	case CategoryVote:
		return "vote"
	default:
		return "unknown"
	}
}

// CategoryAllocation reports how many of a category's candidate records
// made it into the block being assembled.
type CategoryAllocation struct {
	Category     Category
	PendingBytes uint32
	PendingCount int
	UsedBytes    uint32
	UsedCount    int
}

// AllocationResult is the outcome of fitting mempool candidates into a
// block body under the size and leaf-count budgets.
type AllocationResult struct {
	Allocations    map[Category]*CategoryAllocation
	Included       map[Category][]record.Record
	TotalUsedBytes uint32
	TotalUsedCount int
	Truncated      bool
}

// Ordered returns the included records in final body order: ends, then
// opens, then votes. This is also Merkle-leaf order.
func (r *AllocationResult) Ordered() []record.Record {
	out := make([]record.Record, 0, r.TotalUsedCount)
	out = append(out, r.Included[CategoryEnd]...)
	out = append(out, r.Included[CategoryOpen]...)
	out = append(out, r.Included[CategoryVote]...)
	return out
}

// UtilizationPercentage returns how much of the byte budget the final body
// consumed.
func (r *AllocationResult) UtilizationPercentage(maxBlockSize uint32) float64 {
	if maxBlockSize == 0 {
		return 0
	}
	return (float64(r.TotalUsedBytes) / float64(maxBlockSize)) * 100.0
}

// BlockSpaceAllocator fits mempool candidates into a block body of bounded
// byte size and leaf count, always exhausting a higher-priority category
// before touching the next: every pending EndOfElection is favored over
// Elections, which are favored over Votes. This keeps an election's
// lifecycle (open, vote, close) moving even when a miner's mempool is
// saturated with votes for other elections.
type BlockSpaceAllocator struct {
	maxBlockSize uint32
	maxRecords   int
}

// NewBlockSpaceAllocator creates an allocator bounded by maxBlockSize bytes
// and merkle.MaxLeaves records — the body can never exceed the fixed Merkle
// tree's leaf count regardless of how much byte budget remains.
func NewBlockSpaceAllocator(maxBlockSize uint32) *BlockSpaceAllocator {
	return &BlockSpaceAllocator{maxBlockSize: maxBlockSize, maxRecords: merkle.MaxLeaves}
}

// AllocateBlockSpace consumes ends, then opens, then votes, in that strict
// priority order, until either the byte budget or the leaf-count budget is
// exhausted. Candidates are expected to already be shuffled within their
// category by the caller (mining/miner.go) before being passed in here.
func (a *BlockSpaceAllocator) AllocateBlockSpace(ends, opens, votes []record.Record) *AllocationResult {
	groups := []struct {
		category Category
		records  []record.Record
	}{
		{CategoryEnd, ends},
		{CategoryOpen, opens},
		{CategoryVote, votes},
	}

	result := &AllocationResult{
		Allocations: make(map[Category]*CategoryAllocation, len(groups)),
		Included:    make(map[Category][]record.Record, len(groups)),
	}

	var usedBytes uint32
	var usedCount int
	for _, group := range groups {
		alloc := &CategoryAllocation{Category: group.category}
		var included []record.Record
		for _, r := range group.records {
			size := uint32(len(r.CanonicalJSON()))
			alloc.PendingBytes += size
			alloc.PendingCount++

			if usedCount >= a.maxRecords || usedBytes+size > a.maxBlockSize {
				result.Truncated = true
				continue
			}
			included = append(included, r)
			usedBytes += size
			usedCount++
			alloc.UsedBytes += size
			alloc.UsedCount++
		}
		result.Allocations[group.category] = alloc
		result.Included[group.category] = included
	}

	result.TotalUsedBytes = usedBytes
	result.TotalUsedCount = usedCount
	if result.Truncated {
		log.Debugf("block space allocator truncated candidate set: used %d/%d bytes, %d/%d records",
			usedBytes, a.maxBlockSize, usedCount, a.maxRecords)
	}
	return result
}
