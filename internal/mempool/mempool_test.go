// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package mempool

import (
	"testing"

	"github.com/monetarium/votechain/record"
)

func sampleElection() *record.Election {
	return &record.Election{Name: "E", Choices: []string{"A"}, PublicKeys: [][]byte{{1}}, EndTime: 1}
}

func TestPoolAddGetRemove(t *testing.T) {
	p := newPool()
	e := sampleElection()
	p.Add(e)

	entry, ok := p.Get(e.Hash())
	if !ok || !entry.New {
		t.Fatalf("expected a new entry after Add")
	}
	p.Remove(e.Hash())
	if p.Has(e.Hash()) {
		t.Fatalf("expected entry to be gone after Remove")
	}
}

func TestMarkCommittedAndMarkAllNew(t *testing.T) {
	p := newPool()
	e := sampleElection()
	p.Add(e)
	p.MarkCommitted(e.Hash())

	entry, _ := p.Get(e.Hash())
	if entry.New {
		t.Fatalf("expected New=false after MarkCommitted")
	}
	if len(p.New()) != 0 {
		t.Fatalf("expected no New entries after commit")
	}

	p.MarkAllNew()
	if len(p.New()) != 1 {
		t.Fatalf("expected one New entry after MarkAllNew (reorg reset)")
	}
}

func TestRemoveDiscardsOnlyTargetedEntry(t *testing.T) {
	p := newPool()
	e1 := &record.Election{Name: "E1", Choices: []string{"A"}, PublicKeys: [][]byte{{1}}, EndTime: 1}
	e2 := &record.Election{Name: "E2", Choices: []string{"A"}, PublicKeys: [][]byte{{1}}, EndTime: 1}
	p.Add(e1)
	p.Add(e2)

	p.Remove(e1.Hash())
	if p.Has(e1.Hash()) || !p.Has(e2.Hash()) {
		t.Fatalf("expected only e1 to be removed")
	}
}

func TestPoolsRoutesByKind(t *testing.T) {
	pools := NewPools()
	e := sampleElection()
	v := &record.Vote{ElectionHash: e.Hash(), Choice: "A", PublicKey: []byte{1}, Signature: []byte{2}}
	end := &record.EndOfElection{ElectionHash: e.Hash(), Results: map[string]int{"A": 1}}

	pools.Add(e)
	pools.Add(v)
	pools.Add(end)

	if !pools.Opens.Has(e.Hash()) {
		t.Fatalf("expected election routed to Opens")
	}
	if !pools.Votes.Has(v.Hash()) {
		t.Fatalf("expected vote routed to Votes")
	}
	if !pools.Ends.Has(end.Hash()) {
		t.Fatalf("expected end_of_election routed to Ends")
	}
}
