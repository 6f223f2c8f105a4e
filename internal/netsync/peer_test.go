// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"fmt"
	"net"
	"testing"
)

func newTestPeer(t *testing.T) *Peer {
	t.Helper()
	conn, other := net.Pipe()
	t.Cleanup(func() { other.Close() })
	return newPeer(conn)
}

func TestReportErrorInvalidRecordNoPenalty(t *testing.T) {
	p := newTestPeer(t)

	p.reportError(invalidRecordErr(fmt.Errorf("choice not on ballot")))

	if got := p.suspectStrikes.Load(); got != 0 {
		t.Fatalf("invalid record must not add a strike, got %d", got)
	}
	if len(p.outbound) != 0 {
		t.Fatalf("invalid record must not enqueue an ERROR_RESPONSE, got %d queued", len(p.outbound))
	}
	select {
	case <-p.quit:
		t.Fatal("invalid record must not disconnect the peer")
	default:
	}
}

func TestReportErrorMalformedFrameStrikesAndResets(t *testing.T) {
	p := newTestPeer(t)

	p.reportError(malformedFrameErr(fmt.Errorf("undecodable json")))

	if got := p.suspectStrikes.Load(); got != 1 {
		t.Fatalf("malformed frame must add one strike, got %d", got)
	}
	if len(p.outbound) != 1 {
		t.Fatalf("malformed frame must enqueue an ERROR_RESPONSE, got %d queued", len(p.outbound))
	}
	<-p.outbound

	select {
	case <-p.quit:
		t.Fatal("a single malformed frame must not disconnect the peer")
	default:
	}

	p.clearSuspect()
	if got := p.suspectStrikes.Load(); got != 0 {
		t.Fatalf("clearSuspect must reset the strike count, got %d", got)
	}
}

func TestReportErrorMalformedFrameDisconnectsAfterStrikeLimit(t *testing.T) {
	p := newTestPeer(t)

	for i := 0; i < maxSuspectStrikes; i++ {
		p.reportError(malformedFrameErr(fmt.Errorf("bad frame %d", i)))
		<-p.outbound
	}

	select {
	case <-p.quit:
	default:
		t.Fatalf("peer must be disconnected after %d consecutive malformed-frame strikes", maxSuspectStrikes)
	}
}

func TestReportErrorInvalidBlockMarksBadAndDisconnects(t *testing.T) {
	p := newTestPeer(t)

	p.reportError(invalidBlockErr(fmt.Errorf("insufficient proof of work")))

	if !p.IsBad() {
		t.Fatal("invalid block must mark the peer bad")
	}
	if len(p.outbound) != 1 {
		t.Fatalf("invalid block must enqueue an ERROR_RESPONSE, got %d queued", len(p.outbound))
	}
	select {
	case <-p.quit:
	default:
		t.Fatal("invalid block must disconnect the peer immediately")
	}
}

func TestReportErrorInternalNoPenalty(t *testing.T) {
	p := newTestPeer(t)

	p.reportError(internalErr(fmt.Errorf("failed to re-encode a stored block")))

	if got := p.suspectStrikes.Load(); got != 0 {
		t.Fatalf("an internal error must not add a strike, got %d", got)
	}
	if len(p.outbound) != 0 {
		t.Fatalf("an internal error must not enqueue an ERROR_RESPONSE, got %d queued", len(p.outbound))
	}
	if p.IsBad() {
		t.Fatal("an internal error must not mark the peer bad")
	}
}

func TestReportErrorUnclassifiedDefaultsToMalformedFrame(t *testing.T) {
	p := newTestPeer(t)

	p.reportError(fmt.Errorf("some handler error with no classification"))

	if got := p.suspectStrikes.Load(); got != 1 {
		t.Fatalf("an unclassified error must default to a malformed-frame strike, got %d", got)
	}
	if p.IsBad() {
		t.Fatal("an unclassified error must not mark the peer bad")
	}
}
