// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package netsync implements the peer-to-peer transport of spec.md
// §4.5/§5: length-prefixed framed messages over TCP, the INIT handshake,
// block/vote/election relay with duplicate suppression, and longest-chain
// header exchange.
package netsync

import (
	"github.com/decred/slog"

	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

var log = slog.Disabled

// UseLogger uses a specified Logger to output package logging info.
func UseLogger(logger slog.Logger) {
	log = logger
}

// PeerNotifier lets other subsystems — the mining loop, a client request
// accepted directly by the node — announce a locally-originated block or
// record to the network without depending on the concrete Server type.
type PeerNotifier interface {
	// AnnounceBlock relays a newly mined or accepted block to every
	// connected peer.
	AnnounceBlock(b *wire.Block)

	// AnnounceVote relays a newly accepted vote to every connected peer.
	AnnounceVote(v *record.Vote)

	// AnnounceElection relays a newly accepted election to every
	// connected peer.
	AnnounceElection(e *record.Election)
}
