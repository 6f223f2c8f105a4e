// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"strconv"
	"strings"

	"github.com/monetarium/votechain/wire"
)

// sendHandshake sends the INIT message every newly established connection
// — inbound or outbound — begins with: the sender's own listen port, which
// the remote end records on its Peer (spec.md §4.5). The port is not
// relayed to other peers; discovery is seed-list only.
// A node with no listen address (a light node, or a full node configured
// outbound-only) advertises port 0.
func (s *Server) sendHandshake(p *Peer) {
	p.send(wire.MsgInit, wire.EncodeInit(s.listenPort()))
}

// requestLongestChain asks a freshly-dialed peer for its view of the
// best chain from just past our own tip onward (spec.md §4.5: an
// outbound connection "requests the remote's longest chain" once the
// handshake completes).
func (s *Server) requestLongestChain(p *Peer) {
	var startIndex uint32
	if best := s.store.Best(); best != nil {
		startIndex = best.Block.Header.Index + 1
	}
	p.send(wire.MsgGetLongestChain, wire.EncodeGetLongestChain(startIndex))
}

func (s *Server) listenPort() uint16 {
	if s.cfg.ListenAddr == "" {
		return 0
	}
	_, portStr, ok := strings.Cut(s.cfg.ListenAddr, ":")
	if !ok {
		return 0
	}
	port, err := strconv.ParseUint(portStr, 10, 16)
	if err != nil {
		return 0
	}
	return uint16(port)
}
