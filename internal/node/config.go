// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

// Config is everything needed to stand up a Node, whether as a full
// mining/relay node or as a header-only light node.
type Config struct {
	// ListenAddr is the address to accept inbound peer connections on,
	// e.g. ":8333". Empty means outbound-only — the normal setting for a
	// light node, and an option for a full node sitting behind NAT.
	ListenAddr string

	// Seeds are peer addresses dialed as permanent outbound connections
	// at startup. A light node also draws its GET_ELECTION_RES query
	// sample from this list, per spec.md §9's Open Question 5 decision
	// to bootstrap from a fixed seed list rather than a gossiped peer
	// table.
	Seeds []string

	// DataDir is unused by the in-memory chain store today but is kept as
	// a configuration seam: spec.md names no persistence requirement, and
	// the teacher's own node takes a DataDir for exactly this purpose.
	DataDir string

	// LogDir holds the rotated node log file. Empty disables file
	// logging; stdout logging is always on.
	LogDir string

	// Light, when true, starts the node as a header-only light client
	// (lightnode.Node) instead of a full mining/relay node.
	Light bool

	// MaxBlockSize bounds a mined candidate block's encoded body size.
	// Zero means wire.MaxBlockSize.
	MaxBlockSize uint32
}
