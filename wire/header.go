// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package wire implements the on-the-wire encodings: the 84-byte block
// header, the ordinal-keyed block body, and the length-prefixed typed
// message framing peers exchange over TCP.
package wire

import (
	"encoding/binary"
	"fmt"

	"github.com/monetarium/votechain/chainhash"
)

// HeaderSize is the fixed encoded length of a BlockHeader, in bytes.
const HeaderSize = 84

// BlockHeader is the 84-byte, big-endian-encoded block header. Every field
// commits to something: Index and PrevHash link the block into a chain,
// MerkleRoot commits to the body, Timestamp and Difficulty feed the
// consensus rules, and Nonce is the miner's search variable.
type BlockHeader struct {
	Index      uint32
	PrevHash   chainhash.Hash
	MerkleRoot chainhash.Hash
	Timestamp  int64
	Difficulty uint32
	Nonce      uint32
}

// Bytes packs h into its canonical 84-byte wire form.
func (h *BlockHeader) Bytes() []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.Index)
	copy(buf[4:36], h.PrevHash[:])
	copy(buf[36:68], h.MerkleRoot[:])
	binary.BigEndian.PutUint64(buf[68:76], uint64(h.Timestamp))
	binary.BigEndian.PutUint32(buf[76:80], h.Difficulty)
	binary.BigEndian.PutUint32(buf[80:84], h.Nonce)
	return buf
}

// Hash returns SHA-256 of the header's 84-byte encoding. This is the value
// the proof-of-work predicate and the parent-link both operate on.
func (h *BlockHeader) Hash() chainhash.Hash {
	return chainhash.HashH(h.Bytes())
}

// DecodeHeader unpacks an 84-byte buffer into a BlockHeader.
func DecodeHeader(b []byte) (*BlockHeader, error) {
	if len(b) != HeaderSize {
		return nil, fmt.Errorf("wire: header is %d bytes, want %d", len(b), HeaderSize)
	}
	h := &BlockHeader{
		Index:      binary.BigEndian.Uint32(b[0:4]),
		Timestamp:  int64(binary.BigEndian.Uint64(b[68:76])),
		Difficulty: binary.BigEndian.Uint32(b[76:80]),
		Nonce:      binary.BigEndian.Uint32(b[80:84]),
	}
	copy(h.PrevHash[:], b[4:36])
	copy(h.MerkleRoot[:], b[36:68])
	return h, nil
}
