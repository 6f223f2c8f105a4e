// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package chainhash provides the fixed-size digest type shared by every
// hashed object in the chain: record hashes, block header hashes, and
// Merkle nodes are all SHA-256 digests represented the same way.
package chainhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// HashSize is the number of bytes in a hash produced by this package.
const HashSize = 32

// Hash is a SHA-256 digest. It is a plain array so it can be used as a map
// key and compared with ==.
type Hash [HashSize]byte

// ZeroHash is the all-zero digest used to pad Merkle leaves.
var ZeroHash Hash

// String returns the hash as a hex string, most-significant byte first.
func (h Hash) String() string {
	return hex.EncodeToString(h[:])
}

// IsZero reports whether h is the all-zero digest.
func (h Hash) IsZero() bool {
	return h == ZeroHash
}

// Bytes returns a copy of the hash as a byte slice.
func (h Hash) Bytes() []byte {
	b := make([]byte, HashSize)
	copy(b, h[:])
	return b
}

// HashH returns the SHA-256 digest of b.
func HashH(b []byte) Hash {
	return Hash(sha256.Sum256(b))
}

// HashB returns the SHA-256 digest of b as a byte slice.
func HashB(b []byte) []byte {
	h := HashH(b)
	return h[:]
}

// NewHash constructs a Hash from a byte slice, which must be exactly
// HashSize bytes long.
func NewHash(b []byte) (Hash, error) {
	var h Hash
	if len(b) != HashSize {
		return h, fmt.Errorf("invalid hash length %d, expected %d", len(b), HashSize)
	}
	copy(h[:], b)
	return h, nil
}
