// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package record implements the three committed record kinds — Election,
// Vote, and EndOfElection — as a tagged variant with a single canonical-JSON
// encoding and hash per kind, replacing the reflection-based class dispatch
// of the system this node is modeled on with a parse-by-type-tag switch.
package record

import (
	"encoding/json"
	"fmt"

	"github.com/monetarium/votechain/chainhash"
)

// Kind identifies which of the three record variants a Record is.
type Kind string

// The three record kinds, matching the "type" field on the wire.
const (
	KindElection      Kind = "election"
	KindVote          Kind = "vote"
	KindEndOfElection Kind = "end_of_election"
)

// Record is the tagged-variant interface implemented by Election, Vote, and
// EndOfElection.
type Record interface {
	// Kind reports which variant this record is.
	Kind() Kind

	// CanonicalJSON returns the stable-key-order JSON encoding whose hash is
	// the record's identity.
	CanonicalJSON() []byte

	// Hash returns the SHA-256 digest of CanonicalJSON.
	Hash() chainhash.Hash
}

type envelope struct {
	Type string `json:"type"`
}

// Parse reads the "type" tag out of raw and constructs the matching Record
// variant. raw may be either a JSON object or (for wire compatibility with
// single-record messages) a bare JSON-encoded object without surrounding
// whitespace; both decode the same way through encoding/json.
func Parse(raw []byte) (Record, error) {
	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("record: malformed envelope: %w", err)
	}
	switch Kind(env.Type) {
	case KindElection:
		return DecodeElection(raw)
	case KindVote:
		return DecodeVote(raw)
	case KindEndOfElection:
		return DecodeEndOfElection(raw)
	default:
		return nil, fmt.Errorf("record: unknown record type %q", env.Type)
	}
}
