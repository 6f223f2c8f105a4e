// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/monetarium/votechain/chainhash"
)

// Election opens a vote with a fixed voter set, a fixed set of choices, and
// a deadline. Its identity (Hash) is the SHA-256 of its canonical JSON form
// and never changes once constructed.
type Election struct {
	Name       string
	Choices    []string
	PublicKeys [][]byte // DER-encoded SubjectPublicKeyInfo, one per eligible voter
	EndTime    int64    // UNIX seconds
}

// electionWire is the exact on-the-wire shape, field order pinned by JSON
// struct-tag declaration order: type, name, choices, public_keys, end_time.
type electionWire struct {
	Type       string   `json:"type"`
	Name       string   `json:"name"`
	Choices    []string `json:"choices"`
	PublicKeys []string `json:"public_keys"`
	EndTime    int64    `json:"end_time"`
}

func (e *Election) toWire() electionWire {
	keys := make([]string, len(e.PublicKeys))
	for i, k := range e.PublicKeys {
		keys[i] = base64.StdEncoding.EncodeToString(k)
	}
	return electionWire{
		Type:       string(KindElection),
		Name:       e.Name,
		Choices:    append([]string(nil), e.Choices...),
		PublicKeys: keys,
		EndTime:    e.EndTime,
	}
}

// Kind implements Record.
func (e *Election) Kind() Kind { return KindElection }

// CanonicalJSON implements Record.
func (e *Election) CanonicalJSON() []byte {
	b, err := json.Marshal(e.toWire())
	if err != nil {
		// toWire only contains marshalable primitives; this cannot fail.
		panic(err)
	}
	return b
}

// Hash implements Record.
func (e *Election) Hash() chainhash.Hash {
	return chainhash.HashH(e.CanonicalJSON())
}

// HasChoice reports whether choice is one of the election's choices.
func (e *Election) HasChoice(choice string) bool {
	for _, c := range e.Choices {
		if c == choice {
			return true
		}
	}
	return false
}

// IsEligible reports whether publicKey (DER bytes) is in the eligible set.
func (e *Election) IsEligible(publicKey []byte) bool {
	for _, k := range e.PublicKeys {
		if string(k) == string(publicKey) {
			return true
		}
	}
	return false
}

// DecodeElection parses an Election from its canonical JSON form.
func DecodeElection(raw []byte) (*Election, error) {
	var w electionWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("record: invalid election: %w", err)
	}
	if Kind(w.Type) != KindElection {
		return nil, fmt.Errorf("record: expected election, got %q", w.Type)
	}
	keys := make([][]byte, len(w.PublicKeys))
	for i, s := range w.PublicKeys {
		k, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return nil, fmt.Errorf("record: invalid election public key %d: %w", i, err)
		}
		keys[i] = k
	}
	return &Election{
		Name:       w.Name,
		Choices:    w.Choices,
		PublicKeys: keys,
		EndTime:    w.EndTime,
	}, nil
}
