// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package record

import (
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/votecrypto"
)

// Vote assigns one eligible voter to one choice in one election, signed by
// the voter's private key over electionHash ∥ utf8(choice).
type Vote struct {
	ElectionHash chainhash.Hash
	Choice       string
	PublicKey    []byte // DER-encoded SubjectPublicKeyInfo
	Signature    []byte
}

// voteWire pins field order: type, election_hash, choice, public_key,
// signature.
type voteWire struct {
	Type         string `json:"type"`
	ElectionHash string `json:"election_hash"`
	Choice       string `json:"choice"`
	PublicKey    string `json:"public_key"`
	Signature    string `json:"signature"`
}

func (v *Vote) toWire() voteWire {
	return voteWire{
		Type:         string(KindVote),
		ElectionHash: base64.StdEncoding.EncodeToString(v.ElectionHash[:]),
		Choice:       v.Choice,
		PublicKey:    base64.StdEncoding.EncodeToString(v.PublicKey),
		Signature:    base64.StdEncoding.EncodeToString(v.Signature),
	}
}

// Kind implements Record.
func (v *Vote) Kind() Kind { return KindVote }

// CanonicalJSON implements Record.
func (v *Vote) CanonicalJSON() []byte {
	b, err := json.Marshal(v.toWire())
	if err != nil {
		panic(err)
	}
	return b
}

// Hash implements Record.
func (v *Vote) Hash() chainhash.Hash {
	return chainhash.HashH(v.CanonicalJSON())
}

// CheckSignature verifies the vote's signature against the message the
// spec mandates: electionHash ∥ utf8(choice).
func (v *Vote) CheckSignature() bool {
	pub, err := votecrypto.ParsePublicKey(v.PublicKey)
	if err != nil {
		return false
	}
	msg := votecrypto.VoteMessage(v.ElectionHash, v.Choice)
	return votecrypto.Verify(pub, msg, v.Signature)
}

// DecodeVote parses a Vote from its canonical JSON form.
func DecodeVote(raw []byte) (*Vote, error) {
	var w voteWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("record: invalid vote: %w", err)
	}
	if Kind(w.Type) != KindVote {
		return nil, fmt.Errorf("record: expected vote, got %q", w.Type)
	}
	electionHashBytes, err := base64.StdEncoding.DecodeString(w.ElectionHash)
	if err != nil {
		return nil, fmt.Errorf("record: invalid vote election_hash: %w", err)
	}
	electionHash, err := chainhash.NewHash(electionHashBytes)
	if err != nil {
		return nil, fmt.Errorf("record: invalid vote election_hash: %w", err)
	}
	pubKey, err := base64.StdEncoding.DecodeString(w.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("record: invalid vote public_key: %w", err)
	}
	sig, err := base64.StdEncoding.DecodeString(w.Signature)
	if err != nil {
		return nil, fmt.Errorf("record: invalid vote signature: %w", err)
	}
	return &Vote{
		ElectionHash: electionHash,
		Choice:       w.Choice,
		PublicKey:    pubKey,
		Signature:    sig,
	}, nil
}
