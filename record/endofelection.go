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

// EndOfElection closes an election and commits its canonical tally. Only a
// miner synthesizes these; every other node re-derives the tally to check
// one before accepting it.
type EndOfElection struct {
	ElectionHash chainhash.Hash
	Results      map[string]int // choice -> vote count; 0-count choices may be omitted
}

// endOfElectionWire pins field order: type, election_hash, results.
type endOfElectionWire struct {
	Type         string         `json:"type"`
	ElectionHash string         `json:"election_hash"`
	Results      map[string]int `json:"results"`
}

func (e *EndOfElection) toWire() endOfElectionWire {
	return endOfElectionWire{
		Type:         string(KindEndOfElection),
		ElectionHash: base64.StdEncoding.EncodeToString(e.ElectionHash[:]),
		Results:      e.Results,
	}
}

// Kind implements Record.
func (e *EndOfElection) Kind() Kind { return KindEndOfElection }

// CanonicalJSON implements Record. encoding/json sorts map keys when
// marshaling, so the results object is deterministic regardless of the
// order Results was built in.
func (e *EndOfElection) CanonicalJSON() []byte {
	b, err := json.Marshal(e.toWire())
	if err != nil {
		panic(err)
	}
	return b
}

// Hash implements Record.
func (e *EndOfElection) Hash() chainhash.Hash {
	return chainhash.HashH(e.CanonicalJSON())
}

// DecodeEndOfElection parses an EndOfElection from its canonical JSON form.
func DecodeEndOfElection(raw []byte) (*EndOfElection, error) {
	var w endOfElectionWire
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("record: invalid end_of_election: %w", err)
	}
	if Kind(w.Type) != KindEndOfElection {
		return nil, fmt.Errorf("record: expected end_of_election, got %q", w.Type)
	}
	hashBytes, err := base64.StdEncoding.DecodeString(w.ElectionHash)
	if err != nil {
		return nil, fmt.Errorf("record: invalid end_of_election election_hash: %w", err)
	}
	hash, err := chainhash.NewHash(hashBytes)
	if err != nil {
		return nil, fmt.Errorf("record: invalid end_of_election election_hash: %w", err)
	}
	results := w.Results
	if results == nil {
		results = map[string]int{}
	}
	return &EndOfElection{
		ElectionHash: hash,
		Results:      results,
	}, nil
}
