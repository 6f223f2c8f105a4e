// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/merkle"
	"github.com/monetarium/votechain/record"
)

// MaxBlockSize bounds the encoded size of a block body, in bytes.
const MaxBlockSize = 1 << 20 // 1 MiB

// Block is a header paired with its body. Body order is significant: the
// ordinal position of a record is its Merkle leaf index, not an incidental
// encoding detail.
type Block struct {
	Header BlockHeader
	Body   []record.Record
}

// LeafHashes returns the body's record hashes in body order, the same
// sequence the header's Merkle root was computed over.
func (b *Block) LeafHashes() []chainhash.Hash {
	leaves := make([]chainhash.Hash, len(b.Body))
	for i, r := range b.Body {
		leaves[i] = r.Hash()
	}
	return leaves
}

// ComputeMerkleRoot recomputes the root the body's records commit to,
// independent of whatever is currently stored in b.Header.MerkleRoot.
func (b *Block) ComputeMerkleRoot() (chainhash.Hash, error) {
	return merkle.Root(b.LeafHashes())
}

// EncodeBody renders the body as the ordinal-keyed JSON object the wire
// format requires: {"0": <record>, "1": <record>, ...}. JSON object key
// order is not semantically significant here — decoding reconstructs body
// order from the parsed integer keys, not from byte position.
func (b *Block) EncodeBody() ([]byte, error) {
	obj := make(map[string]json.RawMessage, len(b.Body))
	for i, r := range b.Body {
		obj[strconv.Itoa(i)] = json.RawMessage(r.CanonicalJSON())
	}
	return json.Marshal(obj)
}

// DecodeBody parses a block body from its ordinal-keyed JSON object form,
// reconstructing body order from the integer value of each key rather than
// from the byte order the keys happen to appear in.
func DecodeBody(raw []byte) ([]record.Record, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, fmt.Errorf("wire: malformed block body: %w", err)
	}
	if len(obj) == 0 {
		return nil, nil
	}
	if len(obj) > merkle.MaxLeaves {
		return nil, fmt.Errorf("wire: block body has %d records, exceeds max of %d", len(obj), merkle.MaxLeaves)
	}

	indices := make([]int, 0, len(obj))
	for k := range obj {
		idx, err := strconv.Atoi(k)
		if err != nil || idx < 0 {
			return nil, fmt.Errorf("wire: block body has non-ordinal key %q", k)
		}
		indices = append(indices, idx)
	}

	records := make([]record.Record, len(indices))
	for _, idx := range indices {
		if idx >= len(indices) {
			return nil, fmt.Errorf("wire: block body ordinals are not contiguous from 0")
		}
		raw := obj[strconv.Itoa(idx)]
		rec, err := record.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("wire: block body record %d: %w", idx, err)
		}
		records[idx] = rec
	}
	return records, nil
}

// Encode renders the block as header bytes followed by the body's JSON
// encoding, matching the BLOCK message payload (§4.5).
func (b *Block) Encode() ([]byte, error) {
	body, err := b.EncodeBody()
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, HeaderSize+len(body))
	out = append(out, b.Header.Bytes()...)
	out = append(out, body...)
	return out, nil
}

// DecodeBlock parses a BLOCK message payload: an 84-byte header followed by
// the body's ordinal-keyed JSON object.
func DecodeBlock(raw []byte) (*Block, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("wire: block payload is %d bytes, shorter than header", len(raw))
	}
	header, err := DecodeHeader(raw[:HeaderSize])
	if err != nil {
		return nil, err
	}
	body, err := DecodeBody(raw[HeaderSize:])
	if err != nil {
		return nil, err
	}
	return &Block{Header: *header, Body: body}, nil
}
