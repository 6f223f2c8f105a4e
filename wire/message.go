// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/merkle"
)

// MessageType identifies the kind of payload carried by a frame.
type MessageType uint16

// The twelve message types peers exchange, matching §4.5's numbering.
const (
	MsgInit             MessageType = 1
	MsgVote             MessageType = 2
	MsgBlock            MessageType = 3
	MsgElection         MessageType = 4
	MsgLongestChain     MessageType = 5
	MsgGetLongestChain  MessageType = 6
	MsgGetBlock         MessageType = 7
	MsgGetElectionRes   MessageType = 8
	MsgElectionRes      MessageType = 9
	MsgErrorResponse    MessageType = 10
	MsgPing             MessageType = 11
	MsgPong             MessageType = 12
)

func (t MessageType) String() string {
	switch t {
	case MsgInit:
		return "INIT"
	case MsgVote:
		return "VOTE"
	case MsgBlock:
		return "BLOCK"
	case MsgElection:
		return "ELECTION"
	case MsgLongestChain:
		return "LONGEST_CHAIN"
	case MsgGetLongestChain:
		return "GET_LONGEST_CHAIN"
	case MsgGetBlock:
		return "GET_BLOCK"
	case MsgGetElectionRes:
		return "GET_ELECTION_RES"
	case MsgElectionRes:
		return "ELECTION_RES"
	case MsgErrorResponse:
		return "ERROR_RESPONSE"
	case MsgPing:
		return "PING"
	case MsgPong:
		return "PONG"
	default:
		return fmt.Sprintf("MessageType(%d)", uint16(t))
	}
}

// typeHeaderSize is the 2-byte type tag every payload begins with.
const typeHeaderSize = 2

// maxFrameBody is the largest a type tag plus payload may be: the length
// prefix is 2 bytes big-endian, so 0xFFFF is the hard ceiling regardless of
// how large an individual message's logical content might otherwise be.
const maxFrameBody = 0xFFFF

// Frame is one decoded length-prefixed message: a type tag and the raw
// bytes following it.
type Frame struct {
	Type    MessageType
	Payload []byte
}

// WriteFrame writes msgType and payload as len(2B) ∥ type(2B) ∥ payload.
func WriteFrame(w io.Writer, msgType MessageType, payload []byte) error {
	if typeHeaderSize+len(payload) > maxFrameBody {
		return fmt.Errorf("wire: %s payload of %d bytes exceeds frame limit", msgType, len(payload))
	}
	body := make([]byte, typeHeaderSize+len(payload))
	binary.BigEndian.PutUint16(body[:typeHeaderSize], uint16(msgType))
	copy(body[typeHeaderSize:], payload)

	var lenBuf [2]byte
	binary.BigEndian.PutUint16(lenBuf[:], uint16(len(body)))
	if _, err := w.Write(lenBuf[:]); err != nil {
		return err
	}
	_, err := w.Write(body)
	return err
}

// ReadFrame reads one length-prefixed frame from r, blocking until the full
// frame (length prefix plus body) has arrived. A partial read at the
// transport layer is handled by io.ReadFull, which keeps reading until
// either the buffer fills or an error occurs — the equivalent of buffering
// a partial receive across repeated recv calls.
func ReadFrame(r io.Reader) (*Frame, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint16(lenBuf[:])
	if n < typeHeaderSize {
		return nil, fmt.Errorf("wire: frame of %d bytes too short for a type tag", n)
	}
	body := make([]byte, n)
	if _, err := io.ReadFull(r, body); err != nil {
		return nil, err
	}
	return &Frame{
		Type:    MessageType(binary.BigEndian.Uint16(body[:typeHeaderSize])),
		Payload: body[typeHeaderSize:],
	}, nil
}

// EncodeInit packs the INIT payload: the sender's listen port.
func EncodeInit(port uint16) []byte {
	buf := make([]byte, 2)
	binary.BigEndian.PutUint16(buf, port)
	return buf
}

// DecodeInit unpacks an INIT payload.
func DecodeInit(payload []byte) (uint16, error) {
	if len(payload) != 2 {
		return 0, fmt.Errorf("wire: INIT payload is %d bytes, want 2", len(payload))
	}
	return binary.BigEndian.Uint16(payload), nil
}

// EncodeGetLongestChain packs the GET_LONGEST_CHAIN payload: the index to
// start returning headers from.
func EncodeGetLongestChain(startIndex uint32) []byte {
	buf := make([]byte, 4)
	binary.BigEndian.PutUint32(buf, startIndex)
	return buf
}

// DecodeGetLongestChain unpacks a GET_LONGEST_CHAIN payload.
func DecodeGetLongestChain(payload []byte) (uint32, error) {
	if len(payload) != 4 {
		return 0, fmt.Errorf("wire: GET_LONGEST_CHAIN payload is %d bytes, want 4", len(payload))
	}
	return binary.BigEndian.Uint32(payload), nil
}

// EncodeLongestChain packs a LONGEST_CHAIN payload: concatenated 84-byte
// headers, newest first.
func EncodeLongestChain(headers []*BlockHeader) []byte {
	out := make([]byte, 0, len(headers)*HeaderSize)
	for _, h := range headers {
		out = append(out, h.Bytes()...)
	}
	return out
}

// DecodeLongestChain unpacks a LONGEST_CHAIN payload into its headers,
// newest first.
func DecodeLongestChain(payload []byte) ([]*BlockHeader, error) {
	if len(payload)%HeaderSize != 0 {
		return nil, fmt.Errorf("wire: LONGEST_CHAIN payload of %d bytes is not a multiple of %d", len(payload), HeaderSize)
	}
	n := len(payload) / HeaderSize
	headers := make([]*BlockHeader, n)
	for i := 0; i < n; i++ {
		h, err := DecodeHeader(payload[i*HeaderSize : (i+1)*HeaderSize])
		if err != nil {
			return nil, err
		}
		headers[i] = h
	}
	return headers, nil
}

// EncodeGetBlock packs the GET_BLOCK payload: the requested header hash.
func EncodeGetBlock(hash chainhash.Hash) []byte {
	return hash.Bytes()
}

// DecodeGetBlock unpacks a GET_BLOCK payload.
func DecodeGetBlock(payload []byte) (chainhash.Hash, error) {
	return chainhash.NewHash(payload)
}

// EncodeGetElectionRes packs the GET_ELECTION_RES payload: the election
// hash being queried.
func EncodeGetElectionRes(electionHash chainhash.Hash) []byte {
	return electionHash.Bytes()
}

// DecodeGetElectionRes unpacks a GET_ELECTION_RES payload.
func DecodeGetElectionRes(payload []byte) (chainhash.Hash, error) {
	return chainhash.NewHash(payload)
}

// ProofStep is one entry of a Merkle inclusion proof in its JSON wire form.
// The sibling digest is a chainhash.Hash, which encoding/json renders as an
// array of 32 numbers.
type ProofStep struct {
	Sibling       chainhash.Hash `json:"sibling"`
	SiblingIsLeft bool           `json:"sibling_is_left"`
}

// MerkleProof ties a leaf to the block header whose root it proves
// inclusion under, so a light node can verify it without the block body.
type MerkleProof struct {
	BlockHash chainhash.Hash `json:"block_hash"`
	LeafIndex int            `json:"leaf_index"`
	Steps     []ProofStep    `json:"steps"`
}

// NewMerkleProof converts a merkle.Tree proof into its wire form.
func NewMerkleProof(blockHash chainhash.Hash, leafIndex int, steps []merkle.Step) MerkleProof {
	wireSteps := make([]ProofStep, len(steps))
	for i, s := range steps {
		wireSteps[i] = ProofStep{Sibling: s.Sibling, SiblingIsLeft: s.SiblingIsLeft}
	}
	return MerkleProof{BlockHash: blockHash, LeafIndex: leafIndex, Steps: wireSteps}
}

// Steps converts the wire proof back into merkle.Step form for
// merkle.VerifyProof.
func (p MerkleProof) Steps() []merkle.Step {
	steps := make([]merkle.Step, len(p.Steps))
	for i, s := range p.Steps {
		steps[i] = merkle.Step{Sibling: s.Sibling, SiblingIsLeft: s.SiblingIsLeft}
	}
	return steps
}

// VoteProof pairs a committed vote's canonical JSON with the Merkle proof
// that it is included in its claimed block.
type VoteProof struct {
	Vote  json.RawMessage `json:"vote"`
	Proof MerkleProof     `json:"proof"`
}

// EndProof pairs a committed EndOfElection's canonical JSON with its
// Merkle inclusion proof.
type EndProof struct {
	End   json.RawMessage `json:"end"`
	Proof MerkleProof     `json:"proof"`
}

// ElectionResult is the ELECTION_RES JSON payload (after the 32-byte
// election hash): the height the election opened at, every committed vote
// found so far with its proof, and — once the election has closed — the
// EndOfElection and its proof.
type ElectionResult struct {
	Start int         `json:"start"`
	Votes []VoteProof `json:"votes"`
	End   *EndProof   `json:"end,omitempty"`
}

// EncodeElectionRes packs an ELECTION_RES payload: election_hash(32) ∥
// JSON(result).
func EncodeElectionRes(electionHash chainhash.Hash, result ElectionResult) ([]byte, error) {
	body, err := json.Marshal(result)
	if err != nil {
		return nil, err
	}
	out := make([]byte, 0, chainhash.HashSize+len(body))
	out = append(out, electionHash.Bytes()...)
	out = append(out, body...)
	return out, nil
}

// DecodeElectionRes unpacks an ELECTION_RES payload.
func DecodeElectionRes(payload []byte) (chainhash.Hash, ElectionResult, error) {
	var result ElectionResult
	if len(payload) < chainhash.HashSize {
		return chainhash.Hash{}, result, fmt.Errorf("wire: ELECTION_RES payload shorter than an election hash")
	}
	electionHash, err := chainhash.NewHash(payload[:chainhash.HashSize])
	if err != nil {
		return chainhash.Hash{}, result, err
	}
	if err := json.Unmarshal(payload[chainhash.HashSize:], &result); err != nil {
		return chainhash.Hash{}, result, fmt.Errorf("wire: malformed ELECTION_RES body: %w", err)
	}
	return electionHash, result, nil
}

// EncodeErrorResponse packs an ERROR_RESPONSE payload: a UTF-8 message.
func EncodeErrorResponse(message string) []byte {
	return []byte(message)
}

// DecodeErrorResponse unpacks an ERROR_RESPONSE payload.
func DecodeErrorResponse(payload []byte) string {
	return string(payload)
}
