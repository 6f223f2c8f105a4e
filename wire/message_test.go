// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"encoding/json"
	"io"
	"testing"

	"github.com/monetarium/votechain/chainhash"
)

func TestFrameRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	payload := []byte("hello")
	if err := WriteFrame(&buf, MsgVote, payload); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	frame, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame: %v", err)
	}
	if frame.Type != MsgVote {
		t.Fatalf("got type %v, want %v", frame.Type, MsgVote)
	}
	if !bytes.Equal(frame.Payload, payload) {
		t.Fatalf("got payload %q, want %q", frame.Payload, payload)
	}
}

func TestFramePartialReadBuffersAcrossReads(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, MsgPing, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	full := buf.Bytes()

	r := io.MultiReader(bytes.NewReader(full[:1]), bytes.NewReader(full[1:]))
	frame, err := ReadFrame(r)
	if err != nil {
		t.Fatalf("ReadFrame across split reads: %v", err)
	}
	if frame.Type != MsgPing {
		t.Fatalf("got type %v, want %v", frame.Type, MsgPing)
	}
}

func TestMultipleFramesInSequence(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteFrame(&buf, MsgPing, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}
	if err := WriteFrame(&buf, MsgPong, nil); err != nil {
		t.Fatalf("WriteFrame: %v", err)
	}

	f1, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame 1: %v", err)
	}
	f2, err := ReadFrame(&buf)
	if err != nil {
		t.Fatalf("ReadFrame 2: %v", err)
	}
	if f1.Type != MsgPing || f2.Type != MsgPong {
		t.Fatalf("got %v, %v; want PING, PONG", f1.Type, f2.Type)
	}
}

func TestInitPayloadRoundTrip(t *testing.T) {
	port, err := DecodeInit(EncodeInit(4040))
	if err != nil {
		t.Fatalf("DecodeInit: %v", err)
	}
	if port != 4040 {
		t.Fatalf("got port %d, want 4040", port)
	}
}

func TestGetLongestChainRoundTrip(t *testing.T) {
	idx, err := DecodeGetLongestChain(EncodeGetLongestChain(17))
	if err != nil {
		t.Fatalf("DecodeGetLongestChain: %v", err)
	}
	if idx != 17 {
		t.Fatalf("got %d, want 17", idx)
	}
}

func TestLongestChainRoundTripPreservesOrder(t *testing.T) {
	headers := []*BlockHeader{
		{Index: 2, Difficulty: 128},
		{Index: 1, Difficulty: 128},
		{Index: 0, Difficulty: 128},
	}
	payload := EncodeLongestChain(headers)
	decoded, err := DecodeLongestChain(payload)
	if err != nil {
		t.Fatalf("DecodeLongestChain: %v", err)
	}
	if len(decoded) != len(headers) {
		t.Fatalf("got %d headers, want %d", len(decoded), len(headers))
	}
	for i := range headers {
		if decoded[i].Index != headers[i].Index {
			t.Fatalf("header %d out of order: got index %d, want %d", i, decoded[i].Index, headers[i].Index)
		}
	}
}

func TestGetBlockRoundTrip(t *testing.T) {
	hash := chainhash.HashH([]byte("target"))
	got, err := DecodeGetBlock(EncodeGetBlock(hash))
	if err != nil {
		t.Fatalf("DecodeGetBlock: %v", err)
	}
	if got != hash {
		t.Fatalf("hash mismatch after round trip")
	}
}

func TestElectionResRoundTrip(t *testing.T) {
	electionHash := chainhash.HashH([]byte("election"))
	result := ElectionResult{
		Start: 3,
		Votes: []VoteProof{
			{
				Vote: json.RawMessage(`{"type":"vote"}`),
				Proof: MerkleProof{
					BlockHash: chainhash.HashH([]byte("block")),
					LeafIndex: 1,
					Steps: []ProofStep{
						{Sibling: chainhash.HashH([]byte("sib")), SiblingIsLeft: true},
					},
				},
			},
		},
	}
	payload, err := EncodeElectionRes(electionHash, result)
	if err != nil {
		t.Fatalf("EncodeElectionRes: %v", err)
	}

	gotHash, gotResult, err := DecodeElectionRes(payload)
	if err != nil {
		t.Fatalf("DecodeElectionRes: %v", err)
	}
	if gotHash != electionHash {
		t.Fatalf("election hash mismatch after round trip")
	}
	if gotResult.Start != 3 || len(gotResult.Votes) != 1 {
		t.Fatalf("result mismatch after round trip: %+v", gotResult)
	}
	if gotResult.Votes[0].Proof.LeafIndex != 1 {
		t.Fatalf("proof leaf index mismatch after round trip")
	}
}

func TestErrorResponseRoundTrip(t *testing.T) {
	got := DecodeErrorResponse(EncodeErrorResponse("Invalid signatures"))
	if got != "Invalid signatures" {
		t.Fatalf("got %q, want %q", got, "Invalid signatures")
	}
}
