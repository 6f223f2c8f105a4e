// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"net"
	"sync"
	"time"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/lightnode"
	"github.com/monetarium/votechain/wire"
)

// seedQuerier implements lightnode.PeerQuerier by dialing a random sample of
// the node's configured seeds directly and issuing one synchronous
// GET_ELECTION_RES request each, rather than routing through a persistent
// netsync.Peer connection: a light node's seed list is exactly the
// bootstrap set spec.md §9's Open Question 5 settles on, and a query is
// infrequent enough that a short-lived connection per request is simpler
// than maintaining a standing peer pool.
type seedQuerier struct {
	seeds []string
}

// QueryElectionResult implements lightnode.PeerQuerier.
func (q *seedQuerier) QueryElectionResult(electionHash chainhash.Hash, sampleSize int, timeout time.Duration) []wire.ElectionResult {
	chosen := lightnode.RandomPeerSample(q.seeds, sampleSize)

	results := make(chan wire.ElectionResult, len(chosen))
	var wg sync.WaitGroup
	for _, addr := range chosen {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			if result, ok := queryPeerElectionResult(addr, electionHash, timeout); ok {
				results <- result
			}
		}(addr)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	out := make([]wire.ElectionResult, 0, len(chosen))
	for result := range results {
		out = append(out, result)
	}
	return out
}

// queryPeerElectionResult dials addr, sends a GET_ELECTION_RES for
// electionHash, and returns the first ELECTION_RES reply received before
// timeout elapses.
func queryPeerElectionResult(addr string, electionHash chainhash.Hash, timeout time.Duration) (wire.ElectionResult, bool) {
	conn, err := net.DialTimeout("tcp", addr, timeout)
	if err != nil {
		return wire.ElectionResult{}, false
	}
	defer conn.Close()
	conn.SetDeadline(time.Now().Add(timeout))

	if err := wire.WriteFrame(conn, wire.MsgGetElectionRes, wire.EncodeGetElectionRes(electionHash)); err != nil {
		return wire.ElectionResult{}, false
	}
	frame, err := wire.ReadFrame(conn)
	if err != nil || frame.Type != wire.MsgElectionRes {
		return wire.ElectionResult{}, false
	}
	_, result, err := wire.DecodeElectionRes(frame.Payload)
	if err != nil {
		return wire.ElectionResult{}, false
	}
	return result, true
}
