// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"errors"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/monetarium/votechain/wire"
)

// outQueueSize bounds how many outbound frames may be queued for a peer
// before it is treated as unresponsive and disconnected.
const outQueueSize = 64

// pingInterval is how often the server checks that a peer is still
// responsive (spec.md §4.5's periodic keepalive).
const pingInterval = time.Minute

// pongGrace is how long a peer has to answer a PING before it is dropped.
const pongGrace = 2 * pingInterval

// maxSuspectStrikes is how many spec.md §7 "malformed frame" violations in
// a row (with no valid frame in between) a peer may accumulate before it
// is disconnected outright.
const maxSuspectStrikes = 8

type outFrame struct {
	msgType wire.MessageType
	payload []byte
}

// Peer wraps one TCP connection to another node. A dedicated write loop
// serializes frames enqueued from any goroutine; a read loop decodes
// inbound frames one at a time and hands each to the owning Server.
type Peer struct {
	conn      net.Conn
	addr      string
	outbound  chan outFrame
	quit      chan struct{}
	closeOnce sync.Once

	mu         sync.Mutex
	listenPort uint16
	lastPong   time.Time

	// suspectStrikes and bad track spec.md §7's per-peer reputation:
	// suspectStrikes counts consecutive malformed frames and resets on any
	// frame that handles cleanly; bad is set permanently the first time
	// this peer is responsible for an invalid block.
	suspectStrikes atomic.Int32
	bad            atomic.Bool
}

func newPeer(conn net.Conn) *Peer {
	return &Peer{
		conn:     conn,
		addr:     conn.RemoteAddr().String(),
		outbound: make(chan outFrame, outQueueSize),
		quit:     make(chan struct{}),
		lastPong: time.Now(),
	}
}

// Addr returns the remote address this peer connected from or to.
func (p *Peer) Addr() string {
	return p.addr
}

// send enqueues a frame for write. A peer whose output queue is already
// full is considered stuck and is disconnected rather than allowed to
// block the sender.
func (p *Peer) send(msgType wire.MessageType, payload []byte) {
	select {
	case p.outbound <- outFrame{msgType, payload}:
	case <-p.quit:
	default:
		log.Warnf("peer %s output queue full, disconnecting", p.addr)
		p.Disconnect()
	}
}

func (p *Peer) setListenPort(port uint16) {
	p.mu.Lock()
	p.listenPort = port
	p.mu.Unlock()
}

func (p *Peer) markPong() {
	p.mu.Lock()
	p.lastPong = time.Now()
	p.mu.Unlock()
}

func (p *Peer) isStale(now time.Time) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return now.Sub(p.lastPong) > pongGrace
}

// markSuspect records a spec.md §7 "malformed frame" violation. A peer
// that racks up maxSuspectStrikes without an intervening valid frame is
// disconnected.
func (p *Peer) markSuspect() {
	if p.suspectStrikes.Add(1) >= maxSuspectStrikes {
		log.Warnf("peer %s exceeded malformed-frame strike limit, disconnecting", p.addr)
		p.Disconnect()
	}
}

// clearSuspect resets the strike count after a frame handles without
// error: "suspect" is a rolling distrust, not a permanent mark.
func (p *Peer) clearSuspect() {
	p.suspectStrikes.Store(0)
}

// markBad records a spec.md §7 "invalid block" violation and disconnects
// the peer: a peer responsible for a block failing PoW, Merkle, or record
// validity gets no further chances.
func (p *Peer) markBad() {
	p.bad.Store(true)
	log.Warnf("peer %s sent an invalid block, disconnecting", p.addr)
	p.Disconnect()
}

// IsBad reports whether this peer was ever marked bad.
func (p *Peer) IsBad() bool {
	return p.bad.Load()
}

// Disconnect closes the underlying connection and unblocks both loops.
// Safe to call more than once or from more than one goroutine.
func (p *Peer) Disconnect() {
	p.closeOnce.Do(func() {
		close(p.quit)
		p.conn.Close()
	})
}

func (p *Peer) writeLoop() {
	for {
		select {
		case f := <-p.outbound:
			if err := wire.WriteFrame(p.conn, f.msgType, f.payload); err != nil {
				log.Debugf("peer %s: write error: %s", p.addr, err)
				p.Disconnect()
				return
			}
		case <-p.quit:
			return
		}
	}
}

func (p *Peer) readLoop(handle func(*Peer, *wire.Frame) error) {
	for {
		frame, err := wire.ReadFrame(p.conn)
		if err != nil {
			log.Debugf("peer %s: read error: %s", p.addr, err)
			return
		}
		if err := handle(p, frame); err != nil {
			log.Debugf("peer %s: %s: %s", p.addr, frame.Type, err)
			p.reportError(err)
			continue
		}
		p.clearSuspect()
	}
}

// reportError applies spec.md §7's error taxonomy to the result of one
// handled frame. An invalid record (vote/election) is dropped silently —
// no ERROR_RESPONSE, no peer penalty, since it can originate from an
// honest client as easily as an attacker. A malformed frame or invalid
// block gets an ERROR_RESPONSE and counts against the peer, to the degree
// markSuspect/markBad apply. An error with no classification (a handler
// bug, an unrecognized message type) defaults to the malformed-frame
// treatment, the more conservative of the two penalized categories.
func (p *Peer) reportError(err error) {
	class := classMalformedFrame
	var ce *classifiedErr
	if errors.As(err, &ce) {
		class = ce.class
	}
	if class == classInvalidRecord || class == classInternal {
		return
	}
	p.send(wire.MsgErrorResponse, wire.EncodeErrorResponse(err.Error()))
	if class == classInvalidBlock {
		p.markBad()
	} else {
		p.markSuspect()
	}
}
