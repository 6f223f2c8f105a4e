// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

import (
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/decred/dcrd/connmgr/v3"
	"github.com/decred/dcrd/container/apbf"
	"github.com/decred/dcrd/container/lru"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/internal/blockchain"
	"github.com/monetarium/votechain/record"
	"github.com/monetarium/votechain/wire"
)

// seenBlockCapacity bounds the recently-seen-block-hash cache used to
// suppress re-broadcasting a block this node has already relayed.
const seenBlockCapacity = 4096

// seenRecordFilterSize/FalsePositiveRate bound the age-partitioned bloom
// filter used for the same purpose on votes and elections, which arrive
// far more often than blocks and do not warrant an exact LRU set.
const (
	seenRecordFilterSize        = 50_000
	seenRecordFalsePositiveRate = 0.0001
)

// Config configures a Server.
type Config struct {
	// ListenAddr is the address to accept inbound peer connections on,
	// e.g. ":8333". Empty disables listening (outbound-only / light
	// node use).
	ListenAddr string

	// Seeds are addresses to dial as permanent outbound connections at
	// startup.
	Seeds []string

	// Store is the chain store new blocks and records are validated
	// against and pulled from for relay and query responses.
	Store *blockchain.Store
}

// Server is the full node's network half: it accepts and maintains peer
// connections, relays newly seen blocks/votes/elections, answers
// GET_BLOCK/GET_LONGEST_CHAIN/GET_ELECTION_RES queries from the chain
// store, and feeds inbound blocks and records back into it.
type Server struct {
	cfg   Config
	store *blockchain.Store

	mu    sync.Mutex
	peers map[*Peer]struct{}

	seenBlocks  *lru.Cache[chainhash.Hash]
	seenRecords *apbf.Filter

	listener net.Listener
	connMgr  *connmgr.ConnManager

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewServer creates a Server bound to cfg. Call Start to begin listening
// and dialing seeds.
func NewServer(cfg Config) *Server {
	return &Server{
		cfg:         cfg,
		store:       cfg.Store,
		peers:       make(map[*Peer]struct{}),
		seenBlocks:  lru.NewCache[chainhash.Hash](seenBlockCapacity),
		seenRecords: apbf.NewFilter(seenRecordFilterSize, seenRecordFalsePositiveRate),
		quit:        make(chan struct{}),
	}
}

// Start begins accepting inbound connections (if ListenAddr is set),
// dials every configured seed, and launches the ping sweep.
func (s *Server) Start() error {
	// TargetOutbound is left at zero: this node dials only the
	// explicitly configured seeds below, as permanent connection
	// requests, rather than asking the manager to discover and
	// maintain an address pool of its own.
	cmCfg := &connmgr.Config{
		RetryDuration: 10 * time.Second,
		OnConnection:  s.onOutboundConnection,
		Dial: func(addr net.Addr) (net.Conn, error) {
			return net.DialTimeout(addr.Network(), addr.String(), 10*time.Second)
		},
	}
	if s.cfg.ListenAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("netsync: listen on %s: %w", s.cfg.ListenAddr, err)
		}
		s.listener = ln
		cmCfg.Listeners = []net.Listener{ln}
		cmCfg.OnAccept = s.onAccept
	}

	cm, err := connmgr.New(cmCfg)
	if err != nil {
		return fmt.Errorf("netsync: connmgr: %w", err)
	}
	s.connMgr = cm
	cm.Start()

	for _, seed := range s.cfg.Seeds {
		addr, err := net.ResolveTCPAddr("tcp", seed)
		if err != nil {
			log.Warnf("netsync: skipping unresolvable seed %s: %s", seed, err)
			continue
		}
		cm.Connect(&connmgr.ConnReq{Addr: addr, Permanent: true})
	}

	s.wg.Add(1)
	go s.pingLoop()
	log.Infof("netsync: server started, listen=%q, %d seed(s)", s.cfg.ListenAddr, len(s.cfg.Seeds))
	return nil
}

// Stop closes the listener, disconnects every peer, and stops the
// connection manager.
func (s *Server) Stop() {
	close(s.quit)
	if s.listener != nil {
		s.listener.Close()
	}
	if s.connMgr != nil {
		s.connMgr.Stop()
	}
	s.mu.Lock()
	for p := range s.peers {
		p.Disconnect()
	}
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Server) onAccept(conn net.Conn) {
	s.addPeer(conn, false)
}

func (s *Server) onOutboundConnection(_ *connmgr.ConnReq, conn net.Conn) {
	s.addPeer(conn, true)
}

// addPeer registers conn as a new Peer and starts its read/write loops.
// outbound marks a connection this node initiated: per spec.md §4.5's
// bootstrap sequence, only the dialing side follows up the INIT handshake
// with a GET_LONGEST_CHAIN request, since that's the side that doesn't
// yet know whether the new peer is ahead of it.
func (s *Server) addPeer(conn net.Conn, outbound bool) {
	p := newPeer(conn)
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer s.removePeer(p)
		go p.writeLoop()
		p.readLoop(s.handleFrame)
	}()

	s.sendHandshake(p)
	if outbound {
		s.requestLongestChain(p)
	}
	log.Infof("netsync: peer connected: %s", p.Addr())
}

func (s *Server) removePeer(p *Peer) {
	p.Disconnect()
	s.mu.Lock()
	delete(s.peers, p)
	s.mu.Unlock()
}

func (s *Server) pingLoop() {
	defer s.wg.Done()
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-s.quit:
			return
		case now := <-ticker.C:
			s.mu.Lock()
			peers := make([]*Peer, 0, len(s.peers))
			for p := range s.peers {
				peers = append(peers, p)
			}
			s.mu.Unlock()
			for _, p := range peers {
				if p.isStale(now) {
					log.Infof("netsync: peer %s unresponsive, disconnecting", p.Addr())
					s.removePeer(p)
					continue
				}
				p.send(wire.MsgPing, nil)
			}
		}
	}
}

// handleFrame dispatches one inbound frame from sender to the matching
// protocol handler (spec.md §4.5's message table).
func (s *Server) handleFrame(sender *Peer, frame *wire.Frame) error {
	switch frame.Type {
	case wire.MsgInit:
		port, err := wire.DecodeInit(frame.Payload)
		if err != nil {
			return malformedFrameErr(err)
		}
		sender.setListenPort(port)
		return nil

	case wire.MsgPing:
		sender.send(wire.MsgPong, nil)
		return nil

	case wire.MsgPong:
		sender.markPong()
		return nil

	case wire.MsgBlock:
		return s.handleBlock(sender, frame.Payload)

	case wire.MsgElection:
		return s.handleRecord(sender, frame.Payload)

	case wire.MsgVote:
		return s.handleRecord(sender, frame.Payload)

	case wire.MsgGetLongestChain:
		return s.handleGetLongestChain(sender, frame.Payload)

	case wire.MsgLongestChain:
		return s.handleLongestChain(sender, frame.Payload)

	case wire.MsgGetBlock:
		return s.handleGetBlock(sender, frame.Payload)

	case wire.MsgGetElectionRes:
		return s.handleGetElectionRes(sender, frame.Payload)

	case wire.MsgElectionRes:
		// Full nodes don't issue GET_ELECTION_RES themselves; only
		// light nodes consume this response.
		return nil

	case wire.MsgErrorResponse:
		log.Debugf("netsync: peer %s reported error: %s", sender.Addr(), wire.DecodeErrorResponse(frame.Payload))
		return nil

	default:
		return malformedFrameErr(fmt.Errorf("unrecognized message type %d", frame.Type))
	}
}

func (s *Server) handleBlock(sender *Peer, payload []byte) error {
	b, err := wire.DecodeBlock(payload)
	if err != nil {
		return malformedFrameErr(err)
	}
	headerHash := b.Header.Hash()
	if s.seenBlocks.Contains(headerHash) {
		return nil
	}

	result, err := s.store.AddBlock(b)
	if err != nil {
		return invalidBlockErr(err)
	}
	switch result {
	case blockchain.BlockAccepted:
		s.seenBlocks.Add(headerHash)
		log.Infof("netsync: accepted block %s from %s", headerHash, sender.Addr())
		s.broadcastExcept(sender, wire.MsgBlock, payload)
	case blockchain.BlockOrphan:
		sender.send(wire.MsgGetBlock, wire.EncodeGetBlock(b.Header.PrevHash))
	case blockchain.BlockDuplicate:
		s.seenBlocks.Add(headerHash)
	}
	return nil
}

func (s *Server) handleRecord(sender *Peer, payload []byte) error {
	r, err := record.Parse(payload)
	if err != nil {
		return malformedFrameErr(err)
	}
	hash := r.Hash().Bytes()
	if s.seenRecords.Contains(hash) {
		return nil
	}

	switch rec := r.(type) {
	case *record.Election:
		if err := s.store.SubmitElection(rec, time.Now()); err != nil {
			return invalidRecordErr(err)
		}
	case *record.Vote:
		if err := s.store.SubmitVote(rec); err != nil {
			return invalidRecordErr(err)
		}
	default:
		return malformedFrameErr(fmt.Errorf("unexpected record kind %s on this message type", r.Kind()))
	}

	s.seenRecords.Add(hash)
	s.broadcastExcept(sender, frameTypeFor(r.Kind()), payload)
	return nil
}

func frameTypeFor(kind record.Kind) wire.MessageType {
	if kind == record.KindElection {
		return wire.MsgElection
	}
	return wire.MsgVote
}

func (s *Server) handleGetLongestChain(sender *Peer, payload []byte) error {
	startIndex, err := wire.DecodeGetLongestChain(payload)
	if err != nil {
		return malformedFrameErr(err)
	}
	headers := s.store.BestHeaders(startIndex, 0)
	sender.send(wire.MsgLongestChain, wire.EncodeLongestChain(headers))
	return nil
}

// handleLongestChain requests every header we don't already hold; the
// chain store's orphan pool sorts out ordering as the corresponding
// blocks arrive (spec.md §4.3).
func (s *Server) handleLongestChain(sender *Peer, payload []byte) error {
	headers, err := wire.DecodeLongestChain(payload)
	if err != nil {
		return malformedFrameErr(err)
	}
	for _, h := range headers {
		hash := h.Hash()
		if _, ok := s.store.GetBlock(hash); !ok {
			sender.send(wire.MsgGetBlock, wire.EncodeGetBlock(hash))
		}
	}
	return nil
}

func (s *Server) handleGetBlock(sender *Peer, payload []byte) error {
	hash, err := wire.DecodeGetBlock(payload)
	if err != nil {
		return malformedFrameErr(err)
	}
	b, ok := s.store.GetBlock(hash)
	if !ok {
		sender.send(wire.MsgErrorResponse, wire.EncodeErrorResponse(fmt.Sprintf("unknown block %s", hash)))
		return nil
	}
	encoded, err := b.Encode()
	if err != nil {
		return internalErr(err)
	}
	sender.send(wire.MsgBlock, encoded)
	return nil
}

func (s *Server) handleGetElectionRes(sender *Peer, payload []byte) error {
	electionHash, err := wire.DecodeGetElectionRes(payload)
	if err != nil {
		return malformedFrameErr(err)
	}
	result, ok := s.store.ElectionResult(electionHash)
	if !ok {
		sender.send(wire.MsgErrorResponse, wire.EncodeErrorResponse(fmt.Sprintf("unknown election %s", electionHash)))
		return nil
	}
	encoded, err := wire.EncodeElectionRes(electionHash, result)
	if err != nil {
		return internalErr(err)
	}
	sender.send(wire.MsgElectionRes, encoded)
	return nil
}

// broadcastExcept relays a frame to every peer other than sender. sender
// is nil when the frame originates locally (a mined block, a
// client-submitted record).
func (s *Server) broadcastExcept(sender *Peer, msgType wire.MessageType, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		if p == sender {
			continue
		}
		p.send(msgType, payload)
	}
}

// AnnounceBlock implements PeerNotifier: it relays a locally-originated
// block (almost always one this node just mined) to every peer.
func (s *Server) AnnounceBlock(b *wire.Block) {
	encoded, err := b.Encode()
	if err != nil {
		log.Warnf("netsync: failed to encode block for announcement: %s", err)
		return
	}
	s.seenBlocks.Add(b.Header.Hash())
	s.broadcastExcept(nil, wire.MsgBlock, encoded)
}

// AnnounceVote implements PeerNotifier.
func (s *Server) AnnounceVote(v *record.Vote) {
	s.seenRecords.Add(v.Hash().Bytes())
	s.broadcastExcept(nil, wire.MsgVote, v.CanonicalJSON())
}

// AnnounceElection implements PeerNotifier.
func (s *Server) AnnounceElection(e *record.Election) {
	s.seenRecords.Add(e.Hash().Bytes())
	s.broadcastExcept(nil, wire.MsgElection, e.CanonicalJSON())
}

// PeerCount returns the number of currently connected peers.
func (s *Server) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}
