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
	"github.com/decred/dcrd/container/lru"

	"github.com/monetarium/votechain/chainhash"
	"github.com/monetarium/votechain/lightnode"
	"github.com/monetarium/votechain/wire"
)

// LightServerConfig configures a LightServer.
type LightServerConfig struct {
	// ListenAddr optionally accepts inbound connections from other
	// light or full nodes that want to relay headers through this one.
	// Empty means outbound-only, the normal light-client setting.
	ListenAddr string

	// Seeds are addresses dialed as permanent outbound connections at
	// startup.
	Seeds []string

	// Light is the header-only verifier every inbound BLOCK is handed
	// to.
	Light *lightnode.Node
}

// LightServer is the network half of a header-only node (spec.md §4.6): it
// maintains peer connections exactly like a full Server, but feeds every
// BLOCK it receives to a lightnode.Node instead of a full chain store, and
// never requests or stores a block's body. It shares Peer, the framing
// helpers, and connmgr wiring with Server; the two are kept as separate
// types rather than one Server with a body-fetching flag because the two
// have almost no request handling in common beyond INIT/PING/PONG.
type LightServer struct {
	cfg   LightServerConfig
	light *lightnode.Node

	mu    sync.Mutex
	peers map[*Peer]struct{}

	seenHeaders *lru.Cache[chainhash.Hash]

	listener net.Listener
	connMgr  *connmgr.ConnManager

	wg   sync.WaitGroup
	quit chan struct{}
}

// NewLightServer creates a LightServer bound to cfg.
func NewLightServer(cfg LightServerConfig) *LightServer {
	return &LightServer{
		cfg:         cfg,
		light:       cfg.Light,
		peers:       make(map[*Peer]struct{}),
		seenHeaders: lru.NewCache[chainhash.Hash](seenBlockCapacity),
		quit:        make(chan struct{}),
	}
}

// Start dials every configured seed and, if ListenAddr is set, begins
// accepting inbound connections.
func (s *LightServer) Start() error {
	cmCfg := &connmgr.Config{
		RetryDuration: 10 * time.Second,
		OnConnection:  func(_ *connmgr.ConnReq, conn net.Conn) { s.addPeer(conn, true) },
		Dial: func(addr net.Addr) (net.Conn, error) {
			return net.DialTimeout(addr.Network(), addr.String(), 10*time.Second)
		},
	}
	if s.cfg.ListenAddr != "" {
		ln, err := net.Listen("tcp", s.cfg.ListenAddr)
		if err != nil {
			return fmt.Errorf("netsync: light listen on %s: %w", s.cfg.ListenAddr, err)
		}
		s.listener = ln
		cmCfg.Listeners = []net.Listener{ln}
		cmCfg.OnAccept = func(conn net.Conn) { s.addPeer(conn, false) }
	}

	cm, err := connmgr.New(cmCfg)
	if err != nil {
		return fmt.Errorf("netsync: light connmgr: %w", err)
	}
	s.connMgr = cm
	cm.Start()

	for _, seed := range s.cfg.Seeds {
		addr, err := net.ResolveTCPAddr("tcp", seed)
		if err != nil {
			log.Warnf("netsync: light node skipping unresolvable seed %s: %s", seed, err)
			continue
		}
		cm.Connect(&connmgr.ConnReq{Addr: addr, Permanent: true})
	}

	s.wg.Add(1)
	go s.pingLoop()
	log.Infof("netsync: light server started, listen=%q, %d seed(s)", s.cfg.ListenAddr, len(s.cfg.Seeds))
	return nil
}

// Stop disconnects every peer and stops the connection manager.
func (s *LightServer) Stop() {
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

func (s *LightServer) pingLoop() {
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
					log.Infof("netsync: light peer %s unresponsive, disconnecting", p.Addr())
					p.Disconnect()
					s.mu.Lock()
					delete(s.peers, p)
					s.mu.Unlock()
					continue
				}
				p.send(wire.MsgPing, nil)
			}
		}
	}
}

// addPeer registers conn and, for an outbound connection, requests the
// remote's longest chain once the handshake completes — headers arrive via
// LONGEST_CHAIN in reply and via BLOCK pushed afterward.
func (s *LightServer) addPeer(conn net.Conn, outbound bool) {
	p := newPeer(conn)
	s.mu.Lock()
	s.peers[p] = struct{}{}
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			p.Disconnect()
			s.mu.Lock()
			delete(s.peers, p)
			s.mu.Unlock()
		}()
		go p.writeLoop()
		p.readLoop(s.handleFrame)
	}()

	p.send(wire.MsgInit, wire.EncodeInit(0))
	if outbound {
		var startIndex uint32
		if hash, ok := s.light.BestHash(); ok {
			if h, ok := s.light.Header(hash); ok {
				startIndex = h.Index + 1
			}
		}
		p.send(wire.MsgGetLongestChain, wire.EncodeGetLongestChain(startIndex))
	}
	log.Infof("netsync: light peer connected: %s", p.Addr())
}

func (s *LightServer) handleFrame(sender *Peer, frame *wire.Frame) error {
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

	case wire.MsgLongestChain:
		return s.handleLongestChain(sender, frame.Payload)

	case wire.MsgErrorResponse:
		log.Debugf("netsync: light peer %s reported error: %s", sender.Addr(), wire.DecodeErrorResponse(frame.Payload))
		return nil

	default:
		// A light node never serves VOTE/ELECTION/GET_* requests: it has
		// no mempool or chain store to answer from.
		return nil
	}
}

// handleBlock reads only the 84-byte header prefix of a BLOCK payload —
// the body never needs to be parsed, let alone stored — and hands it to
// the lightnode.Node verifier, forwarding it on if accepted.
func (s *LightServer) handleBlock(sender *Peer, payload []byte) error {
	if len(payload) < wire.HeaderSize {
		return malformedFrameErr(fmt.Errorf("BLOCK payload of %d bytes shorter than a header", len(payload)))
	}
	header, err := wire.DecodeHeader(payload[:wire.HeaderSize])
	if err != nil {
		return malformedFrameErr(err)
	}
	hash := header.Hash()
	if s.seenHeaders.Contains(hash) {
		return nil
	}
	forward, err := s.light.HandleHeader(header, time.Now())
	if err != nil {
		return invalidBlockErr(err)
	}
	s.seenHeaders.Add(hash)
	if forward {
		s.broadcastExcept(sender, wire.MsgBlock, payload)
	}
	return nil
}

func (s *LightServer) handleLongestChain(sender *Peer, payload []byte) error {
	headers, err := wire.DecodeLongestChain(payload)
	if err != nil {
		return malformedFrameErr(err)
	}
	// Headers arrive newest-first; the light node's own orphan pool
	// reassembles correct order regardless of the order they're fed in,
	// but feeding oldest-first avoids needlessly parking every entry but
	// the last one as an orphan.
	for i := len(headers) - 1; i >= 0; i-- {
		if _, err := s.light.HandleHeader(headers[i], time.Now()); err != nil {
			log.Debugf("netsync: light node rejected header from LONGEST_CHAIN: %s", err)
		}
	}
	return nil
}

func (s *LightServer) broadcastExcept(sender *Peer, msgType wire.MessageType, payload []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for p := range s.peers {
		if p == sender {
			continue
		}
		p.send(msgType, payload)
	}
}

// PeerCount returns the number of currently connected peers.
func (s *LightServer) PeerCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.peers)
}
