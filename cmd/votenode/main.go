// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Command votenode runs a single votechain participant: a full node that
// mines, validates, and relays blocks, or — with -light — a header-only
// client that answers election queries by aggregating verified peer
// replies.
package main

import (
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/monetarium/votechain/internal/node"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "votenode:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		listenAddr = flag.String("listen", ":8377", "address to accept inbound peer connections on")
		seeds      = flag.String("seeds", "", "comma-separated list of seed peer addresses to dial at startup")
		dataDir    = flag.String("datadir", defaultDataDir(), "directory for node state")
		logDir     = flag.String("logdir", "", "directory for the rotated node log file (empty disables file logging)")
		logLevel   = flag.String("loglevel", "info", "log level: trace, debug, info, warn, error, critical, off")
		light      = flag.Bool("light", false, "run as a header-only light node instead of a full mining node")
		maxBlock   = flag.Uint("maxblocksize", 0, "bound a mined candidate block's encoded body size (0 means the wire default)")
	)
	flag.Parse()

	var logFile string
	if *logDir != "" {
		logFile = filepath.Join(*logDir, "votenode.log")
	}
	logger, err := node.InitLogging(logFile, *logLevel)
	if err != nil {
		return fmt.Errorf("initialize logging: %w", err)
	}
	node.UseLogger(logger)

	cfg := node.Config{
		ListenAddr:   *listenAddr,
		Seeds:        splitSeeds(*seeds),
		DataDir:      *dataDir,
		LogDir:       *logDir,
		Light:        *light,
		MaxBlockSize: uint32(*maxBlock),
	}
	if cfg.Light {
		cfg.ListenAddr = ""
	}

	n := node.New(cfg)
	if err := n.Start(); err != nil {
		return fmt.Errorf("start node: %w", err)
	}
	defer n.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	<-sig
	return nil
}

func splitSeeds(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	seeds := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			seeds = append(seeds, p)
		}
	}
	return seeds
}

func defaultDataDir() string {
	dir, err := os.UserHomeDir()
	if err != nil {
		return ".votenode"
	}
	return filepath.Join(dir, ".votenode")
}
