// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package node

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/decred/slog"
	"github.com/jrick/logrotate/rotator"

	"github.com/monetarium/votechain/internal/blockalloc"
	"github.com/monetarium/votechain/internal/blockchain"
	"github.com/monetarium/votechain/internal/mempool"
	"github.com/monetarium/votechain/internal/mining"
	"github.com/monetarium/votechain/internal/netsync"
	"github.com/monetarium/votechain/lightnode"
)

// logRotationSize is the size, in kibibytes, the rotator rolls the node log
// file at. Matches the decred/btcd family's customary 10 MiB rotation size.
const logRotationSize = 10 * 1024

// maxLogRolls is how many rotated log files are kept around.
const maxLogRolls = 3

var logRotator *rotator.Rotator

// logWriter fans log output out to both stdout and the rotator, so a
// terminal attached to the process sees the same output the log file
// accumulates.
type logWriter struct{}

func (logWriter) Write(p []byte) (int, error) {
	os.Stdout.Write(p)
	logRotator.Write(p)
	return len(p), nil
}

// subsystemLoggers names the tag each package's logger is created with,
// matching the CHST/MEMP/MINR/NSYN/LGHT/NODE convention the decred/btcd
// family uses for its per-package log tags.
var subsystemLoggers = []string{"CHST", "MEMP", "MINR", "NSYN", "LGHT", "NODE"}

// InitLogging creates the backend and wires a tagged logger into every
// subsystem package. logFile may be empty, in which case only stdout
// receives log output. level is parsed with slog's standard level names
// (trace, debug, info, warn, error, critical, off).
func InitLogging(logFile, level string) (slog.Logger, error) {
	var backend *slog.Backend
	if logFile != "" {
		logDir := filepath.Dir(logFile)
		if err := os.MkdirAll(logDir, 0700); err != nil {
			return nil, fmt.Errorf("node: create log directory %s: %w", logDir, err)
		}
		r, err := rotator.New(logFile, logRotationSize, false, maxLogRolls)
		if err != nil {
			return nil, fmt.Errorf("node: create log rotator: %w", err)
		}
		logRotator = r
		backend = slog.NewBackend(logWriter{})
	} else {
		backend = slog.NewBackend(os.Stdout)
	}

	lvl, ok := slog.LevelFromString(level)
	if !ok {
		lvl = slog.LevelInfo
	}

	nodeLog := backend.Logger("NODE")
	nodeLog.SetLevel(lvl)

	chstLog := backend.Logger("CHST")
	chstLog.SetLevel(lvl)
	blockchain.UseLogger(chstLog)
	blockalloc.UseLogger(chstLog)

	mempLog := backend.Logger("MEMP")
	mempLog.SetLevel(lvl)
	mempool.UseLogger(mempLog)

	minrLog := backend.Logger("MINR")
	minrLog.SetLevel(lvl)
	mining.UseLogger(minrLog)

	nsynLog := backend.Logger("NSYN")
	nsynLog.SetLevel(lvl)
	netsync.UseLogger(nsynLog)

	lghtLog := backend.Logger("LGHT")
	lghtLog.SetLevel(lvl)
	lightnode.UseLogger(lghtLog)

	return nodeLog, nil
}
