// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package blockchain

import "fmt"

// ErrorKind identifies a class of rule violation. It implements the error
// interface so callers can compare against it directly with errors.Is.
type ErrorKind string

// Error satisfies the error interface.
func (e ErrorKind) Error() string {
	return string(e)
}

// Rule violation kinds. Each covers one of the block/record checks in
// spec.md's error taxonomy.
const (
	// ErrMalformedFrame indicates a wire frame failed to decode.
	ErrMalformedFrame = ErrorKind("malformed frame")

	// ErrBadMerkleRoot indicates a block's declared Merkle root does not
	// match the root computed from its body.
	ErrBadMerkleRoot = ErrorKind("merkle root mismatch")

	// ErrBadProofOfWork indicates a block's header hash does not satisfy
	// its declared difficulty.
	ErrBadProofOfWork = ErrorKind("insufficient proof of work")

	// ErrBadDifficulty indicates a block's declared difficulty does not
	// match the value the retarget algorithm requires at that height.
	ErrBadDifficulty = ErrorKind("incorrect difficulty")

	// ErrBadTimestamp indicates a block's timestamp is below the median of
	// its recent ancestors' timestamps or too far ahead of current time.
	ErrBadTimestamp = ErrorKind("invalid timestamp")

	// ErrUnknownParent indicates a block's previous-hash does not match
	// any block this node currently holds; it is buffered as an orphan.
	ErrUnknownParent = ErrorKind("unknown parent block")

	// ErrDuplicateBlock indicates a block with this hash is already
	// known.
	ErrDuplicateBlock = ErrorKind("duplicate block")

	// ErrInvalidRecord is the umbrella kind for a record (vote, election,
	// end-of-election) that fails validation; Description carries the
	// specific reason.
	ErrInvalidRecord = ErrorKind("invalid record")

	// ErrUnknownElection indicates a vote or end-of-election references
	// an election hash this chain has not opened.
	ErrUnknownElection = ErrorKind("unknown election")

	// ErrIneligibleVoter indicates a vote's public key is not among the
	// election's eligible keys, or the key has already voted.
	ErrIneligibleVoter = ErrorKind("ineligible voter")

	// ErrBadChoice indicates a vote's choice is not one of the election's
	// declared choices.
	ErrBadChoice = ErrorKind("choice not on ballot")

	// ErrBadSignature indicates a record's signature failed verification.
	ErrBadSignature = ErrorKind("signature verification failed")

	// ErrBadTally indicates an end-of-election's declared results do not
	// match the tally recomputed from the chain.
	ErrBadTally = ErrorKind("tally mismatch")

	// ErrOversizeBlock indicates a block's encoded size exceeds the
	// maximum permitted.
	ErrOversizeBlock = ErrorKind("block exceeds maximum size")
)

// RuleError identifies a rule violation along with a human-readable
// description of the specific circumstance. It implements both error and
// the Unwrap/Is protocol so callers can test for a specific ErrorKind with
// errors.Is(err, blockchain.ErrBadTimestamp).
type RuleError struct {
	ErrorCode   ErrorKind
	Description string
}

// Error satisfies the error interface.
func (e RuleError) Error() string {
	return e.Description
}

// Unwrap allows errors.Is/errors.As to recover the underlying ErrorKind.
func (e RuleError) Unwrap() error {
	return e.ErrorCode
}

// ruleErrorf builds a RuleError, formatting Description from format and
// args while leaving ErrorCode as the shared sentinel for comparison.
func ruleErrorf(kind ErrorKind, format string, args ...interface{}) RuleError {
	return RuleError{ErrorCode: kind, Description: fmt.Sprintf("%s: %s", kind, fmt.Sprintf(format, args...))}
}
