// Copyright (c) 2026 The Votechain developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

package netsync

// frameErrorClass distinguishes the treatments spec.md §7 assigns to an
// error returned from handling one inbound frame: a malformed frame and an
// invalid block both get an ERROR_RESPONSE and count against the sending
// peer's reputation, while an invalid record (a vote or election failing a
// validity rule) is dropped with neither, since it arrives from honest
// clients as often as attackers.
type frameErrorClass int

const (
	classMalformedFrame frameErrorClass = iota
	classInvalidBlock
	classInvalidRecord
	classInternal
)

// classifiedErr tags an error with the §7 category readLoop needs in order
// to decide whether to reply with ERROR_RESPONSE and how, if at all, to
// penalize the peer that sent the offending frame.
type classifiedErr struct {
	class frameErrorClass
	err   error
}

func (e *classifiedErr) Error() string { return e.err.Error() }
func (e *classifiedErr) Unwrap() error { return e.err }

// malformedFrameErr marks err as spec.md §7's "malformed frame" category:
// wrong length, undecodable JSON, an unknown record or message type.
func malformedFrameErr(err error) error { return &classifiedErr{classMalformedFrame, err} }

// invalidBlockErr marks err as spec.md §7's "invalid block" category: bad
// Merkle root, bad PoW, bad difficulty, bad timestamp, or an invalid
// contained record.
func invalidBlockErr(err error) error { return &classifiedErr{classInvalidBlock, err} }

// invalidRecordErr marks err as spec.md §7's "invalid record" category: a
// standalone vote or election that fails a validity rule.
func invalidRecordErr(err error) error { return &classifiedErr{classInvalidRecord, err} }

// internalErr marks err as this node's own fault — e.g. a previously
// accepted block failing to re-encode for a GET_BLOCK reply — rather than
// anything the sender did. Spec.md §7 has no category for it; it is
// treated the same as an invalid record (logged, no ERROR_RESPONSE, no
// peer penalty), since the sender's request was entirely legitimate.
func internalErr(err error) error { return &classifiedErr{classInternal, err} }
