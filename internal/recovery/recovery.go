// Package recovery runs the startup scan that makes Open crash-safe: it
// replays every record in a log file, validates term ordering, and tells
// the caller exactly where the file should be truncated if it ends in a
// partial write or a stray record past an END sentinel.
package recovery

import (
	"errors"
	"fmt"

	"github.com/golang/glog"

	"github.com/shaj13/raftlog/internal/logfile"
	"github.com/shaj13/raftlog/internal/record"
)

// ErrCorruptHeader means the first record in the file is not a valid
// RAFTLOG header. Unlike every other failure this package handles, it is
// not recoverable by truncation: there is nothing to fall back to before
// the header.
var ErrCorruptHeader = errors.New("recovery: corrupt header")

// errStopEnd signals a clean stop at an END sentinel: not corruption, just
// the documented end of a well-formed file.
var errStopEnd = errors.New("recovery: end sentinel")

// errTermRegression signals an ENTRY record whose term is lower than the
// previous entry's term (or the snapshot base term), which can only happen
// if the file was corrupted or hand-edited; it is treated exactly like a
// truncated tail.
var errTermRegression = errors.New("recovery: term regression")

// State is everything Open needs to reconstruct a RaftLog after replaying
// a file.
type State struct {
	Version       string
	DBID          string
	NodeID        uint64
	SnapBaseIndex uint64
	SnapBaseTerm  uint64
	CurrentTerm   uint64
	Vote          int32
	LastTerm      uint64
	HeaderEnd     int64
	// Offsets holds, in append order, the byte offset of every surviving
	// ENTRY record.
	Offsets []int64
}

// Run replays lf from the start, validating and collecting entry offsets,
// and truncates lf in place if the tail is malformed, partially written,
// or marked by an END sentinel. It returns ErrCorruptHeader only when the
// very first record cannot be parsed as a RAFTLOG header of HeaderVersion —
// every other failure is handled by truncating and returning successfully,
// unless the truncate itself fails, whose error is returned as is.
func Run(lf *logfile.LogFile) (*State, error) {
	headerRec, headerSize, err := lf.ReadAt(0)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	version, dbid, nodeID, snapBaseIndex, snapBaseTerm, err := record.ParseHeader(headerRec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptHeader, err)
	}
	if version != record.HeaderVersion {
		return nil, fmt.Errorf("%w: unsupported version %q", ErrCorruptHeader, version)
	}

	st := &State{
		Version:       version,
		DBID:          dbid,
		NodeID:        nodeID,
		SnapBaseIndex: snapBaseIndex,
		SnapBaseTerm:  snapBaseTerm,
		LastTerm:      snapBaseTerm,
		Vote:          -1,
		HeaderEnd:     headerSize,
	}

	stopOffset, scanErr := lf.Scan(st.HeaderEnd, func(offset int64, rec record.Record) error {
		switch rec.Opcode {
		case record.OpEntry:
			term, _, _, _, err := record.ParseEntry(rec)
			if err != nil {
				return err
			}
			if term < st.LastTerm {
				return errTermRegression
			}
			st.LastTerm = term
			st.Offsets = append(st.Offsets, offset)
			return nil
		case record.OpVote:
			term, vote, err := record.ParseVote(rec)
			if err != nil {
				return err
			}
			st.CurrentTerm = term
			st.Vote = vote
			return nil
		case record.OpEnd:
			return errStopEnd
		default:
			return fmt.Errorf("recovery: unknown opcode %q", rec.Opcode)
		}
	})

	if scanErr != nil && !errors.Is(scanErr, errStopEnd) {
		glog.Warningf("raftlog: recovery truncating at offset %d after %v", stopOffset, scanErr)
	}
	if stopOffset < lf.End() {
		if err := lf.Truncate(stopOffset); err != nil {
			return nil, err
		}
	}

	glog.Infof("raftlog: recovered %d entries, term=%d vote=%d", len(st.Offsets), st.CurrentTerm, st.Vote)
	return st, nil
}
