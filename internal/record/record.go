// Package record implements the on-disk multibulk framing shared by every
// record in a log file: a RAFTLOG header, ENTRY and VOTE records, and the
// END sentinel. The framing deliberately mirrors a RESP-style text
// protocol ("*<n>\r\n" followed by n "$<len>\r\n<bytes>\r\n" fields) so a
// human operator can recognise a record by eye with od -c or less, and so
// a truncated write is trivially distinguishable from a complete one.
package record

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"
)

// Opcodes that appear as the first field of a record.
const (
	OpHeader = "RAFTLOG"
	OpEntry  = "ENTRY"
	OpVote   = "VOTE"
	OpEnd    = "END"
)

// HeaderVersion is the only header version this build understands.
const HeaderVersion = "1"

// ErrMalformed means the bytes at the current position are not a valid
// record at all: a header line with no leading '*' or '$', a non-numeric
// length, or a missing "\r\n" terminator where one bytes are present.
var ErrMalformed = errors.New("record: malformed")

// ErrTruncated means the stream ended partway through a record: a clean
// end of file was expected but more bytes were needed to finish decoding
// the record in progress. This is the normal shape of the tail left behind
// by a crash mid-append, and callers treat it as "stop here, truncate",
// not as a hard failure.
var ErrTruncated = errors.New("record: truncated")

// Record is one decoded multibulk frame: an opcode plus zero or more
// additional byte-string fields.
type Record struct {
	Opcode string
	Fields [][]byte
}

// Encode writes rec to w in multibulk form and returns the number of bytes
// written.
func Encode(w io.Writer, rec Record) (int64, error) {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "*%d\r\n", len(rec.Fields)+1)
	writeField(&buf, []byte(rec.Opcode))
	for _, f := range rec.Fields {
		writeField(&buf, f)
	}
	n, err := w.Write(buf.Bytes())
	return int64(n), err
}

func writeField(buf *bytes.Buffer, f []byte) {
	fmt.Fprintf(buf, "$%d\r\n", len(f))
	buf.Write(f)
	buf.WriteString("\r\n")
}

// Size reports the exact number of bytes Encode would write for rec,
// without writing anything.
func Size(rec Record) int64 {
	n := int64(len(fmt.Sprintf("*%d\r\n", len(rec.Fields)+1)))
	n += fieldSize([]byte(rec.Opcode))
	for _, f := range rec.Fields {
		n += fieldSize(f)
	}
	return n
}

func fieldSize(f []byte) int64 {
	return int64(len(fmt.Sprintf("$%d\r\n", len(f)))) + int64(len(f)) + 2
}

// Decode reads one record from r. It returns the decoded record, the exact
// number of bytes consumed, and an error.
//
// A clean end of stream (no bytes read at all) is reported as io.EOF. Any
// other failure — a header read partway through, a length that overruns
// the stream, a missing "\r\n" terminator, a malformed length field —
// is reported as ErrTruncated or ErrMalformed. Both are recoverable: the
// caller's job is to truncate the file back to the last successfully
// decoded record's end.
func Decode(r *bufio.Reader) (Record, int64, error) {
	var size int64

	line, err := readLine(r)
	if err != nil {
		return Record{}, 0, err
	}
	size += int64(len(line) + 2)

	if len(line) == 0 || line[0] != '*' {
		return Record{}, 0, ErrMalformed
	}
	n, err := strconv.Atoi(line[1:])
	if err != nil || n < 1 {
		return Record{}, 0, ErrMalformed
	}

	fields := make([][]byte, n)
	for i := 0; i < n; i++ {
		fline, err := readLine(r)
		if err != nil {
			return Record{}, 0, truncate(err)
		}
		size += int64(len(fline) + 2)

		if len(fline) == 0 || fline[0] != '$' {
			return Record{}, 0, ErrMalformed
		}
		flen, err := strconv.Atoi(fline[1:])
		if err != nil || flen < 0 {
			return Record{}, 0, ErrMalformed
		}

		buf := make([]byte, flen)
		if _, err := io.ReadFull(r, buf); err != nil {
			return Record{}, 0, ErrTruncated
		}
		size += int64(flen)

		var term [2]byte
		if _, err := io.ReadFull(r, term[:]); err != nil {
			return Record{}, 0, ErrTruncated
		}
		if term[0] != '\r' || term[1] != '\n' {
			return Record{}, 0, ErrMalformed
		}
		size += 2

		fields[i] = buf
	}

	return Record{Opcode: string(fields[0]), Fields: fields[1:]}, size, nil
}

// readLine reads one "<content>\r\n" line and returns content with the
// terminator stripped. A clean EOF before any byte is read is reported as
// io.EOF; a partial line is reported as ErrTruncated.
func readLine(r *bufio.Reader) (string, error) {
	line, err := r.ReadString('\n')
	if err != nil {
		if err == io.EOF && line == "" {
			return "", io.EOF
		}
		return "", ErrTruncated
	}
	if len(line) < 2 || line[len(line)-2] != '\r' {
		return "", ErrMalformed
	}
	return line[:len(line)-2], nil
}

func truncate(err error) error {
	if err == io.EOF {
		return ErrTruncated
	}
	return err
}

// --- field codecs shared by header, entry and vote records ---

// FormatUint renders u as a decimal field.
func FormatUint(u uint64) []byte { return []byte(strconv.FormatUint(u, 10)) }

// ParseUint parses a decimal field written by FormatUint.
func ParseUint(b []byte) (uint64, error) { return strconv.ParseUint(string(b), 10, 64) }

// FormatInt32 renders v (which may be negative, e.g. the "no vote"
// sentinel) as a decimal field.
func FormatInt32(v int32) []byte { return []byte(strconv.FormatInt(int64(v), 10)) }

// ParseInt32 parses a signed decimal field written by FormatInt32.
func ParseInt32(b []byte) (int32, error) {
	n, err := strconv.ParseInt(string(b), 10, 32)
	return int32(n), err
}

// NewHeader builds a RAFTLOG header record.
func NewHeader(dbid string, nodeID, snapBaseIndex, snapBaseTerm uint64) Record {
	return Record{
		Opcode: OpHeader,
		Fields: [][]byte{
			[]byte(HeaderVersion),
			[]byte(dbid),
			FormatUint(nodeID),
			FormatUint(snapBaseIndex),
			FormatUint(snapBaseTerm),
		},
	}
}

// ParseHeader extracts the fields of a RAFTLOG header record.
func ParseHeader(rec Record) (version, dbid string, nodeID, snapBaseIndex, snapBaseTerm uint64, err error) {
	if rec.Opcode != OpHeader || len(rec.Fields) != 5 {
		return "", "", 0, 0, 0, ErrMalformed
	}
	version = string(rec.Fields[0])
	dbid = string(rec.Fields[1])
	if nodeID, err = ParseUint(rec.Fields[2]); err != nil {
		return "", "", 0, 0, 0, ErrMalformed
	}
	if snapBaseIndex, err = ParseUint(rec.Fields[3]); err != nil {
		return "", "", 0, 0, 0, ErrMalformed
	}
	if snapBaseTerm, err = ParseUint(rec.Fields[4]); err != nil {
		return "", "", 0, 0, 0, ErrMalformed
	}
	return version, dbid, nodeID, snapBaseIndex, snapBaseTerm, nil
}

// NewEntry builds an ENTRY record.
func NewEntry(term uint64, id uint32, typ int32, payload []byte) Record {
	return Record{
		Opcode: OpEntry,
		Fields: [][]byte{
			FormatUint(term),
			FormatUint(uint64(id)),
			FormatInt32(typ),
			payload,
		},
	}
}

// ParseEntry extracts the fields of an ENTRY record.
func ParseEntry(rec Record) (term uint64, id uint32, typ int32, payload []byte, err error) {
	if rec.Opcode != OpEntry || len(rec.Fields) != 4 {
		return 0, 0, 0, nil, ErrMalformed
	}
	if term, err = ParseUint(rec.Fields[0]); err != nil {
		return 0, 0, 0, nil, ErrMalformed
	}
	id64, err := ParseUint(rec.Fields[1])
	if err != nil {
		return 0, 0, 0, nil, ErrMalformed
	}
	if typ, err = ParseInt32(rec.Fields[2]); err != nil {
		return 0, 0, 0, nil, ErrMalformed
	}
	return term, uint32(id64), typ, rec.Fields[3], nil
}

// NewVote builds a VOTE record.
func NewVote(term uint64, vote int32) Record {
	return Record{
		Opcode: OpVote,
		Fields: [][]byte{FormatUint(term), FormatInt32(vote)},
	}
}

// ParseVote extracts the fields of a VOTE record.
func ParseVote(rec Record) (term uint64, vote int32, err error) {
	if rec.Opcode != OpVote || len(rec.Fields) != 2 {
		return 0, 0, ErrMalformed
	}
	if term, err = ParseUint(rec.Fields[0]); err != nil {
		return 0, 0, ErrMalformed
	}
	if vote, err = ParseInt32(rec.Fields[1]); err != nil {
		return 0, 0, ErrMalformed
	}
	return term, vote, nil
}

// NewEnd builds the END sentinel record.
func NewEnd() Record { return Record{Opcode: OpEnd} }
