package output

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/cespare/xxhash/v2"
)

var ErrCorruptRecord = errors.New("corrupt raw record")

// MaxRawRecordSize bounds the payload length a reader will allocate.
const MaxRawRecordSize = 256 << 20

// RawRecord is one entry of a raw log. Skipped counts the sequence numbers
// missing between the previous record and this one.
type RawRecord struct {
	Seq     uint32
	Skipped uint32
	Time    time.Time
	Payload []byte
}

// RawLogReader reads records written by RawLogWriter.
type RawLogReader struct {
	r       io.Reader
	version uint16
	lastSeq uint32
}

func NewRawLogReader(r io.Reader) (*RawLogReader, error) {
	var header [rawFileHeaderSize]byte
	if _, err := io.ReadFull(r, header[:]); err != nil {
		return nil, fmt.Errorf("read rawlog header: %w", err)
	}
	if magic := string(header[:len(RawLogMagic)]); magic != RawLogMagic {
		return nil, fmt.Errorf("unexpected rawlog magic %q", magic)
	}
	version := binary.LittleEndian.Uint16(header[len(RawLogMagic):])
	if version != RawLogVersion {
		return nil, fmt.Errorf("unsupported rawlog version %d", version)
	}
	return &RawLogReader{r: r, version: version}, nil
}

func (l *RawLogReader) Version() uint16 { return l.version }

// Next returns the next record, or io.EOF at the end of the log. A record cut
// short by a crash is treated as the end of the log.
func (l *RawLogReader) Next() (RawRecord, error) {
	var header [rawRecordHeaderSize]byte
	if _, err := io.ReadFull(l.r, header[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return RawRecord{}, io.EOF
		}
		return RawRecord{}, err
	}
	rec := RawRecord{
		Time: time.Unix(0, int64(binary.LittleEndian.Uint64(header[0:8]))),
		Seq:  binary.LittleEndian.Uint32(header[8:12]),
	}
	size := binary.LittleEndian.Uint32(header[12:16])
	sum := binary.LittleEndian.Uint64(header[16:24])
	if size > MaxRawRecordSize {
		return RawRecord{}, fmt.Errorf("%w: record %d claims %d bytes", ErrCorruptRecord, rec.Seq, size)
	}
	rec.Payload = make([]byte, size)
	if _, err := io.ReadFull(l.r, rec.Payload); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			return RawRecord{}, io.EOF
		}
		return RawRecord{}, fmt.Errorf("read payload: %w", err)
	}
	if xxhash.Sum64(rec.Payload) != sum {
		return RawRecord{}, fmt.Errorf("%w: record %d checksum mismatch", ErrCorruptRecord, rec.Seq)
	}
	if rec.Seq > l.lastSeq+1 {
		rec.Skipped = rec.Seq - l.lastSeq - 1
	}
	l.lastSeq = rec.Seq
	return rec, nil
}
