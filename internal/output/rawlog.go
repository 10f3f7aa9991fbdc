package output

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

// Raw log layout:
//
//	file:   "DEPTHRAW" u16 version
//	record: u64 unix nanos | u32 sequence | u32 length | u64 xxhash64(payload) | payload
//
// All integers are little endian. Sequence numbers start at 1 and let a
// reader spot records lost to a crash mid-write.
const (
	RawLogMagic   = "DEPTHRAW"
	RawLogVersion = 1

	rawFileHeaderSize   = len(RawLogMagic) + 2
	rawRecordHeaderSize = 8 + 4 + 4 + 8
)

var ErrRawLogClosed = errors.New("raw log writer is closed")

// RawLogWriter appends every received stream payload to a raw log file. It is
// safe for use by the ingest goroutine and a concurrent Close.
type RawLogWriter struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	seq  uint32
	now  func() time.Time
	path string
}

func NewRawLogWriter(outputDir string, prefix string) (*RawLogWriter, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, fmt.Sprintf("%s_%s.bin", time.Now().Format("20060102_150405"), prefix))
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	r := &RawLogWriter{f: f, w: bufio.NewWriterSize(f, 1<<20), now: time.Now, path: path}

	var header [rawFileHeaderSize]byte
	copy(header[:], RawLogMagic)
	binary.LittleEndian.PutUint16(header[len(RawLogMagic):], RawLogVersion)
	if _, err := r.w.Write(header[:]); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := r.w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// Record appends one payload and flushes it, so a dump of a live file sees
// every complete record.
func (r *RawLogWriter) Record(payload []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return ErrRawLogClosed
	}
	r.seq++
	var header [rawRecordHeaderSize]byte
	binary.LittleEndian.PutUint64(header[0:8], uint64(r.now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], r.seq)
	binary.LittleEndian.PutUint32(header[12:16], uint32(len(payload)))
	binary.LittleEndian.PutUint64(header[16:24], xxhash.Sum64(payload))
	if _, err := r.w.Write(header[:]); err != nil {
		return fmt.Errorf("raw record %d: %w", r.seq, err)
	}
	if _, err := r.w.Write(payload); err != nil {
		return fmt.Errorf("raw record %d: %w", r.seq, err)
	}
	return r.w.Flush()
}

// Records is the number of payloads written so far.
func (r *RawLogWriter) Records() uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.seq
}

func (r *RawLogWriter) Path() string { return r.path }

func (r *RawLogWriter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.w == nil {
		return nil
	}
	flushErr := r.w.Flush()
	r.w = nil
	return errors.Join(flushErr, r.f.Close())
}
