package source

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/transform"

	"github.com/vvka-141/pgload/pkg/pgload"
)

// ctxCheckInterval is how many lines are scanned between context checks.
const ctxCheckInterval = 4096

// Option configures a Reader.
type Option func(*Reader)

// WithDelimiter sets the field separator. Defaults to ",".
func WithDelimiter(d string) Option {
	return func(r *Reader) {
		r.delimiter = d
	}
}

// WithHeader marks the first line of the file as a header that is not a record.
func WithHeader(hasHeader bool) Option {
	return func(r *Reader) {
		r.hasHeader = hasHeader
	}
}

// WithEncoding selects the source text encoding. See decoderFor for accepted names.
func WithEncoding(name string) Option {
	return func(r *Reader) {
		r.encoding = name
	}
}

// Reader reads records from a delimited text file and tracks a line cursor.
type Reader struct {
	name      string
	src       io.ReadSeeker
	closer    io.Closer
	delimiter string
	encoding  string
	hasHeader bool

	newDecoder func() transform.Transformer
	br         *bufio.Reader
	header     []string
	offset     int64
	eof        bool
	closed     bool
}

// Open opens the file at path for reading. The file is never written to.
func Open(path string, opts ...Option) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source %s: %w: %w", path, pgload.ErrSourceIO, err)
	}

	r, err := newReader(path, f, f, opts...)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return r, nil
}

// NewReader wraps an already open stream. Closing the Reader does not close rs.
func NewReader(name string, rs io.ReadSeeker, opts ...Option) (*Reader, error) {
	return newReader(name, rs, nil, opts...)
}

func newReader(name string, rs io.ReadSeeker, closer io.Closer, opts ...Option) (*Reader, error) {
	r := &Reader{
		name:      name,
		src:       rs,
		closer:    closer,
		delimiter: pgload.DefaultDelimiter,
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.delimiter == "" {
		return nil, fmt.Errorf("delimiter cannot be empty: %w", pgload.ErrInvalidConfig)
	}

	dec, err := decoderFor(r.encoding)
	if err != nil {
		return nil, err
	}
	r.newDecoder = dec

	if err := r.loadHeader(); err != nil {
		return nil, err
	}
	if err := r.rewind(); err != nil {
		return nil, err
	}
	return r, nil
}

// loadHeader reads the first line so it is available for prompts and DDL
// derivation whether or not it is later treated as a header.
func (r *Reader) loadHeader() error {
	if err := r.reset(); err != nil {
		return err
	}
	line, ok, err := r.readLine()
	if err != nil {
		return err
	}
	if ok {
		r.header = r.split(line)
	}
	return nil
}

// reset moves the underlying stream to byte 0 with a fresh decoder.
func (r *Reader) reset() error {
	if _, err := r.src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("failed to rewind %s: %w: %w", r.name, pgload.ErrSourceIO, err)
	}
	tr := transform.NewReader(r.src, r.newDecoder())
	if r.br == nil {
		r.br = bufio.NewReaderSize(tr, 64*1024)
	} else {
		r.br.Reset(tr)
	}
	r.offset = 0
	r.eof = false
	return nil
}

// rewind moves the cursor to record offset 0, skipping the header when configured.
func (r *Reader) rewind() error {
	if err := r.reset(); err != nil {
		return err
	}
	if r.hasHeader {
		if _, _, err := r.readLine(); err != nil {
			return err
		}
	}
	return nil
}

// readLine returns the next logical line without its trailing "\r\n" or "\n".
// ok is false once the stream is exhausted. A final empty segment after the
// last newline is not a line.
func (r *Reader) readLine() (line string, ok bool, err error) {
	if r.eof {
		return "", false, nil
	}
	s, err := r.br.ReadString('\n')
	if err != nil {
		if !errors.Is(err, io.EOF) {
			return "", false, fmt.Errorf("failed to read %s: %w: %w", r.name, pgload.ErrSourceIO, err)
		}
		r.eof = true
		if s == "" {
			return "", false, nil
		}
	}
	return strings.TrimRight(s, "\r\n"), true, nil
}

func (r *Reader) split(line string) pgload.Record {
	return strings.Split(line, r.delimiter)
}

func (r *Reader) checkOpen() error {
	if r.closed {
		return fmt.Errorf("source %s is closed: %w", r.name, pgload.ErrSourceIO)
	}
	return nil
}

// CountRecords scans the whole file once and returns the number of data
// records, excluding the header. The cursor is left at record offset 0.
func (r *Reader) CountRecords(ctx context.Context) (int64, error) {
	if err := r.checkOpen(); err != nil {
		return 0, err
	}
	if err := r.rewind(); err != nil {
		return 0, err
	}

	var n int64
	for {
		if n%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		_, ok, err := r.readLine()
		if err != nil {
			return 0, err
		}
		if !ok {
			break
		}
		n++
	}

	if err := r.rewind(); err != nil {
		return 0, err
	}
	return n, nil
}

// SeekToLine positions the cursor so the next ReadBatch starts at record n.
// Seeking to the record count is allowed and leaves the reader exhausted.
// A target beyond that returns pgload.ErrBeyondEOF with the cursor at the end.
func (r *Reader) SeekToLine(ctx context.Context, n int64) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	if n < 0 {
		return fmt.Errorf("seek to %d: %w", n, pgload.ErrInvalidPosition)
	}
	if err := r.rewind(); err != nil {
		return err
	}

	for r.offset < n {
		if r.offset%ctxCheckInterval == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		_, ok, err := r.readLine()
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("seek to %d, file has %d records: %w", n, r.offset, pgload.ErrBeyondEOF)
		}
		r.offset++
	}
	return nil
}

// ReadBatch reads up to max records from the cursor and advances past them.
// It returns fewer records only at end of file, and an empty slice with a nil
// error once the file is exhausted.
func (r *Reader) ReadBatch(ctx context.Context, max int) ([]pgload.Record, error) {
	if err := r.checkOpen(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if max <= 0 {
		return []pgload.Record{}, nil
	}

	records := make([]pgload.Record, 0, max)
	for len(records) < max {
		line, ok, err := r.readLine()
		if err != nil {
			return nil, err
		}
		if !ok {
			break
		}
		records = append(records, r.split(line))
		r.offset++
	}
	return records, nil
}

// Offset returns the record offset the next ReadBatch starts at.
func (r *Reader) Offset() int64 {
	return r.offset
}

// HasHeader reports whether the first line is skipped as a header.
func (r *Reader) HasHeader() bool {
	return r.hasHeader
}

// SetHasHeader changes header handling and moves the cursor back to record 0.
func (r *Reader) SetHasHeader(hasHeader bool) error {
	if err := r.checkOpen(); err != nil {
		return err
	}
	r.hasHeader = hasHeader
	return r.rewind()
}

// Header returns the fields of the first line of the file, or nil for an empty file.
func (r *Reader) Header() []string {
	if r.header == nil {
		return nil
	}
	out := make([]string, len(r.header))
	copy(out, r.header)
	return out
}

// Name returns the path or name the reader was opened with.
func (r *Reader) Name() string {
	return r.name
}

// Close releases the file handle. Calling Close more than once is safe.
func (r *Reader) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	if r.closer == nil {
		return nil
	}
	if err := r.closer.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", r.name, err)
	}
	return nil
}
