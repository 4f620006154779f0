package table

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/biogo/hts/bgzf"
	"github.com/klauspost/pgzip"
)

var (
	ErrEmpty   = errors.New("file is empty")
	ErrNotGzip = errors.New("file is not gzip-compressed")
)

var gzipMagic = []byte{0x1f, 0x8b}

// Sniff peeks the head of r and reports whether it starts with the gzip magic bytes.
//
// The returned reader replays the peeked bytes. An empty stream is ErrEmpty.
func Sniff(r io.Reader) (io.Reader, bool, error) {
	br := bufio.NewReader(r)
	head, err := br.Peek(len(gzipMagic))
	if len(head) == 0 {
		if err == nil || errors.Is(err, io.EOF) {
			return br, false, ErrEmpty
		}
		return br, false, err
	}
	return br, bytes.Equal(head, gzipMagic), nil
}

// Decompress returns the decompressed stream of r.
//
// It requires the magic bytes; file names are not trusted.
func Decompress(r io.Reader) (io.ReadCloser, error) {
	br, gz, err := Sniff(r)
	if err != nil {
		return nil, err
	}
	if !gz {
		return nil, ErrNotGzip
	}
	zr, err := pgzip.NewReader(br)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrNotGzip, err)
	}
	return zr, nil
}

// ParseError tells which separator was tried when the content can not be read as a table.
type ParseError struct {
	Separator rune
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("can not be parsed with separator %q: %s", e.Separator, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// Parse reads delimited text with a header line.
func Parse(r io.Reader, sep rune) (*Table, error) {
	cr := csv.NewReader(r)
	cr.Comma = sep
	cr.FieldsPerRecord = 0

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, ErrEmpty
	}
	if err != nil {
		return nil, &ParseError{Separator: sep, Err: err}
	}

	t := New(header...)
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, &ParseError{Separator: sep, Err: err}
		}
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// ReadGzip decompresses and parses r.
func ReadGzip(r io.Reader, sep rune) (*Table, error) {
	zr, err := Decompress(r)
	if err != nil {
		return nil, err
	}
	defer zr.Close()
	return Parse(zr, sep)
}

// Write writes t as delimited text with a header line.
func (t *Table) Write(w io.Writer, sep rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = sep
	if err := cw.Write(t.Header); err != nil {
		return err
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

// WriteGzip writes t gzip-compressed.
func (t *Table) WriteGzip(w io.Writer, sep rune) error {
	zw := pgzip.NewWriter(w)
	if err := t.Write(zw, sep); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// WriteBGZF writes t in blocked gzip, which is still a valid gzip stream.
func (t *Table) WriteBGZF(w io.Writer, sep rune) error {
	zw := bgzf.NewWriter(w, 1)
	if err := t.Write(zw, sep); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// EncodeGzip is WriteGzip into memory.
func (t *Table) EncodeGzip(sep rune) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := t.WriteGzip(buf, sep); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
