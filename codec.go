package csvtable

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/htmlindex"
	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/encoding/unicode"
	"golang.org/x/text/transform"
)

// DefaultEncoding is used when an encoding is requested without a name.
const DefaultEncoding = "utf-8"

// aliases covers names whose common meaning differs from the WHATWG index,
// such as latin-1, which htmlindex maps to windows-1252.
var aliases = map[string]encoding.Encoding{
	"utf-8":      unicode.UTF8,
	"utf8":       unicode.UTF8,
	"utf-8-sig":  unicode.UTF8BOM,
	"utf_8_sig":  unicode.UTF8BOM,
	"latin-1":    charmap.ISO8859_1,
	"latin1":     charmap.ISO8859_1,
	"iso-8859-1": charmap.ISO8859_1,
	"utf-16":     unicode.UTF16(unicode.LittleEndian, unicode.UseBOM),
	"utf-16le":   unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM),
	"utf-16be":   unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM),
}

// Codec bridges a text encoding and the UTF-8 bytes the Reader and Writer
// operate on. A Codec holds no per-stream state and may be shared; every
// reader or writer built from it gets its own transformer.
type Codec struct {
	name string
	enc  encoding.Encoding
}

// LookupCodec resolves an encoding name. The empty name means DefaultEncoding.
func LookupCodec(name string) (*Codec, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		key = DefaultEncoding
	}
	if enc, ok := aliases[key]; ok {
		return &Codec{name: key, enc: enc}, nil
	}
	if enc, err := htmlindex.Get(key); err == nil {
		return &Codec{name: key, enc: enc}, nil
	}
	if enc, err := ianaindex.IANA.Encoding(key); err == nil && enc != nil {
		return &Codec{name: key, enc: enc}, nil
	}
	return nil, &EncodingError{Encoding: name, Row: -1, Field: -1, Err: ErrUnknownEncoding}
}

// Name returns the name the codec was looked up with, lower-cased.
func (c *Codec) Name() string {
	return c.name
}

// Native reports whether the encoding is plain UTF-8, in which case rows are
// parsed and serialized directly without transcoding.
func (c *Codec) Native() bool {
	return c.enc == unicode.UTF8
}

// appendCodec returns c without a byte order mark on write. Appended bytes
// follow content that already starts with one, and a second mark would
// decode as data.
func (c *Codec) appendCodec() *Codec {
	var enc encoding.Encoding
	switch c.enc {
	case unicode.UTF8BOM:
		enc = unicode.UTF8
	case unicode.UTF16(unicode.LittleEndian, unicode.UseBOM), unicode.UTF16(unicode.LittleEndian, unicode.ExpectBOM):
		enc = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)
	case unicode.UTF16(unicode.BigEndian, unicode.UseBOM), unicode.UTF16(unicode.BigEndian, unicode.ExpectBOM):
		enc = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)
	default:
		return c
	}
	return &Codec{name: c.name, enc: enc}
}

// NewDecodingReader returns a reader yielding the UTF-8 form of r's bytes.
// Undecodable input fails with an *EncodingError; errors from r itself are
// returned unchanged.
func (c *Codec) NewDecodingReader(r io.Reader) io.Reader {
	var t transform.Transformer = encoding.UTF8Validator
	if !c.Native() {
		t = c.enc.NewDecoder()
	}
	return &decodingReader{
		r:    transform.NewReader(&sourceReader{r: r}, t),
		name: c.name,
	}
}

// checkField reports whether s can be written in the codec's encoding, using
// enc as a scratch encoder.
func (c *Codec) checkField(enc *encoding.Encoder, s string) error {
	if !utf8.ValidString(s) {
		return encoding.ErrInvalidUTF8
	}
	if c.Native() || isASCII(s) {
		return nil
	}
	if _, err := enc.String(s); err != nil {
		return fmt.Errorf("%w: %w", ErrUnrepresentable, err)
	}
	return nil
}

// sourceError marks a failure of the wrapped source, as opposed to the decoder.
type sourceError struct{ err error }

func (e *sourceError) Error() string { return e.err.Error() }
func (e *sourceError) Unwrap() error { return e.err }

type sourceReader struct{ r io.Reader }

func (s *sourceReader) Read(p []byte) (int, error) {
	n, err := s.r.Read(p)
	if err != nil && err != io.EOF {
		err = &sourceError{err: err}
	}
	return n, err
}

type decodingReader struct {
	r    io.Reader
	name string
}

func (d *decodingReader) Read(p []byte) (int, error) {
	n, err := d.r.Read(p)
	if err == nil || err == io.EOF {
		return n, err
	}
	var srcErr *sourceError
	if errors.As(err, &srcErr) {
		return n, srcErr.err
	}
	return n, &EncodingError{Encoding: d.name, Row: -1, Field: -1, Err: err}
}

// TranscodingWriter writes rows in a non-UTF-8 encoding. Each row is
// serialized into an intermediate buffer, pushed through the writer's
// incremental encoder and the buffer is emptied again, so memory stays at
// one row no matter how many rows are written.
type TranscodingWriter struct {
	codec *Codec
	buf   bytes.Buffer
	csv   *Writer
	out   *transform.Writer
	check *encoding.Encoder
	rows  int
	err   error
}

// NewTranscodingWriter creates a TranscodingWriter that writes encoded rows to dst.
func NewTranscodingWriter(dst io.Writer, d Dialect, c *Codec) *TranscodingWriter {
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	w := &TranscodingWriter{
		codec: c,
		out:   transform.NewWriter(dst, c.enc.NewEncoder()),
		check: c.enc.NewEncoder(),
	}
	w.csv = NewWriter(&w.buf)
	d.configureWriter(w.csv)
	return w
}

// Write encodes and emits a single row. Fields that cannot be represented
// fail with an *EncodingError and nothing of that row is written.
func (w *TranscodingWriter) Write(row []string) error {
	if w.err != nil {
		return w.err
	}
	for i, field := range row {
		if err := w.codec.checkField(w.check, field); err != nil {
			return &EncodingError{Encoding: w.codec.name, Row: w.rows, Field: i, Err: err}
		}
	}

	if err := w.csv.Write(row); err != nil {
		w.buf.Reset()
		return err
	}
	if err := w.csv.Flush(); err != nil {
		w.err = err
		return err
	}
	_, err := w.out.Write(w.buf.Bytes())
	w.buf.Reset()
	if err != nil {
		w.err = &EncodingError{Encoding: w.codec.name, Row: w.rows, Field: -1, Err: err}
		return w.err
	}
	w.rows++
	return nil
}

// WriteAll writes rows in order, stopping at the first error.
func (w *TranscodingWriter) WriteAll(rows [][]string) error {
	for _, row := range rows {
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return nil
}

// Buffered returns the number of serialized bytes waiting to be encoded.
// It is zero between calls to Write.
func (w *TranscodingWriter) Buffered() int {
	return w.buf.Len()
}

// Flush ends the encoded stream, emitting any state the encoder still holds.
// The writer must not be used afterwards.
func (w *TranscodingWriter) Flush() error {
	if w.err != nil {
		return w.err
	}
	if err := w.out.Close(); err != nil {
		w.err = err
		return err
	}
	return nil
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= utf8.RuneSelf {
			return false
		}
	}
	return true
}
