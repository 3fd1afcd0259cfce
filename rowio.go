package csvtable

import (
	"io"

	"golang.org/x/text/encoding"
)

// RowReader yields rows parsed from a handle with a Dialect, decoding the
// handle's bytes first when a Codec is given.
type RowReader struct {
	csv  *Reader
	rows int
}

// NewRowReader creates a RowReader over r. A nil codec reads r as raw UTF-8
// without validation.
func NewRowReader(r io.Reader, d Dialect, c *Codec) *RowReader {
	if c != nil {
		r = c.NewDecodingReader(r)
	}
	cr := NewReader(r)
	d.configureReader(cr)
	return &RowReader{csv: cr}
}

// Read returns the next row, or io.EOF once the input is exhausted. The
// returned Row is never reused by later calls.
func (r *RowReader) Read() (Row, error) {
	record, err := r.csv.Read()
	if err != nil {
		if err == io.EOF {
			return nil, io.EOF
		}
		return nil, atRow(err, r.rows)
	}
	r.rows++
	return Row(record), nil
}

// Rows reports how many rows have been read so far.
func (r *RowReader) Rows() int {
	return r.rows
}

// RowWriter serializes rows to a handle with a Dialect, transcoding them when
// a non-native Codec is given. Every row is pushed through to the handle
// before WriteRow returns.
type RowWriter struct {
	csv   *Writer
	tc    *TranscodingWriter
	codec *Codec
	check *encoding.Encoder
	rows  int
}

// NewRowWriter creates a RowWriter over w. A nil codec writes raw UTF-8
// without validation.
func NewRowWriter(w io.Writer, d Dialect, c *Codec) *RowWriter {
	if c != nil && !c.Native() {
		return &RowWriter{tc: NewTranscodingWriter(w, d, c), codec: c}
	}
	cw := NewWriter(w)
	d.configureWriter(cw)
	rw := &RowWriter{csv: cw, codec: c}
	if c != nil {
		rw.check = c.enc.NewEncoder()
	}
	return rw
}

// WriteRow writes a single row.
func (w *RowWriter) WriteRow(row Row) error {
	if w.tc != nil {
		if err := w.tc.Write(row); err != nil {
			return err
		}
		w.rows++
		return nil
	}
	if w.codec != nil {
		for i, field := range row {
			if err := w.codec.checkField(w.check, field); err != nil {
				return &EncodingError{Encoding: w.codec.name, Row: w.rows, Field: i, Err: err}
			}
		}
	}
	if err := w.csv.Write(row); err != nil {
		return err
	}
	if err := w.csv.Flush(); err != nil {
		return err
	}
	w.rows++
	return nil
}

// WriteRows writes rows in order, stopping at the first error.
func (w *RowWriter) WriteRows(rows []Row) error {
	for _, row := range rows {
		if err := w.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}

// Rows reports how many rows have been written so far.
func (w *RowWriter) Rows() int {
	return w.rows
}

// Close flushes any state held for the stream. It does not close the handle.
// A stream that never received a row stays empty, with no byte order mark.
func (w *RowWriter) Close() error {
	if w.tc != nil {
		if w.rows == 0 {
			return nil
		}
		return w.tc.Flush()
	}
	return w.csv.Flush()
}
