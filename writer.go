package csvtable

import (
	"bufio"
	"errors"
	"io"
	"strconv"
)

var (
	errNilWriter      = errors.New("csvtable: writer is nil")
	errWriterNoTarget = errors.New("csvtable: writer destination cannot be nil")

	// ErrNeedEscape is returned when QuoteNone is in effect, no Escape byte is set,
	// and a field contains a byte that would otherwise require quoting.
	ErrNeedEscape = errors.New("csvtable: need to escape, but no escape byte set")
	// ErrLoneEmptyField is returned when QuoteNone is in effect and a record holds a
	// single empty field, which could only be written as a blank line.
	ErrLoneEmptyField = errors.New("csvtable: single empty field record must be quoted")
)

// Writer provides high-throughput CSV emission with configurable delimiters and quoting rules.
type Writer struct {
	dst *bufio.Writer

	// Comma is the field delimiter. Default is ','.
	Comma byte
	// Quote is the quote character. Default is '"'.
	Quote byte
	// Quoting selects when fields are quoted. Default is QuoteMinimal.
	Quoting QuotingPolicy
	// Escape prefixes special bytes when Quoting is QuoteNone. Zero disables escaping.
	Escape byte
	// LineTerminator ends every record. Empty means "\n", or "\r\n" when UseCRLF is set.
	LineTerminator string
	// UseCRLF writes records terminated with \r\n when set and LineTerminator is empty.
	UseCRLF bool

	err error
}

// NewWriter creates a new Writer with internal buffering tuned for bulk writes.
func NewWriter(w io.Writer) *Writer {
	if w == nil {
		panic(errWriterNoTarget.Error())
	}
	return &Writer{
		dst:   bufio.NewWriterSize(w, defaultBufferSize),
		Comma: ',',
		Quote: '"',
	}
}

// Reset updates the underlying writer while preserving the configuration flags.
func (w *Writer) Reset(dst io.Writer) {
	if w == nil {
		panic(errNilWriter.Error())
	}
	if dst == nil {
		panic(errWriterNoTarget.Error())
	}
	if w.dst == nil {
		w.dst = bufio.NewWriterSize(dst, defaultBufferSize)
	} else {
		w.dst.Reset(dst)
	}
	w.err = nil
}

// Write emits a single CSV record. The record is terminated with the configured newline sequence.
func (w *Writer) Write(record []string) error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}

	comma := w.Comma
	if comma == 0 {
		comma = ','
	}
	quote := w.Quote
	if quote == 0 {
		quote = '"'
	}

	// Reject unescapable records up front so no partial record reaches dst.
	if w.Quoting == QuoteNone && len(record) == 1 && record[0] == "" {
		return ErrLoneEmptyField
	}
	if w.Quoting == QuoteNone && w.Escape == 0 {
		for i := range record {
			if fieldNeedsQuote(record[i], comma, quote) {
				return ErrNeedEscape
			}
		}
	}

	// A lone empty field is quoted, or it would read back as a blank line.
	if len(record) == 1 && record[0] == "" && w.Quoting == QuoteMinimal {
		if _, err := w.dst.Write([]byte{quote, quote}); err != nil {
			w.err = err
			return err
		}
		record = nil
	}

	for i := range record {
		if i > 0 {
			if err := w.dst.WriteByte(comma); err != nil {
				w.err = err
				return err
			}
		}
		if err := w.writeField(record[i], comma, quote); err != nil {
			w.err = err
			return err
		}
	}

	if _, err := w.dst.WriteString(w.terminator()); err != nil {
		w.err = err
		return err
	}
	return nil
}

// WriteAll writes multiple records, stopping at the first error.
func (w *Writer) WriteAll(records [][]string) error {
	if w == nil {
		return errNilWriter
	}
	for _, record := range records {
		if err := w.Write(record); err != nil {
			return err
		}
	}
	return nil
}

// Flush flushes pending buffered data to the underlying writer.
func (w *Writer) Flush() error {
	if w == nil {
		return errNilWriter
	}
	if w.dst == nil {
		return errWriterNoTarget
	}
	if w.err != nil {
		return w.err
	}
	if err := w.dst.Flush(); err != nil {
		w.err = err
		return err
	}
	return nil
}

// Error reports the first error encountered by the writer.
func (w *Writer) Error() error {
	if w == nil {
		return errNilWriter
	}
	return w.err
}

func (w *Writer) terminator() string {
	switch {
	case w.LineTerminator != "":
		return w.LineTerminator
	case w.UseCRLF:
		return "\r\n"
	default:
		return "\n"
	}
}

func (w *Writer) writeField(field string, comma, quote byte) error {
	var needsQuote bool
	switch w.Quoting {
	case QuoteAll:
		needsQuote = true
	case QuoteNonNumeric:
		needsQuote = !isNumeric(field) || fieldNeedsQuote(field, comma, quote)
	case QuoteNone:
		return w.writeEscaped(field, comma, quote)
	default:
		needsQuote = fieldNeedsQuote(field, comma, quote)
	}
	if !needsQuote {
		_, err := w.dst.WriteString(field)
		return err
	}
	if err := w.dst.WriteByte(quote); err != nil {
		return err
	}

	start := 0
	for i := 0; i < len(field); i++ {
		if field[i] == quote {
			if start < i {
				if _, err := w.dst.WriteString(field[start:i]); err != nil {
					return err
				}
			}
			if _, err := w.dst.Write([]byte{quote, quote}); err != nil {
				return err
			}
			start = i + 1
		}
	}
	if start < len(field) {
		if _, err := w.dst.WriteString(field[start:]); err != nil {
			return err
		}
	}
	if err := w.dst.WriteByte(quote); err != nil {
		return err
	}
	return nil
}

// writeEscaped emits field without quotes, prefixing special bytes with Escape.
func (w *Writer) writeEscaped(field string, comma, quote byte) error {
	esc := w.Escape
	if esc == 0 {
		_, err := w.dst.WriteString(field)
		return err
	}

	start := 0
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case quote, comma, esc, '\n', '\r':
		default:
			continue
		}
		if start < i {
			if _, err := w.dst.WriteString(field[start:i]); err != nil {
				return err
			}
		}
		if _, err := w.dst.Write([]byte{esc, field[i]}); err != nil {
			return err
		}
		start = i + 1
	}
	if start < len(field) {
		if _, err := w.dst.WriteString(field[start:]); err != nil {
			return err
		}
	}
	return nil
}

func fieldNeedsQuote(field string, comma, quote byte) bool {
	for i := 0; i < len(field); i++ {
		switch field[i] {
		case quote, comma, '\n', '\r':
			return true
		}
	}
	return false
}

// isNumeric reports whether field parses as a float, the way QuoteNonNumeric decides.
func isNumeric(field string) bool {
	if field == "" {
		return false
	}
	_, err := strconv.ParseFloat(field, 64)
	return err == nil
}
