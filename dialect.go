package csvtable

import (
	"errors"
	"fmt"
)

// QuotingPolicy selects which fields the Writer wraps in quotes.
type QuotingPolicy int

const (
	// QuoteMinimal quotes only fields containing the delimiter, the quote byte or a line break.
	QuoteMinimal QuotingPolicy = iota
	// QuoteAll quotes every field.
	QuoteAll
	// QuoteNonNumeric quotes every field that does not parse as a number.
	QuoteNonNumeric
	// QuoteNone never quotes; special bytes are prefixed with the dialect's Escape byte.
	// Readers treat the quote byte as ordinary data under this policy.
	QuoteNone
)

// String returns the policy name.
func (q QuotingPolicy) String() string {
	switch q {
	case QuoteMinimal:
		return "minimal"
	case QuoteAll:
		return "all"
	case QuoteNonNumeric:
		return "nonnumeric"
	case QuoteNone:
		return "none"
	default:
		return fmt.Sprintf("QuotingPolicy(%d)", int(q))
	}
}

// ErrInvalidDialect is returned when a Dialect cannot be parsed unambiguously.
var ErrInvalidDialect = errors.New("csvtable: invalid dialect")

// Dialect holds the syntactic rules for a delimited text file. Zero-valued
// fields fall back to the Excel dialect. A Dialect is a plain value: copy it
// freely, but do not change one that is already in use by a view.
type Dialect struct {
	// Delimiter separates fields. Default is ','.
	Delimiter byte
	// Quote encloses fields that need quoting. Default is '"'.
	Quote byte
	// Quoting selects which fields are quoted on write.
	Quoting QuotingPolicy
	// Escape prefixes special bytes when Quoting is QuoteNone. Writers add it,
	// readers strip it and keep the byte that follows.
	Escape byte
	// LineTerminator ends each written row. Default is "\r\n". Readers accept
	// "\n", "\r" and "\r\n" regardless.
	LineTerminator string
	// FieldsPerRecord is passed to the Reader: 0 lets ragged rows through,
	// a positive value enforces that width, a negative value locks to the first row.
	FieldsPerRecord int
}

// Excel is the default dialect: comma separated, double quotes, CRLF rows.
var Excel = Dialect{Delimiter: ',', Quote: '"', LineTerminator: "\r\n"}

// ExcelTab is Excel with tab separated fields.
var ExcelTab = Dialect{Delimiter: '\t', Quote: '"', LineTerminator: "\r\n"}

// Unix quotes every field and ends rows with "\n".
var Unix = Dialect{Delimiter: ',', Quote: '"', Quoting: QuoteAll, LineTerminator: "\n"}

// DefaultDialect returns the Excel dialect.
func DefaultDialect() Dialect {
	return Excel
}

func (d Dialect) withDefaults() Dialect {
	if d.Delimiter == 0 {
		d.Delimiter = Excel.Delimiter
	}
	if d.Quote == 0 {
		d.Quote = Excel.Quote
	}
	if d.LineTerminator == "" {
		d.LineTerminator = Excel.LineTerminator
	}
	return d
}

// Validate reports whether the delimiter and quote bytes can be told apart from
// each other and from line breaks.
func (d Dialect) Validate() error {
	d = d.withDefaults()
	switch {
	case d.Delimiter == '\r' || d.Delimiter == '\n':
		return fmt.Errorf("%w: delimiter %q is a line break", ErrInvalidDialect, d.Delimiter)
	case d.Quote == '\r' || d.Quote == '\n':
		return fmt.Errorf("%w: quote %q is a line break", ErrInvalidDialect, d.Quote)
	case d.Delimiter == d.Quote:
		return fmt.Errorf("%w: delimiter and quote are both %q", ErrInvalidDialect, d.Delimiter)
	case d.Escape != 0 && (d.Escape == d.Delimiter || d.Escape == d.Quote):
		return fmt.Errorf("%w: escape %q collides with delimiter or quote", ErrInvalidDialect, d.Escape)
	case d.Quoting < QuoteMinimal || d.Quoting > QuoteNone:
		return fmt.Errorf("%w: unknown quoting policy %v", ErrInvalidDialect, d.Quoting)
	}
	return nil
}

// configureReader applies the dialect to a Reader.
func (d Dialect) configureReader(r *Reader) {
	d = d.withDefaults()
	r.Comma = d.Delimiter
	r.Quote = d.Quote
	if d.Quoting == QuoteNone {
		r.DisableQuoting = true
		r.Escape = d.Escape
	}
	r.FieldsPerRecord = d.FieldsPerRecord
}

// configureWriter applies the dialect to a Writer.
func (d Dialect) configureWriter(w *Writer) {
	d = d.withDefaults()
	w.Comma = d.Delimiter
	w.Quote = d.Quote
	w.Quoting = d.Quoting
	w.Escape = d.Escape
	w.LineTerminator = d.LineTerminator
}
