package csvtable

import (
	"context"
	"errors"
	"iter"
	"slices"
)

// ErrEmptyTable is returned by Header when a table has no rows at all.
var ErrEmptyTable = errors.New("csvtable: table has no header row")

// Row is an ordered list of field values. Rows handed out by a Table must be
// treated as read-only; Clone before modifying one.
type Row []string

// Clone returns a copy of r that shares no memory with it.
func (r Row) Clone() Row {
	return slices.Clone(r)
}

// Table is a restartable sequence of rows whose first row, by convention, is
// the header. Every call to Rows starts a new, independent traversal. An
// error is yielded at most once and ends the traversal.
type Table interface {
	Rows(ctx context.Context) iter.Seq2[Row, error]
}

// TableFunc adapts a function to the Table interface.
type TableFunc func(ctx context.Context) iter.Seq2[Row, error]

// Rows calls f.
func (f TableFunc) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return f(ctx)
}

type memTable []Row

// FromRows returns a Table over rows held in memory, header first.
func FromRows(rows ...Row) Table {
	return memTable(rows)
}

func (t memTable) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		for _, row := range t {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}

// Header returns the first row of t.
func Header(ctx context.Context, t Table) (Row, error) {
	for row, err := range t.Rows(ctx) {
		if err != nil {
			return nil, err
		}
		return row, nil
	}
	return nil, ErrEmptyTable
}

// Data returns a Table yielding every row of t except the header.
func Data(t Table) Table {
	return TableFunc(func(ctx context.Context) iter.Seq2[Row, error] {
		return func(yield func(Row, error) bool) {
			first := true
			for row, err := range t.Rows(ctx) {
				if err != nil {
					yield(nil, err)
					return
				}
				if first {
					first = false
					continue
				}
				if !yield(row, nil) {
					return
				}
			}
		}
	})
}

// Collect reads every row of t into memory.
func Collect(ctx context.Context, t Table) ([]Row, error) {
	var rows []Row
	for row, err := range t.Rows(ctx) {
		if err != nil {
			return rows, err
		}
		rows = append(rows, row)
	}
	return rows, nil
}
