// Package arrowtable exposes Apache Arrow tables as csvtable row sources, so
// columnar data can be written or teed to delimited text.
package arrowtable

import (
	"context"
	"iter"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"

	"github.com/oleg578/csvtable"
)

// DefaultChunkSize is the number of rows read per record batch.
const DefaultChunkSize = 1024

// Table is a csvtable.Table over an Arrow table. The header row holds the
// schema field names; data cells are rendered with the column's ValueStr and
// nulls become empty fields.
type Table struct {
	tbl       arrow.Table
	chunkSize int64
}

// FromArrow wraps tbl. The caller keeps ownership of tbl and must keep it
// alive while the returned table is traversed.
func FromArrow(tbl arrow.Table) *Table {
	return &Table{tbl: tbl, chunkSize: DefaultChunkSize}
}

// WithChunkSize sets how many rows are read per record batch.
func (t *Table) WithChunkSize(n int64) *Table {
	if n > 0 {
		t.chunkSize = n
	}
	return t
}

// Rows yields the header followed by every row of the Arrow table.
func (t *Table) Rows(ctx context.Context) iter.Seq2[csvtable.Row, error] {
	return func(yield func(csvtable.Row, error) bool) {
		fields := t.tbl.Schema().Fields()
		header := make(csvtable.Row, len(fields))
		for i, f := range fields {
			header[i] = f.Name
		}
		if !yield(header, nil) {
			return
		}

		tr := array.NewTableReader(t.tbl, t.chunkSize)
		defer tr.Release()

		for tr.Next() {
			rec := tr.Record()
			cols := rec.Columns()
			for rowIdx := 0; rowIdx < int(rec.NumRows()); rowIdx++ {
				if err := ctx.Err(); err != nil {
					yield(nil, err)
					return
				}
				row := make(csvtable.Row, len(cols))
				for colIdx, col := range cols {
					row[colIdx] = formatValue(col, rowIdx)
				}
				if !yield(row, nil) {
					return
				}
			}
		}
		if err := tr.Err(); err != nil {
			yield(nil, err)
		}
	}
}

// formatValue renders a single cell.
func formatValue(col arrow.Array, pos int) string {
	if col.IsNull(pos) {
		return ""
	}
	switch c := col.(type) {
	case *array.String:
		return c.Value(pos)
	case *array.Binary:
		return string(c.Value(pos))
	default:
		return col.ValueStr(pos)
	}
}
