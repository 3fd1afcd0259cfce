package csvtable

import (
	"context"
	"iter"
)

// Tee is a Table that persists every row of an inner table to a sink while
// handing the same rows to its caller. Each traversal rewrites the sink from
// scratch; treat repeated traversals as repeated writes, not as a cache.
type Tee struct {
	table       Table
	sink        Sink
	writeHeader bool
	opts        Options
}

// TeeCSV returns a Tee over t writing to sink. The header row is always
// yielded, but written only when writeHeader is set.
func TeeCSV(t Table, sink Sink, writeHeader bool, opts Options) *Tee {
	return &Tee{table: t, sink: sink, writeHeader: writeHeader, opts: opts}
}

// Rows truncates the sink and yields the rows of the inner table. Every data
// row is written and flushed to the sink handle before it is yielded.
func (t *Tee) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		codec, err := t.opts.resolve()
		if err != nil {
			yield(nil, err)
			return
		}

		logger := t.opts.logger().With("sink", resourceName(t.sink))
		wc, err := t.sink.OpenWrite(ctx, WriteTruncate)
		if err != nil {
			yield(nil, err)
			return
		}
		logger.Debug("csv tee opened", "write_header", t.writeHeader)

		rw := NewRowWriter(wc, t.opts.Dialect, codec)
		release := func() error {
			ferr := rw.Close()
			if cerr := wc.Close(); cerr != nil && ferr == nil {
				ferr = &ResourceError{Op: "close", Name: resourceName(t.sink), Err: cerr}
			}
			logger.Debug("csv tee released", "rows", rw.Rows())
			return ferr
		}
		released := false
		defer func() {
			if released {
				return
			}
			if err := release(); err != nil {
				logger.Warn("failed to release csv tee sink", "error", err)
			}
		}()

		header := true
		for row, err := range t.table.Rows(ctx) {
			if err == nil && (!header || t.writeHeader) {
				err = rw.WriteRow(row)
			}
			header = false
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}

		released = true
		if err := release(); err != nil {
			yield(nil, err)
		}
	}
}
