package csvtable

import (
	"context"
	"io"
	"iter"
)

// View is a Table read from delimited text. It keeps only a description of
// where the text lives; every traversal opens and parses the source afresh,
// so two traversals of an unchanged source yield the same rows.
type View struct {
	src  Source
	opts Options
}

// FromCSV returns a View over src. No I/O happens until the view is traversed.
func FromCSV(src Source, opts Options) *View {
	return &View{src: src, opts: opts}
}

// Rows opens the source, yields every parsed row (header included) in source
// order and releases the handle when the traversal ends, fails or is abandoned.
func (v *View) Rows(ctx context.Context) iter.Seq2[Row, error] {
	return func(yield func(Row, error) bool) {
		codec, err := v.opts.resolve()
		if err != nil {
			yield(nil, err)
			return
		}

		logger := v.opts.logger().With("source", resourceName(v.src))
		rc, err := v.src.OpenRead(ctx)
		if err != nil {
			yield(nil, err)
			return
		}
		logger.Debug("csv view opened")

		rr := NewRowReader(rc, v.opts.Dialect, codec)
		defer func() {
			if err := rc.Close(); err != nil {
				logger.Warn("failed to release csv source", "error", err)
			}
			logger.Debug("csv view released", "rows", rr.Rows())
		}()

		for {
			if err := ctx.Err(); err != nil {
				yield(nil, err)
				return
			}
			row, err := rr.Read()
			if err == io.EOF {
				return
			}
			if err != nil {
				yield(nil, err)
				return
			}
			if !yield(row, nil) {
				return
			}
		}
	}
}
