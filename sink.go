package csvtable

import (
	"context"
	"fmt"
)

// ToCSV replaces the content of sink with t, header first.
func ToCSV(ctx context.Context, t Table, sink Sink, opts Options) error {
	return WriteCSV(ctx, t, sink, WriteTruncate, true, opts)
}

// AppendCSV appends the data rows of t to sink. The header is not written,
// since the sink is expected to start with one already.
func AppendCSV(ctx context.Context, t Table, sink Sink, opts Options) error {
	return WriteCSV(ctx, t, sink, WriteAppend, false, opts)
}

// WriteCSV writes t to sink in table order. When writeHeader is false the
// first row of t is consumed and dropped. One handle is opened and released
// per call. A failure midway leaves whatever was already written in place.
func WriteCSV(ctx context.Context, t Table, sink Sink, mode WriteMode, writeHeader bool, opts Options) (err error) {
	codec, err := opts.resolve()
	if err != nil {
		return err
	}

	if mode == WriteAppend && codec != nil {
		codec = codec.appendCodec()
	}

	rows := t
	if !writeHeader {
		rows = Data(t)
	}

	logger := opts.logger().With("sink", resourceName(sink), "mode", mode.String())
	wc, err := sink.OpenWrite(ctx, mode)
	if err != nil {
		return err
	}
	logger.Debug("csv sink opened", "write_header", writeHeader)

	rw := NewRowWriter(wc, opts.Dialect, codec)
	defer func() {
		if cerr := rw.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("flushing csv sink: %w", cerr)
		}
		if cerr := wc.Close(); cerr != nil && err == nil {
			err = &ResourceError{Op: "close", Name: resourceName(sink), Err: cerr}
		}
		logger.Debug("csv sink released", "rows", rw.Rows(), "error", err)
	}()

	for row, rerr := range rows.Rows(ctx) {
		if rerr != nil {
			return rerr
		}
		if err := rw.WriteRow(row); err != nil {
			return err
		}
	}
	return nil
}
