package csvtable

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

// Compression identifies a stream compression format.
type Compression int

// Supported compression formats.
const (
	CompressionNone Compression = iota
	CompressionGzip
	CompressionZstd
	CompressionSnappy
)

// String returns the conventional file extension without the dot.
func (c Compression) String() string {
	switch c {
	case CompressionGzip:
		return "gz"
	case CompressionZstd:
		return "zst"
	case CompressionSnappy:
		return "sz"
	default:
		return "none"
	}
}

// DetectCompression picks a compression format from a file name extension.
func DetectCompression(name string) Compression {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".gz", ".gzip":
		return CompressionGzip
	case ".zst", ".zstd":
		return CompressionZstd
	case ".sz", ".snappy":
		return CompressionSnappy
	default:
		return CompressionNone
	}
}

// SourceSink is implemented by descriptors that can be both read and written.
type SourceSink interface {
	Source
	Sink
}

// OpenFile returns a file descriptor for path, transparently compressed when
// the extension names a known format.
func OpenFile(path string) SourceSink {
	src := FileSource{Path: path}
	if c := DetectCompression(path); c != CompressionNone {
		return CompressedSource{Inner: src, Compression: c}
	}
	return src
}

// CompressedSource decompresses reads from, and compresses writes to, Inner.
// Appending adds a new compressed stream after the existing one; all three
// formats read concatenated streams back as one.
type CompressedSource struct {
	Inner       SourceSink
	Compression Compression
}

// OpenRead opens Inner and wraps it with a decompressor.
func (s CompressedSource) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	rc, err := s.Inner.OpenRead(ctx)
	if err != nil {
		return nil, err
	}

	var dec io.Reader
	release := func() error { return nil }
	switch s.Compression {
	case CompressionGzip:
		zr, err := gzip.NewReader(rc)
		if err != nil {
			rc.Close()
			return nil, &ResourceError{Op: "open", Name: s.Name(), Err: err}
		}
		dec, release = zr, zr.Close
	case CompressionZstd:
		zr, err := zstd.NewReader(rc, zstd.WithDecoderConcurrency(1))
		if err != nil {
			rc.Close()
			return nil, &ResourceError{Op: "open", Name: s.Name(), Err: err}
		}
		dec = zr
		release = func() error {
			zr.Close()
			return nil
		}
	case CompressionSnappy:
		dec = snappy.NewReader(rc)
	case CompressionNone:
		return rc, nil
	default:
		rc.Close()
		return nil, &ResourceError{Op: "open", Name: s.Name(), Err: errUnknownCompression(s.Compression)}
	}
	return &decompressReader{r: dec, release: release, inner: rc}, nil
}

// OpenWrite opens Inner and wraps it with a compressor. Close flushes the
// compressed stream before closing Inner.
func (s CompressedSource) OpenWrite(ctx context.Context, mode WriteMode) (io.WriteCloser, error) {
	wc, err := s.Inner.OpenWrite(ctx, mode)
	if err != nil {
		return nil, err
	}

	var enc io.WriteCloser
	switch s.Compression {
	case CompressionGzip:
		enc = gzip.NewWriter(wc)
	case CompressionZstd:
		zw, err := zstd.NewWriter(wc, zstd.WithEncoderConcurrency(1))
		if err != nil {
			wc.Close()
			return nil, &ResourceError{Op: "create", Name: s.Name(), Err: err}
		}
		enc = zw
	case CompressionSnappy:
		enc = snappy.NewBufferedWriter(wc)
	case CompressionNone:
		return wc, nil
	default:
		wc.Close()
		return nil, &ResourceError{Op: "create", Name: s.Name(), Err: errUnknownCompression(s.Compression)}
	}
	return &compressWriter{w: enc, inner: wc}, nil
}

// Name returns the inner name.
func (s CompressedSource) Name() string {
	return resourceName(s.Inner)
}

func errUnknownCompression(c Compression) error {
	return fmt.Errorf("csvtable: unknown compression %d", int(c))
}

type decompressReader struct {
	r       io.Reader
	release func() error
	inner   io.Closer
}

func (d *decompressReader) Read(p []byte) (int, error) {
	return d.r.Read(p)
}

func (d *decompressReader) Close() error {
	return errors.Join(d.release(), d.inner.Close())
}

type compressWriter struct {
	w     io.WriteCloser
	inner io.Closer
}

func (c *compressWriter) Write(p []byte) (int, error) {
	return c.w.Write(p)
}

func (c *compressWriter) Close() error {
	return errors.Join(c.w.Close(), c.inner.Close())
}
