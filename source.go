package csvtable

import (
	"bytes"
	"context"
	"io"
	"os"
)

// WriteMode selects how a Sink opens its handle.
type WriteMode int

const (
	// WriteTruncate replaces any existing content.
	WriteTruncate WriteMode = iota
	// WriteAppend keeps existing content and writes after it.
	WriteAppend
)

// String returns the mode name.
func (m WriteMode) String() string {
	if m == WriteAppend {
		return "append"
	}
	return "truncate"
}

// Source describes where a table's bytes live. OpenRead returns a new handle
// on every call; handles opened from the same Source never interfere.
type Source interface {
	OpenRead(ctx context.Context) (io.ReadCloser, error)
}

// Sink describes where a table's bytes go.
type Sink interface {
	OpenWrite(ctx context.Context, mode WriteMode) (io.WriteCloser, error)
}

// FileSource is a Source and Sink backed by a file on the local filesystem.
type FileSource struct {
	Path string
}

// OpenRead opens the file for reading.
func (s FileSource) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ResourceError{Op: "open", Name: s.Path, Err: err}
	}
	f, err := os.Open(s.Path)
	if err != nil {
		return nil, &ResourceError{Op: "open", Name: s.Path, Err: err}
	}
	return f, nil
}

// OpenWrite creates or opens the file for writing.
func (s FileSource) OpenWrite(ctx context.Context, mode WriteMode) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ResourceError{Op: "create", Name: s.Path, Err: err}
	}
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if mode == WriteAppend {
		flags = os.O_WRONLY | os.O_CREATE | os.O_APPEND
	}
	f, err := os.OpenFile(s.Path, flags, 0o644)
	if err != nil {
		return nil, &ResourceError{Op: "create", Name: s.Path, Err: err}
	}
	return f, nil
}

// Name returns the file path.
func (s FileSource) Name() string {
	return s.Path
}

// MemorySource is a Source and Sink holding its content in memory. Read
// handles see a snapshot taken when they are opened.
type MemorySource struct {
	data []byte
}

// NewMemorySource returns a MemorySource holding a copy of data.
func NewMemorySource(data []byte) *MemorySource {
	return &MemorySource{data: bytes.Clone(data)}
}

// OpenRead returns a reader over the current content.
func (s *MemorySource) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ResourceError{Op: "open", Name: "memory", Err: err}
	}
	return io.NopCloser(bytes.NewReader(s.data[:len(s.data):len(s.data)])), nil
}

// OpenWrite returns a writer whose bytes become visible to new read handles
// as they are written.
func (s *MemorySource) OpenWrite(ctx context.Context, mode WriteMode) (io.WriteCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, &ResourceError{Op: "create", Name: "memory", Err: err}
	}
	if mode == WriteTruncate {
		s.data = nil
	}
	return &memoryWriter{src: s}, nil
}

// Bytes returns a copy of the current content.
func (s *MemorySource) Bytes() []byte {
	return bytes.Clone(s.data)
}

// String returns the current content as a string.
func (s *MemorySource) String() string {
	return string(s.data)
}

// Name identifies the source in logs and errors.
func (s *MemorySource) Name() string {
	return "memory"
}

type memoryWriter struct {
	src    *MemorySource
	closed bool
}

func (w *memoryWriter) Write(p []byte) (int, error) {
	if w.closed {
		return 0, os.ErrClosed
	}
	w.src.data = append(w.src.data, p...)
	return len(p), nil
}

func (w *memoryWriter) Close() error {
	w.closed = true
	return nil
}
