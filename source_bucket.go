package csvtable

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/thanos-io/objstore"
)

// BucketSource is a Source and Sink backed by a single object in an object
// storage bucket.
type BucketSource struct {
	Bucket objstore.Bucket
	Object string
}

// OpenRead fetches the object.
func (s BucketSource) OpenRead(ctx context.Context) (io.ReadCloser, error) {
	rc, err := s.Bucket.Get(ctx, s.Object)
	if err != nil {
		return nil, &ResourceError{Op: "get", Name: s.Name(), Err: err}
	}
	return rc, nil
}

// OpenWrite starts an upload of the object. Bytes are streamed to the bucket
// as they are written and the upload completes on Close. Object stores have
// no append, so WriteAppend reads the existing object into memory and
// uploads it again ahead of the new bytes.
func (s BucketSource) OpenWrite(ctx context.Context, mode WriteMode) (io.WriteCloser, error) {
	var prefix io.Reader = bytes.NewReader(nil)
	if mode == WriteAppend {
		existing, err := s.existing(ctx)
		if err != nil {
			return nil, &ResourceError{Op: "get", Name: s.Name(), Err: err}
		}
		prefix = bytes.NewReader(existing)
	}

	pr, pw := io.Pipe()
	done := make(chan error, 1)
	go func() {
		err := s.Bucket.Upload(ctx, s.Object, io.MultiReader(prefix, pr))
		// Unblock any pending Write if the upload gave up early.
		pr.CloseWithError(err)
		done <- err
	}()
	return &bucketWriter{pw: pw, done: done, name: s.Name()}, nil
}

func (s BucketSource) existing(ctx context.Context) ([]byte, error) {
	rc, err := s.Bucket.Get(ctx, s.Object)
	if err != nil {
		if s.Bucket.IsObjNotFoundErr(err) {
			return nil, nil
		}
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Name returns the bucket and object names.
func (s BucketSource) Name() string {
	return fmt.Sprintf("%s/%s", s.Bucket.Name(), s.Object)
}

type bucketWriter struct {
	pw     *io.PipeWriter
	done   chan error
	name   string
	closed bool
	err    error
}

func (w *bucketWriter) Write(p []byte) (int, error) {
	return w.pw.Write(p)
}

// Close ends the stream and waits for the upload to finish.
func (w *bucketWriter) Close() error {
	if w.closed {
		return w.err
	}
	w.closed = true
	w.pw.Close()
	if err := <-w.done; err != nil {
		w.err = &ResourceError{Op: "upload", Name: w.name, Err: err}
	}
	return w.err
}
