// Package file implements a local filesystem-backed data source.
package file

import (
	"context"
	"fmt"
	"io"
	"os"
)

// Local is a filesystem data source that opens a file from the local disk.
type Local struct{ path string }

// NewLocal returns a Local data source bound to the provided path. The value
// is safe for concurrent use as long as the path is valid for concurrent
// reads.
func NewLocal(path string) *Local { return &Local{path: path} }

// Path returns the configured filesystem path.
func (l *Local) Path() string { return l.path }

// Open opens the configured path for reading.
//
// A context that is already canceled or past its deadline short-circuits
// without touching the filesystem. Filesystem errors are wrapped with the
// path for context while still permitting errors.Is/As checks by callers
// (e.g. errors.Is(err, os.ErrNotExist)).
func (l *Local) Open(ctx context.Context) (io.ReadCloser, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", l.path, err)
	}
	return f, nil
}

// Size returns the file size in bytes without opening the file for reading.
func (l *Local) Size() (int64, error) {
	fi, err := os.Stat(l.path)
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", l.path, err)
	}
	return fi.Size(), nil
}

// Sample reads up to n bytes from the start of the file. It is the input to
// encoding and delimiter detection; a short file yields a short sample.
func (l *Local) Sample(ctx context.Context, n int) ([]byte, error) {
	rc, err := l.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, n)
	read, err := io.ReadFull(rc, buf)
	if err == io.ErrUnexpectedEOF || err == io.EOF {
		err = nil
	}
	if err != nil {
		return nil, fmt.Errorf("sample %s: %w", l.path, err)
	}
	return buf[:read], nil
}
