// Package datasource defines the minimal contract a profiling input must
// satisfy. Concrete sources (local files, HTTP) live in subpackages.
package datasource

import (
	"context"
	"io"
)

// Source opens a forward-only byte stream over the input. A profiling run
// opens the source twice: once for the sniffing sample and once for the
// full pass.
type Source interface {
	Open(ctx context.Context) (io.ReadCloser, error)
}
