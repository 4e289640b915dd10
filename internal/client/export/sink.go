// Package export stores files produced by the console, either in a local
// directory or in an S3-compatible bucket.
package export

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/userconsole/internal/filex"
)

// Sink saves one named file. It returns where the file ended up.
type Sink interface {
	Save(ctx context.Context, name string, data []byte) (string, error)
}

// FileSink writes into Dir, creating it when needed.
type FileSink struct {
	Dir string
}

var _ Sink = (*FileSink)(nil)

func NewFileSink(dir string) *FileSink {
	return &FileSink{Dir: dir}
}

func (s *FileSink) Save(_ context.Context, name string, data []byte) (string, error) {
	path, err := filex.WriteFileAtomic(s.Dir, name, data)
	if err != nil {
		return "", fmt.Errorf("save %s: %w", name, err)
	}
	return path, nil
}
