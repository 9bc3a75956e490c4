// Package delivery hands a finished document to its destination.
package delivery

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/lysyi3m/rss-digest/app/document"
)

// DefaultFolder is where digests land on the reading device.
const DefaultFolder = "Feeds"

type Sink interface {
	Deliver(ctx context.Context, artifact *document.Artifact) error
}

const (
	KindDir = "dir"
	KindS3  = "s3"
)

type Options struct {
	Dir       string
	Bucket    string
	Prefix    string
	Region    string
	Profile   string
	PathStyle bool
}

// NewSink builds the sink of the given kind.
func NewSink(ctx context.Context, kind string, opts Options) (Sink, error) {
	switch kind {
	case KindDir:
		if opts.Dir == "" {
			return nil, fmt.Errorf("sink directory is required")
		}
		return NewDirSink(filepath.Join(opts.Dir, DefaultFolder)), nil
	case KindS3:
		return NewS3Sink(ctx, S3Config{
			Bucket:       opts.Bucket,
			Prefix:       opts.Prefix,
			Region:       opts.Region,
			Profile:      opts.Profile,
			UsePathStyle: opts.PathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown sink '%s'", kind)
	}
}
