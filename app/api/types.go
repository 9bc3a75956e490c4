package api

import (
	"context"

	"github.com/lysyi3m/rss-digest/app/ingest"
)

type Runner interface {
	Trigger(ctx context.Context) error
	LastRun() *ingest.RunSummary
	Running() bool
}

var _ Runner = (*ingest.Pipeline)(nil)

type Handler struct {
	ctx         context.Context
	runner      Runner
	sourceCount int
	version     string
}
