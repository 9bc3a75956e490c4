package ingest

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/rss-digest/app/delivery"
	"github.com/lysyi3m/rss-digest/app/document"
	"github.com/lysyi3m/rss-digest/app/feed"
	"github.com/lysyi3m/rss-digest/app/metrics"
	"github.com/lysyi3m/rss-digest/app/watermark"
)

const titleDateLayout = "06-01-02"

type PipelineConfig struct {
	Sources     []feed.Source
	Store       watermark.Store
	Coordinator *Coordinator
	Assembler   document.Assembler
	Sink        delivery.Sink
	TitleSuffix string
	Location    *time.Location

	// KeepArtifacts leaves delivered documents in the output directory.
	KeepArtifacts bool
}

// RunSummary describes a finished run for logs and the API.
type RunSummary struct {
	ID         string          `json:"id"`
	Result     string          `json:"result"`
	Title      string          `json:"title,omitempty"`
	Entries    int             `json:"entries"`
	Marks      watermark.Marks `json:"marks,omitempty"`
	Sources    []SourceReport  `json:"sources"`
	Error      string          `json:"error,omitempty"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
}

// Pipeline performs whole runs: load watermarks, ingest, assemble, deliver
// and only then save the new watermarks. Runs never overlap.
type Pipeline struct {
	cfg PipelineConfig
	now func() time.Time

	runMu   sync.Mutex
	running atomic.Bool

	lastMu sync.RWMutex
	last   *RunSummary
}

func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	return &Pipeline{
		cfg: cfg,
		now: time.Now,
	}
}

// Run performs one run. A run with no new entries is a no-op that returns a
// summary with result "empty" and leaves the watermark store untouched.
func (p *Pipeline) Run(ctx context.Context) (*RunSummary, error) {
	if !p.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer p.runMu.Unlock()

	return p.runLocked(ctx)
}

// Trigger claims the run lock and performs the run in the background. It
// returns ErrRunInProgress when another run holds the lock.
func (p *Pipeline) Trigger(ctx context.Context) error {
	if !p.runMu.TryLock() {
		return ErrRunInProgress
	}

	go func() {
		defer p.runMu.Unlock()
		p.runLocked(ctx)
	}()

	return nil
}

func (p *Pipeline) runLocked(ctx context.Context) (*RunSummary, error) {
	p.running.Store(true)
	defer p.running.Store(false)

	summary := &RunSummary{
		ID:        uuid.NewString(),
		StartedAt: p.now(),
	}

	err := p.run(ctx, summary)

	summary.FinishedAt = p.now()
	if err != nil {
		summary.Result = metrics.ResultFailed
		summary.Error = err.Error()
		slog.Error("Run failed", "run", summary.ID, "error", err)
	}

	metrics.Runs.WithLabelValues(summary.Result).Inc()
	metrics.RunDuration.Observe(summary.FinishedAt.Sub(summary.StartedAt).Seconds())
	metrics.LastRunTimestamp.Set(float64(summary.FinishedAt.Unix()))

	p.lastMu.Lock()
	p.last = summary
	p.lastMu.Unlock()

	return summary, err
}

func (p *Pipeline) run(ctx context.Context, summary *RunSummary) error {
	prior := p.cfg.Store.Load(ctx)

	result, err := p.cfg.Coordinator.Ingest(ctx, p.cfg.Sources, prior)
	if err != nil {
		return err
	}

	summary.Sources = result.Reports
	summary.Entries = len(result.Entries)

	if len(result.Entries) == 0 {
		summary.Result = metrics.ResultEmpty
		slog.Info("No new items, nothing to deliver", "run", summary.ID, "sources", len(p.cfg.Sources))
		return nil
	}

	title := p.Title()
	summary.Title = title

	artifact, err := p.cfg.Assembler.Assemble(ctx, title, result.Entries)
	if err != nil {
		return &AssemblyError{Title: title, Err: err}
	}

	slog.Info("Last GUIDs", "run", summary.ID, "marks", result.Marks)

	if err := p.cfg.Sink.Deliver(ctx, artifact); err != nil {
		return &DeliveryError{Artifact: artifact.FileName(), Err: err}
	}
	if !p.cfg.KeepArtifacts {
		removeArtifact(artifact)
	}

	if err := ctx.Err(); err != nil {
		return err
	}

	if err := p.cfg.Store.Save(ctx, result.Marks); err != nil {
		return fmt.Errorf("failed to save watermarks: %w", err)
	}

	summary.Result = metrics.ResultDelivered
	summary.Marks = result.Marks

	slog.Info("Run completed",
		"run", summary.ID,
		"title", title,
		"entries", len(result.Entries),
		"artifact", artifact.FileName())

	return nil
}

// A failed delivery leaves the artifact in place for inspection. The next
// run on the same day overwrites it.
func removeArtifact(artifact *document.Artifact) {
	if err := os.Remove(artifact.Path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("Failed to remove delivered artifact", "path", artifact.Path, "error", err)
	}
}

// Title is the document title for a run happening now.
func (p *Pipeline) Title() string {
	return p.now().In(p.cfg.Location).Format(titleDateLayout) + " " + p.cfg.TitleSuffix
}

func (p *Pipeline) LastRun() *RunSummary {
	p.lastMu.RLock()
	defer p.lastMu.RUnlock()
	return p.last
}

func (p *Pipeline) Running() bool {
	return p.running.Load()
}
