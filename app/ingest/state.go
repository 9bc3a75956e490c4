package ingest

import (
	"log/slog"
	"time"
)

// State is where a source is in its ingestion.
type State int

const (
	StateFetching State = iota
	StateCutting
	StateExtracting
	StateCapped
	StateErrored
	StateDone
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateCutting:
		return "cutting"
	case StateExtracting:
		return "extracting"
	case StateCapped:
		return "capped"
	case StateErrored:
		return "errored"
	case StateDone:
		return "done"
	default:
		return "unknown"
	}
}

// SourceReport summarises one source's part of a run.
type SourceReport struct {
	Source      string        `json:"source"`
	State       string        `json:"state"`
	Total       int           `json:"total"`
	Scanned     int           `json:"scanned"`
	Extracted   int           `json:"extracted"`
	Elided      int           `json:"elided"`
	Failed      int           `json:"failed"`
	Contributed int           `json:"contributed"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
}

type sourceRun struct {
	report    SourceReport
	state     State
	startedAt time.Time
}

func newSourceRun(source string) *sourceRun {
	return &sourceRun{
		report:    SourceReport{Source: source},
		state:     StateFetching,
		startedAt: time.Now(),
	}
}

func (r *sourceRun) transition(next State) {
	slog.Debug("Source state changed", "source", r.report.Source, "from", r.state, "to", next)
	r.state = next
}

func (r *sourceRun) fail(err error) {
	r.transition(StateErrored)
	r.report.Error = err.Error()
}

// finish moves the run to Done and returns its report.
func (r *sourceRun) finish() SourceReport {
	last := r.state
	r.transition(StateDone)

	r.report.State = StateDone.String()
	if last == StateErrored {
		r.report.State = StateErrored.String()
	}
	r.report.Duration = time.Since(r.startedAt)

	return r.report
}
