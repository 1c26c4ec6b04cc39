package pipeline

import "time"

// Run is the record of one seed pipeline run. Reports are attached as
// stages complete; a stage that did not run leaves its report nil.
type Run struct {
	id       string
	started  time.Time
	duration time.Duration
	ingest   *IngestReport
	localize *LocalizeReport
	embed    *EmbedReport
	load     *LoadReport
}

// NewRun creates a Run with the given run ID and start time.
func NewRun(id string, started time.Time) Run {
	return Run{id: id, started: started}
}

// ID returns the run ID.
func (r Run) ID() string { return r.id }

// Started returns when the run began.
func (r Run) Started() time.Time { return r.started }

// Duration returns the wall time of the run, zero until finished.
func (r Run) Duration() time.Duration { return r.duration }

// WithIngest returns a copy with the ingest report attached.
func (r Run) WithIngest(report IngestReport) Run {
	r.ingest = &report
	return r
}

// WithLocalize returns a copy with the localize report attached.
func (r Run) WithLocalize(report LocalizeReport) Run {
	r.localize = &report
	return r
}

// WithEmbed returns a copy with the embed report attached.
func (r Run) WithEmbed(report EmbedReport) Run {
	r.embed = &report
	return r
}

// WithLoad returns a copy with the load report attached.
func (r Run) WithLoad(report LoadReport) Run {
	r.load = &report
	return r
}

// Finish returns a copy with the duration fixed at now minus start.
func (r Run) Finish(now time.Time) Run {
	r.duration = now.Sub(r.started)
	return r
}

// Ingest returns the ingest report, or nil if the stage did not run.
func (r Run) Ingest() *IngestReport { return r.ingest }

// Localize returns the localize report, or nil if the stage did not run.
func (r Run) Localize() *LocalizeReport { return r.localize }

// Embed returns the embed report, or nil if the stage did not run.
func (r Run) Embed() *EmbedReport { return r.embed }

// Load returns the load report, or nil if the stage did not run.
func (r Run) Load() *LoadReport { return r.load }
