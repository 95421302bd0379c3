package telemetry

import (
	"strings"
	"sync"
)

// Report is a single call made against a Recorder.
type Report struct {
	Kind   string
	ID     string
	Params []any
}

// Recorder is an API that keeps every report in memory so tests can
// assert on what a component reported. It forwards to Inner when set.
type Recorder struct {
	Inner API

	mutex   sync.Mutex
	reports []Report
}

func (r *Recorder) record(kind, id string, params []any) {
	r.mutex.Lock()
	r.reports = append(r.reports, Report{Kind: kind, ID: id, Params: params})
	r.mutex.Unlock()
}

func (r *Recorder) ReportBroken(id string, params ...any) {
	r.record("broken", id, params)
	if r.Inner != nil {
		r.Inner.ReportBroken(id, params...)
	}
}

func (r *Recorder) ReportWarning(id string, params ...any) {
	r.record("warning", id, params)
	if r.Inner != nil {
		r.Inner.ReportWarning(id, params...)
	}
}

func (r *Recorder) ReportDebug(msg string, params ...any) {
	r.record("debug", msg, params)
	if r.Inner != nil {
		r.Inner.ReportDebug(msg, params...)
	}
}

func (r *Recorder) ReportCount(id string, count int64) {
	r.record("count", id, []any{count})
	if r.Inner != nil {
		r.Inner.ReportCount(id, count)
	}
}

// Reports returns every report of the given kind whose id contains `contains`.
func (r *Recorder) Reports(kind, contains string) []Report {
	r.mutex.Lock()
	defer r.mutex.Unlock()

	var out []Report
	for _, rep := range r.reports {
		if rep.Kind == kind && strings.Contains(rep.ID, contains) {
			out = append(out, rep)
		}
	}
	return out
}
