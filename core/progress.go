package core

import (
	"sync"
	"sync/atomic"
	"time"
)

// DownloadProgress is a concurrently readable snapshot of one download's
// state. Every field is an independent atomic value: snapshots taken while
// a download is in flight are eventually consistent but never torn on any
// single field. Exactly one of {active, success, failed} is true once the
// first state transition has happened; pending implies active; once
// success or failed becomes true, active goes false and none of the three
// terminal flags ever change again.
type DownloadProgress struct {
	totalBytes  atomic.Int64
	doneBytes   atomic.Int64
	totalChunks atomic.Int64
	doneChunks  atomic.Int64

	active  atomic.Bool
	pending atomic.Bool
	success atomic.Bool
	failed  atomic.Bool
}

// ProgressSnapshot is a point-in-time copy safe to hand to an observer.
type ProgressSnapshot struct {
	TotalBytes  int64
	DoneBytes   int64
	TotalChunks int64
	DoneChunks  int64
	Active      bool
	Pending     bool
	Success     bool
	Failed      bool
}

func (p *DownloadProgress) Snapshot() ProgressSnapshot {
	return ProgressSnapshot{
		TotalBytes:  p.totalBytes.Load(),
		DoneBytes:   p.doneBytes.Load(),
		TotalChunks: p.totalChunks.Load(),
		DoneChunks:  p.doneChunks.Load(),
		Active:      p.active.Load(),
		Pending:     p.pending.Load(),
		Success:     p.success.Load(),
		Failed:      p.failed.Load(),
	}
}

func (p *DownloadProgress) setTotals(bytes, chunks int64) {
	p.totalBytes.Store(bytes)
	p.totalChunks.Store(chunks)
}

func (p *DownloadProgress) start() {
	p.active.Store(true)
}

func (p *DownloadProgress) setPending(v bool) {
	p.pending.Store(v)
}

func (p *DownloadProgress) addDone(bytes int64) {
	p.doneBytes.Add(bytes)
	p.doneChunks.Add(1)
}

func (p *DownloadProgress) finish(ok bool) {
	p.pending.Store(false)
	p.active.Store(false)
	if ok {
		p.success.Store(true)
	} else {
		p.failed.Store(true)
	}
}

// DownloadJob is a registry entry for one download, from creation to node
// shutdown. It is never reused across downloads.
type DownloadJob struct {
	ID        string
	Filename  string
	Seeders   []PeerEndpoint
	StartTime time.Time
	EndTime   time.Time
	Progress  *DownloadProgress

	mu       sync.Mutex
	finished bool
}

func (j *DownloadJob) markFinished() {
	j.mu.Lock()
	defer j.mu.Unlock()
	if j.finished {
		return
	}
	j.finished = true
	j.EndTime = time.Now()
}

func (j *DownloadJob) Finished() bool {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.finished
}

// JobRegistry holds every DownloadJob for the life of the process. Reads
// (Get, List) never block on an in-progress download's progress
// writes; only registry membership itself is mutex-guarded.
type JobRegistry struct {
	mu   sync.Mutex
	jobs map[string]*DownloadJob
	seq  []string
}

func NewJobRegistry() *JobRegistry {
	return &JobRegistry{jobs: make(map[string]*DownloadJob)}
}

// Register creates and stores a job before its download starts.
func (r *JobRegistry) Register(id, filename string, seeders []PeerEndpoint) *DownloadJob {
	job := &DownloadJob{
		ID:        id,
		Filename:  filename,
		Seeders:   append([]PeerEndpoint(nil), seeders...),
		StartTime: time.Now(),
		Progress:  &DownloadProgress{},
	}
	r.mu.Lock()
	r.jobs[id] = job
	r.seq = append(r.seq, id)
	r.mu.Unlock()
	return job
}

func (r *JobRegistry) Get(id string) (*DownloadJob, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	j, ok := r.jobs[id]
	return j, ok
}

// List returns every registered job in registration order. Callers should
// call Progress.Snapshot() on each to read current state.
func (r *JobRegistry) List() []*DownloadJob {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*DownloadJob, 0, len(r.seq))
	for _, id := range r.seq {
		out = append(out, r.jobs[id])
	}
	return out
}
