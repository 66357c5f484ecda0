package core

import "testing"

func TestProgressTerminalExclusivity(t *testing.T) {
	p := &DownloadProgress{}
	p.start()
	p.setTotals(100, 4)
	p.addDone(25)
	p.addDone(25)
	p.finish(true)

	snap := p.Snapshot()
	if !snap.Success || snap.Failed || snap.Active {
		t.Fatalf("bad terminal state: %+v", snap)
	}
	if snap.DoneBytes != 50 || snap.DoneChunks != 2 {
		t.Fatalf("bad counters: %+v", snap)
	}
}

func TestProgressMonotonic(t *testing.T) {
	p := &DownloadProgress{}
	p.start()
	p.setTotals(64, 2)

	prev := p.Snapshot()
	p.addDone(32)
	cur := p.Snapshot()
	if cur.DoneBytes < prev.DoneBytes || cur.DoneChunks < prev.DoneChunks {
		t.Fatalf("counters went backwards: %+v -> %+v", prev, cur)
	}
}

func TestJobRegistryListPreservesOrder(t *testing.T) {
	r := NewJobRegistry()
	r.Register("1", "a.bin", nil)
	r.Register("2", "b.bin", nil)
	r.Register("3", "c.bin", nil)

	jobs := r.List()
	if len(jobs) != 3 {
		t.Fatalf("expected 3 jobs, got %d", len(jobs))
	}
	if jobs[0].ID != "1" || jobs[1].ID != "2" || jobs[2].ID != "3" {
		t.Fatalf("order not preserved: %v %v %v", jobs[0].ID, jobs[1].ID, jobs[2].ID)
	}
}

func TestJobRegistryGet(t *testing.T) {
	r := NewJobRegistry()
	job := r.Register("x", "f.bin", []PeerEndpoint{NewLoopbackEndpoint(9001)})

	got, ok := r.Get("x")
	if !ok || got != job {
		t.Fatalf("Get returned wrong job")
	}

	_, ok = r.Get("missing")
	if ok {
		t.Fatalf("expected not found")
	}
}

func TestJobMarkFinishedIdempotent(t *testing.T) {
	job := &DownloadJob{}
	job.markFinished()
	end1 := job.EndTime
	job.markFinished()
	if job.EndTime != end1 {
		t.Fatalf("EndTime changed on second markFinished call")
	}
	if !job.Finished() {
		t.Fatalf("expected Finished() true")
	}
}
