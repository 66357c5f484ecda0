package core

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"
)

const (
	initialBackoff = 200 * time.Millisecond
	maxBackoff     = 2000 * time.Millisecond
)

// Downloader fetches one file from a swarm of seeders, spreading chunk
// fetches across len(seeders) worker goroutines with per-chunk seeder
// failover. It never gives up on an all-TEMP outage unless MaxPending is
// set, matching the "indefinite auto-resuming" design of the reference
// implementation.
type Downloader struct {
	CS         ChunkSize
	Discovery  *Discovery
	MaxPending time.Duration // 0 = wait forever
	Health     *SeederHealthMonitor // optional; nil disables tracking
}

func NewDownloader(cs ChunkSize, d *Discovery) *Downloader {
	return &Downloader{CS: cs, Discovery: d}
}

// Download fetches filename from seeders into destDir, finalizing at
// destDir/filename on success. progress may be nil.
func (d *Downloader) Download(filename string, seeders []PeerEndpoint, destDir string, progress *DownloadProgress) error {
	if progress == nil {
		progress = &DownloadProgress{}
	}
	if len(seeders) == 0 {
		progress.finish(false)
		return fmt.Errorf("core: download %q: no seeders given", filename)
	}

	progress.start()

	// Phase A — metadata probe.
	size, ok := d.Discovery.ProbeSize(context.Background(), filename, seeders)
	if !ok {
		progress.finish(false)
		return fmt.Errorf("core: download %q: no seeder answered META", filename)
	}
	chunks := d.CS.ChunkCount(size)
	progress.setTotals(size, chunks)

	finalPath := destDir + string(os.PathSeparator) + filename
	tmpPath := finalPath + ".part"

	tmp, err := os.Create(tmpPath)
	if err != nil {
		progress.finish(false)
		return fmt.Errorf("core: download %q: create temp file: %w", filename, err)
	}

	// Phase B — parallel fetch.
	var (
		nextChunk atomic.Int64
		failed    atomic.Bool
		fileMu    sync.Mutex
		wg        sync.WaitGroup
	)

	numWorkers := len(seeders)
	wg.Add(numWorkers)
	for i := 0; i < numWorkers; i++ {
		go func(workerID int) {
			defer wg.Done()
			d.worker(workerID, seeders, filename, chunks, &nextChunk, &failed, &fileMu, tmp, progress)
		}(i)
	}
	wg.Wait()

	doneChunks := progress.Snapshot().DoneChunks
	if err := tmp.Close(); err != nil {
		progress.finish(false)
		return fmt.Errorf("core: download %q: close temp file: %w", filename, err)
	}

	// Phase C — finalization.
	if failed.Load() || doneChunks < chunks {
		progress.finish(false)
		return fmt.Errorf("core: download %q: incomplete (%d/%d chunks)", filename, doneChunks, chunks)
	}

	os.Remove(finalPath)
	if err := os.Rename(tmpPath, finalPath); err != nil {
		progress.finish(false)
		return fmt.Errorf("core: download %q: finalize: %w", filename, err)
	}

	progress.finish(true)
	return nil
}

func (d *Downloader) worker(
	workerID int,
	seeders []PeerEndpoint,
	filename string,
	totalChunks int64,
	nextChunk *atomic.Int64,
	failed *atomic.Bool,
	fileMu *sync.Mutex,
	tmp *os.File,
	progress *DownloadProgress,
) {
	numSeeders := len(seeders)
	backoff := initialBackoff
	pendingSince := time.Time{}

	for {
		if failed.Load() {
			return
		}
		chunk := nextChunk.Add(1) - 1
		if chunk >= totalChunks {
			return
		}

		for {
			payload, kind, ok := d.fetchChunk(workerID, seeders, numSeeders, filename, chunk)
			if ok {
				backoff = initialBackoff
				pendingSince = time.Time{}
				progress.setPending(false)

				fileMu.Lock()
				_, werr := tmp.WriteAt(payload, chunk*int64(d.CS))
				fileMu.Unlock()
				if werr != nil {
					failed.Store(true)
					progress.finish(false)
					return
				}
				progress.addDone(int64(len(payload)))
				break
			}

			if kind == FailTemp {
				if failed.Load() {
					return
				}
				if pendingSince.IsZero() {
					pendingSince = time.Now()
				}
				if d.MaxPending > 0 && time.Since(pendingSince) > d.MaxPending {
					failed.Store(true)
					progress.finish(false)
					return
				}
				progress.setPending(true)
				time.Sleep(backoff)
				backoff *= 2
				if backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}

			// PERMANENT (or mixed without any TEMP): give up for good.
			failed.Store(true)
			progress.finish(false)
			return
		}
	}
}

// fetchChunk tries every seeder starting at seeders[(workerID+k) % n] in
// turn, returning the first success. It reports the worst-case
// classification across all attempts: TEMP wins over PERMANENT because a
// single reachable-but-rejecting seeder must not stop the retry loop while
// another seeder might still be transiently unreachable.
func (d *Downloader) fetchChunk(workerID int, seeders []PeerEndpoint, n int, filename string, chunk int64) ([]byte, FailKind, bool) {
	sawTemp := false
	lastPerm := FailRangeOrBad

	for k := 0; k < n; k++ {
		seeder := seeders[(workerID+k)%n]
		payload, kind, err := fetchOne(seeder, filename, chunk, d.CS)
		if err == nil && kind == FailNone {
			if d.Health != nil {
				d.Health.OnSuccess(seeder)
			}
			return payload, FailNone, true
		}
		if err != nil || kind == FailTemp {
			sawTemp = true
			if d.Health != nil {
				d.Health.OnTempFailure(seeder)
			}
		} else {
			lastPerm = kind
		}
	}

	if sawTemp {
		return nil, FailTemp, false
	}
	return nil, lastPerm, false
}

func fetchOne(seeder PeerEndpoint, filename string, chunk int64, cs ChunkSize) ([]byte, FailKind, error) {
	conn, err := dialPeer(seeder)
	if err != nil {
		return nil, FailTemp, err
	}
	defer conn.Close()
	return sendGet(conn, filename, chunk, cs)
}
