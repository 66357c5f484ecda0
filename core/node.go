package core

import (
	"context"
	"fmt"
	"log"
	"net"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
)

// Node is one swarm participant: it binds a port in a configured range,
// seeds whatever is in its serving directory, and downloads files other
// nodes hold. It is the single point that wires C1–C6 together.
type Node struct {
	RootDir string
	CS      ChunkSize

	Self     PeerEndpoint
	serveDir string

	Server    *SeedServer
	Discovery *Discovery
	Health    *SeederHealthMonitor
	Jobs      *JobRegistry
	Scanner   *Scanner

	mu       sync.Mutex
	listener net.Listener
	started  bool
}

// NewNode prepares a node rooted at rootDir without binding a port yet.
// Call Start to claim a port and begin seeding.
func NewNode(rootDir string, cs ChunkSize) (*Node, error) {
	if err := os.MkdirAll(rootDir, 0755); err != nil {
		return nil, fmt.Errorf("core: create root dir: %w", err)
	}
	return &Node{
		RootDir:   rootDir,
		CS:        cs,
		Discovery: NewDiscovery(),
		Health:    NewSeederHealthMonitor(),
		Jobs:      NewJobRegistry(),
	}, nil
}

// Start claims the first free port in [start, end], creates the node's
// serving directory <rootDir>/<port>/, and starts the seeding server.
func (n *Node) Start(start, end int) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.started {
		return fmt.Errorf("core: node already started")
	}

	ln, port, err := ClaimPort(start, end)
	if err != nil {
		return fmt.Errorf("core: start node: %w", err)
	}

	serveDir := filepath.Join(n.RootDir, fmt.Sprintf("%d", port))
	if err := os.MkdirAll(serveDir, 0755); err != nil {
		ln.Close()
		return fmt.Errorf("core: create serve dir: %w", err)
	}

	n.Self = NewLoopbackEndpoint(port)
	n.serveDir = serveDir
	n.listener = ln
	n.Server = NewSeedServer(serveDir, n.CS)
	n.Server.Start(ln)
	n.Scanner = NewScanner(serveDir)
	n.started = true

	log.Printf("node: listening on %s, serving %s", n.Self, serveDir)
	return nil
}

// Stop halts the seeding server. Idempotent.
func (n *Node) Stop() {
	n.mu.Lock()
	server := n.Server
	n.mu.Unlock()
	if server != nil {
		server.Stop()
	}
}

// ServeDir returns the node's own serving directory.
func (n *Node) ServeDir() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.serveDir
}

// Scan discovers files held by peers in [start, end] other than self.
func (n *Node) Scan(ctx context.Context, start, end int) ([]FileEntry, error) {
	candidates := make([]PeerEndpoint, 0, end-start+1)
	for p := start; p <= end; p++ {
		candidates = append(candidates, NewLoopbackEndpoint(p))
	}
	return n.Discovery.Discover(ctx, n.Self, candidates)
}

// StartDownload registers a job and runs the downloader in the background,
// returning the job so callers can observe its progress via Jobs. If the
// serving directory already holds a file of the same name and the probed
// remote size matches, the job completes immediately without transferring
// any chunks.
func (n *Node) StartDownload(filename string, seeders []PeerEndpoint) *DownloadJob {
	job := n.Jobs.Register(uuid.NewString(), filename, seeders)
	downloader := &Downloader{CS: n.CS, Discovery: n.Discovery, Health: n.Health}

	go func() {
		defer job.markFinished()

		if scanner := n.Scanner; scanner != nil && scanner.ExistsLocal(filename) {
			if size, ok := n.Discovery.ProbeSize(context.Background(), filename, seeders); ok && scanner.LocalSize(filename) == size {
				log.Printf("node: skip download %q: local copy already matches remote size %d bytes", filename, size)
				job.Progress.start()
				job.Progress.setTotals(size, n.CS.ChunkCount(size))
				job.Progress.finish(true)
				return
			}
		}

		if err := downloader.Download(filename, seeders, n.ServeDir(), job.Progress); err != nil {
			log.Printf("node: download %q: %v", filename, err)
		}
	}()

	return job
}
