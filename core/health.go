package core

import (
	"log"
	"sync"
)

// staleSeederThreshold is how many consecutive TEMP-classified failures on
// a seeder before it is logged as likely dead. Purely observational: it
// never changes downloader correctness or retry behavior.
const staleSeederThreshold = 5

// SeederHealthMonitor tracks consecutive TEMP failures per peer across
// downloads, the way the teacher's HealthMonitor tracks per-CID failure
// counts for its own peers.
type SeederHealthMonitor struct {
	mu           sync.Mutex
	tempFailures map[PeerEndpoint]int
	demoted      map[PeerEndpoint]bool
}

func NewSeederHealthMonitor() *SeederHealthMonitor {
	return &SeederHealthMonitor{
		tempFailures: make(map[PeerEndpoint]int),
		demoted:      make(map[PeerEndpoint]bool),
	}
}

// OnTempFailure records a TEMP-classified failure against a seeder.
func (h *SeederHealthMonitor) OnTempFailure(ep PeerEndpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.tempFailures[ep]++
	if h.tempFailures[ep] >= staleSeederThreshold && !h.demoted[ep] {
		h.demoted[ep] = true
		log.Printf("health: seeder %s looks dead after %d consecutive TEMP failures", ep, h.tempFailures[ep])
	}
}

// OnSuccess clears a seeder's failure streak.
func (h *SeederHealthMonitor) OnSuccess(ep PeerEndpoint) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.tempFailures[ep] != 0 {
		h.tempFailures[ep] = 0
	}
	if h.demoted[ep] {
		h.demoted[ep] = false
		log.Printf("health: seeder %s recovered", ep)
	}
}

// Status returns a snapshot of consecutive-failure counts, for the
// /system/seeders control-plane endpoint and the menu's peers command.
func (h *SeederHealthMonitor) Status() map[string]int {
	h.mu.Lock()
	defer h.mu.Unlock()

	out := make(map[string]int, len(h.tempFailures))
	for ep, n := range h.tempFailures {
		out[ep.String()] = n
	}
	return out
}
