package core

import (
	"context"
	"fmt"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

const (
	discoveryNegativeTTL = 5 * time.Second
	discoveryPositiveTTL = 5 * time.Minute
)

type listCacheEntry struct {
	key      string
	entries  []FileEntry
	cachedAt time.Time
}

type sizeCacheEntry struct {
	size       int64
	cachedAt   time.Time
	isNegative bool
}

// Discovery queries a set of candidate peers for their file lists and
// merges the results into a swarm-wide view, caching short-lived results
// so that several concurrent callers asking about the same swarm don't
// each re-scan the whole port range.
type Discovery struct {
	mu         sync.Mutex
	listCache  *listCacheEntry
	sizeCache  sync.Map // filename -> *sizeCacheEntry
	listFlight singleflight.Group
	sizeFlight singleflight.Group
}

func NewDiscovery() *Discovery {
	return &Discovery{}
}

// Discover issues LIST against every candidate other than self and merges
// the results, deduplicating seeders per filename while preserving
// discovery order. Peers that fail to connect or respond are silently
// skipped, per the swarm's "scan and ask" discovery contract.
func (d *Discovery) Discover(ctx context.Context, self PeerEndpoint, candidates []PeerEndpoint) ([]FileEntry, error) {
	key := fmt.Sprint(self, candidates)
	d.mu.Lock()
	if d.listCache != nil && d.listCache.key == key && time.Since(d.listCache.cachedAt) < discoveryPositiveTTL {
		cached := d.listCache.entries
		d.mu.Unlock()
		return cached, nil
	}
	d.mu.Unlock()

	v, err, _ := d.listFlight.Do(key, func() (interface{}, error) {
		return d.scan(ctx, self, candidates), nil
	})
	if err != nil {
		return nil, err
	}
	entries := v.([]FileEntry)

	d.mu.Lock()
	d.listCache = &listCacheEntry{key: key, entries: entries, cachedAt: time.Now()}
	d.mu.Unlock()

	return entries, nil
}

func (d *Discovery) scan(ctx context.Context, self PeerEndpoint, candidates []PeerEndpoint) []FileEntry {
	order := make([]string, 0)
	seeders := make(map[string][]PeerEndpoint)
	seen := make(map[string]map[PeerEndpoint]bool)

	for _, peer := range candidates {
		if peer == self {
			continue
		}
		names, err := listPeer(ctx, peer)
		if err != nil {
			log.Printf("discovery: skip %s: %v", peer, err)
			continue
		}
		for _, name := range names {
			if seen[name] == nil {
				seen[name] = make(map[PeerEndpoint]bool)
				order = append(order, name)
			}
			if !seen[name][peer] {
				seen[name][peer] = true
				seeders[name] = append(seeders[name], peer)
			}
		}
	}

	out := make([]FileEntry, 0, len(order))
	for _, name := range order {
		out = append(out, FileEntry{Filename: name, Seeders: seeders[name]})
	}
	return out
}

func listPeer(ctx context.Context, peer PeerEndpoint) ([]string, error) {
	conn, err := dialPeer(peer)
	if err != nil {
		return nil, err
	}
	defer conn.Close()
	return sendList(conn)
}

// ProbeSize issues META to each seeder in order until one answers with a
// size, returning the first success. If every seeder fails, ok is false.
func (d *Discovery) ProbeSize(ctx context.Context, filename string, seeders []PeerEndpoint) (size int64, ok bool) {
	if cached, found := d.sizeCache.Load(filename); found {
		entry := cached.(*sizeCacheEntry)
		age := time.Since(entry.cachedAt)
		if !entry.isNegative && age < discoveryPositiveTTL {
			return entry.size, true
		}
		if entry.isNegative && age < discoveryNegativeTTL {
			return 0, false
		}
	}

	v, _, _ := d.sizeFlight.Do(filename, func() (interface{}, error) {
		for _, seeder := range seeders {
			s, found := probeOne(filename, seeder)
			if found {
				d.sizeCache.Store(filename, &sizeCacheEntry{size: s, cachedAt: time.Now()})
				return s, nil
			}
		}
		d.sizeCache.Store(filename, &sizeCacheEntry{cachedAt: time.Now(), isNegative: true})
		return nil, fmt.Errorf("core: no seeder answered META for %q", filename)
	})
	if v == nil {
		return 0, false
	}
	return v.(int64), true
}

func probeOne(filename string, seeder PeerEndpoint) (int64, bool) {
	conn, err := dialPeer(seeder)
	if err != nil {
		return 0, false
	}
	defer conn.Close()
	size, kind, err := sendMeta(conn, filename)
	if err != nil || kind != FailNone {
		return 0, false
	}
	return size, true
}
