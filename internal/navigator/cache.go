package navigator

import (
	"crypto/sha256"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/timvw/screen-patrol/internal/field"
	"github.com/timvw/screen-patrol/internal/model"
)

// LabelCache caches labeled screen maps keyed by snapshot content hash.
// When the screen has not changed since the last refresh, the cached map is
// reused and neither the reconstruction nor the LLM fallback runs again.
//
// Entries expire after the TTL even if the content is identical.
type LabelCache struct {
	mu      sync.RWMutex
	entries map[string]*cacheEntry // keyed by screen key (session or stored screen name)
	ttl     time.Duration
}

type cacheEntry struct {
	contentHash string
	screen      *model.ScreenMap
	cachedAt    time.Time
	hitCount    int
}

// NewLabelCache creates a cache with the given TTL.
// A TTL of 0 disables caching.
func NewLabelCache(ttl time.Duration) *LabelCache {
	return &LabelCache{
		entries: make(map[string]*cacheEntry),
		ttl:     ttl,
	}
}

// Lookup returns a copy of the cached map for key when the snapshot content
// is unchanged and the entry has not expired.
func (c *LabelCache) Lookup(key string, snap *model.Snapshot) (*model.ScreenMap, bool) {
	if c == nil || c.ttl <= 0 {
		return nil, false
	}

	hash := snapshotHash(snap)

	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()

	if !ok || entry.contentHash != hash {
		return nil, false
	}

	if time.Since(entry.cachedAt) > c.ttl {
		c.mu.Lock()
		if c.entries[key] == entry {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}

	c.mu.Lock()
	entry.hitCount++
	c.mu.Unlock()

	return cloneScreenMap(entry.screen), true
}

// Store saves a copy of m for key and the snapshot it was built from.
func (c *LabelCache) Store(key string, snap *model.Snapshot, m *model.ScreenMap) {
	if c == nil || c.ttl <= 0 {
		return
	}

	hash := snapshotHash(snap)
	clone := cloneScreenMap(m)

	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &cacheEntry{
		contentHash: hash,
		screen:      clone,
		cachedAt:    time.Now(),
	}
}

// Invalidate removes the entry for key, forcing a rebuild on the next
// refresh regardless of content.
func (c *LabelCache) Invalidate(key string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Len returns the number of cached screens.
func (c *LabelCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// snapshotHash hashes both halves of a snapshot. The rendered rows alone do
// not identify a screen: two screens can look alike and differ in field
// attributes.
func snapshotHash(snap *model.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%dx%d\n", snap.Rows, snap.Cols)
	for _, line := range snap.Ascii {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte(0)
	for _, line := range snap.Buffer {
		b.WriteString(line)
		b.WriteByte('\n')
	}
	return hashContent(b.String())
}

// hashContent returns a hex-encoded SHA256 hash of the content.
func hashContent(content string) string {
	h := sha256.Sum256([]byte(content))
	return fmt.Sprintf("%x", h)
}

func cloneScreenMap(m *model.ScreenMap) *model.ScreenMap {
	out := *m
	out.Fields = make([]*field.Field, len(m.Fields))
	for i, f := range m.Fields {
		cp := *f
		cp.Attributes = append([]string(nil), f.Attributes...)
		out.Fields[i] = &cp
	}
	out.Screen = append([]string(nil), m.Screen...)
	if m.LabelSources != nil {
		out.LabelSources = make(map[int]string, len(m.LabelSources))
		for k, v := range m.LabelSources {
			out.LabelSources[k] = v
		}
	}
	return &out
}
