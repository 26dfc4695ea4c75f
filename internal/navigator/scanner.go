package navigator

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timvw/screen-patrol/internal/model"
	"github.com/timvw/screen-patrol/internal/screen"
	"github.com/timvw/screen-patrol/internal/store"
)

// Scanner reconstructs stored screens concurrently.
type Scanner struct {
	builder

	Store *store.Store
	// Names restricts the scan; empty means every stored screen.
	Names []string
	// Parallel bounds the number of screens reconstructed at once.
	Parallel int
}

// NewScanner creates a Scanner over st.
func NewScanner(st *store.Store, parallel int, opts Options) *Scanner {
	return &Scanner{
		builder:  newBuilder(opts),
		Store:    st,
		Parallel: parallel,
	}
}

// ScanEntry is the outcome for one stored screen.
type ScanEntry struct {
	Name   string           `json:"name"`
	Screen *model.ScreenMap `json:"screen,omitempty"`
	Error  string           `json:"error,omitempty"`
}

// ScanResult contains the entries of a scan in name order.
type ScanResult struct {
	Entries   []ScanEntry `json:"entries"`
	CacheHits int         `json:"cache_hits"`
	Failed    int         `json:"failed"`
}

// Scan reconstructs every selected screen. A screen that fails does not
// stop the others; its error is reported in its entry.
func (s *Scanner) Scan(ctx context.Context) (*ScanResult, error) {
	ctx, span := tracer.Start(ctx, "scan",
		trace.WithAttributes(attribute.String("store.path", s.Store.Path())))
	defer span.End()

	names := s.Names
	if len(names) == 0 {
		names = s.Store.Names()
	}
	if len(names) == 0 {
		return &ScanResult{}, nil
	}

	entries := make([]ScanEntry, len(names))
	cacheHits := int64(0)
	failed := int64(0)
	parallel := s.Parallel
	if parallel < 1 {
		parallel = 1
	}
	if parallel > len(names) {
		parallel = len(names)
	}

	var wg sync.WaitGroup
	sem := make(chan struct{}, parallel)

	for i, name := range names {
		wg.Add(1)
		go func(idx int, name string) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			m, err := s.scanOne(ctx, name)
			if err != nil {
				s.logger.Warn("screen scan failed", zap.String("screen", name), zap.Error(err))
				atomic.AddInt64(&failed, 1)
				entries[idx] = ScanEntry{Name: name, Error: err.Error()}
				return
			}
			if m.Cached {
				atomic.AddInt64(&cacheHits, 1)
			}
			entries[idx] = ScanEntry{Name: name, Screen: m}
		}(i, name)
	}

	wg.Wait()

	span.SetAttributes(
		attribute.Int("screens.total", len(entries)),
		attribute.Int("screens.failed", int(failed)),
		attribute.Int("cache.hits", int(cacheHits)),
	)
	return &ScanResult{
		Entries:   entries,
		CacheHits: int(cacheHits),
		Failed:    int(failed),
	}, nil
}

// scanOne builds one screen with a reconstructor owned by the calling
// goroutine.
func (s *Scanner) scanOne(ctx context.Context, name string) (*model.ScreenMap, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	snap, err := s.Store.Get(name)
	if err != nil {
		return nil, err
	}
	recon, err := screen.New(snap.Rows, snap.Cols, s.screen)
	if err != nil {
		return nil, fmt.Errorf("reconstruct %s: %w", name, err)
	}
	return s.build(ctx, name, recon, snap)
}
