// Package navigator drives a terminal session screen by screen.
//
// Every command sent through a Navigator is followed by a fresh snapshot,
// which is reconstructed into labeled fields and kept as the current screen
// map. Callers then read and fill the screen by label instead of by
// position.
package navigator

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/timvw/screen-patrol/internal/evaluator"
	"github.com/timvw/screen-patrol/internal/logging"
	"github.com/timvw/screen-patrol/internal/model"
	spotel "github.com/timvw/screen-patrol/internal/otel"
	"github.com/timvw/screen-patrol/internal/screen"
	"github.com/timvw/screen-patrol/internal/session"
)

var tracer = otel.Tracer("screen-patrol/navigator")

// Options configures how snapshots become screen maps.
type Options struct {
	// Screen configures the reconstructor (filler, label matcher, trailing
	// field handling). Its Logger defaults to Logger.
	Screen screen.Options
	// Cache reuses maps of unchanged screens; nil disables caching.
	Cache *LabelCache
	// Evaluator labels fields the pattern pass missed; nil disables the
	// LLM fallback.
	Evaluator evaluator.Evaluator
	// Metrics receives counters; nil-safe.
	Metrics *spotel.Metrics
	Logger  *zap.Logger
}

// builder turns snapshots into labeled screen maps. It is shared by the
// Navigator and the Scanner; the reconstructor is always owned by the
// caller.
type builder struct {
	screen    screen.Options
	cache     *LabelCache
	evaluator evaluator.Evaluator
	metrics   *spotel.Metrics
	logger    *zap.Logger
}

func newBuilder(opts Options) builder {
	logger := logging.Or(opts.Logger)
	so := opts.Screen
	if so.Logger == nil {
		so.Logger = logger
	}
	return builder{
		screen:    so,
		cache:     opts.Cache,
		evaluator: opts.Evaluator,
		metrics:   opts.Metrics,
		logger:    logger,
	}
}

// build reconstructs snap with recon, labels it and consults the cache
// under key.
func (b *builder) build(ctx context.Context, key string, recon *screen.Reconstructor, snap *model.Snapshot) (*model.ScreenMap, error) {
	ctx, span := tracer.Start(ctx, "refresh",
		trace.WithAttributes(
			attribute.String("screen.key", key),
			attribute.Int("screen.rows", snap.Rows),
			attribute.Int("screen.cols", snap.Cols),
		))
	defer span.End()

	if cached, ok := b.cache.Lookup(key, snap); ok {
		cached.Cached = true
		span.SetAttributes(attribute.Bool("cache.hit", true))
		b.metrics.RecordCacheHit(ctx)
		b.metrics.RecordRefresh(ctx, len(cached.Fields), nil)
		b.logger.Debug("screen unchanged, reusing labels", zap.String("screen", key))
		return cached, nil
	}
	if b.cache != nil {
		b.metrics.RecordCacheMiss(ctx)
	}

	m, err := b.reconstruct(ctx, key, recon, snap)
	b.metrics.RecordRefresh(ctx, fieldCount(m), err)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	if b.evaluator != nil {
		b.labelWithLLM(ctx, m)
	}

	span.SetAttributes(
		attribute.Bool("cache.hit", false),
		attribute.Int("screen.fields", len(m.Fields)),
		attribute.Int("screen.markers", m.Markers),
	)
	b.cache.Store(key, snap, m)
	return m, nil
}

func (b *builder) reconstruct(ctx context.Context, key string, recon *screen.Reconstructor, snap *model.Snapshot) (*model.ScreenMap, error) {
	_, span := tracer.Start(ctx, "reconstruct")
	res, err := recon.Scan(screen.SplitBuffer(snap.Buffer), snap.Ascii)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("reconstruct %s: %w", key, err)
	}
	span.SetAttributes(
		attribute.Int("screen.markers", res.Markers),
		attribute.Int("screen.fields", len(res.Fields)),
	)
	span.End()

	_, span = tracer.Start(ctx, "assign_labels")
	labeled, err := recon.AssignLabels(res.Fields)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		span.End()
		return nil, fmt.Errorf("label %s: %w", key, err)
	}
	span.SetAttributes(attribute.Int("screen.labels", labeled))
	span.End()

	m := &model.ScreenMap{
		Name:         key,
		Rows:         snap.Rows,
		Cols:         snap.Cols,
		Fields:       res.Fields,
		Screen:       snap.Ascii,
		Markers:      res.Markers,
		LabelSources: make(map[int]string),
		RefreshedAt:  time.Now(),
	}
	for i, f := range m.Fields {
		if f.Label != "" {
			m.LabelSources[i] = evaluator.SourcePattern
		}
	}
	b.metrics.RecordLabels(ctx, evaluator.SourcePattern, labeled)
	b.logger.Debug("screen reconstructed",
		zap.String("screen", key),
		zap.Int("markers", res.Markers),
		zap.Int("fields", len(res.Fields)),
		zap.Int("labeled", labeled),
	)
	return m, nil
}

// labelWithLLM asks the evaluator for the missing labels. Failures only
// cost the extra labels; the pattern labels stay valid.
func (b *builder) labelWithLLM(ctx context.Context, m *model.ScreenMap) {
	applied, err := evaluator.LabelScreen(ctx, b.evaluator, m)
	if err != nil {
		b.logger.Warn("LLM labeling failed",
			zap.String("screen", m.Name),
			zap.String("provider", b.evaluator.Provider()),
			zap.Error(err),
		)
		return
	}
	u := m.Usage
	if u.InputTokens > 0 || u.OutputTokens > 0 {
		b.metrics.RecordTokens(ctx, b.evaluator.Provider(), b.evaluator.Model(),
			u.InputTokens, u.OutputTokens, u.CacheReadInputTokens, u.CacheCreationInputTokens)
	}
	b.metrics.RecordLabels(ctx, evaluator.SourceLLM, len(applied))
	if len(applied) > 0 {
		b.logger.Debug("LLM labels applied", zap.String("screen", m.Name), zap.Int("labels", len(applied)))
	}
}

func fieldCount(m *model.ScreenMap) int {
	if m == nil {
		return 0
	}
	return len(m.Fields)
}

// Navigator keeps the current screen map of one session.
type Navigator struct {
	builder

	mu      sync.Mutex
	session session.Session
	recon   *screen.Reconstructor
	current *model.ScreenMap
}

// New creates a Navigator for sess. No snapshot is taken until the first
// Refresh or Send.
func New(sess session.Session, opts Options) *Navigator {
	return &Navigator{
		builder: newBuilder(opts),
		session: sess,
	}
}

// Session returns the underlying session.
func (n *Navigator) Session() session.Session { return n.session }

// Current returns the last screen map, or nil before the first refresh.
func (n *Navigator) Current() *model.ScreenMap {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.current
}

// Refresh snapshots the session and rebuilds the current screen map.
func (n *Navigator) Refresh(ctx context.Context) (*model.ScreenMap, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.refreshLocked(ctx)
}

// Send runs command on the session, then refreshes.
func (n *Navigator) Send(ctx context.Context, command string) (*model.ScreenMap, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err := n.session.Exec(ctx, command)
	logging.LogCommand(n.logger, n.session.Name(), command, err)
	if err != nil {
		return nil, fmt.Errorf("send %s: %w", command, err)
	}
	return n.refreshLocked(ctx)
}

// Read returns the data of the field labeled label on the current screen.
func (n *Navigator) Read(label string) (string, error) {
	m := n.Current()
	if m == nil {
		return "", fmt.Errorf("%w: %q (no screen captured yet)", model.ErrNoSuchLabel, label)
	}
	return m.Read(label)
}

func (n *Navigator) refreshLocked(ctx context.Context) (*model.ScreenMap, error) {
	snap, err := n.session.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	logging.LogLines(n.logger, "ascii", snap.Ascii)
	recon, err := n.reconstructor(snap.Rows, snap.Cols)
	if err != nil {
		return nil, err
	}
	m, err := n.build(ctx, n.session.Name(), recon, snap)
	if err != nil {
		return nil, err
	}
	n.current = m
	return m, nil
}

// reconstructor returns the reconstructor for the session geometry,
// replacing it when the screen size changes.
func (n *Navigator) reconstructor(rows, cols int) (*screen.Reconstructor, error) {
	if n.recon != nil && n.recon.Rows() == rows && n.recon.Cols() == cols {
		return n.recon, nil
	}
	recon, err := screen.New(rows, cols, n.screen)
	if err != nil {
		return nil, err
	}
	n.recon = recon
	return recon, nil
}
