package services

import (
	"context"
	"sync"
	"time"

	"prefill/application/ports"
	"prefill/domain/config"
	"prefill/domain/core/aggregates"

	"go.uber.org/zap"
)

// LoadObserver is notified of every graph load with "ok", "error" or "cached"
type LoadObserver interface {
	ObserveGraphLoad(result string)
}

// GraphFuture is the pending or resolved result of one graph load
type GraphFuture struct {
	key   aggregates.GraphKey
	done  chan struct{}
	graph *aggregates.Graph
	err   error
}

func newGraphFuture(key aggregates.GraphKey) *GraphFuture {
	return &GraphFuture{key: key, done: make(chan struct{})}
}

func resolvedFuture(key aggregates.GraphKey, g *aggregates.Graph) *GraphFuture {
	f := newGraphFuture(key)
	f.resolve(g, nil)
	return f
}

func (f *GraphFuture) resolve(g *aggregates.Graph, err error) {
	f.graph, f.err = g, err
	close(f.done)
}

// Key returns the tenant and blueprint being loaded
func (f *GraphFuture) Key() aggregates.GraphKey {
	return f.key
}

// Done is closed once the load finished
func (f *GraphFuture) Done() <-chan struct{} {
	return f.done
}

// Result returns the outcome without blocking; ready is false while loading
func (f *GraphFuture) Result() (g *aggregates.Graph, err error, ready bool) {
	select {
	case <-f.done:
		return f.graph, f.err, true
	default:
		return nil, nil, false
	}
}

// Wait blocks until the load finished or ctx is done
func (f *GraphFuture) Wait(ctx context.Context) (*aggregates.Graph, error) {
	select {
	case <-f.done:
		return f.graph, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// GraphLoader fetches blueprint graphs and global nodes and assembles graph
// snapshots. Concurrent loads of the same blueprint share one fetch; successful
// loads are cached for GraphCacheTTL. Failures are handed to every waiter as
// returned by the sources and are not cached.
type GraphLoader struct {
	source   ports.GraphSource
	globals  ports.GlobalNodeSource
	cache    ports.Cache
	cfg      *config.DomainConfig
	timeout  time.Duration
	logger   *zap.Logger
	observer LoadObserver

	mu       sync.Mutex
	inflight map[aggregates.GraphKey]*GraphFuture
}

// NewGraphLoader creates a loader. Fetches run detached from the caller's
// context and are bounded by timeout.
func NewGraphLoader(
	source ports.GraphSource,
	globals ports.GlobalNodeSource,
	cache ports.Cache,
	cfg *config.DomainConfig,
	timeout time.Duration,
	logger *zap.Logger,
) *GraphLoader {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &GraphLoader{
		source:   source,
		globals:  globals,
		cache:    cache,
		cfg:      cfg,
		timeout:  timeout,
		logger:   logger,
		inflight: make(map[aggregates.GraphKey]*GraphFuture),
	}
}

// WithObserver sets the load observer
func (l *GraphLoader) WithObserver(o LoadObserver) *GraphLoader {
	l.observer = o
	return l
}

// Load returns the future of the graph identified by key, starting a fetch
// unless one is cached or already running.
func (l *GraphLoader) Load(ctx context.Context, key aggregates.GraphKey) *GraphFuture {
	if g, ok := l.cached(ctx, key); ok {
		l.observe("cached")
		return resolvedFuture(key, g)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if f, ok := l.inflight[key]; ok {
		return f
	}
	// a fetch may have cached the graph and left inflight since the first check
	if g, ok := l.cached(ctx, key); ok {
		l.observe("cached")
		return resolvedFuture(key, g)
	}

	f := newGraphFuture(key)
	l.inflight[key] = f
	go l.fetch(f)
	return f
}

// Invalidate drops the cached graph of a blueprint
func (l *GraphLoader) Invalidate(ctx context.Context, key aggregates.GraphKey) {
	if l.cache != nil {
		_ = l.cache.Delete(ctx, cacheKey(key))
	}
}

func (l *GraphLoader) cached(ctx context.Context, key aggregates.GraphKey) (*aggregates.Graph, bool) {
	if l.cache == nil {
		return nil, false
	}
	v, ok := l.cache.Get(ctx, cacheKey(key))
	if !ok {
		return nil, false
	}
	g, ok := v.(*aggregates.Graph)
	return g, ok
}

func (l *GraphLoader) fetch(f *GraphFuture) {
	ctx := context.Background()
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	start := time.Now()
	g, err := l.assemble(ctx, f.key)

	if err != nil {
		l.mu.Lock()
		delete(l.inflight, f.key)
		l.mu.Unlock()

		l.logger.Warn("Graph load failed",
			zap.String("tenantID", f.key.TenantID),
			zap.String("blueprintID", f.key.BlueprintID),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err),
		)
		l.observe("error")
		f.resolve(nil, err)
		return
	}

	// cache before leaving inflight so a concurrent Load finds one or the other
	if l.cache != nil {
		ttl := int(l.cfg.GraphCacheTTL / time.Second)
		if ttl > 0 {
			_ = l.cache.Set(ctx, cacheKey(f.key), g, ttl)
		}
	}
	l.mu.Lock()
	delete(l.inflight, f.key)
	l.mu.Unlock()

	l.logger.Info("Graph loaded",
		zap.String("tenantID", f.key.TenantID),
		zap.String("blueprintID", f.key.BlueprintID),
		zap.Int("nodes", g.NodeCount()),
		zap.Int("edges", g.EdgeCount()),
		zap.Duration("duration", time.Since(start)),
	)
	l.observe("ok")
	f.resolve(g, nil)
}

// assemble fetches the graph first, then the global nodes
func (l *GraphLoader) assemble(ctx context.Context, key aggregates.GraphKey) (*aggregates.Graph, error) {
	blueprint, err := l.source.FetchGraph(ctx, key.TenantID, key.BlueprintID)
	if err != nil {
		return nil, err
	}
	globals, err := l.globals.ListGlobalNodes(ctx)
	if err != nil {
		return nil, err
	}
	return aggregates.FromBlueprint(key, blueprint, globals, l.cfg)
}

func (l *GraphLoader) observe(result string) {
	if l.observer != nil {
		l.observer.ObserveGraphLoad(result)
	}
}

func cacheKey(key aggregates.GraphKey) string {
	return "graph:" + key.String()
}
