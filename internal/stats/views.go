package stats

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/event-hosting/internal/metrics"
)

// ViewsOptions configures Views.
type ViewsOptions struct {
	// App is reported to the stats service as the hit's origin.
	App string
	// Timeout bounds every call to the stats service.
	Timeout time.Duration
	// Lookback is how far back view counts reach.
	Lookback time.Duration
	// CacheSize is the number of last known counts kept for fallback; 0
	// disables the cache.
	CacheSize int
	CacheTTL  time.Duration
}

// Views records hits and looks up view counts on a best-effort basis. It
// never returns an error: failed lookups degrade to the last known count or
// zero, failed hits are logged and dropped.
type Views struct {
	client *Client
	opts   ViewsOptions
	cache  *expirable.LRU[string, int64]
	log    *zap.Logger
	now    func() time.Time
	wg     sync.WaitGroup
}

// NewViews constructs Views on top of client.
func NewViews(client *Client, opts ViewsOptions, log *zap.Logger) *Views {
	v := &Views{
		client: client,
		opts:   opts,
		log:    log.Named("stats"),
		now:    time.Now,
	}
	if opts.CacheSize > 0 {
		v.cache = expirable.NewLRU[string, int64](opts.CacheSize, nil, opts.CacheTTL)
	}
	return v
}

// RecordHit sends a hit in the background and returns immediately.
func (v *Views) RecordHit(ctx context.Context, uri, ip string) {
	hit := EndpointHit{App: v.opts.App, URI: uri, IP: ip, Timestamp: v.now()}
	ctx = context.WithoutCancel(ctx)

	v.wg.Add(1)
	go func() {
		defer v.wg.Done()
		ctx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
		defer cancel()

		if err := v.client.Hit(ctx, hit); err != nil {
			metrics.StatsHitFailures.Inc()
			v.log.Warn("failed to record hit", zap.String("uri", uri), zap.String("ip", ip), zap.Error(err))
			return
		}
		v.log.Debug("hit recorded", zap.String("uri", uri), zap.String("ip", ip))
	}()
}

// Wait blocks until hits already handed to RecordHit have been sent or dropped.
func (v *Views) Wait() {
	v.wg.Wait()
}

// ViewCounts returns unique view counts for uris. Every requested uri is
// present in the result.
func (v *Views) ViewCounts(ctx context.Context, uris []string) map[string]int64 {
	counts := make(map[string]int64, len(uris))
	if len(uris) == 0 {
		return counts
	}
	for _, u := range uris {
		counts[u] = 0
	}

	ctx, cancel := context.WithTimeout(ctx, v.opts.Timeout)
	defer cancel()

	end := v.now()
	stats, err := v.client.Stats(ctx, end.Add(-v.opts.Lookback), end, uris, true)
	if err != nil {
		metrics.ViewsFallbacks.Inc()
		v.log.Warn("failed to get views, using last known counts", zap.Strings("uris", uris), zap.Error(err))
		if v.cache != nil {
			for u := range counts {
				if n, ok := v.cache.Get(u); ok {
					counts[u] = n
				}
			}
		}
		return counts
	}

	for _, s := range stats {
		if _, ok := counts[s.URI]; ok {
			counts[s.URI] = s.Hits
		}
	}
	if v.cache != nil {
		for u, n := range counts {
			v.cache.Add(u, n)
		}
	}
	return counts
}

// Nop is used when no stats service is configured.
type Nop struct{}

func (Nop) RecordHit(context.Context, string, string) {}

func (Nop) ViewCounts(_ context.Context, uris []string) map[string]int64 {
	counts := make(map[string]int64, len(uris))
	for _, u := range uris {
		counts[u] = 0
	}
	return counts
}
