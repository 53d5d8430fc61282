// Package collector orchestrates the provider fan-out and merges the
// results into one normalized match report.
package collector

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
	"time"

	"github.com/tipio/tipio/internal/adapters/providers"
	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/pkg/logger"
	"github.com/tipio/tipio/pkg/metrics"
)

// Default collection configuration constants.
const (
	defaultDeadline = 60 * time.Second
	defaultCacheTTL = 30 * time.Minute
)

// Report is the normalized view of everything the providers contributed.
type Report struct {
	Event        model.Event `json:"event"`
	SourcesUsed  []string    `json:"sources_used"`
	QualityScore int         `json:"quality_score"`
	Narrative    string      `json:"narrative"`
}

// cachedReport is the slice of a report that is meaningful across requests
// for the same fixture on the same day.
type cachedReport struct {
	SourcesUsed  []string `json:"sources_used"`
	QualityScore int      `json:"quality_score"`
	Narrative    string   `json:"narrative"`
}

// Collector fans out one request per configured provider and joins the
// results under an overall deadline.
type Collector struct {
	providers []providers.Provider
	cache     store.Store

	deadline time.Duration
	cacheTTL time.Duration
	now      func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Collector.
type Option func(*Collector)

// WithDeadline bounds the whole fan-out.
func WithDeadline(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.deadline = d
		}
	}
}

// WithCacheTTL sets how long a day's report is served from cache.
func WithCacheTTL(d time.Duration) Option {
	return func(c *Collector) {
		if d > 0 {
			c.cacheTTL = d
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Collector) {
		if now != nil {
			c.now = now
		}
	}
}

// WithLogger sets a custom logger for the collector.
func WithLogger(l logger.Logger) Option {
	return func(c *Collector) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a Collector over the given provider set.
func New(provs []providers.Provider, cache store.Store, opts ...Option) *Collector {
	c := &Collector{
		providers: provs,
		cache:     cache,
		deadline:  defaultDeadline,
		cacheTTL:  defaultCacheTTL,
		now:       time.Now,
		logger:    logger.Get().Named("collector"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// CacheKey identifies a (party pair, calendar date) collection. Party order
// is normalized through lower-casing only; orientation matters because the
// narrative reads home-first.
func CacheKey(partyA, partyB string, day time.Time) string {
	data := strings.ToLower(partyA) + "|" + strings.ToLower(partyB) + "|" + day.Format("2006-01-02")
	sum := sha256.Sum256([]byte(data))
	return hex.EncodeToString(sum[:])[:32]
}

// Collect gathers provider data for the event. It never fails: a total
// provider blackout yields a report with QualityScore 0 and no sources.
func (c *Collector) Collect(ctx context.Context, ev model.Event) Report {
	key := CacheKey(ev.PartyA, ev.PartyB, c.now())

	var cached cachedReport
	if hit, err := c.cache.GetFresh(ctx, key, c.cacheTTL, &cached); err == nil && hit {
		metrics.RecordCollectionCache("hit")
		return Report{
			Event:        ev,
			SourcesUsed:  cached.SourcesUsed,
			QualityScore: cached.QualityScore,
			Narrative:    cached.Narrative,
		}
	}
	metrics.RecordCollectionCache("miss")

	start := c.now()
	results := c.fanOut(ctx, ev)
	metrics.ObserveCollectionDuration(c.now().Sub(start).Seconds())

	report := c.merge(ev, results)

	if err := c.cache.Set(ctx, key, cachedReport{
		SourcesUsed:  report.SourcesUsed,
		QualityScore: report.QualityScore,
		Narrative:    report.Narrative,
	}); err != nil {
		c.logger.Warn(ctx, "caching report failed", logger.Error(err))
	}
	return report
}

type indexedResult struct {
	idx int
	res providers.Result
}

// fanOut issues one independent request per provider. Each goroutine only
// reads its own client and writes its own slot; pending providers are
// counted as failed once the overall deadline expires and their late
// results are discarded.
func (c *Collector) fanOut(ctx context.Context, ev model.Event) []providers.Result {
	ctx, cancel := context.WithTimeout(ctx, c.deadline)
	defer cancel()

	resCh := make(chan indexedResult, len(c.providers))
	for i, p := range c.providers {
		go func(i int, p providers.Provider) {
			if !p.Configured() {
				metrics.RecordProviderResult(p.Name(), "skipped")
				resCh <- indexedResult{i, providers.Failure(p.Name(), nil)}
				return
			}
			res := p.CollectAll(ctx, ev.PartyA, ev.PartyB, ev.Sport)
			if res.Success {
				metrics.RecordProviderResult(p.Name(), "success")
			} else {
				metrics.RecordProviderResult(p.Name(), "failure")
			}
			resCh <- indexedResult{i, res}
		}(i, p)
	}

	results := make([]providers.Result, len(c.providers))
	for i, p := range c.providers {
		results[i] = providers.Failure(p.Name(), context.DeadlineExceeded)
	}
	for range c.providers {
		select {
		case r := <-resCh:
			results[r.idx] = r.res
		case <-ctx.Done():
			c.logger.Warn(ctx, "collection deadline expired; proceeding with partial data")
			return results
		}
	}
	return results
}

// merge computes the quality score and renders the narrative from whatever
// succeeded. Weights are fixed per provider and sum to at most 100.
func (c *Collector) merge(ev model.Event, results []providers.Result) Report {
	report := Report{Event: ev}
	merged := providers.Payload{}
	for i, res := range results {
		if !res.Success {
			continue
		}
		report.SourcesUsed = append(report.SourcesUsed, res.Provider)
		report.QualityScore += c.providers[i].Weight()
		mergePayload(&merged, res.Payload)
	}
	sort.Strings(report.SourcesUsed)
	report.Narrative = renderNarrative(ev, merged, report.SourcesUsed, report.QualityScore)
	return report
}

// mergePayload folds one provider's sections into the combined payload.
// First writer wins per section; providers do not overlap in practice.
func mergePayload(dst *providers.Payload, src providers.Payload) {
	if dst.Statistics == nil {
		dst.Statistics = src.Statistics
	}
	if dst.Lineups == nil {
		dst.Lineups = src.Lineups
	}
	if dst.HeadToHead == nil {
		dst.HeadToHead = src.HeadToHead
	}
	if dst.Fixture == nil {
		dst.Fixture = src.Fixture
	}
	if dst.Odds == nil {
		dst.Odds = src.Odds
	}
}
