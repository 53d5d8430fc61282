package engine

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/collector"
	"github.com/tipio/tipio/internal/domain/forecast"
	"github.com/tipio/tipio/pkg/logger"
	"github.com/tipio/tipio/pkg/metrics"
)

// Default engine configuration constants.
const (
	defaultCacheTTL = 30 * time.Minute

	// One extra attempt is allowed after a rate-limit signal; any further
	// throttling exhausts the chain.
	rateLimitRetryBudget = 1
)

// cacheKey prefixes prediction-cache entries inside the predictions store,
// which also holds the history ring.
func cacheKey(eventID string) string { return "cache/" + eventID }

// Engine is a pure function of (event report, votes) plus the prediction
// cache. It never writes history or profiles; that is the orchestrator's job.
type Engine struct {
	backend Backend
	cache   store.Store
	chain   []string

	cacheTTL time.Duration
	now      func() time.Time

	logger logger.Logger
}

// Option applies a configuration option to the Engine.
type Option func(*Engine)

// WithCacheTTL sets how long a generated payload is served from cache.
func WithCacheTTL(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.cacheTTL = d
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithLogger sets a custom logger for the engine.
func WithLogger(l logger.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an Engine with the given backend and ordered model chain.
func New(backend Backend, cache store.Store, chain []string, opts ...Option) *Engine {
	e := &Engine{
		backend:  backend,
		cache:    cache,
		chain:    chain,
		cacheTTL: defaultCacheTTL,
		now:      time.Now,
		logger:   logger.Get().Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// cachedPayload returns the fresh cached payload for an event, if any. Each
// call records exactly one cache lookup metric.
func (e *Engine) cachedPayload(ctx context.Context, eventID string) (forecast.Payload, bool) {
	var payload forecast.Payload
	hit, err := e.cache.GetFresh(ctx, cacheKey(eventID), e.cacheTTL, &payload)
	if err != nil || !hit {
		metrics.RecordPredictionCache("miss")
		return forecast.Payload{}, false
	}
	metrics.RecordPredictionCache("hit")
	return payload, true
}

// Predict produces the structured forecast for the report, reporting whether
// it was served from cache. It never returns an error: every unrecoverable
// failure degrades to the deterministic fallback payload so the caller
// always has something renderable.
func (e *Engine) Predict(ctx context.Context, report collector.Report, votePcts map[string]float64) (forecast.Payload, bool) {
	if cached, ok := e.cachedPayload(ctx, report.Event.ID); ok {
		// Cache hits are returned unchanged: no re-scoring, no re-validation.
		return cached, true
	}

	payload, err := e.generate(ctx, report, votePcts)
	if err != nil {
		e.logger.Warn(ctx, "generation failed; using fallback payload",
			logger.String("event_id", report.Event.ID),
			logger.Error(err),
		)
		metrics.RecordPrediction("fallback")
		return Fallback(report.Event, e.now()), false
	}
	metrics.RecordPrediction("model")
	return payload, false
}

// generate walks the model chain. The chain advances only on a rate-limit
// signal, with a single extra attempt budget; any other failure abandons
// the whole call.
func (e *Engine) generate(ctx context.Context, report collector.Report, votePcts map[string]float64) (forecast.Payload, error) {
	if e.backend == nil {
		return forecast.Payload{}, errors.New("no backend configured")
	}
	if configurable, ok := e.backend.(interface{ Configured() bool }); ok && !configurable.Configured() {
		return forecast.Payload{}, errors.New("no backend configured")
	}

	system := systemPrompt()
	user := userPrompt(report, votePcts)

	retries := 0
	for i, model := range e.chain {
		start := e.now()
		raw, err := e.backend.Generate(ctx, model, system, user)
		metrics.ObserveGenerationDuration(e.now().Sub(start).Seconds())

		if err == nil {
			payload, perr := e.parse(raw)
			if perr != nil {
				// Malformed document: hard failure for this attempt, no retry.
				return forecast.Payload{}, fmt.Errorf("model %s: %w", model, perr)
			}
			e.enrich(&payload, report, model, votePcts)
			return payload, nil
		}

		if errors.Is(err, ErrRateLimited) {
			metrics.RecordGenerationRateLimit()
			if retries >= rateLimitRetryBudget || i == len(e.chain)-1 {
				return forecast.Payload{}, fmt.Errorf("model chain exhausted: %w", err)
			}
			retries++
			e.logger.Warn(ctx, "model rate limited; advancing chain",
				logger.String("model", model),
				logger.String("next", e.chain[i+1]),
			)
			continue
		}
		return forecast.Payload{}, fmt.Errorf("model %s: %w", model, err)
	}
	return forecast.Payload{}, errors.New("empty model chain")
}

// parse extracts and validates the JSON document from the raw response.
func (e *Engine) parse(raw string) (forecast.Payload, error) {
	doc := extractDocument(raw)
	if doc == "" {
		return forecast.Payload{}, errors.New("no JSON document in response")
	}
	var payload forecast.Payload
	if err := json.Unmarshal([]byte(doc), &payload); err != nil {
		return forecast.Payload{}, fmt.Errorf("malformed document: %w", err)
	}
	if err := payload.Validate(); err != nil {
		return forecast.Payload{}, fmt.Errorf("invalid document: %w", err)
	}
	payload.Clamp()
	return payload, nil
}

// enrich attaches metadata and guarantees a disclaimer is present.
func (e *Engine) enrich(p *forecast.Payload, report collector.Report, model string, votePcts map[string]float64) {
	if strings.TrimSpace(p.Disclaimer) == "" {
		p.Disclaimer = forecast.DefaultDisclaimer
	}
	p.Meta = forecast.Meta{
		EventID:      report.Event.ID,
		GeneratedAt:  e.now().UTC(),
		Model:        model,
		VoteSnapshot: votePcts,
	}
}

// extractDocument pulls the outermost JSON object out of the raw response,
// tolerating markdown code fences around it.
func extractDocument(raw string) string {
	s := strings.TrimSpace(raw)
	if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+3:]
		s = strings.TrimPrefix(s, "json")
		if end := strings.Index(s, "```"); end >= 0 {
			s = s[:end]
		}
	}
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// systemPrompt instructs the backend on the schema and the confidence cap.
func systemPrompt() string {
	return fmt.Sprintf(`You are a sports prediction analyst. Respond with a single JSON object and nothing else, using exactly these fields:
result_probabilities {home_win, draw, away_win} summing to 100;
exact_scores: up to 3 entries of {score, probability};
totals {line, pick, confidence}; both_teams_to_score {pick, confidence};
corners {expected, line, pick, confidence}; cards {expected, line, pick, confidence};
half_time {leader, confidence}; special_markets: optional entries of {name, pick, confidence};
combo_suggestions: optional entries of {legs, confidence};
best_value {market, pick, reasoning, confidence};
risk {grade (A-D), comment};
summary {text, winner (home|draw|away), confidence};
disclaimer: a short responsible-gambling note.
Never state any confidence above %d. Ground every number in the supplied data and note when data is thin.`, forecast.ConfidenceCeiling)
}

// userPrompt embeds the event identity, the normalized narrative, and the
// community vote split when present.
func userPrompt(report collector.Report, votePcts map[string]float64) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Predict the following fixture.\n\n%s", report.Narrative)
	if len(votePcts) > 0 {
		b.WriteString("\nCommunity vote split:\n")
		choices := make([]string, 0, len(votePcts))
		for c := range votePcts {
			choices = append(choices, c)
		}
		sort.Strings(choices)
		for _, c := range choices {
			fmt.Fprintf(&b, "  %s: %.1f%%\n", c, votePcts[c])
		}
	}
	return b.String()
}
