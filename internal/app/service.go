// Package service provides the core business service that implements
// the dependencies required by the HTTP API.
package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	noticequeue "github.com/tipio/tipio/internal/adapters/mq/queue"
	workerpool "github.com/tipio/tipio/internal/adapters/mq/worker"
	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/collector"
	"github.com/tipio/tipio/internal/domain/forecast"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/internal/domain/types"
	"github.com/tipio/tipio/internal/engine"
	"github.com/tipio/tipio/internal/ledger"
	"github.com/tipio/tipio/internal/votes"
	"github.com/tipio/tipio/pkg/logger"
	"github.com/tipio/tipio/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultHistoryCap       = 5000
	defaultNoticeQueueSize  = 1024
	defaultWorkerCount      = 2
	defaultLeaderboardLimit = 100
)

// HistoryKey addresses the shared prediction history ring inside the
// predictions store. It lives next to the cache entries so one Update
// covers both; the ring is bounded by its entry cap, never by age, so the
// predictions store must exempt this key from compaction.
const HistoryKey = "history"

// Service wires the collector, the engine, the ledger and the vote store
// into the operations the HTTP API exposes.
type Service struct {
	mu sync.RWMutex

	// Core components
	collector   *collector.Collector
	engine      *engine.Engine
	ledger      *ledger.Ledger
	votes       *votes.Store
	predictions store.Store
	notices     store.Store
	noticeQueue noticequeue.Queue
	workerPool  *workerpool.Pool
	notifier    workerpool.Notifier

	// Configuration
	historyCap       int
	noticeQueueSize  int
	workerCount      int
	leaderboardLimit int
	now              func() time.Time

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithHistoryCap bounds the shared prediction history ring.
func WithHistoryCap(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historyCap = n
		}
	}
}

// WithNoticeQueueSize sets the capacity of the notice queue.
func WithNoticeQueueSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.noticeQueueSize = n
		}
	}
}

// WithWorkerCount sets the number of notice delivery workers.
func WithWorkerCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.workerCount = n
		}
	}
}

// WithNotifier sets the outbound notice delivery channel.
func WithNotifier(n workerpool.Notifier) Option {
	return func(s *Service) {
		s.notifier = n
	}
}

// WithLeaderboardLimit caps how many rows a leaderboard query may return.
func WithLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.leaderboardLimit = n
		}
	}
}

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(lg logger.Logger) Option {
	return func(s *Service) {
		if lg != nil {
			s.logger = lg
		}
	}
}

// New constructs a new Service over the given collaborators.
func New(
	col *collector.Collector,
	eng *engine.Engine,
	ldg *ledger.Ledger,
	vst *votes.Store,
	predictions store.Store,
	notices store.Store,
	opts ...Option,
) *Service {
	s := &Service{
		collector:        col,
		engine:           eng,
		ledger:           ldg,
		votes:            vst,
		predictions:      predictions,
		notices:          notices,
		historyCap:       defaultHistoryCap,
		noticeQueueSize:  defaultNoticeQueueSize,
		workerCount:      defaultWorkerCount,
		leaderboardLimit: defaultLeaderboardLimit,
		now:              time.Now,
		logger:           nil, // set on Start when absent
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes the notice pipeline and marks the service ready.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}

	s.logger.Info(ctx, "starting prediction service...")

	s.noticeQueue = noticequeue.NewInMemoryQueue(
		noticequeue.WithCapacity(s.noticeQueueSize),
	)
	s.workerPool = workerpool.NewPool(s.workerCount, s.noticeQueue, s.notices, s.notifier)
	s.workerPool.Start(ctx)

	s.started = true
	s.logger.Info(ctx, "prediction service started",
		logger.Int("workers", s.workerCount),
		logger.Int("noticeQueueSize", s.noticeQueueSize),
	)

	return nil
}

// Stop gracefully shuts down the service.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping prediction service...")

	if s.workerPool != nil {
		_ = s.workerPool.Shutdown(ctx)
	}

	s.started = false
	s.logger.Info(ctx, "prediction service stopped")
}

// RequestPrediction runs the full pipeline for one prediction request:
// quota check, data collection, generation, persistence and scoring. The
// returned result is always renderable, even in degraded mode.
func (s *Service) RequestPrediction(ctx context.Context, ev model.Event, userID, username string) (types.RenderableResult, error) {
	profile, err := s.ledger.GetOrCreate(ctx, userID, username)
	if err != nil {
		return types.RenderableResult{}, fmt.Errorf("load profile: %w", err)
	}

	quota := profile.Tier.DailyQuota()
	used, err := s.usedToday(ctx, userID)
	if err != nil {
		return types.RenderableResult{}, fmt.Errorf("count quota: %w", err)
	}
	if used >= quota {
		metrics.RecordQuotaRejection()
		return types.RenderableResult{}, fmt.Errorf("%w: %d/%d used", ErrQuotaExceeded, used, quota)
	}

	voteStats, err := s.votes.Stats(ctx, ev.ID)
	if err != nil {
		s.logger.Warn(ctx, "vote stats unavailable",
			logger.String("eventID", ev.ID),
			logger.Error(err),
		)
		voteStats = types.VoteTotals{EventID: ev.ID}
	}

	report := s.collector.Collect(ctx, ev)
	payload, fromCache := s.engine.Predict(ctx, report, voteStats.Percentages)

	prediction := model.Prediction{
		ID:         uuid.NewString(),
		EventID:    ev.ID,
		UserID:     userID,
		EventTitle: ev.Title(),
		Payload:    payload,
		CreatedAt:  s.now().UTC(),
		Status:     model.PredictionPending,
	}

	if err := s.persist(ctx, prediction, fromCache); err != nil {
		return types.RenderableResult{}, fmt.Errorf("persist prediction: %w", err)
	}

	profile, unlocked, err := s.ledger.ScorePrediction(ctx, userID, username)
	if err != nil {
		// The prediction is already persisted; scoring failure degrades
		// the response rather than voiding the work.
		s.logger.Error(ctx, "scoring failed after persist",
			logger.String("userID", userID),
			logger.Error(err),
		)
		unlocked = nil
	}

	s.queueNotices(ctx, userID, ev, payload, unlocked)

	names := make([]string, 0, len(unlocked))
	for _, a := range unlocked {
		names = append(names, a.ID)
	}

	return types.RenderableResult{
		PredictionID:    prediction.ID,
		EventID:         ev.ID,
		EventTitle:      ev.Title(),
		Payload:         payload,
		IsFallback:      payload.Meta.IsFallback,
		QualityScore:    report.QualityScore,
		SourcesUsed:     report.SourcesUsed,
		NewAchievements: names,
		QuotaRemaining:  quota - used - 1,
	}, nil
}

// persist writes the prediction cache entry and the history row in one
// critical section: either both land or neither does. Cache hits only
// append history, so a served-from-cache entry keeps its original TTL.
func (s *Service) persist(ctx context.Context, p model.Prediction, fromCache bool) error {
	return s.predictions.Update(ctx, func(tx store.Tx) error {
		if !fromCache {
			if err := tx.Set("cache/"+p.EventID, p.Payload); err != nil {
				return err
			}
		}

		var history []model.Prediction
		if _, err := tx.Get(HistoryKey, &history); err != nil {
			return err
		}
		history = append(history, p)
		if len(history) > s.historyCap {
			history = history[len(history)-s.historyCap:]
		}
		return tx.Set(HistoryKey, history)
	})
}

// usedToday counts the user's history entries since local midnight.
func (s *Service) usedToday(ctx context.Context, userID string) (int, error) {
	var history []model.Prediction
	if _, err := s.predictions.Get(ctx, HistoryKey, &history); err != nil {
		return 0, err
	}

	y, m, d := s.now().Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, s.now().Location())

	used := 0
	for i := range history {
		if history[i].UserID == userID && !history[i].CreatedAt.Before(midnight.UTC()) {
			used++
		}
	}
	return used, nil
}

// enqueueNotice hands one notice to the delivery queue. Delivery is best
// effort; before Start or on a full queue the notice is dropped silently.
func (s *Service) enqueueNotice(ctx context.Context, n model.Notice) {
	s.mu.RLock()
	q := s.noticeQueue
	s.mu.RUnlock()
	if q != nil {
		q.Enqueue(ctx, n)
	}
}

// queueNotices enqueues achievement and degraded-mode notices.
func (s *Service) queueNotices(ctx context.Context, userID string, ev model.Event, payload forecast.Payload, unlocked []ledger.Achievement) {
	now := s.now().UTC()
	for _, a := range unlocked {
		s.enqueueNotice(ctx, model.Notice{
			ID:        uuid.NewString(),
			UserID:    userID,
			Kind:      model.NoticeAchievement,
			Subject:   a.ID,
			Body:      fmt.Sprintf("%s (+%d points)", a.Name, a.Points),
			CreatedAt: now,
		})
	}

	if payload.Meta.IsFallback {
		s.enqueueNotice(ctx, model.Notice{
			ID:        uuid.NewString(),
			UserID:    userID,
			Kind:      model.NoticeFallback,
			Subject:   ev.ID,
			Body:      "prediction served in degraded mode for " + ev.Title(),
			CreatedAt: now,
		})
	}
}

// RecordVote registers a community vote and awards the participation point
// on the user's first vote for the event.
func (s *Service) RecordVote(ctx context.Context, eventID, userID, username string, choice model.VoteChoice) (types.VoteTotals, error) {
	totals, first, err := s.votes.Record(ctx, eventID, userID, choice)
	if err != nil {
		return types.VoteTotals{}, err
	}

	if first {
		if err := s.ledger.AwardVotePoints(ctx, userID, username); err != nil {
			s.logger.Warn(ctx, "vote point award failed",
				logger.String("userID", userID),
				logger.Error(err),
			)
		}
		s.enqueueNotice(ctx, model.Notice{
			ID:        uuid.NewString(),
			UserID:    userID,
			Kind:      model.NoticeVote,
			Subject:   eventID,
			Body:      "vote recorded (+1 point)",
			CreatedAt: s.now().UTC(),
		})
	}
	return totals, nil
}

// VoteStats returns the live tally for an event.
func (s *Service) VoteStats(ctx context.Context, eventID string) (types.VoteTotals, error) {
	return s.votes.Stats(ctx, eventID)
}

// UserStats returns the profile view for a user, including rank and the
// remaining daily quota.
func (s *Service) UserStats(ctx context.Context, userID string) (types.ProfileView, bool, error) {
	profile, found, err := s.ledger.Profile(ctx, userID)
	if err != nil || !found {
		return types.ProfileView{}, false, err
	}

	rank, err := s.ledger.Rank(ctx, userID)
	if err != nil {
		return types.ProfileView{}, false, err
	}

	used, err := s.usedToday(ctx, userID)
	if err != nil {
		return types.ProfileView{}, false, err
	}
	remaining := profile.Tier.DailyQuota() - used
	if remaining < 0 {
		remaining = 0
	}

	return types.ProfileView{
		UserID:           profile.UserID,
		Username:         profile.Username,
		Tier:             string(profile.Tier),
		TotalPoints:      profile.TotalPoints,
		PredictionsCount: profile.PredictionsCount,
		WinsCount:        profile.WinsCount,
		CurrentStreak:    profile.CurrentStreak,
		BestStreak:       profile.BestStreak,
		Achievements:     profile.Achievements,
		Rank:             rank,
		QuotaRemaining:   remaining,
	}, true, nil
}

// Leaderboard returns the top profiles by points. The limit is clamped to
// the configured maximum.
func (s *Service) Leaderboard(ctx context.Context, limit int) ([]types.RankedProfile, error) {
	if limit <= 0 || limit > s.leaderboardLimit {
		limit = s.leaderboardLimit
	}
	return s.ledger.Leaderboard(ctx, limit)
}

// History returns the user's most recent predictions, newest first.
func (s *Service) History(ctx context.Context, userID string, limit int) ([]types.PredictionSummary, error) {
	var history []model.Prediction
	if _, err := s.predictions.Get(ctx, HistoryKey, &history); err != nil {
		return nil, err
	}

	out := make([]types.PredictionSummary, 0, limit)
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].UserID != userID {
			continue
		}
		out = append(out, types.PredictionSummary{
			ID:           history[i].ID,
			EventID:      history[i].EventID,
			EventTitle:   history[i].EventTitle,
			CreatedAt:    history[i].CreatedAt,
			Status:       string(history[i].Status),
			PointsEarned: history[i].PointsEarned,
		})
		if limit > 0 && len(out) >= limit {
			break
		}
	}
	return out, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ctx := context.Background()
	stats := map[string]interface{}{
		"started":     s.started,
		"workerCount": s.workerCount,
		"historyCap":  s.historyCap,
	}

	if s.started {
		stats["noticeQueueLength"] = s.noticeQueue.Len(ctx)
		stats["predictionEntries"] = s.predictions.Count(ctx)
		stats["noticeEntries"] = s.notices.Count(ctx)
	}

	return stats
}
