// Package ledger maintains user profiles, points, achievements and the
// leaderboard on top of the profiles store.
package ledger

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/internal/domain/types"
	"github.com/tipio/tipio/pkg/logger"
	"github.com/tipio/tipio/pkg/metrics"
)

// votePointAward is the fixed award for a recorded community vote.
const votePointAward = 1

// Ledger wraps the profiles store. Every mutation runs inside the store's
// critical section, so point totals, achievement sets and ranks never drift
// apart under concurrent requests.
type Ledger struct {
	profiles store.Store

	now    func() time.Time
	logger logger.Logger
}

// Option applies a configuration option to the Ledger.
type Option func(*Ledger)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) {
		if now != nil {
			l.now = now
		}
	}
}

// WithLogger sets a custom logger for the ledger.
func WithLogger(lg logger.Logger) Option {
	return func(l *Ledger) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// New creates a Ledger over the profiles store.
func New(profiles store.Store, opts ...Option) *Ledger {
	l := &Ledger{
		profiles: profiles,
		now:      time.Now,
		logger:   logger.Get().Named("ledger"),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// GetOrCreate returns the profile for userID, creating it lazily on first
// interaction. A non-empty username refreshes the stored one.
func (l *Ledger) GetOrCreate(ctx context.Context, userID, username string) (model.UserProfile, error) {
	var profile model.UserProfile
	err := l.profiles.Update(ctx, func(tx store.Tx) error {
		p, err := l.loadOrInit(tx, userID, username)
		if err != nil {
			return err
		}
		profile = p
		return tx.Set(userID, p)
	})
	return profile, err
}

// loadOrInit reads a profile inside a transaction, initializing a fresh one
// when the user is unknown.
func (l *Ledger) loadOrInit(tx store.Tx, userID, username string) (model.UserProfile, error) {
	var p model.UserProfile
	found, err := tx.Get(userID, &p)
	if err != nil {
		return model.UserProfile{}, err
	}
	if !found {
		p = model.UserProfile{
			UserID:       userID,
			Username:     username,
			Tier:         model.TierFree,
			Achievements: []string{},
			JoinedAt:     l.now().UTC(),
		}
		metrics.UpdateProfilesTotal(len(tx.Keys()) + 1)
	}
	if username != "" {
		p.Username = username
	}
	return p, nil
}

// AwardVotePoints grants the fixed vote award, independent of any quota.
func (l *Ledger) AwardVotePoints(ctx context.Context, userID, username string) error {
	return l.profiles.Update(ctx, func(tx store.Tx) error {
		p, err := l.loadOrInit(tx, userID, username)
		if err != nil {
			return err
		}
		p.TotalPoints += votePointAward
		return tx.Set(userID, p)
	})
}

// ScorePrediction runs the post-prediction scoring step: it increments the
// monotonic prediction counter, recomputes the user's rank, evaluates the
// achievement catalog and applies any new awards, all atomically with the
// profile save. It returns the updated profile and the newly unlocked
// achievements in catalog order.
func (l *Ledger) ScorePrediction(ctx context.Context, userID, username string) (model.UserProfile, []Achievement, error) {
	var (
		profile  model.UserProfile
		unlocked []Achievement
	)
	err := l.profiles.Update(ctx, func(tx store.Tx) error {
		p, err := l.loadOrInit(tx, userID, username)
		if err != nil {
			return err
		}
		p.PredictionsCount++

		rank, err := rankWithin(tx, p)
		if err != nil {
			return err
		}
		unlocked = applyAchievements(&p, rank)
		profile = p
		return tx.Set(userID, p)
	})
	if err != nil {
		return model.UserProfile{}, nil, err
	}
	for range unlocked {
		metrics.RecordAchievement()
	}
	return profile, unlocked, nil
}

// CheckAndAwardAchievements re-evaluates the catalog for an existing user
// without touching counters. Running it twice on an unchanged profile awards
// nothing the second time.
func (l *Ledger) CheckAndAwardAchievements(ctx context.Context, userID string) ([]Achievement, error) {
	var unlocked []Achievement
	err := l.profiles.Update(ctx, func(tx store.Tx) error {
		var p model.UserProfile
		found, err := tx.Get(userID, &p)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("unknown user %s", userID)
		}
		rank, err := rankWithin(tx, p)
		if err != nil {
			return err
		}
		unlocked = applyAchievements(&p, rank)
		if len(unlocked) == 0 {
			return nil
		}
		return tx.Set(userID, p)
	})
	if err != nil {
		return nil, err
	}
	for range unlocked {
		metrics.RecordAchievement()
	}
	return unlocked, nil
}

// applyAchievements walks the catalog in order, awarding each unlocked
// achievement exactly once, guarded by membership in the profile's set.
func applyAchievements(p *model.UserProfile, rank int) []Achievement {
	var unlocked []Achievement
	for _, a := range Catalog {
		if p.HasAchievement(a.ID) {
			continue
		}
		if !a.Unlocked(*p, rank) {
			continue
		}
		p.Achievements = append(p.Achievements, a.ID)
		p.TotalPoints += a.Points
		unlocked = append(unlocked, a)
	}
	return unlocked
}

// byRank orders profiles by total points descending, breaking ties by the
// earliest join date and then by user id so the ordering is deterministic.
func byRank(profiles []model.UserProfile) {
	sort.SliceStable(profiles, func(i, j int) bool {
		a, b := profiles[i], profiles[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
}

// loadAll reads every profile in the transaction.
func loadAll(tx store.Tx) ([]model.UserProfile, error) {
	keys := tx.Keys()
	profiles := make([]model.UserProfile, 0, len(keys))
	for _, k := range keys {
		var p model.UserProfile
		found, err := tx.Get(k, &p)
		if err != nil {
			return nil, err
		}
		if found {
			profiles = append(profiles, p)
		}
	}
	return profiles, nil
}

// rankWithin computes the 1-based rank p would hold against all stored
// profiles, substituting p's in-flight state for its stored row.
func rankWithin(tx store.Tx, p model.UserProfile) (int, error) {
	profiles, err := loadAll(tx)
	if err != nil {
		return 0, err
	}
	replaced := false
	for i := range profiles {
		if profiles[i].UserID == p.UserID {
			profiles[i] = p
			replaced = true
			break
		}
	}
	if !replaced {
		profiles = append(profiles, p)
	}
	byRank(profiles)
	for i := range profiles {
		if profiles[i].UserID == p.UserID {
			return i + 1, nil
		}
	}
	return 0, nil
}

// Leaderboard returns the top profiles, rank assigned by position.
func (l *Ledger) Leaderboard(ctx context.Context, limit int) ([]types.RankedProfile, error) {
	var ranked []types.RankedProfile
	err := l.profiles.Update(ctx, func(tx store.Tx) error {
		profiles, err := loadAll(tx)
		if err != nil {
			return err
		}
		byRank(profiles)
		if limit > 0 && len(profiles) > limit {
			profiles = profiles[:limit]
		}
		ranked = make([]types.RankedProfile, len(profiles))
		for i, p := range profiles {
			ranked[i] = types.RankedProfile{
				Rank:        i + 1,
				UserID:      p.UserID,
				Username:    p.Username,
				TotalPoints: p.TotalPoints,
			}
		}
		return nil
	})
	return ranked, err
}

// Rank returns the 1-based leaderboard position for a user, 0 when unknown.
func (l *Ledger) Rank(ctx context.Context, userID string) (int, error) {
	rank := 0
	err := l.profiles.Update(ctx, func(tx store.Tx) error {
		profiles, err := loadAll(tx)
		if err != nil {
			return err
		}
		byRank(profiles)
		for i := range profiles {
			if profiles[i].UserID == userID {
				rank = i + 1
				return nil
			}
		}
		return nil
	})
	return rank, err
}

// Profile returns the stored profile for a user without creating one.
func (l *Ledger) Profile(ctx context.Context, userID string) (model.UserProfile, bool, error) {
	var p model.UserProfile
	found, err := l.profiles.Get(ctx, userID, &p)
	return p, found, err
}
