// Package types contains common types used across the application
package types

import (
	"time"

	"github.com/tipio/tipio/internal/domain/forecast"
)

// RankedProfile represents a leaderboard entry.
type RankedProfile struct {
	Rank        int    `json:"rank"`
	UserID      string `json:"user_id"`
	Username    string `json:"username"`
	TotalPoints int    `json:"total_points"`
}

// ProfileView is the read shape returned by user stats queries.
type ProfileView struct {
	UserID           string   `json:"user_id"`
	Username         string   `json:"username"`
	Tier             string   `json:"tier"`
	TotalPoints      int      `json:"total_points"`
	PredictionsCount int      `json:"predictions_count"`
	WinsCount        int      `json:"wins_count"`
	CurrentStreak    int      `json:"current_streak"`
	BestStreak       int      `json:"best_streak"`
	Achievements     []string `json:"achievements"`
	Rank             int      `json:"rank"`
	QuotaRemaining   int      `json:"quota_remaining"`
}

// VoteTotals is the tally snapshot returned after recording a vote.
type VoteTotals struct {
	EventID     string             `json:"event_id"`
	Totals      map[string]int     `json:"totals"`
	Percentages map[string]float64 `json:"percentages"`
	VoterCount  int                `json:"voter_count"`
}

// PredictionSummary is a compact history row.
type PredictionSummary struct {
	ID           string    `json:"id"`
	EventID      string    `json:"event_id"`
	EventTitle   string    `json:"event_title"`
	CreatedAt    time.Time `json:"created_at"`
	Status       string    `json:"status"`
	PointsEarned int       `json:"points_earned"`
}

// RenderableResult is what the front-end receives for a prediction request.
// It is always populated, even when the engine degraded to its fallback.
type RenderableResult struct {
	PredictionID    string           `json:"prediction_id"`
	EventID         string           `json:"event_id"`
	EventTitle      string           `json:"event_title"`
	Payload         forecast.Payload `json:"payload"`
	IsFallback      bool             `json:"is_fallback"`
	QualityScore    int              `json:"quality_score"`
	SourcesUsed     []string         `json:"sources_used"`
	NewAchievements []string         `json:"new_achievements"`
	QuotaRemaining  int              `json:"quota_remaining"`
}
