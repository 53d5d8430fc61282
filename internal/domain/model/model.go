// Package model contains domain models passed between layers.
package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/tipio/tipio/internal/domain/forecast"
)

// EventStatus describes the lifecycle of a discovered event.
type EventStatus string

const (
	EventScheduled EventStatus = "scheduled"
	EventLive      EventStatus = "live"
	EventFinished  EventStatus = "finished"
)

// Event is a live sporting event handed to the engine by the discovery
// collaborator. The engine treats it as read-only input.
type Event struct {
	ID        string      `json:"id"`
	PartyA    string      `json:"party_a"`
	PartyB    string      `json:"party_b"`
	Sport     string      `json:"sport"`
	StartTime time.Time   `json:"start_time"`
	Status    EventStatus `json:"status"`
}

// Title renders the canonical "A vs B" form of the fixture.
func (e Event) Title() string {
	return e.PartyA + " vs " + e.PartyB
}

// EventID derives a stable identifier from the sport, the normalized title
// and the discovery date, so re-discovering the same fixture on the same day
// yields the same id.
func EventID(sport, title string, discovered time.Time) string {
	norm := strings.Join(strings.Fields(strings.ToLower(title)), " ")
	day := discovered.Format("2006-01-02")
	sum := sha256.Sum256([]byte(sport + "|" + norm + "|" + day))
	return hex.EncodeToString(sum[:])[:16]
}

// PredictionStatus tracks settlement state. Settlement itself happens outside
// the engine; new predictions always start as pending.
type PredictionStatus string

const (
	PredictionPending PredictionStatus = "pending"
	PredictionWon     PredictionStatus = "won"
	PredictionLost    PredictionStatus = "lost"
	PredictionPartial PredictionStatus = "partial"
	PredictionVoid    PredictionStatus = "void"
)

// Prediction is one generated forecast, appended to the per-user history ring.
type Prediction struct {
	ID           string           `json:"id"`
	EventID      string           `json:"event_id"`
	UserID       string           `json:"user_id"`
	EventTitle   string           `json:"event_title"`
	Payload      forecast.Payload `json:"payload"`
	CreatedAt    time.Time        `json:"created_at"`
	Status       PredictionStatus `json:"status"`
	PointsEarned int              `json:"points_earned"`
}

// Tier is a user's access level. It governs the daily prediction quota.
type Tier string

const (
	TierFree    Tier = "free"
	TierPremium Tier = "premium"
	TierVIP     Tier = "vip"
	TierAdmin   Tier = "admin"
)

// DailyQuota returns the number of predictions a tier may request per
// calendar day. Unknown tiers fall back to the free allowance.
func (t Tier) DailyQuota() int {
	switch t {
	case TierPremium:
		return 50
	case TierVIP, TierAdmin:
		return 100
	default:
		return 5
	}
}

// UserProfile carries the gamification state for one user. It is created
// lazily on first interaction and never deleted by the engine.
type UserProfile struct {
	UserID           string    `json:"user_id"`
	Username         string    `json:"username"`
	Tier             Tier      `json:"tier"`
	TotalPoints      int       `json:"total_points"`
	PredictionsCount int       `json:"predictions_count"`
	WinsCount        int       `json:"wins_count"`
	CurrentStreak    int       `json:"current_streak"`
	BestStreak       int       `json:"best_streak"`
	Achievements     []string  `json:"achievements"`
	JoinedAt         time.Time `json:"joined_at"`
}

// HasAchievement reports whether the profile already holds the achievement.
func (p UserProfile) HasAchievement(id string) bool {
	for _, a := range p.Achievements {
		if a == id {
			return true
		}
	}
	return false
}

// VoteChoice is a crowd vote outcome: home win, draw, or away win.
type VoteChoice string

const (
	VoteHome VoteChoice = "1"
	VoteDraw VoteChoice = "draw"
	VoteAway VoteChoice = "2"
)

// ValidChoice reports whether c is one of the three accepted outcomes.
func ValidChoice(c VoteChoice) bool {
	return c == VoteHome || c == VoteDraw || c == VoteAway
}

// Vote is one user's live vote on an event. A user holds at most one live
// vote per event; re-voting replaces it.
type Vote struct {
	UserID    string     `json:"user_id"`
	Choice    VoteChoice `json:"choice"`
	Timestamp time.Time  `json:"timestamp"`
}

// VoteSet is the per-event vote state persisted as a single document entry.
type VoteSet struct {
	EventID string             `json:"event_id"`
	Votes   []Vote             `json:"votes"`
	Totals  map[VoteChoice]int `json:"totals"`
}

// Notice is an internal notification queued for asynchronous delivery,
// e.g. an achievement unlock or a degraded (fallback) prediction.
type Notice struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Kind      string    `json:"kind"`
	Subject   string    `json:"subject"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
}

// Notice kinds.
const (
	NoticeAchievement = "achievement"
	NoticeFallback    = "fallback_prediction"
	NoticeVote        = "vote_recorded"
)
