package ledger

import "github.com/tipio/tipio/internal/domain/model"

// Achievement is one entry of the static catalog. Awards are idempotent:
// once the id is in the profile's achievement set it is never re-paid.
type Achievement struct {
	ID     string
	Name   string
	Points int

	// Unlocked evaluates the predicate against the updated profile and the
	// user's current leaderboard rank (1-based, 0 when unranked).
	Unlocked func(p model.UserProfile, rank int) bool
}

// Catalog is the fixed, ordered achievement list. Order matters: earlier
// entries are evaluated (and paid) first, and rank predicates see the rank
// computed before any of this batch's points were applied.
var Catalog = []Achievement{
	{
		ID:     "first_prediction",
		Name:   "First Call",
		Points: 10,
		Unlocked: func(p model.UserProfile, _ int) bool {
			return p.PredictionsCount >= 1
		},
	},
	{
		ID:     "predictions_10",
		Name:   "Regular Tipster",
		Points: 25,
		Unlocked: func(p model.UserProfile, _ int) bool {
			return p.PredictionsCount >= 10
		},
	},
	{
		ID:     "predictions_50",
		Name:   "Seasoned Analyst",
		Points: 100,
		Unlocked: func(p model.UserProfile, _ int) bool {
			return p.PredictionsCount >= 50
		},
	},
	{
		ID:     "first_win",
		Name:   "Off the Mark",
		Points: 15,
		Unlocked: func(p model.UserProfile, _ int) bool {
			return p.WinsCount >= 1
		},
	},
	{
		ID:     "wins_10",
		Name:   "Sharp Eye",
		Points: 50,
		Unlocked: func(p model.UserProfile, _ int) bool {
			return p.WinsCount >= 10
		},
	},
	{
		ID:     "streak_5",
		Name:   "Hot Streak",
		Points: 30,
		Unlocked: func(p model.UserProfile, _ int) bool {
			return p.CurrentStreak >= 5
		},
	},
	{
		ID:     "streak_10",
		Name:   "Unstoppable",
		Points: 75,
		Unlocked: func(p model.UserProfile, _ int) bool {
			return p.CurrentStreak >= 10
		},
	},
	{
		ID:     "top_10",
		Name:   "Contender",
		Points: 50,
		Unlocked: func(_ model.UserProfile, rank int) bool {
			return rank > 0 && rank <= 10
		},
	},
	{
		ID:     "top_3",
		Name:   "Podium Finish",
		Points: 150,
		Unlocked: func(_ model.UserProfile, rank int) bool {
			return rank > 0 && rank <= 3
		},
	},
}
