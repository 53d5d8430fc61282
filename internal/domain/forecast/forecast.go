// Package forecast defines the structured prediction document produced by
// the generative backend, along with its validation rules.
package forecast

import (
	"errors"
	"fmt"
	"time"
)

// ConfidenceCeiling is the value the generator is instructed to stay under;
// parsed documents are clamped to it as well.
const ConfidenceCeiling = 85

// DefaultDisclaimer is injected when the backend omits its own.
const DefaultDisclaimer = "Predictions are generated estimates for entertainment purposes and carry no guarantee of accuracy. Bet responsibly."

// ResultProbabilities is the three-way outcome distribution in percent.
type ResultProbabilities struct {
	HomeWin float64 `json:"home_win"`
	Draw    float64 `json:"draw"`
	AwayWin float64 `json:"away_win"`
}

// ScoreCandidate is one exact-score suggestion with its likelihood.
type ScoreCandidate struct {
	Score       string  `json:"score"`
	Probability float64 `json:"probability"`
}

// TotalsMarket is the over/under goals call.
type TotalsMarket struct {
	Line       float64 `json:"line"`
	Pick       string  `json:"pick"` // "over" or "under"
	Confidence float64 `json:"confidence"`
}

// YesNoMarket is a binary market call such as both-teams-to-score.
type YesNoMarket struct {
	Pick       string  `json:"pick"` // "yes" or "no"
	Confidence float64 `json:"confidence"`
}

// RangeMarket is an expected-count market (corners, cards).
type RangeMarket struct {
	Expected   float64 `json:"expected"`
	Line       float64 `json:"line"`
	Pick       string  `json:"pick"`
	Confidence float64 `json:"confidence"`
}

// HalfTimeMarket is the half-time leader call.
type HalfTimeMarket struct {
	Leader     string  `json:"leader"` // "home", "draw", "away"
	Confidence float64 `json:"confidence"`
}

// SpecialMarket is a free-form market the generator chose to include.
type SpecialMarket struct {
	Name       string  `json:"name"`
	Pick       string  `json:"pick"`
	Confidence float64 `json:"confidence"`
}

// ComboSuggestion is a combined-bet suggestion over several markets.
type ComboSuggestion struct {
	Legs       []string `json:"legs"`
	Confidence float64  `json:"confidence"`
}

// BestValuePick is the single recommendation the generator values most.
type BestValuePick struct {
	Market     string  `json:"market"`
	Pick       string  `json:"pick"`
	Reasoning  string  `json:"reasoning,omitempty"`
	Confidence float64 `json:"confidence"`
}

// RiskAssessment grades the overall reliability of the document.
type RiskAssessment struct {
	Grade   string `json:"grade"` // "A" (safest) to "D"
	Comment string `json:"comment,omitempty"`
}

// Summary is the human-readable wrap-up with its explicit confidence.
type Summary struct {
	Text       string  `json:"text"`
	Winner     string  `json:"winner"` // "home", "draw", "away"
	Confidence float64 `json:"confidence"`
}

// Meta is attached by the engine after generation, not by the backend.
type Meta struct {
	EventID      string             `json:"event_id"`
	GeneratedAt  time.Time          `json:"generated_at"`
	Model        string             `json:"model,omitempty"`
	IsFallback   bool               `json:"is_fallback"`
	VoteSnapshot map[string]float64 `json:"vote_snapshot,omitempty"`
}

// Payload is the full structured prediction document.
type Payload struct {
	ResultProbabilities ResultProbabilities `json:"result_probabilities"`
	ExactScores         []ScoreCandidate    `json:"exact_scores"`
	Totals              TotalsMarket        `json:"totals"`
	BothTeamsToScore    YesNoMarket         `json:"both_teams_to_score"`
	Corners             RangeMarket         `json:"corners"`
	Cards               RangeMarket         `json:"cards"`
	HalfTime            HalfTimeMarket      `json:"half_time"`
	SpecialMarkets      []SpecialMarket     `json:"special_markets,omitempty"`
	ComboSuggestions    []ComboSuggestion   `json:"combo_suggestions,omitempty"`
	BestValue           BestValuePick       `json:"best_value"`
	Risk                RiskAssessment      `json:"risk"`
	Summary             Summary             `json:"summary"`
	Disclaimer          string              `json:"disclaimer"`
	Meta                Meta                `json:"meta"`
}

// Validate checks the invariants a parsed document must satisfy. A document
// that fails here is treated as malformed, which fails the whole attempt.
func (p *Payload) Validate() error {
	probs := p.ResultProbabilities
	total := probs.HomeWin + probs.Draw + probs.AwayWin
	if total < 95 || total > 105 {
		return fmt.Errorf("result probabilities sum to %.1f, want ~100", total)
	}
	if probs.HomeWin < 0 || probs.Draw < 0 || probs.AwayWin < 0 {
		return errors.New("negative result probability")
	}
	if len(p.ExactScores) == 0 {
		return errors.New("missing exact score candidates")
	}
	switch p.Summary.Winner {
	case "home", "draw", "away":
	default:
		return fmt.Errorf("invalid summary winner %q", p.Summary.Winner)
	}
	if p.Summary.Confidence <= 0 {
		return errors.New("missing summary confidence")
	}
	if p.BestValue.Market == "" || p.BestValue.Pick == "" {
		return errors.New("missing best value recommendation")
	}
	switch p.Risk.Grade {
	case "A", "B", "C", "D":
	default:
		return fmt.Errorf("invalid risk grade %q", p.Risk.Grade)
	}
	return nil
}

// Clamp enforces the confidence ceiling on every confidence field. The
// generator is instructed to stay under the ceiling; this is the backstop.
func (p *Payload) Clamp() {
	clamp := func(v *float64) {
		if *v > ConfidenceCeiling {
			*v = ConfidenceCeiling
		}
		if *v < 0 {
			*v = 0
		}
	}
	clamp(&p.Summary.Confidence)
	clamp(&p.Totals.Confidence)
	clamp(&p.BothTeamsToScore.Confidence)
	clamp(&p.Corners.Confidence)
	clamp(&p.Cards.Confidence)
	clamp(&p.HalfTime.Confidence)
	clamp(&p.BestValue.Confidence)
	for i := range p.SpecialMarkets {
		clamp(&p.SpecialMarkets[i].Confidence)
	}
	for i := range p.ComboSuggestions {
		clamp(&p.ComboSuggestions[i].Confidence)
	}
}
