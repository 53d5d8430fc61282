// Package votes keeps per-event community vote tallies and vote identity.
package votes

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/tipio/tipio/internal/adapters/store"
	"github.com/tipio/tipio/internal/domain/model"
	"github.com/tipio/tipio/internal/domain/types"
	"github.com/tipio/tipio/pkg/metrics"
)

// ErrInvalidChoice rejects votes outside the three-way market.
var ErrInvalidChoice = fmt.Errorf("invalid vote choice")

// Store records votes and serves tally snapshots. One document entry per
// event; a user holds at most one live vote per event.
type Store struct {
	votes store.Store
	now   func() time.Time
}

// Option applies a configuration option to the vote store.
type Option func(*Store)

// WithClock overrides the time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a vote store over the given document store.
func New(votes store.Store, opts ...Option) *Store {
	s := &Store{votes: votes, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Record registers or replaces a user's vote on an event. Replacing
// decrements the previous choice's tally (floored at zero) and increments
// the new one atomically with the vote list update. The second return
// reports whether this was the user's first vote on the event.
func (s *Store) Record(ctx context.Context, eventID, userID string, choice model.VoteChoice) (types.VoteTotals, bool, error) {
	if !model.ValidChoice(choice) {
		return types.VoteTotals{}, false, fmt.Errorf("%w: %q", ErrInvalidChoice, choice)
	}

	first := false
	var set model.VoteSet
	err := s.votes.Update(ctx, func(tx store.Tx) error {
		found, err := tx.Get(eventID, &set)
		if err != nil {
			return err
		}
		if !found {
			set = model.VoteSet{
				EventID: eventID,
				Totals:  make(map[model.VoteChoice]int),
			}
		}
		if set.Totals == nil {
			set.Totals = make(map[model.VoteChoice]int)
		}

		replaced := false
		for i := range set.Votes {
			if set.Votes[i].UserID != userID {
				continue
			}
			prev := set.Votes[i].Choice
			if set.Totals[prev] > 0 {
				set.Totals[prev]--
			}
			set.Votes[i].Choice = choice
			set.Votes[i].Timestamp = s.now().UTC()
			replaced = true
			break
		}
		if !replaced {
			set.Votes = append(set.Votes, model.Vote{
				UserID:    userID,
				Choice:    choice,
				Timestamp: s.now().UTC(),
			})
			first = true
		}
		set.Totals[choice]++
		return tx.Set(eventID, set)
	})
	if err != nil {
		return types.VoteTotals{}, false, err
	}
	metrics.RecordVote()
	return snapshot(set), first, nil
}

// Stats returns the tally snapshot for an event. Unknown events yield an
// empty snapshot with zero percentages.
func (s *Store) Stats(ctx context.Context, eventID string) (types.VoteTotals, error) {
	var set model.VoteSet
	found, err := s.votes.Get(ctx, eventID, &set)
	if err != nil {
		return types.VoteTotals{}, err
	}
	if !found {
		set = model.VoteSet{EventID: eventID, Totals: map[model.VoteChoice]int{}}
	}
	return snapshot(set), nil
}

// snapshot renders totals plus percentage-of-total for each choice, rounded
// to one decimal place. Percentages are 0 when nobody has voted.
func snapshot(set model.VoteSet) types.VoteTotals {
	totals := make(map[string]int, 3)
	percentages := make(map[string]float64, 3)
	voters := 0
	for _, c := range []model.VoteChoice{model.VoteHome, model.VoteDraw, model.VoteAway} {
		n := set.Totals[c]
		totals[string(c)] = n
		voters += n
	}
	for c, n := range totals {
		if voters == 0 {
			percentages[c] = 0
			continue
		}
		percentages[c] = math.Round(float64(n)/float64(voters)*1000) / 10
	}
	return types.VoteTotals{
		EventID:     set.EventID,
		Totals:      totals,
		Percentages: percentages,
		VoterCount:  voters,
	}
}
