package app

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"exam-arena/internal/domain"
)

// ScorePersister mirrors live scores into storage so the teacher can
// resume a dashboard without losing the running totals.
type ScorePersister interface {
	SaveLiveScores(scores map[string]int) error
	ClearLiveScores() error
}

// Scoreboard accumulates live per-team point totals on the teacher side.
// Totals only ever grow; Reset is the one way back to zero.
type Scoreboard struct {
	store ScorePersister
	log   zerolog.Logger

	mu     sync.Mutex
	scores map[string]int
	order  []string // first-seen order, used as the ranking tie-break
}

func NewScoreboard(store ScorePersister, log zerolog.Logger) *Scoreboard {
	return &Scoreboard{
		store:  store,
		log:    log.With().Str("component", "scoreboard").Logger(),
		scores: make(map[string]int),
	}
}

// Restore seeds the board from previously persisted totals.
func (b *Scoreboard) Restore(scores map[string]int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for team, points := range scores {
		if points < 0 {
			continue
		}
		if _, seen := b.scores[team]; !seen {
			b.order = append(b.order, team)
		}
		b.scores[team] = points
	}
}

// Apply adds one point delta to a team's total. Non-positive deltas are
// ignored; totals never decrease. Persisting happens under the lock so
// snapshots reach storage in mutation order and stored totals never
// transiently run behind a later write.
func (b *Scoreboard) Apply(team string, points int) {
	if team == "" || points <= 0 {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, seen := b.scores[team]; !seen {
		b.order = append(b.order, team)
	}
	b.scores[team] += points
	if err := b.store.SaveLiveScores(b.copyLocked()); err != nil {
		b.log.Warn().Err(err).Msg("persisting live scores")
	}
}

// Reset clears every total, in memory and in storage. The storage clear
// runs under the same lock as the in-memory clear so a concurrent Apply
// cannot land between the two.
func (b *Scoreboard) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.scores = make(map[string]int)
	b.order = nil
	if err := b.store.ClearLiveScores(); err != nil {
		b.log.Warn().Err(err).Msg("clearing live scores")
	}
}

// Scores returns a copy of the raw team totals.
func (b *Scoreboard) Scores() map[string]int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.copyLocked()
}

// Leaderboard derives the ranked view: every known team appears, teams
// without points show zero, and ranking is by points descending with
// first-seen order breaking ties. The underlying totals are not touched.
func (b *Scoreboard) Leaderboard(teams []string) []domain.TeamScore {
	b.mu.Lock()
	defer b.mu.Unlock()

	entries := make([]domain.TeamScore, 0, len(b.order)+len(teams))
	listed := make(map[string]bool, len(b.order))
	for _, team := range b.order {
		entries = append(entries, domain.TeamScore{Team: team, Points: b.scores[team]})
		listed[team] = true
	}
	for _, team := range teams {
		if !listed[team] {
			entries = append(entries, domain.TeamScore{Team: team, Points: 0})
			listed[team] = true
		}
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Points > entries[j].Points
	})
	return entries
}

func (b *Scoreboard) copyLocked() map[string]int {
	out := make(map[string]int, len(b.scores))
	for team, points := range b.scores {
		out[team] = points
	}
	return out
}
