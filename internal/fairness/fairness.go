package fairness

import (
	"context"
	"math"
	"time"

	"github.com/CalmingAgent/movieNight/internal/model"
)

// Store is the slice of night history the tracker reads.
type Store interface {
	NightsSinceWin(ctx context.Context, movieID int64) (n int, won bool, err error)
	GroupStats(ctx context.Context, since time.Time) ([]model.GroupStat, error)
}

// AttendanceStore answers per-user attendance tallies.
type AttendanceStore interface {
	AttendanceCount(ctx context.Context, userID int64) (int64, error)
}

// Tracker derives attendance counts, recency penalties for the draw, and
// periodic bias audits over the night history.
type Tracker struct {
	store         Store
	attendance    AttendanceStore
	cooldown      int
	ramp          int
	biasThreshold float64
}

func New(store Store, attendance AttendanceStore, cooldown, ramp int, biasThreshold float64) *Tracker {
	return &Tracker{store: store, attendance: attendance, cooldown: cooldown, ramp: ramp, biasThreshold: biasThreshold}
}

// AttendanceFor counts the nights the user has attended.
func (t *Tracker) AttendanceFor(ctx context.Context, userID int64) (int64, error) {
	return t.attendance.AttendanceCount(ctx, userID)
}

// RecencyPenalty returns the multiplier applied to a movie's draw weight:
// 1 for a movie that never won, 0 while inside the cooldown window after a
// win, then a linear ramp back up to 1.
func (t *Tracker) RecencyPenalty(ctx context.Context, movieID int64) (float64, error) {
	n, won, err := t.store.NightsSinceWin(ctx, movieID)
	if err != nil {
		return 0, err
	}
	if !won {
		return 1, nil
	}
	if n <= t.cooldown {
		return 0, nil
	}
	if t.ramp <= 0 {
		return 1, nil
	}
	return math.Min(1, float64(n-t.cooldown)/float64(t.ramp)), nil
}

// Audit compares each grouping's share of wins against its share of
// candidacies since the cutoff and flags deviations past the threshold.
func (t *Tracker) Audit(ctx context.Context, since, asOf time.Time) ([]model.FairnessAudit, error) {
	stats, err := t.store.GroupStats(ctx, since)
	if err != nil {
		return nil, err
	}

	totals := map[string]struct{ proposed, wins int64 }{}
	for _, s := range stats {
		tot := totals[s.Dimension]
		tot.proposed += s.Proposed
		tot.wins += s.Wins
		totals[s.Dimension] = tot
	}

	var out []model.FairnessAudit
	for _, s := range stats {
		tot := totals[s.Dimension]
		if tot.proposed == 0 {
			continue
		}
		a := model.FairnessAudit{
			AsOf:          asOf,
			Dimension:     s.Dimension,
			Grouping:      s.Grouping,
			ProposedShare: float64(s.Proposed) / float64(tot.proposed),
		}
		if tot.wins > 0 {
			a.WinShare = float64(s.Wins) / float64(tot.wins)
		}
		a.Deviation = a.WinShare - a.ProposedShare
		a.Flagged = math.Abs(a.Deviation) >= t.biasThreshold
		out = append(out, a)
	}
	return out, nil
}
