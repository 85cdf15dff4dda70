package repos

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/CalmingAgent/movieNight/internal/model"
)

type AuditsRepo struct {
	db *pgxpool.Pool
}

func (r *AuditsRepo) Append(ctx context.Context, audits []model.FairnessAudit) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, a := range audits {
		_, err := tx.Exec(ctx, `
			INSERT INTO fairness_audits (as_of, dimension, grouping, proposed_share, win_share, deviation, flagged)
			VALUES ($1, $2, $3, $4, $5, $6, $7)`,
			a.AsOf, a.Dimension, a.Grouping, a.ProposedShare, a.WinShare, a.Deviation, a.Flagged)
		if err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

func (r *AuditsRepo) List(ctx context.Context, since time.Time) ([]model.FairnessAudit, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, as_of, dimension, grouping, proposed_share, win_share, deviation, flagged
		FROM fairness_audits WHERE as_of >= $1 ORDER BY as_of DESC, dimension, grouping`, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.FairnessAudit
	for rows.Next() {
		var a model.FairnessAudit
		if err := rows.Scan(&a.ID, &a.AsOf, &a.Dimension, &a.Grouping,
			&a.ProposedShare, &a.WinShare, &a.Deviation, &a.Flagged); err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
