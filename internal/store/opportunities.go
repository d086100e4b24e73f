package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fortuna-sports/arbiter/pkg/contracts"
	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/oddserr"
)

const maxListLimit = 500

// AppendOpportunities appends new rows in a single transaction. An
// opportunity whose minute-bucket fingerprint already exists is skipped —
// idempotent within a minute, so an overlapping/duplicate refresh never
// produces duplicate rows.
func (s *Store) AppendOpportunities(ctx context.Context, ops []models.Opportunity) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT OR IGNORE INTO opportunities_log (
				id, minute_bucket, sport_key, commence_time, home_team, away_team,
				market_key, total_implied_probability, profit_pct, detected_at, payload
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return oddserr.Store("prepare insert opportunities_log", err)
		}
		defer stmt.Close()

		for _, o := range ops {
			payload, err := json.Marshal(o.Legs)
			if err != nil {
				return oddserr.Store("marshal opportunity legs", err)
			}
			if _, err := stmt.ExecContext(ctx,
				o.ID, o.MinuteBucketKey(), o.SportKey, o.CommenceTime.UTC().Format(time.RFC3339),
				o.HomeTeam, o.AwayTeam, o.MarketKey, o.TotalImpliedProbability, o.ProfitPct,
				o.DetectedAt.UTC().Format(time.RFC3339Nano), payload,
			); err != nil {
				return oddserr.Store("insert opportunities_log row", err)
			}
		}
		return nil
	})
}

// ListOpportunities answers a filtered, limited read ordered by
// (detected_at DESC, sport, profit_pct DESC) per the opportunities_log
// index.
func (s *Store) ListOpportunities(ctx context.Context, q contracts.ListOpportunitiesQuery) ([]models.Opportunity, error) {
	limit := q.Limit
	if limit <= 0 || limit > maxListLimit {
		limit = maxListLimit
	}

	query := `
		SELECT id, sport_key, commence_time, home_team, away_team, market_key,
		       total_implied_probability, profit_pct, detected_at, payload
		FROM opportunities_log
		WHERE profit_pct >= ?`
	args := []any{q.MinProfitPct}

	if q.Sport != "" {
		query += ` AND sport_key = ?`
		args = append(args, q.Sport)
	}
	if !q.Since.IsZero() {
		query += ` AND detected_at >= ?`
		args = append(args, q.Since.UTC().Format(time.RFC3339Nano))
	}
	query += ` ORDER BY detected_at DESC, sport_key, profit_pct DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, oddserr.Store("list opportunities_log", err)
	}
	defer rows.Close()

	var out []models.Opportunity
	for rows.Next() {
		var (
			o                  models.Opportunity
			commenceTime       string
			detectedAt         string
			legsPayload        []byte
		)
		if err := rows.Scan(
			&o.ID, &o.SportKey, &commenceTime, &o.HomeTeam, &o.AwayTeam, &o.MarketKey,
			&o.TotalImpliedProbability, &o.ProfitPct, &detectedAt, &legsPayload,
		); err != nil {
			return nil, oddserr.Store("scan opportunities_log row", err)
		}

		o.CommenceTime, err = time.Parse(time.RFC3339, commenceTime)
		if err != nil {
			return nil, oddserr.Store("parse commence_time", err)
		}
		o.DetectedAt, err = time.Parse(time.RFC3339Nano, detectedAt)
		if err != nil {
			return nil, oddserr.Store("parse detected_at", err)
		}
		if err := json.Unmarshal(legsPayload, &o.Legs); err != nil {
			return nil, oddserr.Store("unmarshal legs", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// PurgeOpportunities deletes rows detected before olderThan, returning the
// count removed.
func (s *Store) PurgeOpportunities(ctx context.Context, olderThan time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM opportunities_log WHERE detected_at < ?`,
		olderThan.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return 0, oddserr.Store("purge opportunities_log", err)
	}
	return res.RowsAffected()
}

var _ contracts.Store = (*Store)(nil)
