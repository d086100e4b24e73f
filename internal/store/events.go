package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/fortuna-sports/arbiter/pkg/models"
	"github.com/fortuna-sports/arbiter/pkg/oddserr"
)

// ReplaceLatest atomically swaps the latest_events snapshot: readers see
// either the previous or the new set, never a mix.
func (s *Store) ReplaceLatest(ctx context.Context, events []models.Event) error {
	return withTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM latest_events`); err != nil {
			return oddserr.Store("clear latest_events", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO latest_events (fingerprint, sport_key, commence_time, home_team, away_team, payload)
			VALUES (?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return oddserr.Store("prepare insert latest_events", err)
		}
		defer stmt.Close()

		for _, e := range events {
			payload, err := json.Marshal(e)
			if err != nil {
				return oddserr.Store("marshal event", err)
			}
			if _, err := stmt.ExecContext(ctx,
				e.Fingerprint(), e.SportKey, e.CommenceTime.UTC().Format(time.RFC3339), e.HomeTeam, e.AwayTeam, payload,
			); err != nil {
				return oddserr.Store("insert latest_events row", err)
			}
		}
		return nil
	})
}

// ListLatest returns the current snapshot, optionally filtered by sport.
func (s *Store) ListLatest(ctx context.Context, sport string) ([]models.Event, error) {
	var rows *sql.Rows
	var err error
	if sport == "" {
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM latest_events`)
	} else {
		rows, err = s.db.QueryContext(ctx, `SELECT payload FROM latest_events WHERE sport_key = ?`, sport)
	}
	if err != nil {
		return nil, oddserr.Store("list latest_events", err)
	}
	defer rows.Close()

	var out []models.Event
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, oddserr.Store("scan latest_events row", err)
		}
		var e models.Event
		if err := json.Unmarshal(payload, &e); err != nil {
			return nil, oddserr.Store("unmarshal event", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
