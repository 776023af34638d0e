package indexdb

import (
	"context"
	"database/sql"
	"fmt"
)

type EventRow struct {
	Seq         uint64 `json:"seq"`
	At          string `json:"at"`
	Kind        string `json:"kind"`
	PlayerID    string `json:"playerId,omitempty"`
	PlayerName  string `json:"playerName,omitempty"`
	TerritoryID uint64 `json:"territoryId,omitempty"`
}

type LeaderRow struct {
	OwnerID     string `json:"ownerId"`
	OwnerName   string `json:"ownerName"`
	Territories int    `json:"territories"`
}

type TransferRow struct {
	Seq       uint64 `json:"seq"`
	FromOwner string `json:"fromOwner"`
	ToOwner   string `json:"toOwner"`
	ToName    string `json:"toName"`
	At        string `json:"at"`
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 1000 {
		return 100
	}
	return limit
}

// History returns the most recent journal events of the current run,
// newest first.
func (s *SQLiteIndex) History(ctx context.Context, limit int) ([]EventRow, error) {
	run, err := s.runID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, at, kind, COALESCE(player_id,''), COALESCE(player_name,''), COALESCE(territory_id,0)
		 FROM events WHERE run_id=? ORDER BY seq DESC LIMIT ?`, run, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("history: %w", err)
	}
	defer rows.Close()

	var out []EventRow
	for rows.Next() {
		var r EventRow
		var seq, tid int64
		if err := rows.Scan(&seq, &r.At, &r.Kind, &r.PlayerID, &r.PlayerName, &tid); err != nil {
			return nil, err
		}
		r.Seq, r.TerritoryID = uint64(seq), uint64(tid)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Leaderboard counts territories per current owner in the current run.
func (s *SQLiteIndex) Leaderboard(ctx context.Context, limit int) ([]LeaderRow, error) {
	run, err := s.runID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT owner_id, MAX(owner_name), COUNT(*) AS n
		 FROM territories WHERE run_id=? GROUP BY owner_id ORDER BY n DESC, owner_id ASC LIMIT ?`, run, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("leaderboard: %w", err)
	}
	defer rows.Close()

	var out []LeaderRow
	for rows.Next() {
		var r LeaderRow
		if err := rows.Scan(&r.OwnerID, &r.OwnerName, &r.Territories); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// TerritoryTransfers lists ownership changes of one territory, oldest first.
func (s *SQLiteIndex) TerritoryTransfers(ctx context.Context, territoryID uint64) ([]TransferRow, error) {
	run, err := s.runID(ctx)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, from_owner, to_owner, to_name, at FROM transfers
		 WHERE run_id=? AND territory_id=? ORDER BY seq ASC`, run, int64(territoryID))
	if err != nil {
		return nil, fmt.Errorf("transfers: %w", err)
	}
	defer rows.Close()

	var out []TransferRow
	for rows.Next() {
		var r TransferRow
		var seq int64
		if err := rows.Scan(&seq, &r.FromOwner, &r.ToOwner, &r.ToName, &r.At); err != nil {
			return nil, err
		}
		r.Seq = uint64(seq)
		out = append(out, r)
	}
	return out, rows.Err()
}

// Meta returns a meta value, or "" when unset.
func (s *SQLiteIndex) Meta(ctx context.Context, key string) (string, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key=?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", nil
	}
	return v, err
}
