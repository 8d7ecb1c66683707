package coldstore

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

const (
	stmtIncrementHit = `UPDATE accuracy_counters
		SET total_engagements = total_engagements + 1, successful_hits = successful_hits + 1
		WHERE convoy_id = ? AND drone_id = ?`

	stmtIncrementMiss = `UPDATE accuracy_counters
		SET total_engagements = total_engagements + 1
		WHERE convoy_id = ? AND drone_id = ?`

	stmtSelectCounters = `SELECT total_engagements, successful_hits
		FROM accuracy_counters WHERE convoy_id = ? AND drone_id = ?`

	stmtUpsertLeaderboard = `UPDATE leaderboard SET callsign = ?, platform_type = ?,
		total_engagements = ?, successful_hits = ?, accuracy_pct = ?,
		current_streak = ?, best_streak = ?, updated_at = ?
		WHERE convoy_id = ? AND drone_id = ?`

	stmtSelectLeaderboard = `SELECT convoy_id, drone_id, callsign, platform_type,
		total_engagements, successful_hits, accuracy_pct, current_streak, best_streak, updated_at
		FROM leaderboard WHERE convoy_id = ? LIMIT ?`

	stmtSelectLeaderboardEntry = `SELECT convoy_id, drone_id, callsign, platform_type,
		total_engagements, successful_hits, accuracy_pct, current_streak, best_streak, updated_at
		FROM leaderboard WHERE convoy_id = ? AND drone_id = ?`
)

// IncrementAccuracyCounters bumps the authoritative counter columns.
// The increments commute, so concurrent recorders never lose hits.
func (s *Store) IncrementAccuracyCounters(ctx context.Context, convoyID, droneID uuid.UUID, hit bool) error {
	stmt := stmtIncrementMiss
	op := "increment miss counter"
	if hit {
		stmt = stmtIncrementHit
		op = "increment hit counter"
	}
	return s.exec(ctx, op, stmt, convoyID, droneID)
}

// SelectAccuracyCounters reads the authoritative counters. Absent rows
// read as zero.
func (s *Store) SelectAccuracyCounters(ctx context.Context, convoyID, droneID uuid.UUID) (int64, int64, error) {
	var total, hits int64
	err := s.session.Query(stmtSelectCounters, convoyID, droneID).WithContext(ctx).Scan(&total, &hits)
	if err == gocql.ErrNotFound {
		return 0, 0, nil
	}
	if err != nil {
		return 0, 0, wrapQuery("select counters", err)
	}
	return total, hits, nil
}

// UpsertLeaderboardEntry writes the denormalized ranking row. The row
// is a projection of the counters plus streak state; under contention
// the last writer wins and the periodic rebuild reconciles.
func (s *Store) UpsertLeaderboardEntry(ctx context.Context, e ops.RankingEntry) error {
	return s.exec(ctx, "upsert leaderboard entry", stmtUpsertLeaderboard,
		e.Callsign, string(e.PlatformType),
		e.TotalEngagements, e.SuccessfulHits, e.AccuracyPct,
		e.CurrentStreak, e.BestStreak, e.UpdatedAt,
		e.ConvoyID, e.DroneID,
	)
}

// SelectLeaderboard reads a convoy's ranking rows, capped at limit or
// the page default. Rows come back in drone-ID clustering order; the
// ranking repository applies the accuracy ordering and tie-breaks.
func (s *Store) SelectLeaderboard(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.RankingEntry, error) {
	iter := s.session.Query(stmtSelectLeaderboard, convoyID, s.pageLimit(limit)).WithContext(ctx).Iter()

	var entries []ops.RankingEntry
	for {
		var (
			e        ops.RankingEntry
			platform string
		)
		if !iter.Scan(&e.ConvoyID, &e.DroneID, &e.Callsign, &platform,
			&e.TotalEngagements, &e.SuccessfulHits, &e.AccuracyPct,
			&e.CurrentStreak, &e.BestStreak, &e.UpdatedAt) {
			break
		}
		e.PlatformType = ops.PlatformType(platform)
		entries = append(entries, e)
	}
	if err := iter.Close(); err != nil {
		return nil, wrapQuery("select leaderboard", err)
	}
	return entries, nil
}

// SelectLeaderboardEntry reads one drone's ranking row.
// Returns ok=false when the drone has no row yet.
func (s *Store) SelectLeaderboardEntry(ctx context.Context, convoyID, droneID uuid.UUID) (ops.RankingEntry, bool, error) {
	var (
		e        ops.RankingEntry
		platform string
	)
	err := s.session.Query(stmtSelectLeaderboardEntry, convoyID, droneID).WithContext(ctx).Scan(
		&e.ConvoyID, &e.DroneID, &e.Callsign, &platform,
		&e.TotalEngagements, &e.SuccessfulHits, &e.AccuracyPct,
		&e.CurrentStreak, &e.BestStreak, &e.UpdatedAt,
	)
	if err == gocql.ErrNotFound {
		return ops.RankingEntry{}, false, nil
	}
	if err != nil {
		return ops.RankingEntry{}, false, wrapQuery("select leaderboard entry", err)
	}
	e.PlatformType = ops.PlatformType(platform)
	return e, true, nil
}
