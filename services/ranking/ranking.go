// Package ranking is the accuracy engine: per-drone hit/miss totals,
// streak accounting, and derived per-convoy rankings.
//
// The cold-tier counter columns are authoritative for the totals under
// concurrent updates because counter increments commute. The
// leaderboard row is a denormalization computed by a read-modify-write
// that is not atomic across concurrent callers; the derived fields
// resolve last-writer-wins and the periodic rebuild reconciles from
// the counters.
package ranking

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/hotstore"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/strategy"
)

// rebuildScan is how deep the cold leaderboard is scanned when ranking
// without a hot sorted set.
const rebuildScan = 100

// HotStore is the hot-tier surface the ranking engine needs.
type HotStore interface {
	GetRanking(ctx context.Context, convoyID uuid.UUID, limit int) ([]hotstore.RankScore, error)
	UpdateRankScore(ctx context.Context, convoyID, droneID uuid.UUID, accuracyPct float64) error
	RankOf(ctx context.Context, convoyID, droneID uuid.UUID) (int64, bool, error)
	InvalidateRanking(ctx context.Context, convoyID uuid.UUID) error
	InvalidateDrone(ctx context.Context, droneID uuid.UUID) error
	InvalidateConvoy(ctx context.Context, convoyID uuid.UUID) error
}

// ColdStore is the cold-tier surface the ranking engine needs.
type ColdStore interface {
	IncrementAccuracyCounters(ctx context.Context, convoyID, droneID uuid.UUID, hit bool) error
	SelectAccuracyCounters(ctx context.Context, convoyID, droneID uuid.UUID) (int64, int64, error)
	UpsertLeaderboardEntry(ctx context.Context, e ops.RankingEntry) error
	SelectLeaderboard(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.RankingEntry, error)
	SelectLeaderboardEntry(ctx context.Context, convoyID, droneID uuid.UUID) (ops.RankingEntry, bool, error)
}

// Repository serves ranking reads and the one ranking mutation.
type Repository struct {
	hot  HotStore
	cold ColdStore
	log  *logging.Logger
}

// New creates the ranking repository.
func New(hot HotStore, cold ColdStore, log *logging.Logger) *Repository {
	return &Repository{hot: hot, cold: cold, log: log}
}

// GetRanking returns the top entries for a convoy, ranked 1..N by
// accuracy descending with the documented tie-breaks. The hot sorted
// set supplies the ordering on a hit; the cold leaderboard page
// hydrates the remaining fields either way.
func (r *Repository) GetRanking(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.RankingEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > rebuildScan {
		limit = rebuildScan
	}

	entries, _, err := strategy.Read(ctx, strategy.CacheFirst, hotstore.KeyRanking(convoyID),
		func(ctx context.Context) ([]ops.RankingEntry, bool, error) {
			scores, hotErr := r.hot.GetRanking(ctx, convoyID, limit)
			if hotErr != nil {
				return nil, false, hotErr
			}
			if len(scores) == 0 {
				return nil, false, nil
			}
			hydrated, hydrateErr := r.hydrate(ctx, convoyID, scores)
			if hydrateErr != nil {
				return nil, false, hydrateErr
			}
			return hydrated, true, nil
		},
		func(ctx context.Context) ([]ops.RankingEntry, bool, error) {
			page, coldErr := r.coldPage(ctx, convoyID, limit)
			if coldErr != nil {
				return nil, false, coldErr
			}
			return page, true, nil
		},
		func(ctx context.Context, entries []ops.RankingEntry) error {
			for _, e := range entries {
				if popErr := r.hot.UpdateRankScore(ctx, convoyID, e.DroneID, e.AccuracyPct); popErr != nil {
					return popErr
				}
			}
			return nil
		},
	)
	return entries, err
}

// hydrate joins the hot ordering with the cold rows and assigns ranks.
func (r *Repository) hydrate(ctx context.Context, convoyID uuid.UUID, scores []hotstore.RankScore) ([]ops.RankingEntry, error) {
	page, err := r.cold.SelectLeaderboard(ctx, convoyID, rebuildScan)
	if err != nil {
		return nil, err
	}
	byDrone := make(map[uuid.UUID]ops.RankingEntry, len(page))
	for _, e := range page {
		byDrone[e.DroneID] = e
	}

	entries := make([]ops.RankingEntry, 0, len(scores))
	for _, score := range scores {
		entry, ok := byDrone[score.DroneID]
		if !ok {
			// Score without a cold row: the zset outlived a rebuild.
			entry = ops.RankingEntry{ConvoyID: convoyID, DroneID: score.DroneID, AccuracyPct: score.Score}
		}
		entries = append(entries, entry)
	}
	SortEntries(entries)
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// coldPage reads, orders, ranks, and truncates the cold leaderboard.
func (r *Repository) coldPage(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.RankingEntry, error) {
	page, err := r.cold.SelectLeaderboard(ctx, convoyID, rebuildScan)
	if err != nil {
		return nil, err
	}
	SortEntries(page)
	for i := range page {
		page[i].Rank = i + 1
	}
	if len(page) > limit {
		page = page[:limit]
	}
	return page, nil
}

// SortEntries orders entries by accuracy descending, ties broken by
// total engagements descending, then drone ID ascending.
func SortEntries(entries []ops.RankingEntry) {
	sort.Slice(entries, func(i, j int) bool { return entries[i].Less(entries[j]) })
}

// RankOf returns a drone's 1-indexed rank, hot-first with a fallback
// scan over the cold top 100. ok=false when the drone is unranked.
func (r *Repository) RankOf(ctx context.Context, convoyID, droneID uuid.UUID) (int, bool, error) {
	if pos, ok, err := r.hot.RankOf(ctx, convoyID, droneID); err == nil && ok {
		return int(pos) + 1, true, nil
	} else if err != nil {
		r.log.WithError(err).WithFields(map[string]interface{}{
			"convoy_id": convoyID.String(),
		}).Warn("Hot rank lookup failed; scanning cold leaderboard")
	}

	page, err := r.coldPage(ctx, convoyID, rebuildScan)
	if err != nil {
		return 0, false, err
	}
	for _, e := range page {
		if e.DroneID == droneID {
			return e.Rank, true, nil
		}
	}
	return 0, false, nil
}

// Entry returns a drone's ranking row with its current rank. ok=false
// when the drone has never recorded an engagement.
func (r *Repository) Entry(ctx context.Context, convoyID, droneID uuid.UUID) (ops.RankingEntry, bool, error) {
	entry, ok, err := r.cold.SelectLeaderboardEntry(ctx, convoyID, droneID)
	if err != nil || !ok {
		return ops.RankingEntry{}, ok, err
	}
	if rank, ranked, rankErr := r.RankOf(ctx, convoyID, droneID); rankErr == nil && ranked {
		entry.Rank = rank
	}
	return entry, true, nil
}

// UpdateEntry records one hit or miss: the counter columns take the
// authoritative increment, the leaderboard row takes the recomputed
// derived fields, and the stale hot entries are invalidated.
func (r *Repository) UpdateEntry(ctx context.Context, convoyID, droneID uuid.UUID, callsign string, platform ops.PlatformType, hit bool) (ops.RankingEntry, error) {
	current, _, err := r.cold.SelectLeaderboardEntry(ctx, convoyID, droneID)
	if err != nil {
		return ops.RankingEntry{}, err
	}

	newTotal := current.TotalEngagements + 1
	newHits := current.SuccessfulHits
	newStreak := 0
	if hit {
		newHits++
		newStreak = current.CurrentStreak + 1
	}
	newBest := current.BestStreak
	if newStreak > newBest {
		newBest = newStreak
	}

	entry := ops.RankingEntry{
		ConvoyID:         convoyID,
		DroneID:          droneID,
		Callsign:         callsign,
		PlatformType:     platform,
		TotalEngagements: newTotal,
		SuccessfulHits:   newHits,
		AccuracyPct:      ops.AccuracyPct(newHits, newTotal),
		CurrentStreak:    newStreak,
		BestStreak:       newBest,
		UpdatedAt:        time.Now().UTC(),
	}

	if err := r.cold.IncrementAccuracyCounters(ctx, convoyID, droneID, hit); err != nil {
		return ops.RankingEntry{}, err
	}
	if err := r.cold.UpsertLeaderboardEntry(ctx, entry); err != nil {
		return ops.RankingEntry{}, err
	}

	// The derived row changed; the hot projections are now stale.
	if err := r.hot.InvalidateDrone(ctx, droneID); err != nil {
		r.log.WithError(err).Warn("Failed to invalidate hot drone keys")
	}
	if err := r.hot.InvalidateRanking(ctx, convoyID); err != nil {
		r.log.WithError(err).Warn("Failed to invalidate hot ranking")
	}

	if rank, ok, rankErr := r.RankOf(ctx, convoyID, droneID); rankErr == nil && ok {
		entry.Rank = rank
	}
	return entry, nil
}

// Rebuild drops the convoy's hot keys and repopulates the ranking
// sorted set from the cold leaderboard. Returns the entry count.
func (r *Repository) Rebuild(ctx context.Context, convoyID uuid.UUID) (int, error) {
	if err := r.hot.InvalidateConvoy(ctx, convoyID); err != nil {
		r.log.WithError(err).Warn("Failed to invalidate hot convoy keys")
	}

	page, err := r.coldPage(ctx, convoyID, rebuildScan)
	if err != nil {
		return 0, err
	}
	for _, e := range page {
		if err := r.hot.UpdateRankScore(ctx, convoyID, e.DroneID, e.AccuracyPct); err != nil {
			r.log.WithError(err).Warn("Failed to warm hot ranking")
			break
		}
	}
	return len(page), nil
}
