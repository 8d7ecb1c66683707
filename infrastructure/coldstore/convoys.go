package coldstore

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

const (
	stmtInsertConvoy = `INSERT INTO convoys (convoy_id, callsign, mission_type, status, aor_name,
		aor_lat, aor_lon, aor_alt, aor_radius_km, commanding_unit, auth_level, roe_profile,
		roster, drone_count, mission_start, mission_end, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtSelectConvoy = `SELECT convoy_id, callsign, mission_type, status, aor_name,
		aor_lat, aor_lon, aor_alt, aor_radius_km, commanding_unit, auth_level, roe_profile,
		roster, drone_count, mission_start, mission_end, created_at
		FROM convoys WHERE convoy_id = ?`

	stmtUpdateConvoyStatus = `UPDATE convoys SET status = ?, mission_start = ?, mission_end = ? WHERE convoy_id = ?`

	stmtInsertActiveConvoy = `INSERT INTO active_convoys (convoy_id, callsign, mission_type, status, drone_count, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`

	stmtDeleteActiveConvoy = `DELETE FROM active_convoys WHERE convoy_id = ?`

	stmtSelectActiveConvoys = `SELECT convoy_id FROM active_convoys`

	stmtUpdateConvoyRoster = `UPDATE convoys SET roster = ?, drone_count = ? WHERE convoy_id = ?`
)

// InsertConvoy persists a new convoy row.
func (s *Store) InsertConvoy(ctx context.Context, c ops.Convoy) error {
	return s.exec(ctx, "insert convoy", stmtInsertConvoy,
		c.ConvoyID, c.Callsign, string(c.MissionType), string(c.Status), c.AorName,
		c.AorCenter.Latitude, c.AorCenter.Longitude, c.AorCenter.AltitudeM, c.AorRadiusKm,
		c.CommandingUnit, c.AuthLevel, c.RoeProfile,
		c.Roster, c.DroneCount, tsPtr(c.MissionStart), tsPtr(c.MissionEnd), c.CreatedAt,
	)
}

// SelectConvoy reads one convoy. Returns ok=false when absent.
func (s *Store) SelectConvoy(ctx context.Context, convoyID uuid.UUID) (ops.Convoy, bool, error) {
	var (
		c                      ops.Convoy
		mission, status        string
		missionStart, missionEnd time.Time
	)

	err := s.session.Query(stmtSelectConvoy, convoyID).WithContext(ctx).Scan(
		&c.ConvoyID, &c.Callsign, &mission, &status, &c.AorName,
		&c.AorCenter.Latitude, &c.AorCenter.Longitude, &c.AorCenter.AltitudeM, &c.AorRadiusKm,
		&c.CommandingUnit, &c.AuthLevel, &c.RoeProfile,
		&c.Roster, &c.DroneCount, &missionStart, &missionEnd, &c.CreatedAt,
	)
	if err == gocql.ErrNotFound {
		return ops.Convoy{}, false, nil
	}
	if err != nil {
		return ops.Convoy{}, false, wrapQuery("select convoy", err)
	}

	c.MissionType = ops.MissionType(mission)
	c.Status = ops.ConvoyStatus(status)
	if !missionStart.IsZero() {
		c.MissionStart = &missionStart
	}
	if !missionEnd.IsZero() {
		c.MissionEnd = &missionEnd
	}
	return c, true, nil
}

// UpdateConvoyStatus writes the new status and mission window, and keeps
// the active_convoys projection in step.
func (s *Store) UpdateConvoyStatus(ctx context.Context, c ops.Convoy) error {
	if err := s.exec(ctx, "update convoy status", stmtUpdateConvoyStatus,
		string(c.Status), tsPtr(c.MissionStart), tsPtr(c.MissionEnd), c.ConvoyID); err != nil {
		return err
	}

	if c.Status == ops.ConvoyActive {
		return s.exec(ctx, "insert active convoy", stmtInsertActiveConvoy,
			c.ConvoyID, c.Callsign, string(c.MissionType), string(c.Status), c.DroneCount, c.CreatedAt)
	}
	return s.exec(ctx, "delete active convoy", stmtDeleteActiveConvoy, c.ConvoyID)
}

// SelectActiveConvoys reads the active projection and hydrates each
// convoy from its authoritative row.
func (s *Store) SelectActiveConvoys(ctx context.Context) ([]ops.Convoy, error) {
	iter := s.session.Query(stmtSelectActiveConvoys).WithContext(ctx).Iter()

	var ids []uuid.UUID
	var id uuid.UUID
	for iter.Scan(&id) {
		ids = append(ids, id)
	}
	if err := iter.Close(); err != nil {
		return nil, wrapQuery("select active convoys", err)
	}

	convoys := make([]ops.Convoy, 0, len(ids))
	for _, convoyID := range ids {
		c, ok, err := s.SelectConvoy(ctx, convoyID)
		if err != nil {
			return nil, err
		}
		if ok {
			convoys = append(convoys, c)
		}
	}
	return convoys, nil
}

// UpdateConvoyRoster replaces the roster list and size.
func (s *Store) UpdateConvoyRoster(ctx context.Context, convoyID uuid.UUID, roster []uuid.UUID) error {
	return s.exec(ctx, "update convoy roster", stmtUpdateConvoyRoster, roster, len(roster), convoyID)
}

// tsPtr converts an optional instant to a value gocql can bind;
// nil becomes the zero timestamp.
func tsPtr(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
