package coldstore

import (
	"context"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

const (
	stmtInsertTelemetry = `INSERT INTO telemetry (drone_id, time_bucket, recorded_at,
		lat, lon, altitude_m, heading_deg, speed_mps, fuel_remaining_pct,
		current_waypoint, velocity_mps, mesh_connectivity)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtSelectTelemetryRange = `SELECT drone_id, time_bucket, recorded_at,
		lat, lon, altitude_m, heading_deg, speed_mps, fuel_remaining_pct,
		current_waypoint, velocity_mps, mesh_connectivity
		FROM telemetry WHERE drone_id = ? AND time_bucket >= ? AND time_bucket <= ? LIMIT ?`
)

// InsertTelemetry appends one time-series sample. The table-level TTL
// expires the row after 24 hours.
func (s *Store) InsertTelemetry(ctx context.Context, t ops.Telemetry) error {
	return s.exec(ctx, "insert telemetry", stmtInsertTelemetry,
		t.DroneID, t.TimeBucket, t.RecordedAt,
		t.Position.Latitude, t.Position.Longitude, t.Position.AltitudeM,
		t.Position.HeadingDeg, t.Position.SpeedMps, t.FuelRemainingPct,
		t.CurrentWaypoint, t.VelocityMps, t.MeshConnectivity,
	)
}

// SelectTelemetryRange reads samples between the hourly buckets covering
// the range, newest first, capped at limit or the page default. Callers
// trim to the exact instant bounds.
func (s *Store) SelectTelemetryRange(ctx context.Context, droneID uuid.UUID, tr ops.TimeRange, limit int) ([]ops.Telemetry, error) {
	startBucket := "0000000000"
	endBucket := "9999999999"
	if !tr.Start.IsZero() {
		startBucket = ops.TimeBucket(tr.Start)
	}
	if !tr.End.IsZero() {
		endBucket = ops.TimeBucket(tr.End)
	}

	iter := s.session.Query(stmtSelectTelemetryRange, droneID, startBucket, endBucket, s.pageLimit(limit)).
		WithContext(ctx).Iter()

	var samples []ops.Telemetry
	for {
		var t ops.Telemetry
		if !iter.Scan(&t.DroneID, &t.TimeBucket, &t.RecordedAt,
			&t.Position.Latitude, &t.Position.Longitude, &t.Position.AltitudeM,
			&t.Position.HeadingDeg, &t.Position.SpeedMps, &t.FuelRemainingPct,
			&t.CurrentWaypoint, &t.VelocityMps, &t.MeshConnectivity) {
			break
		}
		if tr.Contains(t.RecordedAt) {
			samples = append(samples, t)
		}
	}
	if err := iter.Close(); err != nil {
		return nil, wrapQuery("select telemetry range", err)
	}
	return samples, nil
}
