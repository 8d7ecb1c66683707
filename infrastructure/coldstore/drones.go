package coldstore

import (
	"context"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

const (
	stmtInsertDrone = `INSERT INTO drones (convoy_id, drone_id, tail_number, callsign, platform_type,
		serial_number, status, lat, lon, altitude_m, heading_deg, speed_mps, fuel_remaining_pct,
		flight_hours, weapons_loadout, sensors, primary_link_up, backup_link_up, mesh_neighbors,
		total_engagements, successful_hits, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtSelectDrone = `SELECT convoy_id, drone_id, tail_number, callsign, platform_type,
		serial_number, status, lat, lon, altitude_m, heading_deg, speed_mps, fuel_remaining_pct,
		flight_hours, weapons_loadout, sensors, primary_link_up, backup_link_up, mesh_neighbors,
		total_engagements, successful_hits, created_at, updated_at
		FROM drones WHERE convoy_id = ? AND drone_id = ?`

	stmtSelectDrones = `SELECT convoy_id, drone_id, tail_number, callsign, platform_type,
		serial_number, status, lat, lon, altitude_m, heading_deg, speed_mps, fuel_remaining_pct,
		flight_hours, weapons_loadout, sensors, primary_link_up, backup_link_up, mesh_neighbors,
		total_engagements, successful_hits, created_at, updated_at
		FROM drones WHERE convoy_id = ? LIMIT ?`

	stmtUpdateDroneState = `UPDATE drones SET status = ?, lat = ?, lon = ?, altitude_m = ?,
		heading_deg = ?, speed_mps = ?, fuel_remaining_pct = ?, updated_at = ?
		WHERE convoy_id = ? AND drone_id = ?`
)

// InsertDrone persists a new drone row under its convoy partition.
func (s *Store) InsertDrone(ctx context.Context, d ops.Drone) error {
	return s.exec(ctx, "insert drone", stmtInsertDrone,
		d.ConvoyID, d.DroneID, d.TailNumber, d.Callsign, string(d.PlatformType),
		d.SerialNumber, string(d.Status),
		d.CurrentPosition.Latitude, d.CurrentPosition.Longitude, d.CurrentPosition.AltitudeM,
		d.CurrentPosition.HeadingDeg, d.CurrentPosition.SpeedMps, d.FuelRemainingPct,
		d.FlightHours, d.WeaponsLoadout, d.Sensors, d.PrimaryLinkUp, d.BackupLinkUp, d.MeshNeighbors,
		d.TotalEngagements, d.SuccessfulHits, d.CreatedAt, d.UpdatedAt,
	)
}

func scanDrone(scan func(...interface{}) error) (ops.Drone, error) {
	var (
		d                ops.Drone
		platform, status string
	)
	err := scan(
		&d.ConvoyID, &d.DroneID, &d.TailNumber, &d.Callsign, &platform,
		&d.SerialNumber, &status,
		&d.CurrentPosition.Latitude, &d.CurrentPosition.Longitude, &d.CurrentPosition.AltitudeM,
		&d.CurrentPosition.HeadingDeg, &d.CurrentPosition.SpeedMps, &d.FuelRemainingPct,
		&d.FlightHours, &d.WeaponsLoadout, &d.Sensors, &d.PrimaryLinkUp, &d.BackupLinkUp, &d.MeshNeighbors,
		&d.TotalEngagements, &d.SuccessfulHits, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return ops.Drone{}, err
	}
	d.PlatformType = ops.PlatformType(platform)
	d.Status = ops.DroneStatus(status)
	return d, nil
}

// SelectDrone reads one drone. Returns ok=false when absent.
func (s *Store) SelectDrone(ctx context.Context, convoyID, droneID uuid.UUID) (ops.Drone, bool, error) {
	q := s.session.Query(stmtSelectDrone, convoyID, droneID).WithContext(ctx)
	d, err := scanDrone(q.Scan)
	if err == gocql.ErrNotFound {
		return ops.Drone{}, false, nil
	}
	if err != nil {
		return ops.Drone{}, false, wrapQuery("select drone", err)
	}
	return d, true, nil
}

// SelectDrones reads a convoy's drones, capped at limit or the page default.
func (s *Store) SelectDrones(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.Drone, error) {
	iter := s.session.Query(stmtSelectDrones, convoyID, s.pageLimit(limit)).WithContext(ctx).Iter()

	var drones []ops.Drone
	for {
		d, err := scanDrone(func(dest ...interface{}) error {
			if !iter.Scan(dest...) {
				return gocql.ErrNotFound
			}
			return nil
		})
		if err != nil {
			break
		}
		drones = append(drones, d)
	}
	if err := iter.Close(); err != nil {
		return nil, wrapQuery("select drones", err)
	}
	return drones, nil
}

// UpdateDroneState writes the mutable operational fields.
func (s *Store) UpdateDroneState(ctx context.Context, d ops.Drone) error {
	return s.exec(ctx, "update drone state", stmtUpdateDroneState,
		string(d.Status),
		d.CurrentPosition.Latitude, d.CurrentPosition.Longitude, d.CurrentPosition.AltitudeM,
		d.CurrentPosition.HeadingDeg, d.CurrentPosition.SpeedMps, d.FuelRemainingPct, d.UpdatedAt,
		d.ConvoyID, d.DroneID,
	)
}
