package coldstore

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

const (
	stmtInsertWaypoint = `INSERT INTO waypoints (drone_id, sequence_number, name, waypoint_type,
		lat, lon, altitude_m, heading_deg, status, planned_arrival, actual_arrival,
		planned_departure, actual_departure, loiter_duration_min)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtSelectWaypoints = `SELECT drone_id, sequence_number, name, waypoint_type,
		lat, lon, altitude_m, heading_deg, status, planned_arrival, actual_arrival,
		planned_departure, actual_departure, loiter_duration_min
		FROM waypoints WHERE drone_id = ?`

	stmtUpdateWaypointStatus = `UPDATE waypoints SET status = ?, actual_arrival = ?, actual_departure = ?
		WHERE drone_id = ? AND sequence_number = ?`
)

// InsertWaypoints persists a drone's route as an unlogged batch; all
// rows land in the same partition.
func (s *Store) InsertWaypoints(ctx context.Context, waypoints []ops.Waypoint) error {
	batch := s.session.NewBatch(gocql.UnloggedBatch).WithContext(ctx)
	for _, w := range waypoints {
		batch.Query(stmtInsertWaypoint,
			w.DroneID, w.SequenceNumber, w.Name, string(w.WaypointType),
			w.Coordinates.Latitude, w.Coordinates.Longitude, w.Coordinates.AltitudeM, w.Coordinates.HeadingDeg,
			string(w.Status), tsPtr(w.PlannedArrival), tsPtr(w.ActualArrival),
			tsPtr(w.PlannedDeparture), tsPtr(w.ActualDeparture), intPtr(w.LoiterDurationMin),
		)
	}
	return wrapQuery("insert waypoints", s.session.ExecuteBatch(batch))
}

// SelectWaypoints reads a drone's route ordered by sequence number.
func (s *Store) SelectWaypoints(ctx context.Context, droneID uuid.UUID) ([]ops.Waypoint, error) {
	iter := s.session.Query(stmtSelectWaypoints, droneID).WithContext(ctx).Iter()

	var waypoints []ops.Waypoint
	for {
		var (
			w                                        ops.Waypoint
			wpType, status                           string
			plannedArr, actualArr, plannedDep, actualDep time.Time
			loiter                                   int
		)
		if !iter.Scan(&w.DroneID, &w.SequenceNumber, &w.Name, &wpType,
			&w.Coordinates.Latitude, &w.Coordinates.Longitude, &w.Coordinates.AltitudeM, &w.Coordinates.HeadingDeg,
			&status, &plannedArr, &actualArr, &plannedDep, &actualDep, &loiter) {
			break
		}
		w.WaypointType = ops.WaypointType(wpType)
		w.Status = ops.WaypointStatus(status)
		w.PlannedArrival = optTime(plannedArr)
		w.ActualArrival = optTime(actualArr)
		w.PlannedDeparture = optTime(plannedDep)
		w.ActualDeparture = optTime(actualDep)
		if loiter > 0 {
			w.LoiterDurationMin = &loiter
		}
		waypoints = append(waypoints, w)
	}
	if err := iter.Close(); err != nil {
		return nil, wrapQuery("select waypoints", err)
	}
	return waypoints, nil
}

// UpdateWaypointStatus writes the progression fields of one waypoint.
func (s *Store) UpdateWaypointStatus(ctx context.Context, w ops.Waypoint) error {
	return s.exec(ctx, "update waypoint status", stmtUpdateWaypointStatus,
		string(w.Status), tsPtr(w.ActualArrival), tsPtr(w.ActualDeparture),
		w.DroneID, w.SequenceNumber,
	)
}

func intPtr(v *int) int {
	if v == nil {
		return 0
	}
	return *v
}

func optTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
