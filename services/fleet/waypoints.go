package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
)

// CreateWaypoints persists a drone's route. A mission carries at most
// the fixed route length, and at most one waypoint may arrive ACTIVE.
func (s *Service) CreateWaypoints(ctx context.Context, droneID uuid.UUID, waypoints []ops.Waypoint) ([]ops.Waypoint, error) {
	if len(waypoints) == 0 {
		return nil, apperrors.InvalidInput("at least one waypoint is required")
	}
	if len(waypoints) > ops.WaypointsPerMission {
		return nil, apperrors.InvalidInput("a mission has at most 25 waypoints")
	}

	active := 0
	for i := range waypoints {
		waypoints[i].DroneID = droneID
		if waypoints[i].Status == "" {
			waypoints[i].Status = ops.WaypointPending
		}
		if waypoints[i].Status == ops.WaypointActive {
			active++
		}
	}
	if active > 1 {
		return nil, apperrors.InvalidInput("at most one waypoint may be active")
	}

	if err := s.cold.InsertWaypoints(ctx, waypoints); err != nil {
		return nil, err
	}
	return waypoints, nil
}

// Waypoints reads a drone's route in sequence order.
func (s *Service) Waypoints(ctx context.Context, droneID uuid.UUID) ([]ops.Waypoint, error) {
	return s.cold.SelectWaypoints(ctx, droneID)
}

// ActivateWaypoint marks the given waypoint ACTIVE. Any previously
// active waypoint completes first, preserving the one-active invariant
// as the mission progresses.
func (s *Service) ActivateWaypoint(ctx context.Context, droneID uuid.UUID, sequenceNumber int) (ops.Waypoint, error) {
	waypoints, err := s.cold.SelectWaypoints(ctx, droneID)
	if err != nil {
		return ops.Waypoint{}, err
	}

	now := time.Now().UTC()
	var target *ops.Waypoint
	for i := range waypoints {
		w := &waypoints[i]
		if w.SequenceNumber == sequenceNumber {
			target = w
			continue
		}
		if w.Status == ops.WaypointActive {
			w.Status = ops.WaypointComplete
			w.ActualDeparture = &now
			if err := s.cold.UpdateWaypointStatus(ctx, *w); err != nil {
				return ops.Waypoint{}, err
			}
		}
	}
	if target == nil {
		return ops.Waypoint{}, apperrors.NotFound("waypoint", droneID.String())
	}

	target.Status = ops.WaypointActive
	target.ActualArrival = &now
	if err := s.cold.UpdateWaypointStatus(ctx, *target); err != nil {
		return ops.Waypoint{}, err
	}
	return *target, nil
}
