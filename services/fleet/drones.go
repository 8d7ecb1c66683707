package fleet

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/hotstore"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/strategy"
)

// CreateDrone registers a drone under its convoy and adds it to the
// roster.
func (s *Service) CreateDrone(ctx context.Context, d ops.Drone) (ops.Drone, error) {
	if d.DroneID == uuid.Nil {
		d.DroneID = uuid.New()
	}
	if d.ConvoyID == uuid.Nil {
		return ops.Drone{}, apperrors.InvalidInput("drone requires a convoy")
	}
	now := time.Now().UTC()
	d.CreatedAt = now
	d.UpdatedAt = now

	if err := s.cold.InsertDrone(ctx, d); err != nil {
		return ops.Drone{}, err
	}

	if err := s.hot.AddToRoster(ctx, d.ConvoyID, d.DroneID); err != nil {
		s.log.WithError(err).Warn("Failed to add drone to hot roster")
	}

	// Keep the convoy roster list in step with the drone table.
	if convoy, ok, err := s.cold.SelectConvoy(ctx, d.ConvoyID); err == nil && ok {
		roster := append(convoy.Roster, d.DroneID)
		if err := s.cold.UpdateConvoyRoster(ctx, d.ConvoyID, roster); err != nil {
			s.log.WithError(err).Warn("Failed to update convoy roster")
		}
		if err := s.hot.Delete(ctx, hotstore.KeyConvoySummary(d.ConvoyID)); err != nil {
			s.log.WithError(err).Warn("Failed to invalidate convoy summary")
		}
	}

	return d, nil
}

// droneStateFields flattens a drone into the hot state hash.
func droneStateFields(d ops.Drone) map[string]interface{} {
	position, _ := json.Marshal(d.CurrentPosition)
	return map[string]interface{}{
		"convoy_id":          d.ConvoyID.String(),
		"callsign":           d.Callsign,
		"platform_type":      string(d.PlatformType),
		"status":             string(d.Status),
		"position":           string(position),
		"fuel_remaining_pct": d.FuelRemainingPct,
		"total_engagements":  d.TotalEngagements,
		"successful_hits":    d.SuccessfulHits,
	}
}

// Drone reads one drone. The hot state hash holds only the mutable
// subset, so reads hydrate cold-first and repopulate the hash.
func (s *Service) Drone(ctx context.Context, convoyID, droneID uuid.UUID) (ops.Drone, bool, error) {
	key := hotstore.KeyDroneState(droneID)
	return strategy.Read(ctx, strategy.ReadThrough, key,
		nil,
		func(ctx context.Context) (ops.Drone, bool, error) {
			return s.cold.SelectDrone(ctx, convoyID, droneID)
		},
		func(ctx context.Context, d ops.Drone) error {
			return s.setDroneState(ctx, d)
		},
	)
}

// setDroneState writes the hot state hash.
func (s *Service) setDroneState(ctx context.Context, d ops.Drone) error {
	return s.hot.SetDroneState(ctx, d.DroneID, droneStateFields(d))
}

// Drones lists a convoy's drones with filter and pagination.
func (s *Service) Drones(ctx context.Context, convoyID uuid.UUID, filter *ops.DroneFilter, page ops.Pagination) ([]ops.Drone, error) {
	page = page.Normalize()
	drones, err := s.cold.SelectDrones(ctx, convoyID, page.Offset+page.Limit)
	if err != nil {
		return nil, err
	}

	filtered := make([]ops.Drone, 0, len(drones))
	for _, d := range drones {
		if filter.Matches(d) {
			filtered = append(filtered, d)
		}
	}
	if page.Offset >= len(filtered) {
		return []ops.Drone{}, nil
	}
	filtered = filtered[page.Offset:]
	if len(filtered) > page.Limit {
		filtered = filtered[:page.Limit]
	}
	return filtered, nil
}

// UpdateDroneStateInput carries the mutable drone fields.
type UpdateDroneStateInput struct {
	ConvoyID uuid.UUID
	DroneID  uuid.UUID
	Status   *ops.DroneStatus
	Position *ops.Coordinates
	FuelPct  *float64
}

// UpdateDroneState applies the operational fields, publishes a status
// event on a phase change, and raises an alert when fuel turns
// critical.
func (s *Service) UpdateDroneState(ctx context.Context, in UpdateDroneStateInput) (ops.Drone, error) {
	d, ok, err := s.cold.SelectDrone(ctx, in.ConvoyID, in.DroneID)
	if err != nil {
		return ops.Drone{}, err
	}
	if !ok {
		return ops.Drone{}, apperrors.NotFound("drone", in.DroneID.String())
	}

	oldStatus := d.Status
	wasFuelCritical := d.FuelCritical()

	if in.Status != nil {
		d.Status = *in.Status
	}
	if in.Position != nil {
		d.CurrentPosition = *in.Position
	}
	if in.FuelPct != nil {
		d.FuelRemainingPct = *in.FuelPct
	}
	d.UpdatedAt = time.Now().UTC()

	key := hotstore.KeyDroneState(d.DroneID)
	err = strategy.Write(ctx, strategy.WriteThrough, key,
		func(ctx context.Context) error {
			return s.setDroneState(ctx, d)
		},
		func(ctx context.Context) error {
			return s.cold.UpdateDroneState(ctx, d)
		},
		nil,
	)
	if err != nil {
		return ops.Drone{}, err
	}

	if d.Status != oldStatus {
		s.broker.DroneStatus.Publish(ops.DroneStatusEvent{
			ConvoyID:  d.ConvoyID,
			DroneID:   d.DroneID,
			Callsign:  d.Callsign,
			OldStatus: oldStatus,
			NewStatus: d.Status,
			Timestamp: d.UpdatedAt,
		})
	}

	if d.FuelCritical() && !wasFuelCritical {
		severity := ops.SeverityWarning
		if d.FuelRemainingPct < ops.FuelCriticalPct/2 {
			severity = ops.SeverityCritical
		}
		droneID := d.DroneID
		s.broker.Alerts.Publish(ops.AlertEvent{
			AlertID:   uuid.New(),
			ConvoyID:  d.ConvoyID,
			DroneID:   &droneID,
			Severity:  severity,
			Category:  "FUEL_CRITICAL",
			Message:   d.Callsign + " fuel critical",
			Timestamp: d.UpdatedAt,
		})
	}

	return d, nil
}
