// Package fleet holds the convoy, drone, waypoint, and telemetry
// repositories. Reads go cache-first where a hot key exists and cold
// otherwise; writes go through the cold tier with best-effort hot
// updates. Status changes and fuel-critical conditions publish live
// events through the broker.
package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/broker"
	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/hotstore"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/strategy"
)

// HotStore is the hot-tier surface the fleet repositories need.
type HotStore interface {
	GetJSON(ctx context.Context, key string, dest interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	TTL() hotstore.TTLConfig
	AddToRoster(ctx context.Context, convoyID, droneID uuid.UUID) error
	SetDroneState(ctx context.Context, droneID uuid.UUID, fields map[string]interface{}) error
	SetLatestTelemetry(ctx context.Context, droneID uuid.UUID, snapshot interface{}) error
	LatestTelemetry(ctx context.Context, droneID uuid.UUID, dest interface{}) (bool, error)
	InvalidateDrone(ctx context.Context, droneID uuid.UUID) error
	InvalidateConvoy(ctx context.Context, convoyID uuid.UUID) error
}

// ColdStore is the cold-tier surface the fleet repositories need.
type ColdStore interface {
	InsertConvoy(ctx context.Context, c ops.Convoy) error
	SelectConvoy(ctx context.Context, convoyID uuid.UUID) (ops.Convoy, bool, error)
	SelectActiveConvoys(ctx context.Context) ([]ops.Convoy, error)
	UpdateConvoyStatus(ctx context.Context, c ops.Convoy) error
	UpdateConvoyRoster(ctx context.Context, convoyID uuid.UUID, roster []uuid.UUID) error

	InsertDrone(ctx context.Context, d ops.Drone) error
	SelectDrone(ctx context.Context, convoyID, droneID uuid.UUID) (ops.Drone, bool, error)
	SelectDrones(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.Drone, error)
	UpdateDroneState(ctx context.Context, d ops.Drone) error

	InsertWaypoints(ctx context.Context, waypoints []ops.Waypoint) error
	SelectWaypoints(ctx context.Context, droneID uuid.UUID) ([]ops.Waypoint, error)
	UpdateWaypointStatus(ctx context.Context, w ops.Waypoint) error

	InsertTelemetry(ctx context.Context, t ops.Telemetry) error
	SelectTelemetryRange(ctx context.Context, droneID uuid.UUID, tr ops.TimeRange, limit int) ([]ops.Telemetry, error)
}

// Service is the fleet repository set.
type Service struct {
	hot    HotStore
	cold   ColdStore
	broker *broker.Broker
	log    *logging.Logger
}

// New creates the fleet service.
func New(hot HotStore, cold ColdStore, b *broker.Broker, log *logging.Logger) *Service {
	return &Service{hot: hot, cold: cold, broker: b, log: log}
}

// CreateConvoy persists a new convoy in PLANNING.
func (s *Service) CreateConvoy(ctx context.Context, c ops.Convoy) (ops.Convoy, error) {
	if c.ConvoyID == uuid.Nil {
		c.ConvoyID = uuid.New()
	}
	if c.Callsign == "" {
		return ops.Convoy{}, apperrors.InvalidInput("convoy callsign is required")
	}
	c.Status = ops.ConvoyPlanning
	c.CreatedAt = time.Now().UTC()
	c.DroneCount = len(c.Roster)

	s.log.WithContext(ctx).WithFields(map[string]interface{}{
		"convoy_id": c.ConvoyID.String(),
		"callsign":  c.Callsign,
	}).Info("Creating convoy")

	key := hotstore.KeyConvoySummary(c.ConvoyID)
	err := strategy.Write(ctx, strategy.WriteThrough, key,
		func(ctx context.Context) error {
			return s.hot.SetJSON(ctx, key, c, s.hot.TTL().ConvoySummary)
		},
		func(ctx context.Context) error {
			return s.cold.InsertConvoy(ctx, c)
		},
		nil,
	)
	if err != nil {
		return ops.Convoy{}, err
	}
	return c, nil
}

// Convoy reads one convoy cache-first.
func (s *Service) Convoy(ctx context.Context, convoyID uuid.UUID) (ops.Convoy, bool, error) {
	key := hotstore.KeyConvoySummary(convoyID)
	return strategy.Read(ctx, strategy.CacheFirst, key,
		func(ctx context.Context) (ops.Convoy, bool, error) {
			var c ops.Convoy
			ok, err := s.hot.GetJSON(ctx, key, &c)
			return c, ok, err
		},
		func(ctx context.Context) (ops.Convoy, bool, error) {
			return s.cold.SelectConvoy(ctx, convoyID)
		},
		func(ctx context.Context, c ops.Convoy) error {
			return s.hot.SetJSON(ctx, key, c, s.hot.TTL().ConvoySummary)
		},
	)
}

// ActiveConvoys reads the active projection cold-only.
func (s *Service) ActiveConvoys(ctx context.Context) ([]ops.Convoy, error) {
	return s.cold.SelectActiveConvoys(ctx)
}

// UpdateConvoyStatus applies a lifecycle transition. Illegal
// transitions are rejected; COMPLETE and ABORT are terminal. An alert
// event announces the change to subscribers.
func (s *Service) UpdateConvoyStatus(ctx context.Context, convoyID uuid.UUID, next ops.ConvoyStatus) (ops.Convoy, error) {
	c, ok, err := s.Convoy(ctx, convoyID)
	if err != nil {
		return ops.Convoy{}, err
	}
	if !ok {
		return ops.Convoy{}, apperrors.NotFound("convoy", convoyID.String())
	}
	if !c.Status.CanTransitionTo(next) {
		return ops.Convoy{}, apperrors.InvalidInput(
			"illegal convoy status transition " + string(c.Status) + " -> " + string(next))
	}

	now := time.Now().UTC()
	c.Status = next
	switch next {
	case ops.ConvoyActive:
		c.MissionStart = &now
	case ops.ConvoyComplete, ops.ConvoyAbort:
		c.MissionEnd = &now
	}

	key := hotstore.KeyConvoySummary(convoyID)
	err = strategy.Write(ctx, strategy.WriteThrough, key,
		func(ctx context.Context) error {
			return s.hot.SetJSON(ctx, key, c, s.hot.TTL().ConvoySummary)
		},
		func(ctx context.Context) error {
			return s.cold.UpdateConvoyStatus(ctx, c)
		},
		nil,
	)
	if err != nil {
		return ops.Convoy{}, err
	}

	severity := ops.SeverityInfo
	if next == ops.ConvoyAbort {
		severity = ops.SeverityWarning
	}
	s.broker.Alerts.Publish(ops.AlertEvent{
		AlertID:   uuid.New(),
		ConvoyID:  convoyID,
		Severity:  severity,
		Category:  "CONVOY_STATUS",
		Message:   c.Callsign + " now " + string(next),
		Timestamp: now,
	})

	return c, nil
}

// ConvoyStats aggregates live drone state for one convoy.
func (s *Service) ConvoyStats(ctx context.Context, convoyID uuid.UUID) (ops.ConvoyStats, error) {
	drones, err := s.cold.SelectDrones(ctx, convoyID, 0)
	if err != nil {
		return ops.ConvoyStats{}, err
	}

	stats := ops.ConvoyStats{
		ConvoyID:   convoyID,
		DroneCount: len(drones),
		Timestamp:  time.Now().UTC(),
	}
	var accSum, fuelSum float64
	for _, d := range drones {
		if d.Status == ops.DroneAirborne || d.Status == ops.DroneLoiter ||
			d.Status == ops.DroneIngress || d.Status == ops.DroneEgress {
			stats.AirborneCount++
		}
		stats.TotalEngagements += d.TotalEngagements
		stats.TotalHits += d.SuccessfulHits
		accSum += d.AccuracyPct()
		fuelSum += d.FuelRemainingPct
	}
	if len(drones) > 0 {
		stats.AverageAccuracyPct = ops.Round2(accSum / float64(len(drones)))
		stats.AverageFuelPct = ops.Round2(fuelSum / float64(len(drones)))
	}
	return stats, nil
}
