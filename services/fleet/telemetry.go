package fleet

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/hotstore"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/strategy"
)

// RecordTelemetry appends a sample to the time series, refreshes the
// latest-telemetry cache, and pushes the snapshot to subscribers.
func (s *Service) RecordTelemetry(ctx context.Context, snapshot ops.TelemetrySnapshot) (ops.TelemetrySnapshot, error) {
	if snapshot.RecordedAt.IsZero() {
		snapshot.RecordedAt = time.Now().UTC()
	}

	sample := ops.Telemetry{
		DroneID:          snapshot.DroneID,
		TimeBucket:       ops.TimeBucket(snapshot.RecordedAt),
		RecordedAt:       snapshot.RecordedAt,
		Position:         snapshot.Position,
		FuelRemainingPct: snapshot.FuelRemainingPct,
		CurrentWaypoint:  snapshot.CurrentWaypoint,
		VelocityMps:      snapshot.VelocityMps,
		MeshConnectivity: snapshot.MeshConnectivity,
	}

	key := hotstore.KeyLatestTelemetry(snapshot.DroneID)
	err := strategy.Write(ctx, strategy.WriteThrough, key,
		func(ctx context.Context) error {
			return s.hot.SetLatestTelemetry(ctx, snapshot.DroneID, snapshot)
		},
		func(ctx context.Context) error {
			return s.cold.InsertTelemetry(ctx, sample)
		},
		nil,
	)
	if err != nil {
		return ops.TelemetrySnapshot{}, err
	}

	s.broker.Telemetry.Publish(snapshot)
	return snapshot, nil
}

// LatestTelemetry reads the drone's freshest sample cache-first. The
// cold fallback scans the most recent bucket window.
func (s *Service) LatestTelemetry(ctx context.Context, droneID uuid.UUID) (ops.TelemetrySnapshot, bool, error) {
	key := hotstore.KeyLatestTelemetry(droneID)
	return strategy.Read(ctx, strategy.CacheFirst, key,
		func(ctx context.Context) (ops.TelemetrySnapshot, bool, error) {
			var snap ops.TelemetrySnapshot
			ok, err := s.hot.LatestTelemetry(ctx, droneID, &snap)
			return snap, ok, err
		},
		func(ctx context.Context) (ops.TelemetrySnapshot, bool, error) {
			now := time.Now().UTC()
			samples, err := s.cold.SelectTelemetryRange(ctx, droneID,
				ops.TimeRange{Start: now.Add(-24 * time.Hour), End: now}, 1)
			if err != nil || len(samples) == 0 {
				return ops.TelemetrySnapshot{}, false, err
			}
			return snapshotFromSample(samples[0]), true, nil
		},
		func(ctx context.Context, snap ops.TelemetrySnapshot) error {
			return s.hot.SetLatestTelemetry(ctx, droneID, snap)
		},
	)
}

// TelemetryHistory reads samples inside the range, newest first.
func (s *Service) TelemetryHistory(ctx context.Context, droneID uuid.UUID, tr ops.TimeRange, page ops.Pagination) ([]ops.Telemetry, error) {
	page = page.Normalize()
	samples, err := s.cold.SelectTelemetryRange(ctx, droneID, tr, page.Offset+page.Limit)
	if err != nil {
		return nil, err
	}
	if page.Offset >= len(samples) {
		return []ops.Telemetry{}, nil
	}
	samples = samples[page.Offset:]
	if len(samples) > page.Limit {
		samples = samples[:page.Limit]
	}
	return samples, nil
}

func snapshotFromSample(t ops.Telemetry) ops.TelemetrySnapshot {
	return ops.TelemetrySnapshot{
		DroneID:          t.DroneID,
		RecordedAt:       t.RecordedAt,
		Position:         t.Position,
		FuelRemainingPct: t.FuelRemainingPct,
		CurrentWaypoint:  t.CurrentWaypoint,
		VelocityMps:      t.VelocityMps,
		MeshConnectivity: t.MeshConnectivity,
	}
}
