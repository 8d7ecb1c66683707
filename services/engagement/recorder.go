// Package engagement records weapon-employment outcomes: the accuracy
// engine takes the hit/miss, the mirrors take the full record, the
// broker fans the side-effects out to live subscribers, and the
// analytics engine ingests a copy for historical queries.
package engagement

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/analytics"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/broker"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/metrics"
)

// RankingUpdater is the accuracy-engine surface the recorder needs.
type RankingUpdater interface {
	UpdateEntry(ctx context.Context, convoyID, droneID uuid.UUID, callsign string, platform ops.PlatformType, hit bool) (ops.RankingEntry, error)
}

// ColdStore is the cold-tier surface the recorder needs.
type ColdStore interface {
	InsertEngagement(ctx context.Context, e ops.Engagement) error
	SelectEngagements(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.Engagement, error)
	SelectEngagementsByDrone(ctx context.Context, droneID uuid.UUID, limit int) ([]ops.Engagement, error)
	UpdateBda(ctx context.Context, engagementID uuid.UUID, assessment ops.DamageAssessment, notes string) (ops.Engagement, error)
}

// AnalyticsSink receives engagement records for historical analysis.
// Ingestion is idempotent on engagement ID.
type AnalyticsSink interface {
	Ingest(rec analytics.EngagementRecord) error
}

// Recorder orchestrates engagement mutations.
type Recorder struct {
	rank      RankingUpdater
	cold      ColdStore
	broker    *broker.Broker
	analytics AnalyticsSink
	metrics   *metrics.Metrics
	log       *logging.Logger
}

// New creates the recorder. analytics and m may be nil.
func New(rank RankingUpdater, cold ColdStore, b *broker.Broker, analytics AnalyticsSink, m *metrics.Metrics, log *logging.Logger) *Recorder {
	return &Recorder{rank: rank, cold: cold, broker: b, analytics: analytics, metrics: m, log: log}
}

// Record registers one hit or miss, publishes the engagement and
// ranking events, and returns the updated ranking state. RankChange
// stays zero.
func (r *Recorder) Record(ctx context.Context, in ops.RecordEngagementInput) (ops.RecordEngagementResult, error) {
	r.log.WithContext(ctx).WithFields(map[string]interface{}{
		"convoy_id": in.ConvoyID.String(),
		"drone_id":  in.DroneID.String(),
		"hit":       in.Hit,
	}).Info("Recording engagement")

	platform := in.Platform
	if platform == "" {
		platform = ops.PlatformMQ9Reaper
	}

	entry, err := r.rank.UpdateEntry(ctx, in.ConvoyID, in.DroneID, in.Callsign, platform, in.Hit)
	if err != nil {
		return ops.RecordEngagementResult{}, err
	}

	weapon := ops.WeaponAGM114Hellfire
	if in.WeaponType != nil {
		weapon = *in.WeaponType
	}

	now := time.Now().UTC()
	r.broker.Engagements.Publish(ops.EngagementEvent{
		ConvoyID:       in.ConvoyID,
		DroneID:        in.DroneID,
		Callsign:       entry.Callsign,
		Hit:            in.Hit,
		WeaponType:     weapon,
		NewAccuracyPct: entry.AccuracyPct,
		Timestamp:      now,
	})
	r.broker.Rankings.Publish(ops.RankingUpdateEvent{
		ConvoyID:    in.ConvoyID,
		DroneID:     in.DroneID,
		Callsign:    entry.Callsign,
		NewRank:     entry.Rank,
		OldRank:     nil,
		AccuracyPct: entry.AccuracyPct,
		ChangeType:  ops.RankScoreUpdate,
		Timestamp:   now,
	})

	if r.metrics != nil {
		r.metrics.RecordEngagement("tracking", in.ConvoyID.String(), in.Hit)
	}

	return ops.RecordEngagementResult{
		Success:        true,
		Entry:          entry,
		NewRank:        entry.Rank,
		RankChange:     0,
		NewAccuracyPct: entry.AccuracyPct,
	}, nil
}

// Create builds and persists a full engagement record. The range is
// computed from shooter and target positions, the hit/miss feeds the
// accuracy engine through Record, and both mirror tables take the row.
func (r *Recorder) Create(ctx context.Context, in ops.CreateEngagementInput) (ops.Engagement, error) {
	engagementID := uuid.New()
	rangeKm := ops.Haversine(in.ShooterPosition, in.Target.Coordinates)

	r.log.WithContext(ctx).WithFields(map[string]interface{}{
		"engagement_id": engagementID.String(),
		"convoy_id":     in.ConvoyID.String(),
		"drone_id":      in.DroneID.String(),
		"weapon":        string(in.WeaponType),
		"hit":           in.Hit,
	}).Info("Creating engagement record")

	weapon := in.WeaponType
	if weapon == "" {
		weapon = ops.WeaponAGM114Hellfire
	}

	if _, err := r.Record(ctx, ops.RecordEngagementInput{
		ConvoyID:   in.ConvoyID,
		DroneID:    in.DroneID,
		Callsign:   in.Callsign,
		Platform:   in.Platform,
		Hit:        in.Hit,
		WeaponType: &weapon,
		TargetType: &in.Target.TargetType,
		RangeKm:    &rangeKm,
	}); err != nil {
		return ops.Engagement{}, err
	}

	assessment := ops.BDAMissed
	if in.Hit {
		assessment = ops.BDAPendingBDA
	}

	engagement := ops.Engagement{
		EngagementID:      engagementID,
		ConvoyID:          in.ConvoyID,
		DroneID:           in.DroneID,
		DroneCallsign:     in.Callsign,
		EngagedAt:         time.Now().UTC(),
		WeaponType:        weapon,
		Target:            in.Target,
		ShooterPosition:   in.ShooterPosition,
		RangeKm:           rangeKm,
		Hit:               in.Hit,
		DamageAssessment:  assessment,
		AuthorizationCode: in.AuthorizationCode,
		RoeCompliant:      in.RoeCompliant,
	}

	if err := r.cold.InsertEngagement(ctx, engagement); err != nil {
		return ops.Engagement{}, err
	}

	r.ingest(engagement, in.Platform)
	return engagement, nil
}

// ingest hands the record to the analytics engine off the hot path.
func (r *Recorder) ingest(e ops.Engagement, platform ops.PlatformType) {
	if r.analytics == nil {
		return
	}
	go func() {
		if err := r.analytics.Ingest(analytics.RecordFrom(e, platform)); err != nil {
			r.log.WithError(err).WithFields(map[string]interface{}{
				"engagement_id": e.EngagementID.String(),
			}).Error("Analytics ingest failed")
		}
	}()
}

// UpdateBda revises the damage assessment in both mirrors.
func (r *Recorder) UpdateBda(ctx context.Context, engagementID uuid.UUID, assessment ops.DamageAssessment, notes string) (ops.Engagement, error) {
	r.log.WithContext(ctx).WithFields(map[string]interface{}{
		"engagement_id":     engagementID.String(),
		"damage_assessment": string(assessment),
	}).Info("Updating BDA")

	return r.cold.UpdateBda(ctx, engagementID, assessment, notes)
}

// List reads a convoy's engagements and applies the filter and page.
func (r *Recorder) List(ctx context.Context, convoyID uuid.UUID, filter *ops.EngagementFilter, page ops.Pagination) ([]ops.Engagement, error) {
	page = page.Normalize()
	engagements, err := r.cold.SelectEngagements(ctx, convoyID, page.Offset+page.Limit)
	if err != nil {
		return nil, err
	}
	return filterPage(engagements, filter, page), nil
}

// ListByDrone reads a drone's engagements and applies the filter and page.
func (r *Recorder) ListByDrone(ctx context.Context, droneID uuid.UUID, filter *ops.EngagementFilter, page ops.Pagination) ([]ops.Engagement, error) {
	page = page.Normalize()
	engagements, err := r.cold.SelectEngagementsByDrone(ctx, droneID, page.Offset+page.Limit)
	if err != nil {
		return nil, err
	}
	return filterPage(engagements, filter, page), nil
}

func filterPage(engagements []ops.Engagement, filter *ops.EngagementFilter, page ops.Pagination) []ops.Engagement {
	filtered := make([]ops.Engagement, 0, len(engagements))
	for _, e := range engagements {
		if filter.Matches(e) {
			filtered = append(filtered, e)
		}
	}
	if page.Offset >= len(filtered) {
		return []ops.Engagement{}
	}
	filtered = filtered[page.Offset:]
	if len(filtered) > page.Limit {
		filtered = filtered[:page.Limit]
	}
	return filtered
}
