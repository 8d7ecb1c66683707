package gateway

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/tidwall/gjson"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/services/fleet"
)

// Version is the service version reported by the version operation.
const Version = "1.0.0"

// RankingService is the accuracy-engine surface the resolver needs.
type RankingService interface {
	GetRanking(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.RankingEntry, error)
	Entry(ctx context.Context, convoyID, droneID uuid.UUID) (ops.RankingEntry, bool, error)
	Rebuild(ctx context.Context, convoyID uuid.UUID) (int, error)
}

// EngagementService is the recorder surface the resolver needs.
type EngagementService interface {
	Record(ctx context.Context, in ops.RecordEngagementInput) (ops.RecordEngagementResult, error)
	Create(ctx context.Context, in ops.CreateEngagementInput) (ops.Engagement, error)
	UpdateBda(ctx context.Context, engagementID uuid.UUID, assessment ops.DamageAssessment, notes string) (ops.Engagement, error)
	List(ctx context.Context, convoyID uuid.UUID, filter *ops.EngagementFilter, page ops.Pagination) ([]ops.Engagement, error)
	ListByDrone(ctx context.Context, droneID uuid.UUID, filter *ops.EngagementFilter, page ops.Pagination) ([]ops.Engagement, error)
}

// FleetService is the fleet surface the resolver needs.
type FleetService interface {
	CreateConvoy(ctx context.Context, c ops.Convoy) (ops.Convoy, error)
	Convoy(ctx context.Context, convoyID uuid.UUID) (ops.Convoy, bool, error)
	ActiveConvoys(ctx context.Context) ([]ops.Convoy, error)
	UpdateConvoyStatus(ctx context.Context, convoyID uuid.UUID, next ops.ConvoyStatus) (ops.Convoy, error)
	ConvoyStats(ctx context.Context, convoyID uuid.UUID) (ops.ConvoyStats, error)
	Drone(ctx context.Context, convoyID, droneID uuid.UUID) (ops.Drone, bool, error)
	Drones(ctx context.Context, convoyID uuid.UUID, filter *ops.DroneFilter, page ops.Pagination) ([]ops.Drone, error)
	UpdateDroneState(ctx context.Context, in fleet.UpdateDroneStateInput) (ops.Drone, error)
	CreateWaypoints(ctx context.Context, droneID uuid.UUID, waypoints []ops.Waypoint) ([]ops.Waypoint, error)
	Waypoints(ctx context.Context, droneID uuid.UUID) ([]ops.Waypoint, error)
	RecordTelemetry(ctx context.Context, snapshot ops.TelemetrySnapshot) (ops.TelemetrySnapshot, error)
	LatestTelemetry(ctx context.Context, droneID uuid.UUID) (ops.TelemetrySnapshot, bool, error)
	TelemetryHistory(ctx context.Context, droneID uuid.UUID, tr ops.TimeRange, page ops.Pagination) ([]ops.Telemetry, error)
}

// Handler resolves one named operation.
type Handler func(ctx context.Context, vars Vars) (interface{}, error)

// Resolver dispatches query and mutation operations to the domain
// services.
type Resolver struct {
	rank     RankingService
	recorder EngagementService
	fleet    FleetService

	handlers map[string]Handler
}

// NewResolver wires the operation table.
func NewResolver(rank RankingService, recorder EngagementService, fleetSvc FleetService) *Resolver {
	r := &Resolver{rank: rank, recorder: recorder, fleet: fleetSvc}
	r.handlers = map[string]Handler{
		// Queries
		"ranking":          r.ranking,
		"assetRank":        r.assetRank,
		"activeConvoys":    r.activeConvoys,
		"convoy":           r.convoy,
		"convoyStats":      r.convoyStats,
		"asset":            r.asset,
		"assets":           r.assets,
		"waypoints":        r.waypoints,
		"engagements":      r.engagements,
		"assetEngagements": r.assetEngagements,
		"latestTelemetry":  r.latestTelemetry,
		"telemetryHistory": r.telemetryHistory,
		"health":           r.health,
		"version":          r.version,

		// Mutations
		"recordEngagement":   r.recordEngagement,
		"createEngagement":   r.createEngagement,
		"updateBda":          r.updateBda,
		"rebuildRanking":     r.rebuildRanking,
		"updateAssetState":   r.updateAssetState,
		"recordTelemetry":    r.recordTelemetry,
		"createConvoy":       r.createConvoy,
		"updateConvoyStatus": r.updateConvoyStatus,
		"createWaypoints":    r.createWaypoints,
	}
	return r
}

// OperationNames lists the registered operations; it backs the
// introspection response.
func (r *Resolver) OperationNames() []string {
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve runs the named operation. Unknown names are invalid input.
func (r *Resolver) Resolve(ctx context.Context, operation string, vars Vars) (interface{}, error) {
	handler, ok := r.handlers[operation]
	if !ok {
		return nil, apperrors.InvalidInput("unknown operation " + operation)
	}
	return handler(ctx, vars)
}

// uuidVar parses a UUID variable from the first present path.
func uuidVar(vars Vars, paths ...string) (uuid.UUID, error) {
	r := vars.First(paths...)
	if !r.Exists() {
		return uuid.Nil, apperrors.InvalidInput("missing variable " + paths[0])
	}
	id, err := uuid.Parse(r.String())
	if err != nil {
		return uuid.Nil, apperrors.InvalidID(r.String(), err)
	}
	return id, nil
}

func pagination(vars Vars) ops.Pagination {
	page := ops.Pagination{
		Limit:  int(vars.Get("pagination.limit").Int()),
		Offset: int(vars.Get("pagination.offset").Int()),
	}
	return page.Normalize()
}

func (r *Resolver) ranking(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}
	limit := int(vars.Get("limit").Int())
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		return nil, apperrors.InvalidInput("limit exceeds maximum of 100")
	}

	var filter *ops.RankingFilter
	if f := vars.Get("filter"); f.Exists() {
		filter = &ops.RankingFilter{}
		if v := f.Get("minAccuracy"); v.Exists() {
			min := v.Float()
			filter.MinAccuracy = &min
		}
		if v := f.Get("minEngagements"); v.Exists() {
			min := int(v.Int())
			filter.MinEngagements = &min
		}
		if v := f.Get("platform"); v.Exists() {
			platform := ops.PlatformType(v.String())
			filter.PlatformType = &platform
		}
	}

	entries, err := r.rank.GetRanking(ctx, convoyID, limit)
	if err != nil {
		return nil, apperrors.Persistence("ranking", err)
	}

	page := ops.RankingPage{
		ConvoyID:    convoyID,
		Entries:     []ops.RankingEntry{},
		GeneratedAt: time.Now().UTC(),
	}
	var accSum float64
	for _, e := range entries {
		if !filter.Matches(e) {
			continue
		}
		page.Entries = append(page.Entries, e)
		page.TotalEngagements += e.TotalEngagements
		page.TotalHits += e.SuccessfulHits
		accSum += e.AccuracyPct
	}
	page.TotalDrones = len(page.Entries)
	if page.TotalDrones > 0 {
		page.AverageAccuracy = ops.Round2(accSum / float64(page.TotalDrones))
		leader := page.Entries[0]
		page.Leader = &leader
	}
	return page, nil
}

func (r *Resolver) assetRank(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}
	droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
	if err != nil {
		return nil, err
	}

	entry, ok, err := r.rank.Entry(ctx, convoyID, droneID)
	if err != nil {
		return nil, apperrors.Persistence("ranking", err)
	}
	if !ok {
		return nil, nil
	}
	return entry, nil
}

func (r *Resolver) activeConvoys(ctx context.Context, _ Vars) (interface{}, error) {
	convoys, err := r.fleet.ActiveConvoys(ctx)
	if err != nil {
		return nil, apperrors.Persistence("convoys", err)
	}
	if convoys == nil {
		convoys = []ops.Convoy{}
	}
	return convoys, nil
}

func (r *Resolver) convoy(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}
	c, ok, err := r.fleet.Convoy(ctx, convoyID)
	if err != nil {
		return nil, apperrors.Persistence("convoys", err)
	}
	if !ok {
		return nil, nil
	}
	return c, nil
}

func (r *Resolver) convoyStats(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}
	stats, err := r.fleet.ConvoyStats(ctx, convoyID)
	if err != nil {
		return nil, apperrors.Persistence("convoys", err)
	}
	return stats, nil
}

func (r *Resolver) asset(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}
	droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
	if err != nil {
		return nil, err
	}
	d, ok, err := r.fleet.Drone(ctx, convoyID, droneID)
	if err != nil {
		return nil, apperrors.Persistence("drones", err)
	}
	if !ok {
		return nil, nil
	}
	return newDroneView(d), nil
}

func (r *Resolver) assets(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}

	var filter *ops.DroneFilter
	if f := vars.Get("filter"); f.Exists() {
		filter = &ops.DroneFilter{}
		if v := f.Get("status"); v.Exists() {
			status := ops.DroneStatus(v.String())
			filter.Status = &status
		}
		if v := f.Get("platform"); v.Exists() {
			platform := ops.PlatformType(v.String())
			filter.Platform = &platform
		}
		if v := f.Get("minFuelPct"); v.Exists() {
			min := v.Float()
			filter.MinFuelPct = &min
		}
	}

	drones, err := r.fleet.Drones(ctx, convoyID, filter, pagination(vars))
	if err != nil {
		return nil, apperrors.Persistence("drones", err)
	}

	views := make([]droneView, 0, len(drones))
	for _, d := range drones {
		views = append(views, newDroneView(d))
	}
	return views, nil
}

// droneView augments the stored drone with its derived fields.
type droneView struct {
	ops.Drone
	AccuracyPct  float64 `json:"accuracy_pct"`
	FuelCritical bool    `json:"fuel_critical"`
}

func newDroneView(d ops.Drone) droneView {
	return droneView{
		Drone:        d,
		AccuracyPct:  d.AccuracyPct(),
		FuelCritical: d.FuelCritical(),
	}
}

func (r *Resolver) waypoints(ctx context.Context, vars Vars) (interface{}, error) {
	droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
	if err != nil {
		return nil, err
	}
	waypoints, err := r.fleet.Waypoints(ctx, droneID)
	if err != nil {
		return nil, apperrors.Persistence("waypoints", err)
	}
	if waypoints == nil {
		waypoints = []ops.Waypoint{}
	}
	return waypoints, nil
}

func engagementFilter(f gjson.Result) *ops.EngagementFilter {
	if !f.Exists() {
		return nil
	}
	filter := &ops.EngagementFilter{}
	if v := f.Get("hit"); v.Exists() {
		hit := v.Bool()
		filter.Hit = &hit
	}
	if v := f.Get("weapon"); v.Exists() {
		weapon := ops.WeaponType(v.String())
		filter.WeaponType = &weapon
	}
	if v := f.Get("damageAssessment"); v.Exists() {
		bda := ops.DamageAssessment(v.String())
		filter.DamageAssessment = &bda
	}
	if v := f.Get("timeRange"); v.Exists() {
		tr := &ops.TimeRange{}
		if start := v.Get("start"); start.Exists() {
			tr.Start, _ = time.Parse(time.RFC3339, start.String())
		}
		if end := v.Get("end"); end.Exists() {
			tr.End, _ = time.Parse(time.RFC3339, end.String())
		}
		filter.TimeRange = tr
	}
	return filter
}

func (r *Resolver) engagements(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}
	engagements, err := r.recorder.List(ctx, convoyID, engagementFilter(vars.Get("filter")), pagination(vars))
	if err != nil {
		return nil, apperrors.Persistence("engagements", err)
	}
	return engagements, nil
}

func (r *Resolver) assetEngagements(ctx context.Context, vars Vars) (interface{}, error) {
	droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
	if err != nil {
		return nil, err
	}
	engagements, err := r.recorder.ListByDrone(ctx, droneID, engagementFilter(vars.Get("filter")), pagination(vars))
	if err != nil {
		return nil, apperrors.Persistence("engagements", err)
	}
	return engagements, nil
}

func (r *Resolver) latestTelemetry(ctx context.Context, vars Vars) (interface{}, error) {
	droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
	if err != nil {
		return nil, err
	}
	snap, ok, err := r.fleet.LatestTelemetry(ctx, droneID)
	if err != nil {
		return nil, apperrors.Persistence("telemetry", err)
	}
	if !ok {
		return nil, nil
	}
	return snap, nil
}

func (r *Resolver) telemetryHistory(ctx context.Context, vars Vars) (interface{}, error) {
	droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
	if err != nil {
		return nil, err
	}

	var tr ops.TimeRange
	if v := vars.Get("timeRange.start"); v.Exists() {
		tr.Start, _ = time.Parse(time.RFC3339, v.String())
	}
	if v := vars.Get("timeRange.end"); v.Exists() {
		tr.End, _ = time.Parse(time.RFC3339, v.String())
	}

	samples, err := r.fleet.TelemetryHistory(ctx, droneID, tr, pagination(vars))
	if err != nil {
		return nil, apperrors.Persistence("telemetry", err)
	}
	return samples, nil
}

func (r *Resolver) health(context.Context, Vars) (interface{}, error) {
	return "OK", nil
}

func (r *Resolver) version(context.Context, Vars) (interface{}, error) {
	return Version, nil
}
