package gateway

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/services/fleet"
)

func (r *Resolver) recordEngagement(ctx context.Context, vars Vars) (interface{}, error) {
	input := vars.Get("input")
	if !input.Exists() {
		input = vars.raw
	}

	convoyID, err := uuid.Parse(input.Get("convoyId").String())
	if err != nil {
		return nil, apperrors.InvalidID(input.Get("convoyId").String(), err)
	}
	droneID, err := uuid.Parse(firstOf(input, "assetId", "droneId").String())
	if err != nil {
		return nil, apperrors.InvalidID(firstOf(input, "assetId", "droneId").String(), err)
	}

	in := ops.RecordEngagementInput{
		ConvoyID: convoyID,
		DroneID:  droneID,
		Callsign: input.Get("callsign").String(),
		Platform: ops.PlatformType(input.Get("platform").String()),
		Hit:      input.Get("hit").Bool(),
	}
	if v := input.Get("weapon"); v.Exists() {
		weapon := ops.WeaponType(v.String())
		in.WeaponType = &weapon
	}
	if v := input.Get("targetType"); v.Exists() {
		target := ops.TargetType(v.String())
		in.TargetType = &target
	}
	if v := input.Get("rangeKm"); v.Exists() {
		rangeKm := v.Float()
		in.RangeKm = &rangeKm
	}

	result, err := r.recorder.Record(ctx, in)
	if err != nil {
		return nil, apperrors.Persistence("engagements", err)
	}
	return result, nil
}

func (r *Resolver) createEngagement(ctx context.Context, vars Vars) (interface{}, error) {
	var in ops.CreateEngagementInput
	if err := vars.Decode("input", &in); err != nil {
		return nil, err
	}
	if in.ConvoyID == uuid.Nil || in.DroneID == uuid.Nil {
		return nil, apperrors.InvalidInput("convoy_id and drone_id are required")
	}

	engagement, err := r.recorder.Create(ctx, in)
	if err != nil {
		return nil, apperrors.Persistence("engagements", err)
	}
	return engagement, nil
}

func (r *Resolver) updateBda(ctx context.Context, vars Vars) (interface{}, error) {
	engagementID, err := uuidVar(vars, "engagementId", "engagement_id")
	if err != nil {
		return nil, err
	}
	assessment := ops.DamageAssessment(vars.Get("damageAssessment").String())
	switch assessment {
	case ops.BDADestroyed, ops.BDADamaged, ops.BDAMissed, ops.BDAPendingBDA:
	default:
		return nil, apperrors.InvalidInput("unknown damage assessment")
	}

	engagement, err := r.recorder.UpdateBda(ctx, engagementID, assessment, vars.Get("notes").String())
	if err != nil {
		return nil, err
	}
	return engagement, nil
}

func (r *Resolver) rebuildRanking(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}

	start := time.Now()
	count, err := r.rank.Rebuild(ctx, convoyID)
	if err != nil {
		return nil, apperrors.Persistence("ranking", err)
	}
	return map[string]interface{}{
		"success":           true,
		"entries_processed": count,
		"duration_ms":       time.Since(start).Milliseconds(),
	}, nil
}

func (r *Resolver) updateAssetState(ctx context.Context, vars Vars) (interface{}, error) {
	input := vars.Get("input")
	if !input.Exists() {
		input = vars.raw
	}

	convoyID, err := uuid.Parse(input.Get("convoyId").String())
	if err != nil {
		return nil, apperrors.InvalidID(input.Get("convoyId").String(), err)
	}
	droneID, err := uuid.Parse(firstOf(input, "assetId", "droneId").String())
	if err != nil {
		return nil, apperrors.InvalidID(firstOf(input, "assetId", "droneId").String(), err)
	}

	in := fleet.UpdateDroneStateInput{ConvoyID: convoyID, DroneID: droneID}
	if v := input.Get("status"); v.Exists() {
		status := ops.DroneStatus(v.String())
		in.Status = &status
	}
	if v := input.Get("position"); v.Exists() {
		var pos ops.Coordinates
		if err := vars.Decode("input.position", &pos); err == nil {
			in.Position = &pos
		}
	}
	if v := input.Get("fuelPct"); v.Exists() {
		fuel := v.Float()
		in.FuelPct = &fuel
	}

	d, err := r.fleet.UpdateDroneState(ctx, in)
	if err != nil {
		return nil, err
	}
	return newDroneView(d), nil
}

func (r *Resolver) recordTelemetry(ctx context.Context, vars Vars) (interface{}, error) {
	var snap ops.TelemetrySnapshot
	if err := vars.Decode("input", &snap); err != nil {
		return nil, err
	}
	if snap.DroneID == uuid.Nil {
		return nil, apperrors.InvalidInput("drone_id is required")
	}

	recorded, err := r.fleet.RecordTelemetry(ctx, snap)
	if err != nil {
		return nil, apperrors.Persistence("telemetry", err)
	}
	return recorded, nil
}

func (r *Resolver) createConvoy(ctx context.Context, vars Vars) (interface{}, error) {
	var c ops.Convoy
	if err := vars.Decode("input", &c); err != nil {
		return nil, err
	}

	created, err := r.fleet.CreateConvoy(ctx, c)
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (r *Resolver) updateConvoyStatus(ctx context.Context, vars Vars) (interface{}, error) {
	convoyID, err := uuidVar(vars, "convoyId", "convoy_id")
	if err != nil {
		return nil, err
	}
	status := ops.ConvoyStatus(vars.Get("status").String())
	switch status {
	case ops.ConvoyPlanning, ops.ConvoyActive, ops.ConvoyRTB, ops.ConvoyComplete, ops.ConvoyAbort:
	default:
		return nil, apperrors.InvalidInput("unknown convoy status")
	}

	c, err := r.fleet.UpdateConvoyStatus(ctx, convoyID, status)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *Resolver) createWaypoints(ctx context.Context, vars Vars) (interface{}, error) {
	droneID, err := uuidVar(vars, "assetId", "droneId", "drone_id")
	if err != nil {
		return nil, err
	}

	var waypoints []ops.Waypoint
	if err := vars.Decode("waypoints", &waypoints); err != nil {
		return nil, err
	}

	created, err := r.fleet.CreateWaypoints(ctx, droneID, waypoints)
	if err != nil {
		return nil, err
	}
	return created, nil
}
