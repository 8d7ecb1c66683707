package coldstore

import (
	"context"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

const engagementColumns = `engagement_id, convoy_id, drone_id, drone_callsign, engaged_at,
	weapon_type, target_type, target_lat, target_lon, target_alt, target_confidence, threat_level,
	shooter_lat, shooter_lon, shooter_alt, shooter_heading, shooter_speed,
	range_km, hit, damage_assessment, bda_notes, authorization_code, roe_compliant`

const (
	stmtInsertEngagement = `INSERT INTO engagements (convoy_id, engaged_at, engagement_id, drone_id,
		drone_callsign, weapon_type, target_type, target_lat, target_lon, target_alt,
		target_confidence, threat_level, shooter_lat, shooter_lon, shooter_alt, shooter_heading,
		shooter_speed, range_km, hit, damage_assessment, bda_notes, authorization_code, roe_compliant)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtInsertEngagementByDrone = `INSERT INTO engagements_by_drone (drone_id, engaged_at, engagement_id, convoy_id,
		drone_callsign, weapon_type, target_type, target_lat, target_lon, target_alt,
		target_confidence, threat_level, shooter_lat, shooter_lon, shooter_alt, shooter_heading,
		shooter_speed, range_km, hit, damage_assessment, bda_notes, authorization_code, roe_compliant)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	stmtSelectEngagements = `SELECT ` + engagementColumns +
		` FROM engagements WHERE convoy_id = ? LIMIT ?`

	stmtSelectEngagementsByDrone = `SELECT ` + engagementColumns +
		` FROM engagements_by_drone WHERE drone_id = ? LIMIT ?`

	stmtLocateEngagement = `SELECT convoy_id, drone_id, engaged_at
		FROM engagements WHERE engagement_id = ? ALLOW FILTERING`

	stmtUpdateBda = `UPDATE engagements SET damage_assessment = ?, bda_notes = ?
		WHERE convoy_id = ? AND engaged_at = ? AND engagement_id = ?`

	stmtUpdateBdaByDrone = `UPDATE engagements_by_drone SET damage_assessment = ?, bda_notes = ?
		WHERE drone_id = ? AND engaged_at = ? AND engagement_id = ?`
)

// engagementArgs binds the mirror-invariant columns after the leading
// (partition key, engaged_at, engagement_id, other key) quartet.
func engagementArgs(e ops.Engagement, partitionKey, otherKey uuid.UUID) []interface{} {
	return []interface{}{
		partitionKey, e.EngagedAt, e.EngagementID, otherKey,
		e.DroneCallsign, string(e.WeaponType), string(e.Target.TargetType),
		e.Target.Coordinates.Latitude, e.Target.Coordinates.Longitude, e.Target.Coordinates.AltitudeM,
		e.Target.Confidence, string(e.Target.ThreatLevel),
		e.ShooterPosition.Latitude, e.ShooterPosition.Longitude, e.ShooterPosition.AltitudeM,
		e.ShooterPosition.HeadingDeg, e.ShooterPosition.SpeedMps,
		e.RangeKm, e.Hit, string(e.DamageAssessment), e.BdaNotes, e.AuthorizationCode, e.RoeCompliant,
	}
}

// InsertEngagement writes both mirrors. The writes are independent
// prepared statements; if the drone mirror fails after the convoy
// mirror succeeded, the record is still recoverable by engagement_id
// and the failure is logged for the reconciler rather than returned.
func (s *Store) InsertEngagement(ctx context.Context, e ops.Engagement) error {
	if err := s.exec(ctx, "insert engagement", stmtInsertEngagement, engagementArgs(e, e.ConvoyID, e.DroneID)...); err != nil {
		return err
	}

	if err := s.exec(ctx, "insert engagement mirror", stmtInsertEngagementByDrone, engagementArgs(e, e.DroneID, e.ConvoyID)...); err != nil {
		if s.log != nil {
			s.log.WithError(err).WithFields(map[string]interface{}{
				"engagement_id": e.EngagementID.String(),
				"drone_id":      e.DroneID.String(),
			}).Error("Engagement mirror write failed; left to reconciler")
		}
	}
	return nil
}

func scanEngagement(iter *gocql.Iter) (ops.Engagement, bool) {
	var (
		e                              ops.Engagement
		weapon, target, threat, bda    string
	)
	if !iter.Scan(&e.EngagementID, &e.ConvoyID, &e.DroneID, &e.DroneCallsign, &e.EngagedAt,
		&weapon, &target, &e.Target.Coordinates.Latitude, &e.Target.Coordinates.Longitude,
		&e.Target.Coordinates.AltitudeM, &e.Target.Confidence, &threat,
		&e.ShooterPosition.Latitude, &e.ShooterPosition.Longitude, &e.ShooterPosition.AltitudeM,
		&e.ShooterPosition.HeadingDeg, &e.ShooterPosition.SpeedMps,
		&e.RangeKm, &e.Hit, &bda, &e.BdaNotes, &e.AuthorizationCode, &e.RoeCompliant) {
		return ops.Engagement{}, false
	}
	e.WeaponType = ops.WeaponType(weapon)
	e.Target.TargetType = ops.TargetType(target)
	e.Target.ThreatLevel = ops.ThreatLevel(threat)
	e.DamageAssessment = ops.DamageAssessment(bda)
	return e, true
}

func (s *Store) selectEngagements(ctx context.Context, op, stmt string, key uuid.UUID, limit int) ([]ops.Engagement, error) {
	iter := s.session.Query(stmt, key, s.pageLimit(limit)).WithContext(ctx).Iter()

	var engagements []ops.Engagement
	for {
		e, ok := scanEngagement(iter)
		if !ok {
			break
		}
		engagements = append(engagements, e)
	}
	if err := iter.Close(); err != nil {
		return nil, wrapQuery(op, err)
	}
	return engagements, nil
}

// SelectEngagements reads a convoy's engagements, newest first.
func (s *Store) SelectEngagements(ctx context.Context, convoyID uuid.UUID, limit int) ([]ops.Engagement, error) {
	return s.selectEngagements(ctx, "select engagements", stmtSelectEngagements, convoyID, limit)
}

// SelectEngagementsByDrone reads a drone's engagements, newest first.
func (s *Store) SelectEngagementsByDrone(ctx context.Context, droneID uuid.UUID, limit int) ([]ops.Engagement, error) {
	return s.selectEngagements(ctx, "select engagements by drone", stmtSelectEngagementsByDrone, droneID, limit)
}

// UpdateBda revises the BDA fields in both mirrors by primary key. The
// engagement is located by a filtered scan on the convoy mirror first.
func (s *Store) UpdateBda(ctx context.Context, engagementID uuid.UUID, assessment ops.DamageAssessment, notes string) (ops.Engagement, error) {
	var (
		convoyID, droneID uuid.UUID
		engagedAt         time.Time
	)
	err := s.session.Query(stmtLocateEngagement, engagementID).WithContext(ctx).Scan(&convoyID, &droneID, &engagedAt)
	if err == gocql.ErrNotFound {
		return ops.Engagement{}, &Error{Kind: KindNotFound, Op: "locate engagement", Err: err}
	}
	if err != nil {
		return ops.Engagement{}, wrapQuery("locate engagement", err)
	}

	if err := s.exec(ctx, "update bda", stmtUpdateBda, string(assessment), notes, convoyID, engagedAt, engagementID); err != nil {
		return ops.Engagement{}, err
	}
	if err := s.exec(ctx, "update bda mirror", stmtUpdateBdaByDrone, string(assessment), notes, droneID, engagedAt, engagementID); err != nil {
		return ops.Engagement{}, err
	}

	// Read back the revised record from the convoy mirror.
	engagements, err := s.SelectEngagements(ctx, convoyID, 0)
	if err != nil {
		return ops.Engagement{}, err
	}
	for _, e := range engagements {
		if e.EngagementID == engagementID {
			return e, nil
		}
	}
	return ops.Engagement{}, &Error{Kind: KindNotFound, Op: "reload engagement", Err: gocql.ErrNotFound}
}
