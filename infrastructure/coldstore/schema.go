package coldstore

import "context"

// The keyspace itself is provisioned externally; the tables are created
// if absent so a fresh keyspace is usable immediately. Telemetry rows
// carry a 24-hour table-level TTL.
var schemaDDL = []string{
	`CREATE TABLE IF NOT EXISTS convoys (
		convoy_id uuid PRIMARY KEY,
		callsign text,
		mission_type text,
		status text,
		aor_name text,
		aor_lat double,
		aor_lon double,
		aor_alt double,
		aor_radius_km double,
		commanding_unit text,
		auth_level text,
		roe_profile text,
		roster list<uuid>,
		drone_count int,
		mission_start timestamp,
		mission_end timestamp,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS active_convoys (
		convoy_id uuid PRIMARY KEY,
		callsign text,
		mission_type text,
		status text,
		drone_count int,
		created_at timestamp
	)`,
	`CREATE TABLE IF NOT EXISTS drones (
		convoy_id uuid,
		drone_id uuid,
		tail_number text,
		callsign text,
		platform_type text,
		serial_number text,
		status text,
		lat double,
		lon double,
		altitude_m double,
		heading_deg double,
		speed_mps double,
		fuel_remaining_pct double,
		flight_hours double,
		weapons_loadout list<text>,
		sensors list<text>,
		primary_link_up boolean,
		backup_link_up boolean,
		mesh_neighbors list<uuid>,
		total_engagements int,
		successful_hits int,
		created_at timestamp,
		updated_at timestamp,
		PRIMARY KEY ((convoy_id), drone_id)
	)`,
	`CREATE TABLE IF NOT EXISTS waypoints (
		drone_id uuid,
		sequence_number int,
		name text,
		waypoint_type text,
		lat double,
		lon double,
		altitude_m double,
		heading_deg double,
		status text,
		planned_arrival timestamp,
		actual_arrival timestamp,
		planned_departure timestamp,
		actual_departure timestamp,
		loiter_duration_min int,
		PRIMARY KEY ((drone_id), sequence_number)
	)`,
	`CREATE TABLE IF NOT EXISTS telemetry (
		drone_id uuid,
		time_bucket text,
		recorded_at timestamp,
		lat double,
		lon double,
		altitude_m double,
		heading_deg double,
		speed_mps double,
		fuel_remaining_pct double,
		current_waypoint int,
		velocity_mps double,
		mesh_connectivity double,
		PRIMARY KEY ((drone_id), time_bucket, recorded_at)
	) WITH CLUSTERING ORDER BY (time_bucket DESC, recorded_at DESC)
	  AND default_time_to_live = 86400`,
	`CREATE TABLE IF NOT EXISTS engagements (
		convoy_id uuid,
		engaged_at timestamp,
		engagement_id uuid,
		drone_id uuid,
		drone_callsign text,
		weapon_type text,
		target_type text,
		target_lat double,
		target_lon double,
		target_alt double,
		target_confidence double,
		threat_level text,
		shooter_lat double,
		shooter_lon double,
		shooter_alt double,
		shooter_heading double,
		shooter_speed double,
		range_km double,
		hit boolean,
		damage_assessment text,
		bda_notes text,
		authorization_code text,
		roe_compliant boolean,
		PRIMARY KEY ((convoy_id), engaged_at, engagement_id)
	) WITH CLUSTERING ORDER BY (engaged_at DESC, engagement_id ASC)`,
	`CREATE TABLE IF NOT EXISTS engagements_by_drone (
		drone_id uuid,
		engaged_at timestamp,
		engagement_id uuid,
		convoy_id uuid,
		drone_callsign text,
		weapon_type text,
		target_type text,
		target_lat double,
		target_lon double,
		target_alt double,
		target_confidence double,
		threat_level text,
		shooter_lat double,
		shooter_lon double,
		shooter_alt double,
		shooter_heading double,
		shooter_speed double,
		range_km double,
		hit boolean,
		damage_assessment text,
		bda_notes text,
		authorization_code text,
		roe_compliant boolean,
		PRIMARY KEY ((drone_id), engaged_at, engagement_id)
	) WITH CLUSTERING ORDER BY (engaged_at DESC, engagement_id ASC)`,
	`CREATE TABLE IF NOT EXISTS accuracy_counters (
		convoy_id uuid,
		drone_id uuid,
		total_engagements counter,
		successful_hits counter,
		PRIMARY KEY ((convoy_id, drone_id))
	)`,
	`CREATE TABLE IF NOT EXISTS leaderboard (
		convoy_id uuid,
		drone_id uuid,
		callsign text,
		platform_type text,
		total_engagements int,
		successful_hits int,
		accuracy_pct double,
		current_streak int,
		best_streak int,
		updated_at timestamp,
		PRIMARY KEY ((convoy_id), drone_id)
	)`,
}

// EnsureSchema creates the tables if they do not exist.
func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, ddl := range schemaDDL {
		if err := s.exec(ctx, "ensure schema", ddl); err != nil {
			return err
		}
	}
	return nil
}
