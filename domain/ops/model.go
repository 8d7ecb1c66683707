package ops

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// FuelCriticalPct is the fuel threshold below which a drone is flagged critical.
const FuelCriticalPct = 20.0

// WaypointsPerMission is the fixed route length for a mission.
const WaypointsPerMission = 25

// Coordinates is a geodetic position with motion vector.
type Coordinates struct {
	Latitude   float64 `json:"latitude"`
	Longitude  float64 `json:"longitude"`
	AltitudeM  float64 `json:"altitude_m"`
	HeadingDeg float64 `json:"heading_deg"`
	SpeedMps   float64 `json:"speed_mps"`
}

// Convoy is a mission-level collective of drones sharing an area of
// responsibility and a rules-of-engagement profile.
type Convoy struct {
	ConvoyID       uuid.UUID    `json:"convoy_id"`
	Callsign       string       `json:"callsign"`
	MissionType    MissionType  `json:"mission_type"`
	Status         ConvoyStatus `json:"status"`
	AorName        string       `json:"aor_name"`
	AorCenter      Coordinates  `json:"aor_center"`
	AorRadiusKm    float64      `json:"aor_radius_km"`
	CommandingUnit string       `json:"commanding_unit"`
	AuthLevel      string       `json:"auth_level"`
	RoeProfile     string       `json:"roe_profile"`
	Roster         []uuid.UUID  `json:"roster"`
	DroneCount     int          `json:"drone_count"`
	MissionStart   *time.Time   `json:"mission_start,omitempty"`
	MissionEnd     *time.Time   `json:"mission_end,omitempty"`
	CreatedAt      time.Time    `json:"created_at"`
}

// Drone is a single autonomous aerial platform assigned to a convoy.
type Drone struct {
	DroneID          uuid.UUID    `json:"drone_id"`
	ConvoyID         uuid.UUID    `json:"convoy_id"`
	TailNumber       string       `json:"tail_number"`
	Callsign         string       `json:"callsign"`
	PlatformType     PlatformType `json:"platform_type"`
	SerialNumber     string       `json:"serial_number"`
	Status           DroneStatus  `json:"status"`
	CurrentPosition  Coordinates  `json:"current_position"`
	FuelRemainingPct float64      `json:"fuel_remaining_pct"`
	FlightHours      float64      `json:"flight_hours"`
	WeaponsLoadout   []string     `json:"weapons_loadout"`
	Sensors          []string     `json:"sensors"`
	PrimaryLinkUp    bool         `json:"primary_link_up"`
	BackupLinkUp     bool         `json:"backup_link_up"`
	MeshNeighbors    []uuid.UUID  `json:"mesh_neighbors"`
	TotalEngagements int          `json:"total_engagements"`
	SuccessfulHits   int          `json:"successful_hits"`
	CreatedAt        time.Time    `json:"created_at"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// AccuracyPct returns 100 * hits / total, rounded to two decimals,
// or 0 when the drone has no engagements.
func (d Drone) AccuracyPct() float64 {
	return AccuracyPct(d.SuccessfulHits, d.TotalEngagements)
}

// FuelCritical reports whether remaining fuel is below the critical threshold.
func (d Drone) FuelCritical() bool {
	return d.FuelRemainingPct < FuelCriticalPct
}

// AccuracyPct computes 100 * hits / total rounded to two decimals.
// Zero total yields zero.
func AccuracyPct(hits, total int) float64 {
	if total <= 0 {
		return 0
	}
	return Round2(100 * float64(hits) / float64(total))
}

// Round2 rounds to two decimal places.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Waypoint is one leg of a drone's 25-point mission route.
type Waypoint struct {
	DroneID           uuid.UUID      `json:"drone_id"`
	SequenceNumber    int            `json:"sequence_number"`
	Name              string         `json:"name"`
	WaypointType      WaypointType   `json:"waypoint_type"`
	Coordinates       Coordinates    `json:"coordinates"`
	Status            WaypointStatus `json:"status"`
	PlannedArrival    *time.Time     `json:"planned_arrival,omitempty"`
	ActualArrival     *time.Time     `json:"actual_arrival,omitempty"`
	PlannedDeparture  *time.Time     `json:"planned_departure,omitempty"`
	ActualDeparture   *time.Time     `json:"actual_departure,omitempty"`
	LoiterDurationMin *int           `json:"loiter_duration_min,omitempty"`
}

// Telemetry is one append-only time-series sample for a drone.
// TimeBucket groups samples by UTC hour; rows expire after 24 hours
// in the cold tier.
type Telemetry struct {
	DroneID          uuid.UUID   `json:"drone_id"`
	TimeBucket       string      `json:"time_bucket"`
	RecordedAt       time.Time   `json:"recorded_at"`
	Position         Coordinates `json:"position"`
	FuelRemainingPct float64     `json:"fuel_remaining_pct"`
	CurrentWaypoint  int         `json:"current_waypoint"`
	VelocityMps      float64     `json:"velocity_mps"`
	MeshConnectivity float64     `json:"mesh_connectivity"`
}

// TimeBucket formats an instant as the hourly bucket key YYYYMMDDHH in UTC.
func TimeBucket(t time.Time) string {
	return t.UTC().Format("2006010215")
}

// TargetInfo describes the engaged target.
type TargetInfo struct {
	TargetType  TargetType  `json:"target_type"`
	Coordinates Coordinates `json:"coordinates"`
	Confidence  float64     `json:"confidence"`
	ThreatLevel ThreatLevel `json:"threat_level"`
}

// Engagement is a single weapon-employment record. Immutable except for
// the BDA fields, which UpdateBda revises after assessment.
type Engagement struct {
	EngagementID      uuid.UUID        `json:"engagement_id"`
	ConvoyID          uuid.UUID        `json:"convoy_id"`
	DroneID           uuid.UUID        `json:"drone_id"`
	DroneCallsign     string           `json:"drone_callsign"`
	EngagedAt         time.Time        `json:"engaged_at"`
	WeaponType        WeaponType       `json:"weapon_type"`
	Target            TargetInfo       `json:"target"`
	ShooterPosition   Coordinates      `json:"shooter_position"`
	RangeKm           float64          `json:"range_km"`
	Hit               bool             `json:"hit"`
	DamageAssessment  DamageAssessment `json:"damage_assessment"`
	BdaNotes          string           `json:"bda_notes,omitempty"`
	AuthorizationCode string           `json:"authorization_code"`
	RoeCompliant      bool             `json:"roe_compliant"`
}

// RankingEntry is the per-drone denormalized accuracy row used for
// fast top-N reads. Rank is 1-indexed within the convoy.
type RankingEntry struct {
	ConvoyID         uuid.UUID    `json:"convoy_id"`
	DroneID          uuid.UUID    `json:"drone_id"`
	Callsign         string       `json:"callsign"`
	PlatformType     PlatformType `json:"platform_type"`
	TotalEngagements int          `json:"total_engagements"`
	SuccessfulHits   int          `json:"successful_hits"`
	AccuracyPct      float64      `json:"accuracy_pct"`
	CurrentStreak    int          `json:"current_streak"`
	BestStreak       int          `json:"best_streak"`
	Rank             int          `json:"rank"`
	UpdatedAt        time.Time    `json:"updated_at"`
}

// Less orders ranking entries by accuracy descending, ties broken by
// total engagements descending, then drone ID ascending.
func (e RankingEntry) Less(other RankingEntry) bool {
	if e.AccuracyPct != other.AccuracyPct {
		return e.AccuracyPct > other.AccuracyPct
	}
	if e.TotalEngagements != other.TotalEngagements {
		return e.TotalEngagements > other.TotalEngagements
	}
	return e.DroneID.String() < other.DroneID.String()
}
