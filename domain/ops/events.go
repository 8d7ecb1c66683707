package ops

import (
	"time"

	"github.com/google/uuid"
)

// Event records flow through the in-process broker only; none of them
// are persisted. Each carries the originating convoy (and drone where
// applicable) so subscribers can filter.

// EngagementEvent announces a recorded hit or miss.
type EngagementEvent struct {
	ConvoyID       uuid.UUID  `json:"convoy_id"`
	DroneID        uuid.UUID  `json:"drone_id"`
	Callsign       string     `json:"callsign"`
	Hit            bool       `json:"hit"`
	WeaponType     WeaponType `json:"weapon_type"`
	NewAccuracyPct float64    `json:"new_accuracy_pct"`
	Timestamp      time.Time  `json:"timestamp"`
}

// RankingUpdateEvent announces a change to a drone's ranking row.
type RankingUpdateEvent struct {
	ConvoyID    uuid.UUID      `json:"convoy_id"`
	DroneID     uuid.UUID      `json:"drone_id"`
	Callsign    string         `json:"callsign"`
	NewRank     int            `json:"new_rank"`
	OldRank     *int           `json:"old_rank,omitempty"`
	AccuracyPct float64        `json:"accuracy_pct"`
	ChangeType  RankChangeType `json:"change_type"`
	Timestamp   time.Time      `json:"timestamp"`
}

// DroneStatusEvent announces an operational phase change.
type DroneStatusEvent struct {
	ConvoyID  uuid.UUID   `json:"convoy_id"`
	DroneID   uuid.UUID   `json:"drone_id"`
	Callsign  string      `json:"callsign"`
	OldStatus DroneStatus `json:"old_status"`
	NewStatus DroneStatus `json:"new_status"`
	Timestamp time.Time   `json:"timestamp"`
}

// AlertEvent is an operator-facing notification.
type AlertEvent struct {
	AlertID   uuid.UUID     `json:"alert_id"`
	ConvoyID  uuid.UUID     `json:"convoy_id"`
	DroneID   *uuid.UUID    `json:"drone_id,omitempty"`
	Severity  AlertSeverity `json:"severity"`
	Category  string        `json:"category"`
	Message   string        `json:"message"`
	Timestamp time.Time     `json:"timestamp"`
}

// TelemetrySnapshot is the live telemetry payload pushed to subscribers
// and cached as the drone's latest sample.
type TelemetrySnapshot struct {
	ConvoyID         uuid.UUID   `json:"convoy_id"`
	DroneID          uuid.UUID   `json:"drone_id"`
	RecordedAt       time.Time   `json:"recorded_at"`
	Position         Coordinates `json:"position"`
	FuelRemainingPct float64     `json:"fuel_remaining_pct"`
	CurrentWaypoint  int         `json:"current_waypoint"`
	VelocityMps      float64     `json:"velocity_mps"`
	MeshConnectivity float64     `json:"mesh_connectivity"`
}
