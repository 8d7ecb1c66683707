package ops

import (
	"time"

	"github.com/google/uuid"
)

// Pagination bounds list reads. Zero values take the defaults.
type Pagination struct {
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

// Normalize applies the default page size and clamps to the maximum.
func (p Pagination) Normalize() Pagination {
	if p.Limit <= 0 {
		p.Limit = 20
	}
	if p.Limit > 100 {
		p.Limit = 100
	}
	if p.Offset < 0 {
		p.Offset = 0
	}
	return p
}

// TimeRange bounds a time-series read. Zero bounds are open.
type TimeRange struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Contains reports whether t falls inside the range.
func (r TimeRange) Contains(t time.Time) bool {
	if !r.Start.IsZero() && t.Before(r.Start) {
		return false
	}
	if !r.End.IsZero() && t.After(r.End) {
		return false
	}
	return true
}

// RankingFilter restricts a ranking page.
type RankingFilter struct {
	MinAccuracy    *float64      `json:"min_accuracy,omitempty"`
	MinEngagements *int          `json:"min_engagements,omitempty"`
	PlatformType   *PlatformType `json:"platform_type,omitempty"`
}

// Matches reports whether the entry passes the filter.
func (f *RankingFilter) Matches(e RankingEntry) bool {
	if f == nil {
		return true
	}
	if f.MinAccuracy != nil && e.AccuracyPct < *f.MinAccuracy {
		return false
	}
	if f.MinEngagements != nil && e.TotalEngagements < *f.MinEngagements {
		return false
	}
	if f.PlatformType != nil && e.PlatformType != *f.PlatformType {
		return false
	}
	return true
}

// EngagementFilter restricts an engagement page.
type EngagementFilter struct {
	Hit              *bool             `json:"hit,omitempty"`
	WeaponType       *WeaponType       `json:"weapon_type,omitempty"`
	TimeRange        *TimeRange        `json:"time_range,omitempty"`
	DamageAssessment *DamageAssessment `json:"damage_assessment,omitempty"`
}

// Matches reports whether the engagement passes the filter.
func (f *EngagementFilter) Matches(e Engagement) bool {
	if f == nil {
		return true
	}
	if f.Hit != nil && e.Hit != *f.Hit {
		return false
	}
	if f.WeaponType != nil && e.WeaponType != *f.WeaponType {
		return false
	}
	if f.TimeRange != nil && !f.TimeRange.Contains(e.EngagedAt) {
		return false
	}
	if f.DamageAssessment != nil && e.DamageAssessment != *f.DamageAssessment {
		return false
	}
	return true
}

// DroneFilter restricts a drone page.
type DroneFilter struct {
	Status     *DroneStatus  `json:"status,omitempty"`
	Platform   *PlatformType `json:"platform,omitempty"`
	MinFuelPct *float64      `json:"min_fuel_pct,omitempty"`
}

// Matches reports whether the drone passes the filter.
func (f *DroneFilter) Matches(d Drone) bool {
	if f == nil {
		return true
	}
	if f.Status != nil && d.Status != *f.Status {
		return false
	}
	if f.Platform != nil && d.PlatformType != *f.Platform {
		return false
	}
	if f.MinFuelPct != nil && d.FuelRemainingPct < *f.MinFuelPct {
		return false
	}
	return true
}

// RecordEngagementInput is the minimal hit/miss recording request.
type RecordEngagementInput struct {
	ConvoyID   uuid.UUID    `json:"convoy_id"`
	DroneID    uuid.UUID    `json:"drone_id"`
	Callsign   string       `json:"callsign"`
	Platform   PlatformType `json:"platform_type"`
	Hit        bool         `json:"hit"`
	WeaponType *WeaponType  `json:"weapon_type,omitempty"`
	TargetType *TargetType  `json:"target_type,omitempty"`
	RangeKm    *float64     `json:"range_km,omitempty"`
}

// RecordEngagementResult reports the outcome of a hit/miss recording.
// RankChange is reserved; it is currently always zero.
type RecordEngagementResult struct {
	Success        bool         `json:"success"`
	Entry          RankingEntry `json:"entry"`
	NewRank        int          `json:"new_rank"`
	RankChange     int          `json:"rank_change"`
	NewAccuracyPct float64      `json:"new_accuracy_pct"`
}

// CreateEngagementInput carries the full engagement record request.
type CreateEngagementInput struct {
	ConvoyID          uuid.UUID    `json:"convoy_id"`
	DroneID           uuid.UUID    `json:"drone_id"`
	Callsign          string       `json:"callsign"`
	Platform          PlatformType `json:"platform_type"`
	WeaponType        WeaponType   `json:"weapon_type"`
	Target            TargetInfo   `json:"target"`
	ShooterPosition   Coordinates  `json:"shooter_position"`
	Hit               bool         `json:"hit"`
	AuthorizationCode string       `json:"authorization_code"`
	RoeCompliant      bool         `json:"roe_compliant"`
}

// RankingPage is a ranking read with convoy-level aggregates.
type RankingPage struct {
	ConvoyID         uuid.UUID      `json:"convoy_id"`
	Entries          []RankingEntry `json:"entries"`
	TotalDrones      int            `json:"total_drones"`
	AverageAccuracy  float64        `json:"average_accuracy"`
	Leader           *RankingEntry  `json:"leader,omitempty"`
	TotalEngagements int            `json:"total_engagements"`
	TotalHits        int            `json:"total_hits"`
	GeneratedAt      time.Time      `json:"generated_at"`
}

// ConvoyStats aggregates live convoy health.
type ConvoyStats struct {
	ConvoyID           uuid.UUID `json:"convoy_id"`
	DroneCount         int       `json:"drone_count"`
	AirborneCount      int       `json:"airborne_count"`
	TotalEngagements   int       `json:"total_engagements"`
	TotalHits          int       `json:"total_hits"`
	AverageAccuracyPct float64   `json:"average_accuracy_pct"`
	AverageFuelPct     float64   `json:"average_fuel_pct"`
	Timestamp          time.Time `json:"timestamp"`
}
