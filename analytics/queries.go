package analytics

import (
	"database/sql"

	"github.com/google/uuid"
)

// AccuracyDataPoint is one bucket of an accuracy trend.
type AccuracyDataPoint struct {
	Period           string  `json:"period"`
	TotalEngagements int64   `json:"total_engagements"`
	Hits             int64   `json:"hits"`
	AccuracyPct      float64 `json:"accuracy_pct"`
}

// WeaponStats is the effectiveness summary of one weapon type.
type WeaponStats struct {
	WeaponType       string   `json:"weapon_type"`
	TotalEngagements int64    `json:"total_engagements"`
	Hits             int64    `json:"hits"`
	AccuracyPct      float64  `json:"accuracy_pct"`
	AvgRangeKm       *float64 `json:"avg_range_km,omitempty"`
}

// DronePerformance is the asset-level performance summary.
type DronePerformance struct {
	DroneID          uuid.UUID `json:"drone_id"`
	Callsign         string    `json:"callsign"`
	PlatformType     string    `json:"platform_type"`
	TotalEngagements int64     `json:"total_engagements"`
	Hits             int64     `json:"hits"`
	AccuracyPct      float64   `json:"accuracy_pct"`
}

// HourlyStats is the 0-23 distribution row.
type HourlyStats struct {
	Hour             int     `json:"hour"`
	TotalEngagements int64   `json:"total_engagements"`
	Hits             int64   `json:"hits"`
	AccuracyPct      float64 `json:"accuracy_pct"`
}

// MissionSummary aggregates one convoy's engagements.
type MissionSummary struct {
	ConvoyID         uuid.UUID `json:"convoy_id"`
	TotalDrones      int64     `json:"total_drones"`
	TotalEngagements int64     `json:"total_engagements"`
	TotalHits        int64     `json:"total_hits"`
	AccuracyPct      float64   `json:"accuracy_pct"`
	TopPerformer     *string   `json:"top_performer,omitempty"`
	MostUsedWeapon   *string   `json:"most_used_weapon,omitempty"`
}

// PlatformComparison compares airframes.
type PlatformComparison struct {
	PlatformType          string  `json:"platform_type"`
	DroneCount            int64   `json:"drone_count"`
	TotalEngagements      int64   `json:"total_engagements"`
	AccuracyPct           float64 `json:"accuracy_pct"`
	AvgEngagementsPerDrone float64 `json:"avg_engagements_per_drone"`
}

// BandAccuracy is a labeled accuracy band.
type BandAccuracy struct {
	Band        string  `json:"band"`
	AccuracyPct float64 `json:"accuracy_pct"`
}

// DateCount is an engagement count for one date.
type DateCount struct {
	Date  string `json:"date"`
	Count int64  `json:"count"`
}

// intervals whitelists the trend bucketing granularities.
var intervals = map[string]bool{
	"minute": true,
	"hour":   true,
	"day":    true,
	"week":   true,
	"month":  true,
}

// AccuracyTrend buckets a drone's accuracy over time by the given
// interval (e.g. "day", "hour").
func (e *Engine) AccuracyTrend(droneID uuid.UUID, interval string) ([]AccuracyDataPoint, error) {
	if !intervals[interval] {
		interval = "day"
	}

	rows, err := e.db.Query(`
		SELECT
			CAST(date_trunc('`+interval+`', timestamp) AS VARCHAR) AS period,
			COUNT(*) AS total,
			SUM(CASE WHEN hit THEN 1 ELSE 0 END) AS hits,
			ROUND(100.0 * SUM(CASE WHEN hit THEN 1 ELSE 0 END) / COUNT(*), 2) AS accuracy
		FROM engagements
		WHERE drone_id = ?
		GROUP BY period
		ORDER BY period`,
		droneID.String())
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var points []AccuracyDataPoint
	for rows.Next() {
		var p AccuracyDataPoint
		if err := rows.Scan(&p.Period, &p.TotalEngagements, &p.Hits, &p.AccuracyPct); err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, rows.Err()
}

// WeaponEffectiveness summarizes weapon performance, optionally
// restricted to one convoy, best accuracy first.
func (e *Engine) WeaponEffectiveness(convoyID *uuid.UUID) ([]WeaponStats, error) {
	query := `
		SELECT
			weapon_type,
			COUNT(*) AS total,
			SUM(CASE WHEN hit THEN 1 ELSE 0 END) AS hits,
			ROUND(100.0 * SUM(CASE WHEN hit THEN 1 ELSE 0 END) / COUNT(*), 2) AS accuracy,
			ROUND(AVG(range_km), 2) AS avg_range
		FROM engagements`
	var args []interface{}
	if convoyID != nil {
		query += ` WHERE convoy_id = ?`
		args = append(args, convoyID.String())
	}
	query += `
		GROUP BY weapon_type
		ORDER BY accuracy DESC`

	rows, err := e.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []WeaponStats
	for rows.Next() {
		var (
			s        WeaponStats
			avgRange sql.NullFloat64
		)
		if err := rows.Scan(&s.WeaponType, &s.TotalEngagements, &s.Hits, &s.AccuracyPct, &avgRange); err != nil {
			return nil, err
		}
		if avgRange.Valid {
			s.AvgRangeKm = &avgRange.Float64
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// TopPerformers ranks drones by accuracy with a five-engagement floor.
func (e *Engine) TopPerformers(limit int) ([]DronePerformance, error) {
	if limit <= 0 {
		limit = 10
	}

	rows, err := e.db.Query(`
		SELECT
			drone_id,
			callsign,
			platform_type,
			COUNT(*) AS total,
			SUM(CASE WHEN hit THEN 1 ELSE 0 END) AS hits,
			ROUND(100.0 * SUM(CASE WHEN hit THEN 1 ELSE 0 END) / COUNT(*), 2) AS accuracy
		FROM engagements
		GROUP BY drone_id, callsign, platform_type
		HAVING COUNT(*) >= 5
		ORDER BY accuracy DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var performers []DronePerformance
	for rows.Next() {
		var (
			p     DronePerformance
			rawID string
		)
		if err := rows.Scan(&rawID, &p.Callsign, &p.PlatformType, &p.TotalEngagements, &p.Hits, &p.AccuracyPct); err != nil {
			return nil, err
		}
		p.DroneID, _ = uuid.Parse(rawID)
		performers = append(performers, p)
	}
	return performers, rows.Err()
}

// HourlyDistribution buckets engagements by hour of day (0-23).
func (e *Engine) HourlyDistribution() ([]HourlyStats, error) {
	rows, err := e.db.Query(`
		SELECT
			CAST(EXTRACT(HOUR FROM timestamp) AS INTEGER) AS hour,
			COUNT(*) AS total,
			SUM(CASE WHEN hit THEN 1 ELSE 0 END) AS hits,
			ROUND(100.0 * SUM(CASE WHEN hit THEN 1 ELSE 0 END) / COUNT(*), 2) AS accuracy
		FROM engagements
		GROUP BY hour
		ORDER BY hour`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []HourlyStats
	for rows.Next() {
		var h HourlyStats
		if err := rows.Scan(&h.Hour, &h.TotalEngagements, &h.Hits, &h.AccuracyPct); err != nil {
			return nil, err
		}
		stats = append(stats, h)
	}
	return stats, rows.Err()
}

// MissionSummary aggregates a convoy's engagements with its top
// performer and most-used weapon. Returns nil when the convoy has no
// engagements.
func (e *Engine) MissionSummary(convoyID uuid.UUID) (*MissionSummary, error) {
	row := e.db.QueryRow(`
		WITH mission_stats AS (
			SELECT
				COUNT(DISTINCT drone_id) AS total_drones,
				COUNT(*) AS total_engagements,
				SUM(CASE WHEN hit THEN 1 ELSE 0 END) AS total_hits
			FROM engagements
			WHERE convoy_id = ?
		),
		top_drone AS (
			SELECT callsign
			FROM engagements
			WHERE convoy_id = ?
			GROUP BY callsign
			ORDER BY CAST(SUM(CASE WHEN hit THEN 1 ELSE 0 END) AS DOUBLE) / COUNT(*) DESC
			LIMIT 1
		),
		top_weapon AS (
			SELECT weapon_type
			FROM engagements
			WHERE convoy_id = ?
			GROUP BY weapon_type
			ORDER BY COUNT(*) DESC
			LIMIT 1
		)
		SELECT
			m.total_drones,
			m.total_engagements,
			m.total_hits,
			ROUND(100.0 * m.total_hits / NULLIF(m.total_engagements, 0), 2) AS accuracy,
			d.callsign,
			w.weapon_type
		FROM mission_stats m
		LEFT JOIN top_drone d ON 1=1
		LEFT JOIN top_weapon w ON 1=1`,
		convoyID.String(), convoyID.String(), convoyID.String())

	var (
		summary  MissionSummary
		hits     sql.NullInt64
		accuracy sql.NullFloat64
		top      sql.NullString
		weapon   sql.NullString
	)
	err := row.Scan(&summary.TotalDrones, &summary.TotalEngagements, &hits, &accuracy, &top, &weapon)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if summary.TotalEngagements == 0 {
		return nil, nil
	}

	summary.ConvoyID = convoyID
	summary.TotalHits = hits.Int64
	summary.AccuracyPct = accuracy.Float64
	if top.Valid {
		summary.TopPerformer = &top.String
	}
	if weapon.Valid {
		summary.MostUsedWeapon = &weapon.String
	}
	return &summary, nil
}

// PlatformComparison compares performance across airframes.
func (e *Engine) PlatformComparison() ([]PlatformComparison, error) {
	rows, err := e.db.Query(`
		SELECT
			platform_type,
			COUNT(DISTINCT drone_id) AS drone_count,
			COUNT(*) AS total_engagements,
			ROUND(100.0 * SUM(CASE WHEN hit THEN 1 ELSE 0 END) / COUNT(*), 2) AS accuracy,
			ROUND(CAST(COUNT(*) AS DOUBLE) / COUNT(DISTINCT drone_id), 2) AS avg_per_drone
		FROM engagements
		GROUP BY platform_type
		ORDER BY accuracy DESC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var comparisons []PlatformComparison
	for rows.Next() {
		var c PlatformComparison
		if err := rows.Scan(&c.PlatformType, &c.DroneCount, &c.TotalEngagements, &c.AccuracyPct, &c.AvgEngagementsPerDrone); err != nil {
			return nil, err
		}
		comparisons = append(comparisons, c)
	}
	return comparisons, rows.Err()
}

// AccuracyByAltitude groups accuracy into altitude bands.
func (e *Engine) AccuracyByAltitude() ([]BandAccuracy, error) {
	return e.bands(`
		SELECT
			CASE
				WHEN altitude_m < 3000 THEN 'Low (<3km)'
				WHEN altitude_m < 5000 THEN 'Medium (3-5km)'
				WHEN altitude_m < 7000 THEN 'High (5-7km)'
				ELSE 'Very High (>7km)'
			END AS band,
			ROUND(100.0 * SUM(CASE WHEN hit THEN 1 ELSE 0 END) / COUNT(*), 2) AS accuracy
		FROM engagements
		WHERE altitude_m IS NOT NULL
		GROUP BY band
		ORDER BY MIN(altitude_m)`)
}

// AccuracyByRange groups accuracy into range bands.
func (e *Engine) AccuracyByRange() ([]BandAccuracy, error) {
	return e.bands(`
		SELECT
			CASE
				WHEN range_km < 2 THEN 'Close (<2km)'
				WHEN range_km < 5 THEN 'Medium (2-5km)'
				WHEN range_km < 10 THEN 'Long (5-10km)'
				ELSE 'Extended (>10km)'
			END AS band,
			ROUND(100.0 * SUM(CASE WHEN hit THEN 1 ELSE 0 END) / COUNT(*), 2) AS accuracy
		FROM engagements
		WHERE range_km IS NOT NULL
		GROUP BY band
		ORDER BY MIN(range_km)`)
}

func (e *Engine) bands(query string) ([]BandAccuracy, error) {
	rows, err := e.db.Query(query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bands []BandAccuracy
	for rows.Next() {
		var b BandAccuracy
		if err := rows.Scan(&b.Band, &b.AccuracyPct); err != nil {
			return nil, err
		}
		bands = append(bands, b)
	}
	return bands, rows.Err()
}

// EngagementCountsByDate counts engagements per day inside the range.
func (e *Engine) EngagementCountsByDate(start, end string) ([]DateCount, error) {
	rows, err := e.db.Query(`
		SELECT
			CAST(CAST(timestamp AS DATE) AS VARCHAR) AS date,
			COUNT(*) AS count
		FROM engagements
		WHERE timestamp >= ? AND timestamp <= ?
		GROUP BY date
		ORDER BY date`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var counts []DateCount
	for rows.Next() {
		var c DateCount
		if err := rows.Scan(&c.Date, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
