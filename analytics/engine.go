// Package analytics is the in-process OLAP engine for historical
// engagement analysis, backed by an embedded DuckDB database. It is
// independent of the serving path: engagement records arrive through
// its own ingestion entry point and queries run against its own
// columnar store.
package analytics

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
)

// Engine wraps the embedded DuckDB connection. database/sql serializes
// access; analytical calls block their calling goroutine only.
type Engine struct {
	db *sql.DB
}

// NewInMemory opens a memory-only engine.
func NewInMemory() (*Engine, error) {
	return open("")
}

// NewPersistent opens an engine backed by a database file.
func NewPersistent(path string) (*Engine, error) {
	return open(path)
}

func open(path string) (*Engine, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}
	e := &Engine{db: db}
	if err := e.initSchema(); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Close releases the database.
func (e *Engine) Close() error {
	return e.db.Close()
}

func (e *Engine) initSchema() error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS engagements (
			engagement_id VARCHAR PRIMARY KEY,
			convoy_id VARCHAR NOT NULL,
			drone_id VARCHAR NOT NULL,
			callsign VARCHAR NOT NULL,
			platform_type VARCHAR NOT NULL,
			hit BOOLEAN NOT NULL,
			weapon_type VARCHAR NOT NULL,
			target_type VARCHAR,
			range_km DOUBLE,
			altitude_m DOUBLE,
			timestamp TIMESTAMP NOT NULL
		)`,
		`CREATE TABLE IF NOT EXISTS drone_performance (
			drone_id VARCHAR PRIMARY KEY,
			callsign VARCHAR NOT NULL,
			platform_type VARCHAR NOT NULL,
			total_engagements INTEGER DEFAULT 0,
			total_hits INTEGER DEFAULT 0,
			accuracy_pct DOUBLE DEFAULT 0.0,
			best_streak INTEGER DEFAULT 0,
			first_engagement TIMESTAMP,
			last_engagement TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS mission_summaries (
			convoy_id VARCHAR PRIMARY KEY,
			callsign VARCHAR NOT NULL,
			mission_type VARCHAR NOT NULL,
			start_time TIMESTAMP NOT NULL,
			end_time TIMESTAMP,
			drone_count INTEGER NOT NULL,
			total_engagements INTEGER DEFAULT 0,
			total_hits INTEGER DEFAULT 0,
			avg_accuracy_pct DOUBLE DEFAULT 0.0
		)`,
		`CREATE INDEX IF NOT EXISTS idx_engagements_convoy ON engagements(convoy_id)`,
		`CREATE INDEX IF NOT EXISTS idx_engagements_drone ON engagements(drone_id)`,
		`CREATE INDEX IF NOT EXISTS idx_engagements_timestamp ON engagements(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_engagements_weapon ON engagements(weapon_type)`,
	}
	for _, stmt := range ddl {
		if _, err := e.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// EngagementRecord is the denormalized ingestion row.
type EngagementRecord struct {
	EngagementID uuid.UUID  `json:"engagement_id"`
	ConvoyID     uuid.UUID  `json:"convoy_id"`
	DroneID      uuid.UUID  `json:"drone_id"`
	Callsign     string     `json:"callsign"`
	PlatformType string     `json:"platform_type"`
	Hit          bool       `json:"hit"`
	WeaponType   string     `json:"weapon_type"`
	TargetType   *string    `json:"target_type,omitempty"`
	RangeKm      *float64   `json:"range_km,omitempty"`
	AltitudeM    *float64   `json:"altitude_m,omitempty"`
	Timestamp    time.Time  `json:"timestamp"`
}

// Ingest inserts one record. Ingestion is idempotent on engagement ID:
// a conflicting insert is skipped.
func (e *Engine) Ingest(rec EngagementRecord) error {
	_, err := e.db.Exec(`
		INSERT INTO engagements (
			engagement_id, convoy_id, drone_id, callsign, platform_type,
			hit, weapon_type, target_type, range_km, altitude_m, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (engagement_id) DO NOTHING`,
		rec.EngagementID.String(), rec.ConvoyID.String(), rec.DroneID.String(),
		rec.Callsign, rec.PlatformType, rec.Hit, rec.WeaponType,
		rec.TargetType, rec.RangeKm, rec.AltitudeM, rec.Timestamp,
	)
	return err
}

// IngestBatch inserts records one by one, stopping at the first failure;
// the count is the number of records inserted before it.
func (e *Engine) IngestBatch(records []EngagementRecord) (int, error) {
	for i, rec := range records {
		if err := e.Ingest(rec); err != nil {
			return i, err
		}
	}
	return len(records), nil
}

// RecordFrom builds an ingestion row from a domain engagement.
func RecordFrom(eng ops.Engagement, platform ops.PlatformType) EngagementRecord {
	if platform == "" {
		platform = ops.PlatformMQ9Reaper
	}
	rangeKm := eng.RangeKm
	altitudeM := eng.ShooterPosition.AltitudeM

	rec := EngagementRecord{
		EngagementID: eng.EngagementID,
		ConvoyID:     eng.ConvoyID,
		DroneID:      eng.DroneID,
		Callsign:     eng.DroneCallsign,
		PlatformType: string(platform),
		Hit:          eng.Hit,
		WeaponType:   string(eng.WeaponType),
		Timestamp:    eng.EngagedAt,
		RangeKm:      &rangeKm,
		AltitudeM:    &altitudeM,
	}
	if targetType := string(eng.Target.TargetType); targetType != "" {
		rec.TargetType = &targetType
	}
	return rec
}

// ExportParquet writes the fact table to a Parquet file.
func (e *Engine) ExportParquet(path string) error {
	_, err := e.db.Exec("COPY engagements TO '" + path + "' (FORMAT PARQUET)")
	return err
}

// ImportParquet loads engagements from a Parquet file.
func (e *Engine) ImportParquet(path string) (int64, error) {
	res, err := e.db.Exec("INSERT INTO engagements SELECT * FROM read_parquet('" + path + "')")
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
