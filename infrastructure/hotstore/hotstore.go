// Package hotstore is the typed facade over the Redis hot tier. It holds
// only ephemeral, TTL-bounded projections of cold-tier state: per-convoy
// ranking sorted sets, drone state hashes, engagement counters, rosters,
// and latest-telemetry snapshots.
//
// Missing keys are not errors; readers get the zero value and ok=false.
// Transport failures surface as *Error and are never retried here —
// retry and fallback policy lives in the strategy layer.
package hotstore

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
)

// TTLConfig holds the per-namespace expiry windows.
type TTLConfig struct {
	Telemetry       time.Duration
	DroneState      time.Duration
	Ranking         time.Duration
	ConvoySummary   time.Duration
	EngagementStats time.Duration
	ConvoyRoster    time.Duration
}

// DefaultTTL returns the standard expiry windows.
func DefaultTTL() TTLConfig {
	return TTLConfig{
		Telemetry:       10 * time.Second,
		DroneState:      60 * time.Second,
		Ranking:         300 * time.Second,
		ConvoySummary:   120 * time.Second,
		EngagementStats: 300 * time.Second,
		ConvoyRoster:    3600 * time.Second,
	}
}

// Config configures the hot store connection.
type Config struct {
	URL      string
	PoolSize int
	TTL      TTLConfig
}

// DefaultConfig returns the standard hot store configuration.
func DefaultConfig() Config {
	return Config{
		URL:      "redis://127.0.0.1:6379",
		PoolSize: 10,
		TTL:      DefaultTTL(),
	}
}

// Error is a hot-tier transport or serialization failure.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("hot store %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Op: op, Err: err}
}

// Store is the Redis-backed hot tier adapter. The underlying client
// multiplexes connections and is safe for concurrent use.
type Store struct {
	client *redis.Client
	ttl    TTLConfig
}

// New connects to the hot tier and verifies the connection.
func New(ctx context.Context, cfg Config) (*Store, error) {
	opts, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, wrap("parse url", err)
	}
	if cfg.PoolSize > 0 {
		opts.PoolSize = cfg.PoolSize
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, wrap("ping", err)
	}

	return &Store{client: client, ttl: cfg.TTL}, nil
}

// NewWithClient wraps an existing client. Used by tests.
func NewWithClient(client *redis.Client, ttl TTLConfig) *Store {
	return &Store{client: client, ttl: ttl}
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// TTL returns the configured expiry windows.
func (s *Store) TTL() TTLConfig {
	return s.ttl
}

// Key schema. All hot keys are namespaced per entity.

func KeyRanking(convoyID uuid.UUID) string {
	return "convoy:leaderboard:" + convoyID.String()
}

func KeyRoster(convoyID uuid.UUID) string {
	return "convoy:roster:" + convoyID.String()
}

func KeyConvoySummary(convoyID uuid.UUID) string {
	return "convoy:summary:" + convoyID.String()
}

func KeyDroneState(droneID uuid.UUID) string {
	return "drone:state:" + droneID.String()
}

func KeyEngagementStats(droneID uuid.UUID) string {
	return "stats:engagements:" + droneID.String()
}

func KeyLatestTelemetry(droneID uuid.UUID) string {
	return "telemetry:latest:" + droneID.String()
}

func keyWaypointProgress(droneID uuid.UUID) string {
	return "waypoints:progress:" + droneID.String()
}

func keyMeshTopology(convoyID uuid.UUID) string {
	return "mesh:topology:" + convoyID.String()
}

// GetJSON reads a JSON scalar into dest. Returns false when the key is
// missing or expired.
func (s *Store) GetJSON(ctx context.Context, key string, dest interface{}) (bool, error) {
	raw, err := s.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, wrap("get", err)
	}
	if err := json.Unmarshal([]byte(raw), dest); err != nil {
		return false, wrap("decode", err)
	}
	return true, nil
}

// SetJSON writes a JSON scalar with the given TTL.
func (s *Store) SetJSON(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return wrap("encode", err)
	}
	return wrap("set", s.client.Set(ctx, key, raw, ttl).Err())
}

// Delete removes a single key.
func (s *Store) Delete(ctx context.Context, key string) error {
	return wrap("del", s.client.Del(ctx, key).Err())
}

// DeleteMany removes a set of keys.
func (s *Store) DeleteMany(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	return wrap("del", s.client.Del(ctx, keys...).Err())
}

// RankScore is one member of a convoy's ranking sorted set.
type RankScore struct {
	DroneID uuid.UUID
	Score   float64
}

// GetRanking reads the top N of a convoy's ranking sorted set,
// highest accuracy first.
func (s *Store) GetRanking(ctx context.Context, convoyID uuid.UUID, limit int) ([]RankScore, error) {
	if limit <= 0 {
		limit = 10
	}
	members, err := s.client.ZRevRangeWithScores(ctx, KeyRanking(convoyID), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, wrap("zrevrange", err)
	}

	scores := make([]RankScore, 0, len(members))
	for _, m := range members {
		raw, ok := m.Member.(string)
		if !ok {
			continue
		}
		id, parseErr := uuid.Parse(raw)
		if parseErr != nil {
			continue
		}
		scores = append(scores, RankScore{DroneID: id, Score: m.Score})
	}
	return scores, nil
}

// UpdateRankScore sets or updates a drone's accuracy score and renews
// the set's TTL.
func (s *Store) UpdateRankScore(ctx context.Context, convoyID, droneID uuid.UUID, accuracyPct float64) error {
	key := KeyRanking(convoyID)
	if err := s.client.ZAdd(ctx, key, &redis.Z{Score: accuracyPct, Member: droneID.String()}).Err(); err != nil {
		return wrap("zadd", err)
	}
	return wrap("expire", s.client.Expire(ctx, key, s.ttl.Ranking).Err())
}

// RankOf returns the 0-indexed position from the top of the ranking,
// or ok=false when the drone is not ranked.
func (s *Store) RankOf(ctx context.Context, convoyID, droneID uuid.UUID) (int64, bool, error) {
	rank, err := s.client.ZRevRank(ctx, KeyRanking(convoyID), droneID.String()).Result()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, wrap("zrevrank", err)
	}
	return rank, true, nil
}

// RemoveRank drops a drone from the ranking sorted set.
func (s *Store) RemoveRank(ctx context.Context, convoyID, droneID uuid.UUID) error {
	return wrap("zrem", s.client.ZRem(ctx, KeyRanking(convoyID), droneID.String()).Err())
}

// IncrementEngagements atomically bumps the engagement counters.
// Total always increments by one; hits increments only on a hit.
// Returns the new totals and renews the key's TTL.
func (s *Store) IncrementEngagements(ctx context.Context, droneID uuid.UUID, hit bool) (int64, int64, error) {
	key := KeyEngagementStats(droneID)

	total, err := s.client.HIncrBy(ctx, key, "total_engagements", 1).Result()
	if err != nil {
		return 0, 0, wrap("hincrby", err)
	}

	var hits int64
	if hit {
		hits, err = s.client.HIncrBy(ctx, key, "successful_hits", 1).Result()
		if err != nil {
			return 0, 0, wrap("hincrby", err)
		}
	} else {
		raw, getErr := s.client.HGet(ctx, key, "successful_hits").Result()
		if getErr != nil && getErr != redis.Nil {
			return 0, 0, wrap("hget", getErr)
		}
		if getErr != redis.Nil {
			hits, _ = strconv.ParseInt(raw, 10, 64)
		}
	}

	if err := s.client.Expire(ctx, key, s.ttl.EngagementStats).Err(); err != nil {
		return 0, 0, wrap("expire", err)
	}
	return total, hits, nil
}

// SetDroneState writes the drone state hash and renews its TTL.
func (s *Store) SetDroneState(ctx context.Context, droneID uuid.UUID, fields map[string]interface{}) error {
	key := KeyDroneState(droneID)
	if err := s.client.HSet(ctx, key, fields).Err(); err != nil {
		return wrap("hset", err)
	}
	return wrap("expire", s.client.Expire(ctx, key, s.ttl.DroneState).Err())
}

// GetDroneState reads the drone state hash. Returns false when absent.
func (s *Store) GetDroneState(ctx context.Context, droneID uuid.UUID) (map[string]string, bool, error) {
	state, err := s.client.HGetAll(ctx, KeyDroneState(droneID)).Result()
	if err != nil {
		return nil, false, wrap("hgetall", err)
	}
	if len(state) == 0 {
		return nil, false, nil
	}
	return state, true, nil
}

// AddToRoster adds a drone to the convoy roster set and renews its TTL.
func (s *Store) AddToRoster(ctx context.Context, convoyID, droneID uuid.UUID) error {
	key := KeyRoster(convoyID)
	if err := s.client.SAdd(ctx, key, droneID.String()).Err(); err != nil {
		return wrap("sadd", err)
	}
	return wrap("expire", s.client.Expire(ctx, key, s.ttl.ConvoyRoster).Err())
}

// Roster reads the convoy roster set.
func (s *Store) Roster(ctx context.Context, convoyID uuid.UUID) ([]uuid.UUID, error) {
	members, err := s.client.SMembers(ctx, KeyRoster(convoyID)).Result()
	if err != nil {
		return nil, wrap("smembers", err)
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if id, parseErr := uuid.Parse(m); parseErr == nil {
			ids = append(ids, id)
		}
	}
	return ids, nil
}

// RemoveFromRoster drops a drone from the convoy roster set.
func (s *Store) RemoveFromRoster(ctx context.Context, convoyID, droneID uuid.UUID) error {
	return wrap("srem", s.client.SRem(ctx, KeyRoster(convoyID), droneID.String()).Err())
}

// SetLatestTelemetry caches the drone's most recent telemetry sample.
func (s *Store) SetLatestTelemetry(ctx context.Context, droneID uuid.UUID, snapshot interface{}) error {
	return s.SetJSON(ctx, KeyLatestTelemetry(droneID), snapshot, s.ttl.Telemetry)
}

// LatestTelemetry reads the drone's cached telemetry sample.
func (s *Store) LatestTelemetry(ctx context.Context, droneID uuid.UUID, dest interface{}) (bool, error) {
	return s.GetJSON(ctx, KeyLatestTelemetry(droneID), dest)
}

// InvalidateRanking deletes a convoy's ranking sorted set so the next
// read repopulates it from the cold tier.
func (s *Store) InvalidateRanking(ctx context.Context, convoyID uuid.UUID) error {
	return s.Delete(ctx, KeyRanking(convoyID))
}

// InvalidateDrone deletes the four per-drone keys.
func (s *Store) InvalidateDrone(ctx context.Context, droneID uuid.UUID) error {
	return s.DeleteMany(ctx,
		KeyDroneState(droneID),
		KeyLatestTelemetry(droneID),
		KeyEngagementStats(droneID),
		keyWaypointProgress(droneID),
	)
}

// InvalidateConvoy deletes the four per-convoy keys.
func (s *Store) InvalidateConvoy(ctx context.Context, convoyID uuid.UUID) error {
	return s.DeleteMany(ctx,
		KeyRanking(convoyID),
		KeyRoster(convoyID),
		KeyConvoySummary(convoyID),
		keyMeshTopology(convoyID),
	)
}
