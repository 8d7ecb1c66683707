package hotstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewWithClient(client, DefaultTTL()), mr
}

func TestGetJSONMissingKey(t *testing.T) {
	store, _ := newTestStore(t)

	var dest map[string]string
	ok, err := store.GetJSON(context.Background(), "nope", &dest)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSetGetJSONRoundTrip(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	type payload struct {
		Callsign string  `json:"callsign"`
		Fuel     float64 `json:"fuel"`
	}

	require.NoError(t, store.SetJSON(ctx, "k", payload{Callsign: "REAPER-01", Fuel: 74.5}, store.ttl.DroneState))

	var got payload
	ok, err := store.GetJSON(ctx, "k", &got)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "REAPER-01", got.Callsign)

	// TTL was applied.
	assert.Greater(t, mr.TTL("k").Seconds(), 0.0)
}

func TestRankingOrdering(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	convoyID := uuid.New()

	high := uuid.New()
	mid := uuid.New()
	low := uuid.New()

	require.NoError(t, store.UpdateRankScore(ctx, convoyID, mid, 66.67))
	require.NoError(t, store.UpdateRankScore(ctx, convoyID, low, 25.0))
	require.NoError(t, store.UpdateRankScore(ctx, convoyID, high, 100.0))

	scores, err := store.GetRanking(ctx, convoyID, 10)
	require.NoError(t, err)
	require.Len(t, scores, 3)
	assert.Equal(t, high, scores[0].DroneID)
	assert.Equal(t, mid, scores[1].DroneID)
	assert.Equal(t, low, scores[2].DroneID)

	// Limit caps the page.
	scores, err = store.GetRanking(ctx, convoyID, 2)
	require.NoError(t, err)
	assert.Len(t, scores, 2)
}

func TestRankOf(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	convoyID := uuid.New()
	first := uuid.New()
	second := uuid.New()

	require.NoError(t, store.UpdateRankScore(ctx, convoyID, first, 90))
	require.NoError(t, store.UpdateRankScore(ctx, convoyID, second, 50))

	rank, ok, err := store.RankOf(ctx, convoyID, first)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(0), rank)

	rank, ok, err = store.RankOf(ctx, convoyID, second)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int64(1), rank)

	_, ok, err = store.RankOf(ctx, convoyID, uuid.New())
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestIncrementEngagements(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	droneID := uuid.New()

	total, hits, err := store.IncrementEngagements(ctx, droneID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(1), hits)

	total, hits, err = store.IncrementEngagements(ctx, droneID, true)
	require.NoError(t, err)
	assert.Equal(t, int64(2), total)
	assert.Equal(t, int64(2), hits)

	// A miss bumps only the total.
	total, hits, err = store.IncrementEngagements(ctx, droneID, false)
	require.NoError(t, err)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, int64(2), hits)
}

func TestIncrementEngagementsFirstMiss(t *testing.T) {
	store, _ := newTestStore(t)

	total, hits, err := store.IncrementEngagements(context.Background(), uuid.New(), false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, int64(0), hits)
}

func TestRoster(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	convoyID := uuid.New()
	a := uuid.New()
	b := uuid.New()

	require.NoError(t, store.AddToRoster(ctx, convoyID, a))
	require.NoError(t, store.AddToRoster(ctx, convoyID, b))

	ids, err := store.Roster(ctx, convoyID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{a, b}, ids)

	require.NoError(t, store.RemoveFromRoster(ctx, convoyID, a))
	ids, err = store.Roster(ctx, convoyID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []uuid.UUID{b}, ids)
}

func TestInvalidateDrone(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	droneID := uuid.New()

	_, _, err := store.IncrementEngagements(ctx, droneID, true)
	require.NoError(t, err)
	require.NoError(t, store.SetDroneState(ctx, droneID, map[string]interface{}{"status": "AIRBORNE"}))
	require.NoError(t, store.SetLatestTelemetry(ctx, droneID, map[string]float64{"fuel": 50}))

	require.NoError(t, store.InvalidateDrone(ctx, droneID))

	assert.False(t, mr.Exists(KeyDroneState(droneID)))
	assert.False(t, mr.Exists(KeyEngagementStats(droneID)))
	assert.False(t, mr.Exists(KeyLatestTelemetry(droneID)))
}

func TestInvalidateConvoy(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	convoyID := uuid.New()

	require.NoError(t, store.UpdateRankScore(ctx, convoyID, uuid.New(), 75))
	require.NoError(t, store.AddToRoster(ctx, convoyID, uuid.New()))

	require.NoError(t, store.InvalidateConvoy(ctx, convoyID))

	assert.False(t, mr.Exists(KeyRanking(convoyID)))
	assert.False(t, mr.Exists(KeyRoster(convoyID)))
}

func TestTransportErrorSurfacesAsHotStoreError(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	store := NewWithClient(client, DefaultTTL())
	mr.Close()

	_, err := store.GetRanking(context.Background(), uuid.New(), 5)
	require.Error(t, err)
	var hotErr *Error
	assert.ErrorAs(t, err, &hotErr)
}
