package engagement

import (
	"context"
	"io"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/broker"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
)

// fakeRanking applies the streak and accuracy rules in memory.
type fakeRanking struct {
	mu      sync.Mutex
	entries map[uuid.UUID]ops.RankingEntry
}

func newFakeRanking() *fakeRanking {
	return &fakeRanking{entries: make(map[uuid.UUID]ops.RankingEntry)}
}

func (f *fakeRanking) UpdateEntry(_ context.Context, convoyID, droneID uuid.UUID, callsign string, platform ops.PlatformType, hit bool) (ops.RankingEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e := f.entries[droneID]
	e.ConvoyID = convoyID
	e.DroneID = droneID
	e.Callsign = callsign
	e.PlatformType = platform
	e.TotalEngagements++
	if hit {
		e.SuccessfulHits++
		e.CurrentStreak++
	} else {
		e.CurrentStreak = 0
	}
	if e.CurrentStreak > e.BestStreak {
		e.BestStreak = e.CurrentStreak
	}
	e.AccuracyPct = ops.AccuracyPct(e.SuccessfulHits, e.TotalEngagements)
	e.Rank = 1
	f.entries[droneID] = e
	return e, nil
}

// fakeEngagementStore keeps engagement rows in memory.
type fakeEngagementStore struct {
	mu   sync.Mutex
	rows []ops.Engagement
}

func (f *fakeEngagementStore) InsertEngagement(_ context.Context, e ops.Engagement) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rows = append(f.rows, e)
	return nil
}

func (f *fakeEngagementStore) SelectEngagements(_ context.Context, convoyID uuid.UUID, limit int) ([]ops.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ops.Engagement
	for _, e := range f.rows {
		if e.ConvoyID == convoyID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEngagementStore) SelectEngagementsByDrone(_ context.Context, droneID uuid.UUID, limit int) ([]ops.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []ops.Engagement
	for _, e := range f.rows {
		if e.DroneID == droneID && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (f *fakeEngagementStore) UpdateBda(_ context.Context, engagementID uuid.UUID, assessment ops.DamageAssessment, notes string) (ops.Engagement, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i := range f.rows {
		if f.rows[i].EngagementID == engagementID {
			f.rows[i].DamageAssessment = assessment
			f.rows[i].BdaNotes = notes
			return f.rows[i], nil
		}
	}
	return ops.Engagement{}, context.Canceled
}

func newTestRecorder(t *testing.T) (*Recorder, *broker.Broker, *fakeEngagementStore) {
	t.Helper()
	log := logging.New("test", "error", "json")
	log.SetOutput(io.Discard)
	b := broker.New(nil)
	store := &fakeEngagementStore{}
	return New(newFakeRanking(), store, b, nil, nil, log), b, store
}

func TestRecordPublishesBothEvents(t *testing.T) {
	rec, b, _ := newTestRecorder(t)
	engagementSub := b.Engagements.Subscribe()
	rankingSub := b.Rankings.Subscribe()

	convoyID := uuid.New()
	droneID := uuid.New()

	result, err := rec.Record(context.Background(), ops.RecordEngagementInput{
		ConvoyID: convoyID,
		DroneID:  droneID,
		Callsign: "REAPER-01",
		Hit:      true,
	})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.Equal(t, 100.0, result.NewAccuracyPct)
	assert.Equal(t, 0, result.RankChange)

	select {
	case ev := <-engagementSub.C():
		assert.Equal(t, convoyID, ev.ConvoyID)
		assert.True(t, ev.Hit)
		assert.Equal(t, ops.WeaponAGM114Hellfire, ev.WeaponType, "weapon defaults to Hellfire")
	case <-time.After(time.Second):
		t.Fatal("no engagement event delivered")
	}

	select {
	case ev := <-rankingSub.C():
		assert.Equal(t, convoyID, ev.ConvoyID)
		assert.Equal(t, ops.RankScoreUpdate, ev.ChangeType)
		assert.Nil(t, ev.OldRank)
	case <-time.After(time.Second):
		t.Fatal("no ranking event delivered")
	}
}

func TestRecordDeliversExactlyOneEventPerSubscriber(t *testing.T) {
	rec, b, _ := newTestRecorder(t)
	sub := b.Engagements.Subscribe()

	_, err := rec.Record(context.Background(), ops.RecordEngagementInput{
		ConvoyID: uuid.New(),
		DroneID:  uuid.New(),
		Hit:      false,
	})
	require.NoError(t, err)

	<-sub.C()
	select {
	case <-sub.C():
		t.Fatal("more than one engagement event delivered")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestCreateComputesRangeAndAssessment(t *testing.T) {
	rec, _, store := newTestRecorder(t)

	in := ops.CreateEngagementInput{
		ConvoyID:        uuid.New(),
		DroneID:         uuid.New(),
		Callsign:        "REAPER-01",
		WeaponType:      ops.WeaponGBU12Paveway,
		Hit:             true,
		ShooterPosition: ops.Coordinates{Latitude: 0, Longitude: 0},
		Target: ops.TargetInfo{
			TargetType:  ops.TargetVehicle,
			Coordinates: ops.Coordinates{Latitude: 0, Longitude: 1},
		},
	}

	e, err := rec.Create(context.Background(), in)
	require.NoError(t, err)

	assert.InDelta(t, 111.19, e.RangeKm, 0.01)
	assert.Equal(t, ops.BDAPendingBDA, e.DamageAssessment)
	assert.Equal(t, ops.WeaponGBU12Paveway, e.WeaponType)

	// The record landed in the store.
	rows, err := store.SelectEngagements(context.Background(), in.ConvoyID, 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, e.EngagementID, rows[0].EngagementID)
}

func TestCreateMissIsMissed(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	e, err := rec.Create(context.Background(), ops.CreateEngagementInput{
		ConvoyID:        uuid.New(),
		DroneID:         uuid.New(),
		WeaponType:      ops.WeaponAGM114Hellfire,
		Hit:             false,
		ShooterPosition: ops.Coordinates{Latitude: 31.0, Longitude: 65.0},
		Target: ops.TargetInfo{
			Coordinates: ops.Coordinates{Latitude: 31.0, Longitude: 65.0},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, ops.BDAMissed, e.DamageAssessment)
	assert.True(t, math.Abs(e.RangeKm) < 1e-9)
}

func TestUpdateBda(t *testing.T) {
	rec, _, _ := newTestRecorder(t)

	e, err := rec.Create(context.Background(), ops.CreateEngagementInput{
		ConvoyID:        uuid.New(),
		DroneID:         uuid.New(),
		Hit:             true,
		ShooterPosition: ops.Coordinates{},
		Target:          ops.TargetInfo{Coordinates: ops.Coordinates{Latitude: 1}},
	})
	require.NoError(t, err)

	updated, err := rec.UpdateBda(context.Background(), e.EngagementID, ops.BDADestroyed, "confirmed by ISR")
	require.NoError(t, err)
	assert.Equal(t, ops.BDADestroyed, updated.DamageAssessment)
	assert.Equal(t, "confirmed by ISR", updated.BdaNotes)
}

func TestListFiltersAndPaginates(t *testing.T) {
	rec, _, _ := newTestRecorder(t)
	ctx := context.Background()
	convoyID := uuid.New()

	for i := 0; i < 6; i++ {
		_, err := rec.Create(ctx, ops.CreateEngagementInput{
			ConvoyID:        convoyID,
			DroneID:         uuid.New(),
			WeaponType:      ops.WeaponM230Chain,
			Hit:             i%2 == 0,
			ShooterPosition: ops.Coordinates{},
			Target:          ops.TargetInfo{Coordinates: ops.Coordinates{Latitude: 1}},
		})
		require.NoError(t, err)
	}

	hit := true
	rows, err := rec.List(ctx, convoyID, &ops.EngagementFilter{Hit: &hit}, ops.Pagination{Limit: 10})
	require.NoError(t, err)
	assert.Len(t, rows, 3)

	rows, err = rec.List(ctx, convoyID, nil, ops.Pagination{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
