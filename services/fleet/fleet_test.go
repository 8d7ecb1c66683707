package fleet

import (
	"context"
	"io"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/broker"
	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/hotstore"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
)

// memCold is an in-memory cold store covering the fleet surface.
type memCold struct {
	mu        sync.Mutex
	convoys   map[uuid.UUID]ops.Convoy
	drones    map[uuid.UUID]map[uuid.UUID]ops.Drone
	waypoints map[uuid.UUID][]ops.Waypoint
	telemetry map[uuid.UUID][]ops.Telemetry
}

func newMemCold() *memCold {
	return &memCold{
		convoys:   make(map[uuid.UUID]ops.Convoy),
		drones:    make(map[uuid.UUID]map[uuid.UUID]ops.Drone),
		waypoints: make(map[uuid.UUID][]ops.Waypoint),
		telemetry: make(map[uuid.UUID][]ops.Telemetry),
	}
}

func (m *memCold) InsertConvoy(_ context.Context, c ops.Convoy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convoys[c.ConvoyID] = c
	return nil
}

func (m *memCold) SelectConvoy(_ context.Context, convoyID uuid.UUID) (ops.Convoy, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.convoys[convoyID]
	return c, ok, nil
}

func (m *memCold) SelectActiveConvoys(context.Context) ([]ops.Convoy, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var active []ops.Convoy
	for _, c := range m.convoys {
		if c.Status == ops.ConvoyActive {
			active = append(active, c)
		}
	}
	return active, nil
}

func (m *memCold) UpdateConvoyStatus(_ context.Context, c ops.Convoy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.convoys[c.ConvoyID] = c
	return nil
}

func (m *memCold) UpdateConvoyRoster(_ context.Context, convoyID uuid.UUID, roster []uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.convoys[convoyID]
	c.Roster = roster
	c.DroneCount = len(roster)
	m.convoys[convoyID] = c
	return nil
}

func (m *memCold) InsertDrone(_ context.Context, d ops.Drone) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.drones[d.ConvoyID] == nil {
		m.drones[d.ConvoyID] = make(map[uuid.UUID]ops.Drone)
	}
	m.drones[d.ConvoyID][d.DroneID] = d
	return nil
}

func (m *memCold) SelectDrone(_ context.Context, convoyID, droneID uuid.UUID) (ops.Drone, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.drones[convoyID][droneID]
	return d, ok, nil
}

func (m *memCold) SelectDrones(_ context.Context, convoyID uuid.UUID, limit int) ([]ops.Drone, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var drones []ops.Drone
	for _, d := range m.drones[convoyID] {
		drones = append(drones, d)
	}
	sort.Slice(drones, func(i, j int) bool {
		return drones[i].DroneID.String() < drones[j].DroneID.String()
	})
	if limit > 0 && len(drones) > limit {
		drones = drones[:limit]
	}
	return drones, nil
}

func (m *memCold) UpdateDroneState(_ context.Context, d ops.Drone) error {
	return m.InsertDrone(context.Background(), d)
}

func (m *memCold) InsertWaypoints(_ context.Context, waypoints []ops.Waypoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, w := range waypoints {
		m.waypoints[w.DroneID] = append(m.waypoints[w.DroneID], w)
	}
	return nil
}

func (m *memCold) SelectWaypoints(_ context.Context, droneID uuid.UUID) ([]ops.Waypoint, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]ops.Waypoint(nil), m.waypoints[droneID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].SequenceNumber < out[j].SequenceNumber })
	return out, nil
}

func (m *memCold) UpdateWaypointStatus(_ context.Context, w ops.Waypoint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.waypoints[w.DroneID] {
		if m.waypoints[w.DroneID][i].SequenceNumber == w.SequenceNumber {
			m.waypoints[w.DroneID][i] = w
		}
	}
	return nil
}

func (m *memCold) InsertTelemetry(_ context.Context, t ops.Telemetry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.telemetry[t.DroneID] = append([]ops.Telemetry{t}, m.telemetry[t.DroneID]...)
	return nil
}

func (m *memCold) SelectTelemetryRange(_ context.Context, droneID uuid.UUID, tr ops.TimeRange, limit int) ([]ops.Telemetry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []ops.Telemetry
	for _, t := range m.telemetry[droneID] {
		if tr.Contains(t.RecordedAt) && len(out) < limit {
			out = append(out, t)
		}
	}
	return out, nil
}

func newTestService(t *testing.T) (*Service, *broker.Broker) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	log := logging.New("test", "error", "json")
	log.SetOutput(io.Discard)

	b := broker.New(nil)
	return New(hotstore.NewWithClient(client, hotstore.DefaultTTL()), newMemCold(), b, log), b
}

func TestCreateAndGetConvoy(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	created, err := svc.CreateConvoy(ctx, ops.Convoy{
		Callsign:    "ALPHA-CONVOY",
		MissionType: ops.MissionStrike,
		AorName:     "Sector 7",
		AorRadiusKm: 150,
	})
	require.NoError(t, err)
	assert.Equal(t, ops.ConvoyPlanning, created.Status)
	assert.NotEqual(t, uuid.Nil, created.ConvoyID)

	got, ok, err := svc.Convoy(ctx, created.ConvoyID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "ALPHA-CONVOY", got.Callsign)
}

func TestCreateConvoyRequiresCallsign(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateConvoy(context.Background(), ops.Convoy{})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.GetServiceError(err).Code)
}

func TestConvoyStatusLifecycle(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateConvoy(ctx, ops.Convoy{Callsign: "BRAVO"})
	require.NoError(t, err)

	c, err = svc.UpdateConvoyStatus(ctx, c.ConvoyID, ops.ConvoyActive)
	require.NoError(t, err)
	assert.Equal(t, ops.ConvoyActive, c.Status)
	assert.NotNil(t, c.MissionStart)

	// ACTIVE -> COMPLETE is illegal; must pass through RTB.
	_, err = svc.UpdateConvoyStatus(ctx, c.ConvoyID, ops.ConvoyComplete)
	require.Error(t, err)

	c, err = svc.UpdateConvoyStatus(ctx, c.ConvoyID, ops.ConvoyRTB)
	require.NoError(t, err)
	c, err = svc.UpdateConvoyStatus(ctx, c.ConvoyID, ops.ConvoyComplete)
	require.NoError(t, err)
	assert.NotNil(t, c.MissionEnd)

	// COMPLETE is terminal.
	_, err = svc.UpdateConvoyStatus(ctx, c.ConvoyID, ops.ConvoyActive)
	require.Error(t, err)
}

func TestActiveConvoys(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	a, err := svc.CreateConvoy(ctx, ops.Convoy{Callsign: "A"})
	require.NoError(t, err)
	_, err = svc.CreateConvoy(ctx, ops.Convoy{Callsign: "B"})
	require.NoError(t, err)

	_, err = svc.UpdateConvoyStatus(ctx, a.ConvoyID, ops.ConvoyActive)
	require.NoError(t, err)

	active, err := svc.ActiveConvoys(ctx)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "A", active[0].Callsign)
}

func TestConvoyAbortRaisesWarning(t *testing.T) {
	svc, b := newTestService(t)
	ctx := context.Background()
	sub := b.Alerts.Subscribe()

	c, err := svc.CreateConvoy(ctx, ops.Convoy{Callsign: "CHARLIE"})
	require.NoError(t, err)
	_, err = svc.UpdateConvoyStatus(ctx, c.ConvoyID, ops.ConvoyAbort)
	require.NoError(t, err)

	ev := <-sub.C()
	assert.Equal(t, ops.SeverityWarning, ev.Severity)
	assert.Equal(t, "CONVOY_STATUS", ev.Category)
}

func TestCreateDroneJoinsRoster(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	c, err := svc.CreateConvoy(ctx, ops.Convoy{Callsign: "DELTA"})
	require.NoError(t, err)

	d, err := svc.CreateDrone(ctx, ops.Drone{
		ConvoyID:     c.ConvoyID,
		Callsign:     "REAPER-01",
		PlatformType: ops.PlatformMQ9Reaper,
		Status:       ops.DronePreflight,
	})
	require.NoError(t, err)

	got, ok, err := svc.Convoy(ctx, c.ConvoyID)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Contains(t, got.Roster, d.DroneID)
	assert.Equal(t, 1, got.DroneCount)
}

func TestUpdateDroneStatePublishesStatusEvent(t *testing.T) {
	svc, b := newTestService(t)
	ctx := context.Background()
	sub := b.DroneStatus.Subscribe()

	c, err := svc.CreateConvoy(ctx, ops.Convoy{Callsign: "ECHO"})
	require.NoError(t, err)
	d, err := svc.CreateDrone(ctx, ops.Drone{
		ConvoyID: c.ConvoyID,
		Callsign: "VIPER-02",
		Status:   ops.DronePreflight,
	})
	require.NoError(t, err)

	airborne := ops.DroneAirborne
	_, err = svc.UpdateDroneState(ctx, UpdateDroneStateInput{
		ConvoyID: c.ConvoyID,
		DroneID:  d.DroneID,
		Status:   &airborne,
	})
	require.NoError(t, err)

	ev := <-sub.C()
	assert.Equal(t, ops.DronePreflight, ev.OldStatus)
	assert.Equal(t, ops.DroneAirborne, ev.NewStatus)
}

func TestFuelCriticalAlert(t *testing.T) {
	svc, b := newTestService(t)
	ctx := context.Background()
	sub := b.Alerts.Subscribe()

	c, err := svc.CreateConvoy(ctx, ops.Convoy{Callsign: "FOXTROT"})
	require.NoError(t, err)
	d, err := svc.CreateDrone(ctx, ops.Drone{
		ConvoyID:         c.ConvoyID,
		Callsign:         "HAWK-03",
		FuelRemainingPct: 60,
	})
	require.NoError(t, err)

	fuel := 8.0
	_, err = svc.UpdateDroneState(ctx, UpdateDroneStateInput{
		ConvoyID: c.ConvoyID,
		DroneID:  d.DroneID,
		FuelPct:  &fuel,
	})
	require.NoError(t, err)

	ev := <-sub.C()
	assert.Equal(t, "FUEL_CRITICAL", ev.Category)
	assert.Equal(t, ops.SeverityCritical, ev.Severity)
	require.NotNil(t, ev.DroneID)
	assert.Equal(t, d.DroneID, *ev.DroneID)
}

func TestCreateWaypointsInvariants(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	droneID := uuid.New()

	_, err := svc.CreateWaypoints(ctx, droneID, nil)
	require.Error(t, err)

	tooMany := make([]ops.Waypoint, 26)
	_, err = svc.CreateWaypoints(ctx, droneID, tooMany)
	require.Error(t, err)

	twoActive := []ops.Waypoint{
		{SequenceNumber: 1, Status: ops.WaypointActive},
		{SequenceNumber: 2, Status: ops.WaypointActive},
	}
	_, err = svc.CreateWaypoints(ctx, droneID, twoActive)
	require.Error(t, err)
}

func TestActivateWaypointDemotesPrevious(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	droneID := uuid.New()

	route := []ops.Waypoint{
		{SequenceNumber: 1, Status: ops.WaypointActive, WaypointType: ops.WaypointNav},
		{SequenceNumber: 2, WaypointType: ops.WaypointNav},
		{SequenceNumber: 3, WaypointType: ops.WaypointStrike},
	}
	_, err := svc.CreateWaypoints(ctx, droneID, route)
	require.NoError(t, err)

	_, err = svc.ActivateWaypoint(ctx, droneID, 2)
	require.NoError(t, err)

	waypoints, err := svc.Waypoints(ctx, droneID)
	require.NoError(t, err)

	active := 0
	for _, w := range waypoints {
		if w.Status == ops.WaypointActive {
			active++
			assert.Equal(t, 2, w.SequenceNumber)
		}
		if w.SequenceNumber == 1 {
			assert.Equal(t, ops.WaypointComplete, w.Status)
		}
	}
	assert.Equal(t, 1, active)
}

func TestRecordTelemetryAndLatest(t *testing.T) {
	svc, b := newTestService(t)
	ctx := context.Background()
	droneID := uuid.New()
	sub := b.Telemetry.Subscribe()

	snap := ops.TelemetrySnapshot{
		DroneID:          droneID,
		Position:         ops.Coordinates{Latitude: 34.5, Longitude: 69.2, AltitudeM: 5000},
		FuelRemainingPct: 70,
		CurrentWaypoint:  12,
	}
	_, err := svc.RecordTelemetry(ctx, snap)
	require.NoError(t, err)

	// Subscriber received the snapshot.
	select {
	case ev := <-sub.C():
		assert.Equal(t, droneID, ev.DroneID)
	case <-time.After(time.Second):
		t.Fatal("no telemetry event delivered")
	}

	// Latest comes back from the hot cache.
	got, ok, err := svc.LatestTelemetry(ctx, droneID)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, 12, got.CurrentWaypoint)
}

func TestTelemetryHistoryPagination(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()
	droneID := uuid.New()
	base := time.Now().UTC().Add(-time.Hour)

	for i := 0; i < 5; i++ {
		_, err := svc.RecordTelemetry(ctx, ops.TelemetrySnapshot{
			DroneID:    droneID,
			RecordedAt: base.Add(time.Duration(i) * time.Minute),
		})
		require.NoError(t, err)
	}

	history, err := svc.TelemetryHistory(ctx, droneID,
		ops.TimeRange{Start: base.Add(-time.Minute), End: time.Now().UTC()},
		ops.Pagination{Limit: 3})
	require.NoError(t, err)
	assert.Len(t, history, 3)
}
