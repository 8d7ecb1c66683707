// The simulator drives the tracking API with randomized engagement and
// telemetry traffic so the dashboard has something live to show.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/domain/ops"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
)

var weapons = []ops.WeaponType{
	ops.WeaponAGM114Hellfire,
	ops.WeaponGBU12Paveway,
	ops.WeaponGBU38JDAM,
	ops.WeaponAIM9XSidewind,
	ops.WeaponM230Chain,
}

var targets = []ops.TargetType{
	ops.TargetVehicle,
	ops.TargetStructure,
	ops.TargetPersonnel,
	ops.TargetAirDefense,
	ops.TargetCommunication,
}

type simDrone struct {
	id       uuid.UUID
	callsign string
	hitRate  float64
	lat, lon float64
	fuel     float64
}

func main() {
	_ = godotenv.Load()

	endpoint := flag.String("endpoint", "http://127.0.0.1:8080/graphql", "tracking API endpoint")
	droneCount := flag.Int("drones", 8, "drones in the simulated convoy")
	interval := flag.Duration("interval", 2*time.Second, "time between engagements")
	flag.Parse()

	log := logging.NewFromEnv("simulator")
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	convoyID := uuid.New()
	drones := make([]*simDrone, *droneCount)
	for i := range drones {
		drones[i] = &simDrone{
			id:       uuid.New(),
			callsign: fmt.Sprintf("REAPER-%02d", i+1),
			hitRate:  0.55 + rng.Float64()*0.4,
			lat:      31.0 + rng.Float64()*4,
			lon:      65.0 + rng.Float64()*5,
			fuel:     100,
		}
	}

	log.WithFields(map[string]interface{}{
		"endpoint": *endpoint,
		"convoy":   convoyID.String(),
		"drones":   *droneCount,
	}).Info("Simulator starting")

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	ticker := time.NewTicker(*interval)
	defer ticker.Stop()

	client := &http.Client{Timeout: 10 * time.Second}

	for {
		select {
		case <-stop:
			log.Info("Simulator stopping")
			return
		case <-ticker.C:
			drone := drones[rng.Intn(len(drones))]
			fire(client, log, *endpoint, convoyID, drone, rng)
			report(client, log, *endpoint, convoyID, drone, rng)
		}
	}
}

// fire posts a recordEngagement mutation for one randomized shot.
func fire(client *http.Client, log *logging.Logger, endpoint string, convoyID uuid.UUID, drone *simDrone, rng *rand.Rand) {
	hit := rng.Float64() < drone.hitRate
	weapon := weapons[rng.Intn(len(weapons))]
	target := targets[rng.Intn(len(targets))]
	rangeKm := 0.5 + rng.Float64()*14

	execute(client, log, endpoint, "mutation { recordEngagement(input: $input) { success new_rank } }",
		map[string]interface{}{
			"input": map[string]interface{}{
				"convoyId":   convoyID.String(),
				"assetId":    drone.id.String(),
				"callsign":   drone.callsign,
				"platform":   string(ops.PlatformMQ9Reaper),
				"hit":        hit,
				"weapon":     string(weapon),
				"targetType": string(target),
				"rangeKm":    rangeKm,
			},
		})
}

// report posts a recordTelemetry mutation for the drone's drifted state.
func report(client *http.Client, log *logging.Logger, endpoint string, convoyID uuid.UUID, drone *simDrone, rng *rand.Rand) {
	drone.lat += (rng.Float64() - 0.5) * 0.05
	drone.lon += (rng.Float64() - 0.5) * 0.05
	drone.fuel -= rng.Float64() * 0.8
	if drone.fuel < 5 {
		drone.fuel = 100
	}

	execute(client, log, endpoint, "mutation { recordTelemetry(input: $input) { drone_id } }",
		map[string]interface{}{
			"input": map[string]interface{}{
				"convoy_id": convoyID.String(),
				"drone_id":  drone.id.String(),
				"position": map[string]interface{}{
					"latitude":    drone.lat,
					"longitude":   drone.lon,
					"altitude_m":  4500 + rng.Float64()*2000,
					"heading_deg": rng.Float64() * 360,
					"speed_mps":   70 + rng.Float64()*40,
				},
				"fuel_remaining_pct": drone.fuel,
				"current_waypoint":   1 + rng.Intn(ops.WaypointsPerMission),
				"velocity_mps":       70 + rng.Float64()*40,
				"mesh_connectivity":  0.6 + rng.Float64()*0.4,
			},
		})
}

func execute(client *http.Client, log *logging.Logger, endpoint, query string, variables map[string]interface{}) {
	body, err := json.Marshal(map[string]interface{}{
		"query":     query,
		"variables": variables,
	})
	if err != nil {
		log.WithError(err).Error("Marshal failed")
		return
	}

	resp, err := client.Post(endpoint, "application/json", bytes.NewReader(body))
	if err != nil {
		log.WithError(err).Warn("Request failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.WithFields(map[string]interface{}{"status": resp.StatusCode}).Warn("API rejected request")
	}
}
