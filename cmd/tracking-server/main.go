// The tracking server binary: wires the persistence tiers, the broker,
// the domain services, and the gateway, then serves until signaled.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/analytics"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/broker"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/coldstore"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/config"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/hotstore"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/metrics"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/services/engagement"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/services/fleet"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/services/gateway"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/services/ranking"
)

func main() {
	_ = godotenv.Load()

	cfg := config.Load()
	logging.InitDefault("tracking", cfg.LogLevel, cfg.LogFormat)
	log := logging.Default()

	log.WithFields(map[string]interface{}{
		"version": gateway.Version,
		"addr":    cfg.ServerAddr,
	}).Info("Starting DroneGrid convoy tracking service")

	ctx := context.Background()

	// Hot tier.
	log.WithFields(map[string]interface{}{"url": cfg.RedisURL}).Info("Connecting to hot tier")
	hot, err := hotstore.New(ctx, hotstore.Config{
		URL:      cfg.RedisURL,
		PoolSize: cfg.RedisPoolSize,
		TTL:      hotstore.DefaultTTL(),
	})
	if err != nil {
		log.WithError(err).Fatal("Hot tier connection failed")
	}

	// Cold tier.
	log.WithFields(map[string]interface{}{
		"hosts":    cfg.ScyllaHosts,
		"keyspace": cfg.ScyllaKeyspace,
	}).Info("Connecting to cold tier")
	cold, err := coldstore.New(coldstore.Config{
		Hosts:    cfg.ScyllaHosts,
		Keyspace: cfg.ScyllaKeyspace,
		Username: cfg.ScyllaUsername,
		Password: cfg.ScyllaPassword,
		Timeout:  cfg.ScyllaTimeout,
		PageSize: 100,
	}, log)
	if err != nil {
		log.WithError(err).Fatal("Cold tier connection failed")
	}

	// Analytics engine.
	var olap *analytics.Engine
	if cfg.AnalyticsPath != "" {
		olap, err = analytics.NewPersistent(cfg.AnalyticsPath)
	} else {
		olap, err = analytics.NewInMemory()
	}
	if err != nil {
		log.WithError(err).Fatal("Analytics engine initialization failed")
	}

	m := metrics.Default()
	b := broker.New(m)

	rankRepo := ranking.New(hot, cold, log)
	recorder := engagement.New(rankRepo, cold, b, olap, m, log)
	fleetSvc := fleet.New(hot, cold, b, log)

	resolver := gateway.NewResolver(rankRepo, recorder, fleetSvc)
	svc := gateway.New(cfg, log, m, b, resolver, fleetSvc, rankRepo)

	go func() {
		if err := svc.Start(ctx); err != nil {
			log.WithError(err).Fatal("Gateway server failed")
		}
	}()

	// Wait for a termination signal, then drain: stop accepting, wait
	// for in-flight work, close broker topics, close the tiers last.
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	sig := <-stop
	log.WithFields(map[string]interface{}{"signal": sig.String()}).Info("Shutting down")

	if err := svc.Stop(); err != nil {
		log.WithError(err).Warn("Gateway shutdown incomplete")
	}
	if err := olap.Close(); err != nil {
		log.WithError(err).Warn("Analytics close failed")
	}
	cold.Close()
	if err := hot.Close(); err != nil {
		log.WithError(err).Warn("Hot tier close failed")
	}

	log.Info("Shutdown complete")
}
