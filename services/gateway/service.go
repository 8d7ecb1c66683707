// Package gateway is the API facade: the combined query/mutation
// endpoint, the WebSocket subscription transport, and the periodic
// ranking reconciler. It owns the HTTP server lifecycle.
package gateway

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"

	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/broker"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/config"
	apperrors "github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/errors"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/httputil"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/logging"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/metrics"
	"github.com/isgo-golgo13/dronegrid-convoy-tracking-svc/infrastructure/middleware"
)

// Service is the HTTP gateway.
type Service struct {
	cfg      config.Config
	log      *logging.Logger
	metrics  *metrics.Metrics
	broker   *broker.Broker
	resolver *Resolver
	fleet    FleetService
	rank     RankingService

	router *mux.Router
	server *http.Server
	cron   *cron.Cron
}

// New wires the router, middleware, and reconciler.
func New(cfg config.Config, log *logging.Logger, m *metrics.Metrics, b *broker.Broker, resolver *Resolver, fleetSvc FleetService, rank RankingService) *Service {
	s := &Service{
		cfg:      cfg,
		log:      log,
		metrics:  m,
		broker:   b,
		resolver: resolver,
		fleet:    fleetSvc,
		rank:     rank,
		cron:     cron.New(),
	}

	router := mux.NewRouter()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.Logging(log))
	if m != nil {
		router.Use(middleware.Metrics(m, "gateway"))
	}
	router.Use(middleware.CORS(cfg.CORSOrigins))

	api := router.PathPrefix("/graphql").Subrouter()
	api.Use(middleware.RateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst))
	api.Use(middleware.Auth(cfg.AuthJWTSecret))
	api.HandleFunc("", s.handleQuery).Methods(http.MethodPost)
	api.HandleFunc("", s.handlePlayground).Methods(http.MethodGet)
	api.HandleFunc("/ws", s.handleWS).Methods(http.MethodGet)

	router.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("OK"))
	}).Methods(http.MethodGet)
	router.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	router.HandleFunc("/", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("DroneGrid Convoy Tracking API"))
	}).Methods(http.MethodGet)

	s.router = router
	return s
}

// Router exposes the HTTP routes.
func (s *Service) Router() *mux.Router {
	return s.router
}

// Start launches the reconciler and the HTTP server.
func (s *Service) Start(ctx context.Context) error {
	if s.cfg.RebuildSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.RebuildSchedule, s.reconcileRankings); err != nil {
			return err
		}
		s.cron.Start()
	}

	s.server = &http.Server{
		Addr:              s.cfg.ServerAddr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	s.log.WithFields(map[string]interface{}{
		"addr":       s.cfg.ServerAddr,
		"playground": s.cfg.EnablePlayground,
	}).Info("Gateway listening")

	err := s.server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Stop drains in-flight requests, closes the broker so every active
// subscriber terminates cleanly, and stops the reconciler. Persistence
// tiers close after this returns.
func (s *Service) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownDrain)
	defer cancel()

	var err error
	if s.server != nil {
		err = s.server.Shutdown(ctx)
	}
	s.broker.Close()
	<-s.cron.Stop().Done()
	return err
}

// reconcileRankings rebuilds the ranking projection for every active
// convoy from the authoritative counters.
func (s *Service) reconcileRankings() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	convoys, err := s.fleet.ActiveConvoys(ctx)
	if err != nil {
		s.log.WithError(err).Warn("Ranking reconciler could not list active convoys")
		return
	}
	for _, c := range convoys {
		if _, err := s.rank.Rebuild(ctx, c.ConvoyID); err != nil {
			s.log.WithError(err).WithFields(map[string]interface{}{
				"convoy_id": c.ConvoyID.String(),
			}).Warn("Ranking rebuild failed")
		}
	}
}

// handleQuery serves the combined query/mutation endpoint.
func (s *Service) handleQuery(w http.ResponseWriter, r *http.Request) {
	var req Request
	if !httputil.DecodeJSON(w, r, &req) {
		return
	}

	if err := req.CheckLimits(s.cfg.MaxQueryDepth, s.cfg.MaxQueryComplexity); err != nil {
		writeErrors(w, err)
		return
	}
	if operationKind(req.Query) == "subscription" {
		writeErrors(w, apperrors.InvalidInput("subscriptions require the WebSocket transport"))
		return
	}

	op := req.Operation()
	if op == "" {
		writeErrors(w, apperrors.InvalidInput("could not determine operation"))
		return
	}
	if !s.cfg.EnableIntrospection && strings.HasPrefix(op, "__") {
		writeErrors(w, apperrors.InvalidInput("introspection is disabled"))
		return
	}
	if strings.HasPrefix(op, "__") {
		httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
			"data": map[string]interface{}{op: s.resolver.OperationNames()},
		})
		return
	}

	result, err := s.resolver.Resolve(r.Context(), op, newVars(req.Variables))
	if err != nil {
		writeErrors(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"data": map[string]interface{}{op: result},
	})
}

// writeErrors renders the error list envelope with the mapped status.
func writeErrors(w http.ResponseWriter, err error) {
	se := apperrors.GetServiceError(err)
	if se == nil {
		se = apperrors.Internal("internal server error", err)
	}

	extensions := map[string]interface{}{"code": string(se.Code)}
	for k, v := range se.Details {
		extensions[k] = v
	}

	httputil.WriteJSON(w, se.HTTPStatus, map[string]interface{}{
		"errors": []map[string]interface{}{
			{"message": se.Message, "extensions": extensions},
		},
	})
}
