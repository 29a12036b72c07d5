package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stagetwo/webgate/internal/audit"
	"github.com/stagetwo/webgate/internal/auth"
	"github.com/stagetwo/webgate/internal/infrastructure/config"
	"github.com/stagetwo/webgate/internal/infrastructure/database"
	"github.com/stagetwo/webgate/internal/infrastructure/influxdb"
	"github.com/stagetwo/webgate/internal/infrastructure/logging"
	"github.com/stagetwo/webgate/internal/infrastructure/mqtt"
	"github.com/stagetwo/webgate/internal/metrics"
	"github.com/stagetwo/webgate/internal/ratelimit"
	"github.com/stagetwo/webgate/internal/secret"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Rate limiter housekeeping.
const (
	limiterSweepInterval = time.Minute
	limiterMaxIdle       = 10 * time.Minute
)

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config   config.APIConfig
	Security config.SecurityConfig
	OTP      config.OTPConfig
	Metrics  config.MetricsConfig
	Logger   *logging.Logger
	Auth     *auth.Service
	Gate     *auth.Gate
	Secrets  *secret.Store

	// Optional.
	AuditRepo  audit.Repository
	Recorder   *audit.Recorder
	MQTT       *mqtt.Client
	Influx     *influxdb.Client
	DB         *database.DB
	Collectors *metrics.Metrics
	UI         http.Handler
	Version    string

	// Now defaults to time.Now. Tests pin it for OTP codes.
	Now func() time.Time
}

// Server is the HTTP API server.
//
// It manages the HTTP listener, routes and middleware.
// The server is created with New() and started with Start().
type Server struct {
	cfg        config.APIConfig
	secCfg     config.SecurityConfig
	otpCfg     config.OTPConfig
	metricsCfg config.MetricsConfig
	logger     *logging.Logger
	auth       *auth.Service
	gate       *auth.Gate
	secrets    *secret.Store
	auditRepo  audit.Repository
	recorder   *audit.Recorder
	mqtt       *mqtt.Client
	influx     *influxdb.Client
	db         *database.DB
	collectors *metrics.Metrics
	ui         http.Handler
	limiter    *ratelimit.Limiter
	version    string
	now        func() time.Time
	startTime  time.Time
	server     *http.Server
	cancel     context.CancelFunc // cancels background goroutines on Close()
}

// New creates a new API server with the given dependencies.
//
// The server is not started until Start() is called.
func New(deps Deps) (*Server, error) {
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Auth == nil {
		return nil, fmt.Errorf("auth service is required")
	}
	if deps.Gate == nil {
		return nil, fmt.Errorf("access gate is required")
	}
	if deps.Secrets == nil {
		return nil, fmt.Errorf("secret store is required")
	}

	now := deps.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		cfg:        deps.Config,
		secCfg:     deps.Security,
		otpCfg:     deps.OTP,
		metricsCfg: deps.Metrics,
		logger:     deps.Logger,
		auth:       deps.Auth,
		gate:       deps.Gate,
		secrets:    deps.Secrets,
		auditRepo:  deps.AuditRepo,
		recorder:   deps.Recorder,
		mqtt:       deps.MQTT,
		influx:     deps.Influx,
		db:         deps.DB,
		collectors: deps.Collectors,
		ui:         deps.UI,
		version:    deps.Version,
		now:        now,
		startTime:  now(),
	}

	if deps.Security.RateLimit.Enabled {
		s.limiter = ratelimit.PerMinute(deps.Security.RateLimit.RequestsPerMinute)
	}

	return s, nil
}

// Handler returns the router. Start serves the same handler.
func (s *Server) Handler() http.Handler {
	return s.buildRouter()
}

// Start begins listening for HTTP connections.
//
// The listener runs in a background goroutine; the server can be
// stopped with Close().
func (s *Server) Start(ctx context.Context) error {
	var srvCtx context.Context
	srvCtx, s.cancel = context.WithCancel(ctx)

	if s.limiter != nil {
		go s.sweepLimiterLoop(srvCtx)
	}

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:           s.buildRouter(),
		ReadTimeout:       s.cfg.Timeouts.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.Timeouts.ReadTimeout(),
		WriteTimeout:      s.cfg.Timeouts.WriteTimeout(),
		IdleTimeout:       s.cfg.Timeouts.IdleTimeout(),
	}

	go func() {
		var err error
		if s.cfg.TLS.Enabled {
			s.logger.Info("API server starting with TLS",
				"address", s.server.Addr,
				"cert", s.cfg.TLS.CertFile,
			)
			err = s.server.ListenAndServeTLS(s.cfg.TLS.CertFile, s.cfg.TLS.KeyFile)
		} else {
			s.logger.Info("API server starting", "address", s.server.Addr)
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("API server error", "error", err)
		}
	}()

	return nil
}

// sweepLimiterLoop drops idle rate-limit buckets so the map stays bounded.
func (s *Server) sweepLimiterLoop(ctx context.Context) {
	ticker := time.NewTicker(limiterSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.limiter.Sweep(limiterMaxIdle)
		}
	}
}

// Close gracefully shuts down the API server.
//
// It waits up to 10 seconds for in-flight requests to complete,
// then forcefully closes remaining connections.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	if s.cancel != nil {
		s.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("API server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down API server: %w", err)
	}
	return nil
}

// HealthCheck verifies the API server is running.
func (s *Server) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("api health check: %w", ctx.Err())
	default:
	}

	if s.server == nil {
		return fmt.Errorf("api server not started")
	}

	return nil
}
