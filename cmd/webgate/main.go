// StageTwo WebGate - admin interface access control
//
// This is the main entry point for the WebGate service. It guards the
// device's admin web interface with a short-lived PIN shown on the
// device's own display:
//   - A 6-digit PIN rotates on a fixed window
//   - A correct PIN buys an opaque bearer token
//   - Failed attempts lock a client out until the PIN rotates
//   - The device secret behind the OTP setup lives in NVM
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/stagetwo/webgate/migrations"

	"github.com/stagetwo/webgate/internal/api"
	"github.com/stagetwo/webgate/internal/audit"
	"github.com/stagetwo/webgate/internal/auth"
	"github.com/stagetwo/webgate/internal/challenge"
	"github.com/stagetwo/webgate/internal/control"
	"github.com/stagetwo/webgate/internal/discovery"
	"github.com/stagetwo/webgate/internal/display"
	"github.com/stagetwo/webgate/internal/infrastructure/config"
	"github.com/stagetwo/webgate/internal/infrastructure/database"
	"github.com/stagetwo/webgate/internal/infrastructure/influxdb"
	"github.com/stagetwo/webgate/internal/infrastructure/logging"
	"github.com/stagetwo/webgate/internal/infrastructure/mqtt"
	"github.com/stagetwo/webgate/internal/metrics"
	"github.com/stagetwo/webgate/internal/nvm"
	"github.com/stagetwo/webgate/internal/secret"
	"github.com/stagetwo/webgate/internal/webui"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0 -X main.commit=abc123"
var (
	version = "dev"     // Semantic version (e.g., "1.0.0")
	commit  = "unknown" // Git commit hash
	date    = "unknown" // Build date
)

// Default configuration file path
const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
// It returns nil on clean shutdown.
func run(ctx context.Context) error { //nolint:gocognit,gocyclo // linear startup sequence
	log := logging.Default()
	log.Info("starting StageTwo WebGate",
		"version", version,
		"commit", commit,
		"build_date", date,
	)

	cfg, configPath, err := loadConfig()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)
	log.Info("logger initialised",
		"level", cfg.Logging.Level,
		"format", cfg.Logging.Format,
	)

	// Open database
	db, err := database.Open(database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		log.Info("closing database")
		if closeErr := db.Close(); closeErr != nil {
			log.Error("error closing database", "error", closeErr)
		}
	}()
	log.Info("database connected", "path", cfg.Database.Path)

	if migrateErr := db.Migrate(ctx); migrateErr != nil {
		return fmt.Errorf("running migrations: %w", migrateErr)
	}
	schemaVersion, err := db.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("reading schema version: %w", err)
	}
	log.Info("database migrations complete", "schema_version", schemaVersion)

	// Audit trail
	var auditRepo audit.Repository
	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		repo := audit.NewSQLiteRepository(db.DB)
		pruneAuditLogs(ctx, repo, cfg.Audit.RetentionDays, log)

		recorder = audit.NewRecorder(repo, log, cfg.Audit.QueueSize)
		recCtx, recCancel := context.WithCancel(context.Background())
		go recorder.Run(recCtx)
		defer func() {
			recCancel()
			<-recorder.Done()
		}()
		auditRepo = repo
	} else {
		log.Info("audit trail disabled")
	}

	// Secret store
	region, err := nvm.Open(ctx, cfg.NVM, db)
	if err != nil {
		return fmt.Errorf("opening nvm region: %w", err)
	}
	defer func() {
		if closeErr := region.Close(); closeErr != nil {
			log.Error("error closing nvm region", "error", closeErr)
		}
	}()

	secrets, err := secret.New(region, secret.Config{
		Offset: int64(cfg.Security.Secret.Offset),
		Length: cfg.Security.Secret.Length,
	}, secret.WithLogger(log))
	if err != nil {
		return fmt.Errorf("creating secret store: %w", err)
	}
	secrets.Load()
	info := secrets.Info()
	log.Info("device secret ready",
		"backend", cfg.NVM.Backend,
		"stored", info.Stored,
		"degraded", info.Degraded,
	)

	// Connect to MQTT broker (optional)
	var mqttClient *mqtt.Client
	if cfg.MQTT.Enabled {
		mqttClient, err = mqtt.Connect(cfg.MQTT)
		if err != nil {
			return fmt.Errorf("connecting to MQTT: %w", err)
		}
		defer func() {
			log.Info("disconnecting from MQTT")
			if closeErr := mqttClient.Close(); closeErr != nil {
				log.Error("error closing MQTT", "error", closeErr)
			}
		}()
		mqttClient.SetLogger(log)
		mqttClient.SetOnConnect(func() {
			log.Info("MQTT reconnected")
		})
		mqttClient.SetOnDisconnect(func(err error) {
			log.Warn("MQTT disconnected", "error", err)
		})
		log.Info("MQTT connected",
			"broker", fmt.Sprintf("%s:%d", cfg.MQTT.Broker.Host, cfg.MQTT.Broker.Port),
			"client_id", cfg.MQTT.Broker.ClientID,
		)
	} else {
		log.Info("MQTT disabled")
	}

	// Connect to InfluxDB (optional)
	var influxClient *influxdb.Client
	if cfg.InfluxDB.Enabled {
		influxClient, err = influxdb.Connect(cfg.InfluxDB)
		if err != nil {
			return fmt.Errorf("connecting to InfluxDB: %w", err)
		}
		defer func() {
			log.Info("closing InfluxDB connection")
			if closeErr := influxClient.Close(); closeErr != nil {
				log.Error("error closing InfluxDB", "error", closeErr)
			}
		}()
		influxClient.SetOnError(func(err error) {
			log.Error("InfluxDB write error", "error", err)
		})
		log.Info("InfluxDB connected",
			"url", cfg.InfluxDB.URL,
			"org", cfg.InfluxDB.Org,
			"bucket", cfg.InfluxDB.Bucket,
			"token", logging.Redact(cfg.InfluxDB.Token),
		)
	} else {
		log.Info("InfluxDB disabled")
	}

	var collectors *metrics.Metrics
	if cfg.Metrics.Enabled {
		collectors = metrics.New()
	}

	pins, err := challenge.New(challenge.Config{Duration: cfg.PINDuration()},
		challengeOptions(cfg, log, mqttClient, influxClient, collectors)...)
	if err != nil {
		return fmt.Errorf("creating PIN generator: %w", err)
	}

	authService, err := auth.NewService(pins, auth.Config{
		MaxAttempts: cfg.Security.Auth.MaxAttempts,
		TokenLength: cfg.Security.Auth.TokenLength,
	}, authOptions(log, recorder, mqttClient, influxClient, collectors)...)
	if err != nil {
		return fmt.Errorf("creating auth service: %w", err)
	}
	if collectors != nil {
		if err := collectors.RegisterStats(authService); err != nil {
			return fmt.Errorf("registering auth metrics: %w", err)
		}
	}

	gate := auth.NewGate(authService, cfg.Security.Auth.Required)
	if !gate.Required {
		log.Warn("authentication disabled: every request is admitted")
	}

	// Start HTTP API server
	apiServer, err := api.New(api.Deps{
		Config:     cfg.API,
		Security:   cfg.Security,
		OTP:        cfg.OTP,
		Metrics:    cfg.Metrics,
		Logger:     log,
		Auth:       authService,
		Gate:       gate,
		Secrets:    secrets,
		AuditRepo:  auditRepo,
		Recorder:   recorder,
		MQTT:       mqttClient,
		Influx:     influxClient,
		DB:         db,
		Collectors: collectors,
		UI:         webui.Handler(cfg.API.UIDir),
		Version:    version,
	})
	if err != nil {
		return fmt.Errorf("creating API server: %w", err)
	}
	if err := apiServer.Start(ctx); err != nil {
		return fmt.Errorf("starting API server: %w", err)
	}
	defer func() {
		if closeErr := apiServer.Close(); closeErr != nil {
			log.Error("error closing API server", "error", closeErr)
		}
	}()

	// Maintenance commands over MQTT
	if mqttClient != nil {
		commands := control.New(authService, secrets, recorder, log)
		if err := commands.Start(mqttClient, mqtt.Topics{}.Command(), byte(cfg.MQTT.QoS)); err != nil {
			return fmt.Errorf("starting command handler: %w", err)
		}
		defer func() {
			if stopErr := commands.Stop(); stopErr != nil {
				log.Warn("error stopping command handler", "error", stopErr)
			}
		}()
	}

	// mDNS advertisement (optional)
	if cfg.Discovery.Enabled {
		advertiser, err := discovery.NewAdvertiser(discovery.Config{
			Instance:     cfg.Discovery.Instance,
			Domain:       cfg.Discovery.Domain,
			Port:         cfg.API.Port,
			TLS:          cfg.API.TLS.Enabled,
			Version:      version,
			AuthRequired: gate.Required,
		})
		if err != nil {
			return fmt.Errorf("creating mDNS advertiser: %w", err)
		}
		if err := advertiser.Start(); err != nil {
			log.Warn("mDNS advertisement failed to start", "error", err)
		} else {
			defer advertiser.Stop()
			log.Info("mDNS advertisement started", "service", advertiser.ServiceType())
		}
	}

	if err := healthCheck(ctx, db, mqttClient, influxClient); err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	log.Info("all health checks passed")

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()
	log.Info("shutdown signal received, cleaning up")

	log.Info("StageTwo WebGate stopped")
	return nil
}

// loadConfig reads the configuration file. A missing file at the default
// path falls back to built-in defaults so a freshly flashed device boots.
func loadConfig() (*config.Config, string, error) {
	path := getConfigPath()

	cfg, err := config.Load(path)
	if err == nil {
		return cfg, path, nil
	}
	if path != defaultConfigPath || !errors.Is(err, os.ErrNotExist) {
		return nil, path, err
	}

	cfg = config.Default()
	if err := cfg.Validate(); err != nil {
		return nil, "(defaults)", fmt.Errorf("validating default config: %w", err)
	}
	return cfg, "(defaults)", nil
}

// getConfigPath returns the configuration file path.
// Uses STAGETWO_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("STAGETWO_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}

// pruneAuditLogs drops audit entries older than the retention window.
func pruneAuditLogs(ctx context.Context, repo audit.Repository, days int, log *logging.Logger) {
	if days <= 0 {
		return
	}
	cutoff := time.Now().AddDate(0, 0, -days)
	n, err := repo.DeleteBefore(ctx, cutoff)
	if err != nil {
		log.Warn("pruning audit logs failed", "error", err)
		return
	}
	if n > 0 {
		log.Info("pruned audit logs", "deleted", n, "retention_days", days)
	}
}

// challengeOptions builds the PIN generator's presenters from config. They
// run as one display.Multi so a rotation logs at most one warning.
func challengeOptions(cfg *config.Config, log *logging.Logger, mqttClient *mqtt.Client,
	influxClient *influxdb.Client, collectors *metrics.Metrics) []challenge.Option {
	var outputs display.Multi

	if cfg.Display.Console {
		outputs = append(outputs, display.NewConsole(log, cfg.Display.QuickAccessHost))
	}
	if cfg.Display.MQTT && mqttClient != nil {
		outputs = append(outputs,
			display.NewMQTT(mqttClient, mqtt.Topics{}.DisplayAuth(), cfg.Display.QuickAccessHost))
	}
	if collectors != nil {
		outputs = append(outputs, collectors)
	}
	if influxClient != nil {
		outputs = append(outputs, challenge.PresenterFunc(func(c challenge.Challenge) error {
			influxClient.WriteChallengeRotation(c.Generation, c.Duration)
			return nil
		}))
	}

	opts := []challenge.Option{challenge.WithLogger(log)}
	if len(outputs) > 0 {
		opts = append(opts, challenge.WithPresenter(outputs))
	}
	return opts
}

// authOptions builds the auth service's event observers.
func authOptions(log *logging.Logger, recorder *audit.Recorder, mqttClient *mqtt.Client,
	influxClient *influxdb.Client, collectors *metrics.Metrics) []auth.Option {
	var opts []auth.Option

	if recorder != nil {
		opts = append(opts, auth.WithObserver(recorder))
	}
	if collectors != nil {
		opts = append(opts, auth.WithObserver(collectors))
	}
	if mqttClient != nil {
		opts = append(opts, auth.WithObserver(auth.ObserverFunc(func(e auth.Event) {
			if err := mqttClient.PublishJSON(mqtt.Topics{}.AuthEvent(string(e.Kind)), e, false); err != nil {
				log.Warn("publishing auth event failed", "kind", e.Kind, "error", err)
			}
		})))
	}
	if influxClient != nil {
		opts = append(opts, auth.WithObserver(auth.ObserverFunc(func(e auth.Event) {
			influxClient.WriteAuthAttempt(string(e.Kind), e.ClientID, e.Generation, e.AttemptsRemaining)
			if e.Kind == auth.EventLogin || e.Kind == auth.EventLogoutAll {
				influxClient.WriteSessionCount(e.Sessions)
			}
		})))
	}
	return opts
}

// healthCheck verifies all infrastructure connections are healthy.
// mqttClient and influxClient may be nil when disabled.
func healthCheck(ctx context.Context, db *database.DB, mqttClient *mqtt.Client, influxClient *influxdb.Client) error {
	if err := db.HealthCheck(ctx); err != nil {
		return fmt.Errorf("database: %w", err)
	}

	if mqttClient != nil {
		if err := mqttClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("mqtt: %w", err)
		}
	}

	if influxClient != nil {
		if err := influxClient.HealthCheck(ctx); err != nil {
			return fmt.Errorf("influxdb: %w", err)
		}
	}

	return nil
}
