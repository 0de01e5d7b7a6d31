package main

import (
	"context"
	"database/sql"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "controlling_irrigation/docs"
	"controlling_irrigation/internal/app"
	"controlling_irrigation/internal/config"
	"controlling_irrigation/internal/handlers"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/metrics"
	"controlling_irrigation/internal/repository"
	"controlling_irrigation/internal/repository/db"
	"controlling_irrigation/internal/sensor"
	"controlling_irrigation/internal/server"
	"controlling_irrigation/internal/service"
	"controlling_irrigation/internal/sink"
)

const shutdownTimeout = 10 * time.Second

// @title                      e-garden irrigation API
// @version                    1.0
// @description                Valve and pump orchestration with soil telemetry.
// @BasePath                   /
// @securityDefinitions.apikey BearerAuth
// @in                         header
// @name                       Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Get(logger.InfoLevel).Fatalw("error reading config", "err", err)
	}
	log := logger.Get(cfg.LogLevel)

	sqlDB, err := openDB(cfg.DB.Path, log)
	if err != nil {
		log.Fatalw("failed to init sqlite", "err", err)
	}
	defer closeQuietly(log, "sqlite", sqlDB)

	backend, err := hardware.Probe(app.HardwareOptions(cfg.Hardware), log)
	if err != nil {
		log.Fatalw("failed to open actuator backend", "err", err)
	}
	defer closeQuietly(log, "backend", backend)

	valves, err := app.Valves(cfg.Valves)
	if err != nil {
		log.Fatalw("invalid valve map", "err", err)
	}
	arb, err := app.Arbiter(cfg.Arbiter, log)
	if err != nil {
		log.Fatalw("failed to open pump arbiter", "err", err)
	}

	reader, err := newSensorReader(cfg.Sensors, log)
	if err != nil {
		log.Fatalw("invalid sensor config", "err", err)
	}
	defer closeQuietly(log, "sensors", reader)

	m := metrics.New()
	reporters, exporters, closers := openSinks(cfg, log)
	defer func() {
		for _, c := range closers {
			closeQuietly(log, "sink", c)
		}
	}()

	opts := app.WateringOptions(cfg.Watering)
	deps := service.Deps{
		Backend:   backend,
		Valves:    valves,
		Arbiter:   arb,
		Reader:    reader,
		Cache:     sensor.NewCache(),
		Options:   opts,
		Reporters: reporters,
		Exporters: exporters,
		Metrics:   m,
		Log:       log,
	}
	if cfg.Watering.Executor == config.ExecutorWorker {
		deps.Executor = service.NewWorkerExecutor(cfg.Watering.WorkerPath, nil, backend, valves, arb, opts, log)
		log.Infow("executor_selected", "kind", config.ExecutorWorker, "path", cfg.Watering.WorkerPath)
	}

	repos := repository.NewRepository(sqlDB)
	services := service.NewService(repos, deps)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Lines are forced OFF before any request is accepted.
	if err := services.Supervisor.Recover(ctx); err != nil {
		log.Fatalw("startup recovery failed", "err", err)
	}
	go services.Supervisor.Run(ctx, cfg.Watering.SupervisorInterval)

	apiHandler := handlers.NewHandler(services, log,
		handlers.WithMetrics(m.Handler()),
		handlers.WithJWTSecret(cfg.Auth.JWTSecret),
		handlers.WithStreamInterval(cfg.Sensors.StreamInterval),
	)

	srv := &server.Server{}
	runHTTPServer(srv, cfg.Port, apiHandler, log)

	waitForShutdown(cancel, srv, log)

	// Accepted requests finish their sequence before lines are released.
	services.Watering.Wait()
	log.Infow("shutdown_complete")
}

// openDB initializes the SQLite database using configuration.
func openDB(path string, log *logger.Logger) (*sql.DB, error) {
	if path == "" {
		log.Infow("db.path not set in config; using default file", "default", "e-garden.db")
		path = "e-garden.db"
	}
	return db.InitDB(path)
}

func newSensorReader(c config.SensorsConfig, log *logger.Logger) (*sensor.Reader, error) {
	places, err := c.ChannelTable()
	if err != nil {
		return nil, err
	}
	return sensor.NewReader(places,
		sensor.SPIOpener(c.SPIDevice, c.SPISpeedHz),
		sensor.I2COpener(c.I2CBus, uint16(c.TemperatureAddr)),
		log,
	)
}

// openSinks connects the optional publishers. A sink that cannot be reached
// at startup is skipped; the durable log does not depend on it.
func openSinks(cfg config.Config, log *logger.Logger) ([]service.OutcomeReporter, []service.TelemetryExporter, []io.Closer) {
	var (
		reporters []service.OutcomeReporter
		exporters []service.TelemetryExporter
		closers   []io.Closer
	)
	if cfg.MQTT.Broker != "" {
		pub, err := sink.NewMQTTPublisher(app.MQTTOptions(cfg.MQTT), log)
		if err != nil {
			log.Errorw("mqtt_disabled", "broker", cfg.MQTT.Broker, "err", err)
		} else {
			reporters = append(reporters, pub)
			exporters = append(exporters, pub)
			closers = append(closers, pub)
		}
	}
	if cfg.Influx.URL != "" {
		ex := sink.NewInfluxExporter(app.InfluxOptions(cfg.Influx), log)
		exporters = append(exporters, ex)
		closers = append(closers, ex)
	}
	return reporters, exporters, closers
}

// runHTTPServer runs the HTTP server in a separate goroutine.
func runHTTPServer(srv *server.Server, port string, handler *handlers.Handler, log *logger.Logger) {
	go func() {
		if err := srv.Run(port, handler.InitRoutes()); err != nil {
			log.Fatalw("error starting server", "err", err)
		}
	}()
}

// waitForShutdown listens for termination signals and performs graceful shutdown.
func waitForShutdown(cancel context.CancelFunc, srv *server.Server, log *logger.Logger) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Infow("shutting down server...")

	// stop background goroutines
	cancel()

	ctx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Errorw("server forced to shutdown", "err", err)
	}
}

func closeQuietly(log *logger.Logger, what string, c io.Closer) {
	if err := c.Close(); err != nil {
		log.Warnw("close_failed", "component", what, "err", err)
	}
}
