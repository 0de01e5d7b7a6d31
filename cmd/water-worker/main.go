// Command water-worker runs one watering sequence out of process:
//
//	water-worker --position 5 --duration 2 --request-id <id>
//
// Exit status: 0 success, 1 failure, 2 usage, 3 pump busy.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"controlling_irrigation/internal/app"
	"controlling_irrigation/internal/config"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/repository"
	"controlling_irrigation/internal/repository/db"
	"controlling_irrigation/internal/service"

	"github.com/google/uuid"
	"github.com/spf13/pflag"
)

const reportTimeout = 10 * time.Second

// flagKeys binds worker flags onto config keys.
var flagKeys = map[string]string{
	"db-path":      "db.path",
	"callback-url": "reporting.callback_url",
	"log-level":    "log_level",
	"lock-file":    "arbiter.lock_file",
	"backend":      "hardware.backend",
}

func main() {
	os.Exit(run(os.Args[1:]))
}

func run(args []string) int {
	fs := pflag.NewFlagSet("water-worker", pflag.ContinueOnError)
	position := fs.Int("position", 0, "planting position")
	duration := fs.Int("duration", 0, "watering time in configured duration units")
	requestID := fs.String("request-id", "", "request id assigned by the API server; generated when empty")
	cfgFile := fs.String("config", "", "config file (default: configs/config.yml search path)")
	fs.String("db-path", "", "sqlite database path")
	fs.String("callback-url", "", "status callback URL; empty disables the callback")
	fs.String("log-level", "", "debug | info | warn | error")
	fs.String("lock-file", "", "pump lock file shared with the API server")
	fs.String("backend", "", "actuator backend: auto | register | chardev | sysfs | command | simulation")
	if err := fs.Parse(args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return service.ExitUsage
	}

	v := config.New()
	for flag, key := range flagKeys {
		if err := v.BindPFlag(key, fs.Lookup(flag)); err != nil {
			fmt.Fprintln(os.Stderr, err)
			return service.ExitUsage
		}
	}
	if *cfgFile != "" {
		v.SetConfigFile(*cfgFile)
	}
	cfg, err := config.Read(v)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return service.ExitUsage
	}
	log := logger.Get(cfg.LogLevel).With("worker_pid", os.Getpid())

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	w, err := open(cfg, log)
	if err != nil {
		log.Errorw("worker_init_failed", "err", err)
		fmt.Fprintln(os.Stderr, err)
		return service.ExitFailed
	}
	defer w.close()

	params := service.TriggerParams{Position: *position, Duration: *duration}
	line, err := w.validator.Validate(params)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		return service.ExitUsage
	}

	req := models.ActuationRequest{
		ID:        *requestID,
		Position:  params.Position,
		Line:      line.ID,
		Duration:  params.Duration,
		CreatedAt: time.Now().UTC(),
	}
	if req.ID == "" {
		// Standalone run: record the request ourselves.
		req.ID = uuid.NewString()
		if err := w.history.RecordPending(ctx, req, w.opts.Deadline(req.CreatedAt, req.Duration)); err != nil {
			log.Errorw("record_pending_failed", "request_id", req.ID, "err", err)
			fmt.Fprintln(os.Stderr, err)
			return service.ExitFailed
		}
	}

	out := w.actuator.Execute(ctx, req)
	w.report(context.WithoutCancel(ctx), out)

	switch {
	case out.Succeeded:
		return service.ExitOK
	case errors.Is(out.Err, models.ErrBusy):
		fmt.Fprintln(os.Stderr, out.Error)
		return service.ExitBusy
	default:
		fmt.Fprintln(os.Stderr, out.Error)
		return service.ExitFailed
	}
}

type worker struct {
	backend   hardware.Backend
	closeDB   func() error
	history   *service.HistoryService
	actuator  *service.Actuator
	validator *service.WateringService
	reporters []service.OutcomeReporter
	opts      service.WateringOptions
	log       *logger.Logger
}

func open(cfg config.Config, log *logger.Logger) (*worker, error) {
	if cfg.Arbiter.LockFile == "" {
		log.Warnw("no_lock_file", "hint", "pump exclusion only covers this process")
	}
	sqlDB, err := db.InitDB(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("init sqlite: %w", err)
	}
	valves, err := app.Valves(cfg.Valves)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	arb, err := app.Arbiter(cfg.Arbiter, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	callback, err := app.HTTPReporter(cfg.Reporting, log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, err
	}
	backend, err := hardware.Probe(app.HardwareOptions(cfg.Hardware), log)
	if err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("open actuator backend: %w", err)
	}

	repos := repository.NewRepository(sqlDB)
	opts := app.WateringOptions(cfg.Watering)
	history := service.NewHistoryService(repos.Watering, repos.Events, log)
	actuator := service.NewActuator(backend, valves, arb, history, opts, nil, log)

	reporters := []service.OutcomeReporter{history}
	if callback != nil {
		reporters = append(reporters, callback)
	}
	return &worker{
		backend:   backend,
		closeDB:   sqlDB.Close,
		history:   history,
		actuator:  actuator,
		validator: service.NewWateringService(valves, history, actuator, nil, opts, nil, log),
		reporters: reporters,
		opts:      opts,
		log:       log,
	}, nil
}

// report delivers the outcome to the local log and the status callback.
// Failures are logged; the exit status carries the outcome regardless.
func (w *worker) report(ctx context.Context, out models.ActuationOutcome) {
	ctx, cancel := context.WithTimeout(ctx, reportTimeout)
	defer cancel()
	for _, r := range w.reporters {
		if err := r.ReportOutcome(ctx, out); err != nil {
			w.log.Errorw("outcome_report_failed", "sink", r.Name(), "request_id", out.RequestID, "err", err)
		}
	}
}

func (w *worker) close() {
	if err := w.backend.Close(); err != nil {
		w.log.Warnw("close_failed", "component", "backend", "err", err)
	}
	if err := w.closeDB(); err != nil {
		w.log.Warnw("close_failed", "component", "sqlite", "err", err)
	}
}
