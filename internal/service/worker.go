package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"controlling_irrigation/internal/arbiter"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/models"
	"controlling_irrigation/internal/valve"
)

// Exit codes of the water-worker binary.
const (
	ExitOK     = 0
	ExitFailed = 1
	ExitUsage  = 2
	ExitBusy   = 3
)

const (
	maxWorkerOutput = 512
	workerStopDelay = 5 * time.Second
)

// WorkerExecutor runs each actuation in a separate water-worker process and
// turns its exit status into an outcome. Once the request's deadline passes
// the worker gets SIGTERM so it can switch its lines off, and is killed if it
// has not exited within the stop delay.
//
// When the worker dies without running its own cleanup, the executor drives
// the valve and then the pump OFF itself while holding the pump lease. A nil
// backend disables that step.
type WorkerExecutor struct {
	path      string
	args      []string // prepended to the request flags
	backend   hardware.Backend
	valves    *valve.Map
	arbiter   arbiter.Arbiter
	opts      WateringOptions
	stopDelay time.Duration
	leaseWait time.Duration
	log       *logger.Logger
	now       func() time.Time
}

var _ Executor = (*WorkerExecutor)(nil)

func NewWorkerExecutor(path string, args []string, backend hardware.Backend, valves *valve.Map, arb arbiter.Arbiter, opts WateringOptions, log *logger.Logger) *WorkerExecutor {
	return &WorkerExecutor{
		path:      path,
		args:      args,
		backend:   backend,
		valves:    valves,
		arbiter:   arb,
		opts:      opts.withDefaults(),
		stopDelay: workerStopDelay,
		leaseWait: cleanupTimeout,
		log:       logger.OrNop(log),
		now:       time.Now,
	}
}

// Args returns the command line for req, without the binary path.
func (w *WorkerExecutor) Args(req models.ActuationRequest) []string {
	out := append([]string(nil), w.args...)
	return append(out,
		"--position", strconv.Itoa(req.Position),
		"--duration", strconv.Itoa(req.Duration),
		"--request-id", req.ID,
	)
}

func (w *WorkerExecutor) Execute(ctx context.Context, req models.ActuationRequest) models.ActuationOutcome {
	limit := w.opts.AcquireTimeout + w.opts.RunTime(req.Duration) + w.opts.Grace
	cctx, cancel := context.WithTimeout(ctx, limit)
	defer cancel()

	cmd := exec.CommandContext(cctx, w.path, w.Args(req)...)
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = w.stopDelay
	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	w.log.Infow("worker_started", "request_id", req.ID, "path", w.path, "limit", limit.String())
	err := cmd.Run()
	if err == nil {
		w.log.Infow("worker_finished", "request_id", req.ID)
		return w.outcome(req, nil)
	}

	var exitErr *exec.ExitError
	abandoned := false
	switch {
	case errors.Is(cctx.Err(), context.DeadlineExceeded):
		err = fmt.Errorf("worker exceeded %s and was killed", limit)
		abandoned = true
	case errors.As(err, &exitErr) && exitErr.ExitCode() == ExitBusy:
		err = models.ErrBusy
	case errors.As(err, &exitErr):
		err = fmt.Errorf("worker exited with status %d: %s", exitErr.ExitCode(), tail(output.String()))
		// Failed and usage exits come from the worker itself, after its own cleanup.
		abandoned = exitErr.ExitCode() != ExitFailed && exitErr.ExitCode() != ExitUsage
	default:
		err = fmt.Errorf("start worker: %w", err)
	}
	w.log.Warnw("worker_failed", "request_id", req.ID, "err", err)
	if abandoned {
		if cerr := w.cleanup(ctx, req); cerr != nil {
			err = errors.Join(err, cerr)
		}
	}
	return w.outcome(req, err)
}

// cleanup drives the request's valve and then the pump OFF under the pump
// lease. If another actuation already holds the lease it owns the pump, and
// the lines are left to it.
func (w *WorkerExecutor) cleanup(ctx context.Context, req models.ActuationRequest) error {
	if w.backend == nil || w.valves == nil || w.arbiter == nil {
		return nil
	}
	log := w.log.With("request_id", req.ID)
	cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), cleanupTimeout)
	defer cancel()

	lease, err := w.arbiter.Acquire(cctx, w.leaseWait)
	if err != nil {
		log.Errorw("worker_cleanup_skipped", "err", err)
		return fmt.Errorf("cleanup: %w", err)
	}
	defer lease.Release()

	lines := []valve.Line{w.valves.Pump()}
	if l, rerr := w.valves.Resolve(req.Position); rerr == nil {
		lines = []valve.Line{l, w.valves.Pump()}
	}
	if err := linesOff(cctx, w.backend, lines...); err != nil {
		log.Errorw("worker_cleanup_failed", "err", err)
		return fmt.Errorf("cleanup: %w", err)
	}
	log.Infow("worker_cleanup", "lines", len(lines))
	return nil
}

func (w *WorkerExecutor) outcome(req models.ActuationRequest, err error) models.ActuationOutcome {
	o := models.ActuationOutcome{
		RequestID:  req.ID,
		Succeeded:  err == nil,
		FinishedAt: w.now().UTC(),
		Err:        err,
	}
	if err != nil {
		o.Error = err.Error()
	}
	return o
}

func tail(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxWorkerOutput {
		s = "..." + s[len(s)-maxWorkerOutput:]
	}
	return s
}
