// Package app turns configuration into the collaborators shared by the API
// server and the water-worker binary.
package app

import (
	"controlling_irrigation/internal/arbiter"
	"controlling_irrigation/internal/config"
	"controlling_irrigation/internal/hardware"
	"controlling_irrigation/internal/logger"
	"controlling_irrigation/internal/service"
	"controlling_irrigation/internal/sink"
	"controlling_irrigation/internal/valve"
)

func HardwareOptions(c config.HardwareConfig) hardware.Options {
	return hardware.Options{
		Backend:           c.Backend,
		GPIOMem:           c.GPIOMem,
		Chip:              c.Chip,
		SysfsRoot:         c.SysfsRoot,
		Command:           c.Command,
		SimulationWaitCap: c.SimulationWaitCap,
	}
}

func Valves(c config.ValvesConfig) (*valve.Map, error) {
	lines, err := c.LineTable()
	if err != nil {
		return nil, err
	}
	return valve.New(valve.Config{
		PumpLine:       c.PumpLine,
		PumpActiveLow:  c.PumpActiveLow,
		ValveActiveLow: c.ValveActiveLow,
		Lines:          lines,
	})
}

// Arbiter returns the cross-process file lock when a lock file is configured
// and the in-process slot otherwise.
func Arbiter(c config.ArbiterConfig, log *logger.Logger) (arbiter.Arbiter, error) {
	if c.LockFile == "" {
		logger.OrNop(log).Infow("arbiter_selected", "kind", "slot")
		return arbiter.NewSlot(), nil
	}
	fl, err := arbiter.NewFileLock(c.LockFile)
	if err != nil {
		return nil, err
	}
	logger.OrNop(log).Infow("arbiter_selected", "kind", "flock", "path", c.LockFile)
	return fl, nil
}

func WateringOptions(c config.WateringConfig) service.WateringOptions {
	return service.WateringOptions{
		MaxDuration:    c.MaxDuration,
		Unit:           c.DurationUnit,
		AcquireTimeout: c.AcquireTimeout,
		Grace:          c.SupervisorGrace,
	}
}

// HTTPReporter builds the status callback reporter, or nil when no callback
// URL is configured.
func HTTPReporter(c config.ReportingConfig, log *logger.Logger) (*sink.HTTPReporter, error) {
	if c.CallbackURL == "" {
		return nil, nil
	}
	return sink.NewHTTPReporter(sink.HTTPOptions{
		CallbackURL: c.CallbackURL,
		Timeout:     c.Timeout,
		Failures:    c.BreakerFailures,
		OpenFor:     c.BreakerOpen,
	}, log)
}

func MQTTOptions(c config.MQTTConfig) sink.MQTTOptions {
	return sink.MQTTOptions{
		Broker:      c.Broker,
		ClientID:    c.ClientID,
		Username:    c.Username,
		Password:    c.Password,
		TopicPrefix: c.TopicPrefix,
		MaxRetries:  c.MaxRetries,
	}
}

func InfluxOptions(c config.InfluxConfig) sink.InfluxOptions {
	return sink.InfluxOptions{
		URL:    c.URL,
		Token:  c.Token,
		Org:    c.Org,
		Bucket: c.Bucket,
	}
}
