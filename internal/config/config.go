package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const envPrefix = "EGARDEN"

// Executor modes for the actuation sequence.
const (
	ExecutorInProcess = "inprocess"
	ExecutorWorker    = "worker"
)

type Config struct {
	Port      string          `mapstructure:"port"`
	LogLevel  string          `mapstructure:"log_level"`
	DB        DBConfig        `mapstructure:"db"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Hardware  HardwareConfig  `mapstructure:"hardware"`
	Valves    ValvesConfig    `mapstructure:"valves"`
	Watering  WateringConfig  `mapstructure:"watering"`
	Arbiter   ArbiterConfig   `mapstructure:"arbiter"`
	Sensors   SensorsConfig   `mapstructure:"sensors"`
	MQTT      MQTTConfig      `mapstructure:"mqtt"`
	Influx    InfluxConfig    `mapstructure:"influx"`
	Reporting ReportingConfig `mapstructure:"reporting"`
}

type DBConfig struct {
	Path string `mapstructure:"path"`
}

// AuthConfig holds the secret shared with the external auth service.
// An empty secret disables bearer-token checks.
type AuthConfig struct {
	JWTSecret string `mapstructure:"jwt_secret"`
}

type HardwareConfig struct {
	Backend           string        `mapstructure:"backend"` // auto | register | chardev | sysfs | command | simulation
	GPIOMem           string        `mapstructure:"gpiomem"`
	Chip              string        `mapstructure:"chip"`
	SysfsRoot         string        `mapstructure:"sysfs_root"`
	Command           string        `mapstructure:"command"`
	SimulationWaitCap time.Duration `mapstructure:"simulation_wait_cap"`
}

type ValvesConfig struct {
	PumpLine       int            `mapstructure:"pump_line"`
	PumpActiveLow  bool           `mapstructure:"pump_active_low"`
	ValveActiveLow bool           `mapstructure:"valve_active_low"`
	Lines          map[string]int `mapstructure:"lines"`
}

type WateringConfig struct {
	MaxDuration        int           `mapstructure:"max_duration"`
	DurationUnit       time.Duration `mapstructure:"duration_unit"`
	AcquireTimeout     time.Duration `mapstructure:"acquire_timeout"`
	Executor           string        `mapstructure:"executor"`
	WorkerPath         string        `mapstructure:"worker_path"`
	SupervisorInterval time.Duration `mapstructure:"supervisor_interval"`
	SupervisorGrace    time.Duration `mapstructure:"supervisor_grace"`
}

type ArbiterConfig struct {
	LockFile string `mapstructure:"lock_file"`
}

type SensorsConfig struct {
	SPIDevice        string         `mapstructure:"spi_device"`
	SPISpeedHz       int64          `mapstructure:"spi_speed_hz"`
	I2CBus           string         `mapstructure:"i2c_bus"`
	TemperatureAddr  int            `mapstructure:"temperature_addr"`
	MoistureChannels map[string]int `mapstructure:"moisture_channels"`
	StreamInterval   time.Duration  `mapstructure:"stream_interval"`
}

// MQTTConfig enables the MQTT publisher when Broker is set.
type MQTTConfig struct {
	Broker      string `mapstructure:"broker"`
	ClientID    string `mapstructure:"client_id"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	TopicPrefix string `mapstructure:"topic_prefix"`
	MaxRetries  int    `mapstructure:"max_retries"`
}

// InfluxConfig enables telemetry export when URL is set.
type InfluxConfig struct {
	URL    string `mapstructure:"url"`
	Token  string `mapstructure:"token"`
	Org    string `mapstructure:"org"`
	Bucket string `mapstructure:"bucket"`
}

type ReportingConfig struct {
	CallbackURL     string        `mapstructure:"callback_url"`
	Timeout         time.Duration `mapstructure:"timeout"`
	BreakerFailures uint32        `mapstructure:"breaker_failures"`
	BreakerOpen     time.Duration `mapstructure:"breaker_open"`
}

var defaults = map[string]any{
	"port":      "8000",
	"log_level": "info",
	"db.path":   "e-garden.db",

	"auth.jwt_secret": "",

	"hardware.backend":             "auto",
	"hardware.gpiomem":             "/dev/gpiomem",
	"hardware.chip":                "gpiochip0",
	"hardware.sysfs_root":          "/sys/class/gpio",
	"hardware.command":             "",
	"hardware.simulation_wait_cap": "5s",

	"valves.pump_line":        6,
	"valves.pump_active_low":  false,
	"valves.valve_active_low": true,
	"valves.lines": map[string]any{
		"1": 4, "2": 17, "3": 27, "4": 22, "5": 16, "6": 5,
		"7": 26, "8": 23, "9": 24, "10": 25, "11": 12, "12": 16,
	},

	"watering.max_duration":        60,
	"watering.duration_unit":       "1m",
	"watering.acquire_timeout":     "0s",
	"watering.executor":            ExecutorInProcess,
	"watering.worker_path":         "water-worker",
	"watering.supervisor_interval": "30s",
	"watering.supervisor_grace":    "2m",

	"arbiter.lock_file": "",

	"sensors.spi_device":        "/dev/spidev0.0",
	"sensors.spi_speed_hz":      50000,
	"sensors.i2c_bus":           "1",
	"sensors.temperature_addr":  0x18,
	"sensors.moisture_channels": map[string]any{"5": 0, "8": 1, "11": 2},
	"sensors.stream_interval":   "5s",

	"mqtt.broker":       "",
	"mqtt.client_id":    "e-garden",
	"mqtt.topic_prefix": "e-garden",
	"mqtt.max_retries":  5,

	"influx.url":    "",
	"influx.org":    "e-garden",
	"influx.bucket": "telemetry",

	"reporting.callback_url":     "http://127.0.0.1:8000/internal/watering/status",
	"reporting.timeout":          "5s",
	"reporting.breaker_failures": 3,
	"reporting.breaker_open":     "30s",
}

// New returns a viper instance with defaults, search paths and env binding applied.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetConfigName("config") // configs/config.yml
	v.AddConfigPath("configs")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/e-garden")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads configuration from the default locations.
func Load() (Config, error) {
	return Read(New())
}

// Read loads the config file known to v (a missing file is not an error),
// decodes it and validates the result.
func Read(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects settings the services cannot run with.
func (c Config) Validate() error {
	if c.Watering.MaxDuration <= 0 {
		return fmt.Errorf("watering.max_duration must be > 0, got %d", c.Watering.MaxDuration)
	}
	if c.Watering.DurationUnit <= 0 {
		return fmt.Errorf("watering.duration_unit must be > 0, got %s", c.Watering.DurationUnit)
	}
	if c.Watering.AcquireTimeout < 0 {
		return fmt.Errorf("watering.acquire_timeout must be >= 0, got %s", c.Watering.AcquireTimeout)
	}
	if c.Watering.SupervisorInterval <= 0 {
		return fmt.Errorf("watering.supervisor_interval must be > 0, got %s", c.Watering.SupervisorInterval)
	}
	switch c.Watering.Executor {
	case ExecutorInProcess, ExecutorWorker:
	default:
		return fmt.Errorf("watering.executor must be %q or %q, got %q", ExecutorInProcess, ExecutorWorker, c.Watering.Executor)
	}
	if c.Watering.Executor == ExecutorWorker && c.Arbiter.LockFile == "" {
		return errors.New("watering.executor=worker requires arbiter.lock_file")
	}
	if _, err := c.Valves.LineTable(); err != nil {
		return err
	}
	if _, err := c.Sensors.ChannelTable(); err != nil {
		return err
	}
	return nil
}

// LineTable converts the position → line map to integer keys.
func (c ValvesConfig) LineTable() (map[int]int, error) {
	return intKeys("valves.lines", c.Lines)
}

// ChannelTable converts the place → ADC channel map to integer keys.
func (c SensorsConfig) ChannelTable() (map[int]int, error) {
	return intKeys("sensors.moisture_channels", c.MoistureChannels)
}

func intKeys(name string, in map[string]int) (map[int]int, error) {
	out := make(map[int]int, len(in))
	for k, v := range in {
		n, err := strconv.Atoi(strings.TrimSpace(k))
		if err != nil {
			return nil, fmt.Errorf("%s: key %q is not an integer", name, k)
		}
		out[n] = v
	}
	return out, nil
}
