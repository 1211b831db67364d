package config

import (
	"fmt"
	"log/slog"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	AppEnv   string
	LogLevel slog.Level

	BusBackend string
	PTDriver   string
	PTBus      string
	PTAddress  uint16
	RHBus      string
	RHAddress  uint16

	TargetHost string
	TargetPort int
	TargetPath string
	APIKey     string
	DeviceID   string

	SendInterval         time.Duration
	DeliveryPollInterval time.Duration
	DeliveryTimeout      time.Duration
	HumiditySettle       time.Duration
	NetworkWait          time.Duration

	JournalPath string

	MQTTBroker   string
	MQTTPort     int
	MQTTClientID string

	BLEAdvertise         bool
	BLEAdvertiseDuration time.Duration

	StatusAddr string
}

const (
	BusPeriph = "periph"
	BusSim    = "sim"

	DriverNative = "native"
	DriverBMXX80 = "bmxx80"
)

var deviceIDPattern = regexp.MustCompile(`^[0-9A-Za-z_-]{1,64}$`)

// LoadFromEnv reads the configuration from the environment. When CONFIG_FILE
// names a YAML file, its keys (the same names as the variables) supply
// defaults that the environment overrides.
func LoadFromEnv() (Config, error) {
	src := source{}
	if path := strings.TrimSpace(os.Getenv("CONFIG_FILE")); path != "" {
		file, err := readFile(path)
		if err != nil {
			return Config{}, err
		}
		src.file = file
	}
	return load(src)
}

func load(src source) (Config, error) {
	var cfg Config
	var err error

	cfg.AppEnv = src.get("APP_ENV", "dev")
	switch cfg.AppEnv {
	case "dev", "prod":
	default:
		return Config{}, fmt.Errorf("invalid APP_ENV %q (allowed: dev, prod)", cfg.AppEnv)
	}

	if cfg.LogLevel, err = parseLogLevel(src.get("LOG_LEVEL", "info")); err != nil {
		return Config{}, err
	}

	cfg.BusBackend = strings.ToLower(src.get("BUS_BACKEND", BusPeriph))
	switch cfg.BusBackend {
	case BusPeriph, BusSim:
	default:
		return Config{}, fmt.Errorf("invalid BUS_BACKEND %q (allowed: periph, sim)", cfg.BusBackend)
	}

	cfg.PTDriver = strings.ToLower(src.get("PT_DRIVER", DriverNative))
	switch cfg.PTDriver {
	case DriverNative, DriverBMXX80:
	default:
		return Config{}, fmt.Errorf("invalid PT_DRIVER %q (allowed: native, bmxx80)", cfg.PTDriver)
	}
	if cfg.PTDriver == DriverBMXX80 && cfg.BusBackend == BusSim {
		return Config{}, fmt.Errorf("PT_DRIVER %q requires BUS_BACKEND %q", DriverBMXX80, BusPeriph)
	}

	cfg.PTBus = src.get("PT_BUS", "")
	if cfg.PTAddress, err = parseAddress(src, "PT_ADDRESS", "0x76"); err != nil {
		return Config{}, err
	}
	cfg.RHBus = src.get("RH_BUS", "")
	if cfg.RHAddress, err = parseAddress(src, "RH_ADDRESS", "0x38"); err != nil {
		return Config{}, err
	}

	cfg.TargetHost = src.get("TARGET_HOST", "")
	if cfg.TargetHost == "" {
		return Config{}, fmt.Errorf("TARGET_HOST is required")
	}
	if strings.ContainsAny(cfg.TargetHost, " \t\r\n/") {
		return Config{}, fmt.Errorf("invalid TARGET_HOST %q", cfg.TargetHost)
	}
	if cfg.TargetPort, err = parsePort(src, "TARGET_PORT", "80"); err != nil {
		return Config{}, err
	}
	cfg.TargetPath = src.get("TARGET_PATH", "/api/readings")
	if !strings.HasPrefix(cfg.TargetPath, "/") || strings.ContainsAny(cfg.TargetPath, " \r\n") {
		return Config{}, fmt.Errorf("invalid TARGET_PATH %q (must start with /, no whitespace)", cfg.TargetPath)
	}
	cfg.APIKey = src.get("API_KEY", "")
	if strings.ContainsAny(cfg.APIKey, "\r\n") {
		return Config{}, fmt.Errorf("invalid API_KEY: contains line break")
	}

	cfg.DeviceID = src.get("DEVICE_ID", "")
	if cfg.DeviceID != "" && !deviceIDPattern.MatchString(cfg.DeviceID) {
		return Config{}, fmt.Errorf("invalid DEVICE_ID %q (allowed: 1-64 of [0-9A-Za-z_-])", cfg.DeviceID)
	}

	durations := []struct {
		key      string
		def      string
		dst      *time.Duration
		positive bool
	}{
		{"SEND_INTERVAL", "5s", &cfg.SendInterval, true},
		{"DELIVERY_POLL_INTERVAL", "1s", &cfg.DeliveryPollInterval, true},
		{"DELIVERY_TIMEOUT", "20s", &cfg.DeliveryTimeout, true},
		{"HUMIDITY_SETTLE", "80ms", &cfg.HumiditySettle, false},
		{"NETWORK_WAIT", "30s", &cfg.NetworkWait, false},
		{"BLE_ADVERTISE_DURATION", "600ms", &cfg.BLEAdvertiseDuration, true},
	}
	for _, d := range durations {
		if *d.dst, err = parseDuration(src, d.key, d.def, d.positive); err != nil {
			return Config{}, err
		}
	}

	cfg.JournalPath = src.get("JOURNAL_PATH", "")

	cfg.MQTTBroker = src.get("MQTT_BROKER", "")
	if cfg.MQTTPort, err = parsePort(src, "MQTT_PORT", "1883"); err != nil {
		return Config{}, err
	}
	cfg.MQTTClientID = src.get("MQTT_CLIENT_ID", "cloudpico-node")

	bleStr := src.get("BLE_ADVERTISE", "false")
	if cfg.BLEAdvertise, err = strconv.ParseBool(bleStr); err != nil {
		return Config{}, fmt.Errorf("invalid BLE_ADVERTISE %q: %w", bleStr, err)
	}

	cfg.StatusAddr = src.get("STATUS_ADDR", "")

	return cfg, nil
}

// source resolves a key from the environment first, then the config file.
type source struct {
	file map[string]string
}

func (s source) get(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	if v := strings.TrimSpace(s.file[key]); v != "" {
		return v
	}
	return def
}

func readFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read CONFIG_FILE %q: %w", path, err)
	}
	raw := map[string]string{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse CONFIG_FILE %q: %w", path, err)
	}
	out := make(map[string]string, len(raw))
	for k, v := range raw {
		out[strings.ToUpper(strings.TrimSpace(k))] = v
	}
	return out, nil
}

func parseAddress(src source, key, def string) (uint16, error) {
	s := src.get(key, def)
	v, err := strconv.ParseUint(s, 0, 7)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	return uint16(v), nil
}

func parsePort(src source, key, def string) (int, error) {
	s := src.get(key, def)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if v < 1 || v > 65535 {
		return 0, fmt.Errorf("invalid %s %q: out of range", key, s)
	}
	return v, nil
}

func parseDuration(src source, key, def string, positive bool) (time.Duration, error) {
	s := src.get(key, def)
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", key, s, err)
	}
	if positive && d <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %v", key, d)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must not be negative, got %v", key, d)
	}
	return d, nil
}

func parseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("invalid LOG_LEVEL %q (allowed: debug, info, warn, error)", s)
	}
}
