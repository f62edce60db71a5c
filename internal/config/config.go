package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientIDFusion  string
	MQTTClientIDGPS     string
	MQTTClientIDBaro    string
	MQTTClientIDIMU     string
	MQTTClientIDPose    string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicIMU      string
	TopicGPS      string
	TopicBaro     string
	TopicRange    string
	TopicPose     string
	TopicEstimate string

	// GPS
	GPSSerialPort string
	GPSBaudRate   int

	// Barometer
	BaroSPIDevice      string
	BaroSampleInterval int // milliseconds

	// IMU
	IMUSampleInterval int // milliseconds

	// Filter tuning
	FilterBufferSize   int
	FilterInitVariance float64

	// Measurement noise variances
	NoiseGPSPosition  float64 // m²
	NoiseBaroAltitude float64 // m²
	NoiseRange        float64 // m²
	NoisePosePosition float64 // m²
	NoisePoseAttitude float64 // rad²

	// Scheduler
	SchedSettleMS   int // settle window before dispatch, milliseconds
	SchedMaxDelayMS int // reprocessing horizon, milliseconds
	SchedIntervalMS int // dispatch loop pacing, milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayI2CAddr        uint16
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported (lowercase) so other packages cannot access it directly.
//     This enforces encapsulation and prevents external code from modifying config without proper locking.
//     Has package-level scope (visible to all functions in this package, persists for program lifetime).
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access. Write lock (Lock) for initialization,
//     read lock (RLock) for Get() allows multiple concurrent readers without blocking each other.
//
// External code must use InitGlobal() to set and Get() to read, ensuring thread safety.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := &Config{}
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_FUSION":
		c.MQTTClientIDFusion = value
	case "MQTT_CLIENT_ID_GPS":
		c.MQTTClientIDGPS = value
	case "MQTT_CLIENT_ID_BARO":
		c.MQTTClientIDBaro = value
	case "MQTT_CLIENT_ID_IMU":
		c.MQTTClientIDIMU = value
	case "MQTT_CLIENT_ID_POSE":
		c.MQTTClientIDPose = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_IMU":
		c.TopicIMU = value
	case "TOPIC_GPS":
		c.TopicGPS = value
	case "TOPIC_BARO":
		c.TopicBaro = value
	case "TOPIC_RANGE":
		c.TopicRange = value
	case "TOPIC_POSE":
		c.TopicPose = value
	case "TOPIC_ESTIMATE":
		c.TopicEstimate = value

	// GPS
	case "GPS_SERIAL_PORT":
		c.GPSSerialPort = value
	case "GPS_BAUD_RATE":
		rate, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid GPS_BAUD_RATE %q: %w", value, err)
		}
		c.GPSBaudRate = rate

	// Barometer
	case "BARO_SPI_DEVICE":
		c.BaroSPIDevice = value
	case "BARO_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BARO_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.BaroSampleInterval = interval

	// IMU
	case "IMU_SAMPLE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SAMPLE_INTERVAL %q: %w", value, err)
		}
		c.IMUSampleInterval = interval

	// Filter tuning
	case "FILTER_BUFFER_SIZE":
		size, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FILTER_BUFFER_SIZE %q: %w", value, err)
		}
		if size <= 0 {
			return fmt.Errorf("FILTER_BUFFER_SIZE must be positive, got %d", size)
		}
		c.FilterBufferSize = size
	case "FILTER_INIT_VARIANCE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid FILTER_INIT_VARIANCE %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("FILTER_INIT_VARIANCE must be positive, got %g", v)
		}
		c.FilterInitVariance = v

	// Measurement noise
	case "NOISE_GPS_POSITION":
		return c.setNoise(&c.NoiseGPSPosition, key, value)
	case "NOISE_BARO_ALTITUDE":
		return c.setNoise(&c.NoiseBaroAltitude, key, value)
	case "NOISE_RANGE":
		return c.setNoise(&c.NoiseRange, key, value)
	case "NOISE_POSE_POSITION":
		return c.setNoise(&c.NoisePosePosition, key, value)
	case "NOISE_POSE_ATTITUDE":
		return c.setNoise(&c.NoisePoseAttitude, key, value)

	// Scheduler
	case "SCHED_SETTLE_MS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCHED_SETTLE_MS %q: %w", value, err)
		}
		c.SchedSettleMS = v
	case "SCHED_MAX_DELAY_MS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCHED_MAX_DELAY_MS %q: %w", value, err)
		}
		c.SchedMaxDelayMS = v
	case "SCHED_INTERVAL_MS":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SCHED_INTERVAL_MS %q: %w", value, err)
		}
		c.SchedIntervalMS = v

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_I2C_ADDR":
		addr, err := strconv.ParseUint(value, 0, 16)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		c.DisplayI2CAddr = uint16(addr)
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// setNoise parses a positive variance value.
func (c *Config) setNoise(dst *float64, key, value string) error {
	v, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fmt.Errorf("invalid %s %q: %w", key, value, err)
	}
	if v <= 0 {
		return fmt.Errorf("%s must be positive, got %g", key, v)
	}
	*dst = v
	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TopicIMU == "" {
		return fmt.Errorf("TOPIC_IMU is required")
	}
	if c.TopicEstimate == "" {
		return fmt.Errorf("TOPIC_ESTIMATE is required")
	}
	if c.GPSSerialPort == "" {
		return fmt.Errorf("GPS_SERIAL_PORT is required")
	}
	if c.GPSBaudRate == 0 {
		return fmt.Errorf("GPS_BAUD_RATE is required")
	}
	if c.IMUSampleInterval == 0 {
		return fmt.Errorf("IMU_SAMPLE_INTERVAL is required")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
// Acquires write lock (configMu.Lock) during initialization to prevent concurrent access.
// This is the only function that can set globalConfig.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
// Uses read lock (configMu.RLock) to allow multiple concurrent readers without blocking.
// This is thread-safe and efficient for concurrent access across goroutines.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
