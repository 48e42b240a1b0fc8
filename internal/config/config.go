// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	log "github.com/sirupsen/logrus"
)

// Read error policies for the reporting loop.
const (
	ReadErrorReportInvalid = "report_invalid"
	ReadErrorSkip          = "skip"
)

// Config holds all application configuration values.
type Config struct {
	// MQTT
	MQTTBroker          string
	MQTTClientID        string
	MQTTClientIDConsole string
	NodeID              string

	// I2C bus
	I2CBus       string
	I2CClockHz   int
	I2CTimeoutMS int

	// Accelerometer
	ADXL345I2CAddr  uint16
	ReportingPeriod int // seconds
	ReadErrorPolicy string

	// Calibration: calibrated = (raw + offset) * scale
	CalOffsetX int
	CalOffsetY int
	CalOffsetZ int
	CalScale   float64

	// Reset button
	ButtonGPIO                string
	ButtonActiveLevel         int
	WiFiResetButtonTimeout    int // seconds
	FactoryResetButtonTimeout int // seconds

	// Local outputs (0 disables)
	DisplayI2CAddr uint16
	WebServerPort  int

	LogLevel log.Level
}

// Default returns the configuration used for keys absent from the file.
func Default() *Config {
	return &Config{
		MQTTClientID:              "accel-node",
		MQTTClientIDConsole:       "accel-console-subscriber",
		I2CBus:                    "",
		I2CClockHz:                100000,
		I2CTimeoutMS:              1000,
		ADXL345I2CAddr:            0x53,
		ReportingPeriod:           5,
		ReadErrorPolicy:           ReadErrorReportInvalid,
		CalOffsetX:                -24,
		CalOffsetY:                9,
		CalOffsetZ:                8,
		CalScale:                  3.9 / 1000,
		ButtonActiveLevel:         0,
		WiFiResetButtonTimeout:    3,
		FactoryResetButtonTimeout: 10,
		LogLevel:                  log.InfoLevel,
	}
}

// Global configuration instance protected by RWMutex.
//
// External code must use InitGlobal() to set and Get() to read.
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

	cfg := Default()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

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
	case "MQTT_CLIENT_ID":
		c.MQTTClientID = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "NODE_ID":
		c.NodeID = value

	// I2C bus
	case "I2C_BUS":
		c.I2CBus = value
	case "I2C_CLOCK_HZ":
		hz, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid I2C_CLOCK_HZ %q: %w", value, err)
		}
		if hz < 10000 || hz > 1000000 {
			return fmt.Errorf("I2C_CLOCK_HZ must be 10000-1000000, got %d", hz)
		}
		c.I2CClockHz = hz
	case "I2C_TIMEOUT_MS":
		ms, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid I2C_TIMEOUT_MS %q: %w", value, err)
		}
		if ms <= 0 {
			return fmt.Errorf("I2C_TIMEOUT_MS must be positive, got %d", ms)
		}
		c.I2CTimeoutMS = ms

	// Accelerometer
	case "ADXL345_I2C_ADDR":
		addr, err := parseI2CAddr(value)
		if err != nil {
			return fmt.Errorf("invalid ADXL345_I2C_ADDR %q: %w", value, err)
		}
		c.ADXL345I2CAddr = addr
	case "REPORTING_PERIOD":
		period, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid REPORTING_PERIOD %q: %w", value, err)
		}
		if period <= 0 {
			return fmt.Errorf("REPORTING_PERIOD must be positive, got %d", period)
		}
		c.ReportingPeriod = period
	case "READ_ERROR_POLICY":
		if value != ReadErrorReportInvalid && value != ReadErrorSkip {
			return fmt.Errorf("READ_ERROR_POLICY must be %q or %q, got %q", ReadErrorReportInvalid, ReadErrorSkip, value)
		}
		c.ReadErrorPolicy = value

	// Calibration
	case "CAL_OFFSET_X":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CAL_OFFSET_X %q: %w", value, err)
		}
		c.CalOffsetX = v
	case "CAL_OFFSET_Y":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CAL_OFFSET_Y %q: %w", value, err)
		}
		c.CalOffsetY = v
	case "CAL_OFFSET_Z":
		v, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CAL_OFFSET_Z %q: %w", value, err)
		}
		c.CalOffsetZ = v
	case "CAL_SCALE":
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return fmt.Errorf("invalid CAL_SCALE %q: %w", value, err)
		}
		if v <= 0 {
			return fmt.Errorf("CAL_SCALE must be positive, got %g", v)
		}
		c.CalScale = v

	// Reset button
	case "BUTTON_GPIO":
		c.ButtonGPIO = value
	case "BUTTON_ACTIVE_LEVEL":
		level, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid BUTTON_ACTIVE_LEVEL %q: %w", value, err)
		}
		if level != 0 && level != 1 {
			return fmt.Errorf("BUTTON_ACTIVE_LEVEL must be 0 or 1, got %d", level)
		}
		c.ButtonActiveLevel = level
	case "WIFI_RESET_BUTTON_TIMEOUT":
		s, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WIFI_RESET_BUTTON_TIMEOUT %q: %w", value, err)
		}
		c.WiFiResetButtonTimeout = s
	case "FACTORY_RESET_BUTTON_TIMEOUT":
		s, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid FACTORY_RESET_BUTTON_TIMEOUT %q: %w", value, err)
		}
		c.FactoryResetButtonTimeout = s

	// Local outputs
	case "DISPLAY_I2C_ADDR":
		addr, err := parseI2CAddr(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_I2C_ADDR %q: %w", value, err)
		}
		if addr != 0 && addr != DisplayAddr {
			return fmt.Errorf("DISPLAY_I2C_ADDR must be 0 or 0x%02X, got 0x%02X", DisplayAddr, addr)
		}
		c.DisplayI2CAddr = addr
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		if port < 0 || port > 65535 {
			return fmt.Errorf("WEB_SERVER_PORT must be 0-65535, got %d", port)
		}
		c.WebServerPort = port

	case "LOG_LEVEL":
		level, err := log.ParseLevel(value)
		if err != nil {
			return fmt.Errorf("invalid LOG_LEVEL %q: %w", value, err)
		}
		c.LogLevel = level

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// DisplayAddr is the only address the SSD1306 driver talks to.
const DisplayAddr = 0x3C

// parseI2CAddr accepts decimal or 0x-prefixed 7-bit addresses. Zero is allowed
// and means "not fitted".
func parseI2CAddr(value string) (uint16, error) {
	addr, err := strconv.ParseUint(value, 0, 16)
	if err != nil {
		return 0, err
	}
	if addr > 0x7F {
		return 0, fmt.Errorf("address 0x%X is not a 7-bit address", addr)
	}
	return uint16(addr), nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.NodeID == "" {
		return fmt.Errorf("NODE_ID is required")
	}
	if c.ADXL345I2CAddr == 0 {
		return fmt.Errorf("ADXL345_I2C_ADDR is required")
	}
	if c.WiFiResetButtonTimeout <= 0 || c.FactoryResetButtonTimeout <= c.WiFiResetButtonTimeout {
		return fmt.Errorf("button timeouts must satisfy 0 < WIFI_RESET_BUTTON_TIMEOUT (%d) < FACTORY_RESET_BUTTON_TIMEOUT (%d)",
			c.WiFiResetButtonTimeout, c.FactoryResetButtonTimeout)
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
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
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
