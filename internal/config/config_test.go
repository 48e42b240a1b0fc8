package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accel_config.txt")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, `
# minimal node
MQTT_BROKER=tcp://localhost:1883
NODE_ID=accel-01
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.MQTTBroker != "tcp://localhost:1883" {
		t.Errorf("expected broker tcp://localhost:1883, got %q", cfg.MQTTBroker)
	}
	if cfg.ReportingPeriod != 5 {
		t.Errorf("expected default reporting period 5, got %d", cfg.ReportingPeriod)
	}
	if cfg.ADXL345I2CAddr != 0x53 {
		t.Errorf("expected default ADXL345 address 0x53, got 0x%X", cfg.ADXL345I2CAddr)
	}
	if cfg.CalOffsetX != -24 || cfg.CalOffsetY != 9 || cfg.CalOffsetZ != 8 {
		t.Errorf("unexpected default offsets: %d %d %d", cfg.CalOffsetX, cfg.CalOffsetY, cfg.CalOffsetZ)
	}
	if cfg.I2CTimeoutMS != 1000 {
		t.Errorf("expected default bus timeout 1000ms, got %d", cfg.I2CTimeoutMS)
	}
	if cfg.WiFiResetButtonTimeout != 3 || cfg.FactoryResetButtonTimeout != 10 {
		t.Errorf("unexpected button timeouts: %d %d", cfg.WiFiResetButtonTimeout, cfg.FactoryResetButtonTimeout)
	}
	if cfg.ReadErrorPolicy != ReadErrorReportInvalid {
		t.Errorf("expected policy %q, got %q", ReadErrorReportInvalid, cfg.ReadErrorPolicy)
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
MQTT_BROKER=tcp://broker:1883
NODE_ID=accel-02
I2C_BUS=1
ADXL345_I2C_ADDR=0x1D
REPORTING_PERIOD=2
CAL_OFFSET_X=-10
CAL_SCALE=0.004
DISPLAY_I2C_ADDR=0x3C
READ_ERROR_POLICY=skip
LOG_LEVEL=debug
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.I2CBus != "1" {
		t.Errorf("expected I2C bus 1, got %q", cfg.I2CBus)
	}
	if cfg.ADXL345I2CAddr != 0x1D {
		t.Errorf("expected ADXL345 address 0x1D, got 0x%X", cfg.ADXL345I2CAddr)
	}
	if cfg.ReportingPeriod != 2 {
		t.Errorf("expected reporting period 2, got %d", cfg.ReportingPeriod)
	}
	if cfg.CalOffsetX != -10 {
		t.Errorf("expected X offset -10, got %d", cfg.CalOffsetX)
	}
	if cfg.CalScale != 0.004 {
		t.Errorf("expected scale 0.004, got %g", cfg.CalScale)
	}
	if cfg.DisplayI2CAddr != 0x3C {
		t.Errorf("expected display address 0x3C, got 0x%X", cfg.DisplayI2CAddr)
	}
	if cfg.ReadErrorPolicy != ReadErrorSkip {
		t.Errorf("expected policy skip, got %q", cfg.ReadErrorPolicy)
	}
	if cfg.LogLevel != log.DebugLevel {
		t.Errorf("expected debug level, got %v", cfg.LogLevel)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"missing broker", "NODE_ID=a\n", "MQTT_BROKER is required"},
		{"missing node", "MQTT_BROKER=tcp://x:1883\n", "NODE_ID is required"},
		{"unknown key", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nFOO=1\n", "unknown config key"},
		{"malformed line", "MQTT_BROKER\n", "invalid config line 1"},
		{"bad period", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nREPORTING_PERIOD=0\n", "REPORTING_PERIOD must be positive"},
		{"bad address", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nADXL345_I2C_ADDR=0x80\n", "not a 7-bit address"},
		{"bad policy", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nREAD_ERROR_POLICY=retry\n", "READ_ERROR_POLICY"},
		{"button order", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nWIFI_RESET_BUTTON_TIMEOUT=10\nFACTORY_RESET_BUTTON_TIMEOUT=3\n", "button timeouts"},
		{"display address", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nDISPLAY_I2C_ADDR=0x3D\n", "DISPLAY_I2C_ADDR must be 0 or 0x3C"},
		{"negative port", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nWEB_SERVER_PORT=-1\n", "WEB_SERVER_PORT must be 0-65535"},
		{"port too large", "MQTT_BROKER=tcp://x:1883\nNODE_ID=a\nWEB_SERVER_PORT=65536\n", "WEB_SERVER_PORT must be 0-65535"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			if err == nil {
				t.Fatalf("expected error containing %q, got nil", tt.want)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.txt")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
