// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"
	"periph.io/x/conn/v3/physic"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/calibration"
	"github.com/relabs-tech/accel_node/internal/sensors"
)

// I2C clock limits accepted by set_i2c_speed (standard and fast mode).
const (
	minI2CSpeedHz = 10000
	maxI2CSpeedHz = 400000
)

// RegisterDevice is the accelerometer as seen by the register debugger.
// *sensors.ADXL345 satisfies it.
type RegisterDevice interface {
	Init(ctx context.Context) error
	ReadRaw(ctx context.Context) (accel.RawSample, error)
	ReadRegister(ctx context.Context, reg byte) (byte, error)
	WriteRegister(ctx context.Context, reg, value byte) error
	ReadAllRegisters(ctx context.Context) (map[byte]byte, error)
	ExportRegisterConfig(ctx context.Context) (map[byte]byte, error)
}

// SpeedSetter changes the bus clock. *i2cbus.Bus satisfies it.
type SpeedSetter interface {
	SetSpeed(f physic.Frequency) error
}

// RegisterDebugger serves the register debug websocket and the live data
// endpoint for one device.
type RegisterDebugger struct {
	dev   RegisterDevice
	bus   SpeedSetter
	coeff calibration.Coefficients

	// serialises multi-register operations between sessions
	mu sync.Mutex
}

func NewRegisterDebugger(dev RegisterDevice, bus SpeedSetter, coeff calibration.Coefficients) *RegisterDebugger {
	return &RegisterDebugger{dev: dev, bus: bus, coeff: coeff}
}

// RegisterDebugSession holds WebSocket connection state for register debugging
type RegisterDebugSession struct {
	Conn *websocket.Conn
	dbg  *RegisterDebugger
	ctx  context.Context
}

// Response types
type RegisterResponse struct {
	Type        string                 `json:"type"` // "register_data", "register_map", "status", "error"
	Device      string                 `json:"device,omitempty"`
	Address     string                 `json:"addr,omitempty"`
	Value       string                 `json:"value,omitempty"`
	Registers   map[string]string      `json:"registers,omitempty"` // for bulk read
	Timestamp   string                 `json:"timestamp,omitempty"`
	Message     string                 `json:"message,omitempty"`
	Status      string                 `json:"status,omitempty"`
	SpeedHz     int64                  `json:"speed_hz,omitempty"`
	RegisterMap []sensors.RegisterInfo `json:"register_map,omitempty"`
}

// RegisterConfigFile represents the JSON structure for exported register configuration
type RegisterConfigFile struct {
	Version   int               `json:"version"`
	Device    string            `json:"device"`
	Timestamp string            `json:"timestamp"`
	Registers map[string]string `json:"registers"` // hex address -> hex value
}

const deviceName = "adxl345"

// HandleWS handles the WebSocket connection for register debugging
func (d *RegisterDebugger) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("register_debug: websocket upgrade error: %v", err)
		return
	}
	defer conn.Close()

	session := &RegisterDebugSession{Conn: conn, dbg: d, ctx: r.Context()}

	if err := session.sendRegisterMap(); err != nil {
		log.Printf("register_debug: error sending register map: %v", err)
		return
	}

	for {
		var rawMsg map[string]interface{}
		err := conn.ReadJSON(&rawMsg)
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("register_debug: websocket error: %v", err)
			}
			break
		}

		action, ok := rawMsg["action"].(string)
		if !ok {
			session.sendError("missing or invalid action field")
			continue
		}

		switch action {
		case "get_map":
			session.sendRegisterMap()
		case "read":
			session.handleRead(rawMsg)
		case "read_all":
			session.handleReadAll()
		case "write":
			session.handleWrite(rawMsg)
		case "init":
			session.handleInit()
		case "set_i2c_speed":
			session.handleSetI2CSpeed(rawMsg)
		case "export_config":
			session.handleExportConfig()
		default:
			session.sendError(fmt.Sprintf("unknown action: %s", action))
		}
	}
}

func parseHexByte(s string) (byte, error) {
	var b byte
	if _, err := fmt.Sscanf(s, "0x%X", &b); err != nil {
		return 0, err
	}
	return b, nil
}

func hexRegisters(regs map[byte]byte) map[string]string {
	out := make(map[string]string, len(regs))
	for addr, value := range regs {
		out[fmt.Sprintf("0x%02X", addr)] = fmt.Sprintf("0x%02X", value)
	}
	return out
}

func (s *RegisterDebugSession) handleRead(rawMsg map[string]interface{}) {
	addr, _ := rawMsg["addr"].(string)
	if addr == "" {
		s.sendError("missing addr field")
		return
	}
	reg, err := parseHexByte(addr)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid address format: %s", addr))
		return
	}

	s.dbg.mu.Lock()
	value, err := s.dbg.dev.ReadRegister(s.ctx, reg)
	s.dbg.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("read error: %v", err))
		return
	}

	s.Conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    deviceName,
		Address:   addr,
		Value:     fmt.Sprintf("0x%02X", value),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *RegisterDebugSession) handleReadAll() {
	s.dbg.mu.Lock()
	registers, err := s.dbg.dev.ReadAllRegisters(s.ctx)
	s.dbg.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("read all error: %v", err))
		return
	}

	s.Conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    deviceName,
		Registers: hexRegisters(registers),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}

func (s *RegisterDebugSession) handleWrite(rawMsg map[string]interface{}) {
	addr, _ := rawMsg["addr"].(string)
	valueStr, _ := rawMsg["value"].(string)
	if addr == "" || valueStr == "" {
		s.sendError("missing addr or value field")
		return
	}

	reg, err := parseHexByte(addr)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid address format: %s", addr))
		return
	}
	value, err := parseHexByte(valueStr)
	if err != nil {
		s.sendError(fmt.Sprintf("invalid value format: %s", valueStr))
		return
	}

	s.dbg.mu.Lock()
	err = s.dbg.dev.WriteRegister(s.ctx, reg, value)
	s.dbg.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("write error: %v", err))
		return
	}
	log.Printf("register_debug: wrote 0x%02X to register 0x%02X", value, reg)

	s.Conn.WriteJSON(RegisterResponse{
		Type:      "register_data",
		Device:    deviceName,
		Address:   addr,
		Value:     valueStr,
		Timestamp: time.Now().Format(time.RFC3339),
		Message:   "write successful",
	})
}

func (s *RegisterDebugSession) handleInit() {
	s.dbg.mu.Lock()
	err := s.dbg.dev.Init(s.ctx)
	s.dbg.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("reinit error: %v", err))
		return
	}

	s.Conn.WriteJSON(RegisterResponse{
		Type:    "status",
		Device:  deviceName,
		Status:  "initialized",
		Message: "device reinitialized successfully",
	})
}

func (s *RegisterDebugSession) handleSetI2CSpeed(rawMsg map[string]interface{}) {
	speed, _ := rawMsg["speed_hz"].(float64)
	hz := int64(speed)
	if hz < minI2CSpeedHz {
		hz = minI2CSpeedHz
	}
	if hz > maxI2CSpeedHz {
		hz = maxI2CSpeedHz
	}

	if s.dbg.bus == nil {
		s.sendError("bus speed cannot be changed")
		return
	}
	if err := s.dbg.bus.SetSpeed(physic.Frequency(hz) * physic.Hertz); err != nil {
		s.sendError(fmt.Sprintf("set i2c speed error: %v", err))
		return
	}

	s.Conn.WriteJSON(RegisterResponse{
		Type:    "status",
		Device:  deviceName,
		SpeedHz: hz,
		Message: "I2C speed updated",
	})
}

func (s *RegisterDebugSession) handleExportConfig() {
	s.dbg.mu.Lock()
	registers, err := s.dbg.dev.ExportRegisterConfig(s.ctx)
	s.dbg.mu.Unlock()
	if err != nil {
		s.sendError(fmt.Sprintf("export error: %v", err))
		return
	}

	configFile := RegisterConfigFile{
		Version:   1,
		Device:    deviceName,
		Timestamp: time.Now().Format(time.RFC3339),
		Registers: hexRegisters(registers),
	}

	configJSON, _ := json.Marshal(configFile)
	s.Conn.WriteJSON(map[string]interface{}{
		"type":     "export_config",
		"device":   deviceName,
		"message":  "config exported",
		"config":   string(configJSON),
		"filename": fmt.Sprintf("%s_%s_registers.json", deviceName, time.Now().Format("20060102_150405")),
	})
}

func (s *RegisterDebugSession) sendRegisterMap() error {
	return s.Conn.WriteJSON(RegisterResponse{
		Type:        "register_map",
		Device:      deviceName,
		RegisterMap: sensors.GetADXL345RegisterMap(),
	})
}

func (s *RegisterDebugSession) sendError(message string) {
	s.Conn.WriteJSON(RegisterResponse{
		Type:    "error",
		Message: message,
	})
}

// HandleAccelData serves one live reading, raw and calibrated.
func (d *RegisterDebugger) HandleAccelData(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Access-Control-Allow-Origin", "*")

	d.mu.Lock()
	raw, err := d.dev.ReadRaw(r.Context())
	d.mu.Unlock()
	if err != nil {
		http.Error(w, fmt.Sprintf(`{"error": "%v"}`, err), http.StatusInternalServerError)
		return
	}

	s := accel.Sample{Time: time.Now()}
	for _, a := range accel.Axes {
		s.Readings[a] = accel.Reading{Axis: a, Raw: raw.At(a), Value: d.coeff.Apply(a, raw.At(a)), Valid: true}
	}
	json.NewEncoder(w).Encode(s)
}

// Handler returns the debug routes.
func (d *RegisterDebugger) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws/registers", d.HandleWS)
	mux.HandleFunc("/api/accel/live", d.HandleAccelData)
	return mux
}
