package cloud

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

type doneToken struct {
	err error
}

func (t doneToken) Wait() bool { return true }
func (t doneToken) WaitTimeout(time.Duration) bool { return true }
func (t doneToken) Error() error { return t.err }

func (t doneToken) Done() <-chan struct{} {
	c := make(chan struct{})
	close(c)
	return c
}

var _ mqtt.Token = doneToken{}

type published struct {
	topic    string
	retained bool
	payload  []byte
}

type fakeSession struct {
	mu          sync.Mutex
	connected   bool
	connects    int
	disconnects int
	pubErr      error
	msgs        []published
}

func (s *fakeSession) Connect() mqtt.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.connects++
	s.connected = true
	return doneToken{}
}

func (s *fakeSession) Disconnect(uint) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.disconnects++
	s.connected = false
}

func (s *fakeSession) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *fakeSession) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pubErr != nil {
		return doneToken{err: s.pubErr}
	}
	s.msgs = append(s.msgs, published{topic: topic, retained: retained, payload: payload.([]byte)})
	return doneToken{}
}

func newTestNode() (*Node, *fakeSession) {
	s := &fakeSession{connected: true}
	return NewNode("node-1", "Accelerometer", "Accelerometer", s), s
}

func TestUpdateAndReport(t *testing.T) {
	n, s := newTestNode()
	dev := n.AddTemperatureSensor("Accel X", 0)
	p := dev.ParamByType(ParamTypeTemperature)
	if p == nil {
		t.Fatal("expected temperature param")
	}

	if err := n.UpdateAndReport(p, 0.5); err != nil {
		t.Fatalf("UpdateAndReport failed: %v", err)
	}
	if got := p.Value(); got != 0.5 {
		t.Errorf("expected recorded value 0.5, got %v", got)
	}

	if len(s.msgs) != 1 {
		t.Fatalf("expected 1 publish, got %d", len(s.msgs))
	}
	msg := s.msgs[0]
	if msg.topic != "node/node-1/params/local" {
		t.Errorf("unexpected topic %q", msg.topic)
	}
	var body map[string]map[string]float64
	if err := json.Unmarshal(msg.payload, &body); err != nil {
		t.Fatalf("payload unmarshal: %v", err)
	}
	if body["Accel X"]["Temperature"] != 0.5 {
		t.Errorf("unexpected payload %s", msg.payload)
	}
}

func TestUpdateAndReportErrors(t *testing.T) {
	n, s := newTestNode()
	if err := n.UpdateAndReport(nil, 1); !errors.Is(err, ErrNoParam) {
		t.Errorf("expected ErrNoParam, got %v", err)
	}

	other, _ := newTestNode()
	foreign := other.AddTemperatureSensor("Accel Y", 0).ParamByType(ParamTypeTemperature)
	if err := n.UpdateAndReport(foreign, 1); err == nil {
		t.Error("expected error for param of another node")
	}

	p := n.AddTemperatureSensor("Accel Z", 0).ParamByType(ParamTypeTemperature)
	s.pubErr = errors.New("not connected")
	if err := n.UpdateAndReport(p, 1); err == nil {
		t.Error("expected publish error")
	}
}

func TestParamByTypeMissing(t *testing.T) {
	n, _ := newTestNode()
	dev := n.AddTemperatureSensor("Accel X", 0)
	if p := dev.ParamByType("esp.param.power"); p != nil {
		t.Errorf("expected nil, got %+v", p)
	}
	if p := dev.ParamByType(ParamTypeName); p == nil || p.Value() != "Accel X" {
		t.Errorf("expected name param with device name, got %+v", p)
	}
}

func TestPublishConfig(t *testing.T) {
	n, s := newTestNode()
	n.AddTemperatureSensor("Accel X", 0)
	n.AddTemperatureSensor("Accel Y", 0)
	n.AddTemperatureSensor("Accel Z", 0)

	if err := n.PublishConfig(); err != nil {
		t.Fatalf("PublishConfig failed: %v", err)
	}
	if len(s.msgs) != 1 || s.msgs[0].topic != "node/node-1/config" || !s.msgs[0].retained {
		t.Fatalf("unexpected publishes: %+v", s.msgs)
	}

	var cfg nodeConfig
	if err := json.Unmarshal(s.msgs[0].payload, &cfg); err != nil {
		t.Fatalf("config unmarshal: %v", err)
	}
	if cfg.NodeID != "node-1" || len(cfg.Devices) != 3 {
		t.Fatalf("unexpected config %+v", cfg)
	}
	for i, name := range []string{"Accel X", "Accel Y", "Accel Z"} {
		d := cfg.Devices[i]
		if d.Name != name || d.Type != DeviceTypeTemperatureSensor || d.Primary != "Temperature" {
			t.Errorf("device %d: unexpected %+v", i, d)
		}
	}
}

func TestNetworkReset(t *testing.T) {
	n, s := newTestNode()
	if err := n.NetworkReset(context.Background()); err != nil {
		t.Fatalf("NetworkReset failed: %v", err)
	}
	if s.disconnects != 1 || s.connects != 1 || !s.connected {
		t.Errorf("expected one disconnect and one connect, got %d/%d (connected=%v)", s.disconnects, s.connects, s.connected)
	}
}

func TestFactoryReset(t *testing.T) {
	n, s := newTestNode()
	p := n.AddTemperatureSensor("Accel X", 0).ParamByType(ParamTypeTemperature)
	if err := n.UpdateAndReport(p, 0.75); err != nil {
		t.Fatalf("UpdateAndReport failed: %v", err)
	}
	s.msgs = nil

	if err := n.FactoryReset(context.Background()); err != nil {
		t.Fatalf("FactoryReset failed: %v", err)
	}
	if got := p.Value(); got != 0.0 {
		t.Errorf("expected value restored to 0, got %v", got)
	}

	// clear config, clear params, republish config
	if len(s.msgs) != 3 {
		t.Fatalf("expected 3 publishes, got %d: %+v", len(s.msgs), s.msgs)
	}
	for i, topic := range []string{"node/node-1/config", "node/node-1/params/local"} {
		if s.msgs[i].topic != topic || !s.msgs[i].retained || len(s.msgs[i].payload) != 0 {
			t.Errorf("publish %d: expected retained clear of %s, got %+v", i, topic, s.msgs[i])
		}
	}
	if s.msgs[2].topic != "node/node-1/config" || len(s.msgs[2].payload) == 0 {
		t.Errorf("expected config republish, got %+v", s.msgs[2])
	}
	if s.connects != 1 {
		t.Errorf("expected reconnect, got %d connects", s.connects)
	}
}
