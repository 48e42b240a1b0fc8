package app

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/cloud"
	"github.com/relabs-tech/accel_node/internal/config"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // local network tool
	},
}

const wsWriteTimeout = 2 * time.Second

// StatusServer serves the last sample over HTTP and streams new samples to
// websocket clients.
type StatusServer struct {
	mu      sync.RWMutex
	last    accel.Sample
	have    bool
	clients map[*websocket.Conn]struct{}
}

func NewStatusServer() *StatusServer {
	return &StatusServer{clients: make(map[*websocket.Conn]struct{})}
}

// Observe stores s and pushes it to every connected client. Clients that
// fail a write are dropped.
func (s *StatusServer) Observe(sample accel.Sample) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = sample
	s.have = true

	for c := range s.clients {
		c.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		if err := c.WriteJSON(sample); err != nil {
			log.Printf("web: dropping client %s: %v", c.RemoteAddr(), err)
			c.Close()
			delete(s.clients, c)
		}
	}
}

// Handler returns the routes: /api/accel for the last sample and /ws/accel
// for the stream.
func (s *StatusServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/accel", s.handleLatest)
	mux.HandleFunc("/ws/accel", s.handleStream)
	return mux
}

func (s *StatusServer) handleLatest(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.have {
		http.Error(w, "no data yet", http.StatusServiceUnavailable)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(s.last); err != nil {
		log.Printf("json encode error: %v", err)
	}
}

func (s *StatusServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("web: websocket upgrade error: %v", err)
		return
	}

	s.mu.Lock()
	s.clients[conn] = struct{}{}
	if s.have {
		conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
		conn.WriteJSON(s.last)
	}
	s.mu.Unlock()
	log.Printf("web: client %s connected", conn.RemoteAddr())

	// Drain until the client goes away; nothing is expected from it.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	s.mu.Lock()
	if _, ok := s.clients[conn]; ok {
		delete(s.clients, conn)
		conn.Close()
	}
	s.mu.Unlock()
	log.Printf("web: client %s disconnected", conn.RemoteAddr())
}

// ListenAndServe serves Handler on addr until ctx is cancelled.
func (s *StatusServer) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	log.Printf("web server listening on %s", addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// axisByDevice maps a cloud device name back to its axis.
func axisByDevice(name string) (accel.Axis, bool) {
	for _, a := range accel.Axes {
		if DeviceNames[a] == name {
			return a, true
		}
	}
	return 0, false
}

// mergeReport folds one params report into s. Raw counts are not part of the
// report and keep their previous value.
func mergeReport(s accel.Sample, payload []byte, at time.Time) (accel.Sample, bool, error) {
	var body map[string]map[string]float64
	if err := json.Unmarshal(payload, &body); err != nil {
		return s, false, err
	}

	changed := false
	for dev, params := range body {
		a, ok := axisByDevice(dev)
		if !ok {
			continue
		}
		v, ok := params[cloud.ParamNameTemperature]
		if !ok {
			continue
		}
		s.Readings[a] = accel.Reading{Axis: a, Raw: s.Readings[a].Raw, Value: v, Valid: true}
		changed = true
	}
	if changed {
		s.Time = at
	}
	return s, changed, nil
}

// RunWeb serves the status endpoints off-device, fed by the node's params
// topic instead of the sensor.
func RunWeb(ctx context.Context) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole + "-web")

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	defer client.Disconnect(250)
	log.Printf("connected to MQTT broker at %s", cfg.MQTTBroker)

	status := NewStatusServer()
	topic := cloud.NewNode(cfg.NodeID, nodeName, nodeType, nil).ParamsTopic()

	var (
		mu   sync.Mutex
		last accel.Sample
	)
	for _, a := range accel.Axes {
		last.Readings[a].Axis = a
	}

	token := client.Subscribe(topic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		if len(msg.Payload()) == 0 {
			return
		}
		mu.Lock()
		defer mu.Unlock()
		s, changed, err := mergeReport(last, msg.Payload(), time.Now())
		if err != nil {
			log.Printf("MQTT payload unmarshal error: %v", err)
			return
		}
		if changed {
			last = s
			status.Observe(s)
		}
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("subscribed to MQTT topic %s", topic)

	port := cfg.WebServerPort
	if port == 0 {
		port = 8080
	}
	return status.ListenAndServe(ctx, fmt.Sprintf(":%d", port))
}
