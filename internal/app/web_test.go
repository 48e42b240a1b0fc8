package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/cloud"
)

func testSample(raw int16) accel.Sample {
	return accel.Sample{
		Time: time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC),
		Readings: [3]accel.Reading{
			{Axis: accel.X, Raw: raw, Value: 0.1, Valid: true},
			{Axis: accel.Y, Raw: 0, Value: 0, Valid: true},
			{Axis: accel.Z, Raw: 256, Value: 1.0, Valid: true},
		},
	}
}

func TestLatestNoData(t *testing.T) {
	s := NewStatusServer()
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accel", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected 503, got %d", rec.Code)
	}
}

func TestLatestReturnsSample(t *testing.T) {
	s := NewStatusServer()
	s.Observe(testSample(42))

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/accel", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var body struct {
		Readings []struct {
			Axis  string  `json:"axis"`
			Raw   int16   `json:"raw"`
			Value float64 `json:"value"`
			Valid bool    `json:"valid"`
		} `json:"readings"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(body.Readings) != 3 || body.Readings[0].Axis != "x" || body.Readings[0].Raw != 42 {
		t.Errorf("unexpected body %+v", body)
	}
}

func TestStreamPushesSamples(t *testing.T) {
	s := NewStatusServer()
	s.Observe(testSample(1))

	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/accel"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var got accel.Sample
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read initial sample: %v", err)
	}
	if got.At(accel.X).Raw != 1 {
		t.Errorf("expected initial raw 1, got %d", got.At(accel.X).Raw)
	}

	s.Observe(testSample(2))
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read pushed sample: %v", err)
	}
	if got.At(accel.X).Raw != 2 {
		t.Errorf("expected pushed raw 2, got %d", got.At(accel.X).Raw)
	}
}

func TestMergeReport(t *testing.T) {
	at := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var s accel.Sample
	s.Readings[accel.Y].Raw = 7

	payload := fmt.Sprintf(`{"Accel Y":{%q:0.5}}`, cloud.ParamNameTemperature)
	s, changed, err := mergeReport(s, []byte(payload), at)
	if err != nil || !changed {
		t.Fatalf("mergeReport = %v, %v", changed, err)
	}
	y := s.At(accel.Y)
	if y.Value != 0.5 || !y.Valid || y.Raw != 7 || y.Axis != accel.Y || !s.Time.Equal(at) {
		t.Errorf("unexpected Y reading %+v at %v", y, s.Time)
	}
	if s.At(accel.X).Valid {
		t.Error("X should be untouched")
	}

	if _, changed, _ := mergeReport(s, []byte(`{"Humidity":{"Temperature":1}}`), at); changed {
		t.Error("unknown device should not change the sample")
	}
	if _, _, err := mergeReport(s, []byte(`nope`), at); err == nil {
		t.Error("expected error for bad payload")
	}
}
