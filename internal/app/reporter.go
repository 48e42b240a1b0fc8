package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/accel_node/internal/accel"
	"github.com/relabs-tech/accel_node/internal/calibration"
	"github.com/relabs-tech/accel_node/internal/cloud"
	"github.com/relabs-tech/accel_node/internal/config"
	"github.com/relabs-tech/accel_node/internal/sensors"
)

// ParamReporter is the reporting sink. *cloud.Node satisfies it.
type ParamReporter interface {
	UpdateAndReport(p *cloud.Param, v float64) error
}

// Observer receives every completed sample, after it has been published.
type Observer interface {
	Observe(s accel.Sample)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(accel.Sample)

func (f ObserverFunc) Observe(s accel.Sample) { f(s) }

// Reporter owns the sampling state: the sensor, the coefficients, one
// reporting target per axis and the last sample.
type Reporter struct {
	sensor  sensors.AxisReader
	coeff   calibration.Coefficients
	sink    ParamReporter
	targets [3]*cloud.Param
	policy  string
	period  time.Duration
	now     func() time.Time

	observers []Observer

	mu      sync.RWMutex
	current accel.Sample
}

// NewReporter wires the loop. targets are indexed by accel.Axis.
func NewReporter(sensor sensors.AxisReader, coeff calibration.Coefficients, sink ParamReporter, targets [3]*cloud.Param, period time.Duration, policy string) (*Reporter, error) {
	if sensor == nil || sink == nil {
		return nil, errors.New("reporter: sensor and sink are required")
	}
	for _, a := range accel.Axes {
		if targets[a] == nil {
			return nil, fmt.Errorf("reporter: no reporting target for axis %s", a)
		}
	}
	if period <= 0 {
		return nil, fmt.Errorf("reporter: invalid period %v", period)
	}
	switch policy {
	case config.ReadErrorReportInvalid, config.ReadErrorSkip:
	default:
		return nil, fmt.Errorf("reporter: unknown read error policy %q", policy)
	}

	r := &Reporter{
		sensor:  sensor,
		coeff:   coeff,
		sink:    sink,
		targets: targets,
		policy:  policy,
		period:  period,
		now:     time.Now,
	}
	for _, a := range accel.Axes {
		r.current.Readings[a].Axis = a
	}
	return r, nil
}

// AddObserver registers o. Must be called before Run.
func (r *Reporter) AddObserver(o Observer) {
	r.observers = append(r.observers, o)
}

// Current returns the last sample. Its Time is zero before the first period.
func (r *Reporter) Current() accel.Sample {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// Run calls Update once per period until ctx is cancelled. Missed ticks are
// dropped, not caught up.
func (r *Reporter) Run(ctx context.Context) {
	log.Printf("reporter: publishing every %v (read error policy %s)", r.period, r.policy)

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("reporter: stopped")
			return
		case <-ticker.C:
			r.Update(ctx)
		}
	}
}

// Update runs one period: read X, Y, Z, calibrate, then publish X, Y, Z.
// A failed read never stops the period. If ctx is cancelled the period is
// abandoned and the previous sample is returned unpublished.
func (r *Reporter) Update(ctx context.Context) accel.Sample {
	prev := r.Current()
	s := accel.Sample{Time: r.now()}

	for _, a := range accel.Axes {
		rd := accel.Reading{Axis: a}
		raw, err := r.sensor.ReadAxis(ctx, a)
		if err != nil && ctx.Err() != nil {
			return prev
		}
		if err != nil {
			log.WithFields(log.Fields{"axis": a.String(), "policy": r.policy}).Warnf("reporter: read failed: %v", err)
			// keep the last good value, flagged
			rd.Raw = prev.Readings[a].Raw
			rd.Value = prev.Readings[a].Value
		} else {
			rd.Raw = raw
			rd.Value = r.coeff.Apply(a, raw)
			rd.Valid = true
		}
		s.Readings[a] = rd
	}

	r.mu.Lock()
	r.current = s
	r.mu.Unlock()

	for _, a := range accel.Axes {
		rd := s.Readings[a]
		if !rd.Valid && r.policy == config.ReadErrorSkip {
			continue
		}
		if err := r.sink.UpdateAndReport(r.targets[a], rd.Value); err != nil {
			log.WithField("axis", a.String()).Errorf("reporter: publish failed: %v", err)
		}
	}

	log.Debugf("reporter: x=%.4f y=%.4f z=%.4f", s.Readings[accel.X].Value, s.Readings[accel.Y].Value, s.Readings[accel.Z].Value)

	for _, o := range r.observers {
		o.Observe(s)
	}
	return s
}
