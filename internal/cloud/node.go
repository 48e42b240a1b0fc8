// Copyright (c) 2026 Daniel Alarcon Rubio / Relabs Tech
// SPDX-License-Identifier: MIT
// See LICENSE file for full license text

// Package cloud models the device-management node the accelerometer reports
// to: a node owns devices, devices own typed params, and param updates are
// published over MQTT.
package cloud

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"
)

// Standard device and param types.
const (
	DeviceTypeTemperatureSensor = "esp.device.temperature-sensor"
	ParamTypeName               = "esp.param.name"
	ParamTypeTemperature        = "esp.param.temperature"

	paramNameName = "Name"

	// ParamNameTemperature keys a temperature param in params reports.
	ParamNameTemperature = "Temperature"

	configVersion = "2020-03-20"
)

// ErrNoParam is returned when reporting to a nil target.
var ErrNoParam = errors.New("cloud: no such param")

// Session is the part of an MQTT client the node needs. mqtt.Client satisfies it.
type Session interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	IsConnected() bool
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Param is a named, typed value on a device. It is the reporting target handle.
type Param struct {
	device   *Device
	Name     string
	Type     string
	DataType string
	initial  interface{}
	value    interface{}
}

// Device groups params under a user-visible name.
type Device struct {
	node    *Node
	Name    string
	Type    string
	params  []*Param
	primary *Param
}

// Node is the registration root: one per physical board.
type Node struct {
	ID      string
	Name    string
	Type    string
	session Session

	mu      sync.Mutex
	devices []*Device
}

// NewNode creates a node that publishes through session.
func NewNode(id, name, nodeType string, session Session) *Node {
	return &Node{ID: id, Name: name, Type: nodeType, session: session}
}

// ParamsTopic is where param values are reported.
func (n *Node) ParamsTopic() string {
	return fmt.Sprintf("node/%s/params/local", n.ID)
}

// ConfigTopic is where the node description is published.
func (n *Node) ConfigTopic() string {
	return fmt.Sprintf("node/%s/config", n.ID)
}

// AddTemperatureSensor registers a temperature-sensor device with a name
// param and a float temperature param as its primary param.
func (n *Node) AddTemperatureSensor(name string, initial float64) *Device {
	n.mu.Lock()
	defer n.mu.Unlock()

	d := &Device{node: n, Name: name, Type: DeviceTypeTemperatureSensor}
	d.params = []*Param{
		{device: d, Name: paramNameName, Type: ParamTypeName, DataType: "string", initial: name, value: name},
		{device: d, Name: ParamNameTemperature, Type: ParamTypeTemperature, DataType: "float", initial: initial, value: initial},
	}
	d.primary = d.params[1]
	n.devices = append(n.devices, d)
	return d
}

// Devices returns the registered devices in registration order.
func (n *Node) Devices() []*Device {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]*Device(nil), n.devices...)
}

// ParamByType returns the first param of type t, or nil.
func (d *Device) ParamByType(t string) *Param {
	for _, p := range d.params {
		if p.Type == t {
			return p
		}
	}
	return nil
}

// Device returns the owning device.
func (p *Param) Device() *Device {
	return p.device
}

// Value returns the last recorded value.
func (p *Param) Value() interface{} {
	n := p.device.node
	n.mu.Lock()
	defer n.mu.Unlock()
	return p.value
}

// UpdateAndReport records v as the param's value and publishes it.
func (n *Node) UpdateAndReport(p *Param, v float64) error {
	if p == nil {
		return ErrNoParam
	}
	if p.device == nil || p.device.node != n {
		return fmt.Errorf("cloud: param %q does not belong to node %s", p.Name, n.ID)
	}

	n.mu.Lock()
	p.value = v
	n.mu.Unlock()

	payload, err := json.Marshal(map[string]map[string]float64{
		p.device.Name: {p.Name: v},
	})
	if err != nil {
		return fmt.Errorf("cloud: marshal %s/%s: %w", p.device.Name, p.Name, err)
	}

	if err := n.publish(n.ParamsTopic(), false, payload); err != nil {
		return fmt.Errorf("cloud: report %s/%s: %w", p.device.Name, p.Name, err)
	}
	log.Debugf("cloud: reported %s/%s = %.4f", p.device.Name, p.Name, v)
	return nil
}

type nodeConfig struct {
	NodeID        string         `json:"node_id"`
	ConfigVersion string         `json:"config_version"`
	Info          nodeInfo       `json:"info"`
	Devices       []deviceConfig `json:"devices"`
}

type nodeInfo struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

type deviceConfig struct {
	Name    string        `json:"name"`
	Type    string        `json:"type"`
	Primary string        `json:"primary,omitempty"`
	Params  []paramConfig `json:"params"`
}

type paramConfig struct {
	Name       string   `json:"name"`
	Type       string   `json:"type"`
	DataType   string   `json:"data_type"`
	Properties []string `json:"properties"`
}

// Config returns the node description as published by PublishConfig.
func (n *Node) Config() ([]byte, error) {
	n.mu.Lock()
	cfg := nodeConfig{
		NodeID:        n.ID,
		ConfigVersion: configVersion,
		Info:          nodeInfo{Name: n.Name, Type: n.Type},
	}
	for _, d := range n.devices {
		dc := deviceConfig{Name: d.Name, Type: d.Type}
		if d.primary != nil {
			dc.Primary = d.primary.Name
		}
		for _, p := range d.params {
			dc.Params = append(dc.Params, paramConfig{
				Name:       p.Name,
				Type:       p.Type,
				DataType:   p.DataType,
				Properties: []string{"read"},
			})
		}
		cfg.Devices = append(cfg.Devices, dc)
	}
	n.mu.Unlock()
	return json.Marshal(cfg)
}

// PublishConfig publishes the node description, retained.
func (n *Node) PublishConfig() error {
	payload, err := n.Config()
	if err != nil {
		return fmt.Errorf("cloud: marshal node config: %w", err)
	}
	if err := n.publish(n.ConfigTopic(), true, payload); err != nil {
		return fmt.Errorf("cloud: publish node config: %w", err)
	}
	log.Printf("cloud: published config for node %s (%d devices)", n.ID, len(n.Devices()))
	return nil
}

func (n *Node) publish(topic string, retained bool, payload []byte) error {
	if token := n.session.Publish(topic, 1, retained, payload); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	return nil
}
