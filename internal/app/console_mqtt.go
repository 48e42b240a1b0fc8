package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/relabs-tech/accel_node/internal/config"
)

// allParamsTopic matches the params topic of every node.
const allParamsTopic = "node/+/params/local"

// formatParamsMessage renders a params report as one console line, devices in
// name order. Empty payloads (cleared retained messages) render as "cleared".
func formatParamsMessage(topic string, payload []byte) (string, error) {
	node := strings.TrimSuffix(strings.TrimPrefix(topic, "node/"), "/params/local")
	if len(payload) == 0 {
		return fmt.Sprintf("[%s] cleared", node), nil
	}

	var body map[string]map[string]interface{}
	if err := json.Unmarshal(payload, &body); err != nil {
		return "", err
	}

	devices := make([]string, 0, len(body))
	for d := range body {
		devices = append(devices, d)
	}
	sort.Strings(devices)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s]", node)
	for _, d := range devices {
		for name, v := range body[d] {
			if f, ok := v.(float64); ok {
				fmt.Fprintf(&b, " %s.%s=%+.4f", d, name, f)
			} else {
				fmt.Fprintf(&b, " %s.%s=%v", d, name, v)
			}
		}
	}
	return b.String(), nil
}

// RunConsoleMQTT prints every params report until ctx is cancelled.
func RunConsoleMQTT(ctx context.Context, out io.Writer) error {
	cfg := config.Get()

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTTBroker).
		SetClientID(cfg.MQTTClientIDConsole)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: connected to MQTT broker at %s", cfg.MQTTBroker)

	token := client.Subscribe(allParamsTopic, 0, func(_ mqtt.Client, msg mqtt.Message) {
		line, err := formatParamsMessage(msg.Topic(), msg.Payload())
		if err != nil {
			log.Printf("console: params unmarshal error: %v", err)
			return
		}
		fmt.Fprintln(out, line)
	})
	token.Wait()
	if token.Error() != nil {
		return token.Error()
	}
	log.Printf("console: subscribed to %s", allParamsTopic)

	<-ctx.Done()

	log.Println("console: shutting down")
	client.Disconnect(250)
	return nil
}
