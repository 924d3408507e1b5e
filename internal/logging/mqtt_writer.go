// Package logging feeds structured log lines into the MQTT log topic tree
// (logs/<service>), where the stack's log collector files them per service.
package logging

import (
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
)

// MQTTWriter is an io.Writer that forwards every write to the broker.
// Intended for use behind io.MultiWriter together with stdout.
type MQTTWriter struct {
	client mqtt.Client
	topic  string
}

func NewMQTTWriter(client mqtt.Client, serviceName string) *MQTTWriter {
	return &MQTTWriter{
		client: client,
		topic:  fmt.Sprintf("logs/%s", serviceName),
	}
}

// Write publishes one log line, fire-and-forget. The token is deliberately
// not waited on: logging must not slow the caller down, and a lost log line
// is acceptable.
func (w *MQTTWriter) Write(p []byte) (n int, err error) {
	// The slog handler may reuse p after we return.
	payload := make([]byte, len(p))
	copy(payload, p)

	w.client.Publish(w.topic, 0, false, payload)
	return len(p), nil
}
