package publish

import (
	"context"
	"crypto/rand"
	"crypto/tls"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"homewatch/internal/oauth"
	"homewatch/internal/watch"
)

const defaultTopicPrefix = "homewatch"

// MQTTConfig defines the broker connection for sighting publishing.
type MQTTConfig struct {
	Host         string
	Port         int
	TLS          bool
	Username     string
	PasswordFile string
	TopicPrefix  string
}

// MQTTPublisher publishes sightings as JSON and maintains a retained
// availability topic.
type MQTTPublisher struct {
	client mqtt.Client
	prefix string
}

func NewMQTT(cfg MQTTConfig) (*MQTTPublisher, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("mqtt host is required")
	}
	port := cfg.Port
	if port == 0 {
		port = 1883
		if cfg.TLS {
			port = 8883
		}
	}
	prefix := strings.Trim(cfg.TopicPrefix, "/")
	if prefix == "" {
		prefix = defaultTopicPrefix
	}

	password := ""
	if cfg.PasswordFile != "" {
		var err error
		password, err = oauth.ReadSecretFile(cfg.PasswordFile)
		if err != nil {
			return nil, fmt.Errorf("read mqtt password: %w", err)
		}
	}

	opts := mqtt.NewClientOptions()
	scheme := "tcp"
	if cfg.TLS {
		scheme = "ssl"
		opts.SetTLSConfig(&tls.Config{})
	}
	opts.AddBroker(fmt.Sprintf("%s://%s:%d", scheme, cfg.Host, port))
	opts.SetUsername(cfg.Username)
	opts.SetPassword(password)
	opts.SetClientID(randomClientID())
	opts.SetAutoReconnect(true)
	opts.SetConnectRetry(true)
	opts.SetConnectTimeout(10 * time.Second)
	opts.SetWill(statusTopic(prefix), "offline", 0, true)

	p := &MQTTPublisher{prefix: prefix}
	opts.OnConnect = func(client mqtt.Client) {
		client.Publish(statusTopic(prefix), 0, true, "online")
	}

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	p.client = client
	return p, nil
}

func (p *MQTTPublisher) Publish(_ context.Context, sighting watch.Sighting) error {
	payload, err := json.Marshal(sighting)
	if err != nil {
		return fmt.Errorf("marshal sighting: %w", err)
	}
	topic := sightingTopic(p.prefix, sighting.CameraID)
	if token := p.client.Publish(topic, 0, false, payload); token.Wait() && token.Error() != nil {
		return fmt.Errorf("publish %s: %w", topic, token.Error())
	}
	return nil
}

// Close announces offline and disconnects.
func (p *MQTTPublisher) Close() {
	if p.client == nil {
		return
	}
	_ = p.client.Publish(statusTopic(p.prefix), 0, true, "offline").Wait()
	p.client.Disconnect(250)
}

func statusTopic(prefix string) string {
	return prefix + "/status"
}

// sightingTopic builds the per-camera topic. Camera ids are MAC addresses;
// colons are fine in MQTT topics but we normalize them for readability.
func sightingTopic(prefix, cameraID string) string {
	camera := strings.ReplaceAll(cameraID, ":", "-")
	if camera == "" {
		camera = "unknown"
	}
	return prefix + "/sightings/" + camera
}

func randomClientID() string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	return "homewatch-" + base64.RawURLEncoding.EncodeToString(buf)
}
