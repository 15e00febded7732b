package mqtt

import (
	"context"
	"encoding/json"
	"os"
	"strings"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	log "github.com/sirupsen/logrus"

	"github.com/ukydev/fleet-operations/internal/fleet"
)

// trackingActor identifies MQTT-originated samples in the audit trail.
const trackingActor = "telemetry"

// ClientConfig holds MQTT client configuration.
type ClientConfig struct {
	Broker        string
	ClientID      string
	Username      string
	Password      string
	TrackingTopic string // e.g. "fleet/+/tracking"
}

// ConfigFromEnv reads the MQTT settings from the environment.
func ConfigFromEnv() ClientConfig {
	cfg := ClientConfig{
		Broker:        os.Getenv("MQTT_BROKER"),
		ClientID:      os.Getenv("MQTT_CLIENT_ID"),
		Username:      os.Getenv("MQTT_USERNAME"),
		Password:      os.Getenv("MQTT_PASSWORD"),
		TrackingTopic: os.Getenv("MQTT_TRACKING_TOPIC"),
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "fleet-operations"
	}
	if cfg.TrackingTopic == "" {
		cfg.TrackingTopic = "fleet/+/tracking"
	}
	return cfg
}

// Ingestor is the part of the engine the subscriber needs.
type Ingestor interface {
	IngestTracking(ctx context.Context, deploymentID string, sample fleet.TrackingSample, actor string) (*fleet.IngestResult, error)
}

// Client subscribes to per-deployment tracking topics and feeds the engine.
type Client struct {
	client   mqtt.Client
	config   ClientConfig
	ingestor Ingestor
}

// NewClient creates an MQTT client wired to the tracking ingestor.
func NewClient(config ClientConfig, ingestor Ingestor) *Client {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(config.Broker)
	opts.SetClientID(config.ClientID)
	opts.SetUsername(config.Username)
	opts.SetPassword(config.Password)
	opts.SetAutoReconnect(true)
	opts.SetKeepAlive(60 * time.Second)
	opts.SetPingTimeout(10 * time.Second)
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		log.WithError(err).Warn("mqtt connection lost")
	})
	opts.SetOnConnectHandler(func(_ mqtt.Client) {
		log.WithField("broker", config.Broker).Info("mqtt connected")
	})

	return &Client{
		client:   mqtt.NewClient(opts),
		config:   config,
		ingestor: ingestor,
	}
}

// Connect establishes the broker connection and subscribes to the tracking
// topic pattern.
func (c *Client) Connect() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return token.Error()
	}
	token := c.client.Subscribe(c.config.TrackingTopic, 1, c.handleTracking)
	if token.Wait() && token.Error() != nil {
		return token.Error()
	}
	log.WithField("topic", c.config.TrackingTopic).Info("subscribed to tracking topic")
	return nil
}

// Disconnect closes the broker connection.
func (c *Client) Disconnect() {
	c.client.Disconnect(250)
}

// handleTracking decodes one tracking message and hands it to the engine.
// Each message is processed in its own goroutine so a slow ingest never
// blocks the MQTT receive loop.
func (c *Client) handleTracking(_ mqtt.Client, msg mqtt.Message) {
	deploymentID := deploymentFromTopic(msg.Topic())
	if deploymentID == "" {
		log.WithField("topic", msg.Topic()).Warn("tracking message on unexpected topic")
		return
	}

	var sample fleet.TrackingSample
	if err := json.Unmarshal(msg.Payload(), &sample); err != nil {
		log.WithError(err).WithField("topic", msg.Topic()).Warn("invalid tracking payload")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		result, err := c.ingestor.IngestTracking(ctx, deploymentID, sample, trackingActor)
		if err != nil {
			log.WithError(err).WithField("deployment_id", deploymentID).Warn("tracking ingest rejected")
			return
		}
		if result.TransitionError != nil {
			log.WithError(result.TransitionError).WithField("deployment_id", deploymentID).
				Warn("tracking status change rejected, samples recorded")
		}
	}()
}

// deploymentFromTopic extracts the deployment id from fleet/{id}/tracking.
func deploymentFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "fleet" || parts[2] != "tracking" {
		return ""
	}
	return parts[1]
}
