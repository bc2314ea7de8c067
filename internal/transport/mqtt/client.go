package mqtt

import (
	"fmt"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/config"
)

// FixTopicPattern is the wildcard topic carrying fixes from all trips
const FixTopicPattern = "ifta/+/fixes"

// operationTimeout bounds waits on broker acknowledgements
const operationTimeout = 10 * time.Second

// Client is the part of the paho client used here
type Client interface {
	Connect() paho.Token
	Publish(topic string, qos byte, retained bool, payload interface{}) paho.Token
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
	Unsubscribe(topics ...string) paho.Token
	Disconnect(quiesce uint)
}

// Connect creates a paho client for cfg and connects it to the broker
func Connect(cfg config.MQTTConfig, logger zerolog.Logger) (Client, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt broker is not configured")
	}

	logger = logger.With().Str("component", "mqtt").Str("broker", cfg.Broker).Logger()

	opts := paho.NewClientOptions()
	opts.AddBroker(cfg.Broker)
	opts.SetClientID(cfg.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetConnectTimeout(operationTimeout)
	opts.SetConnectionLostHandler(func(_ paho.Client, err error) {
		logger.Warn().Err(err).Msg("MQTT connection lost")
	})
	opts.SetOnConnectHandler(func(paho.Client) {
		logger.Info().Msg("MQTT connected")
	})

	client := paho.NewClient(opts)
	if err := wait(client.Connect()); err != nil {
		return nil, fmt.Errorf("failed to connect to mqtt broker: %w", err)
	}
	return client, nil
}

// FixTopic returns the topic fixes of tripID are published on
func FixTopic(tripID string) string {
	return "ifta/" + tripID + "/fixes"
}

// TripIDFromTopic extracts the trip ID from an ifta/<trip>/fixes topic
func TripIDFromTopic(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != "ifta" || parts[2] != "fixes" {
		return ""
	}
	return parts[1]
}

func wait(token paho.Token) error {
	if !token.WaitTimeout(operationTimeout) {
		return fmt.Errorf("timed out after %s", operationTimeout)
	}
	return token.Error()
}
