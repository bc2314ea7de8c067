package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"

	"github.com/jengzang/ifta-backend-go/internal/service"
)

// FixMessage is the JSON payload of a fix on the wire
type FixMessage struct {
	TripID      string  `json:"trip_id"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	TimestampMs int64   `json:"timestamp_ms"`
}

// FixRecorder accepts fixes for a trip
type FixRecorder interface {
	RecordFix(ctx context.Context, tripID string, raw service.RawFix) (*service.FixResult, error)
}

// FixSubscriber feeds fixes received over MQTT into the tracking pipeline
type FixSubscriber struct {
	client   Client
	recorder FixRecorder
	topic    string
	qos      byte
	logger   zerolog.Logger
}

// NewFixSubscriber creates a subscriber for topic; an empty topic means
// FixTopicPattern
func NewFixSubscriber(client Client, recorder FixRecorder, topic string, qos byte, logger zerolog.Logger) *FixSubscriber {
	if topic == "" {
		topic = FixTopicPattern
	}
	return &FixSubscriber{
		client:   client,
		recorder: recorder,
		topic:    topic,
		qos:      qos,
		logger:   logger.With().Str("component", "fix_subscriber").Logger(),
	}
}

// Start subscribes to the fix topic
func (s *FixSubscriber) Start() error {
	if err := wait(s.client.Subscribe(s.topic, s.qos, s.handle)); err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", s.topic, err)
	}
	s.logger.Info().Str("topic", s.topic).Msg("Subscribed to fixes")
	return nil
}

// Stop unsubscribes from the fix topic
func (s *FixSubscriber) Stop() error {
	if err := wait(s.client.Unsubscribe(s.topic)); err != nil {
		return fmt.Errorf("failed to unsubscribe from %s: %w", s.topic, err)
	}
	return nil
}

func (s *FixSubscriber) handle(_ paho.Client, msg paho.Message) {
	var m FixMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		s.logger.Warn().Err(err).Str("topic", msg.Topic()).Msg("Dropping malformed fix")
		return
	}

	// the payload may omit the trip, but must not contradict the topic
	topicTrip := TripIDFromTopic(msg.Topic())
	switch {
	case m.TripID == "":
		m.TripID = topicTrip
	case topicTrip != "" && topicTrip != m.TripID:
		s.logger.Warn().Str("topic", msg.Topic()).Str("trip_id", m.TripID).Msg("Dropping fix for another trip")
		return
	}
	if m.TripID == "" {
		s.logger.Warn().Str("topic", msg.Topic()).Msg("Dropping fix without trip")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), operationTimeout)
	defer cancel()

	res, err := s.recorder.RecordFix(ctx, m.TripID, service.RawFix{
		Latitude:    m.Latitude,
		Longitude:   m.Longitude,
		TimestampMs: m.TimestampMs,
	})
	if err != nil {
		s.logger.Warn().Err(err).Str("trip_id", m.TripID).Msg("Failed to record fix")
		return
	}
	s.logger.Debug().Str("trip_id", m.TripID).Str("decision", res.Decision).Msg("Fix received")
}

// FixPublisher publishes fixes for one trip
type FixPublisher struct {
	client Client
	tripID string
	qos    byte
}

// NewFixPublisher creates a publisher for tripID
func NewFixPublisher(client Client, tripID string, qos byte) *FixPublisher {
	return &FixPublisher{client: client, tripID: tripID, qos: qos}
}

// Publish sends fix and waits for the broker acknowledgement
func (p *FixPublisher) Publish(ctx context.Context, fix service.RawFix) error {
	if fix.TimestampMs <= 0 {
		fix.TimestampMs = time.Now().UnixMilli()
	}
	payload, err := json.Marshal(FixMessage{
		TripID:      p.tripID,
		Latitude:    fix.Latitude,
		Longitude:   fix.Longitude,
		TimestampMs: fix.TimestampMs,
	})
	if err != nil {
		return fmt.Errorf("failed to encode fix: %w", err)
	}

	token := p.client.Publish(FixTopic(p.tripID), p.qos, false, payload)
	select {
	case <-token.Done():
		return token.Error()
	case <-ctx.Done():
		return ctx.Err()
	}
}
