package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"

	"github.com/learnsphere/chat-service/internal/domain"
	"github.com/learnsphere/chat-service/pkg/log"
)

// Event stream record types.
const (
	EventMessageSent  = "chat.message_sent"
	EventMessagesRead = "chat.messages_read"
)

// StreamEvent is the record shape written to the chat events topic.
type StreamEvent struct {
	Event     string          `json:"event"`
	RoomID    string          `json:"room_id"`
	ActorID   string          `json:"actor_id,omitempty"`
	Message   *domain.Message `json:"message,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

type ConfluentProducer struct {
	producer *kafka.Producer
	topic    string
	doneCh   chan struct{}
}

func NewConfluentProducer(brokers, topic string, partitions int) (*ConfluentProducer, error) {
	// Ensure topic exists with desired partition count
	if err := ensureTopic(brokers, topic, partitions); err != nil {
		l := log.L()
		l.Warn().Err(err).Str("topic", topic).Msg("failed to ensure topic (may already exist)")
	}

	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	cp := &ConfluentProducer{
		producer: p,
		topic:    topic,
		doneCh:   make(chan struct{}),
	}

	go cp.deliveryReportHandler()

	return cp, nil
}

func ensureTopic(brokers, topic string, partitions int) error {
	admin, err := kafka.NewAdminClient(&kafka.ConfigMap{
		"bootstrap.servers": brokers,
	})
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	results, err := admin.CreateTopics(ctx, []kafka.TopicSpecification{
		{
			Topic:             topic,
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		},
	})
	if err != nil {
		return err
	}

	for _, result := range results {
		if result.Error.Code() != kafka.ErrNoError && result.Error.Code() != kafka.ErrTopicAlreadyExists {
			return fmt.Errorf("failed to create topic %s: %v", result.Topic, result.Error)
		}
	}

	return nil
}

func (cp *ConfluentProducer) deliveryReportHandler() {
	for e := range cp.producer.Events() {
		switch ev := e.(type) {
		case *kafka.Message:
			if ev.TopicPartition.Error != nil {
				l := log.L()
				l.Error().Err(ev.TopicPartition.Error).Msg("kafka delivery failed")
			}
		}
	}
	close(cp.doneCh)
}

// ProduceMessageEvent exports a persisted chat message.
func (cp *ConfluentProducer) ProduceMessageEvent(ctx context.Context, roomID string, msg domain.Message) error {
	return cp.produce(roomID, &StreamEvent{
		Event:     EventMessageSent,
		RoomID:    roomID,
		ActorID:   msg.SenderID,
		Message:   &msg,
		Timestamp: msg.Timestamp,
	})
}

// ProduceReadEvent exports a read-receipt that marked at least one message.
func (cp *ConfluentProducer) ProduceReadEvent(ctx context.Context, roomID, actorID string) error {
	return cp.produce(roomID, &StreamEvent{
		Event:     EventMessagesRead,
		RoomID:    roomID,
		ActorID:   actorID,
		Timestamp: time.Now().UTC(),
	})
}

func (cp *ConfluentProducer) produce(roomID string, event *StreamEvent) error {
	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal stream event: %w", err)
	}

	// Use room id as key for consistent partition assignment
	err = cp.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &cp.topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(roomID),
		Value: value,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce event: %w", err)
	}

	return nil
}

func (cp *ConfluentProducer) Close() error {
	cp.producer.Flush(5000)
	cp.producer.Close()
	<-cp.doneCh
	return nil
}
