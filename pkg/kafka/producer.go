package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"submission_service/pkg/ctxdata"
)

const traceHeader = "x-trace-id"

type Config struct {
	Brokers      []string
	WriteTimeout time.Duration
	BatchTimeout time.Duration
}

type Producer struct {
	writer *kafka.Writer
	now    func() time.Time
}

func NewProducer(cfg Config) (*Producer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, errors.New("at least one kafka broker must be specified")
	}
	if cfg.WriteTimeout == 0 {
		cfg.WriteTimeout = 10 * time.Second
	}
	if cfg.BatchTimeout == 0 {
		cfg.BatchTimeout = 50 * time.Millisecond
	}

	// Hash keeps every message for one key on one partition, so a student's
	// events are consumed in the order they were produced.
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireOne,
		WriteTimeout:           cfg.WriteTimeout,
		BatchTimeout:           cfg.BatchTimeout,
		AllowAutoTopicCreation: true,
	}

	return &Producer{writer: writer, now: time.Now}, nil
}

// Send marshals message to JSON and writes it to topic under key.
func (p *Producer) Send(ctx context.Context, topic, key string, message interface{}) error {
	msg, err := p.message(ctx, topic, key, message)
	if err != nil {
		return err
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("failed to write message to %s: %w", topic, err)
	}

	return nil
}

func (p *Producer) message(ctx context.Context, topic, key string, message interface{}) (kafka.Message, error) {
	value, err := json.Marshal(message)
	if err != nil {
		return kafka.Message{}, fmt.Errorf("failed to marshal message: %w", err)
	}

	msg := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: value,
		Time:  p.now(),
	}
	if traceID, ok := ctxdata.GetTraceID(ctx); ok {
		msg.Headers = append(msg.Headers, kafka.Header{Key: traceHeader, Value: []byte(traceID)})
	}
	return msg, nil
}

func (p *Producer) Close() error {
	return p.writer.Close()
}
