package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gcppubsub "cloud.google.com/go/pubsub/v2"

	"github.com/angelmondragon/crumbly-backend/pkg/kafka"
	"github.com/angelmondragon/crumbly-backend/pkg/outbox/registry"
)

const (
	sinkPubSub = "pubsub"
	sinkKafka  = "kafka"
)

// outboundMessage is the sink-neutral shape of one outbox row.
type outboundMessage struct {
	Key        string
	Data       []byte
	Attributes map[string]string
}

type sink interface {
	Name() string
	Ping(context.Context) error
	Publish(ctx context.Context, topic string, msg outboundMessage) error
}

type pubSubClient interface {
	Ping(context.Context) error
	Publisher(name string) *gcppubsub.Publisher
}

type publisherFactory func(topic string) publisher

type publisher interface {
	Publish(context.Context, *gcppubsub.Message) publishResult
}

type publishResult interface {
	Get(context.Context) (string, error)
}

type pubSubSink struct {
	client  pubSubClient
	factory publisherFactory
}

func newPubSubSink(client pubSubClient, factory publisherFactory) (*pubSubSink, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	if factory == nil {
		factory = func(topic string) publisher {
			return newGCPPubPublisher(client.Publisher(topic))
		}
	}
	return &pubSubSink{client: client, factory: factory}, nil
}

func (s *pubSubSink) Name() string { return sinkPubSub }

func (s *pubSubSink) Ping(ctx context.Context) error { return s.client.Ping(ctx) }

func (s *pubSubSink) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	pub := s.factory(topic)
	if pub == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher not configured for topic %s", topic))
	}
	result := pub.Publish(ctx, &gcppubsub.Message{Data: msg.Data, Attributes: msg.Attributes})
	if result == nil {
		return registry.NewNonRetryableError(fmt.Errorf("publisher returned nil for topic %s", topic))
	}
	_, err := result.Get(ctx)
	return err
}

type kafkaProducer interface {
	Ping(context.Context) error
	Publish(ctx context.Context, msg kafka.Message) error
}

type kafkaSink struct {
	producer kafkaProducer
}

func newKafkaSink(producer kafkaProducer) (*kafkaSink, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	return &kafkaSink{producer: producer}, nil
}

func (s *kafkaSink) Name() string { return sinkKafka }

func (s *kafkaSink) Ping(ctx context.Context) error { return s.producer.Ping(ctx) }

// Publish keys records by aggregate so one order's events land on one partition.
func (s *kafkaSink) Publish(ctx context.Context, topic string, msg outboundMessage) error {
	return s.producer.Publish(ctx, kafka.Message{
		Topic:   topic,
		Key:     msg.Key,
		Value:   msg.Data,
		Headers: msg.Attributes,
	})
}

func normalizeSink(raw string) (string, error) {
	switch name := strings.ToLower(strings.TrimSpace(raw)); name {
	case "", sinkPubSub:
		return sinkPubSub, nil
	case sinkKafka:
		return sinkKafka, nil
	default:
		return "", fmt.Errorf("unknown eventing sink %q", raw)
	}
}

func newGCPPubPublisher(p *gcppubsub.Publisher) publisher {
	if p == nil {
		return nil
	}
	return &gcpPublisher{Publisher: p}
}

type gcpPublisher struct {
	*gcppubsub.Publisher
}

func (p *gcpPublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	if p == nil || p.Publisher == nil {
		return nil
	}
	return &gcpPublishResult{PublishResult: p.Publisher.Publish(ctx, msg)}
}

type gcpPublishResult struct {
	*gcppubsub.PublishResult
}

func (r *gcpPublishResult) Get(ctx context.Context) (string, error) {
	if r == nil || r.PublishResult == nil {
		return "", errors.New("publish result is nil")
	}
	return r.PublishResult.Get(ctx)
}
