// README: Broadcast feed transports (Redis pub/sub, Kafka) and publisher.
package broadcast

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// Sink receives decoded commands from a feed. The session manager implements
// this to fan a command out to every live session's arbiter.
type Sink interface {
	Ingest(cmd Command) bool
}

// Publisher pushes a command onto the operator feed.
type Publisher interface {
	Publish(ctx context.Context, cmd Command) error
}

// decode parses one feed payload. Malformed payloads are dropped by callers;
// a bad message on an at-least-once channel must never wedge the consumer.
func decode(payload []byte) (Command, bool) {
	var cmd Command
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return Command{}, false
	}
	if cmd.Name == "" || cmd.IssuedAt <= 0 {
		return Command{}, false
	}
	return cmd, true
}

// RedisFeed consumes override commands from a Redis pub/sub channel.
type RedisFeed struct {
	client  *redis.Client
	channel string
	log     *zap.Logger
}

func NewRedisFeed(client *redis.Client, channel string, log *zap.Logger) *RedisFeed {
	return &RedisFeed{client: client, channel: channel, log: log}
}

// Run subscribes and forwards decoded commands into the sink until the
// context is cancelled.
func (f *RedisFeed) Run(ctx context.Context, sink Sink) {
	sub := f.client.Subscribe(ctx, f.channel)
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			cmd, ok := decode([]byte(msg.Payload))
			if !ok {
				f.log.Warn("dropping malformed broadcast payload",
					zap.String("channel", f.channel))
				continue
			}
			if sink.Ingest(cmd) {
				f.log.Info("broadcast accepted",
					zap.String("command", cmd.Name),
					zap.Int64("issued_at", cmd.IssuedAt))
			}
		}
	}
}

// Publish implements Publisher over the same pub/sub channel.
func (f *RedisFeed) Publish(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return f.client.Publish(ctx, f.channel, payload).Err()
}

// kafkaReader is the subset of kafka.Reader the feed needs; lets unit tests
// stub the broker.
type kafkaReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// KafkaFeed consumes override commands from a Kafka topic. Offsets are
// auto-committed; duplicates from redelivery are handled by the arbiter, not
// the transport.
type KafkaFeed struct {
	reader kafkaReader
	writer *kafka.Writer
	log    *zap.Logger
}

func NewKafkaFeed(addr, topic, groupID string, log *zap.Logger) *KafkaFeed {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers: []string{addr},
		Topic:   topic,
		GroupID: groupID,
	})
	writer := &kafka.Writer{
		Addr:     kafka.TCP(addr),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return &KafkaFeed{reader: reader, writer: writer, log: log}
}

func (f *KafkaFeed) Run(ctx context.Context, sink Sink) {
	defer f.reader.Close()
	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			f.log.Warn("kafka read error", zap.Error(err))
			// Backoff so a broken broker connection does not spin.
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Second):
			}
			continue
		}
		cmd, ok := decode(msg.Value)
		if !ok {
			f.log.Warn("dropping malformed broadcast payload",
				zap.String("topic", msg.Topic),
				zap.Int64("offset", msg.Offset))
			continue
		}
		if sink.Ingest(cmd) {
			f.log.Info("broadcast accepted",
				zap.String("command", cmd.Name),
				zap.Int64("issued_at", cmd.IssuedAt))
		}
	}
}

func (f *KafkaFeed) Publish(ctx context.Context, cmd Command) error {
	payload, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return f.writer.WriteMessages(ctx, kafka.Message{Value: payload})
}

// Close releases the Kafka writer; the reader closes when Run returns.
func (f *KafkaFeed) Close() error {
	return f.writer.Close()
}
