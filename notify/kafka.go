package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

// KafkaNotifier publishes events to a Kafka topic through an async producer.
// Publish enqueues and returns; broker errors are drained into the log.
type KafkaNotifier struct {
	producer sarama.AsyncProducer
	topic    string
	log      zerolog.Logger
	done     chan struct{}
}

func NewKafkaNotifier(brokers []string, topic string, log zerolog.Logger) (*KafkaNotifier, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Flush.Frequency = 500 * time.Millisecond

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}

	n := &KafkaNotifier{
		producer: producer,
		topic:    topic,
		log:      log,
		done:     make(chan struct{}),
	}
	go n.drainErrors()
	return n, nil
}

func (n *KafkaNotifier) Publish(e Event) {
	if e.Time.IsZero() {
		e.Time = time.Now()
	}
	payload, err := json.Marshal(e)
	if err != nil {
		n.log.Error().Err(err).Str("kind", string(e.Kind)).Msg("encode notification")
		return
	}

	msg := &sarama.ProducerMessage{
		Topic: n.topic,
		Key:   sarama.StringEncoder(e.Kind),
		Value: sarama.ByteEncoder(payload),
	}
	select {
	case n.producer.Input() <- msg:
	default:
		// A full producer queue must not stall the trading loop.
		n.log.Warn().Str("kind", string(e.Kind)).Msg("notification dropped, producer queue full")
	}
}

func (n *KafkaNotifier) drainErrors() {
	defer close(n.done)
	for err := range n.producer.Errors() {
		n.log.Error().Err(err.Err).Msg("notification delivery failed")
	}
}

func (n *KafkaNotifier) Close() error {
	err := n.producer.Close()
	<-n.done
	return err
}
