// Package eventbus publishes domain events — a block added to a
// node's chain, a new fork — to an optional Kafka topic for external
// observability pipelines. EventReorg is defined but nothing in this
// module publishes it. Publication is
// best-effort: a simulation run never blocks or fails because no
// broker is reachable. The observability record itself (spec.md
// section 6) is produced in-process by world.Recorder regardless of
// whether an eventbus is wired up.
//
// Grounded on the teacher's
// datasync/chaindatafetcher/event/kafka/kafka.go (KafkaBroker): a
// single sarama.AsyncProducer, JSON-encoded payloads, and a producer
// goroutine that drains the async producer's error channel so a
// broker outage only logs, never panics.
package eventbus

import (
	"encoding/json"

	"github.com/Shopify/sarama"

	"github.com/blocksim/blocksim/log"
)

var logger = log.NewModuleLogger(log.ModuleEventbus)

// EventKind names the domain events this simulator can publish,
// mirroring spec.md section 9's supplemented feature 3's observability
// concerns.
type EventKind string

const (
	EventBlockAdded EventKind = "block_added"
	EventReorg      EventKind = "reorg"
	EventFork       EventKind = "fork"
)

// Event is the JSON payload published to Kafka for every domain event.
type Event struct {
	Kind      EventKind   `json:"kind"`
	Address   string      `json:"address"`
	BlockHash string      `json:"block_hash,omitempty"`
	At        float64     `json:"simulation_time"`
	Detail    interface{} `json:"detail,omitempty"`
}

// Bus is a best-effort Kafka publisher. A nil *Bus is valid and turns
// every Publish call into a no-op, so callers that don't configure an
// eventbus never need a nil check.
type Bus struct {
	topic    string
	producer sarama.AsyncProducer
}

// New dials brokers and returns a Bus publishing to topic. Grounded on
// kafka.go's newProducer: WaitForLocal acks and snappy compression,
// tuned for fire-and-forget telemetry rather than durability.
func New(brokers []string, topic string) (*Bus, error) {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForLocal
	cfg.Producer.Compression = sarama.CompressionSnappy
	cfg.Producer.Return.Errors = true

	producer, err := sarama.NewAsyncProducer(brokers, cfg)
	if err != nil {
		return nil, err
	}
	b := &Bus{topic: topic, producer: producer}
	go b.drainErrors()
	return b, nil
}

func (b *Bus) drainErrors() {
	for err := range b.producer.Errors() {
		logger.Warnw("eventbus publish failed", "topic", b.topic, "err", err)
	}
}

// Publish best-effort publishes an event. Marshal failures and a nil
// Bus are both silently swallowed: an observability side-channel must
// never perturb the simulation it is reporting on.
func (b *Bus) Publish(ev Event) {
	if b == nil {
		return
	}
	data, err := json.Marshal(ev)
	if err != nil {
		logger.Warnw("eventbus marshal failed", "kind", ev.Kind, "err", err)
		return
	}
	b.producer.Input() <- &sarama.ProducerMessage{
		Topic: b.topic,
		Key:   sarama.StringEncoder(ev.Address),
		Value: sarama.ByteEncoder(data),
	}
}

// Close stops accepting new events and shuts the producer down. Safe
// to call on a nil Bus.
func (b *Bus) Close() error {
	if b == nil {
		return nil
	}
	return b.producer.Close()
}
