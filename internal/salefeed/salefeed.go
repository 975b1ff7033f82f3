// Package salefeed publishes completed sales to an event stream.
package salefeed

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/IBM/sarama"

	"github.com/user/vendbot/internal/types"
)

// TypeSaleCompleted is the envelope type of a fulfilled sale.
const TypeSaleCompleted = "SaleCompleted"

// Envelope wraps every event with a type and metadata. Key is the buyer id
// and is also used as the Kafka message key.
type Envelope struct {
	EventID    string          `json:"eventId"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurredAt"`
	Key        string          `json:"key"`
	Payload    json.RawMessage `json:"payload"`
}

// SaleCompleted is the payload of a TypeSaleCompleted envelope.
type SaleCompleted struct {
	LinkID      string `json:"linkId"`
	PaymentID   string `json:"paymentId,omitempty"`
	BuyerID     int64  `json:"buyerId"`
	ItemID      int64  `json:"itemId"`
	Label       string `json:"label"`
	ContentType string `json:"contentType"`
	AmountMinor int64  `json:"amountMinor"`
}

// Publisher emits sale events.
type Publisher interface {
	PublishSale(ctx context.Context, sale *types.Sale, item *types.Item) error
	Close() error
}

// Nop discards all events.
type Nop struct{}

func (Nop) PublishSale(context.Context, *types.Sale, *types.Item) error { return nil }
func (Nop) Close() error                                                { return nil }

// Config holds runtime configuration for Kafka.
type Config struct {
	Brokers []string
	Topic   string
	TLS     bool
}

// NewSaramaConfig returns an idempotent producer configuration.
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V3_6_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Net.MaxOpenRequests = 1
	cfg.Metadata.Retry.Max = 5
	cfg.Metadata.Retry.Backoff = 2 * time.Second
	return cfg
}

// KafkaPublisher writes envelopes to a topic through a SyncProducer.
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
}

// New returns Nop when no brokers are configured, otherwise a
// KafkaPublisher connected to them.
func New(cfg Config) (Publisher, error) {
	if len(cfg.Brokers) == 0 {
		return Nop{}, nil
	}
	scfg := NewSaramaConfig()
	if cfg.TLS {
		scfg.Net.TLS.Enable = true
		scfg.Net.TLS.Config = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	producer, err := sarama.NewSyncProducer(cfg.Brokers, scfg)
	if err != nil {
		return nil, fmt.Errorf("connecting to kafka: %w", err)
	}
	return NewKafkaPublisher(producer, cfg.Topic), nil
}

// NewKafkaPublisher wraps an existing producer.
func NewKafkaPublisher(producer sarama.SyncProducer, topic string) *KafkaPublisher {
	if topic == "" {
		topic = "vendbot.sales"
	}
	return &KafkaPublisher{producer: producer, topic: topic}
}

// PublishSale sends one SaleCompleted envelope keyed by buyer.
func (p *KafkaPublisher) PublishSale(ctx context.Context, sale *types.Sale, item *types.Item) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	value, err := NewSaleEnvelope(sale, item)
	if err != nil {
		return err
	}
	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(sale.BuyerID.String()),
		Value: sarama.ByteEncoder(value),
	}
	if _, _, err := p.producer.SendMessage(msg); err != nil {
		return fmt.Errorf("publishing sale %s: %w", sale.LinkID, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}

// NewSaleEnvelope encodes a sale as a JSON envelope.
func NewSaleEnvelope(sale *types.Sale, item *types.Item) ([]byte, error) {
	payload, err := json.Marshal(SaleCompleted{
		LinkID:      string(sale.LinkID),
		PaymentID:   sale.PaymentID,
		BuyerID:     int64(sale.BuyerID),
		ItemID:      int64(sale.ItemID),
		Label:       item.Label,
		ContentType: string(item.ContentType()),
		AmountMinor: sale.AmountMinor,
	})
	if err != nil {
		return nil, fmt.Errorf("marshaling sale: %w", err)
	}
	occurred := sale.CreatedAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	env := Envelope{
		EventID:    string(types.NewEventID()),
		Type:       TypeSaleCompleted,
		OccurredAt: occurred,
		Key:        sale.BuyerID.String(),
		Payload:    payload,
	}
	return json.Marshal(env)
}

// SplitBrokers parses a comma-separated broker list.
func SplitBrokers(s string) []string {
	parts := strings.Split(s, ",")
	res := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			res = append(res, p)
		}
	}
	return res
}
