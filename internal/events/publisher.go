package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"

	id "vaultkeeper/pkg/domain"
)

// Event types written to the stream.
const (
	TypeVaultUnlocked       = "vault.unlocked"
	TypeInstructionExecuted = "instruction.executed"
)

// Envelope is the wire shape for every event on the topic. Records are keyed
// by vault id so one vault's events stay ordered within a partition.
type Envelope struct {
	Type          string    `json:"type"`
	VaultID       string    `json:"vault_id"`
	InstructionID string    `json:"instruction_id,omitempty"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Publisher streams engine events to Kafka. A nil Publisher is valid and
// publishes nothing, so deployments without brokers skip the wiring.
type Publisher struct {
	client *kgo.Client
	topic  string
}

// New connects to the brokers and ensures the topic exists. Returns nil when
// no brokers are configured.
func New(ctx context.Context, brokers []string, topic string) (*Publisher, error) {
	if len(brokers) == 0 {
		return nil, nil
	}
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("connect kafka: %w", err)
	}
	if err := ensureTopic(ctx, client, topic); err != nil {
		client.Close()
		return nil, err
	}
	return &Publisher{client: client, topic: topic}, nil
}

func ensureTopic(ctx context.Context, client *kgo.Client, topic string) error {
	admin := kadm.NewClient(client)
	resp, err := admin.CreateTopic(ctx, 1, 1, nil, topic)
	if err != nil {
		return fmt.Errorf("create topic %s: %w", topic, err)
	}
	if resp.Err != nil && !errors.Is(resp.Err, kerr.TopicAlreadyExists) {
		return fmt.Errorf("create topic %s: %w", topic, resp.Err)
	}
	return nil
}

func (p *Publisher) PublishVaultUnlocked(ctx context.Context, vaultID id.VaultID, unlockedAt time.Time) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, Envelope{
		Type:       TypeVaultUnlocked,
		VaultID:    vaultID.String(),
		OccurredAt: unlockedAt,
	})
}

func (p *Publisher) PublishInstructionExecuted(ctx context.Context, instructionID id.InstructionID, vaultID id.VaultID, executedAt time.Time) error {
	if p == nil {
		return nil
	}
	return p.publish(ctx, Envelope{
		Type:          TypeInstructionExecuted,
		VaultID:       vaultID.String(),
		InstructionID: instructionID.String(),
		OccurredAt:    executedAt,
	})
}

func (p *Publisher) publish(ctx context.Context, env Envelope) error {
	payload, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(env.VaultID),
		Value: payload,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		return fmt.Errorf("produce %s: %w", env.Type, err)
	}
	return nil
}

// Close flushes buffered records and tears down the client.
func (p *Publisher) Close() {
	if p == nil {
		return
	}
	p.client.Close()
}
