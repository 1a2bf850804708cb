package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
)

// outboxEvent is one row staged for the dispatcher inside a domain
// transaction.
type outboxEvent struct {
	AggregateType string
	AggregateID   string
	EventType     string
	PartitionKey  string
	Payload       any
}

// eventMetadata routes an event type to its Kafka topic and schema subject.
type eventMetadata struct {
	Topic         string
	SchemaSubject string
}

var eventCatalog = map[string]eventMetadata{
	"contract.committed": {
		Topic:         "contract_events",
		SchemaSubject: "contract_events-value",
	},
	"contract.resolved": {
		Topic:         "contract_state_changed",
		SchemaSubject: "contract_state_changed-value",
	},
	"stake.recorded": {
		Topic:         "stake_events",
		SchemaSubject: "stake_events-value",
	},
}

func insertOutbox(ctx context.Context, tx pgx.Tx, event outboxEvent) error {
	body, err := json.Marshal(event.Payload)
	if err != nil {
		return err
	}

	meta, ok := eventCatalog[event.EventType]
	if !ok {
		return fmt.Errorf("unknown event type: %s", event.EventType)
	}

	dedupeKey := fmt.Sprintf("%s:%s", event.AggregateID, event.EventType)

	const stmt = `INSERT INTO outbox (aggregate_type, aggregate_id, event_type, topic, schema_subject, partition_key, payload, dedupe_key)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8) ON CONFLICT (dedupe_key) DO NOTHING`

	_, err = tx.Exec(ctx, stmt,
		event.AggregateType,
		event.AggregateID,
		event.EventType,
		meta.Topic,
		meta.SchemaSubject,
		event.PartitionKey,
		body,
		dedupeKey,
	)
	return err
}
