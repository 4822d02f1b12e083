// Package bus bridges document store changes between portal instances
// over NATS JetStream, so live subscriptions see writes made by any
// replica.
package bus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
	"github.com/rs/zerolog"

	"portal-server/services/portal-api/internal/infrastructure/docstore"
)

const subjectPrefix = "portal.changes"

// envelope is the wire form of a document change.
type envelope struct {
	Origin    string              `json:"origin"`
	Kind      docstore.ChangeKind `json:"kind"`
	ID        string              `json:"id"`
	Collection string             `json:"collection"`
	Fields    map[string]any      `json:"fields"`
	CreatedAt time.Time           `json:"created_at"`
	UpdatedAt time.Time           `json:"updated_at"`
}

// ChangeBridge publishes local changes and replays remote ones.
type ChangeBridge struct {
	nc         *nats.Conn
	js         jetstream.JetStream
	stream     string
	instanceID string
	log        zerolog.Logger
	consume    jetstream.ConsumeContext
}

// NewChangeBridge connects to NATS and ensures the change stream exists.
func NewChangeBridge(ctx context.Context, url, streamName string, log zerolog.Logger) (*ChangeBridge, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create jetstream context: %w", err)
	}

	streamCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := js.Stream(streamCtx, streamName); err != nil {
		_, err = js.CreateStream(streamCtx, jetstream.StreamConfig{
			Name:        streamName,
			Description: "Document store change fan-out",
			Subjects:    []string{subjectPrefix + ".*"},
			MaxAge:      time.Hour,
			Storage:     jetstream.MemoryStorage,
		})
		if err != nil {
			nc.Close()
			return nil, fmt.Errorf("create stream %q: %w", streamName, err)
		}
	}

	return &ChangeBridge{
		nc:         nc,
		js:         js,
		stream:     streamName,
		instanceID: uuid.NewString(),
		log:        log.With().Str("component", "change-bridge").Logger(),
	}, nil
}

// Publish forwards a local change to the stream.
func (b *ChangeBridge) Publish(change docstore.Change) error {
	env := envelope{
		Origin:     b.instanceID,
		Kind:       change.Kind,
		ID:         change.Doc.ID,
		Collection: change.Doc.Collection,
		Fields:     change.Doc.Fields,
		CreatedAt:  change.Doc.CreatedAt,
		UpdatedAt:  change.Doc.UpdatedAt,
	}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal change: %w", err)
	}

	subject := fmt.Sprintf("%s.%s", subjectPrefix, change.Doc.Collection)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := b.js.Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("publish change to %q: %w", subject, err)
	}
	return nil
}

// Start consumes remote changes and applies them locally. Changes this
// instance published are skipped to avoid echo loops.
func (b *ChangeBridge) Start(ctx context.Context, apply func(docstore.Change)) error {
	cons, err := b.js.CreateOrUpdateConsumer(ctx, b.stream, jetstream.ConsumerConfig{
		FilterSubject: subjectPrefix + ".*",
		DeliverPolicy: jetstream.DeliverNewPolicy,
		AckPolicy:     jetstream.AckNonePolicy,
	})
	if err != nil {
		return fmt.Errorf("create change consumer: %w", err)
	}

	consume, err := cons.Consume(func(msg jetstream.Msg) {
		var env envelope
		if err := json.Unmarshal(msg.Data(), &env); err != nil {
			b.log.Warn().Err(err).Str("subject", msg.Subject()).Msg("drop malformed change")
			return
		}
		if env.Origin == b.instanceID {
			return
		}
		apply(docstore.Change{
			Kind: env.Kind,
			Doc: docstore.Document{
				ID:         env.ID,
				Collection: env.Collection,
				Fields:     env.Fields,
				CreatedAt:  env.CreatedAt,
				UpdatedAt:  env.UpdatedAt,
			},
		})
	})
	if err != nil {
		return fmt.Errorf("consume changes: %w", err)
	}

	b.consume = consume
	b.log.Info().Str("stream", b.stream).Msg("change bridge consuming")
	return nil
}

// Close stops consumption and drops the connection.
func (b *ChangeBridge) Close() {
	if b.consume != nil {
		b.consume.Stop()
	}
	if b.nc != nil {
		b.nc.Close()
	}
}
