package notify

import (
	"context"
	"encoding/json"
	"os"
	"strings"

	"cloud.google.com/go/pubsub"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
	"bitbucket.org/sgdatafocus/telemetry_backend/utils"
)

// PubSubNotifier publishes event batches on a Pub/Sub topic, one message
// per (action, class) batch.
type PubSubNotifier struct {
	topicName string
}

func NewPubSubNotifier() *PubSubNotifier {
	topicName := strings.TrimSpace(os.Getenv("NOTIFY_TOPIC"))
	if topicName == "" {
		topicName = "cds-entity-changes"
	}
	return &PubSubNotifier{topicName: topicName}
}

func (n *PubSubNotifier) Publish(ctx context.Context, batches []EventBatch) error {
	if len(batches) == 0 {
		return nil
	}

	client, err := config.GetClient(ctx)
	if err != nil {
		return err
	}

	topic := client.Topic(n.topicName)
	if utils.EnvBoolDefault("NOTIFY_CREATE_TOPIC", false) {
		topic, err = config.CreateTopicIfNotExists(client, n.topicName)
		if err != nil {
			return err
		}
	}

	// Batches arrive delete-first; publish synchronously in order so the
	// bus preserves the delete-before-upsert window boundary.
	for _, batch := range batches {
		data, err := json.Marshal(batch)
		if err != nil {
			return err
		}
		res := topic.Publish(ctx, &pubsub.Message{
			Data: data,
			Attributes: map[string]string{
				"action":       batch.Action,
				"entity_class": batch.EntityClass,
			},
		})
		if _, err := res.Get(ctx); err != nil {
			return err
		}
	}
	return nil
}
