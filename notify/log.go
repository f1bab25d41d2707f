package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"bitbucket.org/sgdatafocus/telemetry_backend/config"
)

// LogNotifier is the local/dev sink used when Pub/Sub is not configured.
type LogNotifier struct {
	Logger *logrus.Logger
}

func NewLogNotifier() *LogNotifier {
	return &LogNotifier{Logger: config.GetLogger()}
}

func (n *LogNotifier) Publish(ctx context.Context, batches []EventBatch) error {
	for _, batch := range batches {
		n.Logger.WithFields(logrus.Fields{
			"module":       "notify/log.go",
			"action":       batch.Action,
			"entity_class": batch.EntityClass,
			"count":        len(batch.Events),
		}).Info("entity change events")
	}
	return nil
}

// ForEnvironment picks the Pub/Sub sink when a project is configured and
// the log sink otherwise.
func ForEnvironment() Notifier {
	if config.PubSubConfigured() {
		return NewPubSubNotifier()
	}
	return NewLogNotifier()
}
