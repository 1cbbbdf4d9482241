package mirror

import (
	"context"
	"encoding/json"

	"github.com/nexora-chat/apiserver/internal/events"
	"github.com/nexora-chat/apiserver/internal/logging"
)

// Worker consumes sync events from a broker and pushes them to the chat
// provider. A failed push is nacked so the broker can redeliver it.
type Worker struct {
	broker  events.Broker
	channel string
	client  *Client
	log     logging.Logger
}

func NewWorker(broker events.Broker, channel string, client *Client, log logging.Logger) *Worker {
	return &Worker{broker: broker, channel: channel, client: client, log: log}
}

// Run blocks consuming sync events until ctx is done.
func (w *Worker) Run(ctx context.Context) error {
	w.log.Info(ctx, "identity sync worker started", "channel", w.channel)
	return w.broker.Subscribe(ctx, w.channel, w.handle)
}

func (w *Worker) handle(ctx context.Context, msg events.Message) error {
	var user User
	if err := json.Unmarshal(msg.Data, &user); err != nil {
		// Poison message; acking it avoids an endless redelivery loop.
		w.log.Error(ctx, "identity sync decode failed", "message_id", msg.ID, "error", err)
		return nil
	}
	if err := w.client.UpsertUser(ctx, user); err != nil {
		w.log.Warn(ctx, "identity sync failed", "user_id", user.ID, "error", err)
		return err
	}
	return nil
}
