package mirror

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nexora-chat/apiserver/internal/events"
	"github.com/nexora-chat/apiserver/internal/logging"
)

const dispatchTimeout = 15 * time.Second

// Dispatcher schedules an identity sync without blocking the caller. The
// sync runs after the primary request decision is made; its outcome never
// joins back into the caller's result.
type Dispatcher interface {
	Dispatch(user User)
}

// DirectDispatcher pushes syncs to the provider from an in-process
// goroutine. Failures are logged once and not retried.
type DirectDispatcher struct {
	client *Client
	log    logging.Logger
	wg     sync.WaitGroup
}

func NewDirectDispatcher(client *Client, log logging.Logger) *DirectDispatcher {
	return &DirectDispatcher{client: client, log: log}
}

func (d *DirectDispatcher) Dispatch(user User) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		if err := d.client.UpsertUser(ctx, user); err != nil {
			d.log.Warn(ctx, "identity sync failed", "user_id", user.ID, "error", err)
		}
	}()
}

// Wait blocks until in-flight syncs finish. Used on shutdown and in tests.
func (d *DirectDispatcher) Wait() {
	d.wg.Wait()
}

// BrokerDispatcher publishes sync events to a message broker for the
// worker process to consume.
type BrokerDispatcher struct {
	broker  events.Broker
	channel string
	log     logging.Logger
	wg      sync.WaitGroup
}

func NewBrokerDispatcher(broker events.Broker, channel string, log logging.Logger) *BrokerDispatcher {
	return &BrokerDispatcher{broker: broker, channel: channel, log: log}
}

func (d *BrokerDispatcher) Dispatch(user User) {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
		defer cancel()
		data, err := json.Marshal(user)
		if err != nil {
			d.log.Error(ctx, "identity sync encode failed", "user_id", user.ID, "error", err)
			return
		}
		if _, err := d.broker.Publish(ctx, d.channel, data, map[string]string{"user_id": user.ID}); err != nil {
			d.log.Warn(ctx, "identity sync publish failed", "user_id", user.ID, "error", err)
		}
	}()
}

// Wait blocks until in-flight publishes finish.
func (d *BrokerDispatcher) Wait() {
	d.wg.Wait()
}

// NopDispatcher drops syncs. Used when no mirror provider is configured.
type NopDispatcher struct{}

func (NopDispatcher) Dispatch(User) {}
