package mirror

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nexora-chat/apiserver/config"
	"github.com/nexora-chat/apiserver/internal/events"
	"github.com/nexora-chat/apiserver/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(baseURL string) config.MirrorConfig {
	return config.MirrorConfig{
		BaseURL:   baseURL,
		APIKey:    "test-key",
		APISecret: "test-api-secret",
	}
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(config.MirrorConfig{BaseURL: "http://localhost"})
	require.Error(t, err)

	_, err = NewClient(config.MirrorConfig{APIKey: "k", APISecret: "s"})
	require.Error(t, err)
}

func TestUpsertUser(t *testing.T) {
	var (
		gotPath  string
		gotQuery string
		gotAuth  string
		gotBody  []byte
	)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.Query().Get("api_key")
		gotAuth = r.Header.Get("Authorization")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusCreated)
	}))
	defer provider.Close()

	client, err := NewClient(testConfig(provider.URL))
	require.NoError(t, err)

	user := User{ID: "user-1", Name: "Ann Lee", Image: "https://img.example/1.png"}
	require.NoError(t, client.UpsertUser(context.Background(), user))

	assert.Equal(t, "/users", gotPath)
	assert.Equal(t, "test-key", gotQuery)
	assert.NotEmpty(t, gotAuth)

	var payload map[string]map[string]User
	require.NoError(t, json.Unmarshal(gotBody, &payload))
	assert.Equal(t, user, payload["users"]["user-1"])
}

func TestUpsertUser_ProviderError(t *testing.T) {
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer provider.Close()

	client, err := NewClient(testConfig(provider.URL))
	require.NoError(t, err)

	err = client.UpsertUser(context.Background(), User{ID: "user-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestUpsertUser_RequiresID(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:0"))
	require.NoError(t, err)

	require.Error(t, client.UpsertUser(context.Background(), User{Name: "no id"}))
}

func TestUserToken(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:0"))
	require.NoError(t, err)

	tok, err := client.UserToken("user-42")
	require.NoError(t, err)

	claims := jwt.MapClaims{}
	parsed, err := jwt.ParseWithClaims(tok, claims, func(token *jwt.Token) (any, error) {
		return []byte("test-api-secret"), nil
	})
	require.NoError(t, err)
	require.True(t, parsed.Valid)
	assert.Equal(t, "user-42", claims["user_id"])

	_, err = client.UserToken("")
	require.Error(t, err)
}

func TestDirectDispatcher_FailureIsSwallowed(t *testing.T) {
	hits := make(chan struct{}, 1)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits <- struct{}{}
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer provider.Close()

	client, err := NewClient(testConfig(provider.URL))
	require.NoError(t, err)

	dispatcher := NewDirectDispatcher(client, logging.NopLogger{})
	dispatcher.Dispatch(User{ID: "user-1", Name: "Ann Lee"})
	dispatcher.Wait()

	select {
	case <-hits:
	default:
		t.Fatal("provider was never called")
	}
}

// memoryBroker is an in-process events.Broker used to test the
// broker-backed dispatch path.
type memoryBroker struct {
	messages chan events.Message
}

func newMemoryBroker() *memoryBroker {
	return &memoryBroker{messages: make(chan events.Message, 16)}
}

func (b *memoryBroker) Publish(_ context.Context, _ string, data []byte, attrs map[string]string) (string, error) {
	b.messages <- events.Message{ID: "m1", Data: data, Attributes: attrs}
	return "m1", nil
}

func (b *memoryBroker) Subscribe(ctx context.Context, _ string, handler events.Handler) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg := <-b.messages:
			if err := handler(ctx, msg); err != nil {
				// Immediate redelivery keeps the test deterministic.
				b.messages <- msg
			}
		}
	}
}

func (b *memoryBroker) Close() error { return nil }

func TestBrokerDispatchAndWorker(t *testing.T) {
	upserts := make(chan User, 1)
	provider := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]map[string]User
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		for _, user := range payload["users"] {
			upserts <- user
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer provider.Close()

	client, err := NewClient(testConfig(provider.URL))
	require.NoError(t, err)

	broker := newMemoryBroker()
	dispatcher := NewBrokerDispatcher(broker, "user-sync", logging.NopLogger{})
	worker := NewWorker(broker, "user-sync", client, logging.NopLogger{})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- worker.Run(ctx) }()

	want := User{ID: "user-7", Name: "Ann Lee", Image: "https://img.example/7.png"}
	dispatcher.Dispatch(want)
	dispatcher.Wait()

	got := <-upserts
	assert.Equal(t, want, got)

	cancel()
	err = <-done
	require.True(t, errors.Is(err, context.Canceled))
}

func TestWorker_PoisonMessageIsAcked(t *testing.T) {
	client, err := NewClient(testConfig("http://localhost:0"))
	require.NoError(t, err)

	worker := NewWorker(newMemoryBroker(), "user-sync", client, logging.NopLogger{})
	// Undecodable payloads must be acked, not retried forever.
	require.NoError(t, worker.handle(context.Background(), events.Message{ID: "bad", Data: []byte("{")}))
}
