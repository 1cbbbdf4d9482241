// Package mirror keeps a best-effort copy of user identity in the external
// chat provider. Sync failures are logged and never surface to callers.
package mirror

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/nexora-chat/apiserver/config"
)

const defaultRequestTimeout = 10 * time.Second

// User is the identity payload pushed to the chat provider.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Image string `json:"image"`
}

// Client talks to the chat provider's server-side REST API. Requests are
// authenticated with a server token signed using the API secret.
type Client struct {
	baseURL     string
	apiKey      string
	apiSecret   []byte
	serverToken string
	httpClient  *http.Client
}

// NewClient constructs a Client from config.
func NewClient(cfg config.MirrorConfig) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, errors.New("mirror base url is required")
	}
	if strings.TrimSpace(cfg.APIKey) == "" || strings.TrimSpace(cfg.APISecret) == "" {
		return nil, errors.New("mirror api key and api secret are required")
	}

	secret := []byte(cfg.APISecret)
	serverToken, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"server": true,
	}).SignedString(secret)
	if err != nil {
		return nil, err
	}

	return &Client{
		baseURL:     strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:      cfg.APIKey,
		apiSecret:   secret,
		serverToken: serverToken,
		httpClient:  &http.Client{Timeout: defaultRequestTimeout},
	}, nil
}

// UpsertUser creates or updates the remote identity keyed by the local
// user id.
func (c *Client) UpsertUser(ctx context.Context, user User) error {
	if strings.TrimSpace(user.ID) == "" {
		return errors.New("mirror user id is required")
	}

	payload, err := json.Marshal(map[string]map[string]User{
		"users": {user.ID: user},
	})
	if err != nil {
		return err
	}

	url := fmt.Sprintf("%s/users?api_key=%s", c.baseURL, c.apiKey)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mirror upsert failed: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return nil
}

// UserToken signs a chat-provider token for the given user. The client
// presents it to the provider directly; it is distinct from the session
// token and never grants access to this API.
func (c *Client) UserToken(userID string) (string, error) {
	if strings.TrimSpace(userID) == "" {
		return "", errors.New("mirror user id is required")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"iat":     jwt.NewNumericDate(time.Now()),
	}).SignedString(c.apiSecret)
}
