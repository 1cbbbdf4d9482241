//go:build e2e

package e2e

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/nexora-chat/apiserver/config"
	"github.com/nexora-chat/apiserver/internal/db"
	"github.com/nexora-chat/apiserver/internal/logging"
	"github.com/nexora-chat/apiserver/internal/server"
)

const (
	serverPort = 18080
)

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	defer cancel()

	root, err := repoRoot()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to locate repo root: %v\n", err)
		os.Exit(1)
	}

	if err := dockerCompose(ctx, root, "up", "-d"); err != nil {
		fmt.Fprintf(os.Stderr, "failed to start docker compose: %v\n", err)
		os.Exit(1)
	}

	if err := waitForPostgres(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "postgres not ready: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	if err := runMigrations(root); err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	srv, err := startServer()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to start server: %v\n", err)
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	if err := waitForHealth(ctx, baseURL+"/healthz"); err != nil {
		fmt.Fprintf(os.Stderr, "server not healthy: %v\n", err)
		_ = srv.Shutdown()
		_ = dockerCompose(context.Background(), root, "down")
		os.Exit(1)
	}

	code := m.Run()

	_ = srv.Shutdown()
	_ = dockerCompose(context.Background(), root, "down")
	os.Exit(code)
}

type userResponse struct {
	Success bool `json:"success"`
	User    struct {
		ID          string `json:"id"`
		Email       string `json:"email"`
		FullName    string `json:"fullName"`
		ProfilePic  string `json:"profilePic"`
		Bio         string `json:"bio"`
		IsOnboarded bool   `json:"isOnboarded"`
	} `json:"user"`
}

type errorResponse struct {
	Message       string   `json:"message"`
	MissingFields []string `json:"missingFields"`
}

func TestAuthLifecycle(t *testing.T) {
	baseURL := fmt.Sprintf("http://localhost:%d", serverPort)
	email := fmt.Sprintf("user_%d@example.com", time.Now().UnixNano())
	password := "testpass123!"

	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookie jar: %v", err)
	}
	client := &http.Client{Jar: jar, Timeout: 10 * time.Second}

	// Signup creates the account and starts a session.
	status, body := postJSON(t, client, baseURL+"/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"fullName": "E2E Tester",
	})
	if status != http.StatusCreated {
		t.Fatalf("signup status %d: %s", status, body)
	}
	var created userResponse
	if err := json.Unmarshal([]byte(body), &created); err != nil {
		t.Fatalf("decode signup response: %v", err)
	}
	if created.User.IsOnboarded {
		t.Fatalf("new user must not be onboarded")
	}
	if !strings.HasSuffix(created.User.ProfilePic, ".png") {
		t.Fatalf("unexpected avatar url: %q", created.User.ProfilePic)
	}

	// Duplicate signup is rejected.
	status, body = postJSON(t, client, baseURL+"/auth/signup", map[string]string{
		"email":    email,
		"password": password,
		"fullName": "E2E Tester",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("duplicate signup status %d: %s", status, body)
	}

	// Wrong password is a generic 401.
	status, body = postJSON(t, client, baseURL+"/auth/login", map[string]string{
		"email":    email,
		"password": "wrongpass",
	})
	if status != http.StatusUnauthorized {
		t.Fatalf("bad login status %d: %s", status, body)
	}
	var loginErr errorResponse
	if err := json.Unmarshal([]byte(body), &loginErr); err != nil {
		t.Fatalf("decode login error: %v", err)
	}
	if loginErr.Message != "Invalid email or password" {
		t.Fatalf("unexpected login error: %q", loginErr.Message)
	}

	// Onboarding with a missing field names it.
	status, body = postJSON(t, client, baseURL+"/auth/onboarding", map[string]string{
		"nativeLanguage":   "en",
		"learningLanguage": "pt",
		"location":         "Lisbon",
		"fullName":         "E2E Tester",
	})
	if status != http.StatusBadRequest {
		t.Fatalf("partial onboarding status %d: %s", status, body)
	}
	var onboardErr errorResponse
	if err := json.Unmarshal([]byte(body), &onboardErr); err != nil {
		t.Fatalf("decode onboarding error: %v", err)
	}
	if len(onboardErr.MissingFields) != 1 || onboardErr.MissingFields[0] != "bio" {
		t.Fatalf("missingFields = %v, want [bio]", onboardErr.MissingFields)
	}

	// Full onboarding succeeds and flips the flag.
	status, body = postJSON(t, client, baseURL+"/auth/onboarding", map[string]string{
		"bio":              "e2e bio",
		"nativeLanguage":   "en",
		"learningLanguage": "pt",
		"location":         "Lisbon",
		"fullName":         "E2E Tester",
	})
	if status != http.StatusOK {
		t.Fatalf("onboarding status %d: %s", status, body)
	}
	var onboarded userResponse
	if err := json.Unmarshal([]byte(body), &onboarded); err != nil {
		t.Fatalf("decode onboarding response: %v", err)
	}
	if !onboarded.User.IsOnboarded || onboarded.User.Bio != "e2e bio" {
		t.Fatalf("unexpected onboarded user: %+v", onboarded.User)
	}

	// The session survives and /auth/me reflects the update.
	status, body = getJSON(t, client, baseURL+"/auth/me")
	if status != http.StatusOK {
		t.Fatalf("me status %d: %s", status, body)
	}

	// Logout clears the cookie; /auth/me is unauthorized afterwards.
	status, body = postJSON(t, client, baseURL+"/auth/logout", nil)
	if status != http.StatusOK {
		t.Fatalf("logout status %d: %s", status, body)
	}
	status, body = getJSON(t, client, baseURL+"/auth/me")
	if status != http.StatusUnauthorized {
		t.Fatalf("me after logout status %d: %s", status, body)
	}
}

func postJSON(t *testing.T, client *http.Client, url string, payload map[string]string) (int, string) {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			t.Fatalf("encode payload: %v", err)
		}
	}
	req, err := http.NewRequest(http.MethodPost, url, &body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func getJSON(t *testing.T, client *http.Client, url string) (int, string) {
	t.Helper()

	resp, err := client.Get(url)
	if err != nil {
		t.Fatalf("request %s: %v", url, err)
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, string(data)
}

func waitForPostgres(ctx context.Context) error {
	conn, err := sql.Open("postgres", db.DSN(config.LoadConfig()))
	if err != nil {
		return err
	}
	defer conn.Close()

	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		err := conn.PingContext(pingCtx)
		cancel()
		if err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("postgres ping timeout: %w", err)
		case <-ticker.C:
		}
	}
}

func waitForHealth(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 2 * time.Second}
	ticker := time.NewTicker(500 * time.Millisecond)
	defer ticker.Stop()

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		resp, err := client.Do(req)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			if err != nil {
				return fmt.Errorf("health check failed: %w", err)
			}
			return fmt.Errorf("health check failed with status")
		case <-ticker.C:
		}
	}
}

func runMigrations(root string) error {
	migrationsURL := "file://" + filepath.Join(root, "internal", "db", "migrations")

	migrator, err := migrate.New(migrationsURL, db.DSN(config.LoadConfig()))
	if err != nil {
		return err
	}
	defer func() {
		_, _ = migrator.Close()
	}()

	if err := migrator.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}

func startServer() (*server.Server, error) {
	_ = os.Setenv("JWT_SECRET", "test-secret")
	_ = os.Setenv("SERVER_PORT", fmt.Sprintf("%d", serverPort))
	_ = os.Setenv("DB_HOST", "localhost")
	_ = os.Setenv("DB_PORT", "5432")
	_ = os.Setenv("DB_USER", "nexora")
	_ = os.Setenv("DB_PASSWORD", "password")
	_ = os.Setenv("DB_NAME", "nexora_db")
	_ = os.Setenv("DB_USE_SSL", "false")

	cfg := config.LoadConfig()
	srv, err := server.New(context.Background(), cfg, logging.Default())
	if err != nil {
		return nil, err
	}

	go func() {
		_ = srv.Start()
	}()

	return srv, nil
}

func dockerCompose(ctx context.Context, root string, args ...string) error {
	composeFile := filepath.Join(root, "development", "docker-compose.yml")
	baseArgs := append([]string{"compose", "-f", composeFile}, args...)
	cmd := exec.CommandContext(ctx, "docker", baseArgs...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func repoRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", fmt.Errorf("go.mod not found above %s", dir)
		}
		dir = parent
	}
}
