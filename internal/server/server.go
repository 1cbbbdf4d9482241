package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/nexora-chat/apiserver/config"
	"github.com/nexora-chat/apiserver/internal/avatars"
	"github.com/nexora-chat/apiserver/internal/db"
	"github.com/nexora-chat/apiserver/internal/events"
	"github.com/nexora-chat/apiserver/internal/handlers"
	"github.com/nexora-chat/apiserver/internal/logging"
	"github.com/nexora-chat/apiserver/internal/mirror"
	"github.com/nexora-chat/apiserver/internal/services"
	"github.com/nexora-chat/apiserver/internal/store"
)

// Server wraps the HTTP server and router.
type Server struct {
	httpServer *http.Server
	router     *chi.Mux
	db         *sql.DB
	broker     events.Broker
}

// New constructs a Server with basic middleware and defaults.
func New(ctx context.Context, cfg config.Config, log logging.Logger) (*Server, error) {
	if strings.TrimSpace(cfg.Auth.JWTSecret) == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	dbConn, err := db.Open(ctx, cfg)
	if err != nil {
		return nil, err
	}

	userRepo := store.NewUserRepository(dbConn)
	userService := services.NewUserService(userRepo)

	pool := avatars.NewPool(cfg.Avatars.BaseURL)

	var (
		mirrorClient *mirror.Client
		dispatcher   mirror.Dispatcher = mirror.NopDispatcher{}
		broker       events.Broker
	)
	if cfg.Mirror.APIKey != "" && cfg.Mirror.APISecret != "" {
		mirrorClient, err = mirror.NewClient(cfg.Mirror)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		if cfg.Events.Backend != "" {
			broker, err = events.New(ctx, cfg.Events)
			if err != nil {
				_ = dbConn.Close()
				return nil, err
			}
			dispatcher = mirror.NewBrokerDispatcher(broker, cfg.Events.Channel, log)
		} else {
			dispatcher = mirror.NewDirectDispatcher(mirrorClient, log)
		}
	} else {
		log.Warn(ctx, "identity mirror not configured, user sync disabled")
	}

	authConfig := handlers.AuthConfig{
		JWTSecret:     cfg.Auth.JWTSecret,
		TokenTTL:      time.Duration(cfg.Auth.TokenTTLDays) * 24 * time.Hour,
		SecureCookies: cfg.IsProduction(),
	}
	authMiddleware := handlers.RequireAuth(cfg.Auth.JWTSecret)

	router := chi.NewRouter()
	router.Use(
		middleware.RequestID,
		middleware.RealIP,
		middleware.Recoverer,
		middleware.Logger,
		middleware.Timeout(60*time.Second),
	)
	router.Get("/healthz", handlers.Healthz)
	router.Route("/auth", func(r chi.Router) {
		handlers.AuthRouter(r, userService, dispatcher, pool, authConfig, log)
	})
	router.Route("/chat", func(r chi.Router) {
		handlers.ChatRouter(r, mirrorClient, authMiddleware, log)
	})
	if cfg.Avatars.Backend != "" {
		avatarStore, err := avatars.NewObjectStore(ctx, cfg.Avatars)
		if err != nil {
			_ = dbConn.Close()
			return nil, err
		}
		router.Route("/avatars", func(r chi.Router) {
			handlers.AvatarRouter(r, avatarStore, log)
		})
	}

	port := cfg.ServerPort
	if port == 0 {
		port = 8080
	}

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return &Server{
		httpServer: httpServer,
		router:     router,
		db:         dbConn,
		broker:     broker,
	}, nil
}

// Router exposes the chi router for route registration.
func (s *Server) Router() *chi.Mux {
	return s.router
}

// Start runs the HTTP server.
func (s *Server) Start() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown attempts a graceful shutdown.
func (s *Server) Shutdown() error {
	if s.db != nil {
		_ = s.db.Close()
	}
	if s.broker != nil {
		_ = s.broker.Close()
	}
	return s.httpServer.Close()
}
