package server

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/clementcyberknight/simple-websocket-sol-price/internal/config"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/relay"
)

type Server struct {
	echo       *echo.Echo
	config     *config.Config
	registry   *relay.Registry
	dispatcher *relay.Dispatcher
	clock      clockwork.Clock
	startTime  time.Time

	clientsMu sync.Mutex
	clients   map[*wsClient]struct{}
}

func New(cfg *config.Config, registry *relay.Registry, dispatcher *relay.Dispatcher, clock clockwork.Clock) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())

	srv := &Server{
		echo:       e,
		config:     cfg,
		registry:   registry,
		dispatcher: dispatcher,
		clock:      clock,
		startTime:  clock.Now(),
		clients:    make(map[*wsClient]struct{}),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

// Shutdown stops the listener and then closes every live WebSocket client
// with a close frame. Registry cleanup happens as each read loop unwinds.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.echo.Shutdown(ctx)

	s.clientsMu.Lock()
	clients := make([]*wsClient, 0, len(s.clients))
	for client := range s.clients {
		clients = append(clients, client)
	}
	s.clientsMu.Unlock()

	for _, client := range clients {
		client.stopGraceful("Server shutting down")
	}
	if len(clients) > 0 {
		slog.Info("Closed remaining clients", "count", len(clients))
	}
	return err
}

func (s *Server) trackClient(client *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients[client] = struct{}{}
}

func (s *Server) forgetClient(client *wsClient) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	delete(s.clients, client)
}
