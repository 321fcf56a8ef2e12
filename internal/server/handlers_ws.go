package server

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"

	"github.com/clementcyberknight/simple-websocket-sol-price/internal/logging"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/metrics"
	"github.com/clementcyberknight/simple-websocket-sol-price/internal/protocol"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Public price feed, any origin may connect
	},
}

func (s *Server) handleWebSocket(c echo.Context) error {
	if max := s.config.MaxConnections; max > 0 && s.registry.ConnCount() >= max {
		return c.String(http.StatusServiceUnavailable, "Connection limit reached")
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return fmt.Errorf("failed to upgrade WebSocket: %w", err)
	}

	client := newClient(conn, s.clock)
	s.trackClient(client)
	connID := s.registry.Register(client)

	logger := logging.WithConn(connID, uuid.NewString())
	logger.Info("Client connected", "remote_addr", conn.RemoteAddr().String())

	s.reply(client, protocol.TypeConnected, protocol.EncodeConnected(connID, "Connected to price feed server"))

	limiter := rate.NewLimiter(rate.Limit(s.config.ClientMessageRate), s.config.ClientMessageBurst)

	// Read pump — blocks until the connection closes or errors. Both end the
	// session the same way: the registry entry is removed.
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			break
		}
		if !limiter.Allow() {
			metrics.RateLimitedFramesTotal.Inc()
			_ = client.Send(protocol.EncodeError("Rate limit exceeded"))
			continue
		}
		s.handleFrame(connID, client, data)
	}

	s.registry.Unregister(connID)
	s.forgetClient(client)
	client.stop()
	logger.Info("Client disconnected")

	return nil
}

// handleFrame parses one inbound frame and sends the reply. A malformed frame
// gets an error response on this connection only; nothing here closes the
// session.
func (s *Server) handleFrame(connID int64, client *wsClient, data []byte) {
	req, err := protocol.ParseRequest(data)
	if err != nil {
		metrics.InboundFramesTotal.WithLabelValues("invalid").Inc()
		message := "Invalid request"
		var formatErr *protocol.FormatError
		if errors.As(err, &formatErr) {
			message = formatErr.Message
		}
		s.reply(client, protocol.TypeError, protocol.EncodeError(message))
		return
	}

	switch r := req.(type) {
	case protocol.SubscribeRequest:
		metrics.InboundFramesTotal.WithLabelValues(protocol.TypeSubscribe).Inc()
		// Snapshots for known feeds go out inside Subscribe, before the ack.
		accepted := s.dispatcher.Subscribe(connID, r.FeedIDs)
		s.reply(client, protocol.TypeSubscribed, protocol.EncodeSubscribed(r.SubscriptionID, accepted))
	case protocol.UnsubscribeRequest:
		metrics.InboundFramesTotal.WithLabelValues(protocol.TypeUnsubscribe).Inc()
		removed := s.registry.Unsubscribe(connID, r.FeedIDs)
		s.reply(client, protocol.TypeUnsubscribed, protocol.EncodeUnsubscribed(removed))
	case protocol.PingRequest:
		metrics.InboundFramesTotal.WithLabelValues(protocol.TypePing).Inc()
		s.reply(client, protocol.TypePong, protocol.EncodePong(s.clock.Now()))
	}
}

func (s *Server) reply(client *wsClient, messageType string, data []byte) {
	if err := client.Send(data); err != nil {
		return
	}
	metrics.MessagesSentTotal.WithLabelValues(messageType).Inc()
}
