package api

import (
	"channel-chat/auth"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"channel-chat/infrastructure/wire"
	"channel-chat/observability"
	"channel-chat/runtime"
	"channel-chat/services"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	ws "github.com/gorilla/websocket"
)

const (
	defaultSendBufferSize = 64
	defaultWriteTimeout   = 5 * time.Second
	defaultPingInterval   = 30 * time.Second
)

// Hub upgrades stream requests and plugs every connection into the room registry.
type Hub struct {
	log          *slog.Logger
	service      services.IChatService
	orchestrator *runtime.Orchestrator
	metrics      *observability.Metrics
	upgrader     ws.Upgrader
	sendBuffer   int
	writeTimeout time.Duration
	pingInterval time.Duration
}

func NewHub(log *slog.Logger, service services.IChatService, orchestrator *runtime.Orchestrator,
	metrics *observability.Metrics, config Config) *Hub {
	h := &Hub{
		log:          log,
		service:      service,
		orchestrator: orchestrator,
		metrics:      metrics,
		upgrader: ws.Upgrader{
			// Development server, any origin
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		sendBuffer:   config.SendBufferSize,
		writeTimeout: config.WriteTimeout,
		pingInterval: config.PingInterval,
	}
	if h.sendBuffer <= 0 {
		h.sendBuffer = defaultSendBufferSize
	}
	if h.writeTimeout <= 0 {
		h.writeTimeout = defaultWriteTimeout
	}
	if h.pingInterval <= 0 {
		h.pingInterval = defaultPingInterval
	}
	return h
}

// Handle runs one websocket until the client goes away.
func (h *Hub) Handle(c *gin.Context) {
	identity, _ := auth.IdentityFrom(c)
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Warn("Websocket upgrade failed", "user_id", identity.ID, "error", err)
		return
	}
	id := uuid.NewString()
	client := &streamClient{
		id:       id,
		identity: identity,
		conn:     conn,
		hub:      h,
		send:     make(chan wire.Frame, h.sendBuffer),
		done:     make(chan struct{}),
		log:      h.log.With("conn_id", id, "user_id", identity.ID),
	}
	h.metrics.StreamClients.Inc()
	defer h.metrics.StreamClients.Dec()
	client.serve(c.Request.Context())
}

// streamClient is the sink of one connection. The writer goroutine is the only socket writer.
type streamClient struct {
	id       string
	identity chat.Identity
	conn     *ws.Conn
	hub      *Hub
	send     chan wire.Frame
	done     chan struct{}
	once     sync.Once
	log      *slog.Logger
}

// Consume queues an event for this connection, it is called by the fanout worker.
func (s *streamClient) Consume(ctx context.Context, evt event.DomainEvent) error {
	frame, err := wire.FromEvent(evt)
	if err != nil {
		return err
	}
	return s.enqueue(ctx, frame)
}

func (s *streamClient) enqueue(ctx context.Context, frame wire.Frame) error {
	select {
	case s.send <- frame:
		return nil
	case <-s.done:
		return errors.ErrStreamDisconnected
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *streamClient) serve(ctx context.Context) {
	s.log.Info("Stream client connected")
	go s.write()
	defer s.stop()

	for {
		var frame wire.Frame
		if err := s.conn.ReadJSON(&frame); err != nil {
			if ws.IsUnexpectedCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				s.log.Debug("Stream client read failed", "error", err)
			}
			return
		}
		ack := s.handle(ctx, frame)
		if err := s.enqueue(ctx, ack); err != nil {
			return
		}
	}
}

// handle subscribes or unsubscribes the connection and returns the acknowledgement.
// Any identity may follow the live stream of an existing channel, posting still requires membership.
func (s *streamClient) handle(ctx context.Context, frame wire.Frame) wire.Frame {
	channelID := chat.ChannelID(frame.ChannelID)
	switch frame.Type {
	case wire.FrameJoin:
		if _, err := s.hub.service.GetChannel(ctx, channelID); err != nil {
			s.log.Debug("Room join rejected", "channel_id", channelID, "error", err)
			return wire.Ack(frame, err)
		}
		s.hub.orchestrator.RegisterParticipant(s.id, channelID, s)
		s.log.Debug("Room joined", "channel_id", channelID)
		return wire.Ack(frame, nil)
	case wire.FrameLeave:
		s.hub.orchestrator.UnregisterParticipant(s.id, channelID)
		s.log.Debug("Room left", "channel_id", channelID)
		return wire.Ack(frame, nil)
	default:
		err := fmt.Errorf("%w: unexpected frame %q", errors.ErrInvalidPayload, frame.Type)
		return wire.Frame{Type: wire.FrameError, ChannelID: frame.ChannelID, Error: err.Error(), Code: wire.CodeOf(err)}
	}
}

func (s *streamClient) write() {
	ticker := time.NewTicker(s.hub.pingInterval)
	defer ticker.Stop()
	for {
		select {
		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(s.hub.writeTimeout))
			if err := s.conn.WriteJSON(frame); err != nil {
				s.log.Debug("Stream client write failed", "error", err)
				s.stop()
				return
			}
		case <-ticker.C:
			deadline := time.Now().Add(s.hub.writeTimeout)
			if err := s.conn.WriteControl(ws.PingMessage, nil, deadline); err != nil {
				s.stop()
				return
			}
		case <-s.done:
			return
		}
	}
}

// stop unregisters the connection from every room and closes the socket, once.
func (s *streamClient) stop() {
	s.once.Do(func() {
		s.hub.orchestrator.DisconnectParticipant(s.id)
		close(s.done)
		_ = s.conn.Close()
		s.log.Info("Stream client disconnected")
	})
}
