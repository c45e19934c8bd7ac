// Package websocket implements the live stream transport over a websocket.
// Room joins and leaves are request frames acknowledged by the server, every
// other frame read from the socket is decoded into a domain event.
package websocket

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"channel-chat/errors"
	"channel-chat/infrastructure/wire"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	ws "github.com/gorilla/websocket"
)

const (
	defaultAckTimeout   = 5 * time.Second
	defaultWriteTimeout = 5 * time.Second
	defaultBufferSize   = 128
)

type Dialer struct {
	log        *slog.Logger
	url        string
	token      string
	dialer     *ws.Dialer
	ackTimeout time.Duration
	bufferSize int
}

func NewDialer(log *slog.Logger, url, token string) *Dialer {
	return &Dialer{
		log:   log,
		url:   url,
		token: token,
		dialer: &ws.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: 10 * time.Second,
		},
		ackTimeout: defaultAckTimeout,
		bufferSize: defaultBufferSize,
	}
}

func (d *Dialer) Dial(ctx context.Context) (contract.IStreamConnection, error) {
	header := http.Header{}
	if d.token != "" {
		header.Set("Authorization", "Bearer "+d.token)
	}
	conn, res, err := d.dialer.DialContext(ctx, d.url, header)
	if err != nil {
		if res != nil && res.StatusCode == http.StatusUnauthorized {
			return nil, fmt.Errorf("dial %s: %w", d.url, errors.ErrInvalidToken)
		}
		return nil, errors.Network("dial "+d.url, err)
	}
	d.log.Debug("Stream connected", "url", d.url)
	return newConn(d.log, conn, d.ackTimeout, d.bufferSize), nil
}

type ackKey struct {
	kind    wire.FrameType
	channel string
}

// Conn is one websocket. A reader goroutine owns the socket reads until it fails.
type Conn struct {
	log        *slog.Logger
	ws         *ws.Conn
	ackTimeout time.Duration

	writeMu sync.Mutex
	mu      sync.Mutex
	acks    map[ackKey]chan error
	events  chan event.DomainEvent
	done    chan struct{}
	closing chan struct{}
	closeMu sync.Once
}

func newConn(log *slog.Logger, conn *ws.Conn, ackTimeout time.Duration, bufferSize int) *Conn {
	c := &Conn{
		log:        log,
		ws:         conn,
		ackTimeout: ackTimeout,
		acks:       make(map[ackKey]chan error),
		events:     make(chan event.DomainEvent, bufferSize),
		done:       make(chan struct{}),
		closing:    make(chan struct{}),
	}
	go c.read()
	return c
}

func (c *Conn) JoinRoom(ctx context.Context, id chat.ChannelID) error {
	return c.request(ctx, wire.Frame{Type: wire.FrameJoin, ChannelID: string(id)}, wire.FrameJoined)
}

func (c *Conn) LeaveRoom(ctx context.Context, id chat.ChannelID) error {
	return c.request(ctx, wire.Frame{Type: wire.FrameLeave, ChannelID: string(id)}, wire.FrameLeft)
}

func (c *Conn) Events() <-chan event.DomainEvent {
	return c.events
}

// Close sends a close frame and releases the socket. The reader then closes Events.
func (c *Conn) Close() error {
	var err error
	c.closeMu.Do(func() {
		close(c.closing)
		c.writeMu.Lock()
		_ = c.ws.WriteControl(ws.CloseMessage,
			ws.FormatCloseMessage(ws.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()
	})
	return err
}

func (c *Conn) request(ctx context.Context, frame wire.Frame, expected wire.FrameType) error {
	key := ackKey{kind: expected, channel: frame.ChannelID}
	ack := make(chan error, 1)

	c.mu.Lock()
	select {
	case <-c.done:
		c.mu.Unlock()
		return errors.ErrStreamDisconnected
	default:
	}
	c.acks[key] = ack
	c.mu.Unlock()
	defer c.forget(key)

	if err := c.write(frame); err != nil {
		return errors.Network(fmt.Sprintf("%s %s", frame.Type, frame.ChannelID), err)
	}

	timer := time.NewTimer(c.ackTimeout)
	defer timer.Stop()
	select {
	case err := <-ack:
		return err
	case <-timer.C:
		return fmt.Errorf("%s %s: %w: no acknowledgement", frame.Type, frame.ChannelID, errors.ErrNetworkFailure)
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Conn) write(frame wire.Frame) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	_ = c.ws.SetWriteDeadline(time.Now().Add(defaultWriteTimeout))
	return c.ws.WriteJSON(frame)
}

func (c *Conn) forget(key ackKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.acks, key)
}

func (c *Conn) read() {
	defer c.shutdown()
	for {
		var frame wire.Frame
		if err := c.ws.ReadJSON(&frame); err != nil {
			if ws.IsCloseError(err, ws.CloseNormalClosure, ws.CloseGoingAway) {
				c.log.Debug("Stream closed by peer")
			} else {
				c.log.Debug("Stream read failed", "error", err)
			}
			return
		}
		if frame.IsAck() {
			c.resolve(frame)
			continue
		}
		evt, err := frame.ToEvent()
		if err != nil {
			c.log.Warn("Dropping undecodable frame", "type", frame.Type, "error", err)
			continue
		}
		select {
		case c.events <- evt:
		case <-c.closing:
			return
		}
	}
}

func (c *Conn) resolve(frame wire.Frame) {
	var err error
	kinds := []wire.FrameType{frame.Type}
	if frame.Type == wire.FrameError {
		err = wire.ErrorOf(frame.Code)
		if err == nil {
			err = fmt.Errorf("%w: %s", errors.ErrJoinRejected, frame.Error)
		}
		kinds = []wire.FrameType{wire.FrameJoined, wire.FrameLeft}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for _, kind := range kinds {
		if ack, ok := c.acks[ackKey{kind: kind, channel: frame.ChannelID}]; ok {
			ack <- err
			delete(c.acks, ackKey{kind: kind, channel: frame.ChannelID})
			return
		}
	}
}

// shutdown fails the pending requests and closes Events, the reader is its only sender.
func (c *Conn) shutdown() {
	c.mu.Lock()
	close(c.done)
	for key, ack := range c.acks {
		ack <- errors.ErrStreamDisconnected
		delete(c.acks, key)
	}
	c.mu.Unlock()
	close(c.events)
	_ = c.ws.Close()
}
