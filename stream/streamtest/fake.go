// Package streamtest provides in-memory stream connections for tests.
package streamtest

import (
	"channel-chat/contract"
	"channel-chat/domain/chat"
	"channel-chat/domain/event"
	"context"
	"fmt"
	"sync"
)

// Conn is an in-memory IStreamConnection. Push delivers an event, Drop simulates a transport failure.
type Conn struct {
	mu       sync.Mutex
	events   chan event.DomainEvent
	joined   []chat.ChannelID
	left     []chat.ChannelID
	closed   bool
	dropped  bool
	JoinErr  error
	joinedCh chan chat.ChannelID
}

func NewConn() *Conn {
	return &Conn{
		events:   make(chan event.DomainEvent, 64),
		joinedCh: make(chan chat.ChannelID, 8),
	}
}

func (c *Conn) JoinRoom(_ context.Context, id chat.ChannelID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.JoinErr != nil {
		return c.JoinErr
	}
	c.joined = append(c.joined, id)
	select {
	case c.joinedCh <- id:
	default:
	}
	return nil
}

func (c *Conn) LeaveRoom(_ context.Context, id chat.ChannelID) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.left = append(c.left, id)
	return nil
}

func (c *Conn) Events() <-chan event.DomainEvent {
	return c.events
}

func (c *Conn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

// Push delivers evt as if the server sent it.
func (c *Conn) Push(evt event.DomainEvent) {
	c.events <- evt
}

// Drop closes the event channel as a broken transport does.
func (c *Conn) Drop() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.dropped {
		c.dropped = true
		close(c.events)
	}
}

// WaitJoined returns once the room was joined on this connection.
func (c *Conn) WaitJoined() <-chan chat.ChannelID {
	return c.joinedCh
}

func (c *Conn) Joined() []chat.ChannelID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.ChannelID(nil), c.joined...)
}

func (c *Conn) Left() []chat.ChannelID {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]chat.ChannelID(nil), c.left...)
}

func (c *Conn) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// Dialer hands out the queued connections in order, then fails.
type Dialer struct {
	mu    sync.Mutex
	conns []*Conn
	dials int
	Err   error
}

func NewDialer(conns ...*Conn) *Dialer {
	return &Dialer{conns: conns}
}

func (d *Dialer) Dial(ctx context.Context) (contract.IStreamConnection, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.dials++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if d.Err != nil {
		return nil, d.Err
	}
	if len(d.conns) == 0 {
		return nil, fmt.Errorf("connection refused")
	}
	conn := d.conns[0]
	d.conns = d.conns[1:]
	return conn, nil
}

func (d *Dialer) Dials() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dials
}
