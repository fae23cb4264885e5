package transport

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

// Coordinator keeps at most one open Channel.
type Coordinator struct {
	dialer Dialer
	h      Handlers
	log    *zap.Logger

	mu  sync.Mutex
	cur *Channel
}

func NewCoordinator(d Dialer, h Handlers, log *zap.Logger) *Coordinator {
	if log == nil {
		log = zap.NewNop()
	}
	return &Coordinator{dialer: d, h: h, log: log}
}

// Open switches to conv.
//
// Steps:
//  1. Close the current channel, if any.
//  2. Dial the room of conv (Connecting).
//  3. On success start reading (Open); on failure report Closed with the
//     dial error and return ErrTransport.
func (c *Coordinator) Open(ctx context.Context, conv domain.Conversation) (*Channel, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cur != nil {
		_ = c.cur.Close()
		c.cur = nil
	}

	ch := newChannel(conv, c.h, c.log)
	ch.setState(Connecting, nil)
	conn, err := c.dialer.Dial(ctx, ch.room)
	if err != nil {
		err = domain.Wrap(domain.CodeTransport, "open "+ch.room, err)
		_ = ch.shutdown(err, false)
		close(ch.frames)
		return nil, err
	}
	ch.start(conn)
	c.cur = ch
	c.log.Info("channel open", zap.String("room", ch.room))
	return ch, nil
}

// Current returns the open channel or nil.
func (c *Coordinator) Current() *Channel {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cur
}

// State returns the state of the current channel, Disconnected when none.
func (c *Coordinator) State() State {
	c.mu.Lock()
	cur := c.cur
	c.mu.Unlock()
	if cur == nil {
		return Disconnected
	}
	return cur.State()
}

// Send writes f on the current channel.
func (c *Coordinator) Send(f domain.OutboundFrame) error {
	ch := c.Current()
	if ch == nil {
		return domain.New(domain.CodeTransport, "no open channel")
	}
	return ch.Send(f)
}

// Close closes the current channel.
func (c *Coordinator) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.cur == nil {
		return nil
	}
	err := c.cur.Close()
	c.cur = nil
	return err
}
