package transport

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

// frameBuffer is how many parsed frames may wait for the consumer.
const frameBuffer = 64

// Handlers receive channel events. They run on the channel's read goroutine
// or on the goroutine calling Close, and must not call back into the
// Coordinator.
type Handlers struct {
	// OnState reports every state change. err is non-nil only when a
	// network error closed the channel.
	OnState func(room string, s State, err error)
	// OnError reports error frames: domain.ErrBlocked for code "blocked",
	// domain.ErrTransport otherwise.
	OnError func(room string, err error)
}

// Channel is one live room connection.
type Channel struct {
	room string
	conv domain.Conversation
	conn Conn
	h    Handlers
	log  *zap.Logger

	frames chan domain.InboundFrame
	done   chan struct{}

	mu    sync.Mutex
	state State
	once  sync.Once

	wmu sync.Mutex
}

func newChannel(conv domain.Conversation, h Handlers, log *zap.Logger) *Channel {
	room := RoomName(conv)
	return &Channel{
		room:   room,
		conv:   conv,
		h:      h,
		log:    log.With(zap.String("room", room)),
		frames: make(chan domain.InboundFrame, frameBuffer),
		done:   make(chan struct{}),
		state:  Disconnected,
	}
}

func (ch *Channel) Room() string                      { return ch.room }
func (ch *Channel) Conversation() domain.Conversation { return ch.conv }

// Frames delivers inbound message frames in arrival order. It is closed
// after the channel is torn down.
func (ch *Channel) Frames() <-chan domain.InboundFrame { return ch.frames }

// Done is closed when the channel leaves the Open state.
func (ch *Channel) Done() <-chan struct{} { return ch.done }

func (ch *Channel) State() State {
	ch.mu.Lock()
	defer ch.mu.Unlock()
	return ch.state
}

func (ch *Channel) setState(s State, err error) {
	ch.mu.Lock()
	ch.state = s
	ch.mu.Unlock()
	if ch.h.OnState != nil {
		ch.h.OnState(ch.room, s, err)
	}
}

// start moves the channel to Open over conn and begins reading.
func (ch *Channel) start(conn Conn) {
	ch.conn = conn
	ch.setState(Open, nil)
	go ch.readLoop()
}

// Send writes one frame. It fails with ErrTransport unless the channel is Open.
func (ch *Channel) Send(f domain.OutboundFrame) error {
	if ch.State() != Open {
		return domain.New(domain.CodeTransport, "channel "+ch.room+" is not open")
	}
	b, err := json.Marshal(f)
	if err != nil {
		return domain.Wrap(domain.CodeTransport, "encode frame", err)
	}
	ch.wmu.Lock()
	defer ch.wmu.Unlock()
	if err := ch.conn.WriteMessage(websocket.TextMessage, b); err != nil {
		return domain.Wrap(domain.CodeTransport, "write frame", err)
	}
	return nil
}

// Close tears the channel down. It is safe to call more than once.
func (ch *Channel) Close() error {
	return ch.shutdown(nil, true)
}

func (ch *Channel) shutdown(cause error, local bool) error {
	var err error
	ch.once.Do(func() {
		close(ch.done)
		if ch.conn != nil {
			err = ch.conn.Close()
		}
		if local {
			cause = nil
		}
		ch.setState(Closed, cause)
	})
	return err
}

func (ch *Channel) readLoop() {
	defer close(ch.frames)
	for {
		_, data, err := ch.conn.ReadMessage()
		if err != nil {
			select {
			case <-ch.done:
			default:
				ch.log.Warn("channel read failed", zap.Error(err))
				_ = ch.shutdown(domain.Wrap(domain.CodeTransport, "read frame", err), false)
			}
			return
		}

		var f domain.InboundFrame
		if err := json.Unmarshal(data, &f); err != nil {
			ch.log.Warn("dropping malformed frame", zap.Error(err))
			continue
		}
		if f.IsError() {
			ch.routeError(f)
			continue
		}

		select {
		case <-ch.done:
			ch.log.Debug("dropping frame after close", zap.String("id", f.ID.String()))
			return
		default:
		}
		select {
		case ch.frames <- f:
		case <-ch.done:
			return
		}
	}
}

func (ch *Channel) routeError(f domain.InboundFrame) {
	var err error
	if f.Code == domain.FrameCodeBlocked {
		err = domain.New(domain.CodeBlocked, f.Error)
	} else {
		err = domain.New(domain.CodeTransport, f.Error)
	}
	ch.log.Info("relay error frame", zap.String("code", f.Code))
	if ch.h.OnError != nil {
		ch.h.OnError(ch.room, err)
	}
}
