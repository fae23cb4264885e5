package message

import (
	"context"
	"crypto/rsa"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/crypto"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/timeline"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

const defaultHistoryWorkers = 4

var (
	// ErrNoConversation is returned when no conversation has been opened.
	ErrNoConversation = errors.New("no open conversation")
	// ErrUnsupportedMedia is returned for attachments that are not image, gif, svg or video.
	ErrUnsupportedMedia = errors.New("unsupported attachment type")
	// ErrNotFailed is returned by Retry and Discard for entries that are not failed sends.
	ErrNotFailed = errors.New("message is not a failed send")
)

// Keys is what the pipeline needs from the key store.
type Keys interface {
	ResolvePeerPublicKey(ctx context.Context, peer domain.UserID) (*rsa.PublicKey, error)
	KeyContext() crypto.KeyContext
}

// Notice reports a recoverable condition to the user interface.
type Notice struct {
	Room string
	ID   domain.MessageID // empty unless the notice concerns one message
	Err  error
}

// Options tunes a Service. The zero value is usable.
type Options struct {
	// HistoryWorkers bounds parallel decryption during hydration.
	HistoryWorkers int
	OnNotice       func(Notice)
	// OnMessage is called from the frame consumer for every message that
	// arrives on the channel and was not already in the timeline.
	OnMessage func(domain.ChatMessage)
	Logger    *zap.Logger
	// Now stamps pending entries; defaults to time.Now.
	Now func() time.Time
}

// Service runs the pipeline for one local user.
//
// High-level flow:
//   - Open: switch the transport to the conversation's room (closing the old
//     one), start the frame consumer, then hydrate history from the relay.
//   - Send: insert a pending entry, encrypt for the peer (or every group
//     member) plus a copy for ourselves, store via the relay, replace the
//     pending entry with the acknowledged one, then push on the channel.
//   - Receive: one consumer per channel decrypts frames in delivery order and
//     inserts them; frames of a torn-down channel are discarded.
//   - Delete: ask the relay first and remove locally only on success.
type Service struct {
	self   domain.UserID
	keys   Keys
	relay  domain.RelayClient
	coord  *transport.Coordinator
	log    *zap.Logger
	opts   Options
	notify func(Notice)

	mu       sync.Mutex
	conv     domain.Conversation
	opened   bool
	gen      uint64
	tl       *timeline.Timeline
	members  []domain.UserID
	deleting map[domain.MessageID]struct{}
	media    map[domain.MessageID]domain.MediaUpload

	consumers sync.WaitGroup
}

// New builds a pipeline that opens room channels through dialer.
func New(
	self domain.UserID,
	keys Keys,
	relay domain.RelayClient,
	dialer transport.Dialer,
	opts Options,
) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.HistoryWorkers <= 0 {
		opts.HistoryWorkers = defaultHistoryWorkers
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	s := &Service{
		self:     self,
		keys:     keys,
		relay:    relay,
		log:      opts.Logger,
		opts:     opts,
		notify:   opts.OnNotice,
		tl:       timeline.New(),
		deleting: make(map[domain.MessageID]struct{}),
		media:    make(map[domain.MessageID]domain.MediaUpload),
	}
	if s.notify == nil {
		s.notify = func(Notice) {}
	}
	s.coord = transport.NewCoordinator(dialer, transport.Handlers{
		OnState: s.onState,
		OnError: s.onErrorFrame,
	}, opts.Logger)
	return s
}

// Open makes conv the active conversation.
//
// The timeline is replaced by the conversation's history. When the channel
// cannot be opened the history is still loaded and the transport error is
// returned; sends keep working through the relay API.
func (s *Service) Open(ctx context.Context, conv domain.Conversation) error {
	conv.Self = s.self

	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.conv = conv
	s.opened = true
	s.tl = timeline.New()
	s.members = nil
	s.media = make(map[domain.MessageID]domain.MediaUpload)
	s.mu.Unlock()

	var openErr error
	ch, err := s.coord.Open(ctx, conv)
	if err != nil {
		s.log.Warn("channel unavailable, using history only",
			zap.String("room", transport.RoomName(conv)), zap.Error(err))
		openErr = err
	} else {
		s.consumers.Add(1)
		go s.consume(gen, ch)
	}

	if conv.Kind == domain.Group {
		members, err := s.relay.FetchGroupMembers(ctx, conv.Group)
		if err != nil {
			return errors.Join(openErr, err)
		}
		s.mu.Lock()
		if s.gen == gen {
			s.members = members
		}
		s.mu.Unlock()
	}

	if err := s.Refresh(ctx); err != nil {
		return errors.Join(openErr, err)
	}
	return openErr
}

// Close tears down the channel and waits for its consumer to finish.
func (s *Service) Close() error {
	s.mu.Lock()
	s.gen++
	s.opened = false
	s.mu.Unlock()

	err := s.coord.Close()
	s.consumers.Wait()
	return err
}

// Conversation returns the active conversation.
func (s *Service) Conversation() (domain.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conv, s.opened
}

// State reports the transport state of the active conversation.
func (s *Service) State() transport.State { return s.coord.State() }

// Messages returns the timeline, oldest first.
func (s *Service) Messages() []domain.ChatMessage { return s.timeline().Messages() }

// Groups returns the timeline partitioned into calendar days relative to now.
func (s *Service) Groups(now time.Time) []timeline.DayGroup { return s.timeline().Groups(now) }

func (s *Service) timeline() *timeline.Timeline {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tl
}

// snapshot returns the active conversation with its generation and timeline.
func (s *Service) snapshot() (domain.Conversation, uint64, *timeline.Timeline, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.opened {
		return domain.Conversation{}, 0, nil, ErrNoConversation
	}
	return s.conv, s.gen, s.tl, nil
}

func (s *Service) onState(room string, st transport.State, err error) {
	s.log.Debug("channel state", zap.String("room", room), zap.Stringer("state", st))
	if st == transport.Closed && err != nil {
		s.notify(Notice{Room: room, Err: err})
	}
}

func (s *Service) onErrorFrame(room string, err error) {
	s.notify(Notice{Room: room, Err: err})
}
