package message

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/crypto"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/timeline"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

const pendingPrefix = "pending-"

// IsPending reports whether id names a local entry the relay has not acknowledged.
func IsPending(id domain.MessageID) bool { return strings.HasPrefix(id.String(), pendingPrefix) }

// Send encrypts text for the active conversation and delivers it.
//
// The returned id is the relay-assigned id on success. On failure the
// pending entry stays in the timeline with StatusFailed and its text, and
// its pending id is returned with the error so the caller can Retry or
// Discard it.
func (s *Service) Send(ctx context.Context, text string) (domain.MessageID, error) {
	return s.send(ctx, text, nil)
}

// SendWithMedia is Send with one attachment. The attachment itself is not
// encrypted. Unsupported file types are rejected before anything is queued.
func (s *Service) SendWithMedia(ctx context.Context, text string, media domain.MediaUpload) (domain.MessageID, error) {
	if _, ok := domain.ClassifyFile(media.Name); !ok {
		return "", fmt.Errorf("%w: %s", ErrUnsupportedMedia, media.Name)
	}
	return s.send(ctx, text, &media)
}

func (s *Service) send(ctx context.Context, text string, media *domain.MediaUpload) (domain.MessageID, error) {
	conv, _, tl, err := s.snapshot()
	if err != nil {
		return "", err
	}
	id := domain.MessageID(pendingPrefix + uuid.NewString())
	tl.Insert(domain.ChatMessage{
		ID:            id,
		SenderID:      s.self,
		RecipientID:   conv.Target(),
		IsSender:      true,
		DecryptedText: text,
		BodyState:     domain.BodyDecrypted,
		Status:        domain.StatusPending,
		Timestamp:     s.opts.Now().UTC(),
	})
	if media != nil {
		s.mu.Lock()
		s.media[id] = *media
		s.mu.Unlock()
	}
	return s.deliver(ctx, conv, tl, id, text, media)
}

// Retry re-sends a failed entry with its original text and attachment.
func (s *Service) Retry(ctx context.Context, id domain.MessageID) (domain.MessageID, error) {
	conv, _, tl, err := s.snapshot()
	if err != nil {
		return "", err
	}
	var (
		text    string
		retried bool
	)
	tl.Update(id, func(m *domain.ChatMessage) {
		if m.Status != domain.StatusFailed {
			return
		}
		text = m.DecryptedText
		m.Status = domain.StatusPending
		retried = true
	})
	if !retried {
		return "", fmt.Errorf("retry %s: %w", id, ErrNotFailed)
	}

	s.mu.Lock()
	var media *domain.MediaUpload
	if m, has := s.media[id]; has {
		media = &m
	}
	s.mu.Unlock()
	return s.deliver(ctx, conv, tl, id, text, media)
}

// Discard drops a failed entry without sending it.
func (s *Service) Discard(id domain.MessageID) error {
	_, _, tl, err := s.snapshot()
	if err != nil {
		return err
	}
	m, ok := tl.Get(id)
	if !ok || m.Status != domain.StatusFailed {
		return fmt.Errorf("discard %s: %w", id, ErrNotFailed)
	}
	tl.Remove(id)
	s.mu.Lock()
	delete(s.media, id)
	s.mu.Unlock()
	return nil
}

// deliver encrypts, stores and fans out the pending entry id.
//
// Steps:
//  1. Seal text for the conversation's readers.
//  2. Store the envelope through the relay API (with media when present).
//  3. Replace the pending entry with the acknowledged message.
//  4. Push the stored envelope on the room channel; failure there is only
//     logged since the relay already holds the message.
func (s *Service) deliver(
	ctx context.Context,
	conv domain.Conversation,
	tl *timeline.Timeline,
	id domain.MessageID,
	text string,
	media *domain.MediaUpload,
) (domain.MessageID, error) {
	env, err := s.seal(ctx, conv, []byte(text))
	if err != nil {
		return id, s.fail(conv, tl, id, err)
	}

	var stored domain.StoredMessage
	if media != nil {
		stored, err = s.relay.SendMessageWithMedia(ctx, conv.Target(), env, *media)
	} else {
		stored, err = s.relay.SendMessage(ctx, conv.Target(), env)
	}
	if err != nil {
		return id, s.fail(conv, tl, id, err)
	}

	ts := stored.Timestamp
	if ts.IsZero() {
		ts = env.Timestamp
	}
	env.Timestamp = ts
	tl.Replace(id, domain.ChatMessage{
		ID:            stored.ID,
		SenderID:      s.self,
		RecipientID:   conv.Target(),
		IsSender:      true,
		Envelope:      &env,
		DecryptedText: text,
		BodyState:     domain.BodyDecrypted,
		Status:        domain.StatusSent,
		Attachments:   stored.Attachments,
		Timestamp:     ts,
	})
	s.mu.Lock()
	delete(s.media, id)
	s.mu.Unlock()

	s.push(conv, stored.ID, env)
	return stored.ID, nil
}

func (s *Service) push(conv domain.Conversation, id domain.MessageID, env domain.Envelope) {
	ch := s.coord.Current()
	if ch == nil || ch.Room() != transport.RoomName(conv) {
		return
	}
	raw, err := json.Marshal(env)
	if err != nil {
		s.log.Warn("encode envelope for channel", zap.Error(err))
		return
	}
	err = ch.Send(domain.OutboundFrame{
		ID:         id,
		Message:    raw,
		SenderID:   s.self,
		ReceiverID: conv.Target(),
	})
	if err != nil {
		s.log.Warn("channel push failed", zap.String("id", id.String()), zap.Error(err))
	}
}

func (s *Service) fail(conv domain.Conversation, tl *timeline.Timeline, id domain.MessageID, err error) error {
	tl.Update(id, func(m *domain.ChatMessage) { m.Status = domain.StatusFailed })
	s.log.Warn("send failed",
		zap.String("id", id.String()),
		zap.String("code", string(domain.CodeOf(err))),
		zap.Error(err),
	)
	s.notify(Notice{Room: transport.RoomName(conv), ID: id, Err: err})
	return err
}

// seal encrypts plaintext for conv. Direct envelopes wrap the content key
// for the peer with a copy for ourselves; group envelopes carry one copy per
// member.
func (s *Service) seal(ctx context.Context, conv domain.Conversation, plaintext []byte) (domain.Envelope, error) {
	kc := s.keys.KeyContext()
	if !kc.Ready() {
		return domain.Envelope{}, domain.ErrNoKey
	}
	hdr := crypto.Header{SenderID: s.self, RecipientID: conv.Target()}
	self := crypto.Recipient{UserID: s.self, Key: kc.PublicKey()}

	if conv.Kind == domain.Direct {
		peer, err := s.keys.ResolvePeerPublicKey(ctx, conv.Peer)
		if err != nil {
			return domain.Envelope{}, err
		}
		return crypto.Encrypt(plaintext, hdr, peer, self)
	}

	members, err := s.groupMembers(ctx, conv)
	if err != nil {
		return domain.Envelope{}, err
	}
	copies := []crypto.Recipient{self}
	for _, m := range members {
		if m == s.self {
			continue
		}
		var key *rsa.PublicKey
		if key, err = s.keys.ResolvePeerPublicKey(ctx, m); err != nil {
			return domain.Envelope{}, fmt.Errorf("member %s: %w", m, err)
		}
		copies = append(copies, crypto.Recipient{UserID: m, Key: key})
	}
	return crypto.Encrypt(plaintext, hdr, nil, copies...)
}

func (s *Service) groupMembers(ctx context.Context, conv domain.Conversation) ([]domain.UserID, error) {
	s.mu.Lock()
	members := s.members
	s.mu.Unlock()
	if members != nil {
		return members, nil
	}
	members, err := s.relay.FetchGroupMembers(ctx, conv.Group)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	if s.conv == conv {
		s.members = members
	}
	s.mu.Unlock()
	return members, nil
}
