package message

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/VanshAg283/FCS-Project/internal/crypto"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

// consume applies the frames of ch in delivery order until ch is torn down.
func (s *Service) consume(gen uint64, ch *transport.Channel) {
	defer s.consumers.Done()
	for f := range ch.Frames() {
		s.receiveFrame(gen, f)
	}
}

// receiveFrame decrypts f and inserts it unless the conversation changed
// since gen.
func (s *Service) receiveFrame(gen uint64, f domain.InboundFrame) {
	conv, cur, _, err := s.snapshot()
	if err != nil || cur != gen {
		s.log.Debug("dropping late frame", zap.String("id", f.ID.String()))
		return
	}
	if f.ID == "" {
		s.log.Warn("dropping frame without id")
		return
	}
	rec := domain.StoredMessage{
		ID:          f.ID,
		SenderID:    f.SenderID,
		ReceiverID:  f.ReceiverID,
		Timestamp:   f.Timestamp,
		Attachments: f.Attachments,
	}
	if err := decodeBody(f.Message, &rec); err != nil {
		s.log.Warn("malformed frame body", zap.String("id", f.ID.String()), zap.Error(err))
	}
	m, openErr := s.open(rec, s.keys.KeyContext(), conv)
	if m.Timestamp.IsZero() {
		m.Timestamp = s.opts.Now().UTC()
	}

	s.mu.Lock()
	if s.gen != gen {
		s.mu.Unlock()
		return
	}
	inserted := s.tl.Insert(m)
	s.mu.Unlock()

	if !inserted {
		return
	}
	if openErr != nil {
		s.notify(Notice{Room: transport.RoomName(conv), ID: m.ID, Err: openErr})
	}
	if s.opts.OnMessage != nil {
		s.opts.OnMessage(m)
	}
}

// decodeBody fills rec from a frame's message field: an envelope object, or
// a JSON string carrying legacy plain text.
func decodeBody(raw json.RawMessage, rec *domain.StoredMessage) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if raw[0] == '"' {
		var text string
		if err := json.Unmarshal(raw, &text); err != nil {
			return err
		}
		rec.Text = &text
		return nil
	}
	var env domain.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return err
	}
	rec.Envelope = &env
	return nil
}

// Refresh fetches the conversation history and merges it into the timeline.
//
// Records are decrypted with bounded parallelism; a record that fails to
// decrypt becomes a placeholder entry and does not fail the refresh. All
// records are merged in one atomic update.
func (s *Service) Refresh(ctx context.Context) error {
	conv, gen, tl, err := s.snapshot()
	if err != nil {
		return err
	}
	records, err := s.relay.FetchHistory(ctx, conv)
	if err != nil {
		return err
	}

	kc := s.keys.KeyContext()
	out := make([]domain.ChatMessage, len(records))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.opts.HistoryWorkers)
	for i, rec := range records {
		i, rec := i, rec
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			out[i], _ = s.open(rec, kc, conv)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	failed := 0
	for _, m := range out {
		if m.Undecryptable() {
			failed++
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.gen != gen {
		return nil
	}
	added := tl.Merge(out)
	s.log.Info("history merged",
		zap.String("room", transport.RoomName(conv)),
		zap.Int("records", len(records)),
		zap.Int("added", added),
		zap.Int("undecryptable", failed),
	)
	return nil
}

// open turns a relay record of conv into a timeline entry, decrypting its
// envelope with kc. Records without an envelope carry legacy plain text.
//
// The sender and recipient of an envelope come from its authenticated header.
// An envelope whose header disagrees with the record or does not belong to
// conv is shown as undecryptable. The returned error says why the entry is
// undecryptable and is nil otherwise.
func (s *Service) open(
	rec domain.StoredMessage, kc crypto.KeyContext, conv domain.Conversation,
) (domain.ChatMessage, error) {
	m := domain.ChatMessage{
		ID:          rec.ID,
		SenderID:    rec.SenderID,
		RecipientID: rec.ReceiverID,
		IsSender:    rec.IsSender || rec.SenderID == s.self,
		Envelope:    rec.Envelope,
		Status:      domain.StatusReceived,
		Attachments: rec.Attachments,
		Timestamp:   rec.Timestamp,
	}

	env := rec.Envelope
	if env != nil {
		m.SenderID = env.SenderID
		m.RecipientID = env.RecipientID
		m.IsSender = env.SenderID == s.self
		if m.Timestamp.IsZero() {
			m.Timestamp = env.Timestamp
		}
	}
	if m.IsSender {
		m.Status = domain.StatusSent
	}

	if env == nil {
		if rec.Text != nil || len(rec.Attachments) > 0 {
			if rec.Text != nil {
				m.DecryptedText = *rec.Text
			}
			m.BodyState = domain.BodyDecrypted
			return m, nil
		}
		m.BodyState = domain.BodyUndecryptable
		return m, domain.New(domain.CodeDecryption, "record has no body")
	}

	if err := checkRoute(rec, *env, conv); err != nil {
		s.log.Warn("misrouted envelope",
			zap.String("id", rec.ID.String()),
			zap.String("record_sender", rec.SenderID.String()),
			zap.String("envelope_sender", env.SenderID.String()),
			zap.Error(err),
		)
		m.BodyState = domain.BodyUndecryptable
		return m, err
	}

	pt, err := crypto.Decrypt(*env, kc)
	if err != nil {
		if !errors.Is(err, domain.ErrDecryption) {
			s.log.Warn("decrypt", zap.String("id", rec.ID.String()), zap.Error(err))
		}
		m.BodyState = domain.BodyUndecryptable
		return m, err
	}
	m.DecryptedText = string(pt)
	m.BodyState = domain.BodyDecrypted
	return m, nil
}

// checkRoute verifies that the relay's addressing of rec matches the
// envelope header and that the envelope belongs to conv.
func checkRoute(rec domain.StoredMessage, env domain.Envelope, conv domain.Conversation) error {
	if rec.SenderID != "" && rec.SenderID != env.SenderID {
		return domain.New(domain.CodeDecryption, "record sender differs from envelope sender")
	}
	if rec.ReceiverID != "" && rec.ReceiverID != env.RecipientID {
		return domain.New(domain.CodeDecryption, "record receiver differs from envelope recipient")
	}
	if conv.Kind == domain.Group {
		if env.RecipientID != conv.Group.String() {
			return domain.New(domain.CodeDecryption, "envelope addressed outside this group")
		}
		return nil
	}
	in := env.SenderID == conv.Peer && env.RecipientID == conv.Self.String()
	out := env.SenderID == conv.Self && env.RecipientID == conv.Peer.String()
	if !in && !out {
		return domain.New(domain.CodeDecryption, "envelope addressed outside this conversation")
	}
	return nil
}
