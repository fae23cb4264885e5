// internal/services/message/service_test.go
package message_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VanshAg283/FCS-Project/internal/crypto"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/services/message"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

var now = time.Date(2024, 6, 15, 18, 0, 0, 0, time.UTC)

type harness struct {
	svc     *message.Service
	relay   *fakeRelay
	dialer  *fakeDialer
	notices *noticeLog
}

func newHarness(t *testing.T, self domain.UserID) *harness {
	t.Helper()
	h := &harness{relay: newFakeRelay(now), dialer: &fakeDialer{}, notices: &noticeLog{}}
	h.svc = message.New(self, fakeKeys{t: t, self: self}, h.relay, h.dialer, message.Options{
		HistoryWorkers: 2,
		OnNotice:       h.notices.add,
		Now:            func() time.Time { return now },
	})
	t.Cleanup(func() { _ = h.svc.Close() })
	return h
}

// sealFrom encrypts text as sender for alice in a direct chat.
func sealFrom(t *testing.T, sender domain.UserID, text string) domain.Envelope {
	t.Helper()
	env, err := crypto.Encrypt(
		[]byte(text),
		crypto.Header{SenderID: sender, RecipientID: "alice"},
		&keyOf(t, "alice").PublicKey,
	)
	require.NoError(t, err)
	return env
}

func textOf(s string) *string { return &s }

func frameOf(t *testing.T, id domain.MessageID, env domain.Envelope, at time.Time) domain.InboundFrame {
	t.Helper()
	raw, err := json.Marshal(env)
	require.NoError(t, err)
	return domain.InboundFrame{ID: id, Message: raw, SenderID: env.SenderID, ReceiverID: env.RecipientID, Timestamp: at}
}

func TestSend_Direct_StoresAcksAndPushes(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))

	id, err := h.svc.Send(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, domain.MessageID("1"), id)

	msgs := h.svc.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.StatusSent, msgs[0].Status)
	assert.Equal(t, "hello", msgs[0].DisplayText())
	assert.True(t, msgs[0].IsSender)

	sent := h.relay.sentRecords()
	require.Len(t, sent, 1)
	assert.Equal(t, "bob", sent[0].Receiver)

	// Bob reads it with his key, alice with her copy.
	for _, u := range []domain.UserID{"bob", "alice"} {
		pt, err := crypto.Decrypt(sent[0].Envelope, crypto.NewKeyContext(u, keyOf(t, u)))
		require.NoError(t, err)
		assert.Equal(t, "hello", string(pt))
	}

	frames := h.dialer.conn("dm_alice_bob").frames()
	require.Len(t, frames, 1)
	assert.Equal(t, domain.MessageID("1"), frames[0].ID)
	assert.Equal(t, "bob", frames[0].ReceiverID)
}

func TestSend_Failure_KeepsTextThenRetry(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))

	h.relay.sendErr = domain.New(domain.CodeTransport, "relay down")
	pending, err := h.svc.Send(ctx, "typed text")
	require.ErrorIs(t, err, domain.ErrTransport)
	assert.True(t, message.IsPending(pending))

	msgs := h.svc.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.StatusFailed, msgs[0].Status)
	assert.Equal(t, "typed text", msgs[0].DecryptedText)
	require.NotEmpty(t, h.notices.errors())

	h.relay.mu.Lock()
	h.relay.sendErr = nil
	h.relay.mu.Unlock()

	id, err := h.svc.Retry(ctx, pending)
	require.NoError(t, err)
	assert.Equal(t, domain.MessageID("1"), id)

	msgs = h.svc.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, domain.MessageID("1"), msgs[0].ID)
	assert.Equal(t, domain.StatusSent, msgs[0].Status)

	_, err = h.svc.Retry(ctx, id)
	assert.ErrorIs(t, err, message.ErrNotFailed)
}

func TestSend_Failure_Discard(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))

	h.relay.sendErr = domain.New(domain.CodeBlocked, "blocked")
	pending, err := h.svc.Send(ctx, "x")
	require.ErrorIs(t, err, domain.ErrBlocked)

	require.NoError(t, h.svc.Discard(pending))
	assert.Empty(t, h.svc.Messages())
	assert.ErrorIs(t, h.svc.Discard(pending), message.ErrNotFailed)
}

func TestSend_UnknownPeer_KeyImport(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "mallory")))

	_, err := h.svc.Send(ctx, "hi")
	assert.ErrorIs(t, err, domain.ErrKeyImport)
	assert.Empty(t, h.relay.sentRecords())
	require.Len(t, h.svc.Messages(), 1)
	assert.Equal(t, domain.StatusFailed, h.svc.Messages()[0].Status)
}

func TestSend_WithoutOpen(t *testing.T) {
	h := newHarness(t, "alice")
	_, err := h.svc.Send(context.Background(), "hi")
	assert.ErrorIs(t, err, message.ErrNoConversation)
}

func TestSendWithMedia(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))

	_, err := h.svc.SendWithMedia(ctx, "look", domain.MediaUpload{Name: "notes.exe", Data: []byte{1}})
	assert.ErrorIs(t, err, message.ErrUnsupportedMedia)
	assert.Empty(t, h.svc.Messages())

	id, err := h.svc.SendWithMedia(ctx, "look", domain.MediaUpload{Name: "cat.GIF", Data: []byte{1}})
	require.NoError(t, err)
	got := h.svc.Messages()
	require.Len(t, got, 1)
	assert.Equal(t, id, got[0].ID)
	require.Len(t, got[0].Attachments, 1)
	assert.Equal(t, domain.FileGIF, got[0].Attachments[0].FileType)
}

func TestReceive_DecryptsDedupsAndFlagsCorrupt(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))
	conn := h.dialer.conn("dm_alice_bob")

	good := frameOf(t, "10", sealFrom(t, "bob", "hi alice"), now.Add(-time.Minute))
	conn.push(t, good)
	conn.push(t, good)

	bad := sealFrom(t, "bob", "secret")
	bad.Ciphertext[0] ^= 0x01
	conn.push(t, frameOf(t, "11", bad, now))

	require.Eventually(t, func() bool { return len(h.svc.Messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	msgs := h.svc.Messages()

	assert.Equal(t, domain.MessageID("10"), msgs[0].ID)
	assert.Equal(t, "hi alice", msgs[0].DisplayText())
	assert.Equal(t, domain.StatusReceived, msgs[0].Status)

	assert.True(t, msgs[1].Undecryptable())
	assert.Equal(t, domain.UndecryptablePlaceholder, msgs[1].DisplayText())

	require.Eventually(t, func() bool {
		for _, err := range h.notices.errors() {
			if errors.Is(err, domain.ErrDecryption) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)
}

func TestReceive_EmptyMessageIsNotPlaceholder(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))

	h.dialer.conn("dm_alice_bob").push(t, frameOf(t, "1", sealFrom(t, "bob", ""), now))
	require.Eventually(t, func() bool { return len(h.svc.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)

	m := h.svc.Messages()[0]
	assert.False(t, m.Undecryptable())
	assert.Equal(t, "", m.DisplayText())
}

func TestReceive_SenderComesFromEnvelope(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))
	conn := h.dialer.conn("dm_alice_bob")

	relabeled := frameOf(t, "1", sealFrom(t, "carol", "from carol"), now)
	relabeled.SenderID = "bob"
	conn.push(t, relabeled)
	conn.push(t, frameOf(t, "2", sealFrom(t, "carol", "wrong room"), now.Add(time.Second)))
	conn.push(t, frameOf(t, "3", sealFrom(t, "bob", "genuine"), now.Add(2*time.Second)))

	require.Eventually(t, func() bool { return len(h.svc.Messages()) == 3 }, 2*time.Second, 10*time.Millisecond)
	msgs := h.svc.Messages()

	for _, m := range msgs[:2] {
		assert.True(t, m.Undecryptable(), m.ID)
		assert.Equal(t, domain.UserID("carol"), m.SenderID, m.ID)
		assert.NotContains(t, m.DisplayText(), "carol")
	}
	assert.Equal(t, domain.UserID("bob"), msgs[2].SenderID)
	assert.Equal(t, "genuine", msgs[2].DisplayText())

	require.Eventually(t, func() bool {
		n := 0
		for _, err := range h.notices.errors() {
			if errors.Is(err, domain.ErrDecryption) {
				n++
			}
		}
		return n == 2
	}, time.Second, 10*time.Millisecond)
}

func TestRefresh_RejectsEnvelopesOfOtherConversations(t *testing.T) {
	h := newHarness(t, "alice")
	fromCarol := sealFrom(t, "carol", "from carol")
	fromBob := sealFrom(t, "bob", "from bob")
	h.relay.history["bob"] = []domain.StoredMessage{
		{ID: "1", SenderID: "bob", ReceiverID: "alice", Envelope: &fromCarol, Timestamp: now.Add(-time.Hour)},
		{ID: "2", SenderID: "bob", ReceiverID: "alice", Envelope: &fromBob, Timestamp: now},
	}
	require.NoError(t, h.svc.Open(context.Background(), domain.DirectConversation("alice", "bob")))

	msgs := h.svc.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, msgs[0].Undecryptable())
	assert.Equal(t, domain.UserID("carol"), msgs[0].SenderID)
	assert.Equal(t, "from bob", msgs[1].DisplayText())
}

func TestReceive_LegacyEmptyTextIsNotPlaceholder(t *testing.T) {
	h := newHarness(t, "alice")
	h.relay.history["bob"] = []domain.StoredMessage{
		{ID: "1", SenderID: "bob", ReceiverID: "alice", Text: textOf(""), Timestamp: now.Add(-time.Hour)},
	}
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))

	h.dialer.conn("dm_alice_bob").push(t, domain.InboundFrame{
		ID: "2", Message: json.RawMessage(`""`), SenderID: "bob", ReceiverID: "alice", Timestamp: now,
	})
	require.Eventually(t, func() bool { return len(h.svc.Messages()) == 2 }, 2*time.Second, 10*time.Millisecond)

	for _, m := range h.svc.Messages() {
		assert.False(t, m.Undecryptable(), m.ID)
		assert.Equal(t, "", m.DisplayText())
	}
}

// keylessKeys has no local key pair loaded.
type keylessKeys struct{ fakeKeys }

func (keylessKeys) KeyContext() crypto.KeyContext { return crypto.KeyContext{} }

func TestReceive_NoKeyReportsNoKey(t *testing.T) {
	notices := &noticeLog{}
	dialer := &fakeDialer{}
	svc := message.New("alice", keylessKeys{fakeKeys{t: t, self: "alice"}}, newFakeRelay(now), dialer, message.Options{
		OnNotice: notices.add,
	})
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.Open(context.Background(), domain.DirectConversation("alice", "bob")))

	dialer.conn("dm_alice_bob").push(t, frameOf(t, "1", sealFrom(t, "bob", "hi"), now))
	require.Eventually(t, func() bool { return len(notices.errors()) == 1 }, 2*time.Second, 10*time.Millisecond)

	err := notices.errors()[0]
	assert.ErrorIs(t, err, domain.ErrNoKey)
	assert.NotErrorIs(t, err, domain.ErrDecryption)
	assert.True(t, svc.Messages()[0].Undecryptable())
}

func TestReceive_OnMessageOncePerArrival(t *testing.T) {
	var (
		mu  sync.Mutex
		got []domain.MessageID
	)
	dialer := &fakeDialer{}
	svc := message.New("alice", fakeKeys{t: t, self: "alice"}, newFakeRelay(now), dialer, message.Options{
		OnMessage: func(m domain.ChatMessage) {
			mu.Lock()
			defer mu.Unlock()
			got = append(got, m.ID)
		},
	})
	t.Cleanup(func() { _ = svc.Close() })
	require.NoError(t, svc.Open(context.Background(), domain.DirectConversation("alice", "bob")))

	conn := dialer.conn("dm_alice_bob")
	f := frameOf(t, "7", sealFrom(t, "bob", "ping"), now)
	conn.push(t, f)
	conn.push(t, f)
	conn.push(t, frameOf(t, "8", sealFrom(t, "bob", "pong"), now))

	require.Eventually(t, func() bool { return len(svc.Messages()) == 2 }, 2*time.Second, 10*time.Millisecond)
	require.NoError(t, svc.Close())

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []domain.MessageID{"7", "8"}, got)
}

func TestBlockedFrame_Notice(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))

	h.dialer.conn("dm_alice_bob").push(t, domain.InboundFrame{Error: "You are blocked.", Code: domain.FrameCodeBlocked})
	require.Eventually(t, func() bool {
		errs := h.notices.errors()
		return len(errs) == 1 && errors.Is(errs[0], domain.ErrBlocked)
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, transport.Open, h.svc.State())
}

func TestOpen_HydratesHistoryDespiteBadRecords(t *testing.T) {
	h := newHarness(t, "alice")
	bad := sealFrom(t, "bob", "tampered")
	bad.IV[0] ^= 0xff
	good1 := sealFrom(t, "bob", "yesterday's news")
	good2 := sealFrom(t, "bob", "today")

	h.relay.history["bob"] = []domain.StoredMessage{
		{ID: "1", SenderID: "bob", ReceiverID: "alice", Envelope: &good1, Timestamp: now.Add(-24 * time.Hour)},
		{ID: "2", SenderID: "bob", ReceiverID: "alice", Envelope: &bad, Timestamp: now.Add(-2 * time.Hour)},
		{ID: "3", SenderID: "alice", ReceiverID: "bob", IsSender: true, Text: textOf("legacy plain"), Timestamp: now.Add(-time.Hour)},
		{ID: "4", SenderID: "bob", ReceiverID: "alice", Envelope: &good2, Timestamp: now.Add(-time.Minute)},
		{ID: "5", SenderID: "bob", ReceiverID: "alice", Timestamp: now.Add(-72 * time.Hour)},
	}
	require.NoError(t, h.svc.Open(context.Background(), domain.DirectConversation("alice", "bob")))

	msgs := h.svc.Messages()
	require.Len(t, msgs, 5)
	var order []domain.MessageID
	for _, m := range msgs {
		order = append(order, m.ID)
	}
	assert.Equal(t, []domain.MessageID{"5", "1", "2", "3", "4"}, order)
	assert.True(t, msgs[0].Undecryptable())
	assert.Equal(t, "yesterday's news", msgs[1].DisplayText())
	assert.True(t, msgs[2].Undecryptable())
	assert.Equal(t, "legacy plain", msgs[3].DisplayText())
	assert.Equal(t, domain.StatusSent, msgs[3].Status)

	groups := h.svc.Groups(now)
	require.Len(t, groups, 3)
	assert.Equal(t, "June 12, 2024", groups[0].Label)
	assert.Equal(t, "Yesterday", groups[1].Label)
	assert.Equal(t, "Today", groups[2].Label)
	assert.Len(t, groups[2].Messages, 3)
}

func TestOpen_ChannelDown_HistoryAndRestStillWork(t *testing.T) {
	h := newHarness(t, "alice")
	h.dialer.err = errors.New("connection refused")
	env := sealFrom(t, "bob", "earlier")
	h.relay.history["bob"] = []domain.StoredMessage{{ID: "1", SenderID: "bob", Envelope: &env, Timestamp: now}}

	err := h.svc.Open(context.Background(), domain.DirectConversation("alice", "bob"))
	require.ErrorIs(t, err, domain.ErrTransport)
	require.Len(t, h.svc.Messages(), 1)

	_, err = h.svc.Send(context.Background(), "still works")
	require.NoError(t, err)
	assert.Len(t, h.svc.Messages(), 2)
}

func TestChannelDrop_HistoryStillOrderedAndGrouped(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))
	conn := h.dialer.conn("dm_alice_bob")

	one := sealFrom(t, "bob", "one")
	conn.push(t, frameOf(t, "50", one, now.Add(-24*time.Hour)))
	require.Eventually(t, func() bool { return len(h.svc.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, transport.Open, h.svc.State())

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return h.svc.State() == transport.Closed }, 2*time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool {
		for _, err := range h.notices.errors() {
			if errors.Is(err, domain.ErrTransport) {
				return true
			}
		}
		return false
	}, time.Second, 10*time.Millisecond)

	id, err := h.svc.Send(ctx, "three")
	require.NoError(t, err)

	two := sealFrom(t, "bob", "two")
	h.relay.mu.Lock()
	h.relay.history["bob"] = []domain.StoredMessage{
		{ID: "60", SenderID: "bob", ReceiverID: "alice", Envelope: &two, Timestamp: now.Add(-time.Minute)},
		{ID: "50", SenderID: "bob", ReceiverID: "alice", Envelope: &one, Timestamp: now.Add(-24 * time.Hour)},
	}
	h.relay.mu.Unlock()
	require.NoError(t, h.svc.Refresh(ctx))

	var order []domain.MessageID
	for _, m := range h.svc.Messages() {
		order = append(order, m.ID)
	}
	assert.Equal(t, []domain.MessageID{"50", "60", id}, order)

	groups := h.svc.Groups(now)
	require.Len(t, groups, 2)
	assert.Equal(t, "Yesterday", groups[0].Label)
	require.Len(t, groups[0].Messages, 1)
	assert.Equal(t, "one", groups[0].Messages[0].DisplayText())
	assert.Equal(t, "Today", groups[1].Label)
	require.Len(t, groups[1].Messages, 2)
	assert.Equal(t, "two", groups[1].Messages[0].DisplayText())
	assert.Equal(t, "three", groups[1].Messages[1].DisplayText())
}

func TestOpen_SwitchDiscardsOldConversation(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))
	old := h.dialer.conn("dm_alice_bob")
	old.push(t, frameOf(t, "1", sealFrom(t, "bob", "first"), now))
	require.Eventually(t, func() bool { return len(h.svc.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "carol")))
	select {
	case <-old.closed:
	default:
		t.Fatal("previous channel still open")
	}
	assert.Empty(t, h.svc.Messages())

	h.dialer.conn("dm_alice_carol").push(t, frameOf(t, "2", sealFrom(t, "carol", "from carol"), now))
	require.Eventually(t, func() bool { return len(h.svc.Messages()) == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, "from carol", h.svc.Messages()[0].DisplayText())
}

func TestClose_StopsDelivery(t *testing.T) {
	h := newHarness(t, "alice")
	require.NoError(t, h.svc.Open(context.Background(), domain.DirectConversation("alice", "bob")))
	require.NoError(t, h.svc.Close())

	_, err := h.svc.Send(context.Background(), "late")
	assert.ErrorIs(t, err, message.ErrNoConversation)
	assert.Equal(t, transport.Disconnected, h.svc.State())
}

func TestDelete_TwoPhaseAndInFlight(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))
	id, err := h.svc.Send(ctx, "oops")
	require.NoError(t, err)

	gate := make(chan struct{})
	h.relay.mu.Lock()
	h.relay.delGate = gate
	h.relay.mu.Unlock()

	done := make(chan error, 1)
	go func() { done <- h.svc.Delete(ctx, id) }()

	require.Eventually(t, func() bool {
		h.relay.mu.Lock()
		defer h.relay.mu.Unlock()
		return h.relay.delCalls == 1
	}, time.Second, 5*time.Millisecond)
	assert.ErrorIs(t, h.svc.Delete(ctx, id), domain.ErrDeleteInFlight)
	require.Len(t, h.svc.Messages(), 1, "entry must stay until the relay acknowledges")

	close(gate)
	require.NoError(t, <-done)
	assert.Empty(t, h.svc.Messages())
}

func TestDelete_RelayFailureKeepsEntry(t *testing.T) {
	h := newHarness(t, "alice")
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.DirectConversation("alice", "bob")))
	id, err := h.svc.Send(ctx, "keep me")
	require.NoError(t, err)

	h.relay.mu.Lock()
	h.relay.delErr = domain.New(domain.CodeTransport, "forbidden")
	h.relay.mu.Unlock()

	assert.ErrorIs(t, h.svc.Delete(ctx, id), domain.ErrTransport)
	assert.Len(t, h.svc.Messages(), 1)
}

func TestGroup_SendEachMemberReads(t *testing.T) {
	h := newHarness(t, "alice")
	h.relay.members["g1"] = []domain.UserID{"alice", "bob", "carol"}
	ctx := context.Background()
	require.NoError(t, h.svc.Open(ctx, domain.GroupConversation("alice", "g1")))

	_, err := h.svc.Send(ctx, "hi team")
	require.NoError(t, err)

	sent := h.relay.sentRecords()
	require.Len(t, sent, 1)
	assert.Equal(t, "g1", sent[0].Receiver)
	assert.Len(t, sent[0].Envelope.KeyCopies, 3)

	for _, u := range []domain.UserID{"alice", "bob", "carol"} {
		pt, err := crypto.Decrypt(sent[0].Envelope, crypto.NewKeyContext(u, keyOf(t, u)))
		require.NoError(t, err, u)
		assert.Equal(t, "hi team", string(pt))
	}
	require.NotNil(t, h.dialer.conn("group_g1"))
}
