// internal/services/message/fakes_test.go
package message_test

import (
	"context"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/VanshAg283/FCS-Project/internal/crypto"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/services/message"
	"github.com/VanshAg283/FCS-Project/internal/transport"
)

var (
	keysOnce sync.Once
	userKeys map[domain.UserID]*rsa.PrivateKey
)

func keyOf(t *testing.T, u domain.UserID) *rsa.PrivateKey {
	t.Helper()
	keysOnce.Do(func() {
		userKeys = map[domain.UserID]*rsa.PrivateKey{}
		for _, id := range []domain.UserID{"alice", "bob", "carol"} {
			k, err := crypto.GenerateKeyPair()
			if err != nil {
				panic(err)
			}
			userKeys[id] = k
		}
	})
	k, ok := userKeys[u]
	require.True(t, ok, "no key for %s", u)
	return k
}

// fakeKeys resolves every test user to its generated key.
type fakeKeys struct {
	t    *testing.T
	self domain.UserID
}

func (k fakeKeys) ResolvePeerPublicKey(_ context.Context, peer domain.UserID) (*rsa.PublicKey, error) {
	keyOf(k.t, k.self)
	if _, ok := userKeys[peer]; !ok {
		return nil, domain.New(domain.CodeKeyImport, "unknown peer "+peer.String())
	}
	return &keyOf(k.t, peer).PublicKey, nil
}

func (k fakeKeys) KeyContext() crypto.KeyContext {
	return crypto.NewKeyContext(k.self, keyOf(k.t, k.self))
}

type sentRecord struct {
	Receiver string
	Envelope domain.Envelope
	Media    *domain.MediaUpload
}

// fakeRelay is an in-memory relay API.
type fakeRelay struct {
	mu       sync.Mutex
	next     int
	now      time.Time
	sent     []sentRecord
	history  map[string][]domain.StoredMessage
	members  map[domain.GroupID][]domain.UserID
	sendErr  error
	delGate  chan struct{}
	delErr   error
	deleted  []domain.MessageID
	delCalls int
	histErr  error
}

func newFakeRelay(now time.Time) *fakeRelay {
	return &fakeRelay{
		now:     now,
		history: map[string][]domain.StoredMessage{},
		members: map[domain.GroupID][]domain.UserID{},
	}
}

func (r *fakeRelay) store(receiver string, env domain.Envelope, media *domain.MediaUpload) (domain.StoredMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.sendErr != nil {
		return domain.StoredMessage{}, r.sendErr
	}
	r.next++
	r.sent = append(r.sent, sentRecord{Receiver: receiver, Envelope: env, Media: media})
	sm := domain.StoredMessage{
		ID:         domain.MessageID(fmt.Sprint(r.next)),
		SenderID:   env.SenderID,
		ReceiverID: receiver,
		IsSender:   true,
		Timestamp:  r.now.Add(time.Duration(r.next) * time.Second),
	}
	if media != nil {
		ft, _ := domain.ClassifyFile(media.Name)
		sm.Attachments = []domain.Attachment{{ID: "att-" + sm.ID.String(), FileType: ft, FileURL: "/media/" + media.Name}}
	}
	return sm, nil
}

func (r *fakeRelay) SendMessage(_ context.Context, receiver string, env domain.Envelope) (domain.StoredMessage, error) {
	return r.store(receiver, env, nil)
}

func (r *fakeRelay) SendMessageWithMedia(
	_ context.Context, receiver string, env domain.Envelope, media domain.MediaUpload,
) (domain.StoredMessage, error) {
	return r.store(receiver, env, &media)
}

func (r *fakeRelay) FetchHistory(_ context.Context, conv domain.Conversation) ([]domain.StoredMessage, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.histErr != nil {
		return nil, r.histErr
	}
	return append([]domain.StoredMessage(nil), r.history[conv.Target()]...), nil
}

func (r *fakeRelay) DeleteMessage(ctx context.Context, id domain.MessageID) error {
	r.mu.Lock()
	gate, err := r.delGate, r.delErr
	r.delCalls++
	r.mu.Unlock()
	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deleted = append(r.deleted, id)
	return nil
}

func (r *fakeRelay) FetchUser(context.Context, domain.UserID) (domain.DirectoryEntry, error) {
	return domain.DirectoryEntry{}, errors.New("not used")
}

func (r *fakeRelay) PublishPublicKey(context.Context, domain.PublicKeyString) error { return nil }

func (r *fakeRelay) FetchGroupMembers(_ context.Context, g domain.GroupID) ([]domain.UserID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.members[g], nil
}

func (r *fakeRelay) sentRecords() []sentRecord {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]sentRecord(nil), r.sent...)
}

// fakeConn is a scripted websocket connection.
type fakeConn struct {
	in     chan []byte
	closed chan struct{}
	once   sync.Once

	mu     sync.Mutex
	writes []domain.OutboundFrame
}

func (c *fakeConn) ReadMessage() (int, []byte, error) {
	select {
	case b := <-c.in:
		return 1, b, nil
	case <-c.closed:
		return 0, nil, errors.New("closed")
	}
}

func (c *fakeConn) WriteMessage(_ int, b []byte) error {
	var f domain.OutboundFrame
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writes = append(c.writes, f)
	return nil
}

func (c *fakeConn) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *fakeConn) frames() []domain.OutboundFrame {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]domain.OutboundFrame(nil), c.writes...)
}

func (c *fakeConn) push(t *testing.T, f domain.InboundFrame) {
	t.Helper()
	b, err := json.Marshal(f)
	require.NoError(t, err)
	c.in <- b
}

type fakeDialer struct {
	mu    sync.Mutex
	conns map[string]*fakeConn
	err   error
}

func (d *fakeDialer) Dial(_ context.Context, room string) (transport.Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.err != nil {
		return nil, d.err
	}
	c := &fakeConn{in: make(chan []byte, 16), closed: make(chan struct{})}
	if d.conns == nil {
		d.conns = map[string]*fakeConn{}
	}
	d.conns[room] = c
	return c, nil
}

func (d *fakeDialer) conn(room string) *fakeConn {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.conns[room]
}

type noticeLog struct {
	mu      sync.Mutex
	notices []string
	errs    []error
}

func (n *noticeLog) add(x message.Notice) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notices = append(n.notices, x.ID.String())
	n.errs = append(n.errs, x.Err)
}

func (n *noticeLog) errors() []error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]error(nil), n.errs...)
}
