package devrelay_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VanshAg283/FCS-Project/internal/devrelay"
	"github.com/VanshAg283/FCS-Project/internal/domain"
)

func openStore(t *testing.T) *devrelay.Store {
	t.Helper()
	s, err := devrelay.OpenStore(filepath.Join(t.TempDir(), "relay.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func envFor(receiver string) domain.Envelope {
	return domain.Envelope{IV: make([]byte, 12), Ciphertext: []byte{1, 2, 3}, RecipientID: receiver}
}

func TestStore_Users(t *testing.T) {
	s := openStore(t)
	id, err := s.CreateUser("alice", "hash")
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("1"), id)

	_, err = s.CreateUser("alice", "other")
	assert.Error(t, err, "usernames are unique")

	require.NoError(t, s.SetPublicKey(id, "pk"))
	u, err := s.UserByName("alice")
	require.NoError(t, err)
	assert.Equal(t, id, u.ID)
	assert.Equal(t, domain.PublicKeyString("pk"), u.PublicKey)

	_, err = s.User("99")
	assert.Error(t, err)
}

func TestStore_GroupsAreNamespaced(t *testing.T) {
	s := openStore(t)
	a, _ := s.CreateUser("alice", "h")
	b, _ := s.CreateUser("bob", "h")
	c, _ := s.CreateUser("carol", "h")

	g, err := s.CreateGroup("team", []domain.UserID{a, b, a})
	require.NoError(t, err)
	assert.Equal(t, domain.GroupID("g1"), g)

	members, err := s.Members(g)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.UserID{a, b}, members)

	ok, err := s.IsMember(g, b)
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = s.IsMember(g, c)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_DirectHistoryBothDirections(t *testing.T) {
	s := openStore(t)
	a, _ := s.CreateUser("alice", "h")
	b, _ := s.CreateUser("bob", "h")
	c, _ := s.CreateUser("carol", "h")

	m1, err := s.SaveMessage(a, b.String(), false, envFor(b.String()), nil)
	require.NoError(t, err)
	_, err = s.SaveMessage(b, a.String(), false, envFor(a.String()), []domain.Attachment{
		{ID: "x", FileType: domain.FileImage, FileURL: "/media/x.png"},
	})
	require.NoError(t, err)
	_, err = s.SaveMessage(c, a.String(), false, envFor(a.String()), nil)
	require.NoError(t, err)

	assert.Equal(t, a, m1.Envelope.SenderID, "relay stamps the sender")
	assert.False(t, m1.Timestamp.IsZero())

	hist, err := s.DirectHistory(a, b)
	require.NoError(t, err)
	require.Len(t, hist, 2)
	assert.Equal(t, m1.ID, hist[0].ID)
	assert.True(t, hist[0].IsSender)
	assert.False(t, hist[1].IsSender)
	require.Len(t, hist[1].Attachments, 1)
	assert.Equal(t, domain.FileImage, hist[1].Attachments[0].FileType)
}

func TestStore_GroupHistoryAndLookup(t *testing.T) {
	s := openStore(t)
	a, _ := s.CreateUser("alice", "h")
	b, _ := s.CreateUser("bob", "h")
	g, _ := s.CreateGroup("team", []domain.UserID{a, b})

	m, err := s.SaveMessage(a, g.String(), true, envFor(g.String()), nil)
	require.NoError(t, err)
	_, err = s.SaveMessage(a, b.String(), false, envFor(b.String()), nil)
	require.NoError(t, err)

	hist, err := s.GroupHistory(g, b)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.Equal(t, m.ID, hist[0].ID)

	got, group, err := s.Message(m.ID, b)
	require.NoError(t, err)
	assert.True(t, group)
	assert.False(t, got.IsSender)
}

func TestStore_DeleteOnlyBySender(t *testing.T) {
	s := openStore(t)
	a, _ := s.CreateUser("alice", "h")
	b, _ := s.CreateUser("bob", "h")
	m, err := s.SaveMessage(a, b.String(), false, envFor(b.String()), nil)
	require.NoError(t, err)

	assert.Error(t, s.DeleteMessage(m.ID, b))
	assert.Error(t, s.DeleteMessage("404", a))
	require.NoError(t, s.DeleteMessage(m.ID, a))

	hist, err := s.DirectHistory(a, b)
	require.NoError(t, err)
	assert.Empty(t, hist)
}

func TestStore_Blocks(t *testing.T) {
	s := openStore(t)
	a, _ := s.CreateUser("alice", "h")
	b, _ := s.CreateUser("bob", "h")

	require.NoError(t, s.Block(b, a))
	require.NoError(t, s.Block(b, a), "blocking twice is harmless")

	blocked, err := s.IsBlocked(b, a)
	require.NoError(t, err)
	assert.True(t, blocked)
	blocked, err = s.IsBlocked(a, b)
	require.NoError(t, err)
	assert.False(t, blocked)
}

func TestTokens(t *testing.T) {
	secret := []byte("secret")
	tok, err := devrelay.IssueToken(secret, "7", devrelay.TokenTTL)
	require.NoError(t, err)

	id, err := devrelay.ParseToken(secret, tok)
	require.NoError(t, err)
	assert.Equal(t, domain.UserID("7"), id)

	_, err = devrelay.ParseToken([]byte("other"), tok)
	assert.Error(t, err)

	expired, err := devrelay.IssueToken(secret, "7", -1)
	require.NoError(t, err)
	_, err = devrelay.ParseToken(secret, expired)
	assert.Error(t, err)
}
