// internal/crypto/envelope_test.go
package crypto_test

import (
	"crypto/rsa"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VanshAg283/FCS-Project/internal/crypto"
	"github.com/VanshAg283/FCS-Project/internal/domain"
)

var (
	keysOnce sync.Once
	keyPool  []*rsa.PrivateKey
)

// testKeys returns n shared key pairs; RSA generation is too slow to repeat per test.
func testKeys(t *testing.T, n int) []*rsa.PrivateKey {
	t.Helper()
	keysOnce.Do(func() {
		for i := 0; i < 4; i++ {
			k, err := crypto.GenerateKeyPair()
			if err != nil {
				panic(err)
			}
			keyPool = append(keyPool, k)
		}
	})
	require.LessOrEqual(t, n, len(keyPool))
	return keyPool[:n]
}

func TestEnvelope_RoundTrip_OK(t *testing.T) {
	keys := testKeys(t, 2)
	alice, bob := keys[0], keys[1]

	hdr := crypto.Header{SenderID: "alice", RecipientID: "bob"}
	env, err := crypto.Encrypt([]byte("hello bob"), hdr, &bob.PublicKey)
	require.NoError(t, err)

	assert.Len(t, env.IV, 12)
	assert.NotEmpty(t, env.WrappedKey)
	assert.NotContains(t, string(env.Ciphertext), "hello bob")

	pt, err := crypto.Decrypt(env, crypto.NewKeyContext("bob", bob))
	require.NoError(t, err)
	assert.Equal(t, "hello bob", string(pt))

	_, err = crypto.Decrypt(env, crypto.NewKeyContext("alice", alice))
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestEnvelope_EmptyPlaintext_OK(t *testing.T) {
	bob := testKeys(t, 2)[1]
	env, err := crypto.Encrypt(nil, crypto.Header{SenderID: "alice", RecipientID: "bob"}, &bob.PublicKey)
	require.NoError(t, err)
	pt, err := crypto.Decrypt(env, crypto.NewKeyContext("bob", bob))
	require.NoError(t, err)
	assert.Empty(t, pt)
}

func TestEnvelope_SamePlaintextTwice_Differs(t *testing.T) {
	bob := testKeys(t, 2)[1]
	hdr := crypto.Header{SenderID: "alice", RecipientID: "bob"}

	a, err := crypto.Encrypt([]byte("same"), hdr, &bob.PublicKey)
	require.NoError(t, err)
	b, err := crypto.Encrypt([]byte("same"), hdr, &bob.PublicKey)
	require.NoError(t, err)

	assert.NotEqual(t, a.IV, b.IV)
	assert.NotEqual(t, a.WrappedKey, b.WrappedKey)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}

func TestEnvelope_Tampering_Fails(t *testing.T) {
	bob := testKeys(t, 2)[1]
	kc := crypto.NewKeyContext("bob", bob)
	hdr := crypto.Header{SenderID: "alice", RecipientID: "bob"}

	fresh := func() domain.Envelope {
		env, err := crypto.Encrypt([]byte("attack at dawn"), hdr, &bob.PublicKey)
		require.NoError(t, err)
		return env
	}

	cases := map[string]func(*domain.Envelope){
		"ciphertext": func(e *domain.Envelope) { e.Ciphertext[0] ^= 0x01 },
		"tag":        func(e *domain.Envelope) { e.Ciphertext[len(e.Ciphertext)-1] ^= 0x80 },
		"iv":         func(e *domain.Envelope) { e.IV[3] ^= 0x01 },
		"short iv":   func(e *domain.Envelope) { e.IV = e.IV[:8] },
		"wrapped":    func(e *domain.Envelope) { e.WrappedKey[10] ^= 0x01 },
		"sender":     func(e *domain.Envelope) { e.SenderID = "mallory" },
		"recipient":  func(e *domain.Envelope) { e.RecipientID = "carol" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			env := fresh()
			mutate(&env)
			_, err := crypto.Decrypt(env, kc)
			assert.ErrorIs(t, err, domain.ErrDecryption)
		})
	}
}

func TestEnvelope_SenderCopy_ReadableBySender(t *testing.T) {
	keys := testKeys(t, 2)
	alice, bob := keys[0], keys[1]

	env, err := crypto.Encrypt(
		[]byte("note to self"),
		crypto.Header{SenderID: "alice", RecipientID: "bob"},
		&bob.PublicKey,
		crypto.Recipient{UserID: "alice", Key: &alice.PublicKey},
	)
	require.NoError(t, err)
	require.Len(t, env.KeyCopies, 1)

	for id, k := range map[domain.UserID]*rsa.PrivateKey{"alice": alice, "bob": bob} {
		pt, err := crypto.Decrypt(env, crypto.NewKeyContext(id, k))
		require.NoError(t, err, id)
		assert.Equal(t, "note to self", string(pt))
	}
}

func TestEnvelope_GroupCopies_EachMemberReads(t *testing.T) {
	keys := testKeys(t, 4)
	members := []domain.UserID{"alice", "bob", "carol"}

	var copies []crypto.Recipient
	for i, m := range members {
		copies = append(copies, crypto.Recipient{UserID: m, Key: &keys[i].PublicKey})
	}
	env, err := crypto.Encrypt([]byte("hi all"), crypto.Header{SenderID: "alice", RecipientID: "g1"}, nil, copies...)
	require.NoError(t, err)
	assert.Empty(t, env.WrappedKey)

	for i, m := range members {
		pt, err := crypto.Decrypt(env, crypto.NewKeyContext(m, keys[i]))
		require.NoError(t, err)
		assert.Equal(t, "hi all", string(pt))
	}

	_, err = crypto.Decrypt(env, crypto.NewKeyContext("dave", keys[3]))
	assert.ErrorIs(t, err, domain.ErrDecryption)
}

func TestEnvelope_NoRecipient_Fails(t *testing.T) {
	_, err := crypto.Encrypt([]byte("x"), crypto.Header{SenderID: "a", RecipientID: "b"}, nil)
	assert.ErrorIs(t, err, domain.ErrEncryption)
}

func TestDecrypt_WithoutKey_NoKey(t *testing.T) {
	bob := testKeys(t, 2)[1]
	env, err := crypto.Encrypt([]byte("x"), crypto.Header{SenderID: "a", RecipientID: "bob"}, &bob.PublicKey)
	require.NoError(t, err)

	var kc crypto.KeyContext
	assert.False(t, kc.Ready())
	_, err = crypto.Decrypt(env, kc)
	assert.ErrorIs(t, err, domain.ErrNoKey)
}
