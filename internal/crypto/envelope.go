package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/rsa"
	"crypto/sha256"
	"time"

	"github.com/gibson042/canonicaljson-go"

	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/util/memzero"
)

const (
	contentKeySize = 32
	nonceSize      = 12
	envelopeV      = 1
)

// KeyContext carries the local user's identity and private key for the
// lifetime of a session. The zero value holds no key.
type KeyContext struct {
	UserID domain.UserID
	priv   *rsa.PrivateKey
}

// NewKeyContext binds priv to user.
func NewKeyContext(user domain.UserID, priv *rsa.PrivateKey) KeyContext {
	return KeyContext{UserID: user, priv: priv}
}

// Ready reports whether a private key is present.
func (k KeyContext) Ready() bool { return k.priv != nil }

// PublicKey returns the public half of the held key, or nil.
func (k KeyContext) PublicKey() *rsa.PublicKey {
	if k.priv == nil {
		return nil
	}
	return &k.priv.PublicKey
}

// Header names the parties bound into an envelope's associated data.
// RecipientID is a user id for direct chats and a group id for groups.
type Header struct {
	SenderID    domain.UserID
	RecipientID string
}

// Recipient is an extra reader that receives its own copy of the content key.
type Recipient struct {
	UserID domain.UserID
	Key    *rsa.PublicKey
}

// Encrypt seals plaintext into a new envelope.
//
// Steps:
//  1. Draw a fresh 32-byte content key and 12-byte nonce.
//  2. Seal plaintext with AES-256-GCM, binding hdr as associated data.
//  3. Wrap the content key with RSA-OAEP for primary (if non-nil) and for
//     every entry in copies.
//  4. Wipe the content key.
//
// A nil primary is valid for group envelopes; then at least one copy is
// required.
func Encrypt(plaintext []byte, hdr Header, primary *rsa.PublicKey, copies ...Recipient) (domain.Envelope, error) {
	if primary == nil && len(copies) == 0 {
		return domain.Envelope{}, domain.New(domain.CodeEncryption, "no recipient key")
	}

	key := make([]byte, contentKeySize)
	defer memzero.Zero(key)
	if _, err := rand.Read(key); err != nil {
		return domain.Envelope{}, domain.Wrap(domain.CodeEncryption, "content key", err)
	}
	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return domain.Envelope{}, domain.Wrap(domain.CodeEncryption, "nonce", err)
	}

	ad, err := associatedData(hdr.SenderID, hdr.RecipientID)
	if err != nil {
		return domain.Envelope{}, domain.Wrap(domain.CodeEncryption, "associated data", err)
	}
	aead, err := newGCM(key)
	if err != nil {
		return domain.Envelope{}, domain.Wrap(domain.CodeEncryption, "aes-gcm", err)
	}

	env := domain.Envelope{
		IV:          iv,
		Ciphertext:  aead.Seal(nil, iv, plaintext, ad),
		SenderID:    hdr.SenderID,
		RecipientID: hdr.RecipientID,
		Timestamp:   time.Now().UTC(),
	}

	if primary != nil {
		if env.WrappedKey, err = wrapKey(primary, key); err != nil {
			return domain.Envelope{}, err
		}
	}
	for _, r := range copies {
		if r.Key == nil {
			return domain.Envelope{}, domain.New(domain.CodeEncryption, "missing key for "+r.UserID.String())
		}
		w, err := wrapKey(r.Key, key)
		if err != nil {
			return domain.Envelope{}, err
		}
		env.KeyCopies = append(env.KeyCopies, domain.KeyCopy{UserID: r.UserID, WrappedKey: w})
	}
	return env, nil
}

// Decrypt opens env with the key held by kc.
//
// The content key is selected with Envelope.WrappedKeyFor(kc.UserID). Any
// failure (wrong recipient, tampered ciphertext, nonce or header) is reported
// as a Decryption error; the envelope is never partially opened.
func Decrypt(env domain.Envelope, kc KeyContext) ([]byte, error) {
	if kc.priv == nil {
		return nil, domain.ErrNoKey
	}
	if len(env.IV) != nonceSize {
		return nil, domain.New(domain.CodeDecryption, "bad nonce length")
	}
	wrapped := env.WrappedKeyFor(kc.UserID)
	if len(wrapped) == 0 {
		return nil, domain.New(domain.CodeDecryption, "no wrapped key")
	}

	key, err := rsa.DecryptOAEP(sha256.New(), nil, kc.priv, wrapped, nil)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDecryption, "unwrap content key", err)
	}
	defer memzero.Zero(key)
	if len(key) != contentKeySize {
		return nil, domain.New(domain.CodeDecryption, "bad content key length")
	}

	ad, err := associatedData(env.SenderID, env.RecipientID)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDecryption, "associated data", err)
	}
	aead, err := newGCM(key)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDecryption, "aes-gcm", err)
	}
	pt, err := aead.Open(nil, env.IV, env.Ciphertext, ad)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDecryption, "open ciphertext", err)
	}
	return pt, nil
}

func wrapKey(pub *rsa.PublicKey, key []byte) ([]byte, error) {
	w, err := rsa.EncryptOAEP(sha256.New(), rand.Reader, pub, key, nil)
	if err != nil {
		return nil, domain.Wrap(domain.CodeEncryption, "wrap content key", err)
	}
	return w, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCMWithNonceSize(block, nonceSize)
}

// associatedData binds the envelope version and both party ids. The encoding
// is canonical so either side derives the same bytes.
func associatedData(sender domain.UserID, recipient string) ([]byte, error) {
	return canonicaljson.Marshal(struct {
		V           int    `json:"v"`
		SenderID    string `json:"sender_id"`
		RecipientID string `json:"recipient_id"`
	}{envelopeV, sender.String(), recipient})
}
