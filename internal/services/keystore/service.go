package keystore

import (
	"context"
	"crypto/rsa"
	"errors"
	"fmt"
	"os"
	"sync"
	"unicode"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"

	"github.com/VanshAg283/FCS-Project/internal/crypto"
	"github.com/VanshAg283/FCS-Project/internal/domain"
	"github.com/VanshAg283/FCS-Project/internal/util/memzero"
)

const (
	// minPassphraseLength defines the minimum number of characters required for a passphrase.
	minPassphraseLength = 12
	// peerCacheSize bounds the number of imported peer keys kept in memory.
	peerCacheSize = 256
)

var (
	// ErrWeakPassphrase is returned when the passphrase fails the strength policy.
	ErrWeakPassphrase = fmt.Errorf(
		"passphrase is too weak (must be at least %d characters and include upper, lower, "+
			"number, and symbol)",
		minPassphraseLength,
	)
)

// Service owns the local key pair for one user and resolves peer keys.
//
// The private key lives in memory only between Load (or Generate) and
// process exit; on disk it is always sealed under the passphrase.
type Service struct {
	self  domain.UserID
	keys  domain.PrivateKeyStore
	peers domain.PeerKeyStore
	dir   domain.Directory
	log   *zap.Logger
	cache *lru.Cache[domain.UserID, *rsa.PublicKey]

	mu   sync.RWMutex
	priv *rsa.PrivateKey
}

// New returns a key store for self. peers and dir may be nil; without a
// directory only explicitly imported keys resolve.
func New(
	self domain.UserID,
	keys domain.PrivateKeyStore,
	peers domain.PeerKeyStore,
	dir domain.Directory,
	log *zap.Logger,
) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	cache, _ := lru.New[domain.UserID, *rsa.PublicKey](peerCacheSize)
	return &Service{self: self, keys: keys, peers: peers, dir: dir, log: log, cache: cache}
}

// Generate creates a new key pair, seals it with passphrase (replacing any
// existing one) and returns the portable public key.
func (s *Service) Generate(passphrase string) (domain.PublicKeyString, error) {
	if !isSecurePassphrase(passphrase) {
		return "", ErrWeakPassphrase
	}
	priv, err := crypto.GenerateKeyPair()
	if err != nil {
		return "", err
	}
	der, err := crypto.MarshalPrivateKey(priv)
	if err != nil {
		return "", err
	}
	defer memzero.Zero(der)
	if err := s.keys.SavePrivateKey(passphrase, der); err != nil {
		return "", fmt.Errorf("save private key: %w", err)
	}

	s.mu.Lock()
	s.priv = priv
	s.mu.Unlock()
	s.log.Info("generated key pair", zap.String("user", s.self.String()))
	return crypto.ExportPublicKey(&priv.PublicKey)
}

// Load unseals the stored key pair and checks it with a wrap/unwrap probe.
func (s *Service) Load(passphrase string) error {
	der, err := s.keys.LoadPrivateKey(passphrase)
	if errors.Is(err, os.ErrNotExist) {
		return domain.ErrNoKey
	}
	if err != nil {
		return err
	}
	defer memzero.Zero(der)

	priv, err := crypto.ParsePrivateKey(der)
	if err != nil {
		return fmt.Errorf("parse private key: %w", err)
	}
	if err := crypto.SelfTest(priv); err != nil {
		return err
	}
	s.mu.Lock()
	s.priv = priv
	s.mu.Unlock()
	return nil
}

// KeyContext returns the session key context for Decrypt calls.
func (s *Service) KeyContext() crypto.KeyContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return crypto.NewKeyContext(s.self, s.priv)
}

// Self returns the local user id.
func (s *Service) Self() domain.UserID { return s.self }

func (s *Service) publicKey() (*rsa.PublicKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.priv == nil {
		return nil, domain.ErrNoKey
	}
	return &s.priv.PublicKey, nil
}

// ExportPublicKey returns the portable form of the local public key.
func (s *Service) ExportPublicKey() (domain.PublicKeyString, error) {
	pub, err := s.publicKey()
	if err != nil {
		return "", err
	}
	return crypto.ExportPublicKey(pub)
}

// Fingerprint returns a short fingerprint of the local public key.
func (s *Service) Fingerprint() (domain.Fingerprint, error) {
	pub, err := s.publicKey()
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(pub)
}

// Publish uploads the local public key to the relay directory.
func (s *Service) Publish(ctx context.Context) error {
	if s.dir == nil {
		return errors.New("no directory configured")
	}
	key, err := s.ExportPublicKey()
	if err != nil {
		return err
	}
	return s.dir.PublishPublicKey(ctx, key)
}

// ImportPeerPublicKey validates key and caches it for peer. A key different
// from the one last recorded for peer is logged as a warning and accepted.
func (s *Service) ImportPeerPublicKey(peer domain.UserID, key domain.PublicKeyString) (*rsa.PublicKey, error) {
	pub, err := crypto.ImportPublicKey(key)
	if err != nil {
		return nil, err
	}
	s.cache.Add(peer, pub)

	if s.peers != nil {
		changed, err := s.peers.SavePeerKey(peer, key)
		if err != nil {
			s.log.Warn("record peer key", zap.String("peer", peer.String()), zap.Error(err))
		} else if changed {
			fp, _ := crypto.Fingerprint(pub)
			s.log.Warn("peer public key changed",
				zap.String("peer", peer.String()),
				zap.String("fingerprint", fp.String()),
			)
		}
	}
	return pub, nil
}

// ResolvePeerPublicKey returns peer's key from the cache or the directory.
// The local user resolves to its own public key.
func (s *Service) ResolvePeerPublicKey(ctx context.Context, peer domain.UserID) (*rsa.PublicKey, error) {
	if peer == s.self {
		if pub, err := s.publicKey(); err == nil {
			return pub, nil
		}
	}
	if pub, ok := s.cache.Get(peer); ok {
		return pub, nil
	}
	if s.dir == nil {
		return nil, domain.New(domain.CodeKeyImport, "no key for "+peer.String())
	}

	entry, err := s.dir.FetchUser(ctx, peer)
	if err != nil {
		return nil, fmt.Errorf("fetch user %s: %w", peer, err)
	}
	if entry.PublicKey == "" {
		return nil, domain.New(domain.CodeKeyImport, peer.String()+" has not published a public key")
	}
	return s.ImportPeerPublicKey(peer, entry.PublicKey)
}

// PeerFingerprint resolves peer's key and returns its fingerprint.
func (s *Service) PeerFingerprint(ctx context.Context, peer domain.UserID) (domain.Fingerprint, error) {
	pub, err := s.ResolvePeerPublicKey(ctx, peer)
	if err != nil {
		return "", err
	}
	return crypto.Fingerprint(pub)
}

// isSecurePassphrase enforces a basic strength policy.
func isSecurePassphrase(passphrase string) bool {
	var hasUpper, hasLower, hasDigit, hasSymbol bool
	if len(passphrase) < minPassphraseLength {
		return false
	}
	for _, r := range passphrase {
		switch {
		case unicode.IsUpper(r):
			hasUpper = true
		case unicode.IsLower(r):
			hasLower = true
		case unicode.IsDigit(r):
			hasDigit = true
		case unicode.IsPunct(r), unicode.IsSymbol(r):
			hasSymbol = true
		}
	}
	return hasUpper && hasLower && hasDigit && hasSymbol
}

// Compile-time assertion that Service implements domain.KeyStore.
var _ domain.KeyStore = (*Service)(nil)
