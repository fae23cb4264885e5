package store

import (
	"errors"
	"os"
	"path/filepath"
)

// SavePrivateKey seals pkcs8 under passphrase and replaces any existing key.
func (s *FileStore) SavePrivateKey(passphrase string, pkcs8 []byte) error {
	if passphrase == "" {
		return errors.New("empty passphrase")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureDir(); err != nil {
		return err
	}
	N, r, p := scryptParamsDefault()
	blob, err := encrypt(passphrase, pkcs8, N, r, p)
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(s.dir, privateKeyFile), blob, 0o600)
}

// LoadPrivateKey opens the sealed key. A missing file yields os.ErrNotExist.
func (s *FileStore) LoadPrivateKey(passphrase string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	blob, err := os.ReadFile(filepath.Join(s.dir, privateKeyFile))
	if err != nil {
		return nil, err
	}
	return decrypt(passphrase, blob)
}

func (s *FileStore) HasPrivateKey() (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := os.Stat(filepath.Join(s.dir, privateKeyFile))
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	return err == nil, err
}
