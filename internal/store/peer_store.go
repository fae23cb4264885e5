package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

type peerRecord struct {
	PublicKey domain.PublicKeyString `json:"public_key"`
	SeenAt    int64                  `json:"seen_at"`
}

// peerBook is the content of peers.json.
type peerBook map[domain.UserID]peerRecord

func (s *FileStore) loadPeerBook() (peerBook, error) {
	book := peerBook{}
	b, err := os.ReadFile(filepath.Join(s.dir, peersFile))
	if errors.Is(err, os.ErrNotExist) {
		return book, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(b, &book); err != nil {
		return nil, fmt.Errorf("%s: %w", peersFile, err)
	}
	return book, nil
}

func (s *FileStore) savePeerBook(book peerBook) error {
	if err := s.ensureDir(); err != nil {
		return err
	}
	b, err := json.MarshalIndent(book, "", "  ")
	if err != nil {
		return err
	}
	return atomicWrite(filepath.Join(s.dir, peersFile), b, 0o600)
}

// SavePeerKey records key for peer and reports whether it replaced a
// different key seen earlier.
func (s *FileStore) SavePeerKey(peer domain.UserID, key domain.PublicKeyString) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.loadPeerBook()
	if err != nil {
		return false, err
	}
	prev, known := book[peer]
	if known && prev.PublicKey == key {
		return false, nil
	}
	book[peer] = peerRecord{PublicKey: key, SeenAt: time.Now().Unix()}
	return known, s.savePeerBook(book)
}

func (s *FileStore) LoadPeerKey(peer domain.UserID) (domain.PublicKeyString, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	book, err := s.loadPeerBook()
	if err != nil {
		return "", false, err
	}
	rec, ok := book[peer]
	return rec.PublicKey, ok, nil
}
