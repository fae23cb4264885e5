package store

import (
	"os"
	"sync"

	"github.com/VanshAg283/FCS-Project/internal/domain"
)

const (
	privateKeyFile = "private_key.enc"
	peersFile      = "peers.json" // map[user_id]peerRecord
)

// FileStore stores key material on disk under dir.
type FileStore struct {
	dir string
	mu  sync.Mutex
}

var (
	_ domain.PrivateKeyStore = (*FileStore)(nil)
	_ domain.PeerKeyStore    = (*FileStore)(nil)
)

func NewFileStore(dir string) *FileStore { return &FileStore{dir: dir} }

// ensureDir creates the home directory with owner-only permissions.
func (s *FileStore) ensureDir() error {
	return os.MkdirAll(s.dir, 0o700)
}
