package interfaces

import types "github.com/VanshAg283/FCS-Project/internal/domain/types"

// PrivateKeyStore persists the local private key sealed under a passphrase.
type PrivateKeyStore interface {
	SavePrivateKey(passphrase string, pkcs8 []byte) error
	LoadPrivateKey(passphrase string) ([]byte, error)
	HasPrivateKey() (bool, error)
}

// PeerKeyStore remembers the last public key seen for each peer.
type PeerKeyStore interface {
	// SavePeerKey records key for peer. changed is true when a different key
	// was previously recorded.
	SavePeerKey(peer types.UserID, key types.PublicKeyString) (changed bool, err error)
	LoadPeerKey(peer types.UserID) (types.PublicKeyString, bool, error)
}
