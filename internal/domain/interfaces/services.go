package interfaces

import (
	"context"
	"crypto/rsa"

	domaintypes "github.com/VanshAg283/FCS-Project/internal/domain/types"
)

// KeyStore owns the local key pair and resolves peer public keys.
type KeyStore interface {
	Generate(passphrase string) (domaintypes.PublicKeyString, error)
	Load(passphrase string) error
	ExportPublicKey() (domaintypes.PublicKeyString, error)
	ImportPeerPublicKey(
		peer domaintypes.UserID,
		key domaintypes.PublicKeyString,
	) (*rsa.PublicKey, error)
	ResolvePeerPublicKey(ctx context.Context, peer domaintypes.UserID) (*rsa.PublicKey, error)
	Fingerprint() (domaintypes.Fingerprint, error)
	Publish(ctx context.Context) error
}
