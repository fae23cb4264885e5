package interfaces

import (
	"context"

	domaintypes "github.com/VanshAg283/FCS-Project/internal/domain/types"
)

// RelayClient is how we talk to the relay's request/response API, all with context.
type RelayClient interface {
	SendMessage(
		ctx context.Context,
		receiver string,
		envelope domaintypes.Envelope,
	) (domaintypes.StoredMessage, error)
	SendMessageWithMedia(
		ctx context.Context,
		receiver string,
		envelope domaintypes.Envelope,
		media domaintypes.MediaUpload,
	) (domaintypes.StoredMessage, error)
	FetchHistory(
		ctx context.Context,
		conversation domaintypes.Conversation,
	) ([]domaintypes.StoredMessage, error)
	DeleteMessage(ctx context.Context, id domaintypes.MessageID) error

	FetchUser(ctx context.Context, id domaintypes.UserID) (domaintypes.DirectoryEntry, error)
	PublishPublicKey(ctx context.Context, key domaintypes.PublicKeyString) error
	FetchGroupMembers(
		ctx context.Context,
		group domaintypes.GroupID,
	) ([]domaintypes.UserID, error)
}

// Directory is the subset of the relay that holds users' public keys.
type Directory interface {
	FetchUser(ctx context.Context, id domaintypes.UserID) (domaintypes.DirectoryEntry, error)
	PublishPublicKey(ctx context.Context, key domaintypes.PublicKeyString) error
}
