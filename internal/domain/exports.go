package domain

import (
	interfaces "github.com/VanshAg283/FCS-Project/internal/domain/interfaces"
	types "github.com/VanshAg283/FCS-Project/internal/domain/types"
)

// Type aliases expose domain types from the types subpackage for compact imports.
type (
	UserID           = types.UserID
	GroupID          = types.GroupID
	MessageID        = types.MessageID
	PublicKeyString  = types.PublicKeyString
	Fingerprint      = types.Fingerprint
	ConversationKind = types.ConversationKind
	Conversation     = types.Conversation
	KeyCopy          = types.KeyCopy
	Envelope         = types.Envelope
	BodyState        = types.BodyState
	DeliveryStatus   = types.DeliveryStatus
	FileType         = types.FileType
	Attachment       = types.Attachment
	ChatMessage      = types.ChatMessage
	StoredMessage    = types.StoredMessage
	DirectoryEntry   = types.DirectoryEntry
	MediaUpload      = types.MediaUpload
	OutboundFrame    = types.OutboundFrame
	InboundFrame     = types.InboundFrame
)

// Interface aliases expose domain interfaces from the interfaces subpackage.
type (
	RelayClient     = interfaces.RelayClient
	Directory       = interfaces.Directory
	PrivateKeyStore = interfaces.PrivateKeyStore
	PeerKeyStore    = interfaces.PeerKeyStore
	KeyStore        = interfaces.KeyStore
)

const (
	Direct = types.Direct
	Group  = types.Group

	BodyEncrypted     = types.BodyEncrypted
	BodyDecrypted     = types.BodyDecrypted
	BodyUndecryptable = types.BodyUndecryptable

	StatusReceived = types.StatusReceived
	StatusPending  = types.StatusPending
	StatusSent     = types.StatusSent
	StatusFailed   = types.StatusFailed

	FileImage = types.FileImage
	FileGIF   = types.FileGIF
	FileSVG   = types.FileSVG
	FileVideo = types.FileVideo

	UndecryptablePlaceholder = types.UndecryptablePlaceholder
	FrameCodeBlocked         = types.FrameCodeBlocked
)

var (
	DirectConversation = types.DirectConversation
	GroupConversation  = types.GroupConversation
	ClassifyFile       = types.ClassifyFile
)
