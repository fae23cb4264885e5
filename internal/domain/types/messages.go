package types

import (
	"path/filepath"
	"strings"
	"time"
)

// UndecryptablePlaceholder is rendered in place of a message whose envelope
// failed to decrypt.
const UndecryptablePlaceholder = "[could not decrypt message]"

// BodyState records what is known about a message body.
type BodyState int

const (
	// BodyEncrypted means decryption has not been attempted.
	BodyEncrypted BodyState = iota
	// BodyDecrypted means DecryptedText holds the plaintext (possibly empty).
	BodyDecrypted
	// BodyUndecryptable means decryption failed; DecryptedText is meaningless.
	BodyUndecryptable
)

// DeliveryStatus tracks an entry through the send lifecycle.
type DeliveryStatus int

const (
	StatusReceived DeliveryStatus = iota
	StatusPending
	StatusSent
	StatusFailed
)

func (s DeliveryStatus) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusSent:
		return "sent"
	case StatusFailed:
		return "failed"
	default:
		return "received"
	}
}

// FileType classifies an attachment.
type FileType string

const (
	FileImage FileType = "image"
	FileGIF   FileType = "gif"
	FileSVG   FileType = "svg"
	FileVideo FileType = "video"
)

// ClassifyFile maps a file name to its attachment type by extension.
func ClassifyFile(name string) (FileType, bool) {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpg", ".jpeg", ".png", ".webp", ".bmp":
		return FileImage, true
	case ".gif":
		return FileGIF, true
	case ".svg":
		return FileSVG, true
	case ".mp4", ".webm", ".mov", ".m4v":
		return FileVideo, true
	}
	return "", false
}

// Attachment is a media blob stored by the relay. Attachments travel
// unencrypted; only the message text is sealed.
type Attachment struct {
	ID       string   `json:"id"`
	FileType FileType `json:"file_type"`
	FileURL  string   `json:"file_url"`
}

// ChatMessage is one timeline entry.
type ChatMessage struct {
	ID            MessageID
	SenderID      UserID
	RecipientID   string
	IsSender      bool
	Envelope      *Envelope
	DecryptedText string
	BodyState     BodyState
	Status        DeliveryStatus
	Attachments   []Attachment
	Timestamp     time.Time
}

// DisplayText returns the text to render: the plaintext, or the placeholder
// when decryption failed.
func (m ChatMessage) DisplayText() string {
	if m.BodyState == BodyUndecryptable {
		return UndecryptablePlaceholder
	}
	return m.DecryptedText
}

// Undecryptable reports whether the message failed to decrypt.
func (m ChatMessage) Undecryptable() bool { return m.BodyState == BodyUndecryptable }
