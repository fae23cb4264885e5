package types

import (
	"encoding/json"
	"time"
)

// StoredMessage is a message as returned by the relay, both as the send
// acknowledgment and as a history record.
//
// Envelope is absent for legacy records the relay stored as plain text, in
// which case Text carries the body. A nil Text means the record has no text
// at all, which is different from an empty one.
type StoredMessage struct {
	ID          MessageID    `json:"id"`
	SenderID    UserID       `json:"sender_id"`
	ReceiverID  string       `json:"receiver_id"`
	IsSender    bool         `json:"is_sender"`
	Envelope    *Envelope    `json:"envelope,omitempty"`
	Text        *string      `json:"decrypted_text,omitempty"`
	Timestamp   time.Time    `json:"timestamp"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// DirectoryEntry is the relay's user-directory record for one user.
type DirectoryEntry struct {
	ID        UserID          `json:"id"`
	Username  string          `json:"username"`
	PublicKey PublicKeyString `json:"public_key"`
}

// MediaUpload is a single file sent alongside an envelope.
type MediaUpload struct {
	Name string
	Data []byte
}

// OutboundFrame is written by the client on a room channel. ID is set when
// the message was already stored through the request/response API; the relay
// then only fans it out.
type OutboundFrame struct {
	ID         MessageID       `json:"id,omitempty"`
	Message    json.RawMessage `json:"message"`
	SenderID   UserID          `json:"sender_id"`
	ReceiverID string          `json:"receiver_id"`
}

// InboundFrame is written by the relay on a room channel: either a delivered
// message or an error report.
type InboundFrame struct {
	ID          MessageID       `json:"id,omitempty"`
	Message     json.RawMessage `json:"message,omitempty"`
	SenderID    UserID          `json:"sender_id,omitempty"`
	ReceiverID  string          `json:"receiver_id,omitempty"`
	Timestamp   time.Time       `json:"timestamp,omitzero"`
	Attachments []Attachment    `json:"attachments,omitempty"`
	Error       string          `json:"error,omitempty"`
	Code        string          `json:"code,omitempty"`
}

// FrameCodeBlocked marks an error frame raised because the recipient blocked the sender.
const FrameCodeBlocked = "blocked"

// IsError reports whether the frame carries an error instead of a message.
func (f InboundFrame) IsError() bool { return f.Error != "" }
