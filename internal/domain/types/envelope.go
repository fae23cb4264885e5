package types

import "time"

// KeyCopy is the content key wrapped for one additional reader of an envelope.
type KeyCopy struct {
	UserID     UserID `json:"user_id"`
	WrappedKey []byte `json:"wrapped_key"`
}

// Envelope is the wire unit for one encrypted message. Byte fields are
// base64-encoded by encoding/json.
//
// WrappedKey is addressed to RecipientID in direct chats. KeyCopies carry the
// same content key for the sender and, in groups, for each member.
type Envelope struct {
	WrappedKey  []byte    `json:"wrapped_key,omitempty"`
	IV          []byte    `json:"iv"`
	Ciphertext  []byte    `json:"ciphertext"`
	SenderID    UserID    `json:"sender_id"`
	RecipientID string    `json:"recipient_id"`
	Timestamp   time.Time `json:"timestamp"`
	KeyCopies   []KeyCopy `json:"key_copies,omitempty"`
}

// WrappedKeyFor returns the wrapped content key addressed to user, falling
// back to the primary wrapped key.
func (e Envelope) WrappedKeyFor(user UserID) []byte {
	if e.RecipientID == user.String() && len(e.WrappedKey) > 0 {
		return e.WrappedKey
	}
	for _, c := range e.KeyCopies {
		if c.UserID == user {
			return c.WrappedKey
		}
	}
	return e.WrappedKey
}
