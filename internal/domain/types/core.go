package types

// UserID identifies a relay-registered user.
type UserID string

// String returns the string form of the user id.
func (u UserID) String() string { return string(u) }

// GroupID identifies a group conversation on the relay.
type GroupID string

// String returns the string form of the group id.
func (g GroupID) String() string { return string(g) }

// MessageID is the relay-assigned identifier of a stored message. Pending
// local entries use a "pending-" prefixed id until the relay acknowledges them.
type MessageID string

// String returns the string form of the message id.
func (id MessageID) String() string { return string(id) }

// PublicKeyString is the portable form of an RSA public key: base64 of the
// DER-encoded SubjectPublicKeyInfo.
type PublicKeyString string

// String returns the encoded key.
func (k PublicKeyString) String() string { return string(k) }

// Fingerprint is a short identifier for public keys presented to users.
type Fingerprint string

// String returns the string form of the fingerprint.
func (f Fingerprint) String() string { return string(f) }

// ConversationKind distinguishes direct chats from group rooms.
type ConversationKind int

const (
	Direct ConversationKind = iota
	Group
)

// Conversation names the open chat: a peer for direct chats or a group.
type Conversation struct {
	Kind  ConversationKind
	Self  UserID
	Peer  UserID
	Group GroupID
}

// DirectConversation returns the conversation between self and peer.
func DirectConversation(self, peer UserID) Conversation {
	return Conversation{Kind: Direct, Self: self, Peer: peer}
}

// GroupConversation returns the conversation of self inside group.
func GroupConversation(self UserID, group GroupID) Conversation {
	return Conversation{Kind: Group, Self: self, Group: group}
}

// Target is the recipient id carried on the wire: the peer user id or the group id.
func (c Conversation) Target() string {
	if c.Kind == Group {
		return c.Group.String()
	}
	return c.Peer.String()
}
