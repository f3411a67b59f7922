package types

import "strings"

// LifecycleEvent is a session lifecycle notification from the Session Client
type LifecycleEvent struct {
	Kind   EventKind `json:"kind"`
	QRCode string    `json:"qr_code,omitempty"`
	Reason string    `json:"reason,omitempty"`
	State  string    `json:"state,omitempty"`
}

// InboundMessage is a read-only snapshot of a received message.
//
// FromID is the conversation the message came from: the peer in a direct
// chat, the group in a group chat. AuthorID is only set for group messages
// and holds the participant who wrote it.
type InboundMessage struct {
	ID        string `json:"id"`
	Timestamp int64  `json:"timestamp"`
	FromMe    bool   `json:"fromMe"`
	ChatID    string `json:"chatId"`
	FromID    string `json:"from"`
	AuthorID  string `json:"author,omitempty"`
	PushName  string `json:"pushName,omitempty"`
	Body      string `json:"body"`
	Type      string `json:"type"`
	HasMedia  bool   `json:"hasMedia"`
}

// SenderID returns the identifier of whoever wrote the message
func (m *InboundMessage) SenderID() string {
	if m.AuthorID != "" {
		return m.AuthorID
	}
	return m.FromID
}

// IsGroupMessage returns true if the message is from a group chat
func (m *InboundMessage) IsGroupMessage() bool {
	return IsGroupID(m.ChatID)
}

// Conversation is a chat known to the Session Client
type Conversation struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
}

// Contact holds what the Session Client knows about a sender. PushName is
// the name the user chose for themselves; Name is the one stored in the
// address book of the paired phone.
type Contact struct {
	ID       string `json:"id"`
	PushName string `json:"pushname"`
	Name     string `json:"name"`
}

// IsGroupID reports whether a chat identifier refers to a group
func IsGroupID(id string) bool {
	return strings.HasSuffix(id, "@"+GroupServer)
}
