package types

import "context"

// LifecycleHandler receives session lifecycle events
type LifecycleHandler func(ctx context.Context, event LifecycleEvent)

// MessageHandler receives inbound messages
type MessageHandler func(ctx context.Context, msg *InboundMessage)

// SessionClient is everything the bridge needs from a WhatsApp session.
// Pairing, reconnection and the wire protocol stay behind it.
type SessionClient interface {
	OnLifecycleEvent(handler LifecycleHandler)
	OnMessageEvent(handler MessageHandler)
	Initialize(ctx context.Context) error

	// Conversations lists the group chats the session currently knows about
	Conversations(ctx context.Context) ([]Conversation, error)
	GetChat(ctx context.Context, chatID string) (*Conversation, error)
	GetContact(ctx context.Context, contactID string) (*Contact, error)

	Destroy(ctx context.Context) error
}

// QRRenderer displays a pairing code to the operator
type QRRenderer interface {
	Render(code string)
}
