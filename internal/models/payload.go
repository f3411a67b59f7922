package models

// ForwardPayload is the JSON document posted to the configured endpoint for
// every in-scope message. Chat is set in all-chats mode; GroupID and
// GroupName are set in single-group mode.
type ForwardPayload struct {
	MessageID  string      `json:"messageId"`
	Timestamp  int64       `json:"timestamp"`
	ReceivedAt int64       `json:"receivedAt"`
	Chat       *ChatInfo   `json:"chat,omitempty"`
	GroupID    string      `json:"groupId,omitempty"`
	GroupName  string      `json:"groupName,omitempty"`
	Sender     SenderInfo  `json:"sender"`
	Message    MessageInfo `json:"message"`
}

// ChatInfo describes the conversation a message arrived in
type ChatInfo struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	IsGroup bool   `json:"isGroup"`
}

// SenderInfo describes who sent the message
type SenderInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IsMe bool   `json:"isMe"`
}

// MessageInfo carries the message content
type MessageInfo struct {
	Body     string `json:"body"`
	Type     string `json:"type"`
	HasMedia bool   `json:"hasMedia"`
}
