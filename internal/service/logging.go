package service

import (
	"github.com/sirupsen/logrus"

	"github.com/joaquindlz/wp-bot/internal/privacy"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

// Hints printed after an authentication failure
var authFailureHints = []string{
	"Make sure no other process is using the same session directory",
	"If the problem persists, delete the session directory and scan the QR code again",
}

// messageFields returns the standard log fields describing an inbound message
func messageFields(masker *privacy.Masker, msg *types.InboundMessage) logrus.Fields {
	return logrus.Fields{
		LogFieldMessageID:   msg.ID,
		LogFieldChatID:      masker.ChatID(msg.ChatID),
		LogFieldSenderID:    masker.ChatID(msg.SenderID()),
		LogFieldMessageType: msg.Type,
		LogFieldIsGroup:     msg.IsGroupMessage(),
	}
}

// SanitizeContent hides message content unless the masker reveals identifiers
func SanitizeContent(masker *privacy.Masker, content string) string {
	if content == "" {
		return ""
	}
	if masker.Reveals() {
		return content
	}
	return "[hidden]"
}
