package privacy

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/joaquindlz/wp-bot/internal/constants"
)

// MaskChatID masks a WhatsApp JID, keeping the server and the last four
// characters of the user part. A device suffix is dropped.
// Example: "5491155550000:7@s.whatsapp.net" -> "*********0000@s.whatsapp.net"
func MaskChatID(chatID string) string {
	if chatID == "" {
		return ""
	}

	user, server, found := strings.Cut(chatID, "@")
	if !found {
		return maskString(chatID, constants.MaskVisibleChars)
	}
	if i := strings.IndexByte(user, ':'); i >= 0 {
		user = user[:i]
	}
	return maskString(user, constants.MaskVisibleChars) + "@" + server
}

// MaskMessageID masks a message ID, showing only the last four characters
func MaskMessageID(messageID string) string {
	return maskString(messageID, constants.MaskVisibleChars)
}

// MaskName shortens a display name to its first character
// Example: "Ana Lopez" -> "A***"
func MaskName(name string) string {
	if name == "" {
		return ""
	}
	r := []rune(name)
	return string(r[0]) + "***"
}

// Masker applies masking unless disabled for verbose troubleshooting
type Masker struct {
	disabled bool
}

// NewMasker creates a masker; reveal turns masking off
func NewMasker(reveal bool) *Masker {
	return &Masker{disabled: reveal}
}

// Reveals reports whether values pass through unmasked
func (m *Masker) Reveals() bool {
	return m == nil || m.disabled
}

// ChatID masks a chat or sender identifier
func (m *Masker) ChatID(id string) string {
	if m.Reveals() {
		return id
	}
	return MaskChatID(id)
}

// Name masks a chat or sender display name
func (m *Masker) Name(name string) string {
	if m.Reveals() {
		return name
	}
	return MaskName(name)
}

// Fields applies masking to the identifier fields of a log entry
func (m *Masker) Fields(fields logrus.Fields) logrus.Fields {
	if fields == nil {
		return nil
	}
	if m.Reveals() {
		return fields
	}

	masked := make(logrus.Fields, len(fields))
	for k, v := range fields {
		s, ok := v.(string)
		if !ok {
			masked[k] = v
			continue
		}
		switch k {
		case "chat_id", "sender_id", "group_id", "contact_id", "from", "author":
			masked[k] = MaskChatID(s)
		case "chat_name", "sender_name", "group_name":
			masked[k] = MaskName(s)
		default:
			masked[k] = v
		}
	}
	return masked
}

// maskString masks a string showing only the last n characters
func maskString(s string, keepLast int) string {
	if len(s) <= keepLast {
		return strings.Repeat("*", len(s))
	}
	return strings.Repeat("*", len(s)-keepLast) + s[len(s)-keepLast:]
}
