package whatsapp

import (
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types/events"

	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

// newInboundMessage converts a whatsmeow message event into the snapshot
// handed to the bridge. It returns nil for events that carry no user content.
func newInboundMessage(evt *events.Message) *types.InboundMessage {
	if evt == nil || evt.Message == nil || evt.Message.GetProtocolMessage() != nil {
		return nil
	}

	info := evt.Info
	msg := &types.InboundMessage{
		ID:        info.ID,
		Timestamp: info.Timestamp.Unix(),
		FromMe:    info.IsFromMe,
		ChatID:    info.Chat.String(),
		FromID:    info.Chat.String(),
		PushName:  info.PushName,
	}
	if info.IsGroup {
		msg.AuthorID = info.Sender.ToNonAD().String()
	}

	msg.Type, msg.Body, msg.HasMedia = describeMessage(evt.Message)
	return msg
}

// describeMessage derives the message type, text body and media flag
func describeMessage(m *waE2E.Message) (kind, body string, hasMedia bool) {
	switch {
	case m.GetConversation() != "":
		return types.MessageTypeChat, m.GetConversation(), false
	case m.GetExtendedTextMessage() != nil:
		return types.MessageTypeChat, m.GetExtendedTextMessage().GetText(), false
	case m.GetImageMessage() != nil:
		return types.MessageTypeImage, m.GetImageMessage().GetCaption(), true
	case m.GetVideoMessage() != nil:
		return types.MessageTypeVideo, m.GetVideoMessage().GetCaption(), true
	case m.GetAudioMessage() != nil:
		if m.GetAudioMessage().GetPTT() {
			return types.MessageTypePTT, "", true
		}
		return types.MessageTypeAudio, "", true
	case m.GetDocumentMessage() != nil:
		return types.MessageTypeDocument, m.GetDocumentMessage().GetCaption(), true
	case m.GetStickerMessage() != nil:
		return types.MessageTypeSticker, "", true
	case m.GetLocationMessage() != nil:
		return types.MessageTypeLocation, m.GetLocationMessage().GetName(), false
	case m.GetLiveLocationMessage() != nil:
		return types.MessageTypeLocation, m.GetLiveLocationMessage().GetCaption(), false
	case m.GetContactMessage() != nil:
		return types.MessageTypeVCard, m.GetContactMessage().GetVcard(), false
	case m.GetContactsArrayMessage() != nil:
		return types.MessageTypeVCard, m.GetContactsArrayMessage().GetDisplayName(), false
	}
	return types.MessageTypeUnknown, "", false
}
