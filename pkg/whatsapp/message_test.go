package whatsapp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mau.fi/whatsmeow/proto/waE2E"
	watypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

var (
	testGroupJID  = watypes.NewJID("120363041234567890", watypes.GroupServer)
	testUserJID   = watypes.NewJID("5491155550000", watypes.DefaultUserServer)
	testDeviceJID = watypes.JID{User: "5491155550000", Server: watypes.DefaultUserServer, Device: 7}
)

func groupMessage(m *waE2E.Message) *events.Message {
	return &events.Message{
		Info: watypes.MessageInfo{
			MessageSource: watypes.MessageSource{
				Chat:    testGroupJID,
				Sender:  testDeviceJID,
				IsGroup: true,
			},
			ID:        "3EB0C767D26A1D8E",
			PushName:  "Ana",
			Timestamp: time.Unix(1700000000, 0),
		},
		Message: m,
	}
}

func TestNewInboundMessage_GroupText(t *testing.T) {
	msg := newInboundMessage(groupMessage(&waE2E.Message{Conversation: proto.String("server down")}))
	require.NotNil(t, msg)

	assert.Equal(t, "3EB0C767D26A1D8E", msg.ID)
	assert.Equal(t, int64(1700000000), msg.Timestamp)
	assert.Equal(t, testGroupJID.String(), msg.ChatID)
	assert.Equal(t, testGroupJID.String(), msg.FromID)
	assert.Equal(t, "5491155550000@s.whatsapp.net", msg.AuthorID)
	assert.Equal(t, "5491155550000@s.whatsapp.net", msg.SenderID())
	assert.Equal(t, "Ana", msg.PushName)
	assert.Equal(t, "server down", msg.Body)
	assert.Equal(t, types.MessageTypeChat, msg.Type)
	assert.False(t, msg.HasMedia)
	assert.False(t, msg.FromMe)
	assert.True(t, msg.IsGroupMessage())
}

func TestNewInboundMessage_DirectChat(t *testing.T) {
	evt := &events.Message{
		Info: watypes.MessageInfo{
			MessageSource: watypes.MessageSource{Chat: testUserJID, Sender: testUserJID, IsFromMe: true},
			ID:            "ABC",
			Timestamp:     time.Unix(1700000100, 0),
		},
		Message: &waE2E.Message{Conversation: proto.String("hola")},
	}

	msg := newInboundMessage(evt)
	require.NotNil(t, msg)

	assert.Empty(t, msg.AuthorID)
	assert.Equal(t, testUserJID.String(), msg.SenderID())
	assert.True(t, msg.FromMe)
	assert.False(t, msg.IsGroupMessage())
}

func TestNewInboundMessage_SkipsContentless(t *testing.T) {
	assert.Nil(t, newInboundMessage(nil))
	assert.Nil(t, newInboundMessage(groupMessage(nil)))
	assert.Nil(t, newInboundMessage(groupMessage(&waE2E.Message{ProtocolMessage: &waE2E.ProtocolMessage{}})))
}

func TestDescribeMessage(t *testing.T) {
	tests := []struct {
		name      string
		message   *waE2E.Message
		wantType  string
		wantBody  string
		wantMedia bool
	}{
		{
			name:     "extended text",
			message:  &waE2E.Message{ExtendedTextMessage: &waE2E.ExtendedTextMessage{Text: proto.String("see https://example.com")}},
			wantType: types.MessageTypeChat,
			wantBody: "see https://example.com",
		},
		{
			name:      "image with caption",
			message:   &waE2E.Message{ImageMessage: &waE2E.ImageMessage{Caption: proto.String("graph")}},
			wantType:  types.MessageTypeImage,
			wantBody:  "graph",
			wantMedia: true,
		},
		{
			name:      "video",
			message:   &waE2E.Message{VideoMessage: &waE2E.VideoMessage{}},
			wantType:  types.MessageTypeVideo,
			wantMedia: true,
		},
		{
			name:      "audio",
			message:   &waE2E.Message{AudioMessage: &waE2E.AudioMessage{}},
			wantType:  types.MessageTypeAudio,
			wantMedia: true,
		},
		{
			name:      "voice note",
			message:   &waE2E.Message{AudioMessage: &waE2E.AudioMessage{PTT: proto.Bool(true)}},
			wantType:  types.MessageTypePTT,
			wantMedia: true,
		},
		{
			name:      "document",
			message:   &waE2E.Message{DocumentMessage: &waE2E.DocumentMessage{Caption: proto.String("report.pdf")}},
			wantType:  types.MessageTypeDocument,
			wantBody:  "report.pdf",
			wantMedia: true,
		},
		{
			name:      "sticker",
			message:   &waE2E.Message{StickerMessage: &waE2E.StickerMessage{}},
			wantType:  types.MessageTypeSticker,
			wantMedia: true,
		},
		{
			name:     "location",
			message:  &waE2E.Message{LocationMessage: &waE2E.LocationMessage{Name: proto.String("Office")}},
			wantType: types.MessageTypeLocation,
			wantBody: "Office",
		},
		{
			name:     "contact card",
			message:  &waE2E.Message{ContactMessage: &waE2E.ContactMessage{Vcard: proto.String("BEGIN:VCARD")}},
			wantType: types.MessageTypeVCard,
			wantBody: "BEGIN:VCARD",
		},
		{
			name:     "reaction",
			message:  &waE2E.Message{ReactionMessage: &waE2E.ReactionMessage{Text: proto.String("👍")}},
			wantType: types.MessageTypeUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			kind, body, hasMedia := describeMessage(tt.message)
			assert.Equal(t, tt.wantType, kind)
			assert.Equal(t, tt.wantBody, body)
			assert.Equal(t, tt.wantMedia, hasMedia)
		})
	}
}
