package service

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joaquindlz/wp-bot/internal/constants"
	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/internal/metrics"
	"github.com/joaquindlz/wp-bot/internal/models"
	"github.com/joaquindlz/wp-bot/internal/privacy"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

// Reasons a message is not forwarded
const (
	dropSelf       = "self"
	dropOutOfScope = "out_of_scope"
	dropUnresolved = "scope_unresolved"
	dropLookup     = "lookup_failed"
)

// Normalizer filters inbound messages and builds Forward Payloads
type Normalizer struct {
	client types.SessionClient
	mode   models.Scope
	logger *apperrors.Logger
	masker *privacy.Masker
	now    func() time.Time
}

// NewNormalizer creates a normalizer for the given scope
func NewNormalizer(client types.SessionClient, mode models.Scope, logger *logrus.Logger, masker *privacy.Masker) *Normalizer {
	return &Normalizer{
		client: client,
		mode:   mode,
		logger: apperrors.WrapLogger(logger),
		masker: masker,
		now:    time.Now,
	}
}

// Normalize returns the payload for an in-scope message, or nil when the
// message is filtered out. scopeHandle is the resolved group id in group
// mode; an empty handle filters every message.
func (n *Normalizer) Normalize(ctx context.Context, msg *types.InboundMessage, scopeHandle string) *models.ForwardPayload {
	fields := messageFields(n.masker, msg)

	if msg.FromMe {
		n.drop(dropSelf, fields)
		return nil
	}

	if n.mode == models.ScopeGroup {
		if scopeHandle == "" {
			n.drop(dropUnresolved, fields)
			return nil
		}
		if msg.ChatID != scopeHandle {
			n.drop(dropOutOfScope, fields)
			return nil
		}
	}

	lookupCtx, cancel := context.WithTimeout(ctx, constants.MetadataLookupTimeoutSec*time.Second)
	defer cancel()

	chat, contact, err := n.lookup(lookupCtx, msg)
	if err != nil {
		n.lookupFailed(err, fields)
		return nil
	}

	if n.mode == models.ScopeAll {
		n.logger.WithFields(fields).WithFields(logrus.Fields{
			LogFieldChatName: n.masker.Name(chat.Name),
			"body":           SanitizeContent(n.masker, msg.Body),
		}).Info("New message received")
	}

	payload := &models.ForwardPayload{
		MessageID:  msg.ID,
		Timestamp:  msg.Timestamp,
		ReceivedAt: n.now().Unix(),
		Sender: models.SenderInfo{
			ID:   msg.SenderID(),
			Name: SenderName(contact, msg),
			IsMe: msg.FromMe,
		},
		Message: models.MessageInfo{
			Body:     msg.Body,
			Type:     msg.Type,
			HasMedia: msg.HasMedia,
		},
	}

	if n.mode == models.ScopeGroup {
		payload.GroupID = chat.ID
		payload.GroupName = chat.Name
	} else {
		payload.Chat = &models.ChatInfo{
			ID:      chat.ID,
			Name:    chat.Name,
			IsGroup: chat.IsGroup,
		}
	}

	return payload
}

// lookup resolves the conversation and the sender. In a one-to-one chat
// the sender is the chat itself, so a single contact lookup serves both.
func (n *Normalizer) lookup(ctx context.Context, msg *types.InboundMessage) (*types.Conversation, *types.Contact, error) {
	senderID := msg.SenderID()

	if !msg.IsGroupMessage() && senderID == msg.ChatID {
		contact, err := n.client.GetContact(ctx, senderID)
		if err != nil {
			return nil, nil, apperrors.NewMetadataLookupError("contact", msg.ID, err)
		}
		name := contact.Name
		if name == "" {
			name = contact.PushName
		}
		return &types.Conversation{ID: msg.ChatID, Name: name}, contact, nil
	}

	chat, err := n.client.GetChat(ctx, msg.ChatID)
	if err != nil {
		return nil, nil, apperrors.NewMetadataLookupError("chat", msg.ID, err)
	}
	contact, err := n.client.GetContact(ctx, senderID)
	if err != nil {
		return nil, nil, apperrors.NewMetadataLookupError("contact", msg.ID, err)
	}
	return chat, contact, nil
}

// SenderName picks the most descriptive name for the sender: the contact's
// own push name, then the name stored on the phone, then the author id,
// then the origin id.
func SenderName(contact *types.Contact, msg *types.InboundMessage) string {
	if contact != nil {
		if contact.PushName != "" {
			return contact.PushName
		}
		if contact.Name != "" {
			return contact.Name
		}
	}
	if msg.AuthorID != "" {
		return msg.AuthorID
	}
	return msg.FromID
}

func (n *Normalizer) drop(reason string, fields logrus.Fields) {
	metrics.IncrementCounter(metrics.MessagesDroppedTotal, map[string]string{LogFieldReason: reason}, "Messages not forwarded")
	n.logger.WithFields(fields).WithField(LogFieldReason, reason).Debug("Skipping message")
}

func (n *Normalizer) lookupFailed(err error, fields logrus.Fields) {
	metrics.IncrementCounter(metrics.MessagesDroppedTotal, map[string]string{LogFieldReason: dropLookup}, "Messages not forwarded")
	n.logger.LogError(err, "Failed to process message", fields)
}
