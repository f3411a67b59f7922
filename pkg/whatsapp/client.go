package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	watypes "go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"

	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/internal/retry"
	"github.com/joaquindlz/wp-bot/pkg/constants"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

// ClientConfig holds the settings of the whatsmeow-backed Session Client
type ClientConfig struct {
	SessionDir     string
	InitAttempts   int
	InitialBackoff time.Duration
	GroupCacheTTL  time.Duration
}

type groupCacheEntry struct {
	name    string
	expires time.Time
}

var _ types.SessionClient = (*Client)(nil)

// Client is the whatsmeow implementation of types.SessionClient
type Client struct {
	config ClientConfig
	logger *logrus.Logger

	container *sqlstore.Container
	wa        *whatsmeow.Client

	mu               sync.RWMutex
	lifecycleHandler types.LifecycleHandler
	messageHandler   types.MessageHandler
	groupNames       map[string]groupCacheEntry

	// connection bookkeeping, only touched from whatsmeow's event goroutine
	authAnnounced bool
	readySent     bool

	ctx context.Context
}

// NewClient creates a Session Client that keeps its device store in the session directory
func NewClient(config ClientConfig, logger *logrus.Logger) *Client {
	if config.InitAttempts < 1 {
		config.InitAttempts = 1
	}
	if config.GroupCacheTTL <= 0 {
		config.GroupCacheTTL = constants.DefaultGroupCacheTTLMinutes * time.Minute
	}
	return &Client{
		config:     config,
		logger:     logger,
		groupNames: make(map[string]groupCacheEntry),
		ctx:        context.Background(),
	}
}

func (c *Client) OnLifecycleEvent(handler types.LifecycleHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lifecycleHandler = handler
}

func (c *Client) OnMessageEvent(handler types.MessageHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.messageHandler = handler
}

// Initialize opens the device store, connects and starts pairing when no
// identity is stored yet. Events flow to the registered handlers from here on.
func (c *Client) Initialize(ctx context.Context) error {
	if err := os.MkdirAll(c.config.SessionDir, constants.DefaultDirectoryPermissions); err != nil {
		return fmt.Errorf("failed to create session directory: %w", err)
	}
	c.ctx = ctx

	if err := c.openStore(ctx); err != nil {
		return err
	}

	device, err := c.container.GetFirstDevice(ctx)
	if err != nil {
		return fmt.Errorf("failed to load device: %w", err)
	}

	c.wa = whatsmeow.NewClient(device, NewLogger(c.logger, "Client"))
	c.wa.AddEventHandler(c.handleEvent)

	if c.wa.Store.ID == nil {
		c.logger.Info("No stored WhatsApp session, starting QR pairing")
		qrChan, err := c.wa.GetQRChannel(ctx)
		if err != nil {
			return fmt.Errorf("failed to open QR channel: %w", err)
		}
		if err := c.wa.Connect(); err != nil {
			return fmt.Errorf("failed to connect: %w", err)
		}
		go c.consumeQR(ctx, qrChan)
		return nil
	}

	c.logger.WithField("device", c.wa.Store.ID.String()).Info("Restoring stored WhatsApp session")
	if err := c.wa.Connect(); err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	return nil
}

func (c *Client) openStore(ctx context.Context) error {
	dsn := "file:" + filepath.Join(c.config.SessionDir, constants.DeviceStoreFileName) + constants.DeviceStoreDSNParams
	logger := apperrors.WrapLogger(c.logger)

	backoff := retry.NewBackoff(retry.BackoffConfig{
		InitialDelay: c.config.InitialBackoff,
		MaxDelay:     constants.DefaultStoreMaxBackoffSec * time.Second,
		Multiplier:   2.0,
		MaxAttempts:  c.config.InitAttempts,
		Jitter:       true,
	}).OnRetry(func(attempt int, delay time.Duration, err error) {
		logger.LogRetryableError(err, "Opening session store failed, retrying", logrus.Fields{
			"attempt": attempt,
			"delay":   delay.String(),
		})
	})

	return backoff.RetryWithPredicate(ctx, func() error {
		container, err := sqlstore.New(ctx, constants.DeviceStoreDialect, dsn, NewLogger(c.logger, "Database"))
		if err != nil {
			return storeOpenError(err)
		}
		c.container = container
		return nil
	}, apperrors.IsRetryable)
}

// storeOpenError classifies a device store failure. A busy or locked
// database clears up on its own; a damaged file or missing permissions
// does not, so those fail without waiting out the backoff.
func storeOpenError(err error) *apperrors.AppError {
	if errors.Is(err, fs.ErrPermission) {
		return apperrors.Wrap(err, apperrors.ErrCodeSessionInit, "failed to open session store")
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrCorrupt, sqlite3.ErrNotADB, sqlite3.ErrPerm, sqlite3.ErrReadonly, sqlite3.ErrAuth:
			return apperrors.Wrap(err, apperrors.ErrCodeSessionInit, "failed to open session store")
		}
	}
	return apperrors.WrapRetryable(err, apperrors.ErrCodeSessionInit, "failed to open session store")
}

// consumeQR turns pairing channel items into lifecycle events
func (c *Client) consumeQR(ctx context.Context, qrChan <-chan whatsmeow.QRChannelItem) {
	for item := range qrChan {
		switch item.Event {
		case whatsmeow.QRChannelEventCode:
			c.emit(ctx, types.LifecycleEvent{Kind: types.EventQR, QRCode: item.Code})
		case whatsmeow.QRChannelSuccess.Event:
			// PairSuccess already announced authentication
		case whatsmeow.QRChannelTimeout.Event:
			c.emit(ctx, types.LifecycleEvent{Kind: types.EventAuthFailure, Reason: "QR pairing timed out"})
		default:
			reason := item.Event
			if item.Error != nil {
				reason = item.Error.Error()
			}
			c.emit(ctx, types.LifecycleEvent{Kind: types.EventAuthFailure, Reason: reason})
		}
	}
}

func (c *Client) handleEvent(evt interface{}) {
	ctx := c.ctx

	if m, ok := evt.(*events.Message); ok {
		msg := newInboundMessage(m)
		if msg == nil {
			return
		}
		c.mu.RLock()
		handler := c.messageHandler
		c.mu.RUnlock()
		if handler != nil {
			handler(ctx, msg)
		}
		return
	}

	if g, ok := evt.(*events.GroupInfo); ok {
		if g.Name != nil {
			c.forgetGroup(g.JID.String())
		}
		return
	}

	for _, le := range c.translate(evt) {
		c.emit(ctx, le)
	}
}

// translate maps whatsmeow connection events onto lifecycle events
func (c *Client) translate(evt interface{}) []types.LifecycleEvent {
	switch e := evt.(type) {
	case *events.PairSuccess:
		c.authAnnounced = true
		return []types.LifecycleEvent{{Kind: types.EventAuthenticated}}
	case *events.PairError:
		reason := "pairing failed"
		if e.Error != nil {
			reason = e.Error.Error()
		}
		return []types.LifecycleEvent{{Kind: types.EventAuthFailure, Reason: reason}}
	case *events.ClientOutdated:
		return []types.LifecycleEvent{{Kind: types.EventAuthFailure, Reason: "client outdated"}}
	case *events.TemporaryBan:
		return []types.LifecycleEvent{{Kind: types.EventAuthFailure, Reason: e.String()}}
	case *events.Connected:
		var out []types.LifecycleEvent
		if !c.authAnnounced {
			c.authAnnounced = true
			out = append(out, types.LifecycleEvent{Kind: types.EventAuthenticated})
		}
		if !c.readySent {
			c.readySent = true
			return append(out, types.LifecycleEvent{Kind: types.EventReady})
		}
		return append(out, types.LifecycleEvent{Kind: types.EventStateChanged, State: types.SubstateConnected})
	case *events.LoggedOut:
		return []types.LifecycleEvent{{Kind: types.EventDisconnected, Reason: types.DisconnectLogout}}
	case *events.StreamReplaced:
		return []types.LifecycleEvent{{Kind: types.EventDisconnected, Reason: types.DisconnectNavigation}}
	case *events.Disconnected:
		return []types.LifecycleEvent{{Kind: types.EventDisconnected, Reason: types.DisconnectConnectionLost}}
	case *events.ConnectFailure:
		if e.Reason.IsLoggedOut() {
			return []types.LifecycleEvent{{Kind: types.EventDisconnected, Reason: types.DisconnectLogout}}
		}
		return []types.LifecycleEvent{{Kind: types.EventDisconnected, Reason: fmt.Sprintf("CONNECT_FAILURE_%d", int(e.Reason))}}
	case *events.KeepAliveTimeout:
		return []types.LifecycleEvent{{Kind: types.EventStateChanged, State: types.SubstateTimeout}}
	case *events.KeepAliveRestored:
		return []types.LifecycleEvent{{Kind: types.EventStateChanged, State: types.SubstateConnected}}
	}
	return nil
}

func (c *Client) emit(ctx context.Context, event types.LifecycleEvent) {
	c.mu.RLock()
	handler := c.lifecycleHandler
	c.mu.RUnlock()
	if handler != nil {
		handler(ctx, event)
	}
}

// Conversations lists the groups the paired account belongs to
func (c *Client) Conversations(ctx context.Context) ([]types.Conversation, error) {
	if c.wa == nil {
		return nil, errors.New("client not initialized")
	}
	groups, err := c.wa.GetJoinedGroups(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list joined groups: %w", err)
	}

	conversations := make([]types.Conversation, 0, len(groups))
	for _, g := range groups {
		id := g.JID.String()
		c.rememberGroup(id, g.Name)
		conversations = append(conversations, types.Conversation{ID: id, Name: g.Name, IsGroup: true})
	}
	return conversations, nil
}

// GetChat returns the conversation with the given identifier. Group names
// are cached until whatsmeow reports a rename.
func (c *Client) GetChat(ctx context.Context, chatID string) (*types.Conversation, error) {
	if c.wa == nil {
		return nil, errors.New("client not initialized")
	}
	jid, err := watypes.ParseJID(chatID)
	if err != nil {
		return nil, fmt.Errorf("invalid chat id %q: %w", chatID, err)
	}

	if jid.Server != watypes.GroupServer {
		contact, err := c.GetContact(ctx, chatID)
		if err != nil {
			return nil, err
		}
		name := contact.Name
		if name == "" {
			name = contact.PushName
		}
		return &types.Conversation{ID: chatID, Name: name}, nil
	}

	if name, ok := c.cachedGroup(chatID); ok {
		return &types.Conversation{ID: chatID, Name: name, IsGroup: true}, nil
	}

	info, err := c.wa.GetGroupInfo(ctx, jid)
	if err != nil {
		return nil, fmt.Errorf("failed to get group info: %w", err)
	}
	c.rememberGroup(chatID, info.Name)
	return &types.Conversation{ID: chatID, Name: info.Name, IsGroup: true}, nil
}

// GetContact returns what the device store knows about a user
func (c *Client) GetContact(ctx context.Context, contactID string) (*types.Contact, error) {
	if c.wa == nil {
		return nil, errors.New("client not initialized")
	}
	jid, err := watypes.ParseJID(contactID)
	if err != nil {
		return nil, fmt.Errorf("invalid contact id %q: %w", contactID, err)
	}

	info, err := c.wa.Store.Contacts.GetContact(ctx, jid.ToNonAD())
	if err != nil {
		return nil, fmt.Errorf("failed to get contact: %w", err)
	}

	contact := &types.Contact{ID: contactID, PushName: info.PushName}
	switch {
	case info.FullName != "":
		contact.Name = info.FullName
	case info.FirstName != "":
		contact.Name = info.FirstName
	case info.BusinessName != "":
		contact.Name = info.BusinessName
	}
	return contact, nil
}

// Destroy disconnects from WhatsApp and closes the device store. The stored
// identity is kept so the next start can resume without pairing.
func (c *Client) Destroy(ctx context.Context) error {
	done := make(chan error, 1)
	go func() {
		if c.wa != nil {
			c.wa.Disconnect()
		}
		if c.container != nil {
			done <- c.container.Close()
			return
		}
		done <- nil
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("failed to close session store: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("session client teardown: %w", ctx.Err())
	}
}

func (c *Client) cachedGroup(id string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entry, ok := c.groupNames[id]
	if !ok || time.Now().After(entry.expires) {
		return "", false
	}
	return entry.name, true
}

func (c *Client) rememberGroup(id, name string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.groupNames[id] = groupCacheEntry{name: name, expires: time.Now().Add(c.config.GroupCacheTTL)}
}

func (c *Client) forgetGroup(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.groupNames, id)
}
