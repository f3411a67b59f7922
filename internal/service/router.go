package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joaquindlz/wp-bot/internal/constants"
	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/internal/metrics"
	"github.com/joaquindlz/wp-bot/internal/models"
	"github.com/joaquindlz/wp-bot/internal/privacy"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

// RouterOptions holds the collaborators and timings of a Router
type RouterOptions struct {
	Config     *models.Config
	Client     types.SessionClient
	Store      StateStore
	Renderer   types.QRRenderer
	Dispatcher Dispatcher
	Logger     *logrus.Logger
	Masker     *privacy.Masker

	// Zero values use the defaults from internal/constants
	HeartbeatInterval    time.Duration
	AuthFailureExitDelay time.Duration
}

// Status is a read-only snapshot of the router state
type Status struct {
	State         models.SessionState `json:"status"`
	StartedAt     time.Time           `json:"started_at"`
	Scope         models.Scope        `json:"scope"`
	ScopeResolved bool                `json:"scope_resolved"`
}

// Router is the single owner of the session state. It receives every
// lifecycle and message event from the Session Client and handles them one
// at a time.
type Router struct {
	config     *models.Config
	client     types.SessionClient
	store      StateStore
	renderer   types.QRRenderer
	dispatcher Dispatcher
	normalizer *Normalizer
	heartbeat  *Heartbeat
	logger     *apperrors.Logger
	masker     *privacy.Masker

	authFailureExitDelay time.Duration

	// eventMu serializes event handling. stateMu guards the fields below it
	// and is never held while waiting on the heartbeat to stop.
	eventMu      sync.Mutex
	stateMu      sync.RWMutex
	state        models.SessionState
	startedAt    time.Time
	scopeHandle  string
	scopeAttempt bool
	closed       bool

	fatalOnce sync.Once
	fatalCh   chan error
}

// NewRouter creates a router and registers it with the Session Client
func NewRouter(opts RouterOptions) *Router {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = constants.StateReassertIntervalSec * time.Second
	}
	if opts.AuthFailureExitDelay <= 0 {
		opts.AuthFailureExitDelay = constants.AuthFailureExitDelayMs * time.Millisecond
	}

	r := &Router{
		config:               opts.Config,
		client:               opts.Client,
		store:                opts.Store,
		renderer:             opts.Renderer,
		dispatcher:           opts.Dispatcher,
		normalizer:           NewNormalizer(opts.Client, opts.Config.Mode, opts.Logger, opts.Masker),
		logger:               apperrors.WrapLogger(opts.Logger),
		masker:               opts.Masker,
		authFailureExitDelay: opts.AuthFailureExitDelay,
		startedAt:            time.Now(),
		fatalCh:              make(chan error, 1),
	}
	r.heartbeat = NewHeartbeat(opts.HeartbeatInterval, r.reassertConnected, opts.Logger)

	opts.Client.OnLifecycleEvent(r.HandleLifecycle)
	opts.Client.OnMessageEvent(r.HandleMessage)
	return r
}

// Fatal receives the error that ended the session: an authentication
// failure or a loss of the session identity
func (r *Router) Fatal() <-chan error {
	return r.fatalCh
}

// State returns the current session state
func (r *Router) State() models.SessionState {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.state
}

// ScopeHandle returns the resolved group id, or "" when unresolved
func (r *Router) ScopeHandle() string {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.scopeHandle
}

// Status returns a snapshot for the status server
func (r *Router) Status() Status {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return Status{
		State:         r.state,
		StartedAt:     r.startedAt,
		Scope:         r.config.Mode,
		ScopeResolved: r.scopeHandle != "",
	}
}

// HandleLifecycle applies one lifecycle event to the state machine
func (r *Router) HandleLifecycle(ctx context.Context, event types.LifecycleEvent) {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()

	metrics.IncrementCounter(metrics.LifecycleEventsTotal, map[string]string{LogFieldEvent: string(event.Kind)}, "Session lifecycle events")

	if r.ignoring() {
		r.logger.WithField(LogFieldEvent, string(event.Kind)).Debug("Skipping lifecycle event: session already ended")
		return
	}

	switch event.Kind {
	case types.EventQR:
		r.logger.Info("Scan this QR code with WhatsApp (Settings > Linked devices > Link a device)")
		if r.renderer != nil {
			r.renderer.Render(event.QRCode)
		}
		r.record(models.StateQR)

	case types.EventAuthenticated:
		r.logger.Info("WhatsApp session authenticated")
		r.record(models.StateAuthenticated)

	case types.EventAuthFailure:
		r.handleAuthFailure(event.Reason)

	case types.EventReady:
		r.handleReady(ctx)

	case types.EventDisconnected:
		r.handleDisconnected(event.Reason)

	case types.EventStateChanged:
		r.handleStateChanged(event.State)

	default:
		r.logger.WithField(LogFieldEvent, string(event.Kind)).Debug("Ignoring unknown lifecycle event")
	}
}

// HandleMessage filters, normalizes and dispatches one inbound message
func (r *Router) HandleMessage(ctx context.Context, msg *types.InboundMessage) {
	r.eventMu.Lock()
	defer r.eventMu.Unlock()

	metrics.IncrementCounter(metrics.MessagesReceivedTotal, nil, "Inbound messages")

	if r.ignoring() {
		return
	}

	payload := r.normalizer.Normalize(ctx, msg, r.ScopeHandle())
	if payload == nil {
		return
	}
	r.dispatcher.Dispatch(ctx, payload)
}

// StopHeartbeat stops the periodic CONNECTED reassertion
func (r *Router) StopHeartbeat() {
	r.heartbeat.Stop()
}

// MarkShutdown records DISCONNECTED and ignores every later event. An
// event already being handled can no longer record a state or start the
// heartbeat once this returns.
func (r *Router) MarkShutdown() {
	r.stateMu.Lock()
	r.setStateLocked(models.StateDisconnected)
	r.closed = true
	r.stateMu.Unlock()

	r.heartbeat.Stop()
}

func (r *Router) handleAuthFailure(reason string) {
	r.logger.LogError(apperrors.NewAuthFailureError(reason), "WhatsApp authentication failed")
	for _, hint := range authFailureHints {
		r.logger.Error(hint)
	}

	r.record(models.StateAuthFailure)
	r.heartbeat.Stop()

	err := apperrors.NewAuthFailureError(reason)
	time.AfterFunc(r.authFailureExitDelay, func() { r.fail(err) })
}

func (r *Router) handleReady(ctx context.Context) {
	r.record(models.StateReady)
	r.startHeartbeat(ctx)

	if r.config.IsGroupMode() {
		r.resolveScope(ctx)
		if handle := r.ScopeHandle(); handle != "" {
			r.logger.WithFields(logrus.Fields{
				"group_name": r.config.TargetGroupName,
				"group_id":   r.masker.ChatID(handle),
			}).Info("WhatsApp client ready, listening to the target group")
		}
		return
	}
	r.logger.Info("WhatsApp client ready, listening to all incoming messages")
}

// resolveScope looks up the target group once, on the first ready
func (r *Router) resolveScope(ctx context.Context) {
	r.stateMu.Lock()
	attempted := r.scopeAttempt
	r.scopeAttempt = true
	r.stateMu.Unlock()
	if attempted {
		return
	}

	lookupCtx, cancel := context.WithTimeout(ctx, constants.MetadataLookupTimeoutSec*time.Second)
	defer cancel()

	conversations, err := r.client.Conversations(lookupCtx)
	if err != nil {
		r.logger.LogError(apperrors.NewMetadataLookupError("conversations", "", err),
			"Failed to list conversations, no messages will be forwarded")
		return
	}

	for _, c := range conversations {
		if c.IsGroup && c.Name == r.config.TargetGroupName {
			r.stateMu.Lock()
			r.scopeHandle = c.ID
			r.stateMu.Unlock()
			return
		}
	}

	r.logger.WithFields(logrus.Fields{
		"group_name":  r.config.TargetGroupName,
		LogFieldCount: len(conversations),
	}).Warn("Target group not found, no messages will be forwarded")
}

func (r *Router) handleDisconnected(reason string) {
	var terminal models.SessionState
	switch reason {
	case types.DisconnectNavigation:
		terminal = models.StateSessionExpired
	case types.DisconnectLogout:
		terminal = models.StateLoggedOut
	default:
		r.logger.WithField(LogFieldReason, reason).Warn("WhatsApp session disconnected")
		r.record(models.StateDisconnected)
		return
	}

	err := apperrors.NewSessionLostError(terminal.String(), reason)
	r.logger.LogError(err, "WhatsApp session ended, a new QR pairing is required")
	r.record(terminal)
	r.heartbeat.Stop()
	r.fail(err)
}

func (r *Router) handleStateChanged(substate string) {
	r.logger.WithField(LogFieldState, substate).Info("WhatsApp connection state changed")

	switch substate {
	case types.SubstateConnected:
		r.record(models.StateConnected)
	case types.SubstateTimeout:
		r.record(models.StateDisconnected)
	}
}

// reassertConnected runs on the heartbeat goroutine
func (r *Router) reassertConnected() {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()

	if r.closed || !r.state.IsLive() {
		return
	}
	r.setStateLocked(models.StateConnected)
}

// startHeartbeat holds stateMu so MarkShutdown cannot slip in between the
// closed check and Start. Start never waits on a tick, so this cannot
// deadlock with reassertConnected.
func (r *Router) startHeartbeat(ctx context.Context) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	if r.closed {
		return
	}
	r.heartbeat.Start(ctx)
}

func (r *Router) record(state models.SessionState) {
	r.stateMu.Lock()
	defer r.stateMu.Unlock()
	r.setStateLocked(state)
}

func (r *Router) setStateLocked(state models.SessionState) {
	if r.closed {
		return
	}
	if r.state != state {
		metrics.SetGauge(metrics.SessionStateGauge, 0, map[string]string{LogFieldState: r.state.String()}, "Current session state")
		metrics.SetGauge(metrics.SessionStateGauge, 1, map[string]string{LogFieldState: state.String()}, "Current session state")
	}
	r.state = state
	r.store.RecordState(state)
}

// ignoring reports whether events no longer change anything
func (r *Router) ignoring() bool {
	r.stateMu.RLock()
	defer r.stateMu.RUnlock()
	return r.closed || r.state.IsTerminal()
}

func (r *Router) fail(err error) {
	r.fatalOnce.Do(func() {
		r.fatalCh <- err
	})
}
