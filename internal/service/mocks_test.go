package service

import (
	"context"
	"sync"

	"github.com/stretchr/testify/mock"

	"github.com/joaquindlz/wp-bot/internal/models"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

// Mock Session Client
type mockSessionClient struct {
	mock.Mock

	mu               sync.Mutex
	lifecycleHandler types.LifecycleHandler
	messageHandler   types.MessageHandler
}

func (m *mockSessionClient) OnLifecycleEvent(handler types.LifecycleHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lifecycleHandler = handler
}

func (m *mockSessionClient) OnMessageEvent(handler types.MessageHandler) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messageHandler = handler
}

func (m *mockSessionClient) Initialize(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *mockSessionClient) Conversations(ctx context.Context) ([]types.Conversation, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]types.Conversation), args.Error(1)
}

func (m *mockSessionClient) GetChat(ctx context.Context, chatID string) (*types.Conversation, error) {
	args := m.Called(ctx, chatID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Conversation), args.Error(1)
}

func (m *mockSessionClient) GetContact(ctx context.Context, contactID string) (*types.Contact, error) {
	args := m.Called(ctx, contactID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*types.Contact), args.Error(1)
}

func (m *mockSessionClient) Destroy(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// emitLifecycle delivers a lifecycle event the way the Session Client would
func (m *mockSessionClient) emitLifecycle(ctx context.Context, event types.LifecycleEvent) {
	m.mu.Lock()
	handler := m.lifecycleHandler
	m.mu.Unlock()
	handler(ctx, event)
}

// emitMessage delivers an inbound message the way the Session Client would
func (m *mockSessionClient) emitMessage(ctx context.Context, msg *types.InboundMessage) {
	m.mu.Lock()
	handler := m.messageHandler
	m.mu.Unlock()
	handler(ctx, msg)
}

// fakeStateStore records every state write in memory
type fakeStateStore struct {
	mu      sync.Mutex
	states  []models.SessionState
	started int
	cleared int
}

func (f *fakeStateStore) RecordState(state models.SessionState) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.states = append(f.states, state)
}

func (f *fakeStateStore) MarkStarted() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.started++
}

func (f *fakeStateStore) ClearState() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cleared++
}

func (f *fakeStateStore) recorded() []models.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]models.SessionState, len(f.states))
	copy(out, f.states)
	return out
}

func (f *fakeStateStore) last() models.SessionState {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.states) == 0 {
		return ""
	}
	return f.states[len(f.states)-1]
}

func (f *fakeStateStore) count(state models.SessionState) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, s := range f.states {
		if s == state {
			n++
		}
	}
	return n
}

// fakeDispatcher captures payloads instead of sending them
type fakeDispatcher struct {
	mu       sync.Mutex
	payloads []*models.ForwardPayload
}

func (f *fakeDispatcher) Dispatch(_ context.Context, payload *models.ForwardPayload) <-chan ForwardResult {
	f.mu.Lock()
	f.payloads = append(f.payloads, payload)
	f.mu.Unlock()

	results := make(chan ForwardResult, 1)
	results <- ForwardResult{MessageID: payload.MessageID, Outcome: OutcomeSuccess}
	close(results)
	return results
}

func (f *fakeDispatcher) dispatched() []*models.ForwardPayload {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*models.ForwardPayload, len(f.payloads))
	copy(out, f.payloads)
	return out
}

// fakeRenderer remembers rendered QR codes
type fakeRenderer struct {
	mu    sync.Mutex
	codes []string
}

func (f *fakeRenderer) Render(code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.codes = append(f.codes, code)
}

func (f *fakeRenderer) rendered() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.codes...)
}
