package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/joaquindlz/wp-bot/internal/models"
	"github.com/joaquindlz/wp-bot/internal/privacy"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

type recordingOwner struct {
	mu    sync.Mutex
	calls []string
}

func (o *recordingOwner) StopHeartbeat() { o.record("stop_heartbeat") }
func (o *recordingOwner) MarkShutdown()  { o.record("mark_shutdown") }

func (o *recordingOwner) record(call string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.calls = append(o.calls, call)
}

func TestShutdown_Sequence(t *testing.T) {
	owner := &recordingOwner{}
	store := &fakeStateStore{}
	client := &mockSessionClient{}
	client.On("Destroy", mock.Anything).Run(func(mock.Arguments) { owner.record("destroy") }).Return(nil).Once()
	logger, _ := logtest.NewNullLogger()

	coordinator := NewShutdownCoordinator(owner, client, store, logger)

	assert.True(t, coordinator.Shutdown(context.Background(), "SIGTERM"))
	assert.Equal(t, []string{"stop_heartbeat", "mark_shutdown", "destroy"}, owner.calls)
	assert.Equal(t, 1, store.cleared)
	client.AssertExpectations(t)
}

func TestShutdown_Idempotent(t *testing.T) {
	owner := &recordingOwner{}
	store := &fakeStateStore{}
	client := &mockSessionClient{}
	client.On("Destroy", mock.Anything).Return(nil).Once()
	logger, hook := logtest.NewNullLogger()

	coordinator := NewShutdownCoordinator(owner, client, store, logger)

	assert.True(t, coordinator.Shutdown(context.Background(), "SIGINT"))
	assert.False(t, coordinator.Shutdown(context.Background(), "SIGINT"))
	assert.False(t, coordinator.Abort(context.Background(), errors.New("late")))

	assert.Equal(t, 1, store.cleared)
	client.AssertNumberOfCalls(t, "Destroy", 1)
	assert.Contains(t, hook.LastEntry().Message, "already in progress")
}

func TestShutdown_DestroyErrorStillClearsState(t *testing.T) {
	owner := &recordingOwner{}
	store := &fakeStateStore{}
	client := &mockSessionClient{}
	client.On("Destroy", mock.Anything).Return(errors.New("socket closed")).Once()
	logger, _ := logtest.NewNullLogger()

	NewShutdownCoordinator(owner, client, store, logger).Shutdown(context.Background(), "SIGTERM")

	assert.Equal(t, 1, store.cleared)
}

func TestShutdown_DestroyRunsAfterContextCancel(t *testing.T) {
	owner := &recordingOwner{}
	client := &mockSessionClient{}
	client.On("Destroy", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil })).Return(nil).Once()
	logger, _ := logtest.NewNullLogger()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	NewShutdownCoordinator(owner, client, &fakeStateStore{}, logger).Shutdown(ctx, "SIGINT")
	client.AssertExpectations(t)
}

func TestAbort_KeepsStateFiles(t *testing.T) {
	owner := &recordingOwner{}
	store := &fakeStateStore{}
	client := &mockSessionClient{}
	client.On("Destroy", mock.Anything).Return(nil).Once()
	logger, _ := logtest.NewNullLogger()

	coordinator := NewShutdownCoordinator(owner, client, store, logger)

	assert.True(t, coordinator.Abort(context.Background(), errors.New("logged out")))
	assert.Equal(t, []string{"stop_heartbeat"}, owner.calls)
	assert.Zero(t, store.cleared)
	assert.False(t, coordinator.Shutdown(context.Background(), "SIGTERM"))
}

// A termination signal while the heartbeat is active: once the state files
// are removed, the heartbeat never writes them again.
func TestShutdown_HeartbeatNeverFiresAfterFilesRemoved(t *testing.T) {
	dir := t.TempDir()
	paths := models.PathsConfig{
		StateFile: filepath.Join(dir, "state"),
		StartFile: filepath.Join(dir, "started"),
	}
	logger, _ := logtest.NewNullLogger()
	recorder := NewStateRecorder(paths, logger)

	client := &mockSessionClient{}
	client.On("Destroy", mock.Anything).Return(nil)

	router := NewRouter(RouterOptions{
		Config:            allConfig(),
		Client:            client,
		Store:             recorder,
		Dispatcher:        &fakeDispatcher{},
		Logger:            logger,
		Masker:            privacy.NewMasker(false),
		HeartbeatInterval: time.Millisecond,
	})

	recorder.MarkStarted()
	client.emitLifecycle(context.Background(), types.LifecycleEvent{Kind: types.EventReady})
	assert.Eventually(t, func() bool {
		data, err := os.ReadFile(paths.StateFile)
		return err == nil && string(data) == "CONNECTED"
	}, time.Second, time.Millisecond)

	NewShutdownCoordinator(router, client, recorder, logger).Shutdown(context.Background(), "SIGTERM")
	require.NoFileExists(t, paths.StateFile)

	time.Sleep(30 * time.Millisecond)
	assert.NoFileExists(t, paths.StateFile)
	assert.NoFileExists(t, paths.StartFile)
}

// blockingRenderer holds a QR event inside the router until released
type blockingRenderer struct {
	entered chan struct{}
	release chan struct{}
}

func (b *blockingRenderer) Render(string) {
	close(b.entered)
	<-b.release
}

// A QR code still being rendered when the termination signal arrives must
// not bring the state file back once shutdown has removed it.
func TestShutdown_InFlightEventDoesNotRecreateStateFile(t *testing.T) {
	dir := t.TempDir()
	paths := models.PathsConfig{
		StateFile: filepath.Join(dir, "state"),
		StartFile: filepath.Join(dir, "started"),
	}
	logger, _ := logtest.NewNullLogger()
	recorder := NewStateRecorder(paths, logger)
	renderer := &blockingRenderer{entered: make(chan struct{}), release: make(chan struct{})}

	client := &mockSessionClient{}
	client.On("Destroy", mock.Anything).Return(nil)

	router := NewRouter(RouterOptions{
		Config:     allConfig(),
		Client:     client,
		Store:      recorder,
		Renderer:   renderer,
		Dispatcher: &fakeDispatcher{},
		Logger:     logger,
		Masker:     privacy.NewMasker(false),
	})

	recorder.MarkStarted()
	handled := make(chan struct{})
	go func() {
		defer close(handled)
		client.emitLifecycle(context.Background(), types.LifecycleEvent{Kind: types.EventQR, QRCode: "2@abc"})
	}()
	<-renderer.entered

	NewShutdownCoordinator(router, client, recorder, logger).Shutdown(context.Background(), "SIGTERM")
	close(renderer.release)
	<-handled

	assert.NoFileExists(t, paths.StateFile)
	assert.NoFileExists(t, paths.StartFile)
	assert.Equal(t, models.StateDisconnected, router.State())
}
