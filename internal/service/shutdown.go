package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joaquindlz/wp-bot/internal/constants"
	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/pkg/whatsapp/types"
)

// SessionOwner is the part of the Router the coordinator drives
type SessionOwner interface {
	StopHeartbeat()
	MarkShutdown()
}

// ShutdownCoordinator tears the bridge down exactly once, either cleanly on
// a termination signal or after a fatal session condition
type ShutdownCoordinator struct {
	owner          SessionOwner
	client         types.SessionClient
	store          StateStore
	logger         *apperrors.Logger
	destroyTimeout time.Duration

	once sync.Once
}

// NewShutdownCoordinator creates a coordinator
func NewShutdownCoordinator(owner SessionOwner, client types.SessionClient, store StateStore, logger *logrus.Logger) *ShutdownCoordinator {
	return &ShutdownCoordinator{
		owner:          owner,
		client:         client,
		store:          store,
		logger:         apperrors.WrapLogger(logger),
		destroyTimeout: constants.ClientDestroyTimeoutSec * time.Second,
	}
}

// Shutdown stops the heartbeat, records DISCONNECTED, destroys the Session
// Client and removes the health-check files. Only the first call does
// anything; it returns true when this call performed the shutdown.
func (s *ShutdownCoordinator) Shutdown(ctx context.Context, signal string) bool {
	ran := false
	s.once.Do(func() {
		ran = true
		s.logger.WithField("signal", signal).Info("Received signal, shutting down WhatsApp client")

		s.owner.StopHeartbeat()
		s.owner.MarkShutdown()
		s.destroyClient(ctx)
		s.store.ClearState()

		s.logger.Info("Shutdown complete")
	})
	if !ran {
		s.logger.WithField("signal", signal).Warn("Shutdown already in progress, ignoring signal")
	}
	return ran
}

// Abort handles a fatal session condition. The health-check files are kept
// so the terminal state stays visible to external checkers.
func (s *ShutdownCoordinator) Abort(ctx context.Context, cause error) bool {
	ran := false
	s.once.Do(func() {
		ran = true
		s.logger.LogError(cause, "Stopping after fatal session condition")

		s.owner.StopHeartbeat()
		s.destroyClient(ctx)
	})
	return ran
}

func (s *ShutdownCoordinator) destroyClient(ctx context.Context) {
	destroyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.destroyTimeout)
	defer cancel()

	if err := s.client.Destroy(destroyCtx); err != nil {
		s.logger.LogError(err, "Failed to destroy WhatsApp client")
		return
	}
	s.logger.Info("WhatsApp client destroyed")
}
