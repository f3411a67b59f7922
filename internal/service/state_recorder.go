package service

import (
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/joaquindlz/wp-bot/internal/constants"
	apperrors "github.com/joaquindlz/wp-bot/internal/errors"
	"github.com/joaquindlz/wp-bot/internal/metrics"
	"github.com/joaquindlz/wp-bot/internal/models"
)

// StateStore persists the session state for external health checkers
type StateStore interface {
	RecordState(state models.SessionState)
	MarkStarted()
	ClearState()
}

// StateRecorder writes the state file and the start-marker file. Every
// operation is best-effort: failures are logged and never returned.
type StateRecorder struct {
	stateFile string
	startFile string
	logger    *apperrors.Logger
	now       func() time.Time
}

// NewStateRecorder creates a recorder for the configured file locations
func NewStateRecorder(paths models.PathsConfig, logger *logrus.Logger) *StateRecorder {
	return &StateRecorder{
		stateFile: paths.StateFile,
		startFile: paths.StartFile,
		logger:    apperrors.WrapLogger(logger),
		now:       time.Now,
	}
}

// RecordState overwrites the state file with the literal state name
func (r *StateRecorder) RecordState(state models.SessionState) {
	if err := r.write(r.stateFile, state.String()); err != nil {
		r.fail("write", r.stateFile, err)
		return
	}
	r.logger.WithFields(logrus.Fields{
		LogFieldState:    state.String(),
		LogFieldFilePath: r.stateFile,
	}).Debug("Recorded session state")
}

// MarkStarted writes the process start time to the start-marker file
func (r *StateRecorder) MarkStarted() {
	if err := r.write(r.startFile, r.now().UTC().Format(time.RFC3339)); err != nil {
		r.fail("mark_started", r.startFile, err)
	}
}

// ClearState removes both files; missing files are not an error
func (r *StateRecorder) ClearState() {
	for _, path := range []string{r.stateFile, r.startFile} {
		if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
			r.fail("clear", path, err)
		}
	}
}

// write replaces the file contents through a rename so readers never see a
// partially written file
func (r *StateRecorder) write(path, content string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, constants.StateDirectoryPermissions); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, constants.StateFilePermissions); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}

func (r *StateRecorder) fail(operation, path string, err error) {
	metrics.IncrementCounter(metrics.StateWritesFailed, map[string]string{LogFieldOperation: operation}, "Failed state file operations")
	r.logger.LogWarn(apperrors.NewStateFileError(operation, path, err), "Failed to update health-check file")
}
