package whatsapp

import (
	"fmt"

	"github.com/sirupsen/logrus"
	waLog "go.mau.fi/whatsmeow/util/log"
)

// logrusAdapter routes whatsmeow's internal logging through logrus
type logrusAdapter struct {
	entry *logrus.Entry
}

// NewLogger returns a waLog.Logger writing to the given logrus logger under module
func NewLogger(logger *logrus.Logger, module string) waLog.Logger {
	return &logrusAdapter{entry: logger.WithField("component", "whatsmeow").WithField("module", module)}
}

func (l *logrusAdapter) Errorf(msg string, args ...interface{}) {
	l.entry.Error(fmt.Sprintf(msg, args...))
}

func (l *logrusAdapter) Warnf(msg string, args ...interface{}) {
	l.entry.Warn(fmt.Sprintf(msg, args...))
}

func (l *logrusAdapter) Infof(msg string, args ...interface{}) {
	l.entry.Info(fmt.Sprintf(msg, args...))
}

func (l *logrusAdapter) Debugf(msg string, args ...interface{}) {
	l.entry.Debug(fmt.Sprintf(msg, args...))
}

func (l *logrusAdapter) Sub(module string) waLog.Logger {
	current, _ := l.entry.Data["module"].(string)
	if current != "" {
		module = current + "/" + module
	}
	return &logrusAdapter{entry: l.entry.WithField("module", module)}
}
