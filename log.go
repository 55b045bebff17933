package bleadv

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

// Logger is the logging surface used across the module. The default is
// a logrus logger writing to stderr; embeddings can install their own
// with SetLogger.
type Logger interface {
	Info(...interface{})
	Debug(...interface{})
	Error(...interface{})
	Warn(...interface{})

	Infof(string, ...interface{})
	Debugf(string, ...interface{})
	Errorf(string, ...interface{})
	Warnf(string, ...interface{})

	ChildLogger(tags map[string]interface{}) Logger
}

var (
	logMu  sync.Mutex
	logger Logger
)

// GetLogger returns the shared logger, building the default on first
// use.
func GetLogger() Logger {
	logMu.Lock()
	defer logMu.Unlock()

	if logger == nil {
		logger = newDefaultLogger()
	}
	return logger
}

// SetLogger replaces the shared logger.
func SetLogger(l Logger) {
	logMu.Lock()
	defer logMu.Unlock()
	logger = l
}

// SetLogLevelMax turns on trace logging. Only the default logger knows
// its level; an installed replacement is left alone.
func SetLogLevelMax() {
	l := GetLogger()

	dl, ok := l.(*defaultLogger)
	if !ok {
		l.Warn("log level is managed by the installed logger")
		return
	}
	dl.Entry.Logger.SetLevel(logrus.TraceLevel)
}

type defaultLogger struct {
	*logrus.Entry
}

func newDefaultLogger() *defaultLogger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	l.SetLevel(logrus.InfoLevel)

	return &defaultLogger{Entry: logrus.NewEntry(l)}
}

func (d *defaultLogger) ChildLogger(tags map[string]interface{}) Logger {
	return &defaultLogger{Entry: d.Entry.WithFields(tags)}
}
