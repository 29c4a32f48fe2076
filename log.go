package roiconv

import (
	"io"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

var pkgLogger atomic.Pointer[log.Logger]

func init() {
	pkgLogger.Store(log.Default())
}

// logger returns the package logger.
func logger() *log.Logger {
	return pkgLogger.Load()
}

// SetLogger sets the logger used by the package. A nil l restores log.Default(). It is safe to
// call while other goroutines are logging, e.g. during ProcessImages.
func SetLogger(l *log.Logger) {
	if l == nil {
		l = log.Default()
	}
	pkgLogger.Store(l)
}

// NewLogger creates a logger writing to w at the given level with short timestamps.
func NewLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress logs the elapsed time of an operation when done is called.
type progress struct {
	start time.Time
}

func newProgress() progress {
	return progress{start: time.Now()}
}

func (p progress) done(msg string, keyvals ...interface{}) {
	keyvals = append(keyvals, "elapsed", time.Since(p.start).Round(time.Millisecond))
	logger().Info(msg, keyvals...)
}
