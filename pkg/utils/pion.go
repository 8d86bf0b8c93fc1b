package utils

import (
	"github.com/pion/logging"
)

// PionLoggerFactory adapts a Logger into a pion logging.LoggerFactory so
// the internal WebRTC stack (ICE, DTLS, SCTP) logs through the same sink
// as the rest of the client. Install it on a webrtc.SettingEngine.
type PionLoggerFactory struct {
	Logger *Logger
}

// NewLogger implements logging.LoggerFactory.
func (f *PionLoggerFactory) NewLogger(scope string) logging.LeveledLogger {
	base := f.Logger
	if base == nil {
		base = GetLogger()
	}
	return &pionLogger{logger: base.WithPrefix(scope)}
}

type pionLogger struct {
	logger *Logger
}

func (l *pionLogger) Trace(msg string)                          { l.logger.Debug("%s", msg) }
func (l *pionLogger) Tracef(format string, args ...interface{}) { l.logger.Debug(format, args...) }
func (l *pionLogger) Debug(msg string)                          { l.logger.Debug("%s", msg) }
func (l *pionLogger) Debugf(format string, args ...interface{}) { l.logger.Debug(format, args...) }
func (l *pionLogger) Info(msg string)                           { l.logger.Info("%s", msg) }
func (l *pionLogger) Infof(format string, args ...interface{})  { l.logger.Info(format, args...) }
func (l *pionLogger) Warn(msg string)                           { l.logger.Warn("%s", msg) }
func (l *pionLogger) Warnf(format string, args ...interface{})  { l.logger.Warn(format, args...) }
func (l *pionLogger) Error(msg string)                          { l.logger.Error("%s", msg) }
func (l *pionLogger) Errorf(format string, args ...interface{}) { l.logger.Error(format, args...) }
