package worker

import (
	"context"

	"go.uber.org/zap"
)

// LogSender is the stub SMS gateway: messages are written to the log and reported as delivered.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send implements Sender.
func (s *LogSender) Send(_ context.Context, to, body string) error {
	s.logger.Info("sms", zap.String("to", to), zap.String("body", body))
	return nil
}
