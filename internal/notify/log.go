package notify

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/pulsewatch/pulsewatch/pkg/utils"
)

// LogSender writes alert messages to the application log. Used when no bot
// token is configured, and in tests.
type LogSender struct {
	logger *logrus.Logger
}

// NewLogSender creates a log-backed sender.
func NewLogSender() *LogSender {
	return &LogSender{logger: utils.GetLogger()}
}

// Send logs the message instead of delivering it.
func (l *LogSender) Send(_ context.Context, chatAddress, text string) error {
	l.logger.WithFields(logrus.Fields{
		"chat":    chatAddress,
		"message": text,
	}).Info("Alert message (log channel)")
	return nil
}
