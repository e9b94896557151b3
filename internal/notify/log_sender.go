package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogSender writes notifications to the log. It stands in for the mail
// gateway in development and tests.
type LogSender struct {
	log *logrus.Logger
}

func NewLogSender(log *logrus.Logger) *LogSender {
	return &LogSender{log: log}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.log.WithFields(logrus.Fields{
		"recipient": msg.Recipient,
		"subject":   msg.Subject,
	}).Info("notification sent")
	return nil
}
