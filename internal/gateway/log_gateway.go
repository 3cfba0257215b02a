package gateway

import (
	"context"

	"go.uber.org/zap"
)

// Log is a dry-run gateway used when no bot token is configured.
type Log struct {
	logger *zap.Logger
}

// NewLog returns a gateway that only logs.
func NewLog(logger *zap.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Send(_ context.Context, recipient int64, content Content) error {
	l.logger.Info("send", zap.Int64("recipient_id", recipient), zap.String("text", content.Text),
		zap.Bool("media", content.MediaRef != ""), zap.Int("action_rows", len(content.Actions)))
	return nil
}

func (l *Log) Publish(_ context.Context, channel string, content Content) error {
	l.logger.Info("publish", zap.String("channel", channel), zap.String("text", content.Text))
	return nil
}

func (l *Log) AnswerCallback(_ context.Context, callbackID, text string) error {
	l.logger.Debug("answer callback", zap.String("callback_id", callbackID), zap.String("text", text))
	return nil
}
