// Package notify delivers alert messages to chat addresses. Delivery is
// fire-and-forget: a failure is reported to the caller for logging only and
// is never retried here.
package notify

import "context"

// Sender delivers one text message to a chat address.
type Sender interface {
	Send(ctx context.Context, chatAddress, text string) error
}

// Config holds messaging transport configuration
type Config struct {
	BotToken string `mapstructure:"bot_token"`
	Timeout  int    `mapstructure:"timeout_seconds"`
}
