// Package chat talks to the chat platform: messages, pins, presence and slash commands.
package chat

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound indicates the message or channel no longer exists.
var ErrNotFound = errors.New("chat: not found")

// IsNotFound checks if an error indicates a missing message or channel.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// Message is a chat message.
type Message struct {
	CreatedAt time.Time
	ID        string
	ChannelID string
	Content   string
	Pinned    bool
}

// Option is a slash command argument.
type Option struct {
	Name        string
	Description string
	Integer     bool // String otherwise
	Required    bool
}

// Command is a slash command and its handler. Handle returns the reply text.
type Command struct {
	Handle      func(ctx context.Context, channelID string, args map[string]string) string
	Name        string
	Description string
	Options     []Option
}
