package chat

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
)

// Mock is an in-memory chat client for local development and tests.
type Mock struct {
	logger   *slog.Logger
	node     *snowflake.Node
	channels map[string][]*Message
	presence string
	fail     error
	mu       sync.Mutex
}

// NewMock creates an in-memory chat client.
func NewMock(logger *slog.Logger) *Mock {
	node, err := snowflake.NewNode(1)
	if err != nil {
		// Node 1 is always within range.
		panic(err)
	}
	return &Mock{
		logger:   logger,
		node:     node,
		channels: make(map[string][]*Message),
	}
}

// FailWith makes every following call return err until it is called with nil.
func (m *Mock) FailWith(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fail = err
}

// Send posts a new message.
func (m *Mock) Send(_ context.Context, channelID, content string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}

	msg := &Message{
		ID:        m.node.Generate().String(),
		ChannelID: channelID,
		Content:   content,
		CreatedAt: time.Now(),
	}
	m.channels[channelID] = append(m.channels[channelID], msg)
	m.logger.Info("MOCK CHAT SEND", "channel_id", channelID, "message_id", msg.ID, "content_length", len(content))
	return copyMessage(msg), nil
}

// Edit replaces the content of an existing message.
func (m *Mock) Edit(_ context.Context, channelID, messageID, content string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}

	msg := m.find(channelID, messageID)
	if msg == nil {
		return fmt.Errorf("edit message %s: %w", messageID, ErrNotFound)
	}
	msg.Content = content
	m.logger.Info("MOCK CHAT EDIT", "channel_id", channelID, "message_id", messageID, "content_length", len(content))
	return nil
}

// Delete removes a message.
func (m *Mock) Delete(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	if !m.remove(channelID, messageID) {
		return fmt.Errorf("delete message %s: %w", messageID, ErrNotFound)
	}
	m.logger.Info("MOCK CHAT DELETE", "channel_id", channelID, "message_id", messageID)
	return nil
}

// Pin pins a message.
func (m *Mock) Pin(_ context.Context, channelID, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}

	msg := m.find(channelID, messageID)
	if msg == nil {
		return fmt.Errorf("pin message %s: %w", messageID, ErrNotFound)
	}
	msg.Pinned = true
	return nil
}

// Message fetches a message by id.
func (m *Mock) Message(_ context.Context, channelID, messageID string) (*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}

	msg := m.find(channelID, messageID)
	if msg == nil {
		return nil, fmt.Errorf("fetch message %s: %w", messageID, ErrNotFound)
	}
	return copyMessage(msg), nil
}

// Pinned lists the pinned messages of a channel, newest first.
func (m *Mock) Pinned(_ context.Context, channelID string) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}

	var out []*Message
	msgs := m.channels[channelID]
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Pinned {
			out = append(out, copyMessage(msgs[i]))
		}
	}
	return out, nil
}

// Recent lists up to limit of the newest messages, newest first.
func (m *Mock) Recent(_ context.Context, channelID string, limit int) ([]*Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return nil, m.fail
	}

	var out []*Message
	msgs := m.channels[channelID]
	for i := len(msgs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyMessage(msgs[i]))
	}
	return out, nil
}

// SetPresence records the presence text.
func (m *Mock) SetPresence(_ context.Context, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail != nil {
		return m.fail
	}
	m.presence = text
	m.logger.Info("MOCK CHAT PRESENCE", "text", text)
	return nil
}

// Presence returns the last presence text.
func (m *Mock) Presence() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.presence
}

// Messages returns a snapshot of a channel's messages, oldest first.
func (m *Mock) Messages(channelID string) []Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Message, 0, len(m.channels[channelID]))
	for _, msg := range m.channels[channelID] {
		out = append(out, *msg)
	}
	return out
}

// Seed inserts a message as if it had been posted at createdAt.
func (m *Mock) Seed(channelID, content string, createdAt time.Time, pinned bool) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := &Message{
		ID:        IDAt(createdAt),
		ChannelID: channelID,
		Content:   content,
		Pinned:    pinned,
		CreatedAt: createdAt,
	}
	m.channels[channelID] = append(m.channels[channelID], msg)
	return msg.ID
}

// Remove deletes a message out of band, as a moderator would.
func (m *Mock) Remove(channelID, messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.remove(channelID, messageID)
}

// Unpin unpins a message out of band.
func (m *Mock) Unpin(channelID, messageID string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	msg := m.find(channelID, messageID)
	if msg == nil {
		return false
	}
	msg.Pinned = false
	return true
}

// RegisterCommands logs the commands; the mock has no interaction gateway.
func (m *Mock) RegisterCommands(guildID string, cmds []Command) error {
	for _, cmd := range cmds {
		m.logger.Info("MOCK CHAT COMMAND", "command", cmd.Name, "guild_id", guildID)
	}
	return nil
}

// Close is a no-op.
func (m *Mock) Close() error { return nil }

func (m *Mock) find(channelID, messageID string) *Message {
	for _, msg := range m.channels[channelID] {
		if msg.ID == messageID {
			return msg
		}
	}
	return nil
}

func (m *Mock) remove(channelID, messageID string) bool {
	msgs := m.channels[channelID]
	for i, msg := range msgs {
		if msg.ID == messageID {
			m.channels[channelID] = append(msgs[:i], msgs[i+1:]...)
			return true
		}
	}
	return false
}

func copyMessage(msg *Message) *Message {
	c := *msg
	return &c
}
