package poll

import (
	"context"
	"fmt"
	"unicode/utf8"

	"farmsim-notifier/chat"
	"farmsim-notifier/pkg/farmsim"
	"farmsim-notifier/render"
)

// UpdatePresence sets the bot's presence to the current player count.
func (m *Monitor) UpdatePresence(ctx context.Context) error {
	m.presenceMu.Lock()
	defer m.presenceMu.Unlock()

	srv, err := m.fetcher.Server(ctx)
	if err != nil {
		return fmt.Errorf("fetch server status: %w", err)
	}

	text := fmt.Sprintf("%d/%d players online", srv.Online, srv.Capacity)
	if err := m.chat.SetPresence(ctx, text); err != nil {
		return fmt.Errorf("set presence: %w", err)
	}
	m.logger.Debug("Presence updated", "text", text)
	return nil
}

// UpdateSummary keeps the pinned server summary (and, in split mode, the mods message) current.
// It does nothing when no summary channel is configured.
func (m *Monitor) UpdateSummary(ctx context.Context) error {
	if m.cfg.Channels.Summary == "" {
		return nil
	}

	m.summaryMu.Lock()
	defer m.summaryMu.Unlock()

	srv, err := m.fetcher.Server(ctx)
	if err != nil {
		return fmt.Errorf("fetch server status: %w", err)
	}
	career, err := m.fetcher.Career(ctx)
	if err != nil {
		return fmt.Errorf("fetch career savegame: %w", err)
	}
	if m.cfg.RequireEconomy {
		if _, err := m.fetcher.Economy(ctx); err != nil {
			return fmt.Errorf("fetch economy: %w", err)
		}
	}

	if career == nil {
		m.logger.Info("No career savegame found, publishing no-farm notice", "server", srv.Name)
		return m.publish(ctx, m.cfg.Channels.Summary, farmsim.PurposeSummary, render.NoFarmNotice)
	}

	data := render.NewSummaryData(srv, career)
	data.Vehicles = render.Vehicles(srv.Vehicles, m.cfg.Replacements)
	groups := render.Categorize(srv.Mods, m.cfg.Categories)

	if m.cfg.Mode == ModeCombined {
		data.Mods = render.ModsBlock(groups)
		content, err := render.Summary(m.cfg.Summary, data)
		if err != nil {
			return err
		}
		return m.publish(ctx, m.cfg.Channels.Summary, farmsim.PurposeSummary, render.Truncate(content, m.cfg.MessageLimit))
	}

	content, err := render.Summary(m.cfg.Summary, data)
	if err != nil {
		return err
	}
	if err := m.publish(ctx, m.cfg.Channels.Summary, farmsim.PurposeSummary, render.Truncate(content, m.cfg.MessageLimit)); err != nil {
		return err
	}
	return m.publishMods(ctx, srv.Mods, groups)
}

// publishMods maintains the standalone mods message. A list over the message limit
// replaces the message with a short fallback instead of editing it.
func (m *Monitor) publishMods(ctx context.Context, mods []farmsim.Mod, groups []render.Group) error {
	channelID := m.cfg.Channels.Mods
	content := render.ModsHeader(len(mods)) + render.ModsBlock(groups)
	if utf8.RuneCountInString(content) <= m.cfg.MessageLimit {
		return m.publish(ctx, channelID, farmsim.PurposeMods, content)
	}

	fallback := render.ModsFallback(groups, m.cfg.MessageLimit)
	id, err := m.store.PinnedID(ctx, farmsim.PurposeMods)
	if err != nil {
		return fmt.Errorf("load mods message id: %w", err)
	}
	if id != "" {
		msg, err := m.chat.Message(ctx, channelID, id)
		switch {
		case err == nil && msg.Content == fallback:
			if msg.Pinned {
				return nil
			}
			if err := m.chat.Pin(ctx, channelID, id); err != nil {
				return fmt.Errorf("pin mods message: %w", err)
			}
			return nil
		case err != nil && !chat.IsNotFound(err):
			return fmt.Errorf("fetch mods message: %w", err)
		}

		m.logger.Info("Mod list exceeds message limit, replacing mods message",
			"message_id", id,
			"length", utf8.RuneCountInString(content),
			"limit", m.cfg.MessageLimit)
		if err == nil {
			if err := m.chat.Delete(ctx, channelID, id); err != nil && !chat.IsNotFound(err) {
				return fmt.Errorf("delete mods message: %w", err)
			}
		}
		if err := m.store.SavePinnedID(ctx, farmsim.PurposeMods, ""); err != nil {
			return fmt.Errorf("clear mods message id: %w", err)
		}
	}
	return m.publish(ctx, channelID, farmsim.PurposeMods, fallback)
}

// publish edits the stored message for purpose in place, or sends and pins a new one
// when none is stored or the stored one is gone.
func (m *Monitor) publish(ctx context.Context, channelID string, purpose farmsim.Purpose, content string) error {
	id, err := m.store.PinnedID(ctx, purpose)
	if err != nil {
		return fmt.Errorf("load %s message id: %w", purpose, err)
	}

	if id != "" {
		err := m.editPinned(ctx, channelID, id, content)
		if err == nil {
			m.logger.Debug("Pinned message updated", "purpose", string(purpose), "message_id", id)
			return nil
		}
		if !chat.IsNotFound(err) {
			return fmt.Errorf("update %s message: %w", purpose, err)
		}

		m.logger.Warn("Pinned message no longer exists, recreating",
			"purpose", string(purpose),
			"message_id", id)
		if err := m.store.SavePinnedID(ctx, purpose, ""); err != nil {
			return fmt.Errorf("clear %s message id: %w", purpose, err)
		}
	}

	msg, err := m.chat.Send(ctx, channelID, content)
	if err != nil {
		return fmt.Errorf("send %s message: %w", purpose, err)
	}
	// Persist before pinning so a failed pin is retried against this message next tick.
	if err := m.store.SavePinnedID(ctx, purpose, msg.ID); err != nil {
		return fmt.Errorf("save %s message id: %w", purpose, err)
	}
	if err := m.chat.Pin(ctx, channelID, msg.ID); err != nil {
		return fmt.Errorf("pin %s message: %w", purpose, err)
	}

	m.logger.Info("Pinned message created", "purpose", string(purpose), "channel_id", channelID, "message_id", msg.ID)
	return nil
}

func (m *Monitor) editPinned(ctx context.Context, channelID, id, content string) error {
	msg, err := m.chat.Message(ctx, channelID, id)
	if err != nil {
		return err
	}
	if msg.Content != content {
		if err := m.chat.Edit(ctx, channelID, id, content); err != nil {
			return err
		}
	}
	if !msg.Pinned {
		if err := m.chat.Pin(ctx, channelID, id); err != nil {
			return err
		}
	}
	return nil
}
