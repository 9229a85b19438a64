package poll

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"farmsim-notifier/chat"
	"farmsim-notifier/pkg/farmsim"
	"farmsim-notifier/render"
)

// Discord returns at most this many messages per history request.
const historyLimit = 100

const cropListPrefix = "📋 **Available Crops"

// EnsureCropList keeps one pinned message in the prices channel listing the known crops.
// An already pinned crop list is adopted when no id is stored.
func (m *Monitor) EnsureCropList(ctx context.Context) error {
	channelID := m.cfg.Channels.Prices
	id, err := m.store.PinnedID(ctx, farmsim.PurposeCrops)
	if err != nil {
		return fmt.Errorf("load crops message id: %w", err)
	}

	if id == "" {
		pinned, err := m.chat.Pinned(ctx, channelID)
		if err != nil {
			return fmt.Errorf("list pinned messages: %w", err)
		}
		for _, msg := range pinned {
			if strings.HasPrefix(msg.Content, cropListPrefix) {
				m.logger.Info("Adopting existing crop list message", "message_id", msg.ID)
				if err := m.store.SavePinnedID(ctx, farmsim.PurposeCrops, msg.ID); err != nil {
					return fmt.Errorf("save crops message id: %w", err)
				}
				break
			}
		}
	}

	return m.publish(ctx, channelID, farmsim.PurposeCrops, render.CropList(m.cfg.Crops))
}

// CleanupPrices deletes unpinned messages in the prices channel older than the cleanup age.
func (m *Monitor) CleanupPrices(ctx context.Context) error {
	m.cleanupMu.Lock()
	defer m.cleanupMu.Unlock()

	channelID := m.cfg.Channels.Prices
	msgs, err := m.chat.Recent(ctx, channelID, historyLimit)
	if err != nil {
		return fmt.Errorf("list recent messages: %w", err)
	}

	threshold := m.now().Add(-m.cfg.CleanupAge)
	var deleted int
	var errs []error
	for _, msg := range msgs {
		if msg.Pinned {
			continue
		}
		created, err := chat.CreatedAt(msg.ID)
		if err != nil {
			created = msg.CreatedAt
		}
		if !created.Before(threshold) {
			continue
		}
		if err := m.chat.Delete(ctx, channelID, msg.ID); err != nil && !chat.IsNotFound(err) {
			errs = append(errs, fmt.Errorf("delete message %s: %w", msg.ID, err))
			continue
		}
		deleted++
	}

	if deleted > 0 {
		m.logger.Info("Prices channel cleaned up", "deleted", deleted, "scanned", len(msgs))
	}
	return errors.Join(errs...)
}

// PriceReport renders the price history of a commodity from a fresh economy fetch.
func (m *Monitor) PriceReport(ctx context.Context, commodity string) (string, error) {
	commodity = strings.ToUpper(strings.TrimSpace(commodity))
	if commodity == "" {
		return "Available fill types: " + strings.Join(m.cfg.Crops, ", "), nil
	}

	economy, err := m.fetcher.Economy(ctx)
	if err != nil {
		return "Error fetching economy data. Please try again later.", fmt.Errorf("fetch economy: %w", err)
	}
	points, ok := economy.History(commodity)
	if !ok {
		return render.NoPriceData(commodity), nil
	}
	return render.PriceHistory(commodity, points), nil
}

// Commands returns the slash commands served by the monitor.
func (m *Monitor) Commands() []chat.Command {
	return []chat.Command{
		{
			Name:        "prices",
			Description: "Show the price history of a crop",
			Options: []chat.Option{
				{Name: "crop", Description: "Crop name, e.g. WHEAT"},
			},
			Handle: m.handlePrices,
		},
		{
			Name:        "playtime",
			Description: "Show the playtime leaderboard",
			Options: []chat.Option{
				{Name: "top", Description: "Number of players to show", Integer: true},
			},
			Handle: m.handlePlaytime,
		},
	}
}

func (m *Monitor) handlePrices(ctx context.Context, channelID string, args map[string]string) string {
	if m.cfg.Channels.Prices != "" && channelID != m.cfg.Channels.Prices {
		return fmt.Sprintf("Please use this command in <#%s>.", m.cfg.Channels.Prices)
	}
	reply, err := m.PriceReport(ctx, args["crop"])
	if err != nil {
		m.logger.Warn("Price report failed", "crop", args["crop"], "error", err)
	}
	return reply
}

func (m *Monitor) handlePlaytime(_ context.Context, _ string, args map[string]string) string {
	n := defaultTop
	if v, err := strconv.Atoi(args["top"]); err == nil && v > 0 {
		n = v
	}
	return render.Leaderboard(m.Leaderboard(n))
}
