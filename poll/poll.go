// Package poll runs the periodic cycles that keep the chat channels in sync with the server.
package poll

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"text/template"
	"time"

	"farmsim-notifier/chat"
	"farmsim-notifier/pkg/farmsim"
	"farmsim-notifier/render"
)

const flushTimeout = 10 * time.Second

// Fetcher interface for the server feeds.
type Fetcher interface {
	Server(ctx context.Context) (*farmsim.Server, error)
	Economy(ctx context.Context) (*farmsim.Economy, error)
	Career(ctx context.Context) (*farmsim.Career, error)
}

// Chat interface for the chat platform.
type Chat interface {
	Send(ctx context.Context, channelID, content string) (*chat.Message, error)
	Edit(ctx context.Context, channelID, messageID, content string) error
	Delete(ctx context.Context, channelID, messageID string) error
	Pin(ctx context.Context, channelID, messageID string) error
	Message(ctx context.Context, channelID, messageID string) (*chat.Message, error)
	Pinned(ctx context.Context, channelID string) ([]*chat.Message, error)
	Recent(ctx context.Context, channelID string, limit int) ([]*chat.Message, error)
	SetPresence(ctx context.Context, text string) error
}

// Store interface for pinned message ids and playtime persistence.
type Store interface {
	PinnedID(ctx context.Context, purpose farmsim.Purpose) (string, error)
	SavePinnedID(ctx context.Context, purpose farmsim.Purpose, id string) error
	LoadPlaytime(ctx context.Context) ([]farmsim.PlaytimeRecord, error)
	SavePlaytime(ctx context.Context, records []farmsim.PlaytimeRecord) error
}

// Mode selects how the server summary is published.
type Mode string

// Publish modes.
const (
	ModeCombined Mode = "combined" // One message with summary and mods
	ModeSplit    Mode = "split"    // Separate summary and mods messages
)

// ParseMode validates a publish mode name. Empty means combined.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case "", ModeCombined:
		return ModeCombined, nil
	case ModeSplit:
		return ModeSplit, nil
	default:
		return "", fmt.Errorf("unknown summary mode %q (want %q or %q)", s, ModeCombined, ModeSplit)
	}
}

// Channels holds the target channel ids. Empty disables the feature that uses it.
type Channels struct {
	Summary string
	Mods    string // Defaults to Summary
	Players string
	Prices  string
}

// Intervals holds the cycle periods. Zero disables a cycle.
type Intervals struct {
	Presence time.Duration
	Summary  time.Duration
	Players  time.Duration
	Cleanup  time.Duration
}

// Config controls what the monitor publishes and where.
type Config struct {
	Summary        *template.Template
	Replacements   map[string]string
	Channels       Channels
	Mode           Mode
	Categories     []render.Category
	Crops          []string
	Intervals      Intervals
	CleanupAge     time.Duration
	MessageLimit   int
	RequireEconomy bool
	TrackPlaytime  bool
}

// Monitor runs the poll cycles.
type Monitor struct {
	fetcher  Fetcher
	chat     Chat
	store    Store
	logger   *slog.Logger
	activity *Activity
	now      func() time.Time
	cfg      Config

	// One lock per cycle so a tick never overlaps another run of the same cycle.
	presenceMu sync.Mutex
	summaryMu  sync.Mutex
	playersMu  sync.Mutex
	cleanupMu  sync.Mutex
}

// New creates a new poll monitor.
func New(fetcher Fetcher, chatClient Chat, store Store, cfg Config, logger *slog.Logger) (*Monitor, error) {
	if cfg.Summary == nil {
		tmpl, err := render.ParseSummary("")
		if err != nil {
			return nil, err
		}
		cfg.Summary = tmpl
	}
	if cfg.Mode == "" {
		cfg.Mode = ModeCombined
	}
	if cfg.Channels.Mods == "" {
		cfg.Channels.Mods = cfg.Channels.Summary
	}
	if cfg.MessageLimit <= 0 {
		cfg.MessageLimit = 2000
	}
	if len(cfg.Categories) == 0 {
		cfg.Categories = render.DefaultCategories
	}
	if cfg.CleanupAge <= 0 {
		cfg.CleanupAge = cfg.Intervals.Cleanup
	}

	return &Monitor{
		fetcher:  fetcher,
		chat:     chatClient,
		store:    store,
		logger:   logger,
		activity: NewActivity(nil),
		now:      time.Now,
		cfg:      cfg,
	}, nil
}

// Load restores cumulative playtime from the store.
func (m *Monitor) Load(ctx context.Context) error {
	records, err := m.store.LoadPlaytime(ctx)
	if err != nil {
		return fmt.Errorf("load playtime: %w", err)
	}
	// Reset in place: slash commands may already be reading the tracker.
	m.activity.Reset(records)
	m.logger.Info("Player activity restored", "players", len(records))
	return nil
}

// Flush writes cumulative playtime to the store.
func (m *Monitor) Flush(ctx context.Context) error {
	if !m.cfg.TrackPlaytime {
		return nil
	}
	if err := m.store.SavePlaytime(ctx, m.activity.Records()); err != nil {
		return fmt.Errorf("flush playtime: %w", err)
	}
	return nil
}

// Run starts every enabled cycle and blocks until ctx is canceled. Each cycle ticks once
// immediately. Playtime is flushed before Run returns.
func (m *Monitor) Run(ctx context.Context) error {
	if m.cfg.Channels.Prices != "" && len(m.cfg.Crops) > 0 {
		if err := m.EnsureCropList(ctx); err != nil {
			m.logger.Warn("Failed to publish crop list", "error", err)
		}
	}

	var wg sync.WaitGroup
	m.every(ctx, &wg, "presence", m.cfg.Intervals.Presence, m.UpdatePresence)
	if m.cfg.Channels.Summary != "" {
		m.every(ctx, &wg, "summary", m.cfg.Intervals.Summary, m.UpdateSummary)
	}
	if m.cfg.TrackPlaytime || m.cfg.Channels.Players != "" {
		m.every(ctx, &wg, "players", m.cfg.Intervals.Players, m.TrackPlayers)
	}
	if m.cfg.Channels.Prices != "" {
		m.every(ctx, &wg, "cleanup", m.cfg.Intervals.Cleanup, m.CleanupPrices)
	}

	m.logger.Info("Poll cycles started",
		"presence_interval", m.cfg.Intervals.Presence.String(),
		"summary_interval", m.cfg.Intervals.Summary.String(),
		"players_interval", m.cfg.Intervals.Players.String(),
		"cleanup_interval", m.cfg.Intervals.Cleanup.String(),
		"mode", string(m.cfg.Mode))

	wg.Wait()

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), flushTimeout)
	defer cancel()
	if err := m.Flush(flushCtx); err != nil {
		return err
	}
	m.logger.Info("Poll cycles stopped, playtime flushed")
	return nil
}

// every runs tick now and then on each interval. A slow tick delays the next one.
func (m *Monitor) every(ctx context.Context, wg *sync.WaitGroup, name string, interval time.Duration, tick func(context.Context) error) {
	if interval <= 0 {
		m.logger.Info("Poll cycle disabled", "cycle", name)
		return
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			m.runTick(ctx, name, tick)
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (m *Monitor) runTick(ctx context.Context, name string, tick func(context.Context) error) {
	start := time.Now()
	err := tick(ctx)
	duration := time.Since(start)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		m.logger.Warn("Poll cycle failed, skipping tick",
			"cycle", name,
			"error", err,
			"duration_ms", duration.Milliseconds())
		return
	}
	m.logger.Debug("Poll cycle completed", "cycle", name, "duration_ms", duration.Milliseconds())
}

// Leaderboard returns the top n players by cumulative playtime.
func (m *Monitor) Leaderboard(n int) []farmsim.PlaytimeRecord {
	return m.activity.Top(n)
}
