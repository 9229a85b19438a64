// Package main implements farmbot, a Discord bot that mirrors a Farming Simulator dedicated
// server into chat: presence, a pinned server summary, and player join/leave notices.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"farmsim-notifier/chat"
	"farmsim-notifier/config"
	"farmsim-notifier/feed"
	"farmsim-notifier/poll"
	"farmsim-notifier/render"
	"farmsim-notifier/server"

	"github.com/spf13/cobra"
)

const defaultConfigPath = "config.json"

type options struct {
	configPath string
	mockChat   bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:          "farmbot",
		Short:        "Farming Simulator dedicated server notifications for Discord",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", defaultConfigPath, "path to config.json")
	cmd.PersistentFlags().BoolVar(&opts.mockChat, "mock-chat", false, "log chat output instead of connecting to Discord")

	cmd.AddCommand(
		newRunCmd(opts),
		newLeaderboardCmd(opts),
		newPricesCmd(opts),
	)
	return cmd
}

func newRunCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the poll cycles until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBot(cmd.Context(), opts)
		},
	}
}

func newLeaderboardCmd(opts *options) *cobra.Command {
	var top int
	cmd := &cobra.Command{
		Use:   "leaderboard",
		Short: "Print the stored playtime leaderboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if top < 1 {
				return fmt.Errorf("--top must be positive, got %d", top)
			}
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, chat.NewMock(discardLogger()))
			if err != nil {
				return err
			}
			defer a.close()

			if err := a.monitor.Load(ctx); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), render.Leaderboard(a.monitor.Leaderboard(top)))
			return err
		},
	}
	cmd.Flags().IntVarP(&top, "top", "n", 10, "number of players to show")
	return cmd
}

func newPricesCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "prices [crop]",
		Short: "Fetch the economy feed once and print a crop's price history",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, opts, chat.NewMock(discardLogger()))
			if err != nil {
				return err
			}
			defer a.close()

			report, err := a.monitor.PriceReport(ctx, strings.Join(args, ""))
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), report)
			return err
		},
	}
}

func newLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
}

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// runBot wires every component and blocks until SIGINT or SIGTERM.
func runBot(ctx context.Context, opts *options) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(opts.configPath, !opts.mockChat)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	logger := newLogger(cfg.Debug)
	slog.SetDefault(logger)

	var client chatClient
	if opts.mockChat {
		logger.Info("Mock chat mode enabled, messages are logged only")
		client = chat.NewMock(logger)
	} else {
		d, err := chat.NewDiscord(cfg.Token, logger)
		if err != nil {
			return err
		}
		if err := d.Open(ctx); err != nil {
			return fmt.Errorf("open discord session: %w", err)
		}
		client = d
	}
	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("Failed to close chat session", "error", err)
		}
	}()

	a, err := buildApp(ctx, cfg, client, logger)
	if err != nil {
		return err
	}
	defer a.close()

	if err := a.monitor.Load(ctx); err != nil {
		return err
	}
	if err := client.RegisterCommands(cfg.GuildID, a.monitor.Commands()); err != nil {
		logger.Warn("Failed to register slash commands", "error", err)
	}

	waitHTTP := func() error { return nil }
	if cfg.HTTPPort != "" {
		waitHTTP = serveHTTP(ctx, server.New(a.monitor, logger), cfg.HTTPPort, stop)
	}

	logger.Info("Bot started",
		"storage", cfg.Storage.Backend,
		"mode", cfg.SummaryMode,
		"summary_channel", cfg.Channels.Summary,
		"players_channel", cfg.Channels.Players,
		"prices_channel", cfg.Channels.Prices)

	runErr := a.monitor.Run(ctx)
	// The store closes on return, so in-flight HTTP requests must drain first.
	stop()
	if err := errors.Join(runErr, waitHTTP()); err != nil {
		return err
	}
	logger.Info("Bot stopped")
	return nil
}

// serveHTTP runs srv until ctx is canceled. A server failure calls stop so the rest of
// the bot shuts down too. The returned wait blocks until the server has fully shut down.
func serveHTTP(ctx context.Context, srv *server.Server, port string, stop context.CancelFunc) (wait func() error) {
	done := make(chan error, 1)
	go func() {
		err := srv.ListenAndServe(ctx, port)
		if err != nil {
			stop()
		}
		done <- err
	}()
	return func() error { return <-done }
}

// chatClient is what the entry point needs beyond the poll cycles.
type chatClient interface {
	poll.Chat
	RegisterCommands(guildID string, cmds []chat.Command) error
	Close() error
}

type app struct {
	monitor *poll.Monitor
	store   interface{ Close() error }
	logger  *slog.Logger
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Warn("Failed to close storage", "error", err)
	}
}

// newApp builds an app for the one-shot commands.
func newApp(ctx context.Context, opts *options, client poll.Chat) (*app, error) {
	cfg, err := config.Load(opts.configPath, false)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return buildApp(ctx, cfg, client, discardLogger())
}

func buildApp(ctx context.Context, cfg *config.Config, client poll.Chat, logger *slog.Logger) (*app, error) {
	pcfg, err := pollConfig(cfg)
	if err != nil {
		return nil, err
	}

	store, err := openStore(ctx, cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("open storage: %w", err)
	}

	fetcher := feed.New(&http.Client{Timeout: cfg.HTTPTimeout}, feed.URLs{
		Server:  cfg.Feeds.Stats,
		Economy: cfg.Feeds.Economy,
		Career:  cfg.Feeds.Career,
	}, logger)

	monitor, err := poll.New(fetcher, client, store, pcfg, logger)
	if err != nil {
		if cerr := store.Close(); cerr != nil {
			logger.Warn("Failed to close storage", "error", cerr)
		}
		return nil, err
	}
	return &app{monitor: monitor, store: store, logger: logger}, nil
}

// pollConfig maps the loaded configuration onto the monitor settings.
func pollConfig(cfg *config.Config) (poll.Config, error) {
	tmpl, err := render.ParseSummary(cfg.SummaryTemplate)
	if err != nil {
		return poll.Config{}, fmt.Errorf("parse messages.server_update: %w", err)
	}
	mode, err := poll.ParseMode(cfg.SummaryMode)
	if err != nil {
		return poll.Config{}, err
	}
	return poll.Config{
		Summary:      tmpl,
		Replacements: cfg.Replacements,
		Channels: poll.Channels{
			Summary: cfg.Channels.Summary,
			Mods:    cfg.Channels.Mods,
			Players: cfg.Channels.Players,
			Prices:  cfg.Channels.Prices,
		},
		Mode:       mode,
		Categories: cfg.ModCategories,
		Crops:      cfg.CommonFillTypes,
		Intervals: poll.Intervals{
			Presence: cfg.Intervals.Status,
			Summary:  cfg.Intervals.Summary,
			Players:  cfg.Intervals.Players,
			Cleanup:  cfg.Intervals.Cleanup,
		},
		CleanupAge:     cfg.Intervals.Cleanup,
		MessageLimit:   cfg.MessageLimit,
		RequireEconomy: cfg.RequireEconomy,
		TrackPlaytime:  cfg.TrackPlaytime,
	}, nil
}
