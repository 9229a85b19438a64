// Package config loads the bot configuration from config.json, .env and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"strconv"
	"strings"
	"time"

	"farmsim-notifier/render"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. FSBOT_SERVER_STATS_URL.
const EnvPrefix = "FSBOT"

// Storage backends.
const (
	BackendLocal    = "local"
	BackendGCS      = "gcs"
	BackendPostgres = "postgres"
)

// Feeds holds the server feed URLs.
type Feeds struct {
	Stats   string
	Economy string
	Career  string
}

// Channels holds chat channel ids.
type Channels struct {
	Summary string
	Mods    string
	Players string
	Prices  string
}

// Intervals holds poll periods. Zero disables a cycle.
type Intervals struct {
	Status  time.Duration
	Summary time.Duration
	Players time.Duration
	Cleanup time.Duration
}

// Storage selects and configures the state backend.
type Storage struct {
	Backend         string
	Dir             string
	Bucket          string
	Prefix          string
	DatabaseURL     string
	CredentialsJSON string
}

// Config is the complete bot configuration.
type Config struct {
	Replacements    map[string]string
	Storage         Storage
	Feeds           Feeds
	Channels        Channels
	Token           string
	GuildID         string
	SummaryTemplate string
	SummaryMode     string
	HTTPPort        string
	CommonFillTypes []string
	ModCategories   []render.Category
	Intervals       Intervals
	HTTPTimeout     time.Duration
	MessageLimit    int
	RequireEconomy  bool
	TrackPlaytime   bool
	Debug           bool
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("intervals.status_update_seconds", 60)
	v.SetDefault("intervals.event_monitor_seconds", 300)
	v.SetDefault("intervals.player_status_seconds", 60)
	v.SetDefault("cleanup_interval", 3600)
	v.SetDefault("message_limit", 2000)
	v.SetDefault("summary.mode", "combined")
	v.SetDefault("summary.require_economy", false)
	v.SetDefault("playtime.enabled", true)
	v.SetDefault("http.timeout_seconds", 10)
	v.SetDefault("storage.backend", BackendLocal)
	v.SetDefault("storage.dir", "./data")
	v.SetDefault("common_fill_types", []string{
		"WHEAT", "BARLEY", "OAT", "CANOLA", "SORGHUM", "SOYBEAN", "SUNFLOWER", "MAIZE",
		"POTATO", "SUGARBEET", "COTTON", "SUGARCANE", "GRAPE", "OLIVE", "MILK", "WOOL",
	})
}

// Load reads .env (when present) and the config file at path. A Discord token is
// required unless requireToken is false.
func Load(path string, requireToken bool) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, envs := range map[string][]string{
		"discord.token":        {"DISCORD_BOT_TOKEN"},
		"discord.guild_id":     {EnvPrefix + "_DISCORD_GUILD_ID", "DISCORD_GUILD_ID"},
		"storage.database_url": {EnvPrefix + "_STORAGE_DATABASE_URL", "DATABASE_URL"},
		"storage.bucket":       {EnvPrefix + "_STORAGE_BUCKET", "STORAGE_BUCKET"},
		"storage.credentials":  {"GOOGLE_CREDENTIALS_JSON"},
		"http.port":            {EnvPrefix + "_HTTP_PORT", "PORT"},
	} {
		if err := v.BindEnv(append([]string{key}, envs...)...); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", key, err)
		}
	}

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file %s: %w", path, err)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	if requireToken && cfg.Token == "" {
		return nil, errors.New("DISCORD_BOT_TOKEN is not set")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		Token:   v.GetString("discord.token"),
		Debug:   v.GetBool("debug"),
		Feeds: Feeds{
			Stats:   v.GetString("server.stats_url"),
			Economy: v.GetString("server.economy_url"),
			Career:  v.GetString("server.career_savegame_url"),
		},
		Intervals: Intervals{
			Status:  seconds(v.GetInt("intervals.status_update_seconds")),
			Summary: seconds(v.GetInt("intervals.event_monitor_seconds")),
			Players: seconds(v.GetInt("intervals.player_status_seconds")),
			Cleanup: seconds(v.GetInt("cleanup_interval")),
		},
		SummaryTemplate: v.GetString("messages.server_update"),
		SummaryMode:     v.GetString("summary.mode"),
		RequireEconomy:  v.GetBool("summary.require_economy"),
		TrackPlaytime:   v.GetBool("playtime.enabled"),
		MessageLimit:    v.GetInt("message_limit"),
		CommonFillTypes: v.GetStringSlice("common_fill_types"),
		Replacements:    v.GetStringMapString("replacements"),
		HTTPPort:        v.GetString("http.port"),
		HTTPTimeout:     seconds(v.GetInt("http.timeout_seconds")),
		Storage: Storage{
			Backend:         strings.ToLower(v.GetString("storage.backend")),
			Dir:             v.GetString("storage.dir"),
			Bucket:          v.GetString("storage.bucket"),
			Prefix:          v.GetString("storage.prefix"),
			DatabaseURL:     v.GetString("storage.database_url"),
			CredentialsJSON: v.GetString("storage.credentials"),
		},
	}

	var err error
	ids := []struct {
		dst  *string
		keys []string
	}{
		{&cfg.GuildID, []string{"discord.guild_id"}},
		{&cfg.Channels.Summary, []string{"channels.summary_channel_id", "server.auto_update_channel_id"}},
		{&cfg.Channels.Mods, []string{"channels.mods_channel_id"}},
		{&cfg.Channels.Players, []string{"channels.player_status_channel_id", "channels.player_notifications_channel_id"}},
		{&cfg.Channels.Prices, []string{"channels.prices_channel_id"}},
	}
	for _, id := range ids {
		if *id.dst, err = snowflakeID(v, id.keys...); err != nil {
			return nil, err
		}
	}

	if err := v.UnmarshalKey("mod_categories", &cfg.ModCategories); err != nil {
		return nil, fmt.Errorf("decode mod_categories: %w", err)
	}
	return cfg, nil
}

// snowflakeID reads the first set key as a Discord id. JSON numbers above 2^53 have
// already lost precision when decoded, so they are rejected.
func snowflakeID(v *viper.Viper, keys ...string) (string, error) {
	for _, key := range keys {
		switch raw := v.Get(key).(type) {
		case nil:
			continue
		case string:
			if raw == "" {
				continue
			}
			if _, err := strconv.ParseUint(raw, 10, 64); err != nil {
				return "", fmt.Errorf("%s: %q is not a valid id", key, raw)
			}
			return raw, nil
		case float64:
			if raw < 0 || raw != math.Trunc(raw) {
				return "", fmt.Errorf("%s: %v is not a valid id", key, raw)
			}
			if raw > 1<<53 {
				return "", fmt.Errorf("%s: id too large for a JSON number, quote it as a string", key)
			}
			return strconv.FormatUint(uint64(raw), 10), nil
		case int:
			return strconv.Itoa(raw), nil
		case int64:
			return strconv.FormatInt(raw, 10), nil
		default:
			return "", fmt.Errorf("%s: unsupported id type %T", key, raw)
		}
	}
	return "", nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error
	if c.Feeds.Stats == "" {
		errs = append(errs, errors.New("server.stats_url is required"))
	}
	if c.Channels.Summary != "" && c.Feeds.Career == "" {
		errs = append(errs, errors.New("server.career_savegame_url is required for the summary channel"))
	}
	if c.MessageLimit < 100 {
		errs = append(errs, fmt.Errorf("message_limit %d is too small", c.MessageLimit))
	}
	for name, d := range map[string]time.Duration{
		"intervals.status_update_seconds": c.Intervals.Status,
		"intervals.event_monitor_seconds": c.Intervals.Summary,
		"intervals.player_status_seconds": c.Intervals.Players,
		"cleanup_interval":                c.Intervals.Cleanup,
	} {
		if d < 0 {
			errs = append(errs, fmt.Errorf("%s must not be negative", name))
		}
	}
	for i, cat := range c.ModCategories {
		if cat.Name == "" {
			errs = append(errs, fmt.Errorf("mod_categories[%d] has no name", i))
		}
	}

	switch c.Storage.Backend {
	case BackendLocal:
		if c.Storage.Dir == "" {
			errs = append(errs, errors.New("storage.dir is required for the local backend"))
		}
	case BackendGCS:
		if c.Storage.Bucket == "" {
			errs = append(errs, errors.New("storage.bucket is required for the gcs backend"))
		}
	case BackendPostgres:
		if c.Storage.DatabaseURL == "" {
			errs = append(errs, errors.New("storage.database_url is required for the postgres backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q", c.Storage.Backend))
	}
	return errors.Join(errs...)
}
