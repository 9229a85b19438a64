package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `{
  "server": {
    "stats_url": "http://fs.example:8080/feed/dedicated-server-stats.xml?code=abc",
    "economy_url": "http://fs.example:8080/feed/dedicated-server-savegame.html?code=abc&file=economy",
    "career_savegame_url": "http://fs.example:8080/feed/dedicated-server-savegame.html?code=abc&file=careerSavegame",
    "auto_update_channel_id": "1234567890123456789"
  },
  "channels": {
    "prices_channel_id": 42,
    "player_status_channel_id": "99"
  },
  "intervals": {
    "status_update_seconds": 30,
    "event_monitor_seconds": 120
  },
  "cleanup_interval": 600,
  "messages": {"server_update": "{server_name}"},
  "replacements": {"combineDrivable": "Combine"},
  "common_fill_types": ["WHEAT", "BARLEY"],
  "mod_categories": [
    {"name": "misc"},
    {"name": "trucks", "keywords": ["truck", "lorry"]}
  ]
}`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "secret")
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path, true)
	require.NoError(t, err)

	assert.Equal(t, "secret", cfg.Token)
	assert.Contains(t, cfg.Feeds.Stats, "dedicated-server-stats.xml")
	assert.Contains(t, cfg.Feeds.Career, "careerSavegame")
	assert.Equal(t, Channels{Summary: "1234567890123456789", Players: "99", Prices: "42"}, cfg.Channels)
	assert.Equal(t, Intervals{
		Status:  30 * time.Second,
		Summary: 2 * time.Minute,
		Players: time.Minute,
		Cleanup: 10 * time.Minute,
	}, cfg.Intervals)
	assert.Equal(t, "{server_name}", cfg.SummaryTemplate)
	assert.Equal(t, "Combine", cfg.Replacements["combinedrivable"])
	assert.Equal(t, []string{"WHEAT", "BARLEY"}, cfg.CommonFillTypes)
	require.Len(t, cfg.ModCategories, 2)
	assert.Equal(t, "trucks", cfg.ModCategories[1].Name)
	assert.Equal(t, []string{"truck", "lorry"}, cfg.ModCategories[1].Keywords)
	assert.Equal(t, 2000, cfg.MessageLimit)
	assert.Equal(t, "combined", cfg.SummaryMode)
	assert.True(t, cfg.TrackPlaytime)
	assert.Equal(t, BackendLocal, cfg.Storage.Backend)
	assert.Equal(t, "./data", cfg.Storage.Dir)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "secret")
	t.Setenv("FSBOT_MESSAGE_LIMIT", "1500")
	t.Setenv("FSBOT_SUMMARY_MODE", "split")
	t.Setenv("FSBOT_STORAGE_BACKEND", "postgres")
	t.Setenv("DATABASE_URL", "postgres://bot@localhost/bot")
	t.Setenv("PORT", "8081")
	path := writeConfig(t, sampleConfig)

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, 1500, cfg.MessageLimit)
	assert.Equal(t, "split", cfg.SummaryMode)
	assert.Equal(t, BackendPostgres, cfg.Storage.Backend)
	assert.Equal(t, "postgres://bot@localhost/bot", cfg.Storage.DatabaseURL)
	assert.Equal(t, "8081", cfg.HTTPPort)
}

func TestLoadDotEnv(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv("DISCORD_BOT_TOKEN", "")
	require.NoError(t, os.Unsetenv("DISCORD_BOT_TOKEN"))
	require.NoError(t, os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte("DISCORD_BOT_TOKEN=from-dotenv\n"), 0o600))

	cfg, err := Load(path, true)
	require.NoError(t, err)
	assert.Equal(t, "from-dotenv", cfg.Token)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		token   string
		require bool
		want    string
	}{
		{
			name:    "missing token",
			body:    sampleConfig,
			require: true,
			want:    "DISCORD_BOT_TOKEN",
		},
		{
			name:  "lossy numeric id",
			body:  `{"server": {"stats_url": "http://x", "career_savegame_url": "http://y", "auto_update_channel_id": 1234567890123456789}}`,
			token: "t",
			want:  "quote it as a string",
		},
		{
			name:  "bad string id",
			body:  `{"server": {"stats_url": "http://x"}, "channels": {"prices_channel_id": "general"}}`,
			token: "t",
			want:  "not a valid id",
		},
		{
			name:  "missing stats url",
			body:  `{}`,
			token: "t",
			want:  "server.stats_url is required",
		},
		{
			name:  "summary without career feed",
			body:  `{"server": {"stats_url": "http://x", "auto_update_channel_id": "1"}}`,
			token: "t",
			want:  "career_savegame_url",
		},
		{
			name:  "unknown backend",
			body:  `{"server": {"stats_url": "http://x"}, "storage": {"backend": "s3"}}`,
			token: "t",
			want:  `unknown storage backend "s3"`,
		},
		{
			name:  "gcs without bucket",
			body:  `{"server": {"stats_url": "http://x"}, "storage": {"backend": "gcs"}}`,
			token: "t",
			want:  "storage.bucket",
		},
		{
			name:  "malformed json",
			body:  `{"server":`,
			token: "t",
			want:  "read config file",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DISCORD_BOT_TOKEN", tt.token)
			path := writeConfig(t, tt.body)
			_, err := Load(path, tt.require || tt.token == "")
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadWithoutTokenForMock(t *testing.T) {
	t.Setenv("DISCORD_BOT_TOKEN", "")
	path := writeConfig(t, `{"server": {"stats_url": "http://x"}}`)
	cfg, err := Load(path, false)
	require.NoError(t, err)
	assert.Empty(t, cfg.Token)
	assert.Empty(t, cfg.Channels.Summary)
}

func TestLoadMissingFile(t *testing.T) {
	t.Chdir(t.TempDir())
	_, err := Load(filepath.Join(t.TempDir(), "nope.json"), false)
	assert.Error(t, err)
}
