package render

import (
	"strings"
	"testing"
	"unicode/utf8"

	"farmsim-notifier/pkg/farmsim"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlaytime(t *testing.T) {
	tests := []struct {
		seconds float64
		want    string
	}{
		{0, "0m"},
		{59.9, "0m"},
		{125, "2m"},
		{3599, "59m"},
		{3600, "1h 0m"},
		{3725, "1h 2m"},
		{90061, "25h 1m"},
		{-5, "0m"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Playtime(tt.seconds))
		})
	}
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "$0", Money(0))
	assert.Equal(t, "$999", Money(999))
	assert.Equal(t, "$1,234,567", Money(1234567))
	assert.Equal(t, "-$50,000", Money(-50000))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))

	long := strings.Repeat("é", 100)
	got := Truncate(long, 50)
	assert.Equal(t, 50, utf8.RuneCountInString(got))
	assert.True(t, strings.HasSuffix(got, TruncateMarker))

	assert.Equal(t, "abc", Truncate("abcdef", 3), "limit smaller than the marker")
}

func TestSplit(t *testing.T) {
	tests := []struct {
		name  string
		in    string
		limit int
		want  []string
	}{
		{name: "fits", in: "a\nb", limit: 10, want: []string{"a\nb"}},
		{name: "line boundaries", in: "aaaa\nbbbb\ncccc", limit: 9, want: []string{"aaaa\nbbbb", "cccc"}},
		{name: "hard cut", in: "abcdefghij", limit: 4, want: []string{"abcd", "efgh", "ij"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Split(tt.in, tt.limit)
			assert.Equal(t, tt.want, got)
			for _, chunk := range got {
				assert.LessOrEqual(t, utf8.RuneCountInString(chunk), tt.limit)
			}
		})
	}
}

func TestCategorize(t *testing.T) {
	mods := []farmsim.Mod{
		{Name: "Real Mower Plus", Version: "1.0.0.0", Author: "Kevin"},
		{Name: "XYZ Unknown Mod", Version: "2.1", Author: "Nobody"},
		{Name: "Big Grain Silo", Version: "1.2", Author: "Builder"},
		{Name: "HOLMER Tractor Pack", Version: "1.0", Author: "Modder"},
		{Name: "disc mower 3000", Version: "1.0", Author: "Modder"},
	}

	groups := Categorize(mods, DefaultCategories)
	byName := make(map[string][]string)
	var order []string
	for _, g := range groups {
		order = append(order, g.Category)
		for _, m := range g.Mods {
			byName[g.Category] = append(byName[g.Category], m.Name)
		}
	}

	assert.Equal(t, []string{"gameplay_mods", "vehicles", "implements", "placeables"}, order)
	assert.Equal(t, []string{"Real Mower Plus", "XYZ Unknown Mod"}, byName["gameplay_mods"])
	assert.Equal(t, []string{"HOLMER Tractor Pack"}, byName["vehicles"])
	assert.Equal(t, []string{"disc mower 3000"}, byName["implements"], "keywords match case-insensitively")
	assert.Equal(t, []string{"Big Grain Silo"}, byName["placeables"])
}

func TestCategorizeCustomTable(t *testing.T) {
	categories := []Category{
		{Name: "misc"},
		{Name: "trucks", Keywords: []string{"truck"}},
	}
	groups := Categorize([]farmsim.Mod{{Name: "Truck"}, {Name: "Other"}}, categories)
	require.Len(t, groups, 2)
	assert.Equal(t, "misc", groups[0].Category)
	assert.Equal(t, "Other", groups[0].Mods[0].Name)
	assert.Equal(t, "trucks", groups[1].Category)
}

func TestModsBlock(t *testing.T) {
	groups := []Group{
		{Category: "gameplay_mods", Mods: []farmsim.Mod{{Name: "Real Mower", Version: "1.0", Author: "Kevin"}}},
		{Category: "maps", Mods: []farmsim.Mod{{Name: "Big Valley", Version: "2.0", Author: "Ann"}}},
	}
	want := "**Gameplay Mods** (1)\n- Real Mower (v1.0) by Kevin\n\n**Maps** (1)\n- Big Valley (v2.0) by Ann"
	assert.Equal(t, want, ModsBlock(groups))
}

func TestModsFallback(t *testing.T) {
	groups := []Group{{Category: "gameplay_mods", Mods: make([]farmsim.Mod, 300)}}
	got := ModsFallback(groups, 2000)
	assert.Contains(t, got, "Installed Mods (300)")
	assert.Contains(t, got, "Gameplay Mods: 300")
	assert.LessOrEqual(t, utf8.RuneCountInString(ModsFallback(groups, 40)), 40)
}

func TestSummaryDefaultTemplate(t *testing.T) {
	tmpl, err := ParseSummary("")
	require.NoError(t, err)

	srv := &farmsim.Server{Name: "Farm Friends", MapName: "Riverbend Springs", DayTime: 45060000, Online: 2, Capacity: 16}
	career := &farmsim.Career{
		CreationDate:       "2025-01-02",
		SaveDate:           "2025-03-04",
		EconomicDifficulty: "NORMAL",
		TimeScale:          "5",
		Money:              1234567,
	}

	data := NewSummaryData(srv, career)
	data.Mods = "MODS"
	got, err := Summary(tmpl, data)
	require.NoError(t, err)

	assert.Contains(t, got, "**🚜 Farm Friends**")
	assert.Contains(t, got, "2/16")
	assert.Contains(t, got, "12:31")
	assert.Contains(t, got, "$1,234,567")
	assert.Contains(t, got, "5x")
	assert.True(t, strings.HasSuffix(got, "\n\nMODS"))

	data.Mods = ""
	got, err = Summary(tmpl, data)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(got, "$1,234,567"), "no mods section when empty: %q", got)
}

func TestSummaryLegacyPlaceholders(t *testing.T) {
	tmpl, err := ParseSummary("{server_name} on {map_name}: {players_online}/{player_capacity} at {hours}:{minutes}, {current_money}")
	require.NoError(t, err)

	srv := &farmsim.Server{Name: "Farm", MapName: "Elmcreek", DayTime: 3_660_000, Online: 1, Capacity: 4}
	got, err := Summary(tmpl, NewSummaryData(srv, &farmsim.Career{Money: 1000}))
	require.NoError(t, err)
	assert.Equal(t, "Farm on Elmcreek: 1/4 at 1:1, $1,000", got)
}

func TestParseSummaryInvalid(t *testing.T) {
	_, err := ParseSummary("{{.ServerName")
	assert.Error(t, err)
}

func TestJoinedLeft(t *testing.T) {
	assert.Equal(t, "🎮 **Player Joined:** Bob", Joined("Bob", "", false, 0))
	assert.Equal(t, "🎮 **Player Joined:** Bob (Admin) on Farm (total playtime: 1h 2m)", Joined("Bob", "Farm", true, 3725))
	assert.Equal(t, "🚪 **Player Left:** Alice from Farm (session: 2m)", Left("Alice", "Farm", false, 125))
	assert.Equal(t, "🚪 **Player Left:** Alice (session: 0m)", Left("Alice", "", false, 0))
}

func TestLeaderboard(t *testing.T) {
	assert.Equal(t, "🏆 No playtime recorded yet.", Leaderboard(nil))

	got := Leaderboard([]farmsim.PlaytimeRecord{{Name: "Anna", Seconds: 3725}, {Name: "Bob", Seconds: 125}})
	assert.Equal(t, "🏆 **Playtime Leaderboard**\n\n1. **Anna**: 1h 2m\n2. **Bob**: 2m", got)
}

func TestPriceHistory(t *testing.T) {
	points := []farmsim.PricePoint{
		{Period: "EARLY_SPRING", Price: 500},
		{Period: "MID_SPRING", Price: 650},
		{Period: "LATE_SPRING", Price: 420},
	}
	want := "**WHEAT Price History:**\n---\n" +
		"**Early Spring**: $500\n" +
		"**Mid Spring**: **$650**\n" +
		"**Late Spring**: **$420**\n" +
		"---\n" +
		"🔼 Highest: **Mid Spring ($650)**\n" +
		"🔽 Lowest: **Late Spring ($420)**"
	assert.Equal(t, want, PriceHistory("WHEAT", points))
	assert.Equal(t, "No history data available for OATS.", PriceHistory("OATS", nil))
}

func TestCropList(t *testing.T) {
	want := "📋 **Available Crops for /prices**\n\nWHEAT, BARLEY\n\nUse `/prices <crop>` to view the price history or best prices."
	assert.Equal(t, want, CropList([]string{"WHEAT", "BARLEY"}))
}

func TestVehicles(t *testing.T) {
	vehicles := []farmsim.Vehicle{
		{Name: "T1", Type: "tractor"},
		{Name: "T2", Type: "combineDrivable"},
		{Name: "T3", Type: "trailer"},
		{Name: "T4", Type: "tractor"},
	}
	replacements := map[string]string{"combineDrivable": "Combine"}
	assert.Equal(t, "T1 (tractor), T2 (Combine), T3 (trailer)\nT4 (tractor)", Vehicles(vehicles, replacements))
	assert.Empty(t, Vehicles(nil, replacements))

	lower := map[string]string{"combinedrivable": "Combine"}
	assert.Equal(t, "T2 (Combine)", Vehicles(vehicles[1:2], lower))
}
