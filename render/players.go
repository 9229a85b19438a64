package render

import (
	"fmt"
	"strings"

	"farmsim-notifier/pkg/farmsim"
)

func adminNote(admin bool) string {
	if admin {
		return " (Admin)"
	}
	return ""
}

// Joined renders a join notification. prior is the player's cumulative playtime before
// this session, in seconds; zero omits the annotation.
func Joined(name, server string, admin bool, prior float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🎮 **Player Joined:** %s%s", name, adminNote(admin)))
	if server != "" {
		b.WriteString(" on " + server)
	}
	if prior >= 60 {
		b.WriteString(fmt.Sprintf(" (total playtime: %s)", Playtime(prior)))
	}
	return b.String()
}

// Left renders a leave notification annotated with the session length in seconds.
func Left(name, server string, admin bool, session float64) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("🚪 **Player Left:** %s%s", name, adminNote(admin)))
	if server != "" {
		b.WriteString(" from " + server)
	}
	b.WriteString(fmt.Sprintf(" (session: %s)", Playtime(session)))
	return b.String()
}

// Leaderboard renders ranked playtime entries.
func Leaderboard(entries []farmsim.PlaytimeRecord) string {
	if len(entries) == 0 {
		return "🏆 No playtime recorded yet."
	}

	var b strings.Builder
	b.WriteString("🏆 **Playtime Leaderboard**\n")
	for i, e := range entries {
		b.WriteString(fmt.Sprintf("\n%d. **%s**: %s", i+1, e.Name, Playtime(e.Seconds)))
	}
	return b.String()
}
