package render

import (
	"fmt"
	"strings"
	"text/template"

	"farmsim-notifier/pkg/farmsim"
)

// DefaultSummary is the summary template used when none is configured.
const DefaultSummary = `**🚜 {{.ServerName}}**
🗺️ **Map:** {{.MapName}}
👥 **Players:** {{.PlayersOnline}}/{{.PlayerCapacity}}
🕒 **In-game time:** {{printf "%02d:%02d" .Hours .Minutes}}

📅 **Created:** {{.CreationDate}}
💾 **Last save:** {{.LastSaveDate}}
⚙️ **Difficulty:** {{.EconomicDifficulty}}
⏳ **Time scale:** {{.TimeScale}}x
💰 **Money:** {{.CurrentMoney}}
{{- if .Mods}}

{{.Mods}}
{{- end}}`

// NoFarmNotice is published in place of the summary when the server has no career savegame.
const NoFarmNotice = "🚜 **No farm detected!**\n\n" +
	"The server is running but no career savegame exists yet. " +
	"Start a new farm and this message will update automatically."

// legacyFields maps the {placeholder} names of older config files to SummaryData fields.
var legacyFields = []string{
	"server_name", "ServerName",
	"map_name", "MapName",
	"players_online", "PlayersOnline",
	"player_capacity", "PlayerCapacity",
	"hours", "Hours",
	"minutes", "Minutes",
	"creation_date", "CreationDate",
	"last_save_date", "LastSaveDate",
	"economic_difficulty", "EconomicDifficulty",
	"time_scale", "TimeScale",
	"current_money", "CurrentMoney",
	"map_title", "MapTitle",
	"savegame_name", "SavegameName",
	"play_time", "PlayTime",
	"vehicles", "Vehicles",
	"mods", "Mods",
}

// SummaryData is the data available to the summary template.
type SummaryData struct {
	ServerName         string
	MapName            string
	PlayersOnline      int
	PlayerCapacity     int
	Hours              int
	Minutes            int
	CreationDate       string
	LastSaveDate       string
	EconomicDifficulty string
	TimeScale          string
	CurrentMoney       string
	MapTitle           string
	SavegameName       string
	PlayTime           string
	Vehicles           string
	Mods               string
}

// ParseSummary parses a summary template. Templates without Go template actions may use
// {snake_case} placeholders instead, e.g. "{server_name}".
func ParseSummary(text string) (*template.Template, error) {
	if strings.TrimSpace(text) == "" {
		text = DefaultSummary
	}
	if !strings.Contains(text, "{{") {
		pairs := make([]string, 0, len(legacyFields))
		for i := 0; i < len(legacyFields); i += 2 {
			pairs = append(pairs, "{"+legacyFields[i]+"}", "{{."+legacyFields[i+1]+"}}")
		}
		text = strings.NewReplacer(pairs...).Replace(text)
	}

	tmpl, err := template.New("summary").Option("missingkey=error").Parse(text)
	if err != nil {
		return nil, fmt.Errorf("parse summary template: %w", err)
	}
	return tmpl, nil
}

// NewSummaryData collects the template fields from a server snapshot and its career state.
func NewSummaryData(srv *farmsim.Server, career *farmsim.Career) SummaryData {
	hours, minutes := srv.Clock()
	d := SummaryData{
		ServerName:     srv.Name,
		MapName:        srv.MapName,
		PlayersOnline:  srv.Online,
		PlayerCapacity: srv.Capacity,
		Hours:          hours,
		Minutes:        minutes,
	}
	if career != nil {
		d.CreationDate = career.CreationDate
		d.LastSaveDate = career.SaveDate
		d.EconomicDifficulty = career.EconomicDifficulty
		d.TimeScale = career.TimeScale
		d.CurrentMoney = Money(career.Money)
		d.MapTitle = career.MapTitle
		d.SavegameName = career.SavegameName
		d.PlayTime = Playtime(career.PlayTime * 60)
	}
	return d
}

// Summary executes the summary template.
func Summary(tmpl *template.Template, data SummaryData) (string, error) {
	var b strings.Builder
	if err := tmpl.Execute(&b, data); err != nil {
		return "", fmt.Errorf("render summary: %w", err)
	}
	return b.String(), nil
}
