// Package farmsim contains the core domain types for the Farming Simulator notification bot.
package farmsim

// Player is a connected player slot.
type Player struct {
	Name    string
	IsAdmin bool
}

// Mod is an installed mod as reported by the server status feed.
type Mod struct {
	Name     string // Display name
	FileName string // e.g. FS25_RealMower
	Version  string
	Author   string
}

// Vehicle is a vehicle placed on the map.
type Vehicle struct {
	Name string
	Type string
}

// Server is a point-in-time view of the dedicated server. Produced fresh each poll.
type Server struct {
	Name     string
	MapName  string
	DayTime  int64 // In-game milliseconds since midnight
	Online   int
	Capacity int
	Players  []Player // Only slots flagged in use
	Mods     []Mod
	Vehicles []Vehicle
}

// Clock returns the in-game time of day.
func (s *Server) Clock() (hours, minutes int) {
	secs := s.DayTime / 1000
	return int(secs / 3600), int((secs % 3600) / 60)
}

// OnlineNames returns the set of connected player names.
func (s *Server) OnlineNames() map[string]bool {
	names := make(map[string]bool, len(s.Players))
	for _, p := range s.Players {
		names[p.Name] = true
	}
	return names
}

// IsAdmin reports whether the named player is connected with admin rights.
func (s *Server) IsAdmin(name string) bool {
	for _, p := range s.Players {
		if p.Name == name {
			return p.IsAdmin
		}
	}
	return false
}

// PricePoint is one period of a commodity's price history.
type PricePoint struct {
	Period string // Raw period label, e.g. EARLY_SPRING
	Price  int
}

// Economy maps commodity identifiers (WHEAT, BARLEY, ...) to their price history.
type Economy struct {
	FillTypes map[string][]PricePoint
}

// History returns the price history for a commodity id.
func (e *Economy) History(commodity string) ([]PricePoint, bool) {
	if e == nil {
		return nil, false
	}
	points, ok := e.FillTypes[commodity]
	return points, ok
}

// Career is the state of the active career savegame.
// A nil *Career means no farm has been created yet.
type Career struct {
	CreationDate       string
	SaveDate           string
	EconomicDifficulty string
	TimeScale          string // Already cleaned, e.g. "5"
	Money              int64
	MapTitle           string
	SavegameName       string
	PlayTime           float64 // Minutes
}

// Purpose identifies a logical pinned message slot.
type Purpose string

// Pinned message purposes.
const (
	PurposeSummary Purpose = "summary"
	PurposeMods    Purpose = "mods"
	PurposeCrops   Purpose = "crops"
)

// PlaytimeRecord is a player's cumulative playtime.
type PlaytimeRecord struct {
	Name    string  `toml:"name" json:"name"`
	Seconds float64 `toml:"seconds" json:"seconds"`
}
