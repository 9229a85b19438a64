package poll

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"farmsim-notifier/pkg/farmsim"
	"farmsim-notifier/render"
)

const defaultTop = 10

// Event is one join or leave transition. Seconds is the prior cumulative playtime for
// a join and the session length for a leave.
type Event struct {
	Name    string
	Seconds float64
	Admin   bool
}

// Changes are the transitions found by one observation.
type Changes struct {
	Joined []Event
	Left   []Event
}

// Empty reports whether nothing changed.
func (c Changes) Empty() bool {
	return len(c.Joined) == 0 && len(c.Left) == 0
}

// Activity tracks who is online, when their sessions started and cumulative playtime.
// Session starts are not persisted; a session in progress at restart counts from zero.
type Activity struct {
	previous map[string]bool // Online as of the last observation, value is admin flag
	sessions map[string]time.Time
	totals   map[string]float64
	order    []string // Insertion order of totals
	mu       sync.Mutex
}

// NewActivity creates a tracker seeded with persisted playtime.
func NewActivity(records []farmsim.PlaytimeRecord) *Activity {
	a := &Activity{}
	a.Reset(records)
	return a
}

// Reset replaces all state with persisted playtime and forgets who is online.
func (a *Activity) Reset(records []farmsim.PlaytimeRecord) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.previous = make(map[string]bool)
	a.sessions = make(map[string]time.Time)
	a.totals = make(map[string]float64, len(records))
	a.order = nil
	for _, r := range records {
		if _, ok := a.totals[r.Name]; !ok {
			a.order = append(a.order, r.Name)
		}
		a.totals[r.Name] = r.Seconds
	}
}

// Diff returns the names in current but not previous, and in previous but not current,
// both sorted.
func Diff(previous, current map[string]bool) (joined, left []string) {
	for name := range current {
		if _, ok := previous[name]; !ok {
			joined = append(joined, name)
		}
	}
	for name := range previous {
		if _, ok := current[name]; !ok {
			left = append(left, name)
		}
	}
	sort.Strings(joined)
	sort.Strings(left)
	return joined, left
}

// Observe diffs the connected players against the previous observation, starts sessions
// for joins and credits session time for leaves.
func (a *Activity) Observe(players []farmsim.Player, now time.Time) Changes {
	a.mu.Lock()
	defer a.mu.Unlock()

	current := make(map[string]bool, len(players))
	admin := make(map[string]bool, len(players))
	for _, p := range players {
		current[p.Name] = true
		admin[p.Name] = p.IsAdmin
	}

	joined, left := Diff(a.previous, current)
	var c Changes
	for _, name := range joined {
		c.Joined = append(c.Joined, Event{Name: name, Admin: admin[name], Seconds: a.join(name, now)})
	}
	for _, name := range left {
		c.Left = append(c.Left, Event{Name: name, Admin: a.previous[name], Seconds: a.leave(name, now)})
	}

	a.previous = admin
	return c
}

func (a *Activity) join(name string, now time.Time) float64 {
	a.sessions[name] = now
	prior, ok := a.totals[name]
	if !ok {
		a.totals[name] = 0
		a.order = append(a.order, name)
	}
	return prior
}

func (a *Activity) leave(name string, now time.Time) float64 {
	var session float64
	if start, ok := a.sessions[name]; ok {
		session = now.Sub(start).Seconds()
		if session < 0 {
			session = 0
		}
		delete(a.sessions, name)
	}
	if _, ok := a.totals[name]; !ok {
		a.order = append(a.order, name)
	}
	a.totals[name] += session
	return session
}

// Total returns a player's cumulative playtime in seconds.
func (a *Activity) Total(name string) float64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.totals[name]
}

// SessionStart returns when the player's current session began.
func (a *Activity) SessionStart(name string) (time.Time, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	start, ok := a.sessions[name]
	return start, ok
}

// Records returns cumulative playtime in insertion order.
func (a *Activity) Records() []farmsim.PlaytimeRecord {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]farmsim.PlaytimeRecord, 0, len(a.order))
	for _, name := range a.order {
		out = append(out, farmsim.PlaytimeRecord{Name: name, Seconds: a.totals[name]})
	}
	return out
}

// Top returns at most n players by descending playtime; equal totals keep insertion
// order. n <= 0 returns everyone.
func (a *Activity) Top(n int) []farmsim.PlaytimeRecord {
	records := a.Records()
	sort.SliceStable(records, func(i, j int) bool {
		return records[i].Seconds > records[j].Seconds
	})
	if n > 0 && len(records) > n {
		records = records[:n]
	}
	return records
}

// TrackPlayers announces joins and leaves and accumulates playtime.
func (m *Monitor) TrackPlayers(ctx context.Context) error {
	m.playersMu.Lock()
	defer m.playersMu.Unlock()

	srv, err := m.fetcher.Server(ctx)
	if err != nil {
		return fmt.Errorf("fetch server status: %w", err)
	}

	changes := m.activity.Observe(srv.Players, m.now())
	if changes.Empty() {
		return nil
	}
	m.logger.Info("Player changes detected", "joined", len(changes.Joined), "left", len(changes.Left), "online", len(srv.Players))

	var errs []error
	if channelID := m.cfg.Channels.Players; channelID != "" {
		for _, e := range changes.Joined {
			if _, err := m.chat.Send(ctx, channelID, render.Joined(e.Name, srv.Name, e.Admin, e.Seconds)); err != nil {
				errs = append(errs, fmt.Errorf("announce join of %s: %w", e.Name, err))
			}
		}
		for _, e := range changes.Left {
			if _, err := m.chat.Send(ctx, channelID, render.Left(e.Name, srv.Name, e.Admin, e.Seconds)); err != nil {
				errs = append(errs, fmt.Errorf("announce leave of %s: %w", e.Name, err))
			}
			m.logger.Info("Player session ended", "player", e.Name, "session_seconds", int64(e.Seconds))
		}
	}

	if m.cfg.TrackPlaytime {
		if err := m.store.SavePlaytime(ctx, m.activity.Records()); err != nil {
			errs = append(errs, fmt.Errorf("save playtime: %w", err))
		}
	}
	return errors.Join(errs...)
}
