package rules

import (
	"time"

	"ice-ref/internal/rink"
)

const (
	// HistoryRetention is how long position samples are kept
	HistoryRetention = 5 * time.Second

	// HistoryMaxSamples caps the per-player buffer; oldest entries drop first
	HistoryMaxSamples = 10
)

// PositionSample is one observation of a tracked player. Created once per
// player per tick while monitoring is active and never mutated afterwards.
type PositionSample struct {
	PlayerID  string
	Team      rink.Team
	Position  rink.Position
	Zone      rink.Zone
	Timestamp time.Time
}

// Ledger is the rolling, time-bounded position history used to answer
// "was player P in zone Z shortly before time T". It is owned by the rule
// engine and only ever touched from synchronous tick calls.
type Ledger struct {
	samples map[string][]PositionSample
}

// NewLedger creates an empty position history ledger
func NewLedger() *Ledger {
	return &Ledger{samples: make(map[string][]PositionSample)}
}

// RecordTick samples every connected, team-assigned player once, classifies
// their zone, appends, then prunes by age and count.
func (l *Ledger) RecordTick(world World, now time.Time) {
	for _, id := range world.ConnectedPlayers() {
		a, ok := world.Assignment(id)
		if !ok {
			continue // no roster entry yet, skip this player
		}
		l.append(PositionSample{
			PlayerID:  id,
			Team:      a.Team,
			Position:  a.Position,
			Zone:      rink.ZoneFromPosition(a.Position),
			Timestamp: now,
		}, now)
	}
}

func (l *Ledger) append(s PositionSample, now time.Time) {
	list := append(l.samples[s.PlayerID], s)

	// Prune entries older than the retention window
	cutoff := now.Add(-HistoryRetention)
	n := 0
	for _, old := range list {
		if old.Timestamp.After(cutoff) {
			list[n] = old
			n++
		}
	}
	list = list[:n]

	// Cap length, dropping oldest first
	if len(list) > HistoryMaxSamples {
		list = list[len(list)-HistoryMaxSamples:]
	}

	l.samples[s.PlayerID] = list
}

// WasInZoneBefore reports whether any retained sample places the player in
// the given zone strictly inside (before-lookback, before).
func (l *Ledger) WasInZoneBefore(playerID string, zone rink.Zone, before time.Time, lookback time.Duration) bool {
	earliest := before.Add(-lookback)
	for _, s := range l.samples[playerID] {
		if s.Zone != zone {
			continue
		}
		if s.Timestamp.After(earliest) && s.Timestamp.Before(before) {
			return true
		}
	}
	return false
}

// Clear drops all retained samples for all players
func (l *Ledger) Clear() {
	l.samples = make(map[string][]PositionSample)
}

// SampleCount returns the number of retained samples for a player
func (l *Ledger) SampleCount(playerID string) int {
	return len(l.samples[playerID])
}
