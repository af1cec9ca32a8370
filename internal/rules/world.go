package rules

import (
	"time"

	"ice-ref/internal/rink"
)

// GamePhase is the coarse state of the match as reported by the game-state
// collaborator. Rule detection only runs during live play.
type GamePhase uint8

const (
	PhaseWarmup GamePhase = iota
	PhaseInPeriod
	PhaseIntermission
	PhaseShootout
	PhaseEnded
)

// String returns the human-readable phase name
func (p GamePhase) String() string {
	switch p {
	case PhaseInPeriod:
		return "in_period"
	case PhaseIntermission:
		return "intermission"
	case PhaseShootout:
		return "shootout"
	case PhaseEnded:
		return "ended"
	default:
		return "warmup"
	}
}

// ParseGamePhase converts a phase name back to its value; unknown names map
// to warmup with ok=false.
func ParseGamePhase(s string) (GamePhase, bool) {
	switch s {
	case "warmup":
		return PhaseWarmup, true
	case "in_period":
		return PhaseInPeriod, true
	case "intermission":
		return PhaseIntermission, true
	case "shootout":
		return PhaseShootout, true
	case "ended":
		return PhaseEnded, true
	default:
		return PhaseWarmup, false
	}
}

// live reports whether detection should run at all in this phase
func (p GamePhase) live() bool {
	return p == PhaseInPeriod || p == PhaseShootout
}

// Assignment is a player's roster entry: team plus current position on ice.
type Assignment struct {
	Team     rink.Team
	Position rink.Position
}

// TouchEntry is one record in the puck's touch history, owned and written by
// the possession subsystem. The rule engine only ever reads these.
type TouchEntry struct {
	PlayerID  string    `json:"playerId"`
	Timestamp time.Time `json:"timestamp"`
}

// World is the roster and spatial query surface supplied by the surrounding
// game each tick. Implementations must be cheap, synchronous, in-memory
// lookups; the engine never blocks on them.
type World interface {
	// ConnectedPlayers returns the ids of all currently connected players
	ConnectedPlayers() []string

	// Assignment returns a player's team and current position, or false if
	// the player is unknown to the roster. A false here means the player is
	// skipped from rule consideration, never an aborted check.
	Assignment(playerID string) (Assignment, bool)

	// Phase returns the current game phase
	Phase() GamePhase
}

// Puck is the read-only view of the puck entity and its side-channel state.
type Puck interface {
	// Position returns the puck's current position; ok is false while the
	// puck is not spawned.
	Position() (pos rink.Position, ok bool)

	// ControllingPlayer returns the id of the player currently carrying the
	// puck, or false when the puck is loose (passed or shot).
	ControllingPlayer() (string, bool)

	// LastTouchedBy returns the id of the last player to touch the puck,
	// or false if nobody has.
	LastTouchedBy() (string, bool)

	// TouchHistory returns touch records, most recent first. The backing
	// store lives outside this core and may be unavailable; an error is
	// logged by the caller and treated as "no assist data".
	TouchHistory() ([]TouchEntry, error)
}
