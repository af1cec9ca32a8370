// Package rink models the playing surface: positions, zones, blue lines,
// goal lines and faceoff spots. Everything here is pure geometry - no
// game state, no clocks, no side effects.
//
// The Z axis runs along the length of the ice: negative Z is the red end,
// positive Z is the blue end. Zones are always derived from a position via
// the two fixed blue-line thresholds, never stored.
package rink

import (
	"fmt"
	"math"
)

// Team identifies one of the two sides. A player's team is immutable once
// assigned by the roster collaborator.
type Team uint8

const (
	TeamRed Team = iota
	TeamBlue
)

// String returns the human-readable team name
func (t Team) String() string {
	if t == TeamRed {
		return "red"
	}
	return "blue"
}

// ParseTeam converts a team name back to its value
func ParseTeam(s string) (Team, bool) {
	switch s {
	case "red":
		return TeamRed, true
	case "blue":
		return TeamBlue, true
	default:
		return TeamRed, false
	}
}

// Opponent returns the other team
func (t Team) Opponent() Team {
	if t == TeamRed {
		return TeamBlue
	}
	return TeamRed
}

// Zone classifies a position along the Z axis
type Zone uint8

const (
	ZoneRedDefensive Zone = iota
	ZoneNeutral
	ZoneBlueDefensive
)

// String returns the human-readable zone name
func (z Zone) String() string {
	switch z {
	case ZoneRedDefensive:
		return "red_defensive"
	case ZoneBlueDefensive:
		return "blue_defensive"
	default:
		return "neutral"
	}
}

// Rink calibration. These are fixed for the simulated surface; changing them
// requires re-tuning the client-side physics as well.
const (
	// Blue lines (zone thresholds)
	RedDefensiveMax  = -6.5 // z below this is the red defensive zone
	BlueDefensiveMin = 7.5  // z above this is the blue defensive zone

	// Goal lines, behind each blue line
	RedGoalLineZ  = -11.5
	BlueGoalLineZ = 12.5

	// Goal mouth: narrow X band centered on the net, puck must be at ice level
	GoalHalfWidth = 1.5
	GoalMaxY      = 2.0

	// TeleportThreshold is the planar distance above which a position delta
	// is treated as a reset/teleport (faceoff repositioning), not movement.
	TeleportThreshold = 10.0

	// ProximityDistance is how close an offside player must be to the puck
	// for a delayed violation to crystallize.
	ProximityDistance = 10.0
)

// Position is a point on (or above) the ice
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// String formats the position for logs
func (p Position) String() string {
	return fmt.Sprintf("(%.2f, %.2f, %.2f)", p.X, p.Y, p.Z)
}

// PlanarDistance returns the XZ-plane distance between two positions.
// Height is ignored: rule calls care about where a skater is on the ice,
// not whether the puck is airborne.
func PlanarDistance(a, b Position) float64 {
	dx := a.X - b.X
	dz := a.Z - b.Z
	return math.Sqrt(dx*dx + dz*dz)
}

// ZoneFromPosition classifies a position into one of the three zones.
// Total: every position maps to exactly one zone.
func ZoneFromPosition(pos Position) Zone {
	if pos.Z < RedDefensiveMax {
		return ZoneRedDefensive
	}
	if pos.Z > BlueDefensiveMin {
		return ZoneBlueDefensive
	}
	return ZoneNeutral
}

// OffensiveZone returns the zone a team attacks into (the opponent's
// defensive zone).
func OffensiveZone(t Team) Zone {
	if t == TeamRed {
		return ZoneBlueDefensive
	}
	return ZoneRedDefensive
}

// AttackingTeam returns the team for whom the given defensive zone is
// offensive territory.
func AttackingTeam(z Zone) (Team, bool) {
	switch z {
	case ZoneRedDefensive:
		return TeamBlue, true
	case ZoneBlueDefensive:
		return TeamRed, true
	default:
		return TeamRed, false
	}
}

// BlueLineZ returns the Z coordinate of the blue line guarding a zone
func BlueLineZ(z Zone) float64 {
	if z == ZoneRedDefensive {
		return RedDefensiveMax
	}
	return BlueDefensiveMin
}

// GoalLineZ returns the Z coordinate of the goal line inside a defensive zone
func GoalLineZ(z Zone) float64 {
	if z == ZoneRedDefensive {
		return RedGoalLineZ
	}
	return BlueGoalLineZ
}

// InGoalMouth reports whether a position is laterally and vertically within
// the goal opening. The Z coordinate is checked separately by the
// line-crossing logic.
func InGoalMouth(pos Position) bool {
	return math.Abs(pos.X) <= GoalHalfWidth && pos.Y >= 0 && pos.Y <= GoalMaxY
}
