package rink

import "time"

// Direction of travel across a monitored line
type Direction uint8

const (
	DirectionIntoZone Direction = iota
	DirectionOutOfZone
)

// String returns the human-readable direction
func (d Direction) String() string {
	if d == DirectionIntoZone {
		return "into_zone"
	}
	return "out_of_zone"
}

// BlueLineCrossing is the ephemeral event produced when the puck crosses a
// blue line. It is consumed by the offside decision in the same tick and
// never persisted.
type BlueLineCrossing struct {
	Zone         Zone      // defensive zone whose blue line was crossed
	Direction    Direction // relative to that zone
	CrossingTeam Team      // team attacking into the zone
	PuckPosition Position
	Timestamp    time.Time
}

// CrossingDetector decides whether the puck crossed a blue line between two
// consecutive samples. It is stateless; the caller owns the canonical
// previous-position value.
type CrossingDetector struct{}

// crossedLine reports whether the Z coordinate moved past lineZ between
// prev and curr, and in which direction. The predicate is non-strict on the
// origin side and strict on the destination side: a sample landing exactly
// on the line counts as a cross, but repeated ticks sitting on the line do
// not double count.
func crossedLine(prevZ, currZ, lineZ float64) (crossed, positive bool) {
	if prevZ <= lineZ && currZ > lineZ {
		return true, true
	}
	if prevZ >= lineZ && currZ < lineZ {
		return true, false
	}
	return false, false
}

// Detect returns the blue-line crossing between prev and curr, or nil when
// none occurred. Teleport-sized jumps (faceoff repositioning) are rejected.
func (CrossingDetector) Detect(prev, curr Position, now time.Time) *BlueLineCrossing {
	if PlanarDistance(prev, curr) > TeleportThreshold {
		return nil // repositioned, not skated
	}

	// Red blue line: crossing in the negative direction enters the red
	// defensive zone, which is blue's offensive territory.
	if crossed, positive := crossedLine(prev.Z, curr.Z, RedDefensiveMax); crossed {
		dir := DirectionIntoZone
		if positive {
			dir = DirectionOutOfZone
		}
		return &BlueLineCrossing{
			Zone:         ZoneRedDefensive,
			Direction:    dir,
			CrossingTeam: TeamBlue,
			PuckPosition: curr,
			Timestamp:    now,
		}
	}

	// Blue blue line: crossing in the positive direction enters the blue
	// defensive zone, red's offensive territory.
	if crossed, positive := crossedLine(prev.Z, curr.Z, BlueDefensiveMin); crossed {
		dir := DirectionOutOfZone
		if positive {
			dir = DirectionIntoZone
		}
		return &BlueLineCrossing{
			Zone:         ZoneBlueDefensive,
			Direction:    dir,
			CrossingTeam: TeamRed,
			PuckPosition: curr,
			Timestamp:    now,
		}
	}

	return nil
}

// DetectGoalLine reports whether the puck crossed the goal line of the given
// defensive zone between prev and curr. Unlike the blue-line predicate this
// one is inclusive on both sides so exact-line ticks still register; the
// caller's post-goal cooldown prevents double counting.
func (CrossingDetector) DetectGoalLine(zone Zone, prev, curr Position) bool {
	if PlanarDistance(prev, curr) > TeleportThreshold {
		return false
	}
	if !InGoalMouth(curr) {
		return false
	}

	lineZ := GoalLineZ(zone)
	if zone == ZoneRedDefensive {
		return prev.Z >= lineZ && curr.Z <= lineZ
	}
	return prev.Z <= lineZ && curr.Z >= lineZ
}
