package rules

import (
	"log"
	"sort"
	"time"

	"ice-ref/internal/rink"
)

const (
	// FaceoffGracePeriod suspends proactive zone-entry tracking right after
	// a faceoff reset, while players are still repositioning.
	FaceoffGracePeriod = 3 * time.Second

	// OffsideLookback is how far back the crossing decision looks for a
	// player having been in the offensive zone before the puck entered.
	OffsideLookback = 2 * time.Second

	// OffsideCooldown throttles the caller-facing offside entry point after
	// a violation has been adjudicated.
	OffsideCooldown = 3 * time.Second
)

// DelayedOffsideEntry records a player believed to be currently offside in
// Zone. At most one entry exists per player; absence means the player is
// considered onside or unknown.
type DelayedOffsideEntry struct {
	PlayerID     string    `json:"playerId"`
	Team         rink.Team `json:"team"`
	Zone         rink.Zone `json:"zone"`
	DetectedTime time.Time `json:"detectedTime"`
}

// OffsideViolation is the terminal output of a violation decision, handed to
// the external game-state collaborator. ViolatingPlayerIDs is never empty.
type OffsideViolation struct {
	ViolatingTeam       rink.Team     `json:"violatingTeam"`
	ViolatingPlayerIDs  []string      `json:"violatingPlayerIds"`
	FaceoffLocation     rink.Position `json:"faceoffLocation"`
	Timestamp           time.Time     `json:"timestamp"`
	PuckPosition        rink.Position `json:"puckPosition"`
	BlueLineCrossedZone rink.Zone     `json:"blueLineCrossedZone"`

	// Delayed marks a violation that crystallized from delayed tracking
	// rather than directly at the blue-line crossing.
	Delayed bool `json:"delayed"`
}

// OffsideTracker owns the delayed-offside state machine: the set of players
// tracked as offside, the faceoff grace period, the post-violation blocked
// flag and the caller-facing cooldown. All mutation happens inside
// synchronous tick calls.
type OffsideTracker struct {
	ledger  *Ledger
	delayed map[string]DelayedOffsideEntry

	graceUntil      time.Time
	blocked         bool
	cooldownUntil   time.Time
	lastViolationAt time.Time
}

// NewOffsideTracker creates a tracker over the given position ledger
func NewOffsideTracker(ledger *Ledger) *OffsideTracker {
	return &OffsideTracker{
		ledger:  ledger,
		delayed: make(map[string]DelayedOffsideEntry),
	}
}

// Reset clears all tracking state: delayed entries, position history, grace,
// cooldown and the blocked flag. Used by monitoring start/stop.
func (t *OffsideTracker) Reset() {
	t.delayed = make(map[string]DelayedOffsideEntry)
	t.ledger.Clear()
	t.graceUntil = time.Time{}
	t.cooldownUntil = time.Time{}
	t.lastViolationAt = time.Time{}
	t.blocked = false
}

// ResetAfterFaceoff clears tracking, exits the blocked state and starts the
// grace period during which proactive zone-entry tracking is suspended.
func (t *OffsideTracker) ResetAfterFaceoff(now time.Time) {
	t.delayed = make(map[string]DelayedOffsideEntry)
	t.ledger.Clear()
	t.blocked = false
	t.graceUntil = now.Add(FaceoffGracePeriod)
}

// Blocked reports whether a violation was adjudicated and no faceoff reset
// has happened yet; proactive tracking and delayed evaluation are suspended.
func (t *OffsideTracker) Blocked() bool {
	return t.blocked
}

// GraceActive reports whether the post-faceoff grace period is running
func (t *OffsideTracker) GraceActive(now time.Time) bool {
	return now.Before(t.graceUntil)
}

// CooldownActive reports whether the caller-facing offside entry point is
// still throttled after the last violation.
func (t *OffsideTracker) CooldownActive(now time.Time) bool {
	return now.Before(t.cooldownUntil)
}

// LastViolationAt returns when the most recent violation fired (zero if none)
func (t *OffsideTracker) LastViolationAt() time.Time {
	return t.lastViolationAt
}

// TrackedPlayers returns the current delayed-offside entries, ordered by
// player id for deterministic output.
func (t *OffsideTracker) TrackedPlayers() []DelayedOffsideEntry {
	out := make([]DelayedOffsideEntry, 0, len(t.delayed))
	for _, e := range t.delayed {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].PlayerID < out[j].PlayerID })
	return out
}

// TrackZoneEntries runs the proactive entry tracking: players who skated
// from the neutral zone into their offensive zone ahead of the puck, with no
// teammate carrying the puck in that zone, become delayed-offside candidates.
// This closes the "player sneaks in early, puck comes later" loophole.
// Suspended during the faceoff grace period and while blocked.
func (t *OffsideTracker) TrackZoneEntries(world World, puck Puck, now time.Time) {
	if t.blocked || t.GraceActive(now) {
		return
	}

	puckPos, spawned := puck.Position()
	if !spawned {
		return
	}
	puckZone := rink.ZoneFromPosition(puckPos)
	carrier, hasCarrier := puck.ControllingPlayer()

	for _, id := range world.ConnectedPlayers() {
		if _, tracked := t.delayed[id]; tracked {
			continue
		}
		a, ok := world.Assignment(id)
		if !ok {
			continue
		}

		zone := rink.ZoneFromPosition(a.Position)
		if zone != rink.OffensiveZone(a.Team) {
			continue
		}
		// Puck already in the zone means the entry has legal context
		if puckZone == zone {
			continue
		}
		// A teammate possessing the puck inside the zone also legalizes it
		if hasCarrier && carrier != id {
			if ca, ok := world.Assignment(carrier); ok &&
				ca.Team == a.Team && rink.ZoneFromPosition(ca.Position) == zone {
				continue
			}
		}
		// Only a fresh NEUTRAL -> offensive transition arms tracking
		if !t.ledger.WasInZoneBefore(id, rink.ZoneNeutral, now, OffsideLookback) {
			continue
		}

		t.delayed[id] = DelayedOffsideEntry{
			PlayerID:     id,
			Team:         a.Team,
			Zone:         zone,
			DetectedTime: now,
		}
		log.Printf("🏒 Tracking delayed offside: %s (%s) entered %s ahead of puck", id, a.Team, zone)
	}
}

// Cleanup removes tracked players whose current zone no longer matches the
// zone they were tracked for - they skated back onside. Runs every tick
// before delayed evaluation.
func (t *OffsideTracker) Cleanup(world World) {
	for id, entry := range t.delayed {
		a, ok := world.Assignment(id)
		if !ok {
			delete(t.delayed, id) // left the game, nothing to hold against them
			continue
		}
		if rink.ZoneFromPosition(a.Position) != entry.Zone {
			delete(t.delayed, id)
		}
	}
}

// CheckCrossingViolation adjudicates an offside decision when the puck
// enters a team's offensive zone. Returns the violation, or nil when entry
// was legal or the decision is deferred via delayed tracking.
func (t *OffsideTracker) CheckCrossingViolation(crossing *rink.BlueLineCrossing, world World, puck Puck, now time.Time) *OffsideViolation {
	if crossing == nil || crossing.Direction != rink.DirectionIntoZone {
		return nil
	}

	team := crossing.CrossingTeam
	zone := crossing.Zone
	carrier, hasCarrier := puck.ControllingPlayer()
	cleared := make(map[string]bool)

	// Delayed entries already held against this team in this zone
	var held []string
	for id, e := range t.delayed {
		if e.Team == team && e.Zone == zone {
			held = append(held, id)
		}
	}
	sort.Strings(held)

	if len(held) > 0 {
		if hasCarrier {
			if _, carrierHeld := t.delayed[carrier]; carrierHeld {
				// The carrier establishing zone entry exonerates himself
				delete(t.delayed, carrier)
				cleared[carrier] = true
				others := held[:0]
				for _, id := range held {
					if id != carrier {
						others = append(others, id)
					}
				}
				if len(others) > 0 {
					return t.fireViolation(team, others, zone, crossing.PuckPosition, now)
				}
			} else {
				// A teammate carried the puck in while tracked players were
				// still in the zone: immediate violation on the tracked ones.
				cleared[carrier] = true
				return t.fireViolation(team, held, zone, crossing.PuckPosition, now)
			}
		}
		// Passed with no carrier: defer to the per-player evaluation below
	}

	// Per-player evaluation against recent position history
	var violators []string
	players := world.ConnectedPlayers()
	sort.Strings(players)
	for _, id := range players {
		if cleared[id] {
			continue
		}
		a, ok := world.Assignment(id)
		if !ok || a.Team != team {
			continue
		}
		if !t.ledger.WasInZoneBefore(id, zone, crossing.Timestamp, OffsideLookback) {
			continue
		}

		switch {
		case hasCarrier && carrier == id:
			// Cannot be both the reason for offside and the one resolving it
			violators = append(violators, id)
		case rink.PlanarDistance(a.Position, crossing.PuckPosition) <= rink.ProximityDistance:
			// Close enough to be in on the play
			violators = append(violators, id)
		default:
			// Give them a chance to skate back onside
			t.delayed[id] = DelayedOffsideEntry{
				PlayerID:     id,
				Team:         team,
				Zone:         zone,
				DetectedTime: now,
			}
		}
	}

	if len(violators) > 0 {
		return t.fireViolation(team, violators, zone, crossing.PuckPosition, now)
	}
	return nil
}

// CheckDelayedViolations evaluates pending delayed offsides against the
// puck's current position. A violation fires for any player of a tracked
// team who is in the offensive zone the puck occupies and within proximity
// of it - even a player who was never tracked himself.
func (t *OffsideTracker) CheckDelayedViolations(world World, puck Puck, now time.Time) *OffsideViolation {
	if t.blocked || len(t.delayed) == 0 {
		return nil
	}

	puckPos, spawned := puck.Position()
	if !spawned {
		return nil
	}
	puckZone := rink.ZoneFromPosition(puckPos)
	attacking, ok := rink.AttackingTeam(puckZone)
	if !ok {
		return nil
	}

	// Only teams that currently have a delayed entry in this zone are live
	live := false
	for _, e := range t.delayed {
		if e.Team == attacking && e.Zone == puckZone {
			live = true
			break
		}
	}
	if !live {
		return nil
	}

	var violators []string
	players := world.ConnectedPlayers()
	sort.Strings(players)
	for _, id := range players {
		a, ok := world.Assignment(id)
		if !ok || a.Team != attacking {
			continue
		}
		if rink.ZoneFromPosition(a.Position) != puckZone {
			continue
		}
		if rink.PlanarDistance(a.Position, puckPos) <= rink.ProximityDistance {
			violators = append(violators, id)
		}
	}

	if len(violators) > 0 {
		return t.fireViolation(attacking, violators, puckZone, puckPos, now)
	}
	return nil
}

// fireViolation builds the violation, performs the full reset (entire
// delayed map and all position history, not just the implicated team) and
// enters the blocked state until the next faceoff reset.
func (t *OffsideTracker) fireViolation(team rink.Team, playerIDs []string, zone rink.Zone, puckPos rink.Position, now time.Time) *OffsideViolation {
	v := &OffsideViolation{
		ViolatingTeam:       team,
		ViolatingPlayerIDs:  playerIDs,
		FaceoffLocation:     rink.NearestNeutralFaceoff(zone, puckPos),
		Timestamp:           now,
		PuckPosition:        puckPos,
		BlueLineCrossedZone: zone,
	}

	t.delayed = make(map[string]DelayedOffsideEntry)
	t.ledger.Clear()
	t.blocked = true
	t.lastViolationAt = now
	t.cooldownUntil = now.Add(OffsideCooldown)

	log.Printf("🚨 Offside: team %s, players %v, faceoff at %s", team, playerIDs, v.FaceoffLocation)
	return v
}
