package rules

import (
	"log"
	"time"

	"ice-ref/internal/rink"
)

const (
	// GoalCooldown is the post-goal window during which no new goal can be
	// registered, covering the celebration and center-ice reset.
	GoalCooldown = 8 * time.Second

	// OffsideGoalBlockWindow keeps a goal and an offside from being reported
	// for the same physical event, in either order.
	OffsideGoalBlockWindow = 2 * time.Second
)

// GoalResult is the terminal output of goal validation
type GoalResult struct {
	ScoringTeam     rink.Team     `json:"scoringTeam"`
	IsOwnGoal       bool          `json:"isOwnGoal"`
	LastTouchedBy   string        `json:"lastTouchedBy,omitempty"`
	PrimaryAssist   string        `json:"primaryAssist,omitempty"`
	SecondaryAssist string        `json:"secondaryAssist,omitempty"`
	PuckPosition    rink.Position `json:"puckPosition"`
	Timestamp       time.Time     `json:"timestamp"`
}

// GoalValidator detects goal-line crossings and validates them against
// possession, cooldowns and pending offsides. Offside always wins over a
// simultaneous goal.
type GoalValidator struct {
	detector rink.CrossingDetector
	tracker  *OffsideTracker

	lastGoalTime      time.Time
	lastOffsideVoidAt time.Time
}

// NewGoalValidator creates a validator coordinating with the given tracker
func NewGoalValidator(tracker *OffsideTracker) *GoalValidator {
	return &GoalValidator{tracker: tracker}
}

// Reset clears the cooldown timers, allowing a fresh detection window
func (g *GoalValidator) Reset() {
	g.lastGoalTime = time.Time{}
	g.lastOffsideVoidAt = time.Time{}
}

// LastGoalTime returns when the most recent goal was registered (zero if none)
func (g *GoalValidator) LastGoalTime() time.Time {
	return g.lastGoalTime
}

// CooldownActive reports whether the post-goal cooldown is still running
func (g *GoalValidator) CooldownActive(now time.Time) bool {
	return !g.lastGoalTime.IsZero() && now.Sub(g.lastGoalTime) < GoalCooldown
}

// Check validates a potential goal between two puck samples. It returns the
// goal result, or the pending offside violation that voided the goal, or
// neither. Never both: offside beats goal for the same event.
//
// The caller (the engine facade) has already verified monitoring, spawn
// state, game phase and teleport handling of the canonical previous
// position.
func (g *GoalValidator) Check(prev, curr rink.Position, puck Puck, world World, now time.Time) (*GoalResult, *OffsideViolation) {
	if g.CooldownActive(now) {
		return nil, nil
	}
	// Recently adjudicated offside: same physical event, goal is off
	if last := g.tracker.LastViolationAt(); !last.IsZero() && now.Sub(last) < OffsideGoalBlockWindow {
		return nil, nil
	}

	for _, zone := range []rink.Zone{rink.ZoneRedDefensive, rink.ZoneBlueDefensive} {
		if !g.detector.DetectGoalLine(zone, prev, curr) {
			continue
		}

		// A pending delayed offside at the puck's position voids the goal
		if violation := g.tracker.CheckDelayedViolations(world, puck, now); violation != nil {
			g.lastOffsideVoidAt = now
			log.Printf("🚫 Goal voided by delayed offside: team %s", violation.ViolatingTeam)
			return nil, violation
		}

		// A carried puck cannot itself register as a shot goal
		if _, controlled := puck.ControllingPlayer(); controlled {
			return nil, nil
		}

		scoringTeam, _ := rink.AttackingTeam(zone)
		result := &GoalResult{
			ScoringTeam:  scoringTeam,
			PuckPosition: curr,
			Timestamp:    now,
		}

		if toucher, ok := puck.LastTouchedBy(); ok {
			result.LastTouchedBy = toucher
			if a, known := world.Assignment(toucher); known {
				result.IsOwnGoal = a.Team != scoringTeam
			}
		}

		history, err := puck.TouchHistory()
		if err != nil {
			// Store unavailable: the goal still counts, just without assists
			log.Printf("⚠️ Touch history unavailable, skipping assists: %v", err)
		} else {
			assists := ResolveAssists(history, result.LastTouchedBy, scoringTeam, result.IsOwnGoal, world, now)
			result.PrimaryAssist = assists.Primary
			result.SecondaryAssist = assists.Secondary
		}

		g.lastGoalTime = now
		log.Printf("🥅 Goal: %s scores (own goal: %v, scorer: %q)", scoringTeam, result.IsOwnGoal, result.LastTouchedBy)
		return result, nil
	}

	return nil, nil
}
