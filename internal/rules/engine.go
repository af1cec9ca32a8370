package rules

import (
	"log"
	"sync"
	"time"

	"ice-ref/internal/rink"
)

// Engine is the rule-enforcement facade. It is invoked synchronously once
// per simulation tick by the surrounding game loop: CheckForOffside first,
// then CheckForGoal. Both pipelines share one canonical previous-puck
// position per monitoring session.
//
// The mutex only guards against read-only introspection (DebugInfo, the
// HTTP API) racing the tick thread; there is never more than one writer.
type Engine struct {
	mu sync.RWMutex

	world    World
	ledger   *Ledger
	tracker  *OffsideTracker
	goals    *GoalValidator
	detector rink.CrossingDetector
	eventLog *EventLog

	monitoring bool

	// Canonical puck position pair. prevPos advances only when the puck
	// actually moves, so both pipelines in one tick see the same pair and
	// a stationary puck cannot replay a crossing.
	prevPos *rink.Position
	currPos *rink.Position
	moveSeq uint64

	lastOffsideSeq uint64
	lastGoalSeq    uint64

	// Clock source, swappable in tests
	nowFn func() time.Time

	// Fire-and-forget notifications out of the engine. Dispatched on
	// goroutines; their failure cannot abort a tick's decision.
	OnOffside func(OffsideViolation)
	OnGoal    func(GoalResult)
}

// NewEngine creates the rule engine over the given world query surface.
// Construct once at process start and pass by handle to the tick driver.
func NewEngine(world World) *Engine {
	ledger := NewLedger()
	tracker := NewOffsideTracker(ledger)
	return &Engine{
		world:    world,
		ledger:   ledger,
		tracker:  tracker,
		goals:    NewGoalValidator(tracker),
		eventLog: NewEventLog(),
		nowFn:    time.Now,
	}
}

// StartMonitoring arms the engine: all previous tracking state, cooldown
// timers and the canonical puck position are cleared.
func (e *Engine) StartMonitoring() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.monitoring = true
	e.clearPuckStateLocked(nil)
	e.tracker.Reset()
	e.goals.Reset()

	e.eventLog.EmitSimple(EventTypeMonitorStart, "", nil)
	log.Println("🏒 Rule monitoring started")
}

// StopMonitoring idles the engine and clears all transient state. Safe to
// call mid-tick and idempotent.
func (e *Engine) StopMonitoring() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.monitoring {
		return
	}
	e.monitoring = false
	e.clearPuckStateLocked(nil)
	e.tracker.Reset()
	e.goals.Reset()

	e.eventLog.EmitSimple(EventTypeMonitorStop, "", nil)
	log.Println("🛑 Rule monitoring stopped")
}

// Reset clears all tracking state and timers without leaving monitoring
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.clearPuckStateLocked(nil)
	e.tracker.Reset()
	e.goals.Reset()
}

// ResetAfterFaceoff restarts detection after a stoppage: tracking and
// history are cleared, the blocked state exits, the grace period starts, and
// the canonical previous position is seeded with the faceoff spot (or
// cleared) so the drop itself cannot read as a crossing.
func (e *Engine) ResetAfterFaceoff(pos *rink.Position) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowFn()
	e.clearPuckStateLocked(pos)
	e.tracker.ResetAfterFaceoff(now)

	e.eventLog.EmitSimple(EventTypeFaceoffReset, "", FaceoffPayload{Location: pos})
	log.Printf("🔁 Faceoff reset (grace until %s)", now.Add(FaceoffGracePeriod).Format(time.TimeOnly))
}

// clearPuckStateLocked resets the canonical position pair. Pending movement
// markers are fast-forwarded so stale pairs are never re-evaluated.
func (e *Engine) clearPuckStateLocked(seed *rink.Position) {
	e.prevPos = nil
	e.currPos = nil
	if seed != nil {
		p := *seed
		e.currPos = &p
	}
	e.lastOffsideSeq = e.moveSeq
	e.lastGoalSeq = e.moveSeq
}

// observePuckLocked folds the current puck position into the canonical
// pair. prevPos advances only on actual movement.
func (e *Engine) observePuckLocked(curr rink.Position) {
	if e.currPos == nil {
		p := curr
		e.currPos = &p
		return
	}
	if *e.currPos == curr {
		return
	}
	e.prevPos = e.currPos
	p := curr
	e.currPos = &p
	e.moveSeq++
}

// CheckForOffside runs the offside pipeline for the current tick: records
// player history, cleans up and extends proactive tracking, then evaluates
// blue-line crossings and pending delayed violations. Returns the violation
// or nil; never errors.
func (e *Engine) CheckForOffside(puck Puck) *OffsideViolation {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.monitoring || !e.world.Phase().live() {
		return nil
	}
	pos, spawned := puck.Position()
	if !spawned {
		return nil
	}
	now := e.nowFn()

	e.observePuckLocked(pos)
	e.ledger.RecordTick(e.world, now)
	e.tracker.Cleanup(e.world)
	e.tracker.TrackZoneEntries(e.world, puck, now)

	if e.tracker.CooldownActive(now) {
		return nil
	}

	var violation *OffsideViolation
	delayed := false

	if e.moveSeq > e.lastOffsideSeq && e.prevPos != nil {
		e.lastOffsideSeq = e.moveSeq
		if crossing := e.detector.Detect(*e.prevPos, pos, now); crossing != nil {
			e.eventLog.EmitSimple(EventTypeBlueLineCrossing, "", CrossingPayload{
				Zone:         crossing.Zone.String(),
				Direction:    crossing.Direction.String(),
				CrossingTeam: crossing.CrossingTeam.String(),
				PuckPosition: crossing.PuckPosition,
			})
			violation = e.tracker.CheckCrossingViolation(crossing, e.world, puck, now)
		}
	}

	if violation == nil {
		violation = e.tracker.CheckDelayedViolations(e.world, puck, now)
		delayed = violation != nil
	}

	if violation != nil {
		violation.Delayed = delayed
		e.publishOffsideLocked(*violation)
	}
	return violation
}

// CheckForGoal runs the goal pipeline for the current tick. A pending
// delayed offside at the puck's position voids the goal and is surfaced via
// OnOffside instead: offside always wins over a simultaneous goal.
func (e *Engine) CheckForGoal(puck Puck) *GoalResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.monitoring || !e.world.Phase().live() {
		return nil
	}
	pos, spawned := puck.Position()
	if !spawned {
		return nil
	}
	now := e.nowFn()

	e.observePuckLocked(pos)
	if e.moveSeq == e.lastGoalSeq || e.prevPos == nil {
		return nil // no fresh movement to evaluate
	}
	e.lastGoalSeq = e.moveSeq

	goal, voidedBy := e.goals.Check(*e.prevPos, pos, puck, e.world, now)
	if voidedBy != nil {
		voidedBy.Delayed = true
		e.publishOffsideLocked(*voidedBy)
		return nil
	}
	if goal != nil {
		e.eventLog.EmitSimple(EventTypeGoal, goal.LastTouchedBy, GoalPayload{
			ScoringTeam:     goal.ScoringTeam.String(),
			IsOwnGoal:       goal.IsOwnGoal,
			LastTouchedBy:   goal.LastTouchedBy,
			PrimaryAssist:   goal.PrimaryAssist,
			SecondaryAssist: goal.SecondaryAssist,
		})
		if e.OnGoal != nil {
			go e.OnGoal(*goal)
		}
	}
	return goal
}

// publishOffsideLocked records and dispatches an adjudicated violation
func (e *Engine) publishOffsideLocked(v OffsideViolation) {
	e.eventLog.EmitSimple(EventTypeOffside, "", OffsidePayload{
		Team:            v.ViolatingTeam.String(),
		PlayerIDs:       v.ViolatingPlayerIDs,
		Zone:            v.BlueLineCrossedZone.String(),
		FaceoffLocation: v.FaceoffLocation,
		Delayed:         v.Delayed,
	})
	if e.OnOffside != nil {
		go e.OnOffside(v)
	}
}

// ZoneFromPosition is read-only introspection for tooling
func (e *Engine) ZoneFromPosition(pos rink.Position) rink.Zone {
	return rink.ZoneFromPosition(pos)
}

// AllFaceoffPositions returns every faceoff spot on the rink
func (e *Engine) AllFaceoffPositions() []rink.Position {
	return rink.AllFaceoffPositions()
}

// DebugInfo is a read-only snapshot of the engine's internal state
type DebugInfo struct {
	Monitoring       bool                  `json:"monitoring"`
	Phase            string                `json:"phase"`
	TrackedPlayers   []DelayedOffsideEntry `json:"trackedPlayers"`
	Blocked          bool                  `json:"blocked"`
	GraceActive      bool                  `json:"graceActive"`
	OffsideCooldown  bool                  `json:"offsideCooldown"`
	GoalCooldown     bool                  `json:"goalCooldown"`
	LastViolationAt  time.Time             `json:"lastViolationAt,omitempty"`
	LastGoalAt       time.Time             `json:"lastGoalAt,omitempty"`
	PrevPuckPosition *rink.Position        `json:"prevPuckPosition,omitempty"`
}

// DebugInfo returns the current introspection snapshot
func (e *Engine) DebugInfo() DebugInfo {
	e.mu.RLock()
	defer e.mu.RUnlock()

	now := e.nowFn()
	return DebugInfo{
		Monitoring:       e.monitoring,
		Phase:            e.world.Phase().String(),
		TrackedPlayers:   e.tracker.TrackedPlayers(),
		Blocked:          e.tracker.Blocked(),
		GraceActive:      e.tracker.GraceActive(now),
		OffsideCooldown:  e.tracker.CooldownActive(now),
		GoalCooldown:     e.goals.CooldownActive(now),
		LastViolationAt:  e.tracker.LastViolationAt(),
		LastGoalAt:       e.goals.LastGoalTime(),
		PrevPuckPosition: e.prevPos,
	}
}

// StartEventLog begins persisting rule events to the given JSONL path
func (e *Engine) StartEventLog(filePath string) error {
	return e.eventLog.Start(filePath)
}

// StopEventLog gracefully stops the rule-event log
func (e *Engine) StopEventLog() {
	e.eventLog.Stop()
}

// EventStats returns event log counters for monitoring
func (e *Engine) EventStats() map[string]interface{} {
	return e.eventLog.GetStats()
}
