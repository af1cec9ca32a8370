// Package sim provides the in-memory collaborators the rule engine consumes
// (roster, puck state, game phase) plus the tick driver that invokes the
// engine once per simulation step. Physics here is deliberately simple -
// constant-velocity integration - since the real game supplies positions
// externally; the driver's job is choreography, not simulation fidelity.
package sim

import (
	"fmt"
	"log"
	"sort"
	"sync"
	"time"

	"ice-ref/internal/rink"
	"ice-ref/internal/rules"
)

// MaxTouchHistory bounds the puck's touch log
const MaxTouchHistory = 20

// MaxPlayers caps the roster (two full lines plus goalies per side)
const MaxPlayers = 12

// Player is one skater on the roster
type Player struct {
	ID       string        `json:"id"`
	Team     rink.Team     `json:"team"`
	Position rink.Position `json:"position"`
	Velocity rink.Position `json:"velocity"`
}

// puckState is the side-channel puck data written by possession logic
type puckState struct {
	position   rink.Position
	velocity   rink.Position
	spawned    bool
	controller string // empty when the puck is loose
	lastTouch  string
	touches    []rules.TouchEntry // most recent first
}

// Rink owns the mutable world state and the tick loop. It implements
// rules.World; the puck view is exposed separately via Puck().
type Rink struct {
	mu      sync.RWMutex
	players map[string]*Player
	puck    puckState
	phase   rules.GamePhase

	engine *rules.Engine

	tickRate  int
	running   bool
	ticker    *time.Ticker
	stopChan  chan struct{}
	tickCount int64

	// OnTick reports per-tick duration for metrics; optional
	OnTick func(time.Duration)
}

// NewRink creates an empty rink ticking at tickRate TPS. The engine is
// attached afterwards since it needs the rink as its world.
func NewRink(tickRate int) *Rink {
	return &Rink{
		players:  make(map[string]*Player),
		phase:    rules.PhaseWarmup,
		tickRate: tickRate,
		stopChan: make(chan struct{}),
	}
}

// AttachEngine wires the rule engine into the tick loop. Must be called
// before Start.
func (r *Rink) AttachEngine(engine *rules.Engine) {
	r.engine = engine
}

// --- rules.World ---

// ConnectedPlayers returns the ids of everyone on the roster
func (r *Rink) ConnectedPlayers() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]string, 0, len(r.players))
	for id := range r.players {
		ids = append(ids, id)
	}
	return ids
}

// Assignment returns a player's team and current position
func (r *Rink) Assignment(playerID string) (rules.Assignment, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[playerID]
	if !ok {
		return rules.Assignment{}, false
	}
	return rules.Assignment{Team: p.Team, Position: p.Position}, true
}

// Phase returns the current game phase
func (r *Rink) Phase() rules.GamePhase {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.phase
}

// SetPhase transitions the game phase
func (r *Rink) SetPhase(phase rules.GamePhase) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.phase = phase
}

// --- roster management ---

// AddPlayer puts a player on the roster. Team assignment is immutable once
// made; adding an existing id returns the existing player.
func (r *Rink) AddPlayer(id string, team rink.Team, pos rink.Position) (*Player, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if existing, ok := r.players[id]; ok {
		return existing, nil
	}
	if len(r.players) >= MaxPlayers {
		return nil, fmt.Errorf("roster full (%d players)", MaxPlayers)
	}

	p := &Player{ID: id, Team: team, Position: pos}
	r.players[id] = p
	log.Printf("👤 Player joined: %s (%s)", id, team)
	return p, nil
}

// RemovePlayer drops a player from the roster
func (r *Rink) RemovePlayer(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.players, id)
}

// MovePlayer teleports a player (used by drills and tests)
func (r *Rink) MovePlayer(id string, pos rink.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		p.Position = pos
	}
}

// SetPlayerVelocity sets a player's constant skating velocity
func (r *Rink) SetPlayerVelocity(id string, vel rink.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.players[id]; ok {
		p.Velocity = vel
	}
}

// --- puck management ---

// SpawnPuck places the puck on the ice
func (r *Rink) SpawnPuck(pos rink.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puck = puckState{position: pos, spawned: true, touches: r.puck.touches}
}

// DespawnPuck removes the puck from play
func (r *Rink) DespawnPuck() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puck.spawned = false
	r.puck.controller = ""
}

// MovePuck teleports the puck
func (r *Rink) MovePuck(pos rink.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puck.position = pos
}

// SetPuckVelocity sets the puck's velocity; a shot or pass also releases
// possession.
func (r *Rink) SetPuckVelocity(vel rink.Position) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puck.velocity = vel
}

// GiveControl hands puck possession to a player and records a touch
func (r *Rink) GiveControl(playerID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.players[playerID]; !ok {
		return
	}
	r.puck.controller = playerID
	r.recordTouchLocked(playerID, now)
}

// ReleaseControl marks the puck loose (passed or shot)
func (r *Rink) ReleaseControl() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.puck.controller = ""
}

// RecordTouch appends a touch without a possession change (deflections)
func (r *Rink) RecordTouch(playerID string, now time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recordTouchLocked(playerID, now)
}

func (r *Rink) recordTouchLocked(playerID string, now time.Time) {
	r.puck.lastTouch = playerID
	r.puck.touches = append([]rules.TouchEntry{{PlayerID: playerID, Timestamp: now}}, r.puck.touches...)
	if len(r.puck.touches) > MaxTouchHistory {
		r.puck.touches = r.puck.touches[:MaxTouchHistory]
	}
}

// Puck returns the read-only puck view consumed by the rule engine
func (r *Rink) Puck() rules.Puck {
	return puckHandle{r}
}

// puckHandle adapts Rink's puck state to the rules.Puck interface
type puckHandle struct{ r *Rink }

func (h puckHandle) Position() (rink.Position, bool) {
	h.r.mu.RLock()
	defer h.r.mu.RUnlock()
	return h.r.puck.position, h.r.puck.spawned
}

func (h puckHandle) ControllingPlayer() (string, bool) {
	h.r.mu.RLock()
	defer h.r.mu.RUnlock()
	return h.r.puck.controller, h.r.puck.controller != ""
}

func (h puckHandle) LastTouchedBy() (string, bool) {
	h.r.mu.RLock()
	defer h.r.mu.RUnlock()
	return h.r.puck.lastTouch, h.r.puck.lastTouch != ""
}

func (h puckHandle) TouchHistory() ([]rules.TouchEntry, error) {
	h.r.mu.RLock()
	defer h.r.mu.RUnlock()
	out := make([]rules.TouchEntry, len(h.r.puck.touches))
	copy(out, h.r.puck.touches)
	return out, nil
}

// --- tick loop ---

// Start begins the tick loop
func (r *Rink) Start() {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return
	}
	r.running = true
	r.mu.Unlock()

	r.ticker = time.NewTicker(time.Second / time.Duration(r.tickRate))

	go func() {
		for {
			select {
			case <-r.ticker.C:
				r.Tick()
			case <-r.stopChan:
				return
			}
		}
	}()

	log.Printf("🎮 Rink tick loop started at %d TPS", r.tickRate)
}

// Stop stops the tick loop
func (r *Rink) Stop() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.running {
		return
	}
	r.running = false
	if r.ticker != nil {
		r.ticker.Stop()
	}
	close(r.stopChan)
	log.Println("🛑 Rink tick loop stopped")
}

// Tick advances the world one step and runs the rule pipelines. Exposed so
// tests and drills can step deterministically without the wall-clock loop.
func (r *Rink) Tick() {
	started := time.Now()
	dt := 1.0 / float64(r.tickRate)

	// Integrate positions while holding the lock, then release it before
	// invoking the engine: the engine reads the world back through the
	// rules.World interface.
	r.mu.Lock()
	r.tickCount++
	for _, p := range r.players {
		p.Position.X += p.Velocity.X * dt
		p.Position.Y += p.Velocity.Y * dt
		p.Position.Z += p.Velocity.Z * dt
	}
	if r.puck.spawned {
		if r.puck.controller != "" {
			// Carried puck rides on the controller's stick
			if carrier, ok := r.players[r.puck.controller]; ok {
				r.puck.position = carrier.Position
			}
		} else {
			r.puck.position.X += r.puck.velocity.X * dt
			r.puck.position.Y += r.puck.velocity.Y * dt
			r.puck.position.Z += r.puck.velocity.Z * dt
		}
	}
	r.mu.Unlock()

	if r.engine != nil {
		puck := r.Puck()
		if violation := r.engine.CheckForOffside(puck); violation != nil {
			r.applyFaceoff(violation.FaceoffLocation)
		} else if goal := r.engine.CheckForGoal(puck); goal != nil {
			r.applyFaceoff(rink.CenterFaceoff())
		}
	}

	if r.OnTick != nil {
		r.OnTick(time.Since(started))
	}
}

// applyFaceoff is the stoppage choreography owned by the tick driver:
// freeze the puck on the spot, release possession, then reset the engine
// with the spot so the reposition never reads as a crossing.
func (r *Rink) applyFaceoff(spot rink.Position) {
	r.mu.Lock()
	r.puck.position = spot
	r.puck.velocity = rink.Position{}
	r.puck.controller = ""
	r.mu.Unlock()

	r.engine.ResetAfterFaceoff(&spot)
}

// --- snapshots for the API / renderer ---

// Snapshot is an immutable copy of the world for rendering and the API
type Snapshot struct {
	Players   []Player                    `json:"players"`
	Puck      PuckSnapshot                `json:"puck"`
	Phase     string                      `json:"phase"`
	TickCount int64                       `json:"tickCount"`
	Tracked   []rules.DelayedOffsideEntry `json:"tracked"`
}

// PuckSnapshot is the puck's portion of a snapshot
type PuckSnapshot struct {
	Position   rink.Position `json:"position"`
	Spawned    bool          `json:"spawned"`
	Controller string        `json:"controller,omitempty"`
	LastTouch  string        `json:"lastTouch,omitempty"`
}

// Snapshot copies the current world state
func (r *Rink) Snapshot() Snapshot {
	r.mu.RLock()
	players := make([]Player, 0, len(r.players))
	for _, p := range r.players {
		players = append(players, *p)
	}
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })
	snap := Snapshot{
		Players:   players,
		TickCount: r.tickCount,
		Phase:     r.phase.String(),
		Puck: PuckSnapshot{
			Position:   r.puck.position,
			Spawned:    r.puck.spawned,
			Controller: r.puck.controller,
			LastTouch:  r.puck.lastTouch,
		},
	}
	r.mu.RUnlock()

	if r.engine != nil {
		snap.Tracked = r.engine.DebugInfo().TrackedPlayers
	}
	return snap
}
