package sim

import (
	"testing"
	"time"

	"ice-ref/internal/rink"
	"ice-ref/internal/rules"
)

// TestAddPlayer tests roster management and the player cap
func TestAddPlayer(t *testing.T) {
	r := NewRink(30)

	p1, err := r.AddPlayer("p1", rink.TeamRed, rink.Position{Z: 1})
	if err != nil || p1 == nil {
		t.Fatalf("AddPlayer failed: %v", err)
	}

	// Adding the same id returns the existing player
	again, err := r.AddPlayer("p1", rink.TeamBlue, rink.Position{})
	if err != nil || again != p1 {
		t.Error("adding an existing id should return the existing player")
	}
	if again.Team != rink.TeamRed {
		t.Error("team assignment is immutable once made")
	}

	// Roster cap
	for i := 0; i < MaxPlayers; i++ {
		r.AddPlayer(string(rune('a'+i)), rink.TeamBlue, rink.Position{})
	}
	if _, err := r.AddPlayer("overflow", rink.TeamBlue, rink.Position{}); err == nil {
		t.Error("expected an error once the roster is full")
	}
}

// TestWorldInterface verifies the rules.World view over the rink
func TestWorldInterface(t *testing.T) {
	r := NewRink(30)
	r.AddPlayer("p1", rink.TeamRed, rink.Position{Z: 2})

	var world rules.World = r
	ids := world.ConnectedPlayers()
	if len(ids) != 1 || ids[0] != "p1" {
		t.Errorf("ConnectedPlayers = %v", ids)
	}

	a, ok := world.Assignment("p1")
	if !ok || a.Team != rink.TeamRed || a.Position.Z != 2 {
		t.Errorf("Assignment = %+v, %v", a, ok)
	}
	if _, ok := world.Assignment("nobody"); ok {
		t.Error("unknown player should not resolve")
	}

	if world.Phase() != rules.PhaseWarmup {
		t.Error("fresh rink starts in warmup")
	}
	r.SetPhase(rules.PhaseInPeriod)
	if world.Phase() != rules.PhaseInPeriod {
		t.Error("SetPhase should be visible through the interface")
	}
}

// TestPuckPossession verifies control, release and touch recording
func TestPuckPossession(t *testing.T) {
	r := NewRink(30)
	r.AddPlayer("p1", rink.TeamRed, rink.Position{Z: 1})
	r.SpawnPuck(rink.Position{Z: 0})
	now := time.Now()

	puck := r.Puck()
	if _, controlled := puck.ControllingPlayer(); controlled {
		t.Error("fresh puck should be loose")
	}

	r.GiveControl("p1", now)
	if carrier, ok := puck.ControllingPlayer(); !ok || carrier != "p1" {
		t.Errorf("carrier = %q, %v", carrier, ok)
	}
	if last, ok := puck.LastTouchedBy(); !ok || last != "p1" {
		t.Errorf("last touch = %q, %v", last, ok)
	}

	// Control by an unknown player is ignored
	r.GiveControl("ghost", now)
	if carrier, _ := puck.ControllingPlayer(); carrier != "p1" {
		t.Error("unknown player must not gain control")
	}

	r.ReleaseControl()
	if _, controlled := puck.ControllingPlayer(); controlled {
		t.Error("release should leave the puck loose")
	}

	// Touch history is most recent first and capped
	for i := 0; i < MaxTouchHistory+5; i++ {
		r.RecordTouch("p1", now.Add(time.Duration(i)*time.Second))
	}
	history, err := puck.TouchHistory()
	if err != nil {
		t.Fatalf("TouchHistory: %v", err)
	}
	if len(history) != MaxTouchHistory {
		t.Errorf("history length = %d, want cap %d", len(history), MaxTouchHistory)
	}
	if !history[0].Timestamp.After(history[1].Timestamp) {
		t.Error("history should be most recent first")
	}
}

// TestTickIntegration verifies constant-velocity integration and the carried
// puck riding its controller
func TestTickIntegration(t *testing.T) {
	r := NewRink(10) // dt = 0.1
	r.AddPlayer("p1", rink.TeamRed, rink.Position{Z: 0})
	r.SetPlayerVelocity("p1", rink.Position{Z: 1})
	r.SpawnPuck(rink.Position{Z: 5})
	r.SetPuckVelocity(rink.Position{Z: -1})

	r.Tick()
	snap := r.Snapshot()
	if z := snap.Players[0].Position.Z; z < 0.09 || z > 0.11 {
		t.Errorf("player z after tick = %f, want ~0.1", z)
	}
	if z := snap.Puck.Position.Z; z < 4.89 || z > 4.91 {
		t.Errorf("puck z after tick = %f, want ~4.9", z)
	}

	// Carried puck follows the controller, ignoring its own velocity
	r.GiveControl("p1", time.Now())
	r.Tick()
	snap = r.Snapshot()
	if snap.Puck.Position != snap.Players[0].Position {
		t.Errorf("carried puck at %v, controller at %v", snap.Puck.Position, snap.Players[0].Position)
	}
}

// TestOffsideTriggersFaceoff verifies the stoppage choreography end to end:
// the tick loop applies the violation's faceoff spot and freezes the puck.
func TestOffsideTriggersFaceoff(t *testing.T) {
	r := NewRink(10)
	engine := rules.NewEngine(r)
	r.AttachEngine(engine)

	r.AddPlayer("attacker", rink.TeamRed, rink.Position{Z: 9})
	r.SetPhase(rules.PhaseInPeriod)
	r.SpawnPuck(rink.Position{Z: 6})
	r.SetPuckVelocity(rink.Position{Z: 6}) // 0.6 per tick toward the zone
	engine.StartMonitoring()

	// Drive ticks until the puck crosses the blue line near the attacker
	var violated bool
	for i := 0; i < 10; i++ {
		r.Tick()
		snap := r.Snapshot()
		if snap.Puck.Position.Z == 6 || snap.Puck.Position.X == -2 || snap.Puck.Position.X == 2 {
			violated = true
			break
		}
	}
	if !violated {
		t.Fatal("expected the puck repositioned to a neutral faceoff dot")
	}

	snap := r.Snapshot()
	if rink.ZoneFromPosition(snap.Puck.Position) != rink.ZoneNeutral {
		t.Errorf("faceoff spot not neutral: %v", snap.Puck.Position)
	}
	if snap.Puck.Controller != "" {
		t.Error("puck must be loose after the stoppage")
	}

	// Frozen: further ticks do not move it
	before := snap.Puck.Position
	r.Tick()
	if after := r.Snapshot().Puck.Position; after != before {
		t.Errorf("puck moved after the stoppage: %v -> %v", before, after)
	}
}

// TestSnapshotSorted verifies deterministic player ordering
func TestSnapshotSorted(t *testing.T) {
	r := NewRink(30)
	r.AddPlayer("zed", rink.TeamRed, rink.Position{})
	r.AddPlayer("amy", rink.TeamBlue, rink.Position{})
	r.AddPlayer("mid", rink.TeamRed, rink.Position{})

	snap := r.Snapshot()
	if len(snap.Players) != 3 {
		t.Fatalf("expected 3 players, got %d", len(snap.Players))
	}
	if snap.Players[0].ID != "amy" || snap.Players[2].ID != "zed" {
		t.Errorf("players not sorted by id: %v", snap.Players)
	}
}

// TestStartStop verifies the tick loop starts and stops without panics
func TestStartStop(t *testing.T) {
	r := NewRink(100)
	engine := rules.NewEngine(r)
	r.AttachEngine(engine)

	r.Start()
	time.Sleep(50 * time.Millisecond)
	r.Stop()
	r.Stop() // double stop is a no-op
}
