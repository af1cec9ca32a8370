package rink

import (
	"math"
	"testing"
	"time"
)

// TestZoneFromPosition verifies zone classification across the Z axis
func TestZoneFromPosition(t *testing.T) {
	tests := []struct {
		name string
		z    float64
		want Zone
	}{
		{"deep red end", -12, ZoneRedDefensive},
		{"just inside red zone", -6.6, ZoneRedDefensive},
		{"exactly on red blue line", -6.5, ZoneNeutral},
		{"center ice", 0, ZoneNeutral},
		{"exactly on blue blue line", 7.5, ZoneNeutral},
		{"just inside blue zone", 7.6, ZoneBlueDefensive},
		{"deep blue end", 13, ZoneBlueDefensive},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ZoneFromPosition(Position{Z: tt.z})
			if got != tt.want {
				t.Errorf("ZoneFromPosition(z=%.1f) = %s, want %s", tt.z, got, tt.want)
			}
		})
	}
}

// TestOffensiveZone verifies each team attacks into the opponent's end
func TestOffensiveZone(t *testing.T) {
	if OffensiveZone(TeamRed) != ZoneBlueDefensive {
		t.Error("red attacks the blue defensive zone")
	}
	if OffensiveZone(TeamBlue) != ZoneRedDefensive {
		t.Error("blue attacks the red defensive zone")
	}
}

// TestAttackingTeam verifies the inverse mapping and the neutral case
func TestAttackingTeam(t *testing.T) {
	if team, ok := AttackingTeam(ZoneRedDefensive); !ok || team != TeamBlue {
		t.Errorf("AttackingTeam(red zone) = %s, %v", team, ok)
	}
	if team, ok := AttackingTeam(ZoneBlueDefensive); !ok || team != TeamRed {
		t.Errorf("AttackingTeam(blue zone) = %s, %v", team, ok)
	}
	if _, ok := AttackingTeam(ZoneNeutral); ok {
		t.Error("neutral zone has no attacking team")
	}
}

// TestPlanarDistance verifies height is ignored
func TestPlanarDistance(t *testing.T) {
	a := Position{X: 0, Y: 0, Z: 0}
	b := Position{X: 3, Y: 99, Z: 4}
	if d := PlanarDistance(a, b); math.Abs(d-5) > 1e-9 {
		t.Errorf("PlanarDistance = %f, want 5", d)
	}
}

// TestInGoalMouth verifies the lateral and vertical goal-opening bounds
func TestInGoalMouth(t *testing.T) {
	tests := []struct {
		name string
		pos  Position
		want bool
	}{
		{"dead center", Position{X: 0, Y: 1, Z: -11.5}, true},
		{"at post", Position{X: 1.5, Y: 0.5, Z: -11.5}, true},
		{"wide of post", Position{X: 1.6, Y: 0.5, Z: -11.5}, false},
		{"over the bar", Position{X: 0, Y: 2.1, Z: -11.5}, false},
		{"below ice", Position{X: 0, Y: -0.1, Z: -11.5}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := InGoalMouth(tt.pos); got != tt.want {
				t.Errorf("InGoalMouth(%v) = %v, want %v", tt.pos, got, tt.want)
			}
		})
	}
}

// TestDetectBlueLineCrossing verifies crossing detection in both directions
func TestDetectBlueLineCrossing(t *testing.T) {
	var d CrossingDetector
	now := time.Now()

	tests := []struct {
		name     string
		prevZ    float64
		currZ    float64
		wantNil  bool
		wantZone Zone
		wantDir  Direction
		wantTeam Team
	}{
		{"into blue zone", 7.0, 8.0, false, ZoneBlueDefensive, DirectionIntoZone, TeamRed},
		{"out of blue zone", 8.0, 7.0, false, ZoneBlueDefensive, DirectionOutOfZone, TeamRed},
		{"into red zone", -6.0, -7.0, false, ZoneRedDefensive, DirectionIntoZone, TeamBlue},
		{"out of red zone", -7.0, -6.0, false, ZoneRedDefensive, DirectionOutOfZone, TeamBlue},
		{"no movement across", 0, 1, true, 0, 0, 0},
		{"within blue zone", 8.0, 9.0, true, 0, 0, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := d.Detect(Position{Z: tt.prevZ}, Position{Z: tt.currZ}, now)
			if tt.wantNil {
				if c != nil {
					t.Fatalf("expected no crossing, got %+v", c)
				}
				return
			}
			if c == nil {
				t.Fatal("expected a crossing, got nil")
			}
			if c.Zone != tt.wantZone || c.Direction != tt.wantDir || c.CrossingTeam != tt.wantTeam {
				t.Errorf("got zone=%s dir=%s team=%s, want zone=%s dir=%s team=%s",
					c.Zone, c.Direction, c.CrossingTeam, tt.wantZone, tt.wantDir, tt.wantTeam)
			}
		})
	}
}

// TestDetectBoundaryNoDoubleCount verifies a sample landing exactly on the
// line counts once and sitting on the line does not count again
func TestDetectBoundaryNoDoubleCount(t *testing.T) {
	var d CrossingDetector
	now := time.Now()

	// Approaching the line and landing exactly on it: no cross yet
	// (strict destination side).
	if c := d.Detect(Position{Z: 7.0}, Position{Z: 7.5}, now); c != nil {
		t.Errorf("landing on the line from outside should not cross, got %+v", c)
	}
	// Stepping off the line into the zone: exactly one cross.
	if c := d.Detect(Position{Z: 7.5}, Position{Z: 7.6}, now); c == nil {
		t.Error("stepping off the line into the zone should cross")
	}
	// Sitting on the line tick after tick: never a cross.
	if c := d.Detect(Position{Z: 7.5}, Position{Z: 7.5}, now); c != nil {
		t.Errorf("sitting on the line should not cross, got %+v", c)
	}
}

// TestDetectTeleportRejected verifies faceoff repositioning never reads as a
// crossing
func TestDetectTeleportRejected(t *testing.T) {
	var d CrossingDetector
	now := time.Now()

	// Jump from deep red end across both blue lines
	if c := d.Detect(Position{Z: -10}, Position{Z: 10}, now); c != nil {
		t.Errorf("teleport should not produce a crossing, got %+v", c)
	}
	if d.DetectGoalLine(ZoneBlueDefensive, Position{Z: 0}, Position{Z: 13}) {
		t.Error("teleport should not produce a goal-line crossing")
	}
}

// TestDetectGoalLine verifies goal-line crossing with the mouth constraint
func TestDetectGoalLine(t *testing.T) {
	var d CrossingDetector

	tests := []struct {
		name string
		zone Zone
		prev Position
		curr Position
		want bool
	}{
		{"into red net", ZoneRedDefensive, Position{Z: -11.0}, Position{X: 0, Y: 1, Z: -12.0}, true},
		{"into blue net", ZoneBlueDefensive, Position{Z: 12.0}, Position{X: 0, Y: 1, Z: 13.0}, true},
		{"wide of red net", ZoneRedDefensive, Position{Z: -11.0}, Position{X: 3, Y: 1, Z: -12.0}, false},
		{"over red net", ZoneRedDefensive, Position{Z: -11.0}, Position{X: 0, Y: 3, Z: -12.0}, false},
		{"wrong direction", ZoneRedDefensive, Position{Z: -12.0}, Position{X: 0, Y: 1, Z: -12.5}, false},
		{"exactly on line", ZoneRedDefensive, Position{Z: -11.0}, Position{X: 0, Y: 1, Z: -11.5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := d.DetectGoalLine(tt.zone, tt.prev, tt.curr); got != tt.want {
				t.Errorf("DetectGoalLine(%s, %v -> %v) = %v, want %v",
					tt.zone, tt.prev, tt.curr, got, tt.want)
			}
		})
	}
}

// TestNearestNeutralFaceoff verifies the restart spot selection
func TestNearestNeutralFaceoff(t *testing.T) {
	// Violation on the left side of the blue zone entry
	spot := NearestNeutralFaceoff(ZoneBlueDefensive, Position{X: -3, Z: 8})
	if spot.X != -2 || spot.Z != 6 {
		t.Errorf("expected left blue-side dot, got %v", spot)
	}

	// Violation on the right side of the red zone entry
	spot = NearestNeutralFaceoff(ZoneRedDefensive, Position{X: 4, Z: -7})
	if spot.X != 2 || spot.Z != -5 {
		t.Errorf("expected right red-side dot, got %v", spot)
	}

	// Restart dots are always in the neutral zone
	for _, zone := range []Zone{ZoneRedDefensive, ZoneBlueDefensive} {
		spot := NearestNeutralFaceoff(zone, Position{})
		if ZoneFromPosition(spot) != ZoneNeutral {
			t.Errorf("restart dot for %s is not neutral: %v", zone, spot)
		}
	}
}

// TestAllFaceoffPositions verifies the full dot inventory
func TestAllFaceoffPositions(t *testing.T) {
	dots := AllFaceoffPositions()
	if len(dots) != 9 {
		t.Fatalf("expected 9 faceoff dots, got %d", len(dots))
	}
	if dots[0] != CenterFaceoff() {
		t.Error("first dot should be center ice")
	}
}

// TestTeamParsing verifies string round trips for teams and phases
func TestTeamParsing(t *testing.T) {
	for _, team := range []Team{TeamRed, TeamBlue} {
		parsed, ok := ParseTeam(team.String())
		if !ok || parsed != team {
			t.Errorf("ParseTeam(%q) = %v, %v", team.String(), parsed, ok)
		}
	}
	if _, ok := ParseTeam("green"); ok {
		t.Error("unknown team name should not parse")
	}
	if TeamRed.Opponent() != TeamBlue || TeamBlue.Opponent() != TeamRed {
		t.Error("Opponent should swap teams")
	}
}
