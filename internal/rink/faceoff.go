package rink

// Faceoff spots. Restarts after a stoppage happen at one of these; offside
// calls go to a neutral-zone dot on the side of the blue line that was
// crossed.
var (
	centerFaceoff = Position{X: 0, Y: 0, Z: 0}

	// Neutral-zone dots, just outside each blue line
	redSideNeutralFaceoffs = [2]Position{
		{X: -2, Y: 0, Z: -5},
		{X: 2, Y: 0, Z: -5},
	}
	blueSideNeutralFaceoffs = [2]Position{
		{X: -2, Y: 0, Z: 6},
		{X: 2, Y: 0, Z: 6},
	}

	// End-zone dots, between blue line and goal line
	redEndFaceoffs = [2]Position{
		{X: -2, Y: 0, Z: -9.5},
		{X: 2, Y: 0, Z: -9.5},
	}
	blueEndFaceoffs = [2]Position{
		{X: -2, Y: 0, Z: 10.5},
		{X: 2, Y: 0, Z: 10.5},
	}
)

// CenterFaceoff returns the center-ice spot used after goals
func CenterFaceoff() Position {
	return centerFaceoff
}

// AllFaceoffPositions returns every faceoff spot on the rink.
// Read-only introspection for tooling; the slice is freshly allocated.
func AllFaceoffPositions() []Position {
	out := make([]Position, 0, 9)
	out = append(out, centerFaceoff)
	out = append(out, redSideNeutralFaceoffs[:]...)
	out = append(out, blueSideNeutralFaceoffs[:]...)
	out = append(out, redEndFaceoffs[:]...)
	out = append(out, blueEndFaceoffs[:]...)
	return out
}

// NearestNeutralFaceoff picks the neutral-zone dot for an offside restart:
// of the two dots outside the blue line of the zone that was entered, the
// one closest (planar) to where the puck was at violation time.
func NearestNeutralFaceoff(zone Zone, puck Position) Position {
	dots := blueSideNeutralFaceoffs
	if zone == ZoneRedDefensive {
		dots = redSideNeutralFaceoffs
	}
	if PlanarDistance(dots[0], puck) <= PlanarDistance(dots[1], puck) {
		return dots[0]
	}
	return dots[1]
}
