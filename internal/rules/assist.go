package rules

import (
	"time"

	"ice-ref/internal/rink"
)

const (
	// AssistWindow is the hard recency filter on touch history
	AssistWindow = 45 * time.Second

	// PrimaryAssistWindow is the tighter window for the primary assist
	PrimaryAssistWindow = 30 * time.Second
)

// Assists holds the attribution result for a goal. Empty ids mean the slot
// was not filled.
type Assists struct {
	Primary   string `json:"primary,omitempty"`
	Secondary string `json:"secondary,omitempty"`
}

// ResolveAssists walks the puck's touch history (most recent first) and
// fills at most two assist slots. Own goals never produce assists. Ties are
// broken purely by recency order in the log - no score or proximity
// weighting.
func ResolveAssists(history []TouchEntry, scorerID string, scoringTeam rink.Team, isOwnGoal bool, world World, now time.Time) Assists {
	var out Assists
	if isOwnGoal {
		return out
	}

	credited := map[string]bool{scorerID: true}
	for _, touch := range history {
		age := now.Sub(touch.Timestamp)
		if age > AssistWindow {
			continue
		}
		if credited[touch.PlayerID] {
			continue
		}
		a, ok := world.Assignment(touch.PlayerID)
		if !ok || a.Team != scoringTeam {
			continue // opponents and unknown players never earn assists
		}

		if out.Primary == "" && age <= PrimaryAssistWindow {
			out.Primary = touch.PlayerID
			credited[touch.PlayerID] = true
			continue
		}
		if out.Secondary == "" {
			out.Secondary = touch.PlayerID
			credited[touch.PlayerID] = true
		}
		if out.Primary != "" && out.Secondary != "" {
			break
		}
	}
	return out
}
