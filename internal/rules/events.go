package rules

import (
	"encoding/json"
	"time"

	"ice-ref/internal/rink"
)

// EventType classifies rule-engine events for the audit log
type EventType uint8

const (
	EventTypeUnknown EventType = iota
	EventTypeMonitorStart
	EventTypeMonitorStop
	EventTypeFaceoffReset
	EventTypeBlueLineCrossing
	EventTypeDelayedTrack
	EventTypeOffside
	EventTypeGoal
)

// EventVersion for backwards compatibility when replaying logs
const EventVersion uint8 = 1

// Event is one record in the rule-event log
type Event struct {
	Version   uint8     `json:"version"`
	Type      EventType `json:"type"`
	Timestamp int64     `json:"timestamp"` // Unix nano
	Sequence  uint64    `json:"sequence"`  // Monotonic sequence
	PlayerID  string    `json:"playerId,omitempty"`
	Payload   []byte    `json:"payload,omitempty"`
}

// String returns the human-readable event type
func (t EventType) String() string {
	switch t {
	case EventTypeMonitorStart:
		return "monitor_start"
	case EventTypeMonitorStop:
		return "monitor_stop"
	case EventTypeFaceoffReset:
		return "faceoff_reset"
	case EventTypeBlueLineCrossing:
		return "blue_line_crossing"
	case EventTypeDelayedTrack:
		return "delayed_track"
	case EventTypeOffside:
		return "offside"
	case EventTypeGoal:
		return "goal"
	default:
		return "unknown"
	}
}

// CrossingPayload records a blue-line crossing
type CrossingPayload struct {
	Zone         string        `json:"zone"`
	Direction    string        `json:"direction"`
	CrossingTeam string        `json:"crossingTeam"`
	PuckPosition rink.Position `json:"puckPosition"`
}

// OffsidePayload records an adjudicated violation
type OffsidePayload struct {
	Team            string        `json:"team"`
	PlayerIDs       []string      `json:"playerIds"`
	Zone            string        `json:"zone"`
	FaceoffLocation rink.Position `json:"faceoffLocation"`
	Delayed         bool          `json:"delayed"`
}

// GoalPayload records a validated goal
type GoalPayload struct {
	ScoringTeam     string `json:"scoringTeam"`
	IsOwnGoal       bool   `json:"isOwnGoal"`
	LastTouchedBy   string `json:"lastTouchedBy,omitempty"`
	PrimaryAssist   string `json:"primaryAssist,omitempty"`
	SecondaryAssist string `json:"secondaryAssist,omitempty"`
}

// FaceoffPayload records a faceoff reset
type FaceoffPayload struct {
	Location *rink.Position `json:"location,omitempty"`
}

// EncodePayload marshals a payload to JSON bytes
func EncodePayload(payload interface{}) []byte {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil
	}
	return data
}

// NewEvent creates an event stamped with the current time
func NewEvent(eventType EventType, playerID string, payload interface{}) Event {
	return Event{
		Version:   EventVersion,
		Type:      eventType,
		Timestamp: time.Now().UnixNano(),
		PlayerID:  playerID,
		Payload:   EncodePayload(payload),
	}
}
