package play

import (
	"github.com/MJE43/gridiron-dice/internal/match"
	"github.com/MJE43/gridiron-dice/internal/rules"
)

// EventType names something that happened during a play.
type EventType string

const (
	EventTouchdown       EventType = "TOUCHDOWN"
	EventSack            EventType = "SACK"
	EventStuffed         EventType = "STUFFED"
	EventShortGain       EventType = "SHORT_GAIN"
	EventChainMover      EventType = "CHAIN_MOVER"
	EventBigPlay         EventType = "BIG_PLAY"
	EventChaosRequired   EventType = "CHAOS_REQUIRED"
	EventChaos           EventType = "CHAOS"
	EventTurnover        EventType = "TURNOVER"
	EventTurnoverOnDowns EventType = "TURNOVER_ON_DOWNS"
)

// Event is one entry of the ordered event list returned with each resolution.
// Yards is set for SACK and the gain events, By for TOUCHDOWN and Result for CHAOS.
type Event struct {
	Type   EventType      `json:"type"`
	Yards  *int           `json:"yards,omitempty"`
	By     match.TeamID   `json:"by,omitempty"`
	Result rules.ChaosKey `json:"result,omitempty"`
}

func yardsEvent(t EventType, yards int) Event {
	return Event{Type: t, Yards: &yards}
}

// effectful lists the event types that carry a one-shot presentation effect.
var effectful = map[EventType]bool{
	EventTouchdown: true,
	EventSack:      true,
	EventStuffed:   true,
	EventBigPlay:   true,
	EventTurnover:  true,
	EventChaos:     true,
}

// Highlight returns the first event in the list that carries a presentation
// effect. At most one effect plays per resolution.
func Highlight(events []Event) (Event, bool) {
	for _, e := range events {
		if effectful[e.Type] {
			return e, true
		}
	}
	return Event{}, false
}

// Types lists the event types in order, mostly for logs and tests.
func Types(events []Event) []EventType {
	out := make([]EventType, len(events))
	for i, e := range events {
		out[i] = e.Type
	}
	return out
}
