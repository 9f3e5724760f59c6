package orchestrator

import "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"

// StateChanged is the orchestrator's sole published event shape. Field
// names and casing are part of the kiosk UI contract and must stay stable.
type StateChanged struct {
	Type          string    `json:"type"`
	OrderID       int64     `json:"order_id"`
	State         fsm.State `json:"state"`
	PreviousState fsm.State `json:"previous_state"`
	TriggerEvent  string    `json:"trigger_event"`
	IsTerminal    bool      `json:"is_terminal"`
	EventData     any       `json:"event_data,omitempty"`
}

func (StateChanged) EventType() string { return "STATE_CHANGED" }

func newStateChanged(orderID int64, from, to fsm.State, event fsm.Event, eventData any) StateChanged {
	return StateChanged{
		Type:          "STATE_CHANGED",
		OrderID:       orderID,
		State:         to,
		PreviousState: from,
		TriggerEvent:  string(event),
		IsTerminal:    fsm.IsTerminal(to),
		EventData:     eventData,
	}
}
