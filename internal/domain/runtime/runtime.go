// Package runtime models the per-order FSM runtime row and its lifecycle
// log chain — the persisted half of the orchestrator (internal/domain/fsm
// holds the pure transition table; internal/usecases/orchestrator drives
// it).
package runtime

import (
	"time"

	"github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
)

// GatewayContext is the optional bundle populated by the saga handler on
// each gateway round trip. The three context fields on FSMRuntime
// (payment/fiscal/printing) share this shape.
type GatewayContext struct {
	SessionID          string
	DeviceID           string
	StartedAt          time.Time
	ResponseAt         time.Time
	ResultCode         string
	ResultDescription  string
	TransactionID      string
}

// FSMRuntime is one-to-one with Order. Only the orchestrator writes it:
// CurrentState on each transition, and the context bundles from the event
// data the saga handler passes to Submit.
type FSMRuntime struct {
	ID               int64
	OrderID          int64
	CurrentState     fsm.State
	PaymentContext   *GatewayContext
	FiscalContext    *GatewayContext
	PrintingContext  *GatewayContext
	PickupNumber     string
	PinCode          string
	Version          int
}

// ActorType discriminates who drove a lifecycle transition.
type ActorType string

const (
	ActorCustomer     ActorType = "CUSTOMER"
	ActorPOSTerminal  ActorType = "POS_TERMINAL"
	ActorFiscalDevice ActorType = "FISCAL_DEVICE"
	ActorPrinter      ActorType = "PRINTER"
	ActorKitchen      ActorType = "KITCHEN"
	ActorSystem       ActorType = "SYSTEM"
)

// LifecycleLog is an append-only record of one FSM transition attempt,
// successful or rejected. A rejected (invalid) transition is logged with
// FromState == ToState and the rejected TriggerEvent; a recovery entry also
// has FromState == ToState but no TriggerEvent.
type LifecycleLog struct {
	ID            int64
	OrderID       int64
	FSMRuntimeID  int64
	FromState     fsm.State
	ToState       fsm.State
	TriggerEvent  *fsm.Event
	ActorType     ActorType
	ActorID       string
	Comment       string
	EventCreatedAt time.Time
}

// IsRejection reports whether this entry records an invalid-transition
// attempt rather than a real state change.
func (l LifecycleLog) IsRejection() bool {
	return l.FromState == l.ToState && l.TriggerEvent != nil
}
