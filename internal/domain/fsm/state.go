// Package fsm declares the canonical order lifecycle: states, events, the
// transition table, per-state timeouts and retry policy. It wraps
// github.com/shortlink-org/go-sdk/fsm with the kiosk-specific rule set; no
// gateway or persistence concerns live here.
package fsm

import sdkfsm "github.com/shortlink-org/go-sdk/fsm"

// State is a canonical FSM state name.
type State string

const (
	StateInit                       State = "INIT"
	StateAwaitingPayment            State = "AWAITING_PAYMENT"
	StateAwaitingPrinting           State = "AWAITING_PRINTING"
	StateAwaitingKDS                State = "AWAITING_KDS"
	StateCanceledByUser             State = "CANCELED_BY_USER"
	StateCanceledByTimeout          State = "CANCELED_BY_TIMEOUT"
	StateUnsuccessfulPayment        State = "UNSUCCESSFUL_PAYMENT"
	StatePrintingFailed             State = "PRINTING_FAILED"
	StateSentToKDS                  State = "SENT_TO_KDS"
	StateSentToKDSFailed            State = "SENT_TO_KDS_FAILED"
	StateUnsuccessfulFiscalization  State = "UNSUCCESSFUL_FISCALIZATION"
)

// Event is a canonical FSM trigger name.
type Event string

const (
	EventFiscalizationSucceeded Event = "FISCALIZATION_SUCCEEDED"
	EventFiscalizationFailed    Event = "FISCALIZATION_FAILED"
	EventPaymentSucceeded       Event = "PAYMENT_SUCCEEDED"
	EventPaymentFailed          Event = "PAYMENT_FAILED"
	EventUserCanceled           Event = "USER_CANCELED"
	EventInactivityTimeout      Event = "INACTIVITY_TIMEOUT"
	EventPrintingSucceeded      Event = "PRINTING_SUCCEEDED"
	EventPrintingFailedOrTimeout Event = "PRINTING_FAILED_OR_TIMEOUT"
	EventKDSConfirmation        Event = "KDS_CONFIRMATION"
	EventKDSErrorOrNoResponse   Event = "KDS_ERROR_OR_NO_RESPONSE"

	// EventPaymentRetry starts a fresh payment session from UNSUCCESSFUL_PAYMENT.
	EventPaymentRetry Event = "PAYMENT_RETRY"
)

// sdkState/sdkEvent adapt our typed names to the go-sdk/fsm primitive types.
func sdkState(s State) sdkfsm.State { return sdkfsm.State(s) }
func sdkEvent(e Event) sdkfsm.Event { return sdkfsm.Event(e) }

// transitionKey identifies a (from, event) pair in the transition table.
type transitionKey struct {
	from  State
	event Event
}

// transitions is the exhaustive, authoritative transition table. Any (from,
// event) pair absent from this map is an invalid transition.
var transitions = map[transitionKey]State{
	{StateInit, EventFiscalizationSucceeded}: StateAwaitingPayment,
	{StateInit, EventFiscalizationFailed}:    StateUnsuccessfulFiscalization,

	{StateAwaitingPayment, EventPaymentSucceeded}:  StateAwaitingPrinting,
	{StateAwaitingPayment, EventUserCanceled}:      StateCanceledByUser,
	{StateAwaitingPayment, EventInactivityTimeout}: StateCanceledByTimeout,
	{StateAwaitingPayment, EventPaymentFailed}:     StateUnsuccessfulPayment,

	{StateAwaitingPrinting, EventPrintingSucceeded}:       StateAwaitingKDS,
	{StateAwaitingPrinting, EventPrintingFailedOrTimeout}: StatePrintingFailed,

	{StateAwaitingKDS, EventKDSConfirmation}:      StateSentToKDS,
	{StateAwaitingKDS, EventKDSErrorOrNoResponse}: StateSentToKDSFailed,

	// A retry re-enters AWAITING_PAYMENT from the terminal failure state via
	// its own event rather than reusing PAYMENT_FAILED.
	{StateUnsuccessfulPayment, EventPaymentRetry}: StateAwaitingPayment,
}

// terminalStates end an order's normal flow. None has an outgoing
// transition except UNSUCCESSFUL_PAYMENT, which PAYMENT_RETRY returns to
// AWAITING_PAYMENT.
var terminalStates = map[State]bool{
	StateCanceledByUser:            true,
	StateCanceledByTimeout:         true,
	StateUnsuccessfulPayment:       true,
	StatePrintingFailed:            true,
	StateSentToKDS:                 true,
	StateSentToKDSFailed:           true,
	StateUnsuccessfulFiscalization: true,
}

// timeoutSeconds are the advisory per-state timer durations in seconds,
// keyed by state.
var timeoutSeconds = map[State]int{
	StateAwaitingPayment:  180,
	StateAwaitingPrinting: 60,
	StateAwaitingKDS:      20,
}

// retryAllowed is the policy bit consulted by the command endpoint for
// RETRY_* actions.
var retryAllowed = map[State]bool{
	StateAwaitingPayment:     true,
	StateUnsuccessfulPayment: true,
	StateAwaitingPrinting:    true,
	StatePrintingFailed:      true,
	StateAwaitingKDS:         false,
	StateSentToKDSFailed:     false,
}

// aliases maps historical misspellings/variants observed in older clients
// and persisted data onto canonical names.
var aliases = map[string]State{
	"PAYMENT_FAILD":          StateUnsuccessfulPayment,
	"AWAITING PAYMENT":       StateAwaitingPayment,
	"UNSUCCESSFULL_PAYMENT":  StateUnsuccessfulPayment,
	"AWAITING_PAYMENTS":      StateAwaitingPayment,
	"SENT_TO_KDS_FAIL":       StateSentToKDSFailed,
	"CANCELLED_BY_USER":      StateCanceledByUser,
	"CANCELLED_BY_TIMEOUT":   StateCanceledByTimeout,
}

var eventAliases = map[string]Event{
	"PAYMENT_FAILD_EVENT":    EventPaymentFailed,
	"INACTIVITY_TIME_OUT":    EventInactivityTimeout,
	"USER_CANCELLED":         EventUserCanceled,
	"KDS_CONFIRM":            EventKDSConfirmation,
	"KDS_ERROR_OR_NORESPONSE": EventKDSErrorOrNoResponse,
}

// NormalizeState resolves a possibly-historical state string to its
// canonical State. Returns ok=false for anything not recognized even after
// alias resolution.
func NormalizeState(raw string) (State, bool) {
	s := State(raw)
	if _, known := allStates()[s]; known {
		return s, true
	}

	if canon, found := aliases[raw]; found {
		return canon, true
	}

	return "", false
}

// NormalizeEvent resolves a possibly-historical event string to its
// canonical Event.
func NormalizeEvent(raw string) (Event, bool) {
	e := Event(raw)
	if _, known := allEvents()[e]; known {
		return e, true
	}

	if canon, found := eventAliases[raw]; found {
		return canon, true
	}

	return "", false
}

func allStates() map[State]bool {
	set := map[State]bool{
		StateInit: true, StateAwaitingPayment: true, StateAwaitingPrinting: true,
		StateAwaitingKDS: true,
	}
	for s := range terminalStates {
		set[s] = true
	}

	return set
}

func allEvents() map[Event]bool {
	set := make(map[Event]bool)
	for k := range transitions {
		set[k.event] = true
	}

	return set
}

// IsTerminal reports whether a state is in terminalStates.
func IsTerminal(s State) bool {
	return terminalStates[s]
}

// TimeoutSeconds returns the advisory timer duration for a state, and
// whether the state carries a configured timeout at all.
func TimeoutSeconds(s State) (int, bool) {
	d, ok := timeoutSeconds[s]
	return d, ok
}

// IsRetryAllowed reports whether a RETRY_* command is honored while an
// order sits in state s.
func IsRetryAllowed(s State) bool {
	return retryAllowed[s]
}

// Next looks up the transition table for (from, event). ok is false when
// the pair is not in the table, i.e. an invalid transition.
func Next(from State, event Event) (to State, ok bool) {
	to, ok = transitions[transitionKey{from, event}]
	return to, ok
}

// Validate walks the transition table and confirms every state and event it
// references is a recognized canonical name. cmd/main.go runs it once at
// process startup so a typo in the table fails fast instead of silently
// rejecting transitions at runtime.
func Validate() error {
	known := allStates()
	knownEvents := map[Event]bool{
		EventFiscalizationSucceeded: true, EventFiscalizationFailed: true,
		EventPaymentSucceeded: true, EventPaymentFailed: true,
		EventUserCanceled: true, EventInactivityTimeout: true,
		EventPrintingSucceeded: true, EventPrintingFailedOrTimeout: true,
		EventKDSConfirmation: true, EventKDSErrorOrNoResponse: true,
		EventPaymentRetry: true,
	}

	for key, to := range transitions {
		if !known[key.from] {
			return &InvalidTableError{Reason: "unknown from-state", Value: string(key.from)}
		}

		if !knownEvents[key.event] {
			return &InvalidTableError{Reason: "unknown event", Value: string(key.event)}
		}

		if !known[to] {
			return &InvalidTableError{Reason: "unknown to-state", Value: string(to)}
		}
	}

	return nil
}

// InvalidTableError reports a malformed transition table entry detected by
// Validate.
type InvalidTableError struct {
	Reason string
	Value  string
}

func (e *InvalidTableError) Error() string {
	return "fsm: invalid transition table: " + e.Reason + ": " + e.Value
}
