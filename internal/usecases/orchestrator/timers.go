package orchestrator

import (
	"sync"
	"time"

	"github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
)

// timerFireEvent names the event a state's advisory timer submits if it
// fires. AWAITING_PRINTING is filled in here as PRINTING_FAILED_OR_TIMEOUT,
// consistent with the FSM timer acting as a safety net for a state whose
// saga step deadline is otherwise authoritative. See DESIGN.md.
var timerFireEvent = map[fsm.State]fsm.Event{
	fsm.StateAwaitingPayment:  fsm.EventInactivityTimeout,
	fsm.StateAwaitingPrinting: fsm.EventPrintingFailedOrTimeout,
	fsm.StateAwaitingKDS:      fsm.EventKDSErrorOrNoResponse,
}

// timerTable holds at most one active *time.Timer per order_id. Arming
// replaces any existing timer for that order; Cancel is idempotent.
type timerTable struct {
	mu     sync.Mutex
	timers map[int64]*time.Timer
}

func newTimerTable() *timerTable {
	return &timerTable{timers: make(map[int64]*time.Timer)}
}

// Arm schedules fire to run after d, replacing any timer already armed for
// orderID.
func (t *timerTable) Arm(orderID int64, d time.Duration, fire func()) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[orderID]; ok {
		existing.Stop()
	}

	t.timers[orderID] = time.AfterFunc(d, fire)
}

// Cancel stops any timer armed for orderID. A timer that has already fired
// (its goroutine is in flight or done) is not retroactively suppressed
// here — that race is handled by Submit re-validating the transition
// against the current persisted state.
func (t *timerTable) Cancel(orderID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if existing, ok := t.timers[orderID]; ok {
		existing.Stop()
		delete(t.timers, orderID)
	}
}
