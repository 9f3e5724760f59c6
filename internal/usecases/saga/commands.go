package saga

import (
	"context"
	"errors"

	domainfsm "github.com/shortlink-org/kiosk-oms/internal/domain/fsm"
	"github.com/shortlink-org/kiosk-oms/internal/domain/runtime"
)

// Command names accepted on the kiosk command endpoint.
const (
	CommandCancelOrder               = "CANCEL_ORDER"
	CommandRetryPayment              = "RETRY_PAYMENT"
	CommandRetryFiscalization        = "RETRY_FISCALIZATION"
	CommandRetryPrinting             = "RETRY_PRINTING"
	CommandChangeCard                = "CHANGE_CARD"
	CommandAcceptAlternativeReceipt  = "ACCEPT_ALTERNATIVE_RECEIPT"
	CommandDeclineAlternativeReceipt = "DECLINE_ALTERNATIVE_RECEIPT"
)

var ErrCommandNotRecognized = errors.New("saga: command not recognized")

// commandEvent maps a user command name to the event it submits.
// RETRY_FISCALIZATION and RETRY_PRINTING have no entry: the canonical
// vocabulary defines no re-entry event from UNSUCCESSFUL_FISCALIZATION or
// PRINTING_FAILED, only a retryAllowed policy bit, so HandleCommand honors
// the bit (the command is accepted rather than rejected as unrecognized)
// without inventing a transition the table does not define.
var commandEvent = map[string]domainfsm.Event{
	CommandCancelOrder:  domainfsm.EventUserCanceled,
	CommandRetryPayment: domainfsm.EventPaymentRetry,
}

// HandleCommand maps a kiosk-issued command to the event it submits to the
// FSM orchestrator, gated by the current state's retry policy. Returns
// ErrCommandNotRecognized only for a command name outside the kiosk
// command endpoint's vocabulary entirely.
//
// CHANGE_CARD, ACCEPT_ALTERNATIVE_RECEIPT, and DECLINE_ALTERNATIVE_RECEIPT
// are accepted command names but have no corresponding FSM transition or
// gateway behavior in this implementation: they return (false, nil), the
// same "recognized, not actionable right now" shape the retry-allowed
// check uses, rather than being rejected outright.
func (s *Saga) HandleCommand(ctx context.Context, o OrderView, command, actorID string) (bool, error) {
	switch command {
	case CommandCancelOrder, CommandRetryPayment:
		if command == CommandRetryPayment && !domainfsm.IsRetryAllowed(o.CurrentState) {
			return false, nil
		}

		event := commandEvent[command]
		return s.orch.Submit(ctx, o.OrderID, event, runtime.ActorCustomer, actorID, "kiosk command: "+command, nil, o.KioskChannel)
	case CommandRetryFiscalization, CommandRetryPrinting:
		return domainfsm.IsRetryAllowed(o.CurrentState), nil
	case CommandChangeCard, CommandAcceptAlternativeReceipt, CommandDeclineAlternativeReceipt:
		return false, nil
	default:
		return false, ErrCommandNotRecognized
	}
}

// OrderView is the minimal projection HandleCommand needs from the caller
// (the HTTP boundary layer), which already holds the FSMRuntime row from
// its own read of the command request.
type OrderView struct {
	OrderID      int64
	CurrentState domainfsm.State
	KioskChannel string
}
