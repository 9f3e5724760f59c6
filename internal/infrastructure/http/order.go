package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain/order"
	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
	orderusecase "github.com/shortlink-org/kiosk-oms/internal/usecases/order"
	"github.com/shortlink-org/kiosk-oms/internal/usecases/saga"
)

// CommandDispatcher is the command endpoint's narrow view of the saga.
type CommandDispatcher interface {
	HandleCommand(ctx context.Context, o saga.OrderView, command, actorID string) (bool, error)
}

// OrderHandler serves the three order-shaped kiosk endpoints: create,
// command, and read.
type OrderHandler struct {
	store    *orderusecase.Store
	runtimes ports.RuntimeRepository
	orders   ports.OrderRepository
	dispatch CommandDispatcher
	log      logger.Logger
}

func NewOrderHandler(store *orderusecase.Store, runtimes ports.RuntimeRepository, orders ports.OrderRepository, dispatch CommandDispatcher, log logger.Logger) *OrderHandler {
	return &OrderHandler{store: store, runtimes: runtimes, orders: orders, dispatch: dispatch, log: log}
}

type createOrderLine struct {
	ItemID   string `json:"item_id"`
	Quantity int32  `json:"quantity"`
	Wishes   string `json:"wishes,omitempty"`
}

type createOrderRequest struct {
	Items      []createOrderLine `json:"items"`
	Currency   string            `json:"currency"`
	CustomerID string            `json:"customer_id,omitempty"`
	SessionID  string            `json:"session_id,omitempty"`
}

type createOrderResponse struct {
	OrderID          int64        `json:"order_id"`
	Status           order.Status `json:"status"`
	PickupNumber     string       `json:"pickup_number"`
	PinCode          string       `json:"pin_code"`
	TotalAmountGross string       `json:"total_amount_gross"`
	Currency         string       `json:"currency"`
}

// CreateOrder handles POST /api/kiosk/orders. The kiosk channel is taken
// from the X-Kiosk-Username header set by the authenticated kiosk session.
func (h *OrderHandler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	kiosk := r.Header.Get("X-Kiosk-Username")
	if kiosk == "" {
		http.Error(w, "missing kiosk identity", http.StatusUnauthorized)
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	lines := make([]orderusecase.RequestedLine, 0, len(req.Items))

	for _, it := range req.Items {
		itemID, err := uuid.Parse(it.ItemID)
		if err != nil {
			http.Error(w, "invalid item_id", http.StatusBadRequest)
			return
		}

		lines = append(lines, orderusecase.RequestedLine{ItemID: itemID, Quantity: it.Quantity, Wishes: it.Wishes})
	}

	createReq := orderusecase.CreateRequest{
		Lines:    lines,
		Currency: req.Currency,
		Kiosk:    kiosk,
	}

	if req.CustomerID != "" {
		customerID, err := uuid.Parse(req.CustomerID)
		if err != nil {
			http.Error(w, "invalid customer_id", http.StatusBadRequest)
			return
		}

		createReq.CustomerID = &customerID
	}

	if req.SessionID != "" {
		createReq.SessionID = &req.SessionID
	}

	result, err := h.store.Create(r.Context(), createReq)
	if err != nil {
		writeCreateOrderError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(createOrderResponse{
		OrderID:          result.OrderID,
		Status:           result.Status,
		PickupNumber:     result.PickupNumber,
		PinCode:          result.PinCode,
		TotalAmountGross: result.TotalGross,
		Currency:         result.Currency,
	})
}

func writeCreateOrderError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, orderusecase.ErrItemNotFound),
		errors.Is(err, orderusecase.ErrItemInactive),
		errors.Is(err, orderusecase.ErrInsufficientQty),
		errors.Is(err, order.ErrItemsEmpty):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

// GetOrder handles GET /api/kiosk/orders/{order_id}.
func (h *OrderHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromPath(r.URL.Path, "/api/kiosk/orders/")
	if !ok {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	o, err := h.store.Get(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(o)
}

type commandRequest struct {
	Action      string         `json:"action"`
	OperationID string         `json:"operation_id,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type commandResponse struct {
	Ack         bool   `json:"ack"`
	State       string `json:"state"`
	Message     string `json:"message"`
	OperationID string `json:"operation_id,omitempty"`
}

// HandleCommand handles POST /api/kiosk/orders/{order_id}/commands.
func (h *OrderHandler) HandleCommand(w http.ResponseWriter, r *http.Request) {
	orderID, ok := orderIDFromPath(r.URL.Path, "/api/kiosk/orders/")
	if !ok {
		http.Error(w, "invalid order id", http.StatusBadRequest)
		return
	}

	var req commandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	runtimeRow, err := h.runtimes.Load(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			http.Error(w, "order not found", http.StatusNotFound)
			return
		}

		http.Error(w, "internal error", http.StatusInternalServerError)

		return
	}

	o, err := h.orders.Load(r.Context(), orderID)
	if err != nil {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	actorID := r.Header.Get("X-Customer-ID")

	ack, err := h.dispatch.HandleCommand(r.Context(), saga.OrderView{
		OrderID:      orderID,
		CurrentState: runtimeRow.CurrentState,
		KioskChannel: o.KioskUsername,
	}, req.Action, actorID)
	if err != nil {
		h.log.Warn("http: command rejected", slog.Int64("order_id", orderID), slog.String("action", req.Action), slog.String("error", err.Error()))
		http.Error(w, err.Error(), http.StatusBadRequest)

		return
	}

	message := "accepted"
	if !ack {
		message = "command has no effect in the order's current state"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(commandResponse{
		Ack:         ack,
		State:       string(runtimeRow.CurrentState),
		Message:     message,
		OperationID: req.OperationID,
	})
}

func orderIDFromPath(path, prefix string) (int64, bool) {
	rest := strings.TrimPrefix(path, prefix)
	rest = strings.TrimSuffix(rest, "/commands")
	rest = strings.Trim(rest, "/")

	id, err := strconv.ParseInt(rest, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}

	return id, true
}
