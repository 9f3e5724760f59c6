// Package http exposes the kiosk HTTP surface: order creation, the
// command endpoint, order reads, and the SSE event stream. Handlers are
// plain net/http with manual path parsing; no router dependency is
// introduced for this concern.
package http

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	logger "github.com/shortlink-org/go-sdk/logger"

	"github.com/shortlink-org/kiosk-oms/internal/domain/ports"
)

const heartbeatInterval = 15 * time.Second

// SSEHandler serves GET /api/kiosk/events: one long-lived stream per
// kiosk channel, multiplexing the bus subscription with a heartbeat
// comment. No history buffering — a client only sees events published
// after it subscribes.
type SSEHandler struct {
	bus ports.EventSubscriber
	log logger.Logger
}

func NewSSEHandler(bus ports.EventSubscriber, log logger.Logger) *SSEHandler {
	return &SSEHandler{bus: bus, log: log}
}

func (h *SSEHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	kioskChannel := r.URL.Query().Get("kiosk")
	if kioskChannel == "" {
		http.Error(w, "kiosk is required", http.StatusBadRequest)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	fmt.Fprint(w, "retry: 3000\n\n")
	flusher.Flush()

	events, unsubscribe := h.bus.Subscribe(r.Context(), kioskChannel)
	defer unsubscribe()

	h.log.Info("sse: client connected", slog.String("kiosk", kioskChannel))
	defer h.log.Info("sse: client disconnected", slog.String("kiosk", kioskChannel))

	ticker := time.NewTicker(heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return

		case event, open := <-events:
			if !open {
				return
			}

			payload, err := json.Marshal(event)
			if err != nil {
				h.log.Error("sse: marshal event failed", slog.String("error", err.Error()))
				continue
			}

			if _, err := fmt.Fprintf(w, "data: %s\n\n", payload); err != nil {
				return
			}

			flusher.Flush()

		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": ping\n\n"); err != nil {
				return
			}

			flusher.Flush()
		}
	}
}
