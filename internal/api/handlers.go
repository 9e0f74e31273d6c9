package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/files"
	"github.com/harrylevesque/forgaile/internal/notify"
	"github.com/harrylevesque/forgaile/internal/utils"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError renders err as {"error": message}.
func (h *handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	code, msg := utils.Status(err)
	if code >= http.StatusInternalServerError {
		h.log.Error("request failed", zap.String("path", r.URL.Path), zap.Error(err))
	}
	writeJSON(w, code, map[string]string{"error": msg})
}

// Notify sends the Telegram message on behalf of a caller.
func (h *handler) Notify(w http.ResponseWriter, r *http.Request) {
	if h.Notifier == nil {
		h.writeError(w, r, utils.New(http.StatusInternalServerError, notify.MissingConfigMessage))
		return
	}
	err := h.Notifier.Notify(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	case errors.Is(err, notify.ErrMissingConfig):
		h.writeError(w, r, utils.Wrap(http.StatusInternalServerError, notify.MissingConfigMessage, err))
	default:
		h.writeError(w, r, utils.Wrap(http.StatusBadGateway, notify.DeliveryFailedMessage, err))
	}
}

func (h *handler) GetBackground(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Background)
}

type ackResponse struct {
	Acknowledged bool `json:"acknowledged"`
}

func (h *handler) GetAck(w http.ResponseWriter, r *http.Request) {
	if h.Acks == nil {
		writeJSON(w, http.StatusOK, ackResponse{})
		return
	}
	visitor := h.visitor(w, r)
	ok, err := h.Acks.Acknowledged(r.Context(), files.Key(visitor))
	if err != nil {
		h.writeError(w, r, utils.Wrap(http.StatusInternalServerError, "could not read acknowledgement", err))
		return
	}
	writeJSON(w, http.StatusOK, ackResponse{Acknowledged: ok})
}

// ResetAck clears the visitor's flag so the respond action is offered again.
func (h *handler) ResetAck(w http.ResponseWriter, r *http.Request) {
	if h.Acks != nil {
		visitor := h.visitor(w, r)
		if err := h.Acks.Reset(r.Context(), files.Key(visitor)); err != nil {
			h.writeError(w, r, utils.Wrap(http.StatusInternalServerError, "could not reset acknowledgement", err))
			return
		}
		h.log.Info("acknowledgement reset", zap.String("visitor", visitor))
	}
	w.WriteHeader(http.StatusNoContent)
}
