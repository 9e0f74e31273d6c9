package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
	"unicode/utf8"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/harrylevesque/forgaile/internal/models"
	"github.com/harrylevesque/forgaile/internal/sequencer"
	"github.com/harrylevesque/forgaile/internal/session"
	"github.com/harrylevesque/forgaile/internal/utils"
)

// sseHeartbeatInterval keeps idle streams open through proxies.
var sseHeartbeatInterval = 15 * time.Second

type createSessionResponse struct {
	ID       string          `json:"id"`
	Snapshot models.Snapshot `json:"snapshot"`
}

func (h *handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	visitor := h.visitor(w, r)
	s, err := h.Hub.Create(r.Context(), visitor)
	if err != nil {
		if errors.Is(err, session.ErrClosed) {
			h.writeError(w, r, utils.Wrap(http.StatusServiceUnavailable, "shutting down", err))
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, createSessionResponse{ID: s.ID(), Snapshot: s.Snapshot()})
}

// lookup returns the caller's own session. Sessions of other visitors are reported as missing.
func (h *handler) lookup(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	s, err := h.Hub.Get(mux.Vars(r)["id"])
	if err != nil || s.Scope() != h.visitor(w, r) {
		h.writeError(w, r, utils.New(http.StatusNotFound, "session not found"))
		return nil, false
	}
	return s, true
}

func (h *handler) GetSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

func (h *handler) DeleteSession(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	if err := h.Hub.Remove(s.ID()); err != nil {
		h.writeError(w, r, utils.Wrap(http.StatusNotFound, "session not found", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// EventRequest is a visitor input forwarded to the sequencer.
type EventRequest struct {
	Type  string `json:"type"`
	Char  string `json:"char,omitempty"`
	Text  string `json:"text,omitempty"`
	Slot  int    `json:"slot,omitempty"`
	Sound bool   `json:"sound,omitempty"`
}

// Event maps the request onto a sequencer event.
func (e EventRequest) Event() (sequencer.Event, error) {
	switch e.Type {
	case "start":
		return sequencer.Start{Sound: e.Sound}, nil
	case "key":
		r, size := utf8.DecodeRuneInString(e.Char)
		if size == 0 || r == utf8.RuneError {
			return nil, errors.New("key event needs a char")
		}
		return sequencer.Key{Char: r}, nil
	case "backspace":
		return sequencer.Backspace{}, nil
	case "paste":
		return sequencer.Paste{Text: e.Text}, nil
	case "focus":
		return sequencer.Focus{Slot: e.Slot}, nil
	case "respond":
		return sequencer.Respond{}, nil
	default:
		return nil, fmt.Errorf("unknown event type %q", e.Type)
	}
}

func (h *handler) PostEvent(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	var req EventRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4<<10)).Decode(&req); err != nil {
		h.writeError(w, r, utils.Wrap(http.StatusBadRequest, "invalid event body", err))
		return
	}
	ev, err := req.Event()
	if err != nil {
		h.writeError(w, r, utils.Wrap(http.StatusBadRequest, err.Error(), err))
		return
	}
	if err := s.Dispatch(r.Context(), ev); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			h.writeError(w, r, utils.Wrap(http.StatusNotFound, "session not found", err))
			return
		}
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.Snapshot())
}

// Stream sends "state" events with snapshots and "cue" events until the client leaves or the
// session is unmounted.
func (h *handler) Stream(w http.ResponseWriter, r *http.Request) {
	s, ok := h.lookup(w, r)
	if !ok {
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.writeError(w, r, utils.New(http.StatusInternalServerError, "streaming unsupported"))
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub, unsubscribe := s.Subscribe()
	defer unsubscribe()

	ticker := time.NewTicker(sseHeartbeatInterval)
	defer ticker.Stop()

	ctx := r.Context()
	for {
		var err error
		select {
		case <-ctx.Done():
			return
		case <-sub.Done():
			return
		case <-ticker.C:
			_, err = fmt.Fprint(w, ": ping\n\n")
		case snap := <-sub.States():
			err = writeEvent(w, "state", snap)
		case cue := <-sub.Cues():
			err = writeEvent(w, "cue", cue)
		}
		if err != nil {
			h.log.Debug("stream closed", zap.String("session", s.ID()), zap.Error(err))
			return
		}
		flusher.Flush()
	}
}

func writeEvent(w http.ResponseWriter, event string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, data)
	return err
}
