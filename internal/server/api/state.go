package api

import (
	"encoding/json"
	"errors"
	"io/fs"
	"net/http"
	"time"

	"github.com/ayusman/gesturepi/internal/gesture"
	"github.com/ayusman/gesturepi/internal/publish"
	"github.com/ayusman/gesturepi/internal/store"
)

// StateHandler serves the currently published gesture state and lets an
// operator inject one through the same publisher the detection loop uses.
type StateHandler struct {
	path      string
	publisher publish.StatePublisher
	onPublish func(*store.Transition)
}

// NewStateHandler creates a handler reading the state file at path. A nil
// publisher makes the state read-only. onPublish, if set, is called after a
// manual publication changed the state.
func NewStateHandler(path string, publisher publish.StatePublisher, onPublish func(*store.Transition)) *StateHandler {
	return &StateHandler{
		path:      path,
		publisher: publisher,
		onPublish: onPublish,
	}
}

type stateResponse struct {
	State gesture.State `json:"state"`
	Code  string        `json:"code"`
}

type putStateRequest struct {
	State *gesture.State `json:"state"`
}

type putStateResponse struct {
	stateResponse
	Changed bool `json:"changed"`
}

func newStateResponse(s gesture.State) stateResponse {
	return stateResponse{State: s, Code: string(s.Code())}
}

// ServeHTTP implements the http.Handler interface.
func (h *StateHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.get(w, r)
	case http.MethodPut:
		if h.publisher == nil {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		h.put(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// get handles GET /api/state.
func (h *StateHandler) get(w http.ResponseWriter, r *http.Request) {
	state, err := publish.Read(r.Context(), h.path)
	if err != nil {
		switch {
		case errors.Is(err, fs.ErrNotExist):
			writeError(w, http.StatusNotFound, "No state published yet")
		case errors.Is(err, publish.ErrInvalidRecord):
			writeError(w, http.StatusInternalServerError, "State file holds an invalid record")
		case errors.Is(err, publish.ErrLockTimeout):
			writeError(w, http.StatusServiceUnavailable, "State file is locked")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to read state")
		}
		return
	}

	writeJSON(w, http.StatusOK, newStateResponse(state))
}

// put handles PUT /api/state with a body like {"state":"open_hand"} or {"state":"2"}.
func (h *StateHandler) put(w http.ResponseWriter, r *http.Request) {
	var req putStateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if errors.Is(err, gesture.ErrUnknownState) {
			writeError(w, http.StatusBadRequest, "Unknown state")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.State == nil {
		writeError(w, http.StatusBadRequest, "State is required")
		return
	}
	state := *req.State

	prev, prevErr := publish.Read(r.Context(), h.path)

	if err := h.publisher.Publish(r.Context(), state); err != nil {
		if errors.Is(err, publish.ErrLockTimeout) {
			writeError(w, http.StatusServiceUnavailable, "State file is locked")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to publish state")
		return
	}

	changed := prevErr != nil || prev != state
	if changed && h.onPublish != nil {
		h.onPublish(&store.Transition{
			From:      prev,
			To:        state,
			Initial:   prevErr != nil,
			Source:    store.SourceManual,
			CreatedAt: time.Now(),
		})
	}

	writeJSON(w, http.StatusOK, putStateResponse{stateResponse: newStateResponse(state), Changed: changed})
}
