package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/ayusman/gesturepi/internal/store"
)

// MaxListLimit caps the limit query parameter.
const MaxListLimit = 1000

// TransitionHandler handles HTTP requests for the transition history.
type TransitionHandler struct {
	store *store.Store
}

// NewTransitionHandler creates a new TransitionHandler with the given store.
func NewTransitionHandler(s *store.Store) *TransitionHandler {
	return &TransitionHandler{store: s}
}

type listTransitionsResponse struct {
	Transitions []*store.Transition `json:"transitions"`
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *TransitionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	// Expected paths: /api/transitions or /api/transitions/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/transitions")
	path = strings.TrimPrefix(path, "/")

	switch path {
	case "":
		h.list(w, r)
	case "latest":
		h.latest(w, r)
	default:
		h.get(w, r, path)
	}
}

// list handles GET /api/transitions?limit=N, newest first.
func (h *TransitionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := store.DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > MaxListLimit {
			writeError(w, http.StatusBadRequest, "limit must be between 1 and "+strconv.Itoa(MaxListLimit))
			return
		}
		limit = n
	}

	transitions, err := h.store.Transitions().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list transitions")
		return
	}

	response := listTransitionsResponse{
		Transitions: make([]*store.Transition, 0, len(transitions)),
	}
	response.Transitions = append(response.Transitions, transitions...)

	writeJSON(w, http.StatusOK, response)
}

// latest handles GET /api/transitions/latest.
func (h *TransitionHandler) latest(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.Transitions().Latest()
	h.writeOne(w, t, err)
}

// get handles GET /api/transitions/{id}.
func (h *TransitionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	t, err := h.store.Transitions().GetByID(id)
	h.writeOne(w, t, err)
}

func (h *TransitionHandler) writeOne(w http.ResponseWriter, t *store.Transition, err error) {
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Transition not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get transition")
		return
	}

	writeJSON(w, http.StatusOK, t)
}
