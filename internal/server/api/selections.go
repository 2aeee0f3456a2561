package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/ayusman/posterpoint/internal/store"
	"github.com/ayusman/posterpoint/internal/zone"
)

// DefaultListLimit caps GET /api/selections without a limit parameter.
const DefaultListLimit = 50

// SelectionHandler handles HTTP requests for confirmed selections.
type SelectionHandler struct {
	store    *store.Store
	zones    *zone.Set
	deviceID string

	mu       sync.RWMutex
	onCreate func(*store.Selection)
}

// NewSelectionHandler creates a SelectionHandler. Submitted zones are checked
// against zones when it is not nil, and deviceID is used when a request
// carries none.
func NewSelectionHandler(s *store.Store, zones *zone.Set, deviceID string) *SelectionHandler {
	return &SelectionHandler{store: s, zones: zones, deviceID: deviceID}
}

// OnCreate sets a callback run after a selection is stored through the API.
func (h *SelectionHandler) OnCreate(fn func(*store.Selection)) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.onCreate = fn
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *SelectionHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/selections or /api/selections/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/selections")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

type createSelectionRequest struct {
	Zone     string `json:"zone"`
	QRID     string `json:"qr_id"`
	DeviceID string `json:"device_id"`
	Source   string `json:"source"`
}

type listSelectionsResponse struct {
	Selections []*store.Selection `json:"selections"`
	Counts     []store.ZoneCount  `json:"counts"`
}

// list handles GET /api/selections.
func (h *SelectionHandler) list(w http.ResponseWriter, r *http.Request) {
	limit := DefaultListLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	selections, err := h.store.Selections().List(limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list selections")
		return
	}
	counts, err := h.store.Selections().CountByZone()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to count selections")
		return
	}

	response := listSelectionsResponse{
		Selections: selections,
		Counts:     counts,
	}
	if response.Selections == nil {
		response.Selections = []*store.Selection{}
	}
	if response.Counts == nil {
		response.Counts = []store.ZoneCount{}
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/selections/{id}.
func (h *SelectionHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	sel, err := h.store.Selections().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Selection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get selection")
		return
	}

	writeJSON(w, http.StatusOK, sel)
}

// create handles POST /api/selections. Title and video come from the zone
// configuration, not the request.
func (h *SelectionHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createSelectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.Zone == "" {
		writeError(w, http.StatusBadRequest, "Zone is required")
		return
	}

	source := req.Source
	if source == "" {
		source = store.SourceManual
	}
	switch source {
	case store.SourcePrimary, store.SourceFallback, store.SourceManual:
	default:
		writeError(w, http.StatusBadRequest, "Invalid source")
		return
	}

	sel := &store.Selection{
		DeviceID: req.DeviceID,
		QRID:     req.QRID,
		Zone:     req.Zone,
		Source:   source,
	}
	if sel.DeviceID == "" {
		sel.DeviceID = h.deviceID
	}

	if h.zones != nil {
		z, ok := h.zones.Get(req.Zone)
		if !ok {
			writeError(w, http.StatusBadRequest, "Unknown zone")
			return
		}
		sel.Title = z.Title
		sel.VideoURL = z.VideoURL
	}

	if err := h.store.Selections().Create(sel); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create selection")
		return
	}

	h.mu.RLock()
	callback := h.onCreate
	h.mu.RUnlock()
	if callback != nil {
		callback(sel)
	}

	writeJSON(w, http.StatusCreated, sel)
}

// delete handles DELETE /api/selections/{id}.
func (h *SelectionHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	err := h.store.Selections().Delete(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Selection not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete selection")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
