package api

import (
	"net/http"

	"github.com/ayusman/posterpoint/internal/geometry"
	"github.com/ayusman/posterpoint/internal/pointing"
	"github.com/ayusman/posterpoint/internal/zone"
)

// Kiosk is the running pointing session.
type Kiosk interface {
	Status() pointing.Status
	Running() bool
	Retry() error
	Zones() *zone.Set
}

// KioskHandler serves the detector status, retry and zone endpoints.
type KioskHandler struct {
	kiosk Kiosk
}

// NewKioskHandler creates a KioskHandler for k.
func NewKioskHandler(k Kiosk) *KioskHandler {
	return &KioskHandler{kiosk: k}
}

type statusResponse struct {
	pointing.Status
	Running bool `json:"running"`
}

type zonesResponse struct {
	Reference geometry.Size `json:"reference"`
	Zones     []zone.Zone   `json:"zones"`
}

// Status handles GET /api/status.
func (h *KioskHandler) Status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  h.kiosk.Status(),
		Running: h.kiosk.Running(),
	})
}

// Retry handles POST /api/retry and returns the fresh status.
func (h *KioskHandler) Retry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err := h.kiosk.Retry(); err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Status:  h.kiosk.Status(),
		Running: h.kiosk.Running(),
	})
}

// Zones handles GET /api/zones.
func (h *KioskHandler) Zones(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	set := h.kiosk.Zones()
	writeJSON(w, http.StatusOK, zonesResponse{
		Reference: set.Reference(),
		Zones:     set.Zones(),
	})
}
