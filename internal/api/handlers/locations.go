package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/UnknownOlympus/waypoints/internal/api/dto"
	"github.com/UnknownOlympus/waypoints/internal/models"
	"github.com/UnknownOlympus/waypoints/internal/store"
)

// LocationHandler exposes the location set over HTTP.
type LocationHandler struct {
	Store store.Interface
	Log   *slog.Logger
}

// Save adds the submitted location unless an identical one is stored.
func (h *LocationHandler) Save(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.Log, http.MethodPost) {
		return
	}

	loc, ok := h.decodeLocation(w, r)
	if !ok {
		return
	}

	outcome, err := h.Store.Add(r.Context(), loc)
	if err != nil {
		writeInternalError(w, r, h.Log, "save location failed", err)
		return
	}
	if outcome == store.Duplicate {
		writeMessage(w, r, h.Log, http.StatusBadRequest, "Location already exists")
		return
	}

	writeMessage(w, r, h.Log, http.StatusOK, "Location saved")
}

// List returns every stored location as a bare JSON array.
func (h *LocationHandler) List(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.Log, http.MethodGet) {
		return
	}

	locations, err := h.Store.List(r.Context())
	if err != nil {
		writeInternalError(w, r, h.Log, "list locations failed", err)
		return
	}

	res := make([]dto.LocationResponse, 0, len(locations))
	for _, loc := range locations {
		res = append(res, dto.LocationResponse{Latitude: loc.Latitude, Longitude: loc.Longitude})
	}

	writeJSON(w, r, h.Log, http.StatusOK, res)
}

// Remove deletes the location with exactly the submitted coordinates.
func (h *LocationHandler) Remove(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.Log, http.MethodPost) {
		return
	}

	loc, ok := h.decodeLocation(w, r)
	if !ok {
		return
	}

	outcome, err := h.Store.Remove(r.Context(), loc)
	if err != nil {
		writeInternalError(w, r, h.Log, "remove location failed", err)
		return
	}
	if outcome == store.NotFound {
		writeMessage(w, r, h.Log, http.StatusNotFound, "Location not found")
		return
	}

	writeMessage(w, r, h.Log, http.StatusOK, "Location removed")
}

// Clear removes all locations. The request body is ignored.
func (h *LocationHandler) Clear(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.Log, http.MethodPost) {
		return
	}

	if err := h.Store.Clear(r.Context()); err != nil {
		writeInternalError(w, r, h.Log, "clear locations failed", err)
		return
	}

	writeMessage(w, r, h.Log, http.StatusOK, "All locations cleared")
}

// decodeLocation answers 400 and returns false when the body is not a valid location.
func (h *LocationHandler) decodeLocation(w http.ResponseWriter, r *http.Request) (models.Location, bool) {
	loc, err := parseLocation(w, r)
	if err != nil {
		var verr *ValidationError
		if !errors.As(err, &verr) {
			writeInternalError(w, r, h.Log, "decode location failed", err)
			return models.Location{}, false
		}
		h.Log.DebugContext(r.Context(), "Rejected location request",
			"path", r.URL.Path, "request_id", requestID(w), "reason", verr.Message)
		writeMessage(w, r, h.Log, http.StatusBadRequest, verr.Message)
		return models.Location{}, false
	}

	return loc, true
}

func parseLocation(w http.ResponseWriter, r *http.Request) (models.Location, error) {
	var req dto.LocationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		return models.Location{}, err
	}
	if req.Latitude == nil {
		return models.Location{}, invalid("latitude is required")
	}
	if req.Longitude == nil {
		return models.Location{}, invalid("longitude is required")
	}

	return models.Location{Latitude: *req.Latitude, Longitude: *req.Longitude}, nil
}
