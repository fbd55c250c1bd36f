package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/UnknownOlympus/waypoints/internal/api/dto"
	"github.com/UnknownOlympus/waypoints/internal/service"
	"github.com/UnknownOlympus/waypoints/internal/store"
)

// MaxImportAddresses bounds the number of addresses accepted by one import request.
const MaxImportAddresses = 100

// AddressImporter geocodes addresses and stores the resulting locations.
type AddressImporter interface {
	Import(ctx context.Context, addresses []string) []service.ImportResult
}

// ImportHandler exposes address import. A nil Importer disables the endpoint.
// Addresses not reached within Timeout are reported as failed so the response
// is written before the server's write deadline.
type ImportHandler struct {
	Importer AddressImporter
	Timeout  time.Duration
	Log      *slog.Logger
}

func (h *ImportHandler) Import(w http.ResponseWriter, r *http.Request) {
	if !allowMethod(w, r, h.Log, http.MethodPost) {
		return
	}
	if h.Importer == nil {
		writeMessage(w, r, h.Log, http.StatusNotImplemented, "address import is not configured")
		return
	}

	var req dto.ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeMessage(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	addresses, err := validateAddresses(req.Addresses)
	if err != nil {
		writeMessage(w, r, h.Log, http.StatusBadRequest, err.Error())
		return
	}

	ctx := r.Context()
	if h.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.Timeout)
		defer cancel()
	}

	results := h.Importer.Import(ctx, addresses)

	res := dto.ImportResponse{Results: make([]dto.ImportResultResponse, 0, len(results))}
	for _, result := range results {
		item := dto.ImportResultResponse{
			Address: result.Address,
			Status:  string(result.Status),
		}
		if result.Location != nil {
			item.Location = &dto.LocationResponse{
				Latitude:  result.Location.Latitude,
				Longitude: result.Location.Longitude,
			}
		}
		if result.Err != nil {
			item.Error = importErrorMessage(result.Err)
		}
		res.Results = append(res.Results, item)
	}

	h.Log.InfoContext(r.Context(), "Addresses imported", "count", len(results), "request_id", requestID(w))
	writeJSON(w, r, h.Log, http.StatusOK, res)
}

func validateAddresses(addresses []string) ([]string, error) {
	if len(addresses) == 0 {
		return nil, invalid("addresses must not be empty")
	}
	if len(addresses) > MaxImportAddresses {
		return nil, invalid("at most %d addresses are accepted per request", MaxImportAddresses)
	}

	trimmed := make([]string, len(addresses))
	for i, address := range addresses {
		trimmed[i] = strings.TrimSpace(address)
		if trimmed[i] == "" {
			return nil, invalid("address %d is blank", i)
		}
	}

	return trimmed, nil
}

// importErrorMessage keeps storage details out of the response.
func importErrorMessage(err error) string {
	switch {
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "import canceled"
	case errors.Is(err, store.ErrStorageUnavailable), errors.Is(err, store.ErrCorruptRecord):
		return "failed to save location"
	default:
		return "failed to geocode address"
	}
}
