package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/UnknownOlympus/waypoints/internal/geocoding"
	"github.com/UnknownOlympus/waypoints/internal/metrics"
	"github.com/UnknownOlympus/waypoints/internal/models"
	"github.com/UnknownOlympus/waypoints/internal/store"
)

// ImportStatus is the per-address result of an import.
type ImportStatus string

const (
	StatusSaved     ImportStatus = "saved"
	StatusDuplicate ImportStatus = "duplicate"
	StatusFailed    ImportStatus = "failed"
)

// ImportResult describes what happened to one address.
type ImportResult struct {
	Address  string           // Address as submitted, without the configured prefix.
	Status   ImportStatus     // Status of the import.
	Location *models.Location // Location is set when geocoding succeeded.
	Err      error            // Err is set when Status is StatusFailed.
}

// AddressImporter geocodes addresses with a pool of workers and adds the
// resulting locations to the store.
type AddressImporter struct {
	log           *slog.Logger       // Logger for logging importer activities
	locations     store.Interface    // Store receiving the geocoded locations
	provider      geocoding.Provider // Geocoding provider for external geocoding services
	providerName  string             // Name of the provider for metrics labeling
	metrics       *metrics.Metrics   // Metrics for tracking geocoding performance
	numWorkers    int                // Maximum number of concurrent workers per import
	addressPrefix string             // Prepended to every address (country, city, etc.)
}

// NewAddressImporter creates a new instance of AddressImporter.
func NewAddressImporter(
	log *slog.Logger,
	locations store.Interface,
	provider geocoding.Provider,
	providerName string,
	metrics *metrics.Metrics,
	numWorkers int,
	addressPrefix string,
) *AddressImporter {
	return &AddressImporter{
		log:           log,
		locations:     locations,
		provider:      provider,
		providerName:  providerName,
		metrics:       metrics,
		numWorkers:    max(numWorkers, 1),
		addressPrefix: addressPrefix,
	}
}

// Import geocodes and stores every address. Results are returned in input order.
// A failing address does not stop the others.
func (ai *AddressImporter) Import(ctx context.Context, addresses []string) []ImportResult {
	results := make([]ImportResult, len(addresses))
	if len(addresses) == 0 {
		return results
	}

	workers := min(ai.numWorkers, len(addresses))
	ai.log.InfoContext(ctx, "Importing addresses", "jobs", len(addresses), "num_workers", workers)

	jobs := make(chan int, len(addresses))
	var wgr sync.WaitGroup

	for i := 1; i <= workers; i++ {
		wgr.Add(1)
		go ai.worker(ctx, i, &wgr, addresses, results, jobs)
	}

	for idx := range addresses {
		jobs <- idx
	}
	close(jobs)

	wgr.Wait()
	ai.log.InfoContext(ctx, "Address import finished", "jobs", len(addresses))

	return results
}

// worker handles address indexes from jobs. Each index is written by exactly one worker.
func (ai *AddressImporter) worker(
	ctx context.Context,
	idx int,
	wg *sync.WaitGroup,
	addresses []string,
	results []ImportResult,
	jobs <-chan int,
) {
	defer wg.Done()
	for job := range jobs {
		ai.metrics.ActiveGeocoders.Inc()
		results[job] = ai.importOne(ctx, idx, addresses[job])
		ai.metrics.ActiveGeocoders.Dec()
	}
}

func (ai *AddressImporter) importOne(ctx context.Context, idx int, address string) ImportResult {
	result := ImportResult{Address: address}
	if err := ctx.Err(); err != nil {
		result.Status, result.Err = StatusFailed, fmt.Errorf("import canceled: %w", err)
		return result
	}

	ai.log.DebugContext(ctx, "Geocoding address", "worker", idx, "address", address)

	startTime := time.Now()
	loc, err := ai.provider.Geocode(ctx, ai.addressPrefix+address)
	ai.metrics.ProviderSeconds.WithLabelValues(ai.providerName).Observe(time.Since(startTime).Seconds())

	if err != nil {
		ai.log.ErrorContext(ctx, "Failed to geocode", "worker", idx, "address", address, "error", err)
		ai.metrics.GeocodeRequests.WithLabelValues("failure").Inc()
		result.Status, result.Err = StatusFailed, fmt.Errorf("failed to geocode address: %w", err)
		return result
	}
	ai.metrics.GeocodeRequests.WithLabelValues("success").Inc()
	result.Location = loc

	outcome, err := ai.locations.Add(ctx, *loc)
	switch {
	case err != nil:
		ai.log.ErrorContext(ctx, "Failed to save geocoded location", "worker", idx, "address", address, "error", err)
		result.Status, result.Err = StatusFailed, fmt.Errorf("failed to save location: %w", err)
	case outcome == store.Duplicate:
		result.Status = StatusDuplicate
	default:
		result.Status = StatusSaved
	}

	return result
}
