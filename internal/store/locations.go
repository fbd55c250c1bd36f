package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/UnknownOlympus/waypoints/internal/metrics"
	"github.com/UnknownOlympus/waypoints/internal/models"
)

const (
	opInitialize = "initialize"
	opAdd        = "add"
	opList       = "list"
	opRemove     = "remove"
	opClear      = "clear"
)

// Interface is the set of location operations served to the request layer.
type Interface interface {
	Add(ctx context.Context, loc models.Location) (Outcome, error)
	List(ctx context.Context) ([]models.Location, error)
	Remove(ctx context.Context, loc models.Location) (Outcome, error)
	Clear(ctx context.Context) error
}

// LocationStore keeps a set of unique locations on top of a Records backend.
// Every operation runs its load, decide and write phases under one lock,
// so concurrent callers never interleave on the backend.
type LocationStore struct {
	mu      sync.RWMutex     // mu guards every access to records
	records Records          // records is the durable backend owned by the store
	log     *slog.Logger     // log is the logger for store operations
	metrics *metrics.Metrics // metrics tracks operation outcomes and set size
}

// NewLocationStore creates a store that exclusively owns the given backend.
func NewLocationStore(records Records, log *slog.Logger, metrics *metrics.Metrics) *LocationStore {
	return &LocationStore{records: records, log: log, metrics: metrics}
}

// Initialize prepares the backend, creating it empty if it does not exist yet.
// It is safe to call on every startup.
func (s *LocationStore) Initialize(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.records.Initialize(ctx)
	if err != nil {
		err = fmt.Errorf("failed to initialize location records: %w", err)
	}
	s.observe(ctx, opInitialize, start, "ok", -1, err)

	return err
}

// Add stores loc unless an identical location is already present.
// It returns Added or Duplicate; a Duplicate result performs no write.
func (s *LocationStore) Add(ctx context.Context, loc models.Location) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, size, err := s.add(ctx, loc)
	s.observe(ctx, opAdd, start, outcome.String(), size, err)

	return outcome, err
}

func (s *LocationStore) add(ctx context.Context, loc models.Location) (Outcome, int, error) {
	current, err := s.records.LoadAll(ctx)
	if err != nil {
		return 0, -1, fmt.Errorf("failed to load locations: %w", err)
	}

	if slices.ContainsFunc(current, loc.Equal) {
		s.log.DebugContext(ctx, "Location already exists", "latitude", loc.Latitude, "longitude", loc.Longitude)
		return Duplicate, len(current), nil
	}

	if err = s.records.AppendOne(ctx, loc); err != nil {
		return 0, -1, fmt.Errorf("failed to append location: %w", err)
	}

	return Added, len(current) + 1, nil
}

// List returns the stored locations in backend order.
func (s *LocationStore) List(ctx context.Context) ([]models.Location, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	current, err := s.records.LoadAll(ctx)
	if err != nil {
		err = fmt.Errorf("failed to load locations: %w", err)
		s.observe(ctx, opList, start, "ok", -1, err)
		return nil, err
	}
	s.observe(ctx, opList, start, "ok", len(current), nil)

	return current, nil
}

// Remove deletes the location identical to loc.
// It returns Removed or NotFound; a NotFound result performs no write.
func (s *LocationStore) Remove(ctx context.Context, loc models.Location) (Outcome, error) {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	outcome, size, err := s.remove(ctx, loc)
	s.observe(ctx, opRemove, start, outcome.String(), size, err)

	return outcome, err
}

func (s *LocationStore) remove(ctx context.Context, loc models.Location) (Outcome, int, error) {
	current, err := s.records.LoadAll(ctx)
	if err != nil {
		return 0, -1, fmt.Errorf("failed to load locations: %w", err)
	}

	before := len(current)
	kept := slices.DeleteFunc(current, loc.Equal)
	if len(kept) == before {
		return NotFound, before, nil
	}

	if err = s.records.ReplaceAll(ctx, kept); err != nil {
		return 0, -1, fmt.Errorf("failed to rewrite locations: %w", err)
	}

	return Removed, len(kept), nil
}

// Clear removes every stored location. Clearing an empty store still rewrites the backend.
func (s *LocationStore) Clear(ctx context.Context) error {
	ctx = context.WithoutCancel(ctx)
	start := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.records.ReplaceAll(ctx, nil)
	if err != nil {
		err = fmt.Errorf("failed to clear locations: %w", err)
		s.observe(ctx, opClear, start, "ok", -1, err)
		return err
	}
	s.observe(ctx, opClear, start, "ok", 0, nil)

	return nil
}

// observe records metrics and logs for a finished operation.
// A negative size leaves the stored locations gauge untouched.
func (s *LocationStore) observe(ctx context.Context, op string, start time.Time, outcome string, size int, err error) {
	s.metrics.StoreSeconds.WithLabelValues(op).Observe(time.Since(start).Seconds())

	if err != nil {
		s.metrics.StoreOperations.WithLabelValues(op, "error").Inc()
		s.log.ErrorContext(ctx, "Location store operation failed", "operation", op, "error", err)
		return
	}

	s.metrics.StoreOperations.WithLabelValues(op, outcome).Inc()
	if size >= 0 {
		s.metrics.StoredLocations.Set(float64(size))
	}
	s.log.DebugContext(ctx, "Location store operation completed", "operation", op, "outcome", outcome, "size", size)
}
