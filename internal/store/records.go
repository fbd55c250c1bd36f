package store

import (
	"context"

	"github.com/UnknownOlympus/waypoints/internal/models"
)

// Records is the durable backend behind a LocationStore.
// Implementations are not safe for concurrent use on their own; the store serializes access.
//
// Errors returned by implementations must match ErrStorageUnavailable for I/O failures
// and ErrCorruptRecord for data that cannot be parsed.
type Records interface {
	// Initialize creates an empty backend if none exists. It must be idempotent.
	Initialize(ctx context.Context) error
	// LoadAll returns every stored location in backend order.
	LoadAll(ctx context.Context) ([]models.Location, error)
	// ReplaceAll atomically replaces the stored set with records.
	ReplaceAll(ctx context.Context, records []models.Location) error
	// AppendOne adds a single location after the existing ones.
	AppendOne(ctx context.Context, record models.Location) error
}
