package service_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/UnknownOlympus/waypoints/internal/metrics"
	"github.com/UnknownOlympus/waypoints/internal/models"
	"github.com/UnknownOlympus/waypoints/internal/recordfile"
	"github.com/UnknownOlympus/waypoints/internal/service"
	"github.com/UnknownOlympus/waypoints/internal/store"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type mockProvider struct {
	mock.Mock
}

func (m *mockProvider) Geocode(ctx context.Context, address string) (*models.Location, error) {
	args := m.Called(ctx, address)
	loc, _ := args.Get(0).(*models.Location)

	return loc, args.Error(1)
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Add(ctx context.Context, loc models.Location) (store.Outcome, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).(store.Outcome), args.Error(1)
}

func (m *mockStore) List(ctx context.Context) ([]models.Location, error) {
	args := m.Called(ctx)
	locations, _ := args.Get(0).([]models.Location)

	return locations, args.Error(1)
}

func (m *mockStore) Remove(ctx context.Context, loc models.Location) (store.Outcome, error) {
	args := m.Called(ctx, loc)
	return args.Get(0).(store.Outcome), args.Error(1)
}

func (m *mockStore) Clear(ctx context.Context) error {
	return m.Called(ctx).Error(0)
}

func TestImport(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	ctx := t.Context()
	kyiv := &models.Location{Latitude: 50.45, Longitude: 30.52}
	lviv := &models.Location{Latitude: 49.84, Longitude: 24.03}

	t.Run("saves, reports duplicates and failures in input order", func(t *testing.T) {
		provider := &mockProvider{}
		locations := &mockStore{}
		appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
		importer := service.NewAddressImporter(logger, locations, provider, "mock", appMetrics, 2, "Ukraine, ")

		provider.On("Geocode", ctx, "Ukraine, Kyiv").Return(kyiv, nil).Once()
		provider.On("Geocode", ctx, "Ukraine, Lviv").Return(lviv, nil).Once()
		provider.On("Geocode", ctx, "Ukraine, Atlantis").Return(nil, assert.AnError).Once()
		locations.On("Add", ctx, *kyiv).Return(store.Added, nil).Once()
		locations.On("Add", ctx, *lviv).Return(store.Duplicate, nil).Once()

		results := importer.Import(ctx, []string{"Kyiv", "Atlantis", "Lviv"})

		require.Len(t, results, 3)
		assert.Equal(t, service.ImportResult{Address: "Kyiv", Status: service.StatusSaved, Location: kyiv}, results[0])
		assert.Equal(t, "Atlantis", results[1].Address)
		assert.Equal(t, service.StatusFailed, results[1].Status)
		assert.Nil(t, results[1].Location)
		require.ErrorIs(t, results[1].Err, assert.AnError)
		assert.Equal(t, service.ImportResult{Address: "Lviv", Status: service.StatusDuplicate, Location: lviv}, results[2])

		assert.InDelta(t, 2, testutil.ToFloat64(appMetrics.GeocodeRequests.WithLabelValues("success")), 0)
		assert.InDelta(t, 1, testutil.ToFloat64(appMetrics.GeocodeRequests.WithLabelValues("failure")), 0)
		assert.InDelta(t, 0, testutil.ToFloat64(appMetrics.ActiveGeocoders), 0)
		provider.AssertExpectations(t)
		locations.AssertExpectations(t)
	})

	t.Run("store error marks address failed", func(t *testing.T) {
		provider := &mockProvider{}
		locations := &mockStore{}
		importer := service.NewAddressImporter(
			logger, locations, provider, "mock", metrics.NewMetrics(prometheus.NewRegistry()), 4, "",
		)

		provider.On("Geocode", ctx, "Kyiv").Return(kyiv, nil).Once()
		locations.On("Add", ctx, *kyiv).Return(store.Outcome(0), store.ErrStorageUnavailable).Once()

		results := importer.Import(ctx, []string{"Kyiv"})

		require.Len(t, results, 1)
		assert.Equal(t, service.StatusFailed, results[0].Status)
		assert.Equal(t, kyiv, results[0].Location)
		require.ErrorIs(t, results[0].Err, store.ErrStorageUnavailable)
		require.ErrorContains(t, results[0].Err, "failed to save location")
		provider.AssertExpectations(t)
		locations.AssertExpectations(t)
	})

	t.Run("empty input", func(t *testing.T) {
		provider := &mockProvider{}
		locations := &mockStore{}
		importer := service.NewAddressImporter(
			logger, locations, provider, "mock", metrics.NewMetrics(prometheus.NewRegistry()), 0, "",
		)

		assert.Empty(t, importer.Import(ctx, nil))
		provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})

	t.Run("canceled context skips geocoding", func(t *testing.T) {
		provider := &mockProvider{}
		locations := &mockStore{}
		importer := service.NewAddressImporter(
			logger, locations, provider, "mock", metrics.NewMetrics(prometheus.NewRegistry()), 2, "",
		)
		cctx, cancel := context.WithCancel(ctx)
		cancel()

		results := importer.Import(cctx, []string{"Kyiv", "Lviv", "Odesa"})

		for _, res := range results {
			assert.Equal(t, service.StatusFailed, res.Status)
			require.ErrorIs(t, res.Err, context.Canceled)
		}
		provider.AssertNotCalled(t, "Geocode", mock.Anything, mock.Anything)
	})
}

func TestImportIntoFileStore(t *testing.T) {
	ctx := t.Context()
	logger := slog.Default()
	appMetrics := metrics.NewMetrics(prometheus.NewRegistry())
	file := recordfile.New(filepath.Join(t.TempDir(), "locations.csv"), logger)
	locations := store.NewLocationStore(file, logger, appMetrics)
	require.NoError(t, locations.Initialize(ctx))

	same := &models.Location{Latitude: 1, Longitude: 2}
	provider := &mockProvider{}
	provider.On("Geocode", ctx, mock.AnythingOfType("string")).Return(same, nil)

	importer := service.NewAddressImporter(logger, locations, provider, "mock", appMetrics, 8,
		"")
	addresses := []string{"a", "b", "c", "d", "e", "f", "g", "h"}

	results := importer.Import(ctx, addresses)

	saved := 0
	for _, res := range results {
		require.NoError(t, res.Err)
		if res.Status == service.StatusSaved {
			saved++
		}
	}
	assert.Equal(t, 1, saved)

	stored, err := locations.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, []models.Location{*same}, stored)
}
