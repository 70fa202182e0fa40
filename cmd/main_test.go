package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/Flaque/filet"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/UnknownOlympus/meridian/internal/cascade"
	"github.com/UnknownOlympus/meridian/internal/config"
	"github.com/UnknownOlympus/meridian/internal/metrics"
	"github.com/UnknownOlympus/meridian/internal/models"
)

func TestRootCmd(t *testing.T) {
	root := rootCmd()

	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	assert.ElementsMatch(t, []string{"geocode", "prepare"}, names)
	assert.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestBuildSteps(t *testing.T) {
	log := setupLogger(envLocal)

	t.Run("opencage is thresholded, the rest unconditional", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Cascade.Providers = []string{"opencage", "nominatim", "census"}
		cfg.OpenCage.APIKey = "test-key"
		cfg.OpenCage.Threshold = 8
		cfg.OpenCage.RateLimit = 1

		steps, err := buildSteps(cfg, log)
		require.NoError(t, err)
		require.Len(t, steps, 3)

		assert.Equal(t, models.ServiceOpenCage, steps[0].Provider.Name())
		assert.Equal(t, cascade.Thresholded{Min: 8}, steps[0].Policy)
		assert.Equal(t, models.ServiceNominatim, steps[1].Provider.Name())
		assert.Equal(t, cascade.Unconditional{}, steps[1].Policy)
		assert.Equal(t, models.ServiceCensusOneLine, steps[2].Provider.Name())

		assert.Equal(t,
			[]models.Service{
				models.ServiceCensus, models.ServiceOpenCage, models.ServiceNominatim, models.ServiceCensusOneLine,
			},
			trackedServices(steps))
	})

	t.Run("google with key", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Cascade.Providers = []string{"google"}
		cfg.Google.APIKey = "AIza-test"
		cfg.Google.RateLimit = 10

		steps, err := buildSteps(cfg, log)
		require.NoError(t, err)
		assert.Equal(t, models.ServiceGoogle, steps[0].Provider.Name())
	})

	t.Run("missing api key", func(t *testing.T) {
		cfg := &config.Config{}
		cfg.Cascade.Providers = []string{"nominatim", "opencage"}

		_, err := buildSteps(cfg, log)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to create opencage provider")
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("environment without a config file", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("MERIDIAN_BATCH_SIZE", "250")

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, 250, cfg.Batch.Size)
	})

	t.Run("invalid environment panics", func(t *testing.T) {
		t.Chdir(t.TempDir())
		t.Setenv("MERIDIAN_BATCH_SIZE", "0")

		assert.PanicsWithValue(t, "failed to parse batch size from configuration, must be a positive integer", func() {
			_, _ = loadConfig()
		})
	})

	t.Run("explicit config file", func(t *testing.T) {
		defer filet.CleanUp(t)
		dir := filet.TmpDir(t, "")
		path := filepath.Join(dir, "custom.yaml")
		filet.File(t, path, "batch:\n  size: 42\n")

		cfgFile = path
		t.Cleanup(func() { cfgFile = "" })

		cfg, err := loadConfig()
		require.NoError(t, err)
		assert.Equal(t, 42, cfg.Batch.Size)
	})

	t.Run("missing config file is an error", func(t *testing.T) {
		cfgFile = filepath.Join(t.TempDir(), "missing.yaml")
		t.Cleanup(func() { cfgFile = "" })

		_, err := loadConfig()
		require.Error(t, err)
	})
}

type stubPinger struct{ err error }

func (s stubPinger) Ping(context.Context) error { return s.err }

func TestMonitoringHandler(t *testing.T) {
	log := setupLogger(envLocal)
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)
	m.BatchesSent.Inc()

	tests := []struct {
		name   string
		db     pinger
		path   string
		status int
		body   string
	}{
		{name: "healthy without database", db: nil, path: "/healthz", status: http.StatusOK, body: "OK"},
		{name: "healthy database", db: stubPinger{}, path: "/healthz", status: http.StatusOK, body: "OK"},
		{
			name:   "database down",
			db:     stubPinger{err: assert.AnError},
			path:   "/healthz",
			status: http.StatusServiceUnavailable,
			body:   "DB ping failed",
		},
		{name: "metrics", db: nil, path: "/metrics", status: http.StatusOK, body: "meridian_bulk_batches_submitted_total 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := newMonitoringHandler(t.Context(), log, reg, tt.db)
			rec := httptest.NewRecorder()

			handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))

			assert.Equal(t, tt.status, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.body)
		})
	}
}

func TestRunPrepare(t *testing.T) {
	t.Chdir(t.TempDir())
	defer filet.CleanUp(t)
	dir := filet.TmpDir(t, "")

	input := filepath.Join(dir, "addresses.csv")
	filet.File(t, input, "street,city,state,zip\n"+
		"4600 Silver Hill Rd,Washington,DC,20233\n"+
		"742 Evergreen Terrace,Springfield,,\n"+
		"1 Main St,Springfield,IL,62701\n")

	opts := prepareOptions{
		input:    input,
		batchDir: filepath.Join(dir, "batches"),
		idOutput: filepath.Join(dir, "tagged.csv"),
		tag:      "2024",
	}

	require.NoError(t, runPrepare(t.Context(), opts))

	batch := filepath.Join(dir, "batches", "census_batch_2024_1_3.csv")
	assert.True(t, filet.Exists(t, batch))
	assert.True(t, filet.FileSays(t, batch, []byte(
		"1,4600 Silver Hill Rd,Washington,DC,20233\n3,1 Main St,Springfield,IL,62701\n")))

	assert.True(t, filet.FileSays(t, opts.idOutput, []byte("batch_id,street,city,state,zip\n"+
		"1,4600 Silver Hill Rd,Washington,DC,20233\n"+
		"2,742 Evergreen Terrace,Springfield,,\n"+
		"3,1 Main St,Springfield,IL,62701\n")))
}

func TestRunPrepare_NoBatchDir(t *testing.T) {
	t.Chdir(t.TempDir())

	err := runPrepare(t.Context(), prepareOptions{input: "in.csv", idOutput: "out.csv"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no batch directory")
}
