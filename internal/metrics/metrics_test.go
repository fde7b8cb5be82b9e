package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsRegistry(t *testing.T) {
	registry := InitRegistry()

	assert.NotNil(t, registry)
	assert.IsType(t, &prometheus.Registry{}, registry)
	assert.Same(t, registry, InitRegistry())
}

func TestRecordForecast(t *testing.T) {
	InitRegistry()
	before := testutil.ToFloat64(ForecastsTotal.WithLabelValues("ok"))
	drawsBefore := testutil.ToFloat64(SimulatedDrawsTotal)

	RecordForecast("ok", 10000, 0.02)

	assert.Equal(t, before+1, testutil.ToFloat64(ForecastsTotal.WithLabelValues("ok")))
	assert.Equal(t, drawsBefore+10000, testutil.ToFloat64(SimulatedDrawsTotal))
}

func TestRecordDatasetLoad(t *testing.T) {
	InitRegistry()

	RecordDatasetLoad(nil, 543, 2)
	assert.Equal(t, 543.0, testutil.ToFloat64(DatasetRecords))
	assert.Equal(t, 2.0, testutil.ToFloat64(DatasetWarnings))

	errorsBefore := testutil.ToFloat64(DatasetLoadsTotal.WithLabelValues("error"))
	RecordDatasetLoad(errors.New("boom"), 0, 0)
	assert.Equal(t, errorsBefore+1, testutil.ToFloat64(DatasetLoadsTotal.WithLabelValues("error")))
	assert.Equal(t, 543.0, testutil.ToFloat64(DatasetRecords), "failed load keeps previous gauge")
}

func TestRecordHelpersDoNotPanic(t *testing.T) {
	InitRegistry()

	assert.NotPanics(t, func() {
		RecordCacheLookup(true)
		RecordCacheLookup(false)
		RecordSweep(0.5)
		RecordBotCommand("forecast")
	})
}

func TestHandlerServesMetrics(t *testing.T) {
	RecordForecast("ok", 1, 0.001)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "electcast_forecasts_total"))
}
