package prometheus

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordAuthError(t *testing.T) {
	before := testutil.ToFloat64(AuthErrorCounter.WithLabelValues("unit_test"))
	RecordAuthError("unit_test")
	assert.Equal(t, before+1, testutil.ToFloat64(AuthErrorCounter.WithLabelValues("unit_test")))
}

func TestRecordDirectoryOperation(t *testing.T) {
	before := testutil.ToFloat64(DirectoryOperationCounter.WithLabelValues("role", "create"))
	RecordDirectoryOperation("role", "create")
	assert.Equal(t, before+1, testutil.ToFloat64(DirectoryOperationCounter.WithLabelValues("role", "create")))
}

func TestTrackDBOperation(t *testing.T) {
	done := TrackDBOperation("unit_test_query")
	done()
	assert.Equal(t, 1, testutil.CollectAndCount(DBOperationDuration, "identity_db_operation_duration_seconds"))
}

func TestMetricsMiddlewareAndHandler(t *testing.T) {
	InitMetrics("test")

	e := echo.New()
	e.Use(MetricsMiddleware())
	e.GET("/ping", func(c echo.Context) error { return c.String(http.StatusOK, "pong") })
	e.GET("/metrics", echo.WrapHandler(GetPrometheusHandler()))

	e.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/ping", nil))
	assert.Equal(t, float64(1), testutil.ToFloat64(HTTPRequestCounter.WithLabelValues("/ping", http.MethodGet, "200")))

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "identity_info"))
}
