package metricsvc

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics(t *testing.T) {
	m := New("prayercheck")

	m.CountCheckIn(ResultCheckedIn)
	m.CountCheckIn(ResultCheckedIn)
	m.CountCheckIn(ResultAlreadyChecked)
	m.ObserveRequest(http.MethodPost, "/api/check-in", http.StatusOK, 20*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.checkIns.WithLabelValues(ResultCheckedIn)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.checkIns.WithLabelValues(ResultAlreadyChecked)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodPost, "/api/check-in", "200")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `prayercheck_checkins_total{result="checked_in"} 2`))
	assert.Contains(t, body, "prayercheck_http_request_duration_seconds_bucket")
}
