package monitor

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestTrackMetrics(t *testing.T) {
	t.Parallel()

	m := New("test")
	router := gin.New()
	router.Use(m.TrackMetrics())
	router.GET("/", func(c *gin.Context) {
		c.String(http.StatusBadRequest, "nope")
	})

	for range 2 {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	}
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/missing", nil))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, "/", "400")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.requests.WithLabelValues(http.MethodGet, routeUnmatched, "404")))
	assert.Equal(t, 2, testutil.CollectAndCount(m.duration))
}

func TestObserveVerification(t *testing.T) {
	t.Parallel()

	m := New("test")
	m.ObserveVerification(VerificationVerified)
	m.ObserveVerification(VerificationRejected)
	m.ObserveVerification(VerificationRejected)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.verifications.WithLabelValues(VerificationVerified)))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.verifications.WithLabelValues(VerificationRejected)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.verifications.WithLabelValues(VerificationError)))
}

func TestHandler(t *testing.T) {
	t.Parallel()

	m := New("relay-test")
	m.ObserveVerification(VerificationError)

	srv := httptest.NewServer(m.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `relay_proof_verifications_total{result="error",server="relay-test"} 1`), string(body))
}

func TestNew_EmptyName(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { New("") })
}
