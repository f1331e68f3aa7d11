package metrics

import (
	"errors"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestOracleMetrics(t *testing.T) {
	m := NewOracleMetrics()

	m.RecordCycle(time.Now(), nil)
	m.RecordCycle(time.Now(), errors.New("rpc down"))
	m.RecordFulfilled(1)
	m.RecordFulfilled(2)
	m.RecordFailure("proof_invalid")
	m.RecordFailure("submission_failed")
	m.RecordFailure("submission_failed")
	m.RecordDecodeError()
	m.RecordSubmissionAttempt()

	require.Equal(t, float64(2), testutil.ToFloat64(m.cycles))
	require.Equal(t, float64(1), testutil.ToFloat64(m.cycleErrors))
	require.Equal(t, float64(2), testutil.ToFloat64(m.fulfilled))
	require.Equal(t, float64(2), testutil.ToFloat64(m.processedRequests))
	require.Equal(t, float64(2), testutil.ToFloat64(m.failures.WithLabelValues("submission_failed")))
	require.Equal(t, float64(1), testutil.ToFloat64(m.decodeErrors))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "vrf_oracle_requests_fulfilled_total 2")
}
