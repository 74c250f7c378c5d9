package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReaperCounters(t *testing.T) {
	r := NewReaper(nil)

	r.ObservePass(time.Second, nil)
	r.ObservePass(time.Second, errors.New("backend down"))
	r.RecordVerdict("terminate", "execution-id-mismatch")
	r.RecordVerdict("terminate", "execution-id-mismatch")
	r.RecordVerdict("keep", "owned")
	r.RecordTermination(nil)
	r.RecordTermination(errors.New("boom"))
	r.SetPassTotals(10, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(r.passes.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.passes.WithLabelValues("failed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.passFailures))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.verdicts.WithLabelValues("terminate", "execution-id-mismatch")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.terminations.WithLabelValues("failed")))
	assert.Equal(t, 2.0, testutil.ToFloat64(r.danglingFound))
	assert.Equal(t, 10.0, testutil.ToFloat64(r.scanned))
}

func TestNilReaperIsSafe(t *testing.T) {
	var r *Reaper
	r.ObservePass(time.Second, nil)
	r.RecordVerdict("keep", "owned")
	r.RecordTermination(nil)
	r.SetPassTotals(1, 1)
}

func TestReaperHandler(t *testing.T) {
	r := NewReaper(nil)
	r.ObservePass(time.Millisecond, errors.New("boom"))

	rr := httptest.NewRecorder()
	r.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "execreaper_pass_failures_total 1")
}
