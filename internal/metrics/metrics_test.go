package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecorder_Counters(t *testing.T) {
	r := NewRecorder()

	r.ObserveCommand("create", "ok")
	r.ObserveCommand("create", "ok")
	r.ObserveEvent("pull_request", "opened", "ok")
	r.ObserveRemoteCall("merge", errors.New("boom"), time.Second)
	r.ObserveJob("delivered")
	r.SetQueueDepth(3)

	assert.Equal(t, 2.0, testutil.ToFloat64(r.commandsTotal.WithLabelValues("create", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.eventsTotal.WithLabelValues("pull_request", "opened", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.remoteCalls.WithLabelValues("merge", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(r.jobsTotal.WithLabelValues("delivered")))
	assert.Equal(t, 3.0, testutil.ToFloat64(r.queueDepth))
}

func TestRecorder_NilIsSafe(t *testing.T) {
	var r *Recorder
	assert.NotPanics(t, func() {
		r.ObserveCommand("help", "ok")
		r.ObserveEvent("pull_request", "opened", "ok")
		r.ObserveRemoteCall("merge", nil, time.Second)
		r.ObserveJob("delivered")
		r.SetQueueDepth(1)
	})
}

func TestRecorder_Handler(t *testing.T) {
	r := NewRecorder()
	r.ObserveCommand("list", "ok")

	rec := httptest.NewRecorder()
	r.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `ctrl_commands_total{outcome="ok",verb="list"} 1`)
}
