package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/medical-calendar/backend/internal/schedule"
)

func TestObserveChange(t *testing.T) {
	m := New()

	m.ObserveChange(schedule.Change{Op: schedule.OpAdd, Events: make([]*schedule.Event, 3)})
	m.ObserveChange(schedule.Change{Op: schedule.OpAdd, Events: make([]*schedule.Event, 4)})
	m.ObserveChange(schedule.Change{Op: schedule.OpRemoveByDay, Events: make([]*schedule.Event, 1)})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.mutations.WithLabelValues("add")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.mutations.WithLabelValues("remove_by_day")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.events))
}

func TestHandlerExposesCollectors(t *testing.T) {
	m := New()
	m.ObserveProjection(schedule.ViewMonth)
	m.ObserveRequest(http.MethodGet, http.StatusOK, 20*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `medcal_projections_total{view="month"} 1`)
	assert.Contains(t, rec.Body.String(), `medcal_http_requests_total{code="200",method="GET"} 1`)
}
