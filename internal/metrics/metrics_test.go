package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestBrokerMetrics(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.Observe("project.read", "ok", time.Now())
	m.Observe("project.read", "ok", time.Now())
	m.Observe("project.read", "not_found", time.Now())
	m.Denied("project.publish", "owner_or_admin")
	m.StoreFailed("metainfo.write")
	m.Published()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.operations.WithLabelValues("project.read", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.operations.WithLabelValues("project.read", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.denials.WithLabelValues("project.publish", "owner_or_admin")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("metainfo.write")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.publishes))
}

func TestNilMetrics(t *testing.T) {
	var m *BrokerMetrics
	assert.NotPanics(t, func() {
		m.Observe("project.read", "ok", time.Now())
		m.Denied("project.read", "rule")
		m.StoreFailed("project.read")
		m.Published()
	})
}
