package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ignite/seatwatch/internal/domain"
)

func TestCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheus(reg, "test")

	c.ObserveCycle(CycleOK, time.Second)
	c.ObserveCycle(CycleOutage, time.Second)
	c.ObserveChunk(nil, 100*time.Millisecond)
	c.ObserveChunk(errors.New("timeout"), 5*time.Second)
	c.ObserveSend("open", "sms", nil, time.Millisecond)
	c.ObserveSend("open", "email", fmt.Errorf("dispatch disabled: %w", domain.ErrNotDelivered), time.Millisecond)
	c.ObservePrunes(3, 1)
	c.SetCycleShape(12, 4)
	c.SetCatalogSize(6000)

	assert.Equal(t, 1.0, testutil.ToFloat64(c.cycles.WithLabelValues(CycleOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cycles.WithLabelValues(CycleOutage)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.chunkQueries.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sends.WithLabelValues("open", "sms", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.sends.WithLabelValues("open", "email", "not_delivered")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.prunes.WithLabelValues("pruned")))
	assert.Equal(t, 12.0, testutil.ToFloat64(c.subscriptions))
	assert.Equal(t, 6000.0, testutil.ToFloat64(c.catalogCodes))
	assert.Greater(t, testutil.ToFloat64(c.lastSuccess), 0.0)

	n, err := testutil.GatherAndCount(reg, "test_cycles_total")
	assert.NoError(t, err)
	assert.Equal(t, 2, n)
}
