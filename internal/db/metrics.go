package db

import "github.com/prometheus/client_golang/prometheus"

// poolGauges exports Manager.PoolStats as Prometheus gauges, grounded on the
// teacher's use of client_golang to expose internal counters alongside
// business metrics.
type poolGauges struct {
	size       prometheus.Gauge
	checkedIn  prometheus.Gauge
	checkedOut prometheus.Gauge
	overflow   prometheus.Gauge
}

func newPoolGauges(reg prometheus.Registerer) *poolGauges {
	g := &poolGauges{
		size: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adcp_db_pool_size",
			Help: "Configured base connection pool size.",
		}),
		checkedIn: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adcp_db_pool_checked_in",
			Help: "Idle connections currently checked in to the pool.",
		}),
		checkedOut: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adcp_db_pool_checked_out",
			Help: "Connections currently checked out of the pool.",
		}),
		overflow: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "adcp_db_pool_overflow",
			Help: "Connections beyond the base pool size, clamped to zero or above.",
		}),
	}
	reg.MustRegister(g.size, g.checkedIn, g.checkedOut, g.overflow)
	return g
}

func (g *poolGauges) observe(s PoolStats) {
	g.size.Set(float64(s.Size))
	g.checkedIn.Set(float64(s.CheckedIn))
	g.checkedOut.Set(float64(s.CheckedOut))
	g.overflow.Set(float64(s.Overflow))
}

// RegisterMetrics wires Manager's pool stats into reg, returning a function
// that refreshes the gauges; callers schedule this on a ticker.
func (m *Manager) RegisterMetrics(reg prometheus.Registerer) func() {
	gauges := newPoolGauges(reg)
	return func() {
		gauges.observe(m.PoolStats())
	}
}
