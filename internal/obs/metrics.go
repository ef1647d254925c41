package obs

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the request/webhook counters this process exports
// alongside internal/db's pool gauges, grounded on the same
// prometheus.NewGauge/NewCounterVec style as db/metrics.go.
type Metrics struct {
	SkillCalls   *prometheus.CounterVec
	SkillErrors  *prometheus.CounterVec
	WebhookSends *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		SkillCalls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adcp_skill_calls_total",
			Help: "Skill invocations by skill name and transport.",
		}, []string{"skill", "transport"}),
		SkillErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adcp_skill_errors_total",
			Help: "Skill invocations that returned a transport error.",
		}, []string{"skill", "kind"}),
		WebhookSends: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "adcp_webhook_sends_total",
			Help: "Webhook delivery attempts by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(m.SkillCalls, m.SkillErrors, m.WebhookSends)
	return m
}

// Handler exposes the registry in the standard Prometheus exposition
// format for a "/metrics" route.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// ObserveCall and ObserveError satisfy internal/dispatch.Recorder, letting
// cmd/server hand *Metrics straight to Dispatcher.SetRecorder without obs
// ever being imported by dispatch.
func (m *Metrics) ObserveCall(skill, transport string) {
	m.SkillCalls.WithLabelValues(skill, transport).Inc()
}

func (m *Metrics) ObserveError(skill, kind string) {
	m.SkillErrors.WithLabelValues(skill, kind).Inc()
}

// ObserveWebhookSend satisfies internal/task.Recorder.
func (m *Metrics) ObserveWebhookSend(outcome string) {
	m.WebhookSends.WithLabelValues(outcome).Inc()
}
