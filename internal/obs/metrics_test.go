package obs

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveCallIncrementsSkillCalls(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveCall("get_products", "mcp")
	m.ObserveCall("get_products", "mcp")
	assert.Equal(t, 2.0, testutil.ToFloat64(m.SkillCalls.WithLabelValues("get_products", "mcp")))
}

func TestObserveErrorIncrementsSkillErrors(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveError("create_media_buy", "invalid_params")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SkillErrors.WithLabelValues("create_media_buy", "invalid_params")))
}

func TestObserveWebhookSendIncrementsByOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.ObserveWebhookSend("delivered")
	m.ObserveWebhookSend("non_2xx")
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookSends.WithLabelValues("delivered")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.WebhookSends.WithLabelValues("non_2xx")))
}
