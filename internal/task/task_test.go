package task

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-logr/logr/testr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/jsonfield"
)

func TestBuildWebhookPayloadTerminalStateIsTaskShape(t *testing.T) {
	rec := &db.TaskRecord{TaskID: "t1", ContextID: "c1", Status: "completed", ResultJSON: jsonfield.Object{"ok": true}}
	shape, payload := BuildWebhookPayload(rec)
	assert.Equal(t, "task", shape)
	assert.Equal(t, "t1", payload["task_id"])
}

func TestBuildWebhookPayloadIntermediateStateIsStatusUpdateShape(t *testing.T) {
	rec := &db.TaskRecord{TaskID: "t2", ContextID: "c2", Status: "working"}
	shape, _ := BuildWebhookPayload(rec)
	assert.Equal(t, "task_status_update_event", shape)
}

func TestBuildWebhookPayloadMergesErrorIntoResultOnFailure(t *testing.T) {
	rec := &db.TaskRecord{
		TaskID:     "t3",
		Status:     "failed",
		ResultJSON: jsonfield.Object{"partial": true},
		ErrorJSON:  jsonfield.Object{"code": "adapter_error"},
	}
	_, payload := BuildWebhookPayload(rec)
	result := payload["result"].(map[string]any)
	assert.Equal(t, map[string]any{"code": "adapter_error"}, result["error"])
}

func TestRewriteLocalhostTargetsContainerHost(t *testing.T) {
	assert.Equal(t, "http://host.docker.internal:8080/hook", rewriteLocalhost("http://localhost:8080/hook"))
	assert.Equal(t, "http://host.docker.internal:8080/hook", rewriteLocalhost("http://127.0.0.1:8080/hook"))
	assert.Equal(t, "https://example.com/hook", rewriteLocalhost("https://example.com/hook"))
}

type fakeWebhookRecorder struct {
	outcomes []string
}

func (f *fakeWebhookRecorder) ObserveWebhookSend(outcome string) {
	f.outcomes = append(f.outcomes, outcome)
}

func TestWebhookSenderRecordsDeliveredOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	rec := &fakeWebhookRecorder{}
	sender := NewWebhookSender(testr.New(t))
	sender.SetRecorder(rec)

	err := sender.Send(context.Background(), &db.PushNotificationConfig{URL: srv.URL}, "task", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"delivered"}, rec.outcomes)
}

func TestWebhookSenderRecordsNon2xxOutcome(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	rec := &fakeWebhookRecorder{}
	sender := NewWebhookSender(testr.New(t))
	sender.SetRecorder(rec)

	err := sender.Send(context.Background(), &db.PushNotificationConfig{URL: srv.URL}, "task", map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []string{"non_2xx"}, rec.outcomes)
}
