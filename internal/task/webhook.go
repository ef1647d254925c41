package task

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-logr/logr"

	"github.com/adcp-project/sales-agent/internal/db"
)

// containerHost is what a "localhost" webhook URL is rewritten to, so
// dev/test environments where the buyer and the agent run in separate
// containers can still reach each other (spec.md §4.12).
const containerHost = "host.docker.internal"

// Recorder observes webhook delivery outcomes for metrics export.
// internal/obs.Metrics satisfies this structurally.
type Recorder interface {
	ObserveWebhookSend(outcome string)
}

// WebhookSender delivers best-effort HTTP webhooks with a bounded timeout.
// Grounded on the teacher's taskstore.KAgentPushNotificationStore, which
// uses a shared *http.Client for all outbound calls to the control plane;
// here the same client shape posts to buyer-registered URLs instead.
type WebhookSender struct {
	client   *http.Client
	log      logr.Logger
	recorder Recorder
}

func NewWebhookSender(log logr.Logger) *WebhookSender {
	return &WebhookSender{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// SetRecorder attaches a metrics Recorder; cmd/server calls this once at
// startup with an internal/obs.Metrics instance.
func (w *WebhookSender) SetRecorder(r Recorder) {
	w.recorder = r
}

func (w *WebhookSender) record(outcome string) {
	if w.recorder != nil {
		w.recorder.ObserveWebhookSend(outcome)
	}
}

// Send posts payload to cfg.URL, rewriting localhost for container
// reachability and attaching stored auth. Marshal, request and transport
// failures are logged and returned; a non-2xx response is logged and
// reported as nil. Callers in this package discard the returned error, so a
// webhook failure never fails the call that triggered it.
func (w *WebhookSender) Send(ctx context.Context, cfg *db.PushNotificationConfig, shape string, payload map[string]any) error {
	target := rewriteLocalhost(cfg.URL)

	body, err := json.Marshal(payload)
	if err != nil {
		w.log.Error(err, "webhook: failed to marshal payload", "shape", shape)
		w.record("marshal_error")
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		w.log.Error(err, "webhook: failed to build request", "url", target)
		w.record("request_error")
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if cfg.AuthScheme != nil && cfg.AuthCredentials != nil {
		req.Header.Set("Authorization", fmt.Sprintf("%s %s", *cfg.AuthScheme, *cfg.AuthCredentials))
	}

	resp, err := w.client.Do(req)
	if err != nil {
		w.log.Error(err, "webhook: delivery failed", "url", target)
		w.record("delivery_error")
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		w.log.Info("webhook: non-2xx response", "url", target, "status", resp.StatusCode)
		w.record("non_2xx")
		return nil
	}
	w.record("delivered")
	return nil
}

func rewriteLocalhost(rawURL string) string {
	replacer := strings.NewReplacer(
		"localhost", containerHost,
		"127.0.0.1", containerHost,
	)
	return replacer.Replace(rawURL)
}
