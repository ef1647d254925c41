package task

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adcp-project/sales-agent/internal/db"
	"github.com/adcp-project/sales-agent/internal/jsonfield"
)

// terminalStates get a full Task webhook payload; everything else gets a
// TaskStatusUpdateEvent, per spec.md §4.12's webhook factory rule.
var terminalStates = map[string]bool{
	"completed": true,
	"failed":    true,
	"canceled":  true,
}

// Service owns Task persistence, the webhook factory, and push config
// delivery. Grounded on the teacher's go-adk/pkg/a2a.Manager, which plays
// the analogous role of bridging persisted task state to A2A wire shapes.
type Service struct {
	gdb        *gorm.DB
	pushConfig *PushConfigStore
	webhooks   *WebhookSender
}

func NewService(gdb *gorm.DB, pushConfig *PushConfigStore, webhooks *WebhookSender) *Service {
	return &Service{gdb: gdb, pushConfig: pushConfig, webhooks: webhooks}
}

// CreateTask persists a new TaskRecord and returns it. invocationType
// distinguishes an explicit-skill A2A call from a natural-language routed
// one (spec.md §3).
func (s *Service) CreateTask(ctx context.Context, contextID, tenantID, principalID string, requestedSkills []string, invocationType db.TaskInvocationType) (*db.TaskRecord, error) {
	t := &db.TaskRecord{
		TaskID:          "task_" + uuid.NewString(),
		ContextID:       contextID,
		TenantID:        tenantID,
		PrincipalID:     principalID,
		RequestedSkills: jsonfield.StringArray(requestedSkills),
		InvocationType:  invocationType,
		Status:          "working",
	}
	if err := s.gdb.WithContext(ctx).Create(t).Error; err != nil {
		return nil, fmt.Errorf("task: create failed: %w", err)
	}
	return t, nil
}

// UpdateStatus transitions a task's status, persists the result/error, and
// fires a best-effort webhook if the principal has a registered push
// config. Webhook delivery failures never propagate — per spec.md §4.12,
// the originating call must never fail because of a webhook.
func (s *Service) UpdateStatus(ctx context.Context, taskID, status string, result, errorPayload map[string]any) (*db.TaskRecord, error) {
	var t db.TaskRecord
	if err := s.gdb.WithContext(ctx).Where("task_id = ?", taskID).First(&t).Error; err != nil {
		return nil, fmt.Errorf("task: lookup failed: %w", err)
	}
	t.Status = status
	t.ResultJSON = jsonfield.Object(result)
	t.ErrorJSON = jsonfield.Object(errorPayload)

	if err := s.gdb.WithContext(ctx).Save(&t).Error; err != nil {
		return nil, fmt.Errorf("task: save failed: %w", err)
	}

	s.fireWebhookBestEffort(ctx, &t)
	return &t, nil
}

// RegisterPushConfigFromInput parses an inline push_notification_config
// object (spec.md §4.5's create_media_buy input contract: url, optional
// token, optional authentication.schemes/credentials) and links it to
// taskID, mirroring the shape internal/transport/a2a's
// OnPushNotificationSet builds from protocol.PushNotificationConfig. A
// caller that supplies push_notification_config inline on the create call
// — rather than registering it afterwards via the A2A push-notification
// RPC, which needs a task_id the caller can't know in advance — reaches the
// same webhook delivery path this way. A missing or malformed url is a
// no-op: inline push config is optional.
func (s *Service) RegisterPushConfigFromInput(ctx context.Context, taskID, tenantID, principalID string, raw map[string]any) error {
	url, _ := raw["url"].(string)
	if url == "" {
		return nil
	}

	cfg := &db.PushNotificationConfig{URL: url}
	if token, ok := raw["token"].(string); ok && token != "" {
		cfg.ValidationToken = &token
	}
	if auth, ok := raw["authentication"].(map[string]any); ok {
		if schemes, ok := auth["schemes"].([]any); ok && len(schemes) > 0 {
			if scheme, ok := schemes[0].(string); ok {
				cfg.AuthScheme = &scheme
			}
		}
		if creds, ok := auth["credentials"].(string); ok && creds != "" {
			cfg.AuthCredentials = &creds
		}
	}

	saved, err := s.pushConfig.Save(ctx, tenantID, principalID, cfg)
	if err != nil {
		return fmt.Errorf("task: register inline push config: %w", err)
	}
	return s.SetPushConfig(ctx, taskID, saved.ID)
}

// SetPushConfig links a registered push notification config to a task.
func (s *Service) SetPushConfig(ctx context.Context, taskID, pushConfigID string) error {
	err := s.gdb.WithContext(ctx).Model(&db.TaskRecord{}).
		Where("task_id = ?", taskID).
		Update("push_config_id", pushConfigID).Error
	if err != nil {
		return fmt.Errorf("task: link push config failed: %w", err)
	}
	return nil
}

// Get loads a TaskRecord by id, returning (nil, nil) if it does not exist.
func (s *Service) Get(ctx context.Context, taskID string) (*db.TaskRecord, error) {
	var t db.TaskRecord
	err := s.gdb.WithContext(ctx).Where("task_id = ?", taskID).First(&t).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("task: lookup failed: %w", err)
	}
	return &t, nil
}

func (s *Service) fireWebhookBestEffort(ctx context.Context, t *db.TaskRecord) {
	if t.PushConfigID == nil {
		return
	}
	cfg, err := s.pushConfig.Get(ctx, t.TenantID, t.PrincipalID, *t.PushConfigID)
	if err != nil || cfg == nil {
		return
	}
	shape, payload := BuildWebhookPayload(t)
	_ = s.webhooks.Send(ctx, cfg, shape, payload) // errors are logged inside Send, never surfaced
}

// BuildWebhookPayload is the single factory of spec.md §4.12: it selects
// between a full Task and a TaskStatusUpdateEvent shape based on whether
// status is terminal, and merges a failed task's error under result.error.
func BuildWebhookPayload(t *db.TaskRecord) (shape string, payload map[string]any) {
	result := map[string]any(t.ResultJSON)
	if result == nil {
		result = map[string]any{}
	}
	if t.Status == "failed" && len(t.ErrorJSON) > 0 {
		result["error"] = map[string]any(t.ErrorJSON)
	}

	base := map[string]any{
		"task_id":    t.TaskID,
		"context_id": t.ContextID,
		"status":     t.Status,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
		"result":     result,
	}

	if terminalStates[t.Status] {
		return "task", base
	}
	return "task_status_update_event", base
}
