// Package task owns the A2A Task projection, the push-notification config
// store, the webhook factory, and the two background schedulers of
// spec.md §4.12. Grounded on the teacher's a2a/taskstore package (Save/Get/
// List/Delete CRUD over push configs), adapted here from an HTTP-backed
// store to a GORM-backed one since our configs live in our own database
// rather than behind a separate controller API.
package task

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/adcp-project/sales-agent/internal/db"
)

// PushConfigStore is the GORM-backed equivalent of the teacher's
// KAgentPushNotificationStore, scoped to (tenant, principal) per spec.md §3.
type PushConfigStore struct {
	gdb *gorm.DB
}

func NewPushConfigStore(gdb *gorm.DB) *PushConfigStore {
	return &PushConfigStore{gdb: gdb}
}

// Save creates or replaces a push-notification config for (tenantID, principalID).
func (s *PushConfigStore) Save(ctx context.Context, tenantID, principalID string, cfg *db.PushNotificationConfig) (*db.PushNotificationConfig, error) {
	if cfg == nil {
		return nil, fmt.Errorf("taskstore: push notification config cannot be nil")
	}
	if cfg.ID == "" {
		cfg.ID = "pnc_" + uuid.NewString()
	}
	cfg.TenantID = tenantID
	cfg.PrincipalID = principalID
	cfg.IsActive = true

	if err := s.gdb.WithContext(ctx).Save(cfg).Error; err != nil {
		return nil, fmt.Errorf("taskstore: save failed: %w", err)
	}
	return cfg, nil
}

// Get retrieves a config scoped to (tenant, principal); nil, nil if absent
// or soft-deleted — callers map that to a not_found transport error.
func (s *PushConfigStore) Get(ctx context.Context, tenantID, principalID, configID string) (*db.PushNotificationConfig, error) {
	var cfg db.PushNotificationConfig
	err := s.gdb.WithContext(ctx).
		Where("tenant_id = ? AND principal_id = ? AND id = ? AND is_active = true", tenantID, principalID, configID).
		First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("taskstore: get failed: %w", err)
	}
	return &cfg, nil
}

// List retrieves every active config for (tenant, principal).
func (s *PushConfigStore) List(ctx context.Context, tenantID, principalID string) ([]*db.PushNotificationConfig, error) {
	var configs []*db.PushNotificationConfig
	err := s.gdb.WithContext(ctx).
		Where("tenant_id = ? AND principal_id = ? AND is_active = true", tenantID, principalID).
		Find(&configs).Error
	if err != nil {
		return nil, fmt.Errorf("taskstore: list failed: %w", err)
	}
	return configs, nil
}

// Delete soft-deletes a config (is_active=false), matching spec.md §3's
// "never hard-delete" discipline for push configs.
func (s *PushConfigStore) Delete(ctx context.Context, tenantID, principalID, configID string) error {
	err := s.gdb.WithContext(ctx).Model(&db.PushNotificationConfig{}).
		Where("tenant_id = ? AND principal_id = ? AND id = ?", tenantID, principalID, configID).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("taskstore: delete failed: %w", err)
	}
	return nil
}

// DeleteAll soft-deletes every config for (tenant, principal).
func (s *PushConfigStore) DeleteAll(ctx context.Context, tenantID, principalID string) error {
	err := s.gdb.WithContext(ctx).Model(&db.PushNotificationConfig{}).
		Where("tenant_id = ? AND principal_id = ?", tenantID, principalID).
		Update("is_active", false).Error
	if err != nil {
		return fmt.Errorf("taskstore: delete all failed: %w", err)
	}
	return nil
}

// ForMediaBuyWebhooks resolves the active push config a media buy's
// reporting_webhook URL was registered under, used by the delivery
// scheduler to find auth credentials for an out-of-band URL string.
func (s *PushConfigStore) ForMediaBuyWebhooks(ctx context.Context, tenantID, url string) (*db.PushNotificationConfig, error) {
	var cfg db.PushNotificationConfig
	err := s.gdb.WithContext(ctx).
		Where("tenant_id = ? AND url = ? AND is_active = true", tenantID, url).
		First(&cfg).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &cfg, nil
}
