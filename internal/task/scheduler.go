package task

import (
	"context"
	"time"

	"github.com/go-logr/logr"
	"gorm.io/gorm"

	"github.com/adcp-project/sales-agent/internal/adapter"
	"github.com/adcp-project/sales-agent/internal/db"
)

// Scheduler runs the two background actors of spec.md §4.12: the delivery
// webhook scheduler and the media-buy status scheduler. Grounded on the
// teacher's cmd-level signal-driven goroutines (time.Ticker + context
// cancellation on SIGTERM), generalized from a single reconciliation loop
// to two independent ones.
type Scheduler struct {
	gdb      *gorm.DB
	adapters *adapter.Registry
	webhooks *WebhookSender
	push     *PushConfigStore
	log      logr.Logger
}

func NewScheduler(gdb *gorm.DB, adapters *adapter.Registry, webhooks *WebhookSender, push *PushConfigStore, log logr.Logger) *Scheduler {
	return &Scheduler{gdb: gdb, adapters: adapters, webhooks: webhooks, push: push, log: log}
}

// RunDeliveryScheduler fires one "scheduled" delivery webhook per interval
// for every active media buy that registered a reporting_webhook. It is the
// single logical actor per process named in spec.md §4.12 — a lone ticker
// loop, not a pool of workers, so the same media buy can never double-fire
// within one tick.
func (s *Scheduler) RunDeliveryScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickDelivery(ctx, interval)
		}
	}
}

func (s *Scheduler) tickDelivery(ctx context.Context, interval time.Duration) {
	var buys []db.MediaBuy
	err := s.gdb.WithContext(ctx).
		Where("status = ? AND reporting_webhook_url <> ''", db.MediaBuyActive).
		Find(&buys).Error
	if err != nil {
		s.log.Error(err, "scheduler: failed to list media buys for delivery webhook")
		return
	}

	for _, mb := range buys {
		var t db.Tenant
		if err := s.gdb.WithContext(ctx).Where("tenant_id = ?", mb.TenantID).First(&t).Error; err != nil {
			s.log.Error(err, "scheduler: failed to load tenant", "tenant_id", mb.TenantID)
			continue
		}
		kind := "mock"
		if t.AdServer != nil {
			kind = string(*t.AdServer)
		}
		ad, ok := s.adapters.Resolve(kind)
		if !ok {
			continue
		}
		delivery, err := ad.GetDelivery(ctx, nil, mb.MediaBuyID, mb.StartDate, time.Now())
		if err != nil {
			s.log.Error(err, "scheduler: get_delivery failed", "media_buy_id", mb.MediaBuyID)
			continue
		}

		cfg, err := s.push.ForMediaBuyWebhooks(ctx, mb.TenantID, mb.ReportingWebhookURL)
		if err != nil {
			s.log.Error(err, "scheduler: push config lookup failed", "media_buy_id", mb.MediaBuyID)
			continue
		}
		if cfg == nil {
			// No registered config carries credentials for this URL; send
			// unauthenticated.
			cfg = &db.PushNotificationConfig{URL: mb.ReportingWebhookURL}
		}

		payload := map[string]any{
			"task_id":           "",
			"status":            "scheduled",
			"timestamp":         time.Now().UTC().Format(time.RFC3339),
			"context_id":        "",
			"notification_type": "scheduled",
			"next_expected_at":  time.Now().Add(interval).UTC().Format(time.RFC3339),
			"result": map[string]any{
				"media_buy_deliveries": []map[string]any{
					{
						"media_buy_id": mb.MediaBuyID,
						"totals": map[string]any{
							"impressions": delivery.Totals.Impressions,
							"clicks":      delivery.Totals.Clicks,
							"spend":       delivery.Totals.Spend,
						},
					},
				},
			},
		}
		_ = s.webhooks.Send(ctx, cfg, "task_status_update_event", payload)
	}
}

// RunStatusScheduler transitions pending_activation/scheduled media buys to
// active once their flight has started and their creatives are approved,
// and active media buys to completed once their flight has ended.
func (s *Scheduler) RunStatusScheduler(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickStatus(ctx)
		}
	}
}

func (s *Scheduler) tickStatus(ctx context.Context) {
	now := time.Now()

	var activating []db.MediaBuy
	err := s.gdb.WithContext(ctx).
		Where("status IN ? AND start_time <= ?", []db.MediaBuyStatus{db.MediaBuyPendingActivation, db.MediaBuyScheduled}, now).
		Find(&activating).Error
	if err != nil {
		s.log.Error(err, "scheduler: failed to list activating media buys")
	}
	for _, mb := range activating {
		ready, err := s.allCreativesApproved(ctx, mb.TenantID, mb.MediaBuyID)
		if err != nil {
			s.log.Error(err, "scheduler: creative approval check failed", "media_buy_id", mb.MediaBuyID)
			continue
		}
		if !ready {
			continue
		}
		if err := s.gdb.WithContext(ctx).Model(&mb).Update("status", db.MediaBuyActive).Error; err != nil {
			s.log.Error(err, "scheduler: failed to activate media buy", "media_buy_id", mb.MediaBuyID)
		}
	}

	var completing []db.MediaBuy
	err = s.gdb.WithContext(ctx).
		Where("status = ? AND end_time <= ?", db.MediaBuyActive, now).
		Find(&completing).Error
	if err != nil {
		s.log.Error(err, "scheduler: failed to list completing media buys")
		return
	}
	for _, mb := range completing {
		if err := s.gdb.WithContext(ctx).Model(&mb).Update("status", db.MediaBuyCompleted).Error; err != nil {
			s.log.Error(err, "scheduler: failed to complete media buy", "media_buy_id", mb.MediaBuyID)
		}
	}
}

func (s *Scheduler) allCreativesApproved(ctx context.Context, tenantID, mediaBuyID string) (bool, error) {
	var pendingCount int64
	err := s.gdb.WithContext(ctx).
		Model(&db.Creative{}).
		Joins("JOIN creative_assignments ON creative_assignments.creative_id = creatives.creative_id AND creative_assignments.tenant_id = creatives.tenant_id").
		Where("creatives.tenant_id = ? AND creative_assignments.media_buy_id = ? AND creatives.status <> ?", tenantID, mediaBuyID, db.CreativeApproved).
		Count(&pendingCount).Error
	if err != nil {
		return false, err
	}
	return pendingCount == 0, nil
}
