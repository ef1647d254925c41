// Package db owns the persistent entities of spec.md §3 and the connection
// pool discipline of §4.14. Grounded on the teacher's internal/database
// (gorm.Open + AutoMigrate) and pkg/database (custom scan/value types for
// columns a plain driver can't round-trip), adapted from kagent's
// agent/session/task tables to the AdCP tenant/principal/media-buy domain.
package db

import (
	"time"

	"github.com/adcp-project/sales-agent/internal/jsonfield"
)

// AdServerKind enumerates the ad-server back ends a tenant may select.
type AdServerKind string

const (
	AdServerGoogleAdManager AdServerKind = "google_ad_manager"
	AdServerKevel           AdServerKind = "kevel"
	AdServerMock            AdServerKind = "mock"
)

// BrandManifestPolicy controls whether get_products requires a brand
// manifest and/or authentication (spec.md §4.4).
type BrandManifestPolicy string

const (
	BrandManifestPublic       BrandManifestPolicy = "public"
	BrandManifestRequireBrand BrandManifestPolicy = "require_brand"
	BrandManifestRequireAuth  BrandManifestPolicy = "require_auth"
)

// Tenant is the unit of isolation (spec.md §3).
type Tenant struct {
	TenantID   string `gorm:"primaryKey;column:tenant_id"`
	Subdomain  string `gorm:"uniqueIndex"`
	VirtualHost *string

	AdServer *AdServerKind

	HumanReviewRequired bool
	AutoApproveFormats  jsonfield.StringArray `gorm:"type:jsonb"`
	AuthorizedEmails    jsonfield.StringArray `gorm:"type:jsonb"`
	AuthorizedDomains   jsonfield.StringArray `gorm:"type:jsonb"`
	BrandManifestPolicy BrandManifestPolicy   `gorm:"default:public"`

	// Public discovery data surfaced by list_authorized_properties
	// (spec.md §4.9); disclosable without authentication.
	PublisherDomains     jsonfield.StringArray `gorm:"type:jsonb"`
	PrimaryChannels      jsonfield.StringArray `gorm:"type:jsonb"`
	PrimaryCountries     jsonfield.StringArray `gorm:"type:jsonb"`
	PortfolioDescription string
	AdvertisingPolicies  jsonfield.Object `gorm:"type:jsonb"`

	IsActive bool `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Principal is an authenticated actor within a tenant (spec.md §3).
type Principal struct {
	TenantID          string `gorm:"primaryKey;column:tenant_id"`
	PrincipalID       string `gorm:"primaryKey;column:principal_id"`
	AccessToken       string `gorm:"uniqueIndex"`
	Name              string
	PlatformMappings  jsonfield.PlatformMappings `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// InventoryProfile is a reusable bundle resolved into implementation_config
// at buy time, never at product-definition time (spec.md §3).
type InventoryProfile struct {
	TenantID  string `gorm:"primaryKey;column:tenant_id"`
	ProfileID string `gorm:"primaryKey;column:profile_id"`

	AdUnits             jsonfield.Object `gorm:"type:jsonb"`
	Placements          jsonfield.Object `gorm:"type:jsonb"`
	PublisherProperties jsonfield.Object `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricingOption is one of a product's monetization options (spec.md §3).
type PricingOption struct {
	PricingOptionID    string  `json:"pricing_option_id"`
	PricingModel       string  `json:"pricing_model"`
	Rate               float64 `json:"rate"`
	Currency           string  `json:"currency"`
	IsFixed            bool    `json:"is_fixed"`
	MinSpendPerPackage *float64 `json:"min_spend_per_package,omitempty"`
}

// Product is an offered inventory package (spec.md §3).
type Product struct {
	TenantID  string `gorm:"primaryKey;column:tenant_id"`
	ProductID string `gorm:"primaryKey;column:product_id"`

	Name        string
	Description string

	FormatIDs jsonfield.FormatRefList `gorm:"type:jsonb"`

	InventoryProfileID *string

	AllowedPrincipalIDs jsonfield.StringArray `gorm:"type:jsonb"`

	PricingOptionsJSON jsonfield.Object `gorm:"column:pricing_options;type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PricingOptions decodes the stored pricing options. Errors in stored data
// never propagate to callers as a partial list — see jsonfield normalization.
func (p *Product) PricingOptions() []PricingOption {
	raw, ok := p.PricingOptionsJSON["options"]
	if !ok {
		return nil
	}
	items, ok := raw.([]any)
	if !ok {
		return nil
	}
	out := make([]PricingOption, 0, len(items))
	for _, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		opt := PricingOption{}
		if v, ok := m["pricing_option_id"].(string); ok {
			opt.PricingOptionID = v
		}
		if v, ok := m["pricing_model"].(string); ok {
			opt.PricingModel = v
		}
		if v, ok := m["rate"].(float64); ok {
			opt.Rate = v
		}
		if v, ok := m["currency"].(string); ok {
			opt.Currency = v
		}
		if v, ok := m["is_fixed"].(bool); ok {
			opt.IsFixed = v
		}
		out = append(out, opt)
	}
	return out
}

// MediaBuyStatus is the campaign lifecycle state (spec.md §3).
type MediaBuyStatus string

const (
	MediaBuyPendingActivation MediaBuyStatus = "pending_activation"
	MediaBuyScheduled         MediaBuyStatus = "scheduled"
	MediaBuySubmitted         MediaBuyStatus = "submitted"
	MediaBuyActive            MediaBuyStatus = "active"
	MediaBuyPaused            MediaBuyStatus = "paused"
	MediaBuyCompleted         MediaBuyStatus = "completed"
	MediaBuyFailed            MediaBuyStatus = "failed"
	MediaBuyCanceled          MediaBuyStatus = "canceled"
)

// MediaBuy is a created campaign (spec.md §3).
type MediaBuy struct {
	TenantID   string `gorm:"primaryKey;column:tenant_id"`
	MediaBuyID string `gorm:"primaryKey;column:media_buy_id"`
	BuyerRef   string `gorm:"index"`

	PrincipalID string `gorm:"index"`

	StartTime time.Time
	EndTime   time.Time
	StartDate time.Time
	EndDate   time.Time

	Status MediaBuyStatus `gorm:"index"`
	Paused bool

	Budget   float64
	Currency string

	ReportingWebhookURL string

	RawRequest jsonfield.Object `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreativeStatus is the review state of a creative asset (spec.md §3).
type CreativeStatus string

const (
	CreativePendingReview CreativeStatus = "pending_review"
	CreativeApproved      CreativeStatus = "approved"
	CreativeRejected      CreativeStatus = "rejected"
)

// Creative is an uploaded asset owned by a principal (spec.md §3).
type Creative struct {
	TenantID    string `gorm:"primaryKey;column:tenant_id"`
	CreativeID  string `gorm:"primaryKey;column:creative_id"`
	PrincipalID string `gorm:"index"`

	Name     string
	FormatID jsonfield.FormatRef `gorm:"type:jsonb;embedded:false;serializer:json"`
	Status   CreativeStatus      `gorm:"index"`

	Tags jsonfield.StringArray `gorm:"type:jsonb"`

	Payload jsonfield.Object `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreativeAssignment attaches a creative to a (media_buy, package) pair
// (spec.md §3).
type CreativeAssignment struct {
	TenantID     string `gorm:"primaryKey;column:tenant_id"`
	AssignmentID string `gorm:"primaryKey;column:assignment_id"`

	CreativeID string `gorm:"index"`
	MediaBuyID string `gorm:"index"`
	PackageID  string `gorm:"index"`

	CreatedAt time.Time
}

// PushNotificationConfig is a buyer-registered webhook target (spec.md §3).
type PushNotificationConfig struct {
	ID          string `gorm:"primaryKey"`
	TenantID    string `gorm:"index"`
	PrincipalID string `gorm:"index"`

	URL             string
	AuthScheme      *string
	AuthCredentials *string
	ValidationToken *string

	IsActive bool `gorm:"default:true"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// TaskInvocationType distinguishes explicit-skill calls from natural
// language routing (spec.md §3).
type TaskInvocationType string

const (
	InvocationExplicitSkill   TaskInvocationType = "explicit_skill"
	InvocationNaturalLanguage TaskInvocationType = "natural_language"
)

// TaskRecord is the persisted projection of an A2A Task (spec.md §3); the
// protocol-shaped object served over the wire is built from this record by
// internal/task.
type TaskRecord struct {
	TaskID    string `gorm:"primaryKey;column:task_id"`
	ContextID string `gorm:"index"`

	TenantID    string `gorm:"index"`
	PrincipalID string `gorm:"index"`

	RequestedSkills jsonfield.StringArray `gorm:"type:jsonb"`
	InvocationType  TaskInvocationType

	Status     string
	ResultJSON jsonfield.Object `gorm:"column:result;type:jsonb"`
	ErrorJSON  jsonfield.Object `gorm:"column:error;type:jsonb"`

	PushConfigID *string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// WorkflowStep is a discrete step of an async workflow, e.g. manual
// approval, with typed comments (spec.md §3).
type WorkflowStep struct {
	StepID     string `gorm:"primaryKey;column:step_id"`
	TenantID   string `gorm:"index"`
	MediaBuyID string `gorm:"index"`

	StepType string
	Status   string
	Comments jsonfield.CommentList `gorm:"type:jsonb"`

	CreatedAt time.Time
	UpdatedAt time.Time
}

// AllModels lists every GORM model migrated by Manager.Initialize, mirroring
// the teacher's explicit AutoMigrate call list in internal/database/manager.go.
func AllModels() []any {
	return []any{
		&Tenant{},
		&Principal{},
		&InventoryProfile{},
		&Product{},
		&MediaBuy{},
		&Creative{},
		&CreativeAssignment{},
		&PushNotificationConfig{},
		&TaskRecord{},
		&WorkflowStep{},
	}
}
