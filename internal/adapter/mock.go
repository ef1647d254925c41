package adapter

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Mock is the authoritative adapter for tests and testing-flagged
// environments (spec.md §4.13). It never calls out to a network; its
// behavior is driven entirely by the testing_context passed alongside each
// call, letting scenario tests force specific statuses/errors.
type Mock struct{}

func NewMock() *Mock {
	return &Mock{}
}

// CreateMediaBuy returns "pending_activation" for a future start time and
// "active" otherwise, unless testing_context forces a status.
func (m *Mock) CreateMediaBuy(ctx context.Context, cfg map[string]any, in CreateMediaBuyInput) (*CreateMediaBuyOutput, error) {
	if forced, ok := forcedStatus(in.TestingContext); ok {
		if forced == "adapter_error" {
			return nil, &AdServerError{Code: "mock_forced_error", Message: "forced failure via testing_context"}
		}
		return buildCreateOutput(in, forced), nil
	}

	status := "active"
	if in.StartTime.After(time.Now()) {
		status = "pending_activation"
	}
	return buildCreateOutput(in, status), nil
}

func buildCreateOutput(in CreateMediaBuyInput, status string) *CreateMediaBuyOutput {
	lineItems := make([]LineItem, 0, len(in.Packages))
	for _, pkg := range in.Packages {
		lineItems = append(lineItems, LineItem{
			PackageID:  pkg.BuyerRef,
			LineItemID: "li_" + uuid.NewString(),
			Status:     status,
		})
	}
	return &CreateMediaBuyOutput{
		MediaBuyID: in.MediaBuyID,
		Status:     status,
		LineItems:  lineItems,
	}
}

func forcedStatus(testingContext map[string]any) (string, bool) {
	if testingContext == nil {
		return "", false
	}
	v, ok := testingContext["force_status"].(string)
	return v, ok
}

// UpdateMediaBuy reports every package named in the input as affected; the
// mock has no real inventory to partially reject against.
func (m *Mock) UpdateMediaBuy(ctx context.Context, cfg map[string]any, in UpdateMediaBuyInput) (*UpdateMediaBuySuccess, error) {
	affected := make([]string, 0, len(in.Packages))
	for _, pkg := range in.Packages {
		affected = append(affected, pkg.BuyerRef)
	}
	return &UpdateMediaBuySuccess{AffectedPackageIDs: affected}, nil
}

// GetDelivery synthesizes deterministic, non-zero delivery numbers so
// scenario tests have something to assert on without a real ad server.
func (m *Mock) GetDelivery(ctx context.Context, cfg map[string]any, mediaBuyID string, start, end time.Time) (*GetDeliveryOutput, error) {
	days := end.Sub(start).Hours() / 24
	if days < 1 {
		days = 1
	}
	impressions := int64(days * 10000)
	clicks := impressions / 200
	spend := float64(impressions) * 0.005

	return &GetDeliveryOutput{
		MediaBuyID: mediaBuyID,
		Totals: DeliveryTotals{
			Impressions: impressions,
			Clicks:      clicks,
			Spend:       spend,
		},
		Packages: nil,
	}, nil
}

// SyncCreatives approves every creative with a non-empty payload and sends
// the rest to pending_review, mirroring a lenient default reviewer.
func (m *Mock) SyncCreatives(ctx context.Context, cfg map[string]any, creatives []CreativeSyncInput) ([]CreativeSyncResult, error) {
	results := make([]CreativeSyncResult, 0, len(creatives))
	for _, c := range creatives {
		status := "approved"
		if len(c.Payload) == 0 {
			status = "pending_review"
		}
		results = append(results, CreativeSyncResult{CreativeID: c.CreativeID, Status: status})
	}
	return results, nil
}

// unimplementedAdServer documents a real-backend adapter slot without
// wiring a vendor SDK (spec.md §1 scopes concrete ad-server SDKs out of the
// core). Registering one of these lets Registry.Resolve succeed while
// every call fails loudly instead of silently behaving like Mock.
type unimplementedAdServer struct {
	kind string
}

// NewGoogleAdManager returns a documented stub: the Google Ad Manager SOAP
// API client is intentionally out of scope (spec.md §1 Non-goals).
func NewGoogleAdManager() AdServer {
	return &unimplementedAdServer{kind: "google_ad_manager"}
}

// NewKevel returns a documented stub for the same reason.
func NewKevel() AdServer {
	return &unimplementedAdServer{kind: "kevel"}
}

func (u *unimplementedAdServer) unimplemented() error {
	return fmt.Errorf("adapter: %s is not implemented in this deployment; configure tenant.ad_server=mock for testing", u.kind)
}

func (u *unimplementedAdServer) CreateMediaBuy(ctx context.Context, cfg map[string]any, in CreateMediaBuyInput) (*CreateMediaBuyOutput, error) {
	return nil, u.unimplemented()
}

func (u *unimplementedAdServer) UpdateMediaBuy(ctx context.Context, cfg map[string]any, in UpdateMediaBuyInput) (*UpdateMediaBuySuccess, error) {
	return nil, u.unimplemented()
}

func (u *unimplementedAdServer) GetDelivery(ctx context.Context, cfg map[string]any, mediaBuyID string, start, end time.Time) (*GetDeliveryOutput, error) {
	return nil, u.unimplemented()
}

func (u *unimplementedAdServer) SyncCreatives(ctx context.Context, cfg map[string]any, creatives []CreativeSyncInput) ([]CreativeSyncResult, error) {
	return nil, u.unimplemented()
}
