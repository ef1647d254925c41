package a2a

import (
	"net/http"
	"strings"

	"trpc.group/trpc-go/trpc-a2a-go/server"
)

// implementedSkills lists the nine AdCP skills this agent actually serves
// over A2A, in the same order spec.md §4.4-4.9 documents them. Legacy
// skills the original conversational agent exposed (approve_creative,
// get_media_buy_status, optimize_media_buy, pricing/targeting lookups) are
// out of scope and intentionally excluded from the card.
var implementedSkills = []server.AgentSkill{
	{ID: "get_products", Name: "Get Products", Description: strPtr("Discover advertising products matching a brief or brand manifest."), Tags: []string{"discovery"}},
	{ID: "create_media_buy", Name: "Create Media Buy", Description: strPtr("Create a new media buy from one or more packages."), Tags: []string{"buying"}},
	{ID: "update_media_buy", Name: "Update Media Buy", Description: strPtr("Update an existing media buy by id or buyer_ref."), Tags: []string{"buying"}},
	{ID: "get_media_buy_delivery", Name: "Get Media Buy Delivery", Description: strPtr("Fetch delivery totals and per-package metrics for media buys."), Tags: []string{"reporting"}},
	{ID: "update_performance_index", Name: "Update Performance Index", Description: strPtr("Report buyer-observed performance data for a media buy."), Tags: []string{"reporting"}},
	{ID: "sync_creatives", Name: "Sync Creatives", Description: strPtr("Upsert creatives and optionally assign them to packages."), Tags: []string{"creative"}},
	{ID: "list_creatives", Name: "List Creatives", Description: strPtr("List the caller's creative library with filters and pagination."), Tags: []string{"creative"}},
	{ID: "list_creative_formats", Name: "List Creative Formats", Description: strPtr("List creative formats accepted by this tenant."), Tags: []string{"discovery"}},
	{ID: "list_authorized_properties", Name: "List Authorized Properties", Description: strPtr("List publicly disclosable publisher properties for this tenant."), Tags: []string{"discovery"}},
}

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// BaseAgentCard builds the static AdCP agent card (spec.md §4.13), grounded
// on the Python original's create_agent_card(). url is overwritten per
// request by RewriteCardURL, since the same process serves many tenant
// subdomains.
func BaseAgentCard(description, url string) server.AgentCard {
	return server.AgentCard{
		Name:        "AdCP Sales Agent",
		Description: description,
		URL:         url,
		Version:     "1.0.0",
		Capabilities: server.AgentCapabilities{
			Streaming:              boolPtr(true),
			PushNotifications:      boolPtr(true),
			StateTransitionHistory: boolPtr(false),
		},
		Skills:             implementedSkills,
		DefaultInputModes:  []string{"message"},
		DefaultOutputModes: []string{"message"},
	}
}

// RewriteCardURL returns a copy of card with URL replaced by the scheme and
// authority the caller actually used to reach this process (spec.md §4.13):
// Apx-Incoming-Host takes priority over Host, localhost/127.0.0.1
// authorities get http instead of https, and the URL always ends in /a2a,
// never a bare trailing slash, since that is the path the JSON-RPC endpoint
// is actually mounted on (spec.md §6, §8).
func RewriteCardURL(card server.AgentCard, r *http.Request) server.AgentCard {
	authority := r.Header.Get("Apx-Incoming-Host")
	if authority == "" {
		authority = r.Host
	}

	scheme := "https"
	if strings.HasPrefix(authority, "localhost") || strings.HasPrefix(authority, "127.0.0.1") {
		scheme = "http"
	}

	card.URL = scheme + "://" + authority + "/a2a"
	return card
}
