package a2a

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBaseAgentCardListsAllNineSkills(t *testing.T) {
	card := BaseAgentCard("a sales agent", "http://localhost:8091")
	assert.Len(t, card.Skills, 9)
	assert.Equal(t, "AdCP Sales Agent", card.Name)
}

func TestRewriteCardURLPrefersApxIncomingHost(t *testing.T) {
	card := BaseAgentCard("desc", "http://placeholder")
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent-card.json", nil)
	req.Header.Set("Apx-Incoming-Host", "tenant.adcp.example.com")
	req.Host = "internal-service:8091"

	rewritten := RewriteCardURL(card, req)
	assert.Equal(t, "https://tenant.adcp.example.com/a2a", rewritten.URL)
}

func TestRewriteCardURLUsesHTTPForLocalhost(t *testing.T) {
	card := BaseAgentCard("desc", "http://placeholder")
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent-card.json", nil)
	req.Host = "localhost:8091"

	rewritten := RewriteCardURL(card, req)
	assert.Equal(t, "http://localhost:8091/a2a", rewritten.URL)
}

func TestRewriteCardURLFallsBackToHost(t *testing.T) {
	card := BaseAgentCard("desc", "http://placeholder")
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent-card.json", nil)
	req.Host = "tenant.adcp.example.com"

	rewritten := RewriteCardURL(card, req)
	assert.Equal(t, "https://tenant.adcp.example.com/a2a", rewritten.URL)
}

func TestRewriteCardURLNeverEndsInBareSlash(t *testing.T) {
	card := BaseAgentCard("desc", "http://placeholder")
	req := httptest.NewRequest(http.MethodGet, "/.well-known/agent-card.json", nil)
	req.Host = "tenant.adcp.example.com"

	rewritten := RewriteCardURL(card, req)
	assert.Regexp(t, `.*/a2a$`, rewritten.URL)
}
