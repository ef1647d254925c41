package skills

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeBrandManifestAcceptsObject(t *testing.T) {
	out := normalizeBrandManifest(map[string]any{"name": "Acme", "url": "https://acme.com"})
	assert.Equal(t, "Acme", out["name"])
}

func TestNormalizeBrandManifestNormalizesBareURL(t *testing.T) {
	out := normalizeBrandManifest("https://www.acme.com/page")
	assert.Equal(t, "https://www.acme.com/page", out["url"])
	assert.Equal(t, "acme.com", out["name"])
}

func TestNormalizeBrandManifestRejectsUnsupportedType(t *testing.T) {
	out := normalizeBrandManifest(42)
	assert.Nil(t, out)
}

func TestPrincipalAllowedEmptyListMeansEveryone(t *testing.T) {
	assert.True(t, principalAllowed(nil, "anyone"))
	assert.True(t, principalAllowed([]string{}, "anyone"))
}

func TestPrincipalAllowedRestrictsToListedIDs(t *testing.T) {
	assert.True(t, principalAllowed([]string{"p1", "p2"}, "p1"))
	assert.False(t, principalAllowed([]string{"p1", "p2"}, "p3"))
}
