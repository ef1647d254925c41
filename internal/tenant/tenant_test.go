package tenant

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHostSubdomainLabelRejectsReservedLabels(t *testing.T) {
	_, ok := hostSubdomainLabel("localhost:8080")
	assert.False(t, ok)

	_, ok = hostSubdomainLabel("www.adcp.example.com")
	assert.False(t, ok)

	label, ok := hostSubdomainLabel("acme.adcp.example.com")
	assert.True(t, ok)
	assert.Equal(t, "acme", label)
}

func TestHostSubdomainLabelIsCaseInsensitiveAndStripsPort(t *testing.T) {
	label, ok := hostSubdomainLabel("ACME.example.com:443")
	assert.True(t, ok)
	assert.Equal(t, "acme", label)
}
