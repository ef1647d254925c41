package a2a

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatNumericIDKeepsIntegersWhole(t *testing.T) {
	assert.Equal(t, "42", formatNumericID(42))
	assert.Equal(t, "0", formatNumericID(0))
}

func TestFormatNumericIDPreservesFractional(t *testing.T) {
	assert.Equal(t, "1.5", formatNumericID(1.5))
}

func TestRewriteNumericIDsRewritesTopLevelID(t *testing.T) {
	body := []byte(`{"id":7,"jsonrpc":"2.0"}`)
	out, changed := rewriteNumericIDs(body)
	assert.True(t, changed)
	assert.JSONEq(t, `{"id":"7","jsonrpc":"2.0"}`, string(out))
}

func TestRewriteNumericIDsRewritesNestedMessageID(t *testing.T) {
	body := []byte(`{"params":{"message":{"messageId":3}}}`)
	out, changed := rewriteNumericIDs(body)
	assert.True(t, changed)
	assert.JSONEq(t, `{"params":{"message":{"messageId":"3"}}}`, string(out))
}

func TestRewriteNumericIDsLeavesStringIDsUntouched(t *testing.T) {
	body := []byte(`{"id":"already-a-string"}`)
	_, changed := rewriteNumericIDs(body)
	assert.False(t, changed)
}

func TestRewriteNumericIDsHandlesInvalidJSON(t *testing.T) {
	_, changed := rewriteNumericIDs([]byte("not json"))
	assert.False(t, changed)
}
