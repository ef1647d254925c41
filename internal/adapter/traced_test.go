package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracedDelegatesToNextAdServer(t *testing.T) {
	traced := Traced("mock", NewMock())

	out, err := traced.CreateMediaBuy(context.Background(), nil, CreateMediaBuyInput{
		MediaBuyID: "mb_1",
		StartTime:  time.Now().Add(-time.Hour),
		EndTime:    time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "active", out.Status)
}

func TestTracedPropagatesDomainError(t *testing.T) {
	traced := Traced("mock", NewMock())

	_, err := traced.CreateMediaBuy(context.Background(), nil, CreateMediaBuyInput{
		TestingContext: map[string]any{"force_status": "adapter_error"},
	})
	require.Error(t, err)
	var adErr *AdServerError
	require.ErrorAs(t, err, &adErr)
}
