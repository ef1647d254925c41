package adapter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCreateMediaBuyPendingActivationForFutureStart(t *testing.T) {
	m := NewMock()
	out, err := m.CreateMediaBuy(context.Background(), nil, CreateMediaBuyInput{
		MediaBuyID: "mb_1",
		StartTime:  time.Now().Add(48 * time.Hour),
		EndTime:    time.Now().Add(72 * time.Hour),
		Packages:   []PackageInput{{BuyerRef: "pkg_1"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "pending_activation", out.Status)
	assert.Len(t, out.LineItems, 1)
}

func TestMockCreateMediaBuyActiveForImmediateStart(t *testing.T) {
	m := NewMock()
	out, err := m.CreateMediaBuy(context.Background(), nil, CreateMediaBuyInput{
		MediaBuyID: "mb_2",
		StartTime:  time.Now().Add(-time.Hour),
		EndTime:    time.Now().Add(72 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "active", out.Status)
}

func TestMockCreateMediaBuyHonorsForcedError(t *testing.T) {
	m := NewMock()
	_, err := m.CreateMediaBuy(context.Background(), nil, CreateMediaBuyInput{
		TestingContext: map[string]any{"force_status": "adapter_error"},
	})
	require.Error(t, err)
	var adErr *AdServerError
	require.ErrorAs(t, err, &adErr)
}

func TestUnimplementedAdServerFailsLoudly(t *testing.T) {
	gam := NewGoogleAdManager()
	_, err := gam.CreateMediaBuy(context.Background(), nil, CreateMediaBuyInput{})
	require.Error(t, err)
}
