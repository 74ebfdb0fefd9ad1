package cache

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lumashape/insert-pricing/internal/config"
	"github.com/lumashape/insert-pricing/internal/pricing"
	"github.com/lumashape/insert-pricing/internal/units"
)

func cart(qty int) []pricing.CartItem {
	return []pricing.CartItem{{
		ID:       "1",
		Quantity: qty,
		LayoutData: &pricing.LayoutData{
			Canvas: &pricing.Canvas{LayoutDimensions: pricing.LayoutDimensions{Width: 10, Height: 8, Thickness: 1, Unit: units.Inches}},
		},
	}}
}

func TestKeyIsStableAndSensitive(t *testing.T) {
	params := pricing.DefaultParameters()

	a, err := Key(cart(1), params)
	require.NoError(t, err)
	b, err := Key(cart(1), params)
	require.NoError(t, err)
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "quote:"))

	other, err := Key(cart(2), params)
	require.NoError(t, err)
	assert.NotEqual(t, a, other)

	params.ShippingFlatFee = 9
	changed, err := Key(cart(1), params)
	require.NoError(t, err)
	assert.NotEqual(t, a, changed)
}

func TestNewRedisQuoteCacheDefaultsTTL(t *testing.T) {
	c := NewRedisQuoteCache(config.RedisConfig{Addr: "127.0.0.1:1"}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, defaultCacheTTL, c.ttl)
}

func TestRedisQuoteCacheUnreachable(t *testing.T) {
	c := NewRedisQuoteCache(config.RedisConfig{Addr: "127.0.0.1:1", TTL: time.Second}, zap.NewNop())
	t.Cleanup(func() { _ = c.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	_, err := c.Get(ctx, "quote:x")
	assert.Error(t, err)
	assert.Error(t, c.Set(ctx, "quote:x", pricing.CalculateOrderPricing(cart(1), nil)))
}
