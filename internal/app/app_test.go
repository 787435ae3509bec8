package app

import (
	"context"
	"testing"

	"github.com/jmehdipour/salon-campaigns/internal/config"
	"github.com/jmehdipour/salon-campaigns/internal/delivery"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerator_DisabledWithoutKey(t *testing.T) {
	gen, err := Generator(context.Background(), config.Config{})
	require.NoError(t, err)
	assert.Nil(t, gen)
}

func TestGateways_SkipsDisabledProviders(t *testing.T) {
	cfg := config.Config{Gateway: config.GatewayConfig{
		Provider: delivery.ProviderHTTP,
		Providers: []config.ProviderConfig{
			{Name: "off", Enabled: false, BaseURL: "http://x", Token: "t"},
		},
	}}
	_, err := Gateways(cfg).Open(context.Background())
	assert.ErrorIs(t, err, delivery.ErrMissingCredential)

	cfg.Gateway.Providers[0].Enabled = true
	gw, err := Gateways(cfg).Open(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, gw)
}

func TestGateways_TwilioNeedsCredentials(t *testing.T) {
	_, err := Gateways(config.Config{}).Open(context.Background())
	assert.ErrorIs(t, err, delivery.ErrMissingCredential)
}
