package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewProvidersWithoutEndpoint(t *testing.T) {
	ctx := context.Background()

	p, err := NewProviders(ctx, "  ", "exammode-test", false)
	require.NoError(t, err)
	require.NotNil(t, p.TracerProvider)
	require.NotNil(t, p.MeterProvider)
	assert.NoError(t, p.Shutdown(ctx))
}

func TestNewProvidersRejectsBadEndpoints(t *testing.T) {
	for _, endpoint := range []string{"http://", "http://[invalid"} {
		t.Run(endpoint, func(t *testing.T) {
			_, err := NewProviders(context.Background(), endpoint, "exammode-test", false)
			assert.Error(t, err)
		})
	}
}
