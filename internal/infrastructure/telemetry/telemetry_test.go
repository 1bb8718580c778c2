package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cfboard/cfboard/pkg/logger"
)

func TestSetup_WithoutEndpointIsNoop(t *testing.T) {
	tel, err := Setup(context.Background(), Config{ServiceName: "cfboard"}, logger.Nop())
	require.NoError(t, err)

	assert.False(t, tel.Enabled())
	assert.NotNil(t, tel.Tracer())

	_, span := tel.Tracer().Start(context.Background(), "noop")
	span.End()

	assert.NoError(t, tel.Shutdown(context.Background()))
}

func TestSetup_WithEndpoint(t *testing.T) {
	tel, err := Setup(context.Background(), Config{
		ServiceName:  "cfboard",
		OTLPEndpoint: "127.0.0.1:4318",
		Insecure:     true,
		SampleRatio:  0.5,
	}, nil)
	require.NoError(t, err)

	assert.True(t, tel.Enabled())
	// nothing was recorded, so shutdown does not reach the collector
	assert.NoError(t, tel.Shutdown(context.Background()))
}
