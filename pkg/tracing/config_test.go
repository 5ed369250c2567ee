package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestConfigFromEnv_Defaults(t *testing.T) {
	t.Setenv(EnvTracingEnabled, "")
	t.Setenv(EnvJaegerEndpoint, "")
	t.Setenv(EnvSamplingRate, "")
	t.Setenv(EnvAgentEndpoint, "")
	t.Setenv(EnvAttributes, "")

	config := ConfigFromEnv()
	assert.False(t, config.Enabled)
	assert.Equal(t, DefaultServiceName, config.ServiceName)
	assert.Equal(t, DefaultJaegerEndpoint, config.Endpoint)
	assert.Equal(t, 1.0, config.SamplingRate)
	assert.Empty(t, config.AgentEndpoint)
	assert.Nil(t, config.Attributes)
}

func TestConfigFromEnv_Overrides(t *testing.T) {
	t.Setenv(EnvTracingEnabled, "true")
	t.Setenv(EnvServiceName, "admin-console")
	t.Setenv(EnvJaegerEndpoint, "http://jaeger:14268/api/traces")
	t.Setenv(EnvSamplingRate, "0.25")
	t.Setenv(EnvAgentEndpoint, "jaeger-agent:6831")
	t.Setenv(EnvAttributes, "store=mumbai, tier = gold,broken,=x")

	config := ConfigFromEnv()
	assert.True(t, config.Enabled)
	assert.Equal(t, "admin-console", config.ServiceName)
	assert.Equal(t, "http://jaeger:14268/api/traces", config.Endpoint)
	assert.Equal(t, 0.25, config.SamplingRate)
	assert.Equal(t, "jaeger-agent:6831", config.AgentEndpoint)
	assert.Equal(t, map[string]string{"store": "mumbai", "tier": "gold"}, config.Attributes)
}

func TestGetSamplingRate_Clamps(t *testing.T) {
	t.Setenv(EnvSamplingRate, "7")
	assert.Equal(t, 1.0, GetSamplingRate())

	t.Setenv(EnvSamplingRate, "-1")
	assert.Equal(t, 0.0, GetSamplingRate())

	t.Setenv(EnvSamplingRate, "not-a-number")
	assert.Equal(t, 1.0, GetSamplingRate())
}

func TestSetup_Disabled(t *testing.T) {
	tp, err := Setup(DefaultConfig())
	require.NoError(t, err)
	assert.Nil(t, tp)

	tp, err = Setup(nil)
	require.NoError(t, err)
	assert.Nil(t, tp)

	assert.NoError(t, Shutdown(context.Background(), nil))
}

func TestSamplerFor(t *testing.T) {
	assert.Equal(t, sdktrace.AlwaysSample().Description(), samplerFor(1).Description())
	assert.Equal(t, sdktrace.NeverSample().Description(), samplerFor(0).Description())
	assert.Contains(t, samplerFor(0.5).Description(), "TraceIDRatioBased")
}
