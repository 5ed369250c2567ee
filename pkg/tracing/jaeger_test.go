package tracing

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestNewProvider_ExportsWithResource(t *testing.T) {
	config := DefaultConfig()
	config.ServiceName = "pos-terminal"
	config.Attributes = map[string]string{"store": "mumbai"}
	exporter := tracetest.NewInMemoryExporter()

	tp, err := NewProvider(config, WithExporter(exporter), WithoutGlobal())
	require.NoError(t, err)

	_, span := tp.Tracer("test").Start(context.Background(), "GET /products")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	res := spans[0].Resource
	value, ok := res.Set().Value(attribute.Key("service.name"))
	require.True(t, ok)
	assert.Equal(t, "pos-terminal", value.AsString())
	value, ok = res.Set().Value(attribute.Key("store"))
	require.True(t, ok)
	assert.Equal(t, "mumbai", value.AsString())

	assert.NoError(t, Shutdown(context.Background(), tp))
}

func TestNewProvider_NeverSample(t *testing.T) {
	config := DefaultConfig()
	config.SamplingRate = 0
	exporter := tracetest.NewInMemoryExporter()

	tp, err := NewProvider(config, WithExporter(exporter), WithoutGlobal())
	require.NoError(t, err)
	defer Shutdown(context.Background(), tp)

	_, span := tp.Tracer("test").Start(context.Background(), "GET /products")
	span.End()
	require.NoError(t, tp.ForceFlush(context.Background()))

	assert.Empty(t, exporter.GetSpans())
}

func TestNewJaegerExporter(t *testing.T) {
	collector := DefaultConfig()
	exp, err := newJaegerExporter(collector)
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(context.Background()))

	agent := DefaultConfig()
	agent.AgentEndpoint = "127.0.0.1:6831"
	exp, err = newJaegerExporter(agent)
	require.NoError(t, err)
	assert.NoError(t, exp.Shutdown(context.Background()))

	agent.AgentEndpoint = "no-port"
	_, err = newJaegerExporter(agent)
	assert.Error(t, err)
}

func TestResourceAttributes_ExtrasSortedAfterStandard(t *testing.T) {
	config := DefaultConfig()
	config.Attributes = map[string]string{"zone": "west", "store": "pune"}

	attrs := resourceAttributes(config)

	require.Len(t, attrs, 5)
	assert.Equal(t, attribute.Key("store"), attrs[3].Key)
	assert.Equal(t, attribute.Key("zone"), attrs[4].Key)
}
