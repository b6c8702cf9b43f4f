package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSetupWithoutEndpoints(t *testing.T) {
	tel, err := Setup(context.Background(), "guapassist-test", Config{})
	require.NoError(t, err)
	require.Nil(t, tel.TracerProvider)
	require.Nil(t, tel.MeterProvider)
	require.NoError(t, tel.Shutdown(context.Background()))
}

func TestTransportPrefersGrpc(t *testing.T) {
	cases := []struct {
		name     string
		conn     OtlpConnConfig
		expected string
	}{
		{"grpc only", OtlpConnConfig{GrpcEndpoint: "http://localhost:4317"}, "grpc"},
		{"http only", OtlpConnConfig{HttpEndpoint: "http://localhost:4318"}, "http"},
		{"both", OtlpConnConfig{GrpcEndpoint: "http://localhost:4317", HttpEndpoint: "http://localhost:4318"}, "grpc"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			require.True(t, c.conn.enabled())
			require.Equal(t, c.expected, c.conn.transport("traces"))
		})
	}
	require.False(t, OtlpConnConfig{}.enabled())
}
