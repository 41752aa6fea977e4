//go:build integration

package telemetry

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/mg4dash/config"
	"github.com/kilianp07/mg4dash/infra/logger"
	"github.com/kilianp07/mg4dash/test/util"
)

func TestMQTTSourceWithMosquitto(t *testing.T) {
	if os.Getenv("DOCKER_AVAILABLE") != "true" && os.Getenv("DOCKER_AVAILABLE") != "1" {
		t.Skip("docker not available")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	broker, err := util.StartMosquitto(ctx)
	require.NoError(t, err)
	defer broker.Close()

	src, err := NewMQTT(config.MQTTSourceConfig{Broker: broker.URL, Topic: "mg4/test", QoS: 1}, logger.NopLogger{})
	require.NoError(t, err)

	target := &recordingTarget{}
	runCtx, stop := context.WithCancel(ctx)
	done := make(chan error, 1)
	go func() { done <- src.Run(runCtx, target) }()

	require.Eventually(t, func() bool {
		c := target.connections()
		return len(c) > 0 && c[len(c)-1]
	}, 10*time.Second, 50*time.Millisecond)

	require.NoError(t, broker.Publish("mg4/test", []byte(statusPayload)))
	require.Eventually(t, func() bool { return target.readingCount() == 1 }, 5*time.Second, 50*time.Millisecond)

	stop()
	require.NoError(t, <-done)
}
