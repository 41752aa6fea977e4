package telemetry

import (
	"context"
	"errors"
	"testing"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/mg4dash/config"
	"github.com/kilianp07/mg4dash/infra/logger"
)

type mockToken struct{ err error }

func (t *mockToken) Wait() bool                       { return true }
func (t *mockToken) WaitTimeout(_ time.Duration) bool { return true }
func (t *mockToken) Error() error                     { return t.err }
func (t *mockToken) Done() <-chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

type mockClient struct {
	connectErr   error
	opts         *paho.ClientOptions
	disconnected chan struct{}
}

func (m *mockClient) Connect() paho.Token { return &mockToken{err: m.connectErr} }
func (m *mockClient) Disconnect(uint)     { close(m.disconnected) }
func (m *mockClient) Subscribe(string, byte, paho.MessageHandler) paho.Token {
	return &mockToken{}
}

type mockMessage struct {
	topic   string
	payload []byte
}

func (m mockMessage) Duplicate() bool   { return false }
func (m mockMessage) Qos() byte         { return 0 }
func (m mockMessage) Retained() bool    { return false }
func (m mockMessage) Topic() string     { return m.topic }
func (m mockMessage) MessageID() uint16 { return 0 }
func (m mockMessage) Payload() []byte   { return m.payload }
func (m mockMessage) Ack()              {}

func useMockClient(t *testing.T, mc *mockClient) {
	t.Helper()
	orig := newMQTTClient
	newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
		mc.opts = opts
		return mc
	}
	t.Cleanup(func() { newMQTTClient = orig })
}

func newTestMQTT(t *testing.T) *MQTT {
	t.Helper()
	m, err := NewMQTT(config.MQTTSourceConfig{Broker: "tcp://broker:1883", Username: "car"}, logger.NopLogger{})
	require.NoError(t, err)
	return m
}

func TestNewMQTTDefaults(t *testing.T) {
	m := newTestMQTT(t)
	assert.Equal(t, "mg4/telemetry", m.cfg.Topic)
	assert.Contains(t, m.cfg.ClientID, "mg4dash-")
}

func TestMQTTHandlerAppliesPayload(t *testing.T) {
	m := newTestMQTT(t)
	target := &recordingTarget{}
	h := m.handler(target)

	h(nil, mockMessage{topic: "mg4/telemetry", payload: []byte(statusPayload)})
	h(nil, mockMessage{topic: "mg4/telemetry", payload: []byte("not json")})

	require.Equal(t, 1, target.readingCount())
	r := target.readings[0]
	assert.Equal(t, 64.5, *r.BatteryPercent)
	assert.Equal(t, 37.0, *r.SpeedKmh)
	assert.Equal(t, 21.0, *r.BatteryTempC)
}

func TestMQTTRunConnectFailure(t *testing.T) {
	mc := &mockClient{connectErr: errors.New("refused"), disconnected: make(chan struct{})}
	useMockClient(t, mc)

	target := &recordingTarget{}
	err := newTestMQTT(t).Run(context.Background(), target)
	assert.ErrorContains(t, err, "refused")
	assert.Equal(t, []bool{false}, target.connections())
}

func TestMQTTRunDisconnectsOnCancel(t *testing.T) {
	mc := &mockClient{disconnected: make(chan struct{})}
	useMockClient(t, mc)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	target := &recordingTarget{}
	src := newTestMQTT(t)
	go func() { done <- src.Run(ctx, target) }()
	cancel()

	select {
	case <-mc.disconnected:
	case <-time.After(time.Second):
		t.Fatal("client was not disconnected")
	}
	require.NoError(t, <-done)
	assert.Equal(t, []string{"tcp://broker:1883"}, []string{mc.opts.Servers[0].String()})
	assert.Equal(t, "car", mc.opts.Username)
	assert.True(t, mc.opts.AutoReconnect)
}

func TestNewMQTTRejectsHalfClientCert(t *testing.T) {
	_, err := NewMQTT(config.MQTTSourceConfig{Broker: "ssl://broker:8883", UseTLS: true, ClientCert: "cert.pem"}, logger.NopLogger{})
	assert.Error(t, err)
}

func TestMQTTOptionsCarryTLS(t *testing.T) {
	m, err := NewMQTT(config.MQTTSourceConfig{Broker: "ssl://broker:8883", UseTLS: true}, logger.NopLogger{})
	require.NoError(t, err)
	opts := m.options(&recordingTarget{})
	require.NotNil(t, opts.TLSConfig)
	assert.Nil(t, opts.TLSConfig.RootCAs)
}
