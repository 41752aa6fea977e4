package telemetry

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/kilianp07/mg4dash/config"
	"github.com/kilianp07/mg4dash/core/logger"
)

const disconnectQuiesceMS = 250

type pahoClient interface {
	Connect() paho.Token
	Disconnect(quiesce uint)
	Subscribe(topic string, qos byte, callback paho.MessageHandler) paho.Token
}

var newMQTTClient = func(opts *paho.ClientOptions) pahoClient {
	return paho.NewClient(opts)
}

// MQTT applies status messages pushed by the vehicle to a broker topic.
type MQTT struct {
	cfg config.MQTTSourceConfig
	tls *tls.Config
	log logger.Logger
	now func() time.Time
}

// NewMQTT returns a push source for cfg.
func NewMQTT(cfg config.MQTTSourceConfig, log logger.Logger) (*MQTT, error) {
	if cfg.Broker == "" {
		return nil, fmt.Errorf("mqtt telemetry requires a broker")
	}
	if cfg.Topic == "" {
		cfg.Topic = "mg4/telemetry"
	}
	if cfg.ClientID == "" {
		cfg.ClientID = "mg4dash-" + uuid.NewString()
	}
	tlsCfg, err := cfg.LoadTLSConfig()
	if err != nil {
		return nil, err
	}
	return &MQTT{cfg: cfg, tls: tlsCfg, log: log, now: time.Now}, nil
}

func (m *MQTT) Name() string { return config.ModeMQTT }

func (m *MQTT) options(t Target) *paho.ClientOptions {
	opts := paho.NewClientOptions().AddBroker(m.cfg.Broker).SetClientID(m.cfg.ClientID)
	opts.AutoReconnect = true
	if m.cfg.Username != "" {
		opts.SetUsername(m.cfg.Username)
	}
	if m.cfg.Password != "" {
		opts.SetPassword(m.cfg.Password)
	}
	if m.tls != nil {
		opts.SetTLSConfig(m.tls)
	}
	opts.OnConnect = func(c paho.Client) {
		m.log.Infof("MQTT connected, subscribing to %s", m.cfg.Topic)
		if token := c.Subscribe(m.cfg.Topic, m.cfg.QoS, m.handler(t)); token.Wait() && token.Error() != nil {
			m.log.Errorf("subscribe error: %v", token.Error())
			return
		}
		t.SetConnected(true)
	}
	opts.OnConnectionLost = func(_ paho.Client, err error) {
		m.log.Errorf("connection lost: %v", err)
		t.SetConnected(false)
	}
	opts.OnReconnecting = func(_ paho.Client, _ *paho.ClientOptions) {
		m.log.Warnf("reconnecting to MQTT broker")
	}
	return opts
}

// Run connects, subscribes and blocks until ctx is done.
func (m *MQTT) Run(ctx context.Context, t Target) error {
	c := newMQTTClient(m.options(t))
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		t.SetConnected(false)
		return fmt.Errorf("mqtt connect: %w", token.Error())
	}
	<-ctx.Done()
	c.Disconnect(disconnectQuiesceMS)
	t.SetConnected(false)
	return nil
}

func (m *MQTT) handler(t Target) paho.MessageHandler {
	return func(_ paho.Client, msg paho.Message) {
		var st VehicleStatus
		if err := json.Unmarshal(msg.Payload(), &st); err != nil {
			m.log.Warnf("invalid telemetry payload on %s: %v", msg.Topic(), err)
			return
		}
		t.Apply(st.Reading(m.now()))
	}
}
