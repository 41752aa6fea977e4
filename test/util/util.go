// Package util provides helpers shared by the integration tests.
//
// StartMosquitto runs a throwaway Mosquitto broker in Docker so the MQTT
// telemetry source can be exercised end to end. WaitForMetric scrapes a
// Prometheus endpoint until a sample shows up.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
	quiesceMS    = 100
)

const mosquittoConf = `listener 1883
allow_anonymous true
persistence false
log_dest stdout
log_type error
log_type warning
connection_messages true
`

// WaitForMetric scrapes metricsURL until a line of the exposition starts
// with sample, e.g. `mg4_vehicle_connected 1`.
func WaitForMetric(ctx context.Context, metricsURL, sample string) error {
	tick := time.NewTicker(pollInterval)
	defer tick.Stop()
	for {
		body, err := scrape(ctx, metricsURL)
		if err == nil && hasSample(body, sample) {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("sample %q not exposed: %w", sample, ctx.Err())
		case <-tick.C:
		}
	}
}

func scrape(ctx context.Context, url string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	return string(b), err
}

func hasSample(body, sample string) bool {
	for _, line := range strings.Split(body, "\n") {
		if strings.HasPrefix(line, sample) {
			return true
		}
	}
	return false
}

// Broker is a running Mosquitto container.
type Broker struct {
	URL       string
	container tc.Container
}

// StartMosquitto launches eclipse-mosquitto and waits until it accepts MQTT
// connections.
func StartMosquitto(ctx context.Context) (*Broker, error) {
	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{{
			Reader:            strings.NewReader(mosquittoConf),
			ContainerFilePath: "/mosquitto/config/mosquitto.conf",
			FileMode:          0o644,
		}},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return nil, fmt.Errorf("start mosquitto: %w", err)
	}
	b := &Broker{container: cont}

	host, err := cont.Host(ctx)
	if err != nil {
		b.Close()
		return nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		b.Close()
		return nil, err
	}
	b.URL = fmt.Sprintf("tcp://%s:%s", host, port.Port())

	readyCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := b.awaitReady(readyCtx); err != nil {
		b.Close()
		return nil, err
	}
	return b, nil
}

// Close terminates the container.
func (b *Broker) Close() {
	_ = b.container.Terminate(context.Background())
}

// Publish delivers one QoS 1 message on topic.
func (b *Broker) Publish(topic string, payload []byte) error {
	cli, err := b.connect()
	if err != nil {
		return err
	}
	defer cli.Disconnect(quiesceMS)
	token := cli.Publish(topic, 1, false, payload)
	token.Wait()
	return token.Error()
}

func (b *Broker) connect() (paho.Client, error) {
	opts := paho.NewClientOptions().AddBroker(b.URL).SetClientID("mg4dash-test-" + uuid.NewString())
	cli := paho.NewClient(opts)
	if token := cli.Connect(); token.Wait() && token.Error() != nil {
		return nil, token.Error()
	}
	return cli, nil
}

func (b *Broker) awaitReady(ctx context.Context) error {
	for {
		cli, err := b.connect()
		if err == nil {
			cli.Disconnect(quiesceMS)
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("mosquitto not ready: %w", err)
		case <-time.After(pollInterval):
		}
	}
}
