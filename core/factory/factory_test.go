package factory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	URL     string
	Timeout int
}

type sinkConf struct {
	URL     string `json:"url"`
	Timeout int    `json:"timeout_seconds"`
}

func newSinkRegistry(t *testing.T) *Registry[*sink] {
	t.Helper()
	reg := NewRegistry[*sink]()
	require.NoError(t, reg.Register("influx", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sink{URL: c.URL, Timeout: c.Timeout}, nil
	}))
	return reg
}

func TestRegistryCreateDecodesConf(t *testing.T) {
	reg := newSinkRegistry(t)
	s, err := reg.Create(ModuleConfig{Type: "influx", Conf: map[string]any{"url": "http://influx:8086", "timeout_seconds": "3"}})
	require.NoError(t, err)
	assert.Equal(t, "http://influx:8086", s.URL)
	assert.Equal(t, 3, s.Timeout)
}

func TestRegistryErrors(t *testing.T) {
	reg := newSinkRegistry(t)
	assert.Error(t, reg.Register("influx", func(map[string]any) (*sink, error) { return nil, nil }))
	assert.Error(t, reg.Register("nil", nil))

	_, err := reg.Create(ModuleConfig{Type: "statsd"})
	assert.ErrorContains(t, err, `unknown module type "statsd"`)
	assert.ErrorContains(t, err, "influx")
}

func TestRegistryTypesSorted(t *testing.T) {
	reg := newSinkRegistry(t)
	require.NoError(t, reg.Register("nop", func(map[string]any) (*sink, error) { return &sink{}, nil }))
	require.NoError(t, reg.Register("prometheus", func(map[string]any) (*sink, error) { return &sink{}, nil }))
	assert.Equal(t, []string{"influx", "nop", "prometheus"}, reg.Types())
}
