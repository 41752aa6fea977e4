package metrics

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/mg4dash/core/factory"
)

type countingSink struct {
	routes, telemetry int
	err               error
}

func (c *countingSink) RecordRoute(RouteEvent) error {
	c.routes++
	return c.err
}

func (c *countingSink) RecordTelemetry(TelemetryEvent) error {
	c.telemetry++
	return c.err
}

func TestMultiSinkForwardsToAll(t *testing.T) {
	boom := errors.New("boom")
	s1, s2 := &countingSink{err: boom}, &countingSink{}
	m := NewMultiSink(s1, s2)

	err := m.RecordRoute(RouteEvent{Status: 200})
	assert.ErrorIs(t, err, boom)
	require.NoError(t, NewMultiSink(s2).RecordTelemetry(TelemetryEvent{}))
	assert.NoError(t, NewMultiSink().RecordRoute(RouteEvent{}))

	assert.Equal(t, 1, s1.routes)
	assert.Equal(t, 1, s2.routes)
	assert.Equal(t, 1, s2.telemetry)
}

func TestNewSink(t *testing.T) {
	require.NoError(t, RegisterSink("counting-test", func(map[string]any) (Sink, error) {
		return &countingSink{}, nil
	}))

	s, err := NewSink(nil)
	require.NoError(t, err)
	assert.IsType(t, NopSink{}, s)

	s, err = NewSink([]factory.ModuleConfig{{Type: "counting-test"}})
	require.NoError(t, err)
	assert.IsType(t, &countingSink{}, s)

	s, err = NewSink([]factory.ModuleConfig{{Type: "counting-test"}, {Type: "counting-test"}})
	require.NoError(t, err)
	multi, ok := s.(*MultiSink)
	require.True(t, ok)
	assert.Len(t, multi.Sinks, 2)

	_, err = NewSink([]factory.ModuleConfig{{Type: "counting-test"}, {Type: "missing"}})
	assert.Error(t, err)
}

type closingSink struct {
	NopSink
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	NewMultiSink(NopSink{}, c).Close()
	assert.True(t, c.closed)
}
