package config

import (
	"fmt"

	"github.com/kilianp07/mg4dash/core/factory"
)

// MetricsConfig lists the metrics sinks to build, e.g.
//
//	metrics:
//	  sinks:
//	    - type: prometheus
//	    - type: influx
//	      conf: {url: "http://influx:8086", token: "...", org: "home", bucket: "mg4"}
type MetricsConfig struct {
	Sinks []factory.ModuleConfig `json:"sinks"`
}

func (c *MetricsConfig) SetDefaults() {
	if len(c.Sinks) == 0 {
		c.Sinks = []factory.ModuleConfig{{Type: "prometheus"}}
	}
}

func (c MetricsConfig) Validate() error {
	for i, s := range c.Sinks {
		if s.Type == "" {
			return fmt.Errorf("sinks[%d]: type is required", i)
		}
	}
	return nil
}
