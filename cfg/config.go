// Copyright 2026 The Pintosfs Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package cfg holds pintosfs's runtime configuration, bound from command
// line flags and an optional config file via spf13/viper and spf13/pflag.
package cfg

import "time"

// DeviceConfig describes the backing block device.
type DeviceConfig struct {
	// Path to the backing file pintosfs stores sectors in.
	Path string `mapstructure:"path" yaml:"path"`
	// SectorCount is the device's total sector count. A new backing file,
	// or an existing one smaller than this, is extended to SectorCount
	// sectors on every run; a larger existing file keeps its size.
	SectorCount uint32 `mapstructure:"sector-count" yaml:"sector-count"`
}

// CacheConfig tunes the SectorCache.
type CacheConfig struct {
	// WriteBackInterval is how often the background task writes back
	// every dirty slot without evicting.
	WriteBackInterval time.Duration `mapstructure:"write-back-interval" yaml:"write-back-interval"`
}

// LoggingConfig holds the severity and output-format knobs for the
// structured logger, minus log-rotation (this core logs to stderr,
// not a file).
type LoggingConfig struct {
	Severity string `mapstructure:"severity" yaml:"severity"`
	Format   string `mapstructure:"format" yaml:"format"`
}

// MetricsConfig controls the Prometheus HTTP endpoint.
type MetricsConfig struct {
	// Addr is the listen address for the /metrics endpoint, e.g.
	// ":9090". Empty disables it.
	Addr string `mapstructure:"addr" yaml:"addr"`
}

// Config is the top-level, viper-unmarshaled configuration for
// cmd/pintosfs.
type Config struct {
	Device  DeviceConfig  `mapstructure:"device" yaml:"device"`
	Cache   CacheConfig   `mapstructure:"cache" yaml:"cache"`
	Logging LoggingConfig `mapstructure:"logging" yaml:"logging"`
	Metrics MetricsConfig `mapstructure:"metrics" yaml:"metrics"`

	// Format, when true, formats Device.Path before mounting: it triggers
	// free-map and root-directory creation, equivalent to a "-f" flag.
	Format bool `mapstructure:"format" yaml:"format"`
}
