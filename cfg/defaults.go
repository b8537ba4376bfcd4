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

package cfg

import "time"

// DefaultSectorCount is the device size a fresh format uses when the
// caller doesn't specify one: 8192 sectors of 512 bytes is 4MiB, plenty
// for the core's own demo workloads.
const DefaultSectorCount uint32 = 8192

// GetDefaultLoggingConfig returns the logging configuration used before
// any config file or flags have been applied.
func GetDefaultLoggingConfig() LoggingConfig {
	return LoggingConfig{
		Severity: "INFO",
		Format:   "text",
	}
}

// GetDefaultCacheConfig returns the sector cache's default tuning.
func GetDefaultCacheConfig() CacheConfig {
	return CacheConfig{
		WriteBackInterval: 10 * time.Second,
	}
}

// Default returns a fully populated Config, the baseline viper.Unmarshal
// starts from before flags and config file are applied.
func Default() Config {
	return Config{
		Device: DeviceConfig{
			Path:        "pintosfs.img",
			SectorCount: DefaultSectorCount,
		},
		Cache:   GetDefaultCacheConfig(),
		Logging: GetDefaultLoggingConfig(),
		Metrics: MetricsConfig{Addr: ""},
	}
}
