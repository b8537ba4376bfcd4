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

import "github.com/spf13/pflag"

// BindFlags registers every Config field as a pflag on the root command's
// persistent flag set.
func BindFlags(flags *pflag.FlagSet) error {
	d := Default()

	flags.String("device.path", d.Device.Path, "path to the backing device file")
	flags.Uint32("device.sector-count", d.Device.SectorCount, "sector count to format a new device with")
	flags.Duration("cache.write-back-interval", d.Cache.WriteBackInterval, "interval between background write-back passes")
	flags.String("logging.severity", d.Logging.Severity, "TRACE, DEBUG, INFO, WARNING, or ERROR")
	flags.String("logging.format", d.Logging.Format, "text or json")
	flags.String("metrics.addr", d.Metrics.Addr, "listen address for the /metrics endpoint; empty disables it")
	flags.BoolP("format", "f", d.Format, "format the device before mounting")

	return nil
}

// IsMetricsEnabled reports whether cfg requests a /metrics listener.
func IsMetricsEnabled(c *Config) bool {
	return c.Metrics.Addr != ""
}
