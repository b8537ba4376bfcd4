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

// Command pintosfs brings up an in-process instance of the core file
// system over a file-backed block device and exposes its Session API,
// with no kernel-facing mount point.
package main

import (
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/pintosfs/core/allocator"
	"github.com/pintosfs/core/cfg"
	"github.com/pintosfs/core/clock"
	"github.com/pintosfs/core/device"
	"github.com/pintosfs/core/fs"
	"github.com/pintosfs/core/logger"
	"github.com/pintosfs/core/sectorcache"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	cfgFile string
	config  cfg.Config
)

var rootCmd = &cobra.Command{
	Use:   "pintosfs",
	Short: "Run the pintosfs file-system core over a file-backed block device",
	Long: `pintosfs brings up the indexed-inode file-system core — sector
cache, inode store, directories, path resolution — over a plain file
acting as a block device.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run()
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config-file", "", "path to a YAML config file")
	if err := cfg.BindFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func initConfig() {
	config = cfg.Default()
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		viper.SetConfigType("yaml")
		if err := viper.ReadInConfig(); err != nil {
			fmt.Fprintln(os.Stderr, "reading config file:", err)
			os.Exit(1)
		}
	}
	if err := viper.Unmarshal(&config); err != nil {
		fmt.Fprintln(os.Stderr, "unmarshaling config:", err)
		os.Exit(1)
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	logger.SetFormat(config.Logging.Format)
	logger.SetLevel(config.Logging.Severity)
	log := logger.Named("main")

	dev, err := device.OpenFileDevice(config.Device.Path, config.Device.SectorCount)
	if err != nil {
		return fmt.Errorf("opening device: %w", err)
	}

	reg := prometheus.NewRegistry()
	cache := sectorcache.NewCache(dev, clock.RealClock{}, config.Cache.WriteBackInterval, reg)

	var fileSystem *fs.FileSystem
	if config.Format {
		fileSystem, err = fs.Format(dev, cache, reg)
		if err != nil {
			return fmt.Errorf("formatting device: %w", err)
		}
		log.Info("device formatted", "path", config.Device.Path)
	} else {
		// The reference Allocator keeps its free-map in memory
		// rather than persisting it through the cache, so re-mounting an
		// already-formatted device starts from an allocator that only
		// knows the fixed reserved sectors are used, not any sectors
		// allocated in a prior run. Adequate for a single-process demo run.
		bitmap := allocator.NewBitmap(dev.SectorCount(), fs.ReservedSectors)
		fileSystem = fs.New(dev, cache, bitmap, reg)
	}

	if cfg.IsMetricsEnabled(&config) {
		go serveMetrics(config.Metrics.Addr, reg, log)
	}

	log.Info("pintosfs running", "device", config.Device.Path)
	waitForShutdownSignal()

	fileSystem.Shutdown()
	if err := dev.Close(); err != nil {
		return fmt.Errorf("closing device: %w", err)
	}
	log.Info("pintosfs stopped cleanly")
	return nil
}

func serveMetrics(addr string, reg *prometheus.Registry, log interface {
	Error(string, ...any)
}) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error("metrics server exited", "err", err)
	}
}

func waitForShutdownSignal() {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh
}
