// Package config loads engine tuning parameters — batch size for the
// optimistic engine, worker count for both parallel engines, an optional
// explicit LP coupling graph for the conservative engine — from YAML, using
// the same strict, unknown-field-rejecting decode the teacher's own
// defaults-file loader uses.
package config

import (
	"bytes"
	"fmt"
	"os"
	"runtime"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// LPEdge is one directed edge in an explicit conservative LP coupling graph:
// LP Src feeds LP Dst.
type LPEdge struct {
	Src int `yaml:"src"`
	Dst int `yaml:"dst"`
}

// EngineConfig groups the tuning knobs shared by the optimistic and
// conservative engines. All top-level sections must be listed to satisfy
// KnownFields(true) strict parsing.
type EngineConfig struct {
	// OptimisticBatchSize bounds how many logical processes execute per
	// round of the optimistic engine. Default: 1000.
	OptimisticBatchSize int `yaml:"optimistic_batch_size"`
	// Workers is the number of goroutines driving the optimistic engine's
	// per-round parallel phase, and the number of logical processes the
	// conservative engine partitions atomics across. Default:
	// runtime.GOMAXPROCS(0).
	Workers int `yaml:"workers"`
	// LPGraph optionally overrides the conservative engine's default
	// all-to-all LP coupling with an explicit edge list. Nil means
	// all-to-all.
	LPGraph []LPEdge `yaml:"lp_graph"`
}

// DefaultEngineConfig returns the documented defaults: batch size 1000,
// workers = runtime.GOMAXPROCS(0), no explicit LP graph.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		OptimisticBatchSize: 1000,
		Workers:             runtime.GOMAXPROCS(0),
	}
}

// LoadEngineConfig reads and strictly decodes a YAML file, then fills in any
// omitted section with the documented default rather than leaving it at the
// Go zero value.
func LoadEngineConfig(path string) (EngineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return EngineConfig{}, fmt.Errorf("read engine config: %w", err)
	}
	cfg := DefaultEngineConfig()
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return EngineConfig{}, fmt.Errorf("parse engine config: %w", err)
	}
	if cfg.OptimisticBatchSize <= 0 {
		logrus.Warnf("engine config: optimistic_batch_size <= 0, using default")
		cfg.OptimisticBatchSize = DefaultEngineConfig().OptimisticBatchSize
	}
	if cfg.Workers <= 0 {
		cfg.Workers = DefaultEngineConfig().Workers
	}
	return cfg, nil
}
