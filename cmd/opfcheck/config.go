// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"strings"

	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config collects the runtime options of the tool.
type Config struct {
	Case     string  `koanf:"case"`      // built-in network identifier
	Limit    string  `koanf:"limit"`     // branch limit form code
	Perturb  float64 `koanf:"perturb"`   // voltage angle spread
	Sigma    float64 `koanf:"sigma"`     // cost multiplier of the Hessian
	Check    bool    `koanf:"check"`     // run the finite difference diagnostic
	Step     float64 `koanf:"step"`      // diagnostic perturbation width
	Workers  int     `koanf:"workers"`   // diagnostic worker bound
	LogLevel string  `koanf:"log-level"` // zap level name
	Dev      bool    `koanf:"dev"`       // development logger encoding
}

// loadConfig layers defaults, OPFCHECK_ environment variables and command
// line flags, latest wins.
func loadConfig(flags *pflag.FlagSet) (*Config, error) {

	k := koanf.New(".")
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"case":      "case3",
		"limit":     "S",
		"perturb":   0.0,
		"sigma":     1.0,
		"check":     false,
		"step":      0.0,
		"workers":   0,
		"log-level": "info",
		"dev":       false,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if err := k.Load(env.Provider("OPFCHECK_", ".", func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, "OPFCHECK_")), "_", "-")
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
		return nil, fmt.Errorf("load flags: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	return &cfg, nil
}

// buildLogger creates the zap logger selected by the config.
func buildLogger(cfg *Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, fmt.Errorf("unknown log level %q", cfg.LogLevel)
	}
	zc := zap.NewProductionConfig()
	if cfg.Dev {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
