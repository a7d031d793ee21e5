// Copyright 2022 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"flag"
	"fmt"
	"strings"
	"time"

	"github.com/kmicro-go/kmicro"
	"github.com/kmicro-go/kmicro/internal/config"
	"github.com/kmicro-go/kmicro/runtime/logging"
)

// nodeFlags are the flags shared by the commands that start a node. A flag
// that is set on the command line overrides the configuration file and the
// environment.
type nodeFlags struct {
	config   string
	nats     string
	service  string
	timeout  time.Duration
	exporter string
	logLevel string
}

func (f *nodeFlags) register(flags *flag.FlagSet, service string) {
	flags.StringVar(&f.config, "config", "", "TOML config file with a [kmicro] section")
	flags.StringVar(&f.nats, "nats", "", "URL of the NATS server")
	flags.StringVar(&f.service, "service", service, "Name of the service hosted by the node")
	flags.DurationVar(&f.timeout, "timeout", 0, "Call timeout")
	flags.StringVar(&f.exporter, "exporter", "", "Span exporter: otlp, stdout, log or none")
	flags.StringVar(&f.logLevel, "log-level", "", "Minimum log level")
}

// load returns the configuration selected by the flags.
func (f *nodeFlags) load(flags *flag.FlagSet) (*config.Config, error) {
	cfg, err := config.Load(f.config)
	if err != nil {
		return nil, err
	}
	if cfg.Service == "" {
		cfg.Service = f.service
	}
	flags.Visit(func(fl *flag.Flag) {
		switch fl.Name {
		case "nats":
			cfg.NATSURL = f.nats
		case "service":
			cfg.Service = f.service
		case "timeout":
			cfg.Timeout = f.timeout
		case "exporter":
			cfg.Exporter = f.exporter
		case "log-level":
			cfg.LogLevel = f.logLevel
		}
	})
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// nodeOptions returns the options of a node configured by cfg.
func nodeOptions(cfg *config.Config) (kmicro.Options, error) {
	level, err := logging.ParseLevel(cfg.LogLevel)
	if err != nil {
		return kmicro.Options{}, err
	}
	logger := logging.StderrLogger(logging.Options{
		Level: level,
		JSON:  cfg.LogFormat == config.LogJSON,
	})
	return kmicro.Options{
		Description:     cfg.Description,
		Logger:          logger,
		Exporter:        cfg.Exporter,
		OTLPEndpoint:    cfg.OTLPEndpoint,
		OTLPInsecure:    cfg.OTLPInsecure,
		Timeout:         cfg.Timeout,
		ConnectAttempts: cfg.ConnectAttempts,
	}, nil
}

// headerFlag is a repeatable key=value flag.
type headerFlag kmicro.Header

var _ flag.Value = headerFlag{}

func (h headerFlag) String() string {
	var pairs []string
	for _, k := range kmicro.Header(h).Keys() {
		pairs = append(pairs, k+"="+h[k])
	}
	return "[" + strings.Join(pairs, " ") + "]"
}

func (h headerFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("invalid header %q, want key=value", s)
	}
	h[k] = v
	return nil
}

