// Copyright 2023 Google LLC
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

// Package config loads the configuration of a kmicro node.
//
// A configuration is read from the [kmicro] section of a TOML file, e.g.
//
//	[kmicro]
//	nats_url = "nats://127.0.0.1:4222"
//	service = "orders"
//	timeout = "2s"
//	exporter = "stdout"
//
// and then overridden by environment variables prefixed with KMICRO_ (e.g.,
// KMICRO_NATS_URL, KMICRO_TIMEOUT).
package config

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
	"github.com/kmicro-go/kmicro/internal/traceio"
	"github.com/kmicro-go/kmicro/runtime/logging"
	"github.com/nats-io/nats.go"
)

const (
	// SectionKey is the name of the TOML section holding the configuration.
	SectionKey = "kmicro"

	// EnvPrefix is the prefix of the environment variables that override
	// the configuration.
	EnvPrefix = "kmicro"
)

// Log formats.
const (
	LogPretty = "pretty"
	LogJSON   = "json"
)

// serviceName matches the service names accepted by the NATS micro API.
var serviceName = regexp.MustCompile(`^[A-Za-z0-9\-_]+$`)

// Config is the configuration of a node.
type Config struct {
	NATSURL         string        `toml:"nats_url" envconfig:"NATS_URL"`
	Service         string        `toml:"service" envconfig:"SERVICE"`
	Version         string        `toml:"version" envconfig:"VERSION"`
	Description     string        `toml:"description" envconfig:"DESCRIPTION"`
	Timeout         time.Duration `toml:"timeout" envconfig:"TIMEOUT"`
	ConnectAttempts int           `toml:"connect_attempts" envconfig:"CONNECT_ATTEMPTS"`
	Exporter        string        `toml:"exporter" envconfig:"EXPORTER"`
	OTLPEndpoint    string        `toml:"otlp_endpoint" envconfig:"OTLP_ENDPOINT"`
	OTLPInsecure    bool          `toml:"otlp_insecure" envconfig:"OTLP_INSECURE"`
	LogLevel        string        `toml:"log_level" envconfig:"LOG_LEVEL"`
	LogFormat       string        `toml:"log_format" envconfig:"LOG_FORMAT"`
	MetricsAddr     string        `toml:"metrics_addr" envconfig:"METRICS_ADDR"`
}

// Default returns the default configuration.
func Default() *Config {
	return &Config{
		NATSURL:         nats.DefaultURL,
		Version:         "0.0.1",
		Timeout:         5 * time.Second,
		ConnectAttempts: 5,
		Exporter:        traceio.ExporterNone,
		LogLevel:        "info",
		LogFormat:       LogPretty,
	}
}

// Load returns the default configuration overlaid with the [kmicro] section
// of the provided TOML file (if file is not empty) and then with the KMICRO_
// environment variables.
func Load(file string) (*Config, error) {
	cfg := Default()
	if file != "" {
		contents, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("load config file %q: %w", file, err)
		}
		if err := Parse(string(contents), cfg); err != nil {
			return nil, fmt.Errorf("load config file %q: %w", file, err)
		}
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse parses the [kmicro] section of the provided TOML input into dst.
// Other sections are ignored. If the section is not found, Parse returns
// nil without changing dst.
func Parse(input string, dst *Config) error {
	var sections map[string]toml.Primitive
	md, err := toml.Decode(input, &sections)
	if err != nil {
		return err
	}
	section, ok := sections[SectionKey]
	if !ok {
		return nil
	}
	if err := md.PrimitiveDecode(section, dst); err != nil {
		return fmt.Errorf("section %q: %w", SectionKey, err)
	}
	var unknown []string
	for _, key := range md.Undecoded() {
		if len(key) > 1 && key[0] == SectionKey {
			unknown = append(unknown, strings.Join(key[1:], "."))
		}
	}
	if len(unknown) != 0 {
		return fmt.Errorf("section %q has unknown keys %v", SectionKey, unknown)
	}
	return nil
}

// Validate returns an error if the configuration is invalid.
func (c *Config) Validate() error {
	if c.NATSURL == "" {
		return fmt.Errorf("empty nats_url")
	}
	if c.Service != "" && !serviceName.MatchString(c.Service) {
		return fmt.Errorf("invalid service name %q", c.Service)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("negative timeout %v", c.Timeout)
	}
	if c.ConnectAttempts < 0 {
		return fmt.Errorf("negative connect_attempts %d", c.ConnectAttempts)
	}
	switch c.Exporter {
	case traceio.ExporterOTLP, traceio.ExporterStdout, traceio.ExporterLog, traceio.ExporterNone:
	default:
		return fmt.Errorf("unknown exporter %q", c.Exporter)
	}
	switch c.LogFormat {
	case LogPretty, LogJSON:
	default:
		return fmt.Errorf("unknown log_format %q", c.LogFormat)
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}
