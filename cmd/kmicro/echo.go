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
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"time"

	"github.com/kmicro-go/kmicro"
	"github.com/kmicro-go/kmicro/runtime"
	"github.com/kmicro-go/kmicro/runtime/tool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func echoCmd() *tool.Command {
	var (
		flags   = flag.NewFlagSet("echo", flag.ContinueOnError)
		node    nodeFlags
		metrics = flags.String("metrics", "", "Address on which /metrics is served (e.g., :9090)")
	)
	node.register(flags, "echo")

	return &tool.Command{
		Name:        "echo",
		Flags:       flags,
		Description: "Host an echo service",
		Help: `Usage:
  kmicro echo [flags]

Description:
  "kmicro echo" hosts a service with three endpoints until it receives SIGINT
  or SIGTERM:

    echo     responds with the payload of the call.
    inspect  responds with a JSON description of the call: its depth, its
             headers, and its trace and span ids.
    relay    calls the endpoint named by the payload, continuing the call
             chain, and responds with the response of that call.

  If a metrics address is configured, node metrics are served over HTTP at
  /metrics in the Prometheus text format.`,
		Fn: func(ctx context.Context, args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("usage: kmicro echo [flags]")
			}
			cfg, err := node.load(flags)
			if err != nil {
				return err
			}
			if *metrics != "" {
				cfg.MetricsAddr = *metrics
			}
			opts, err := nodeOptions(cfg)
			if err != nil {
				return err
			}
			reg := prometheus.NewRegistry()
			reg.MustRegister(
				collectors.NewGoCollector(),
				collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
			)
			opts.Registerer = reg

			n, err := kmicro.Init(ctx, cfg.NATSURL, cfg.Service, cfg.Version, opts)
			if err != nil {
				return err
			}
			if err := addEchoEndpoints(n); err != nil {
				return err
			}

			errs := make(chan error, 1)
			var server *http.Server
			if cfg.MetricsAddr != "" {
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
				server = &http.Server{Addr: cfg.MetricsAddr, Handler: mux}
				go func() {
					if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
						errs <- fmt.Errorf("serve metrics: %w", err)
					}
				}()
			}

			stop := func() error {
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				if server != nil {
					server.Shutdown(ctx)
				}
				return n.Stop(ctx)
			}
			unregister := runtime.OnExitSignal(func() {
				if err := stop(); err != nil {
					n.Logger("").Error("Stop", "err", err)
				}
			})
			defer unregister()

			n.Logger("").Info("Serving", "service", cfg.Service, "endpoints", []string{"echo", "inspect", "relay"})
			select {
			case err := <-errs:
				return errors.Join(err, stop())
			case <-ctx.Done():
				return stop()
			}
		},
	}
}

// inspection describes a call received by the inspect endpoint.
type inspection struct {
	Service string        `json:"service"`
	Action  string        `json:"action"`
	Depth   int           `json:"depth"`
	Header  kmicro.Header `json:"headers"`
	TraceID string        `json:"traceId,omitempty"`
	SpanID  string        `json:"spanId,omitempty"`
}

// addEchoEndpoints adds the echo, inspect, and relay endpoints to n.
func addEchoEndpoints(n *kmicro.Node[[]byte]) error {
	echo := func(_ context.Context, _ *kmicro.RequestContext[[]byte], payload []byte) ([]byte, error) {
		return payload, nil
	}
	inspect := func(_ context.Context, rc *kmicro.RequestContext[[]byte], _ []byte) ([]byte, error) {
		i := inspection{
			Service: rc.Service(),
			Action:  rc.Action(),
			Depth:   rc.Depth(),
			Header:  rc.Headers(),
		}
		if sc := rc.SpanContext(); sc.IsValid() {
			i.TraceID = sc.TraceID().String()
			i.SpanID = sc.SpanID().String()
		}
		return json.Marshal(i)
	}
	relay := func(ctx context.Context, rc *kmicro.RequestContext[[]byte], target []byte) ([]byte, error) {
		if len(target) == 0 {
			return nil, fmt.Errorf("relay: empty target")
		}
		return rc.Call(ctx, string(target), nil, kmicro.CallOptions{})
	}
	for name, h := range map[string]kmicro.Handler[[]byte]{
		"echo":    echo,
		"inspect": inspect,
		"relay":   relay,
	} {
		if err := n.AddEndpoint(name, h); err != nil {
			return err
		}
	}
	return nil
}
