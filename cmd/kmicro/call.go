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
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kmicro-go/kmicro"
	"github.com/kmicro-go/kmicro/runtime/tool"
)

func callCmd() *tool.Command {
	var (
		flags    = flag.NewFlagSet("call", flag.ContinueOnError)
		node     nodeFlags
		header   = headerFlag{}
		traceID  = flags.String("trace-id", "", "Id of a foreign (64-bit) trace that the call continues")
		parentID = flags.String("parent-id", "", "Id of the foreign span that the call is a child of")
	)
	node.register(flags, "kmicro-cli")
	flags.Var(header, "H", "Header sent with the call, as key=value")

	return &tool.Command{
		Name:        "call",
		Flags:       flags,
		Description: "Call an endpoint",
		Help: `Usage:
  kmicro call [flags] <service.endpoint> [payload]

Description:
  "kmicro call" starts a short-lived node, calls the provided endpoint, and
  prints the response to stdout. If payload is "-", it is read from stdin.

  If the remote handler fails, the error code and message are printed to
  stderr and the command exits with status 1.

Examples:
  kmicro call greeter.hello World
  kmicro call -H user=alice -timeout 2s orders.list
  kmicro call -trace-id 1234abcd5678ef90 -parent-id ab orders.list`,
		Fn: func(ctx context.Context, args []string) error {
			if len(args) < 1 || len(args) > 2 {
				return fmt.Errorf("usage: kmicro call [flags] <service.endpoint> [payload]")
			}
			cfg, err := node.load(flags)
			if err != nil {
				return err
			}
			opts, err := nodeOptions(cfg)
			if err != nil {
				return err
			}

			var payload []byte
			if len(args) == 2 {
				payload = []byte(args[1])
				if args[1] == "-" {
					if payload, err = io.ReadAll(os.Stdin); err != nil {
						return fmt.Errorf("read payload: %w", err)
					}
				}
			}

			callOpts := kmicro.CallOptions{Timeout: cfg.Timeout, Header: kmicro.Header(header)}
			if *traceID != "" {
				callOpts.Foreign = &kmicro.ForeignTrace{TraceID: *traceID, ParentID: *parentID}
			}
			return call(ctx, cfg.NATSURL, cfg.Service, cfg.Version, opts, args[0], payload, callOpts, os.Stdout)
		},
	}
}

// call calls target from a fresh node and writes the response to w.
func call(ctx context.Context, natsURL, service, version string, opts kmicro.Options, target string, payload []byte, callOpts kmicro.CallOptions, w io.Writer) error {
	node, err := kmicro.Init(ctx, natsURL, service, version, opts)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		node.Stop(ctx)
	}()

	resp, err := node.Call(ctx, target, payload, callOpts)
	var callErr *kmicro.CallError
	if errors.As(err, &callErr) {
		return fmt.Errorf("%s failed with code %s: %s", callErr.Target, callErr.Code, callErr.Message)
	}
	if err != nil {
		return fmt.Errorf("call %s: %w", target, err)
	}
	if _, err := w.Write(resp); err != nil {
		return err
	}
	if len(resp) > 0 && resp[len(resp)-1] != '\n' {
		fmt.Fprintln(w)
	}
	return nil
}
