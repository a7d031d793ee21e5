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

// Package tool contains utilities for creating command line tools with
// subcommands, like the kmicro tool.
package tool

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
)

// Command is a subcommand of a binary, like the "call" in "kmicro call".
type Command struct {
	Name        string                                // subcommand name
	Description string                                // short one-line description
	Help        string                                // full help message
	Flags       *flag.FlagSet                         // flags
	Fn          func(context.Context, []string) error // passed command line args that occur after the subcommmand name
	Hidden      bool                                  // hide from help messages?
}

// Run executes a collection of subcommands, parsing the provided command
// line arguments (without the program name) and dispatching to the correct
// subcommand. It returns the exit code of the tool.
func Run(ctx context.Context, tool, description string, commands map[string]*Command, args []string) int {
	// Add a help command.
	if _, ok := commands["help"]; !ok {
		commands["help"] = &Command{
			Name:        "help",
			Description: "Print help for a sub-command",
			Fn: func(_ context.Context, args []string) error {
				if len(args) == 0 {
					fmt.Fprintln(os.Stdout, MainHelp(tool, description, commands))
					return nil
				}
				if len(args) != 1 {
					return fmt.Errorf("help: too many arguments")
				}
				cmd, ok := commands[args[0]]
				if !ok {
					return fmt.Errorf("help: command %q not found", args[0])
				}
				fmt.Println(commandHelp(cmd))
				return nil
			},
		}
	}

	// Catch -h or --help.
	flags := flag.NewFlagSet(tool, flag.ContinueOnError)
	flags.SetOutput(io.Discard)
	if err := flags.Parse(args); err == flag.ErrHelp {
		fmt.Fprintln(os.Stdout, MainHelp(tool, description, commands))
		return 0
	} else if err != nil {
		fmt.Fprintf(os.Stderr, "%s: %v\n", tool, err)
		return 1
	}

	// Get sub-command.
	cmd, ok := commands[flags.Arg(0)]
	if !ok {
		fmt.Fprintln(os.Stderr, MainHelp(tool, description, commands))
		return 1
	}

	// Parse command flags.
	args = flags.Args()[1:]
	if cmd.Flags != nil {
		// Silence the flag package so that we print our own help below.
		cmd.Flags.SetOutput(io.Discard)
		if err := cmd.Flags.Parse(args); err == flag.ErrHelp {
			fmt.Fprintln(os.Stdout, commandHelp(cmd))
			return 0
		} else if err != nil {
			fmt.Fprintf(os.Stderr, "%s %s: %v\n\n%s\n", tool, cmd.Name, err, commandHelp(cmd))
			return 1
		}
		args = cmd.Flags.Args()
	}

	// Run command.
	if err := cmd.Fn(ctx, args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return 1
	}
	return 0
}

// MainHelp returns the help message for the provided set of commands.
func MainHelp(tool, description string, commands map[string]*Command) string {
	var sorted []string
	for name, cmd := range commands {
		if !cmd.Hidden {
			sorted = append(sorted, name)
		}
	}
	sort.Strings(sorted)

	var cmds strings.Builder
	for _, name := range sorted {
		cmd := commands[name]
		fmt.Fprintf(&cmds, "  %-12s %s\n", name, cmd.Description)
	}

	return fmt.Sprintf(`%s

Usage:
  %s <command> ...

Available Commands:
%s
Flags:
  -h, --help   Print this help message.

Use "%s help <command>" for more information about a command.`, description, tool, cmds.String(), tool)
}

// commandHelp returns the help message for the provided command.
func commandHelp(cmd *Command) string {
	var b strings.Builder
	b.WriteString(cmd.Description)
	if cmd.Help != "" {
		fmt.Fprintf(&b, "\n\n%s", cmd.Help)
	}
	if cmd.Flags != nil {
		if flags := FlagsHelp(cmd.Flags); flags != "" {
			fmt.Fprintf(&b, "\n\nFlags:\n%s", flags)
		}
	}
	return b.String()
}

// FlagsHelp pretty prints the set of flags in the provided FlagSet, along with
// their descriptions and default values. Here's an example output:
//
//	-H            Header sent with the call, as key=value (default [])
//	--nats        URL of the NATS server (default nats://127.0.0.1:4222)
//	--timeout     Call timeout (default 5s)
func FlagsHelp(flags *flag.FlagSet) string {
	var b strings.Builder
	flags.VisitAll(func(flag *flag.Flag) {
		if len(flag.Name) == 1 {
			fmt.Fprintf(&b, "  -%s", flag.Name)
		} else {
			fmt.Fprintf(&b, "  --%s", flag.Name)
		}
		fmt.Fprintf(&b, "\t%s (default %s)\n", flag.Usage, flag.DefValue)
	})
	return strings.TrimSuffix(b.String(), "\n")
}
