// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package cli parses command-line arguments and handles the non-TUI
// subcommands.
package cli

import (
	"fmt"
	"os"
	"runtime"
	"strings"
)

// Version information (can be overridden at build time)
var (
	Version   = "0.1.0"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// Command represents the CLI command to execute.
type Command int

const (
	CmdTUI Command = iota
	CmdSessions
	CmdHistory
	CmdConfig
	CmdVersion
	CmdHelp
)

// Args holds parsed CLI arguments.
type Args struct {
	// Global flags
	Quiet   bool
	Verbose bool

	// Command-specific
	Query string
	Kind  string

	// Raw args (remaining after flag parsing)
	Raw []string
}

// Parse reads os.Args and returns the command plus its arguments.
func Parse() (Command, Args) {
	return ParseArgs(os.Args[1:])
}

// ParseArgs parses an explicit argument list.
func ParseArgs(argv []string) (Command, Args) {
	var args Args
	cmd := CmdTUI

	var positional []string
	for i := 0; i < len(argv); i++ {
		arg := argv[i]
		switch {
		case arg == "-q" || arg == "--quiet":
			args.Quiet = true
		case arg == "-v" || arg == "--verbose":
			args.Verbose = true
		case arg == "--kind":
			if i+1 < len(argv) {
				i++
				args.Kind = argv[i]
			}
		case strings.HasPrefix(arg, "--kind="):
			args.Kind = strings.TrimPrefix(arg, "--kind=")
		case arg == "--version":
			cmd = CmdVersion
		case arg == "-h" || arg == "--help":
			cmd = CmdHelp
		default:
			positional = append(positional, arg)
		}
	}

	if len(positional) > 0 {
		switch positional[0] {
		case "sessions":
			cmd = CmdSessions
		case "history":
			cmd = CmdHistory
			if len(positional) > 1 {
				args.Query = strings.Join(positional[1:], " ")
			}
		case "config":
			cmd = CmdConfig
		case "version":
			cmd = CmdVersion
		case "help":
			cmd = CmdHelp
		default:
			fmt.Fprintf(os.Stderr, "unknown command %q\n\n", positional[0])
			cmd = CmdHelp
		}
		args.Raw = positional[1:]
	}

	return cmd, args
}

// HandleVersion prints version information.
func HandleVersion() {
	fmt.Printf("genstudio %s (%s, built %s, %s)\n", Version, GitCommit, BuildDate, runtime.Version())
}

// HandleHelp prints command usage.
func HandleHelp() {
	fmt.Print(`genstudio - terminal studio for chat, image, video, and speech generation

Usage:
  genstudio                 launch the TUI
  genstudio sessions        list indexed sessions
  genstudio history [term]  list or search indexed artifacts
      --kind image|video|audio   filter by artifact kind
  genstudio config          print the resolved configuration
  genstudio version         print version information

Environment:
  GENSTUDIO_API_KEY    API key (overrides config file)
  GENSTUDIO_BASE_URL   gateway base URL
  GENSTUDIO_DATA_DIR   session data directory
`)
}
