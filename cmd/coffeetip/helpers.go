// Copyright 2026 Diffeo, Inc.
// This software is released under an MIT/X11 open source license.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/urfave/cli"
)

// oneArg returns the single positional argument of a command.
func oneArg(c *cli.Context, name string) (string, error) {
	if c.NArg() != 1 {
		return "", cli.NewExitError(fmt.Sprintf("%v: expected one %v argument", c.Command.Name, name), 2)
	}
	return c.Args().First(), nil
}

func orNone(s string) string {
	if s == "" {
		return "(none)"
	}
	return s
}

func parseBool(name, value string) (*bool, error) {
	b, err := strconv.ParseBool(value)
	if err != nil {
		return nil, cli.NewExitError(fmt.Sprintf("--%v: %v", name, err), 2)
	}
	return &b, nil
}

func boolValue(b *bool) bool {
	return b != nil && *b
}

// parseLinks turns name=url pairs into a link map.
func parseLinks(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	links := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
			return nil, cli.NewExitError(fmt.Sprintf("--link %q: want NAME=URL", pair), 2)
		}
		links[parts[0]] = parts[1]
	}
	return links, nil
}
