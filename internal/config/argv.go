package config

import (
	"fmt"
	"strings"

	"github.com/mattn/go-shellwords"
)

// parseArgv splits a configured command line with shell quoting rules.
func parseArgv(input string) ([]string, error) {
	input = strings.TrimSpace(input)
	if input == "" || strings.HasPrefix(input, "#") {
		return nil, nil
	}

	parser := shellwords.NewParser()
	argv, err := parser.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("parse command %q: %w", input, err)
	}
	return argv, nil
}

func mustParseArgv(input string) []string {
	argv, err := parseArgv(input)
	if err != nil {
		panic(err)
	}
	return argv
}
