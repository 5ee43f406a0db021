package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/mockview/mockviewd/internal/cli"
	"github.com/spf13/cobra"
)

func main() {
	cmd := cli.NewRootCmd()
	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		if shouldPrintUsageHint(err) {
			fmt.Fprintf(os.Stderr, "Run '%s --help' for usage.\n", helpHintTarget(cmd, os.Args[1:]))
		}
		os.Exit(1)
	}
}

// usageErrorMarkers are substrings cobra puts into argument and flag
// parsing errors. Runtime failures never match, so the usage hint only
// shows when the invocation itself was malformed.
var usageErrorMarkers = []string{
	"unknown command",
	"unknown flag",
	"unknown shorthand flag",
	"accepts ",
	"requires at least",
	"requires at most",
	"requires between",
	"required flag",
	"missing required",
}

func shouldPrintUsageHint(err error) bool {
	if err == nil {
		return false
	}
	message := strings.ToLower(err.Error())
	for _, marker := range usageErrorMarkers {
		if strings.Contains(message, marker) {
			return true
		}
	}
	return false
}

// helpHintTarget picks the most specific command path for the usage hint,
// so `mockviewd transcribe` mistakes point at the subcommand's help.
func helpHintTarget(root *cobra.Command, args []string) string {
	if root == nil {
		return "mockviewd"
	}
	if len(args) == 0 || strings.HasPrefix(args[0], "-") {
		return root.CommandPath()
	}
	if found, _, err := root.Find(args); err == nil && found != nil {
		return found.CommandPath()
	}
	return root.CommandPath()
}
