// Command lvtail prints the latest value of a telemetry entity as it changes.
//
// Usage:
//
//	lvtail tail --entity sat-1.battery --follow 1h
//	lvtail tail --entity sat-1.battery --start 1700000000000 --end 1700003600000
//	lvtail tail --entity sat-1.battery --shared
//	lvtail publish --entity sat-1.battery '{"utc": 1700000000000, "value": 12.5}'
//	lvtail time bounds 1700000000000 1700003600000
//	lvtail time clock local
//	lvtail time system utc
package main

import (
	"errors"
	"fmt"
	"os"
)

func main() {
	if err := NewRootCommand().Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			fmt.Fprintln(os.Stderr, "Error:", exitErr.Error())
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(ExitCommandError)
	}
}
