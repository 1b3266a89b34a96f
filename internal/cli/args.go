package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// RequireSourceFile validates that at most one <file> argument is provided.
// The file may also come from $PGLOAD_FILE or source.path in pgload.yaml, so
// a missing argument is reported later, once configuration is resolved.
func RequireSourceFile(cmd *cobra.Command, args []string) error {
	if len(args) > 1 {
		return fmt.Errorf("accepts 1 arg(s), received %d", len(args))
	}
	return nil
}

// missingSourceError explains the ways of naming the source file.
func missingSourceError(cmd *cobra.Command) error {
	return fmt.Errorf(`missing required argument: <file>

Usage: %s

Example:
  %s ./data/customers.csv --table customers

The file can also be set with $PGLOAD_FILE or source.path in pgload.yaml.`, cmd.UseLine(), cmd.CommandPath())
}
