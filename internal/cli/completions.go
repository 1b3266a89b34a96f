package cli

import (
	"strings"

	"github.com/spf13/cobra"
)

// sslModes contains valid PostgreSQL SSL modes for shell completion.
var sslModes = []string{"disable", "allow", "prefer", "require", "verify-ca", "verify-full"}

var (
	driverNames   = []string{"postgres", "mysql", "sqlite", "sqlserver"}
	insertModes   = []string{"insert", "copy"}
	failureModes  = []string{"stop", "retry"}
	authMethods   = []string{"standard", "cert", "aws", "google", "azure"}
	encodingNames = []string{"utf-8", "utf-16", "utf-16le", "utf-16be", "latin1", "windows-1252"}
)

// completeSSLModes provides shell completion for SSL mode flag values.
func completeSSLModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(sslModes, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeDrivers(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(driverNames, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeModes(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(insertModes, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeFailurePolicies(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(failureModes, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeAuthMethods(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(authMethods, toComplete), cobra.ShellCompDirectiveNoFileComp
}

func completeEncodings(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	return matchPrefix(encodingNames, toComplete), cobra.ShellCompDirectiveNoFileComp
}

// completeSourceFile lets the shell complete the <file> argument.
func completeSourceFile(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	if len(args) > 0 {
		return nil, cobra.ShellCompDirectiveNoFileComp
	}
	return nil, cobra.ShellCompDirectiveDefault
}

func matchPrefix(values []string, prefix string) []string {
	var matches []string
	for _, v := range values {
		if strings.HasPrefix(v, prefix) {
			matches = append(matches, v)
		}
	}
	return matches
}
