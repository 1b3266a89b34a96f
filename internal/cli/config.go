package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var configCmd = &cobra.Command{
	Use:   "config [file]",
	Short: "Print the effective configuration as pgload.yaml",
	Long: `Config resolves flags, PGLOAD_* and PG* environment variables, .env and
pgload.yaml exactly as load does, and prints the result in pgload.yaml form.

With --write the result is saved instead, so a run tuned on the command line
can be repeated with a bare "pgload load".

Passwords are never written. A DSN is written as given.

Examples:
  # What would "pgload load" use here?
  pgload config

  # Freeze a command line into pgload.yaml
  pgload config ./orders.csv --table staging.orders --batch-size 5000 --write pgload.yaml`,
	Args:              RequireSourceFile,
	ValidArgsFunction: completeSourceFile,
	RunE:              runConfig,
}

var (
	configFlags     loadFlagValues
	configWritePath string
)

func init() {
	rootCmd.AddCommand(configCmd)
	registerLoadFlags(configCmd, &configFlags)
	configCmd.Flags().StringVar(&configWritePath, "write", "",
		"Save the configuration to this file instead of printing it")
}

func runConfig(cmd *cobra.Command, args []string) error {
	return executeConfig(cmd, args, &configFlags, configWritePath)
}

func executeConfig(cmd *cobra.Command, args []string, f *loadFlagValues, writePath string) error {
	settings, err := resolveSettings(cmd, args, f)
	if err != nil {
		return err
	}

	project := projectFromSettings(settings)

	if writePath != "" {
		if err := config.Save(writePath, project); err != nil {
			return fmt.Errorf("failed to write config: %w", err)
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "✓ Configuration saved to %s\n", writePath)
		return nil
	}

	data, err := yaml.Marshal(project)
	if err != nil {
		return fmt.Errorf("failed to serialize config: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

// projectFromSettings turns resolved settings back into the project file
// layout. Questions nothing has answered yet (header, resume) stay unset.
func projectFromSettings(s *config.Settings) *config.ProjectConfig {
	c := s.Load
	createTable := c.CreateTable
	maxAttempts := c.RetryMaxAttempts

	p := &config.ProjectConfig{
		Source: config.SourceConfig{
			Path:      c.SourcePath,
			Delimiter: c.Delimiter,
			HasHeader: s.HasHeader,
			Encoding:  c.Encoding,
		},
		Destination: config.DestinationConfig{
			Driver:      string(c.Driver),
			Table:       c.Table,
			Columns:     c.Columns,
			CreateTable: &createTable,
		},
		Load: config.LoadSection{
			BatchSize: c.BatchSize,
			Mode:      string(c.Mode),
			OnFailure: string(c.OnFailure),
			Retry: config.RetryConfig{
				MaxAttempts:  &maxAttempts,
				InitialDelay: c.RetryInitialDelay.String(),
				MaxDelay:     c.RetryMaxDelay.String(),
			},
		},
		Log: config.LogConfig{
			File:    c.LogFile,
			Verbose: c.Verbose,
		},
	}
	if c.OnFailure == pgload.FailureRetry {
		p.Load.FailureRounds = c.FailureRounds
	}
	if c.Timeout > 0 {
		p.Load.Timeout = c.Timeout.String()
	}
	switch s.Resume {
	case pgload.ResumeContinue, pgload.ResumeRestart:
		p.Load.Resume = s.Resume.String()
	}

	if conn := c.Connection; conn != nil {
		p.Connection = config.ConnectionConfig{
			Host:           conn.Host,
			Port:           conn.Port,
			Username:       conn.Username,
			Database:       conn.Database,
			SSLMode:        conn.SSLMode,
			SSLCert:        conn.AdditionalParams["sslcert"],
			SSLKey:         conn.AdditionalParams["sslkey"],
			SSLRootCert:    conn.AdditionalParams["sslrootcert"],
			AuthMethod:     authMethodName(conn.AuthMethod),
			AWSRegion:      conn.AWSRegion,
			GoogleInstance: conn.GoogleInstance,
			AzureTenantID:  conn.AzureTenantID,
			AzureClientID:  conn.AzureClientID,
		}
	} else {
		p.Destination.DSN = c.ConnectionString
	}
	return p
}

// authMethodName is the pgload.yaml spelling of m; standard is left empty.
func authMethodName(m pgload.AuthMethod) string {
	switch m {
	case pgload.AuthMethodCertificate:
		return "cert"
	case pgload.AuthMethodAWSIAM:
		return "aws"
	case pgload.AuthMethodGoogleIAM:
		return "google"
	case pgload.AuthMethodAzureEntraID:
		return "azure"
	default:
		return ""
	}
}
