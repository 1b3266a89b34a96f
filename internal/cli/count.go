package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/config"
	"github.com/vvka-141/pgload/internal/source"
	"github.com/vvka-141/pgload/pkg/pgload"
)

var countCmd = &cobra.Command{
	Use:   "count <file>",
	Short: "Print the number of records in a file",
	Long: `Count scans <file> once and prints its record count to stdout.

A line break separates records; the header line, when there is one, is not
a record. Blank lines inside the file are records, a trailing line break
does not add one.

Examples:
  pgload count ./customers.csv --has-header
  pgload count ./legacy.txt --encoding latin1 --has-header=false`,
	Args:              RequireSourceFile,
	ValidArgsFunction: completeSourceFile,
	RunE:              runCount,
}

var countFlags sourceFlags

func init() {
	rootCmd.AddCommand(countCmd)
	registerSourceFlags(countCmd, &countFlags)
}

func runCount(cmd *cobra.Command, args []string) error {
	return executeCount(cmd, args, &countFlags)
}

func executeCount(cmd *cobra.Command, args []string, f *sourceFlags) error {
	var sourcePath string
	if len(args) > 0 {
		sourcePath = args[0]
	}

	env, project, err := loadProjectConfig(f)
	if err != nil {
		return err
	}

	flags := config.Flags{SourcePath: sourcePath}
	if cmd.Flags().Changed("delimiter") {
		flags.Delimiter = &f.delimiter
	}
	if cmd.Flags().Changed("encoding") {
		flags.Encoding = &f.encoding
	}
	if cmd.Flags().Changed("has-header") {
		flags.HasHeader = &f.hasHeader
	}

	settings, err := config.Build(flags, env, project)
	if err != nil {
		return err
	}
	if settings.Load.SourcePath == "" {
		return missingSourceError(cmd)
	}

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	reader, total, err := countSource(ctx, settings.Load, newPrompter(settings))
	if err != nil {
		return err
	}
	defer reader.Close()

	fmt.Fprintln(cmd.OutOrStdout(), total)
	return nil
}

// countSource opens the source, settles whether its first line is a header
// (asking when nothing decided it) and counts the records. The reader is
// returned positioned at record 0.
func countSource(ctx context.Context, cfg pgload.LoadConfig, prompter pgload.Prompter) (*source.Reader, int64, error) {
	reader, err := source.Open(cfg.SourcePath,
		source.WithDelimiter(cfg.Delimiter),
		source.WithEncoding(cfg.Encoding),
	)
	if err != nil {
		return nil, 0, err
	}

	hasHeader := false
	if header := reader.Header(); len(header) > 0 {
		if hasHeader, err = prompter.ConfirmHeader(ctx, header); err != nil {
			_ = reader.Close()
			return nil, 0, fmt.Errorf("header question: %w", err)
		}
	}
	if err := reader.SetHasHeader(hasHeader); err != nil {
		_ = reader.Close()
		return nil, 0, err
	}

	total, err := reader.CountRecords(ctx)
	if err != nil {
		_ = reader.Close()
		return nil, 0, fmt.Errorf("counting records: %w", err)
	}
	return reader, total, nil
}
