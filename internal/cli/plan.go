package cli

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/vvka-141/pgload/internal/dialect"
	"github.com/vvka-141/pgload/internal/loader"
	"github.com/vvka-141/pgload/internal/logging"
	"github.com/vvka-141/pgload/internal/planner"
	"github.com/vvka-141/pgload/internal/tui"
	"github.com/vvka-141/pgload/pkg/pgload"
)

// maxPlanRows caps the batch table; longer plans show the head and the tail.
const maxPlanRows = 20

// probeTimeout bounds the destination row count lookup of a dry run.
const probeTimeout = 15 * time.Second

var planCmd = &cobra.Command{
	Use:   "plan <file>",
	Short: "Show how a load would be split into batches, without writing",
	Long: `Plan counts the records of <file> and prints the batches a load would
commit. When the destination is reachable, it also reads the row count of
the table and marks where a --resume run would start.

Plan never writes to the destination.

Examples:
  pgload plan ./customers.csv --has-header --batch-size 5000 -d warehouse
  pgload plan ./events.csv --driver sqlite --dsn ./events.db`,
	Args:              RequireSourceFile,
	ValidArgsFunction: completeSourceFile,
	RunE:              runPlan,
}

var planFlags loadFlagValues

func init() {
	rootCmd.AddCommand(planCmd)
	registerLoadFlags(planCmd, &planFlags)
}

func runPlan(cmd *cobra.Command, args []string) error {
	return executePlan(cmd, args, &planFlags)
}

func executePlan(cmd *cobra.Command, args []string, f *loadFlagValues) error {
	settings, err := resolveSettings(cmd, args, f)
	if err != nil {
		return err
	}
	cfg := settings.Load
	logger := logging.NewConsoleLogger(cfg.Verbose)

	ctx, stop := signalContext(cmd.Context())
	defer stop()

	reader, total, err := countSource(ctx, cfg, newPrompter(settings))
	if err != nil {
		return err
	}
	_ = reader.Close()

	rows := probeRowCount(ctx, cfg, logger, loader.OpenDestination)

	plan, err := planner.New(total, int64(cfg.BatchSize), rows)
	if err != nil {
		return err
	}

	printPlan(cmd.OutOrStdout(), cfg, plan, rows)
	return nil
}

// probeRowCount returns the destination row count, or -1 when the
// destination or the table cannot be reached. A dry run goes on without it.
func probeRowCount(ctx context.Context, cfg pgload.LoadConfig, logger pgload.Logger, open loader.DestinationOpener) int64 {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	d, err := dialect.For(cfg.Driver)
	if err != nil {
		logger.Warn("Resume point unknown: %v", err)
		return -1
	}

	dest, err := open(ctx, cfg, logger)
	if err != nil {
		logger.Warn("Resume point unknown, destination not reachable: %v", err)
		return -1
	}
	defer dest.Close()

	rows, err := dest.QueryInt(ctx, d.CountSQL(cfg.Table))
	if err != nil {
		logger.Warn("Resume point unknown, cannot count rows in %s: %v", cfg.Table, err)
		return -1
	}
	return rows
}

// printPlan writes the plan summary and the batch table to out.
func printPlan(out io.Writer, cfg pgload.LoadConfig, plan planner.Plan, rows int64) {
	fmt.Fprintf(out, "Source:      %s\n", cfg.SourcePath)
	fmt.Fprintf(out, "Destination: %s (%s)\n", cfg.Table, cfg.Driver)
	fmt.Fprintf(out, "Records:     %d\n", plan.Total)
	fmt.Fprintf(out, "Batch size:  %d\n", plan.BatchSize)
	fmt.Fprintf(out, "Batches:     %d\n", plan.TotalBatches)

	switch {
	case rows < 0:
		fmt.Fprintln(out, "Resume:      unknown (destination or table not reachable)")
	case rows == 0:
		fmt.Fprintln(out, "Resume:      table is empty, a load starts at batch 1")
	case plan.IsComplete():
		fmt.Fprintf(out, "Resume:      %d rows present, nothing left to load\n", rows)
	default:
		fmt.Fprintf(out, "Resume:      %d rows present, --resume starts at batch %d (record %d)\n",
			rows, plan.StartBatch+1, plan.ResumeLine())
	}

	if plan.TotalBatches == 0 {
		return
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, batchTable(plan, rows))
}

func batchTable(plan planner.Plan, rows int64) string {
	spans := planner.Partition(plan.Total, plan.BatchSize)

	status := func(s planner.Span) string {
		switch {
		case rows <= 0:
			return "pending"
		case s.Index < plan.StartBatch:
			return "done"
		default:
			return "pending"
		}
	}
	row := func(s planner.Span) []string {
		return []string{
			strconv.FormatInt(s.Index+1, 10),
			strconv.FormatInt(s.Start, 10),
			strconv.FormatInt(s.End-1, 10),
			strconv.FormatInt(s.Len(), 10),
			status(s),
		}
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(tui.ColorPrimary)).
		Headers("BATCH", "FIRST", "LAST", "RECORDS", "STATUS").
		StyleFunc(func(r, c int) lipgloss.Style {
			if r == table.HeaderRow {
				return tui.TitleStyle.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})

	if len(spans) <= maxPlanRows {
		for _, s := range spans {
			t.Row(row(s)...)
		}
		return t.String()
	}

	half := maxPlanRows / 2
	for _, s := range spans[:half] {
		t.Row(row(s)...)
	}
	t.Row("...", "", "", "", fmt.Sprintf("%d more", len(spans)-maxPlanRows))
	for _, s := range spans[len(spans)-half:] {
		t.Row(row(s)...)
	}
	return t.String()
}
