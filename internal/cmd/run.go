package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ColorsOutofSpace/net-check/internal/config"
	"github.com/ColorsOutofSpace/net-check/internal/observability"
	"github.com/ColorsOutofSpace/net-check/pkg/analysis"
	"github.com/ColorsOutofSpace/net-check/pkg/batch"
	"github.com/ColorsOutofSpace/net-check/pkg/catalog"
	"github.com/ColorsOutofSpace/net-check/pkg/jobmanager"
)

var runCmd = &cobra.Command{
	Use:   "run [check-id ...]",
	Short: "Run diagnostic checks and print a summary",
	Long: `Run one or more checks from the catalog against a target and print
each result plus a layered health summary. With no arguments every known
check runs.`,
	RunE: runBatch,
}

var (
	runTarget  string
	runCount   int
	runTimeout int
	runWorkers int
	runRate    float64
	runRaw     bool
)

func init() {
	runCmd.Flags().StringVarP(&runTarget, "target", "t", "", "probe target host (overrides config)")
	runCmd.Flags().IntVar(&runCount, "count", 0, "probe count for repeating checks")
	runCmd.Flags().IntVar(&runTimeout, "timeout", 0, "per-check timeout in seconds")
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "checks running in parallel")
	runCmd.Flags().Float64Var(&runRate, "rate", 0, "max job launches per second (0 = unlimited)")
	runCmd.Flags().BoolVar(&runRaw, "raw", false, "print raw command output for each check")
	rootCmd.AddCommand(runCmd)
}

func runBatch(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, err := config.LoadFile(ctx, cfgFile)
	if err != nil {
		return err
	}

	logger, err := observability.NewCLILogger(verbose)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cat := catalog.New()
	checkIDs := args
	if len(checkIDs) == 0 {
		for _, c := range cat.List() {
			checkIDs = append(checkIDs, c.ID)
		}
		sort.Strings(checkIDs)
	} else {
		for _, id := range checkIDs {
			if !cat.Known(id) {
				return fmt.Errorf("unknown check %q (see 'netcheck checks')", id)
			}
		}
	}

	manager := jobmanager.New(cat, jobmanager.Config{
		MaxJobs: cfg.Jobs.MaxRetained,
		Logger:  logger.Named("jobs"),
	})

	batchCfg := batch.DefaultConfig()
	batchCfg.Target = cfg.Batch.DefaultTarget
	batchCfg.Concurrency = cfg.Batch.Concurrency
	batchCfg.RateLimit = cfg.Batch.RateLimit
	batchCfg.Count = cfg.Jobs.DefaultCount
	batchCfg.TimeoutSeconds = cfg.Jobs.DefaultTimeoutSeconds
	if runTarget != "" {
		batchCfg.Target = runTarget
	}
	if runCount > 0 {
		batchCfg.Count = runCount
	}
	if runTimeout > 0 {
		batchCfg.TimeoutSeconds = runTimeout
	}
	if runWorkers > 0 {
		batchCfg.Concurrency = runWorkers
	}
	if runRate > 0 {
		batchCfg.RateLimit = runRate
	}

	runner := batch.New(manager, batchCfg)
	snaps, err := runner.Run(ctx, checkIDs)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, snap := range snaps {
		printSnapshot(out, snap, runRaw)
	}

	layers, err := loadLayers(cfg.Analysis.LayersFile)
	if err != nil {
		return err
	}
	summary := analysis.BuildSummaryWithConfig(
		analysis.ItemsFromSnapshots(snaps), layers,
		analysis.Config{WarningKeywords: cfg.Analysis.WarningKeywords})
	printSummary(out, summary)
	return nil
}

func printSnapshot(out io.Writer, snap jobmanager.Snapshot, raw bool) {
	fmt.Fprintf(out, "=== %s (%s)\n", snap.Title, snap.Status)
	for _, line := range snap.Diagnosis {
		fmt.Fprintf(out, "    %s\n", line)
	}
	if raw && strings.TrimSpace(snap.RawOutput) != "" {
		fmt.Fprintln(out, "    ---")
		for _, line := range strings.Split(strings.TrimRight(snap.RawOutput, "\n"), "\n") {
			fmt.Fprintf(out, "    %s\n", line)
		}
	}
	fmt.Fprintln(out)
}

func printSummary(out io.Writer, s analysis.OverviewSummary) {
	fmt.Fprintf(out, "Checks: %d total, %d completed, %d failed, %d warning\n",
		s.Total, s.Completed, s.Failed, s.Warning)
	fmt.Fprintln(out, "Layers:")
	for _, layer := range s.Layers {
		fmt.Fprintf(out, "  %-10s %s\n", layer.Label, layer.Status)
	}
	if len(s.RootCauses) > 0 {
		fmt.Fprintln(out, "Root causes:")
		for _, rc := range s.RootCauses {
			fmt.Fprintf(out, "  [%s] %s\n", rc.Severity, rc.Title)
			if rc.Evidence != "" {
				fmt.Fprintf(out, "        %s\n", rc.Evidence)
			}
		}
	}
}
