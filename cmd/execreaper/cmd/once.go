package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"

	"github.com/psantana5/execreaper/pkg/reconcile"
)

var onceCmd = &cobra.Command{
	Use:   "once",
	Short: "Run a single reconciliation pass",
	Long: `Run one reconciliation pass and print what was found. With --dry-run
dangling executions are reported but not terminated. Exits non-zero when the
pass fails or any terminate request fails.`,
	Args: cobra.NoArgs,
	RunE: runOnce,
}

func init() {
	rootCmd.AddCommand(onceCmd)
	onceCmd.Flags().Bool("dry-run", false, "classify executions without terminating them")
	onceCmd.Flags().Bool("show-metrics", false, "print the pass metrics in Prometheus text format")
}

func runOnce(cmd *cobra.Command, args []string) error {
	if err := cfg.Validate(true); err != nil {
		return err
	}

	opts := cfg.Reconcile
	if cmd.Flags().Changed("dry-run") {
		opts.DryRun, _ = cmd.Flags().GetBool("dry-run")
	}

	a, err := newApp(cfg, true)
	if err != nil {
		return err
	}
	defer a.close(context.Background())

	runner := a.newRunner(opts)
	defer runner.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	result, err := runner.RunOnePass(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if err := printPassResult(out, result, IsJSONOutput()); err != nil {
		return err
	}
	if show, _ := cmd.Flags().GetBool("show-metrics"); show {
		if err := writeMetrics(out, a.promReg, "execreaper_"); err != nil {
			return err
		}
	}

	if n := result.Terminated.Failed(); n > 0 {
		return fmt.Errorf("%d of %d terminate requests failed", n, result.Terminated.Attempted)
	}
	return nil
}

func printPassResult(w io.Writer, result *reconcile.PassResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	summary := tablewriter.NewWriter(w)
	summary.Header("Field", "Value")
	summary.Append("Pass", result.PassID)
	summary.Append("Dry run", fmt.Sprintf("%t", result.DryRun))
	summary.Append("Active instances", fmt.Sprintf("%d", result.Active))
	summary.Append("Executions scanned", fmt.Sprintf("%d", result.Scanned))
	summary.Append("Dangling", fmt.Sprintf("%d", len(result.Dangling)))
	summary.Append("Terminated", fmt.Sprintf("%d", result.Terminated.Terminated))
	summary.Append("Failed", fmt.Sprintf("%d", result.Terminated.Failed()))
	summary.Append("Duration", result.Duration.String())
	summary.Render()

	if len(result.Dangling) == 0 {
		fmt.Fprintln(w, "\nNo dangling executions.")
		return nil
	}

	failed := make(map[string]string, len(result.Terminated.Failures))
	for _, f := range result.Terminated.Failures {
		failed[f.Execution.String()] = f.Error
	}

	fmt.Fprintln(w)
	table := tablewriter.NewWriter(w)
	table.Header("Execution", "Phase", "Reason", "Result")
	for _, c := range result.Dangling {
		status := "terminated"
		switch {
		case result.DryRun:
			status = "dry-run"
		case failed[c.Ref().String()] != "":
			status = "failed: " + failed[c.Ref().String()]
		}
		table.Append(c.Ref().String(), string(c.Execution.Phase), string(c.Reason), status)
	}
	table.Render()
	return nil
}

// writeMetrics renders every metric family whose name starts with prefix
func writeMetrics(w io.Writer, g prometheus.Gatherer, prefix string) error {
	families, err := g.Gather()
	if err != nil {
		return fmt.Errorf("failed to gather metrics: %w", err)
	}

	fmt.Fprintln(w)
	enc := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if err := enc.Encode(mf); err != nil {
			return fmt.Errorf("failed to encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
