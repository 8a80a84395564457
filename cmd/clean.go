package cmd

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/KaramelBytes/tabstat-cli/internal/audit"
	"github.com/KaramelBytes/tabstat-cli/internal/cleaning"
	"github.com/KaramelBytes/tabstat-cli/internal/export"
	"github.com/KaramelBytes/tabstat-cli/internal/stats"
)

var (
	clLoad       loadFlags
	clTarget     string
	clGroupCol   string
	clGroupValue string
	clSentinel   float64
	clDrop       []string
	clPolicy     string
	clOutput     string
	clReport     string
	clAuditDB    string
	clDryRun     bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean <file>",
	Short: "Repair sentinel values with group-conditional medians",
	Long: `Replace sentinel values of a numeric column with the median of that column within the
row's group, computed over non-sentinel values only. Rows can first be dropped when a column
holds its sentinel. Rules come from --target/--group-col/--group-value or the config file.

Example (heart-disease data):
  tabstat clean heart.csv --drop RestingBP=0 --target Cholesterol --group-col HeartDisease --group-value 0`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		plan, err := cleanPlan(cmd)
		if err != nil {
			return err
		}
		if plan.Empty() {
			return fmt.Errorf("nothing to do: pass --target/--group-col or --drop, or configure cleaning.rules")
		}

		t, err := clLoad.load(path)
		if err != nil {
			return err
		}
		cleaned, rep, err := cleaning.Apply(t, plan)
		if err != nil {
			return err
		}
		runID := uuid.NewString()
		rep.Stamp(time.Now().UTC())
		logger.Info("Cleaning complete",
			zap.String("run_id", runID),
			zap.String("file", t.Name),
			zap.Int("rows_in", t.Len()),
			zap.Int("rows_out", cleaned.Len()))

		out := cmd.OutOrStdout()
		imputed, dropped, unrepaired := rep.Count(cleaning.OpImpute), rep.Count(cleaning.OpDropRow), rep.Count(cleaning.OpUnrepaired)
		fmt.Fprintf(out, "✓ Run %s: repaired %d cell(s), dropped %d row(s)\n", runID, imputed, dropped)
		if unrepaired > 0 {
			fmt.Fprintf(out, "⚠ %d sentinel(s) left in place: their group has no other values\n", unrepaired)
		}
		if targets := ruleTargets(plan); len(targets) > 0 {
			rows, err := stats.Describe(cleaned, targets)
			if err != nil {
				return err
			}
			fmt.Fprintln(out)
			fmt.Fprint(out, stats.Markdown(rows, cfg.Precision))
		}
		if clDryRun {
			return nil
		}

		dest := clOutput
		if dest == "" {
			dest = defaultCleanPath(path)
		}
		if err := export.WriteFile(dest, cleaned, 0); err != nil {
			return fmt.Errorf("write cleaned table: %w", err)
		}
		fmt.Fprintf(out, "✓ Wrote %s\n", dest)

		if clReport != "" {
			b, err := export.PrettyJSON(struct {
				RunID   string          `json:"run_id"`
				Dataset string          `json:"dataset"`
				Report  cleaning.Report `json:"report"`
			}{runID, t.Name, rep})
			if err != nil {
				return err
			}
			if err := export.SafeWriteFile(clReport, b); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
			fmt.Fprintf(out, "✓ Wrote report %s\n", clReport)
		}

		dbPath := cfg.AuditDB
		if clAuditDB != "" {
			dbPath = clAuditDB
		}
		if dbPath != "" {
			store, err := audit.Open(cmd.Context(), dbPath, logger)
			if err != nil {
				return err
			}
			defer store.Close()
			if err := store.Record(cmd.Context(), runID, t.Name, rep.Operations); err != nil {
				return err
			}
			fmt.Fprintf(out, "✓ Recorded %d operation(s) in %s\n", len(rep.Operations), dbPath)
		}
		return nil
	},
}

// cleanPlan builds the plan from flags, falling back to the configured pipeline.
func cleanPlan(cmd *cobra.Command) (cleaning.Plan, error) {
	plan, err := cfg.Plan()
	if err != nil {
		return plan, err
	}
	if cmd.Flags().Changed("policy") {
		if plan.Policy, err = cleaning.ParsePolicy(clPolicy); err != nil {
			return plan, err
		}
	}
	if len(clDrop) > 0 {
		plan.Drops = nil
		for _, d := range clDrop {
			drop, err := parseDrop(d)
			if err != nil {
				return plan, err
			}
			plan.Drops = append(plan.Drops, drop)
		}
	}
	if clTarget != "" || clGroupCol != "" {
		if clTarget == "" || clGroupCol == "" || !cmd.Flags().Changed("group-value") {
			return plan, fmt.Errorf("--target, --group-col and --group-value must be given together")
		}
		plan.Rules = []cleaning.Rule{{
			Target:   clTarget,
			Group:    cleaning.Predicate{Column: clGroupCol, Equals: clGroupValue},
			Sentinel: clSentinel,
		}}
	}
	return plan, nil
}

// parseDrop accepts "Column" (sentinel 0) or "Column=value".
func parseDrop(s string) (cleaning.Drop, error) {
	name, val, ok := strings.Cut(s, "=")
	d := cleaning.Drop{Column: strings.TrimSpace(name)}
	if d.Column == "" {
		return d, fmt.Errorf("invalid --drop %q", s)
	}
	if ok {
		var err error
		if d.Sentinel, err = strconv.ParseFloat(strings.TrimSpace(val), 64); err != nil {
			return d, fmt.Errorf("invalid --drop sentinel %q: %w", val, err)
		}
	}
	return d, nil
}

func ruleTargets(p cleaning.Plan) []string {
	var out []string
	seen := map[string]bool{}
	for _, r := range p.Rules {
		if !seen[r.Target] {
			seen[r.Target] = true
			out = append(out, r.Target)
		}
	}
	return out
}

func defaultCleanPath(path string) string {
	ext := filepath.Ext(path)
	if strings.EqualFold(ext, ".xlsx") {
		ext = ".csv"
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ".clean" + ext
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	clLoad.register(cleanCmd)
	cleanCmd.Flags().StringVar(&clTarget, "target", "", "numeric column whose sentinels are repaired")
	cleanCmd.Flags().StringVar(&clGroupCol, "group-col", "", "column defining the two row groups")
	cleanCmd.Flags().StringVar(&clGroupValue, "group-value", "", "rows where group-col equals this value form the first group")
	cleanCmd.Flags().Float64Var(&clSentinel, "sentinel", 0, "value treated as missing in the target column")
	cleanCmd.Flags().StringSliceVar(&clDrop, "drop", nil, "drop rows where Column equals a sentinel: Column or Column=value (repeatable)")
	cleanCmd.Flags().StringVar(&clPolicy, "policy", "keep", "when a group has no usable values: keep (leave sentinels) | fail")
	cleanCmd.Flags().StringVarP(&clOutput, "output", "o", "", "cleaned file path; .parquet writes Parquet (default: <file>.clean<ext>)")
	cleanCmd.Flags().StringVar(&clReport, "report", "", "write the operation report as JSON to this path")
	cleanCmd.Flags().StringVar(&clAuditDB, "audit-db", "", "SQLite database recording every operation (overrides config)")
	cleanCmd.Flags().BoolVar(&clDryRun, "dry-run", false, "print the summary without writing any file")
}
