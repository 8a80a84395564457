package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/KaramelBytes/tabstat-cli/internal/audit"
	"github.com/KaramelBytes/tabstat-cli/internal/export"
)

var (
	auDB     string
	auRun    string
	auFormat string
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Inspect recorded cleaning operations",
}

var auditListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recorded cleaning operations (optionally for one run)",
	RunE: func(cmd *cobra.Command, args []string) error {
		dbPath := cfg.AuditDB
		if auDB != "" {
			dbPath = auDB
		}
		if dbPath == "" {
			return fmt.Errorf("no audit database: pass --audit-db or set audit_db")
		}
		store, err := audit.Open(cmd.Context(), dbPath, logger)
		if err != nil {
			return err
		}
		defer store.Close()

		entries, err := store.List(cmd.Context(), auRun)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if strings.EqualFold(auFormat, "json") {
			b, err := export.PrettyJSON(entries)
			if err != nil {
				return err
			}
			fmt.Fprintln(out, string(b))
			return nil
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, "No operations recorded")
			return nil
		}
		for _, e := range entries {
			fmt.Fprintf(out, "%s  %s  %-13s %s[%d] %s -> %s  %s\n",
				e.CleanedAt.Format("2006-01-02 15:04:05"), shortID(e.RunID), e.Operation,
				e.Column, e.Row, deref(e.OriginalValue), deref(e.NewValue), e.Group)
		}
		return nil
	},
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func deref(s *string) string {
	if s == nil {
		return "-"
	}
	return *s
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.AddCommand(auditListCmd)
	auditListCmd.Flags().StringVar(&auDB, "audit-db", "", "SQLite audit database (overrides config)")
	auditListCmd.Flags().StringVar(&auRun, "run", "", "only list operations of this run ID")
	auditListCmd.Flags().StringVar(&auFormat, "format", "text", "output format: text | json")
}
