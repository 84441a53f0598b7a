package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/solarerp/internal/core"
)

func (a *app) newAuditCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "audit",
		Short: "Inspect and maintain the audit log",
	}
	cmd.AddCommand(a.newAuditArchiveCmd(), a.newAuditListCmd())
	return cmd
}

func (a *app) newAuditArchiveCmd() *cobra.Command {
	var days, years int

	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Move old audit entries to the archive and purge expired ones",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			cfg := core.ArchiveConfig{
				HotRetentionDays:      a.cfg.Archive.HotRetentionDays,
				ArchiveRetentionYears: a.cfg.Archive.ArchiveRetentionYears,
				BatchSize:             a.cfg.Archive.BatchSize,
			}
			if cmd.Flags().Changed("days") {
				cfg.HotRetentionDays = days
			}
			if cmd.Flags().Changed("years") {
				cfg.ArchiveRetentionYears = years
			}

			res, err := svc.ArchiveAuditLog(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			fmt.Fprintln(a.out, Good("archived %s, purged %s",
				plural(int(res.Archived), "entry"), plural(int(res.Purged), "archived entry")))
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "Keep this many days in the live log (default from config)")
	cmd.Flags().IntVar(&years, "years", 0, "Keep archived entries this many years (default from config)")
	return cmd
}

func (a *app) newAuditListCmd() *cobra.Command {
	var filter core.AuditFilter
	var action string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show recent audit entries",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			filter.Action = core.AuditAction(action)
			if filter.Resource != "" {
				def, err := core.Resolve(filter.Resource)
				if err != nil {
					return err
				}
				filter.Resource = def.Info.Key
			}

			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			page, err := svc.ListAudit(cmd.Context(), filter)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(page.Entries))
			for _, e := range page.Entries {
				rows = append(rows, []string{
					e.CreatedAt.Local().Format("2006-01-02 15:04"),
					string(e.Action),
					string(e.Severity),
					e.Resource,
					e.RecordID,
					strings.Join(e.ChangedFields, ","),
				})
			}
			fmt.Fprint(a.out, RenderTable(Table{
				Title:   "Audit log (page " + strconv.Itoa(page.Page) + " of " + strconv.Itoa(page.TotalPages) + ")",
				Headers: []string{"When", "Action", "Severity", "Resource", "Record", "Changed"},
				Rows:    rows,
				Right:   []bool{false, false, false, false, false, false},
			}))
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&filter.Resource, "resource", "", "Only entries for this resource")
	flags.StringVar(&action, "action", "", "Only this action (create, update, delete, import, checkout, reset)")
	flags.StringVar(&filter.From, "from", "", "Entries on or after this date")
	flags.StringVar(&filter.To, "to", "", "Entries on or before this date")
	flags.IntVar(&filter.Page, "page", 1, "Page number")
	flags.IntVar(&filter.PageSize, "limit", 25, "Entries per page")
	return cmd
}
