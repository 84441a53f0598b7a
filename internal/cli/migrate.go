package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/solarerp/internal/schema"
)

func (a *app) newMigrateCmd() *cobra.Command {
	var status bool

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			if _, err := a.connect(ctx); err != nil {
				return err
			}

			if status {
				return a.migrationStatus(cmd)
			}

			applied, err := schema.Migrate(ctx, a.pool)
			if err != nil {
				return err
			}
			if len(applied) == 0 {
				fmt.Fprintln(a.out, Good("schema is up to date"))
				return nil
			}
			for _, name := range applied {
				fmt.Fprintln(a.out, Good("applied %s", name))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&status, "status", false, "List applied and pending migrations without applying")
	return cmd
}

func (a *app) migrationStatus(cmd *cobra.Command) error {
	all, err := schema.Migrations()
	if err != nil {
		return err
	}
	applied, err := schema.Applied(cmd.Context(), a.pool)
	if err != nil {
		return err
	}
	done := make(map[string]bool, len(applied))
	for _, name := range applied {
		done[name] = true
	}

	rows := make([][]string, 0, len(all))
	for _, m := range all {
		state := "pending"
		if done[m.Filename] {
			state = "applied"
		}
		rows = append(rows, []string{m.Version, m.Filename, state})
	}
	fmt.Fprint(a.out, RenderTable(Table{
		Title:   "Migrations",
		Headers: []string{"Version", "File", "State"},
		Rows:    rows,
		Right:   []bool{false, false, false},
	}))
	return nil
}
