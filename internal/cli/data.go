package cli

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/solarerp/internal/core"
	"github.com/JonMunkholm/solarerp/internal/report"
)

// maxFailedRows caps the failed rows printed after an import.
const maxFailedRows = 20

func (a *app) newExportCmd() *cobra.Command {
	var format, out, search, from, to string

	cmd := &cobra.Command{
		Use:   "export <resource>",
		Short: "Export a resource as csv, xlsx, pdf or html",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := core.Resolve(args[0])
			if err != nil {
				return err
			}
			if out == "" {
				out = "-"
			}
			rf, err := formatFor(format, out)
			if err != nil {
				return err
			}
			if out == "-" && (rf == report.FormatPDF || rf == report.FormatXLSX) {
				return fmt.Errorf("%s output is binary; use --out <file>", rf)
			}

			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			rows, err := svc.All(cmd.Context(), def.Info.Key, core.ListQuery{Search: search, From: from, To: to})
			if err != nil {
				return err
			}
			a.progress("exporting %s from %s", plural(len(rows), "row"), def.Info.Key)

			if err := a.writeReportFile(cmd, out, rf, report.FromRows(def, rows)); err != nil {
				return err
			}
			if out != "-" {
				fmt.Fprintln(a.out, Good("wrote %s (%s)", out, plural(len(rows), "row")))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&format, "format", "", "Output format (pdf, xlsx, csv, html); default from --out extension, else csv")
	flags.StringVarP(&out, "out", "o", "", "Output file (default stdout)")
	flags.StringVar(&search, "search", "", "Only rows matching this text")
	flags.StringVar(&from, "from", "", "Only rows on or after this date")
	flags.StringVar(&to, "to", "", "Only rows on or before this date")
	return cmd
}

func (a *app) newImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <resource> <file.csv>",
		Short: "Import CSV rows into a resource",
		Long:  "Import a CSV whose header row names fields by name or label. Use - to read stdin.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			def, err := core.Resolve(args[0])
			if err != nil {
				return err
			}

			var r io.Reader = os.Stdin
			if args[1] != "-" {
				f, err := os.Open(args[1])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}

			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.Import(cmd.Context(), def.Info.Key, r)
			if err != nil {
				return err
			}
			a.printImportResult(result)
			return nil
		},
	}
}

func (a *app) printImportResult(result *core.ImportResult) {
	fmt.Fprintln(a.out, Good("%s: inserted %d of %s in %s",
		result.Resource, result.Inserted, plural(result.TotalRows, "row"), result.Duration.Round(time.Millisecond)))

	if len(result.Failed) == 0 {
		return
	}
	rows := make([][]string, 0, min(len(result.Failed), maxFailedRows))
	for i, f := range result.Failed {
		if i == maxFailedRows {
			break
		}
		rows = append(rows, []string{strconv.Itoa(f.Line), f.Reason})
	}
	fmt.Fprint(a.out, RenderTable(Table{
		Title:   fmt.Sprintf("Failed rows (%d)", len(result.Failed)),
		Headers: []string{"Line", "Reason"},
		Rows:    rows,
		Right:   []bool{true, false},
	}))
	if len(result.Failed) > maxFailedRows {
		fmt.Fprintln(a.out, Muted("  ... and %d more", len(result.Failed)-maxFailedRows))
	}
}

func (a *app) newResourcesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "resources",
		Short: "List registered resources and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, group := range core.Groups() {
				defs := core.ByGroup(group)
				rows := make([][]string, 0, len(defs))
				for _, def := range defs {
					names := make([]string, 0, len(def.FieldSpecs))
					for _, spec := range def.VisibleFields() {
						names = append(names, spec.Name)
					}
					rows = append(rows, []string{def.Info.Path, def.Info.Key, strings.Join(names, ", ")})
				}
				fmt.Fprint(a.out, RenderTable(Table{
					Title:   group,
					Headers: []string{"Path", "Table", "Fields"},
					Rows:    rows,
					Right:   []bool{false, false, false},
				}))
			}
			return nil
		},
	}
}

func (a *app) newResetCmd() *cobra.Command {
	var all, yes bool

	cmd := &cobra.Command{
		Use:   "reset [resource...]",
		Short: "Delete every row of the given resources (or --all)",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return fmt.Errorf("name at least one resource or pass --all")
			}
			if len(args) > 0 && all {
				return fmt.Errorf("--all cannot be combined with resource names")
			}
			for _, name := range args {
				if _, err := core.Resolve(name); err != nil {
					return err
				}
			}
			if !yes {
				return fmt.Errorf("reset is destructive; re-run with --yes to confirm")
			}

			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			result, err := svc.Reset(cmd.Context(), args)
			if err != nil {
				return err
			}

			rows := make([][]string, 0, len(result.Tables))
			for _, def := range core.All() {
				if n, ok := result.Tables[def.Info.Key]; ok {
					rows = append(rows, []string{def.Info.Key, strconv.FormatInt(n, 10)})
				}
			}
			fmt.Fprint(a.out, RenderTable(Table{
				Title:   "Reset",
				Headers: []string{"Table", "Rows deleted"},
				Rows:    rows,
			}))
			if result.Carts {
				fmt.Fprintln(a.out, Muted("  carts cleared"))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Reset every resource and all carts")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Confirm the reset")
	return cmd
}
