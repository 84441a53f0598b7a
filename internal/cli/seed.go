package cli

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/spf13/cobra"

	"github.com/JonMunkholm/solarerp/internal/core"
)

//go:embed seed.toml
var defaultSeed []byte

// seedOrder is the insertion order; stock receipts need their inventory
// items first.
var seedOrder = []string{
	"inventory",
	"supply-products",
	"supply-requests",
	"users",
	"employees",
	"payments",
	"salaries",
	"taxes",
	"expenses",
	"feedback",
}

// SeedData maps resource paths to the rows to insert.
type SeedData map[string][]map[string]any

// SeedResult counts what happened to one resource's rows.
type SeedResult struct {
	Resource string
	Inserted int
	Skipped  int
}

// ParseSeed decodes a TOML dataset and rejects unknown resources.
func ParseSeed(data []byte) (SeedData, error) {
	var seed SeedData
	md, err := toml.Decode(string(data), &seed)
	if err != nil {
		return nil, fmt.Errorf("parse seed: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("parse seed: unexpected key %s", undecoded[0])
	}
	for name := range seed {
		if _, err := core.Resolve(name); err != nil {
			return nil, fmt.Errorf("seed section [[%s]]: %w", name, err)
		}
	}
	return seed, nil
}

// orderedResources lists the seed's resources in seedOrder, then any others.
func (s SeedData) orderedResources() []string {
	out := make([]string, 0, len(s))
	seen := make(map[string]bool, len(s))
	for _, name := range seedOrder {
		if _, ok := s[name]; ok {
			out = append(out, name)
			seen[name] = true
		}
	}
	for _, def := range core.All() {
		for _, name := range []string{def.Info.Path, def.Info.Key} {
			if _, ok := s[name]; ok && !seen[name] {
				out = append(out, name)
				seen[name] = true
			}
		}
	}
	return out
}

// Seed inserts the dataset. Rows hitting a unique key are skipped, so running
// it twice is harmless; resources without a unique key are only seeded when
// empty.
func Seed(ctx context.Context, svc *core.Service, seed SeedData) ([]SeedResult, error) {
	var results []SeedResult
	for _, name := range seed.orderedResources() {
		def, err := core.Resolve(name)
		if err != nil {
			return results, err
		}
		rows := seed[name]
		res := SeedResult{Resource: def.Info.Key}

		if len(def.Info.UniqueKey) == 0 {
			n, err := svc.Count(ctx, def.Info.Key)
			if err != nil {
				return results, err
			}
			if n > 0 {
				res.Skipped = len(rows)
				results = append(results, res)
				continue
			}
		}

		for i, row := range rows {
			_, err := svc.Create(ctx, def.Info.Key, row)
			switch {
			case err == nil:
				res.Inserted++
			case errors.Is(err, core.ErrConflict):
				res.Skipped++
			default:
				return results, fmt.Errorf("seed %s row %d: %w", def.Info.Key, i+1, err)
			}
		}
		results = append(results, res)
	}
	return results, nil
}

func (a *app) newSeedCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load the demo dataset (or --file) into the database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data := defaultSeed
			if file != "" {
				b, err := os.ReadFile(file)
				if err != nil {
					return err
				}
				data = b
			}
			seed, err := ParseSeed(data)
			if err != nil {
				return err
			}

			svc, err := a.connect(cmd.Context())
			if err != nil {
				return err
			}
			a.progress("seeding %d resources...", len(seed))

			results, err := Seed(cmd.Context(), svc, seed)
			a.printSeedResults(results)
			return err
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "TOML dataset to load instead of the built-in demo data")
	return cmd
}

func (a *app) printSeedResults(results []SeedResult) {
	if len(results) == 0 {
		return
	}
	rows := make([][]string, 0, len(results)+2)
	var inserted, skipped int
	for _, r := range results {
		rows = append(rows, []string{r.Resource, strconv.Itoa(r.Inserted), strconv.Itoa(r.Skipped)})
		inserted += r.Inserted
		skipped += r.Skipped
	}
	rows = append(rows, Separator, []string{"TOTAL", strconv.Itoa(inserted), strconv.Itoa(skipped)})

	fmt.Fprint(a.out, RenderTable(Table{
		Title:   "Seed",
		Headers: []string{"Resource", "Inserted", "Skipped"},
		Rows:    rows,
	}))
}
