package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/fatih/color"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/roofclaim/internal/compare"
	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/report"
	"github.com/sells-group/roofclaim/internal/resolve"
	"github.com/sells-group/roofclaim/internal/schema"
)

var compareCmd = &cobra.Command{
	Use:   "compare",
	Short: "Compare an extracted roof report against an insurance estimate",
	Long:  "Reads two report JSON files (roof and insurance), runs every checkpoint per structure, and writes the report to stdout or --out. A coloured summary goes to stderr.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := cfg.Validate("compare"); err != nil {
			return err
		}
		roofPath, _ := cmd.Flags().GetString("roof")
		insPath, _ := cmd.Flags().GetString("insurance")
		formatName, _ := cmd.Flags().GetString("format")
		outPath, _ := cmd.Flags().GetString("out")

		format, err := report.ParseFormat(formatName)
		if err != nil {
			return err
		}

		res, err := compareFiles(cmd.Context(), roofPath, insPath)
		if err != nil {
			return err
		}

		body, err := report.Render(format, *res, report.Meta{})
		if err != nil {
			return err
		}

		var out io.Writer = cmd.OutOrStdout()
		if outPath != "" {
			f, err := os.Create(outPath)
			if err != nil {
				return eris.Wrapf(err, "create %s", outPath)
			}
			defer f.Close() //nolint:errcheck
			out = f
		}
		if _, err := out.Write(body); err != nil {
			return eris.Wrap(err, "write report")
		}

		printSummary(cmd.ErrOrStderr(), res)
		return nil
	},
}

// compareFiles parses both reports and compares them with the configured
// keyword table.
func compareFiles(ctx context.Context, roofPath, insPath string) (*model.ComparisonResult, error) {
	roofRaw, err := os.ReadFile(roofPath)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", roofPath)
	}
	insRaw, err := os.ReadFile(insPath)
	if err != nil {
		return nil, eris.Wrapf(err, "read %s", insPath)
	}

	roof, err := schema.ParseRoof(roofRaw)
	if err != nil {
		return nil, eris.Wrapf(err, "roof report %s", roofPath)
	}
	ins, err := schema.ParseInsurance(insRaw)
	if err != nil {
		return nil, eris.Wrapf(err, "insurance report %s", insPath)
	}

	opts := compare.Options{
		Concurrency: cfg.Compare.Concurrency,
		Legacy:      cfg.Compare.LegacySingle,
	}
	if cfg.Compare.KeywordTable != "" {
		if opts.Table, err = resolve.LoadTable(cfg.Compare.KeywordTable); err != nil {
			return nil, err
		}
	}
	return compare.Compare(ctx, roof, ins, opts)
}

// printSummary writes a one-line coloured summary per structure.
func printSummary(w io.Writer, res *model.ComparisonResult) {
	pass := color.New(color.FgGreen, color.Bold)
	failed := color.New(color.FgRed, color.Bold)
	missing := color.New(color.FgYellow, color.Bold)

	line := func(label string, s model.Summary) {
		_, _ = fmt.Fprintf(w, "%-14s %3d checkpoints  ", label, s.Total)
		_, _ = pass.Fprintf(w, "%3d pass  ", s.Pass)
		_, _ = failed.Fprintf(w, "%3d failed  ", s.Failed)
		_, _ = missing.Fprintf(w, "%3d missing\n", s.Missing)
	}

	structures := res.StructureResults()
	if len(structures) > 1 {
		for _, sc := range structures {
			line(fmt.Sprintf("Structure %d", sc.StructureNumber), sc.Summary)
		}
	}
	line("Overall", res.Summary)
}

func init() {
	compareCmd.Flags().String("roof", "", "roof report JSON file")
	compareCmd.Flags().String("insurance", "", "insurance estimate JSON file")
	compareCmd.Flags().String("format", "md", "output format (md, html, xlsx, json)")
	compareCmd.Flags().String("out", "", "write the report to this file instead of stdout")
	_ = compareCmd.MarkFlagRequired("roof")
	_ = compareCmd.MarkFlagRequired("insurance")
	rootCmd.AddCommand(compareCmd)
}
