package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/model"
	"github.com/sells-group/roofclaim/internal/schema"
)

var extractCmd = &cobra.Command{
	Use:   "extract <pdf>",
	Short: "Extract a roof report or insurance estimate from a PDF",
	Long:  "Runs OCR and the extraction model on a single PDF and prints the normalized report JSON, ready for compare.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if err := cfg.Validate("extract"); err != nil {
			return err
		}
		kindName, _ := cmd.Flags().GetString("kind")
		structures, _ := cmd.Flags().GetInt("structures")

		kind, err := model.ParseDocumentKind(kindName)
		if err != nil {
			return err
		}

		extractor, orc, err := initOracle()
		if err != nil {
			return err
		}

		pages, err := extractor.ExtractPages(ctx, args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		zap.L().Info("pages extracted", zap.String("file", args[0]), zap.Int("pages", len(pages)))

		raw, err := orc.Extract(ctx, kind, pages, structures)
		if err != nil {
			return err
		}

		var report any
		switch kind {
		case model.DocumentRoof:
			report, err = schema.ParseRoof(raw)
		default:
			report, err = schema.ParseInsurance(raw)
		}
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	},
}

func init() {
	extractCmd.Flags().String("kind", "roof", "document kind (roof, insurance)")
	extractCmd.Flags().Int("structures", 0, "expected number of roof structures (0 lets the model decide)")
	rootCmd.AddCommand(extractCmd)
}
