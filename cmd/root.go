package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/roofclaim/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "roofclaim",
	Short: "Compare roof measurement reports against insurance estimates",
	Long:  "Extracts aerial roof reports and insurance claim estimates from PDF, lets a reviewer correct them, and reports where the estimate disagrees with the measured roof.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load()
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return fmt.Errorf("init logger: %w", err)
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
