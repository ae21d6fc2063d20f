package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geosheet/internal/config"
)

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   "geosheet",
	Short: "Batch reverse-geocoding for coordinate spreadsheets",
	Long:  "Reads a spreadsheet of latitude/longitude pairs, resolves each row to an Indonesian street address via Nominatim with a Photon fallback, scores results against expected kelurahan/kecamatan columns, and writes an annotated copy.",
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
