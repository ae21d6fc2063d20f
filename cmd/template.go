package main

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/geosheet/internal/sheet"
)

var templateOutput string

var templateCmd = &cobra.Command{
	Use:   "template",
	Short: "Write a starter spreadsheet with the expected columns",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := sheet.WriteTemplateFile(templateOutput); err != nil {
			return err
		}
		zap.L().Info("template written", zap.String("path", templateOutput))
		return nil
	},
}

func init() {
	templateCmd.Flags().StringVarP(&templateOutput, "output", "o", "template.xlsx", "template file path")
	rootCmd.AddCommand(templateCmd)
}
