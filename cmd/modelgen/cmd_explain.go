package main

import (
	"fmt"
	"modelgen/internal/diag"
	"modelgen/internal/report"

	"github.com/spf13/cobra"
)

func newExplainCmd(o *options) *cobra.Command {
	var style string
	cmd := &cobra.Command{
		Use:   "explain [code]",
		Short: "Explain a diagnostic code",
		Long: `Prints the explanation of a diagnostic code, such as raw-container or
invalid-default. Without a code it lists the known codes.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				for _, c := range diag.Codes() {
					fmt.Fprintln(o.stdout, c)
				}
				return nil
			}
			return report.NewPrinter(o.stdout).Explain(args[0], style)
		},
	}
	cmd.Flags().StringVar(&style, "style", "", "Glamour style (dark, light, notty, ...; default: detect)")
	return cmd
}
