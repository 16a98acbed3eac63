package main

import (
	"modelgen/internal/diag"

	"github.com/spf13/cobra"
)

func newCheckCmd(o *options) *cobra.Command {
	var diff bool
	cmd := &cobra.Command{
		Use:   "check [dir]",
		Short: "Validate and render templates without writing anything",
		Long: `Runs the whole pipeline in memory and reports every template error.
With --diff it also lists the generated files whose content on disk differs
from what generate would write, and fails when there are any.`,
		Args: maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(o, dirArg(args))
			if err != nil {
				return err
			}
			rep, err := p.run(cmd.Context())
			if err != nil {
				return err
			}
			p.printer.Diagnostics(rep)
			stale := false
			if diff {
				changes, err := p.writer.Diff(rep)
				if err != nil {
					return err
				}
				p.printer.Changes(changes)
				stale = len(changes) > 0
			}
			p.printer.Summary(rep, nil)
			if err := statusFor(rep.Err()); err != nil {
				return err
			}
			if stale {
				return &exitError{code: diag.ExitModel}
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&diff, "diff", false, "List generated files that are out of date")
	return cmd
}
