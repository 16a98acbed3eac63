package main

import (
	"github.com/spf13/cobra"
)

func newGenerateCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "generate [dir]",
		Short: "Generate model types for every template under dir",
		Long: `Discovers the templates under dir (default: the current directory),
generates each one and writes the results. Templates that fail are reported
and leave their previous output in place; the others are still written.

Exit status is 1 when any template failed and 2 on a generator defect.`,
		Args: maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := newPipeline(o, dirArg(args))
			if err != nil {
				return err
			}
			rep, err := p.generate(cmd.Context())
			if err != nil {
				return err
			}
			return statusFor(rep.Err())
		},
	}
}
