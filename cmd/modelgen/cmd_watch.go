package main

import (
	"context"
	"modelgen/internal/logging"
	"modelgen/internal/watch"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

func newWatchCmd(o *options) *cobra.Command {
	return &cobra.Command{
		Use:   "watch [dir]",
		Short: "Regenerate whenever a template under dir changes",
		Args:  maxOneDir,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			p, err := newPipeline(o, dirArg(args))
			if err != nil {
				return err
			}
			regenerate := func(ctx context.Context) error {
				rep, err := p.generate(ctx)
				if err != nil {
					return err
				}
				return rep.Err()
			}
			if err := regenerate(ctx); err != nil {
				logging.Get(logging.CategoryWatch).Warn("initial generation: %v", err)
			}

			w, err := watch.New(p.dir, watch.Options{
				Debounce: o.cfg.GetDebounce(),
				Includes: o.cfg.Templates.Include,
				Excludes: o.cfg.TemplateExcludes(),
			}, regenerate)
			if err != nil {
				return err
			}
			return w.Run(ctx)
		},
	}
}
