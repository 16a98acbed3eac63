// Command modelgen generates immutable Go model types from annotated
// templates.
package main

import (
	"errors"
	"fmt"
	"io"
	"modelgen/internal/config"
	"modelgen/internal/diag"
	"modelgen/internal/logging"
	"os"

	"github.com/spf13/cobra"
)

// options holds the global flags and what PersistentPreRunE derives from
// them.
type options struct {
	configPath string
	verbose    bool
	module     string
	workers    int

	cfg    *config.Config
	stdout io.Writer
	stderr io.Writer
}

// exitError carries a process status out of a command that already
// reported its failure.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// statusFor maps a pass error to the error a command returns.
func statusFor(err error) error {
	if code := diag.ExitCode(err); code != diag.ExitOK {
		return &exitError{code: code}
	}
	return nil
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "modelgen",
		Short: "Generate immutable Go model types from annotated templates",
		Long: `modelgen reads model templates, struct types marked with //modelgen:model
in files built only with the modelgen tag, and writes for each one an
immutable type with a builder, default initialization and a serializer into
the generated package next to the template package.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(o.configPath)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("module") {
				cfg.Module = o.module
			}
			if cmd.Flags().Changed("workers") {
				cfg.Generation.Workers = o.workers
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			o.cfg = cfg

			logger, err := logging.Build(cfg.Logging.LoggerConfig(o.verbose))
			if err != nil {
				return err
			}
			logging.Initialize(logger, cfg.Logging.Categories)
			logging.BootDebug("config loaded from %s", o.configPath)
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Sync()
		},
	}
	root.SetOut(o.stdout)
	root.SetErr(o.stderr)

	root.PersistentFlags().StringVarP(&o.configPath, "config", "c", config.FileName, "Configuration file")
	root.PersistentFlags().BoolVarP(&o.verbose, "verbose", "v", false, "Enable verbose logging")
	root.PersistentFlags().StringVar(&o.module, "module", "", "Consuming module path (default: from go.mod)")
	root.PersistentFlags().IntVar(&o.workers, "workers", 0, "Declarations generated at once (0: unbounded)")

	root.AddCommand(newGenerateCmd(o))
	root.AddCommand(newCheckCmd(o))
	root.AddCommand(newWatchCmd(o))
	root.AddCommand(newExplainCmd(o))
	root.AddCommand(newVersionCmd(o))
	return root
}

// run executes the CLI and returns the process exit status.
func run(args []string, stdout, stderr io.Writer) int {
	o := &options{stdout: stdout, stderr: stderr}
	root := newRootCmd(o)
	root.SetArgs(args)

	err := root.Execute()
	var ee *exitError
	switch {
	case err == nil:
		return diag.ExitOK
	case errors.As(err, &ee):
		return ee.code
	case diag.IsDefect(err):
		fmt.Fprintln(stderr, "Error:", err)
		return diag.ExitInternal
	}
	fmt.Fprintln(stderr, "Error:", err)
	return diag.ExitModel
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}
