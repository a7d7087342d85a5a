// Package cli defines the command tree: plan, apply, and destroy, sharing
// one set of flags. Usage errors exit with code 2; runtime failures with 1.
package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/vk/microform/internal/app"
	"github.com/vk/microform/internal/executor"
)

// ExitError is a custom error type that includes a specific exit code.
type ExitError struct {
	Code    int
	Message string
}

// Error implements the error interface for ExitError.
func (e *ExitError) Error() string {
	return e.Message
}

// options holds the flag values shared by every subcommand.
type options struct {
	statePath string
	varFlags  []string
	workers   int
	logLevel  string
	logFormat string
}

// NewRootCommand builds the command tree. outW receives plan and apply
// output, errW receives logs.
func NewRootCommand(outW, errW io.Writer, fs afero.Fs) *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "microform",
		Short:         "A minimal declarative infrastructure provisioner",
		Long:          "microform reads .hcl resource declarations, plans the difference against recorded state, and applies it through a dependency-ordered executor.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(outW)
	root.SetErr(errW)

	pf := root.PersistentFlags()
	pf.StringVar(&opts.statePath, "state", app.DefaultStatePath, "Path to the state file.")
	pf.StringArrayVar(&opts.varFlags, "var", nil, "Set a variable, name=value. Repeatable.")
	pf.IntVar(&opts.workers, "workers", executor.DefaultWorkers, "Number of concurrent workers.")
	pf.StringVar(&opts.logLevel, "log-level", "info", "Logging level: debug, info, warn, or error.")
	pf.StringVar(&opts.logFormat, "log-format", "text", "Log output format: text or json.")

	root.AddCommand(
		newPlanCommand(outW, errW, fs, opts),
		newApplyCommand(outW, errW, fs, opts),
		newDestroyCommand(outW, errW, fs, opts),
	)
	return root
}

func newPlanCommand(outW, errW io.Writer, fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "plan [CONFIG_PATH]",
		Short: "Show what apply would change, without touching anything",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(outW, errW, fs, opts, args)
			if err != nil {
				return err
			}
			return a.Plan(cmd.Context())
		},
	}
}

func newApplyCommand(outW, errW io.Writer, fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "apply [CONFIG_PATH]",
		Short: "Create, update, or replace resources to match the configuration",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(outW, errW, fs, opts, args)
			if err != nil {
				return err
			}
			return a.Apply(cmd.Context())
		},
	}
}

func newDestroyCommand(outW, errW io.Writer, fs afero.Fs, opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "destroy",
		Short: "Delete every resource recorded in state, dependents first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(outW, errW, fs, opts, nil)
			if err != nil {
				return err
			}
			return a.Destroy(cmd.Context())
		},
	}
}

func newApp(outW, errW io.Writer, fs afero.Fs, opts *options, args []string) (*app.App, error) {
	vars, err := parseVars(opts.varFlags)
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}

	configPath := "."
	if len(args) > 0 {
		configPath = args[0]
	}

	config, err := app.NewConfig(app.Config{
		ConfigPath: configPath,
		StatePath:  opts.statePath,
		Vars:       vars,
		Workers:    opts.workers,
		LogLevel:   opts.logLevel,
		LogFormat:  opts.logFormat,
	})
	if err != nil {
		return nil, &ExitError{Code: 2, Message: err.Error()}
	}
	return app.NewApp(outW, errW, fs, config), nil
}

// parseVars turns repeated --var name=value flags into a map.
func parseVars(flags []string) (map[string]string, error) {
	if len(flags) == 0 {
		return nil, nil
	}
	vars := make(map[string]string, len(flags))
	for _, flag := range flags {
		parts := strings.SplitN(flag, "=", 2)
		if len(parts) != 2 || parts[0] == "" {
			return nil, fmt.Errorf("invalid --var %q: expected name=value", flag)
		}
		vars[parts[0]] = parts[1]
	}
	return vars, nil
}
