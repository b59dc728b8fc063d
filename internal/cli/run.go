package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vk/gridsim/internal/app"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.hcl>",
		Short: "Run a simulation scenario",
		Long: `Run the built-in demo circuit under a scenario file.

The scenario defines the stepping parameters and any external interfaces
to attach, for example:

  simulation {
    name      = "rc-divider"
    time_step = 1e-4
    duration  = 0.1
  }

  interface "hil" {
    url          = "wss://rig.local:4000/socket.io"
    downsampling = 10
  }`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := app.NewApp(cmd.OutOrStdout(), &app.Config{
				ScenarioPath: args[0],
				LogLevel:     opts.LogLevel,
				LogFormat:    opts.LogFormat,
			})
			if err != nil {
				return err
			}
			return a.Run(ctx)
		},
	}
	return cmd
}
