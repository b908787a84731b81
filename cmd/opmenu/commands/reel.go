package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func reelCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reel",
		Short: "Convert between reel stops and motor steps",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "to-steps <stop>",
			Short: "Print the step position of a stop",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				stop, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("stop %q: %w", args[0], err)
				}
				steps, err := cfg.Hardware.Reel.Geometry().StopToSteps(stop)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), steps)
				return nil
			},
		},
		&cobra.Command{
			Use:   "to-stop <steps>",
			Short: "Print the stop nearest a step position",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				steps, err := strconv.Atoi(args[0])
				if err != nil {
					return fmt.Errorf("steps %q: %w", args[0], err)
				}
				fmt.Fprintln(cmd.OutOrStdout(), cfg.Hardware.Reel.Geometry().StepsToStop(steps))
				return nil
			},
		},
	)
	return cmd
}
