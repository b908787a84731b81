package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"opmenu/internal/properties"
)

func propsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "props",
		Short: "Read and write persisted properties",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print a property as JSON",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := openProperties(nil)
				if err != nil {
					return err
				}
				defer m.Close()
				if !m.Has(args[0]) {
					return fmt.Errorf("property %s is not set", args[0])
				}
				out, err := json.Marshal(m.GetValue(args[0], nil))
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), string(out))
				return nil
			},
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Store a property; the value is parsed as a yaml scalar or list",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				var value any
				if err := yaml.Unmarshal([]byte(args[1]), &value); err != nil {
					return fmt.Errorf("parse value: %w", err)
				}
				if value == nil {
					value = args[1]
				}
				m, err := openProperties(nil)
				if err != nil {
					return err
				}
				defer m.Close()
				return m.Set(args[0], value)
			},
		},
		&cobra.Command{
			Use:   "keys",
			Short: "List the well-known property keys",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, args []string) {
				for _, k := range properties.Keys() {
					fmt.Fprintln(cmd.OutOrStdout(), k)
				}
			},
		},
	)
	return cmd
}
