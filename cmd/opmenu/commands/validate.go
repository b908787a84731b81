package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"opmenu/internal/auth"
	"opmenu/internal/localization"
	"opmenu/internal/validate"
)

func validateCmd() *cobra.Command {
	var algorithm string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check values with the operator menu's field validators",
	}
	ip := &cobra.Command{
		Use:   "ip <address>",
		Short: "Check an IPv4 address",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cmd, validate.IPv4(args[0]))
		},
	}
	mask := &cobra.Command{
		Use:   "mask <mask>",
		Short: "Check a subnet mask",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return report(cmd, validate.SubnetMask(args[0]))
		},
	}
	hmacKey := &cobra.Command{
		Use:   "hmac <hex-key>",
		Short: "Check an HMAC seed for an algorithm",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := algorithm
			if name == "" {
				name = cfg.Auth.Algorithm
			}
			alg, err := auth.ParseAlgorithm(name)
			if err != nil {
				return err
			}
			return report(cmd, validate.HMACKey(alg, args[0]))
		},
	}
	hmacKey.Flags().StringVarP(&algorithm, "algorithm", "a", "", "hash algorithm (default from config)")

	cmd.AddCommand(ip, mask, hmacKey)
	return cmd
}

// errInvalid is returned after the localized reason has been printed.
var errInvalid = errors.New("invalid value")

// report prints "valid" or the localized validation message in the operator
// culture configured for the cabinet.
func report(cmd *cobra.Command, err error) error {
	if err == nil {
		fmt.Fprintln(cmd.OutOrStdout(), "valid")
		return nil
	}
	fe, ok := validate.AsFieldError(err)
	if !ok {
		return err
	}
	loc, lerr := localization.New(nil, nil, logger)
	if lerr != nil {
		return err
	}
	if culture, merr := loc.Match(cfg.Locale.Operator); merr == nil {
		_ = loc.SetCulture(localization.Operator, culture)
	}
	fmt.Fprintln(cmd.OutOrStdout(), loc.For(localization.Operator).GetFormat(fe.Key, fe.Args...))
	return fmt.Errorf("%w: %w", errInvalid, err)
}
