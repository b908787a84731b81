package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"opmenu/internal/auth"
	"opmenu/internal/progress"
)

func hashCmd() *cobra.Command {
	var (
		algorithm string
		seed      string
		dir       string
		quiet     bool
	)
	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Digest the software components, optionally keyed with an HMAC seed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			name := algorithm
			if name == "" {
				name = cfg.Auth.Algorithm
			}
			alg, err := auth.ParseAlgorithm(name)
			if err != nil {
				return err
			}
			if dir == "" {
				dir = cfg.ManifestDir()
			}
			emitter := progress.EmitterFunc(func(ev progress.Event) {
				if quiet || ev.Status.Terminal() {
					return
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "[%d/%d] %s\n", ev.Done, ev.Total, ev.Message)
			})
			svc := auth.NewService(dir, auth.WithEmitter(emitter), auth.WithLogger(logger))
			res, err := svc.Compute(cmd.Context(), auth.Request{Algorithm: alg, Seed: seed})
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, c := range res.Components {
				fmt.Fprintf(out, "%s  %s\n", auth.FormatHash(c.Sum), c.Name)
			}
			mode := "digest"
			if res.Keyed {
				mode = "hmac"
			}
			fmt.Fprintf(out, "%s %s combined: %s\n", res.Algorithm, mode, auth.FormatHash(res.Combined))
			return nil
		},
	}
	cmd.Flags().StringVarP(&algorithm, "algorithm", "a", "", "hash algorithm (default from config)")
	cmd.Flags().StringVar(&seed, "seed", "", "hex HMAC seed; empty for a plain digest")
	cmd.Flags().StringVar(&dir, "dir", "", "component directory (default from config)")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "no progress on stderr")
	return cmd
}
