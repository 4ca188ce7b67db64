package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/semverge/solvent"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "solvent:", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "solvent",
		Short:         "A semantic-versioning dependency resolver",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.AddCommand(newSolveCmd())
	return cmd
}

func newSolveCmd() *cobra.Command {
	var (
		mode    string
		verbose bool
	)

	cmd := &cobra.Command{
		Use:   "solve <universe.yaml>",
		Short: "Resolve the universe's root package to concrete versions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l := logrus.New()
			l.Out = cmd.ErrOrStderr()
			if verbose {
				l.Level = logrus.DebugLevel
			} else {
				l.Level = logrus.WarnLevel
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			u, err := solvent.LoadUniverse(f)
			if err != nil {
				return err
			}
			if u.Root.Name == "" {
				return fmt.Errorf("%s declares no root package", args[0])
			}

			m, err := solvent.ParseSolveMode(mode)
			if err != nil {
				return err
			}

			s := solvent.NewSolver(solvent.NewMemoizingOracle(u.Registry), u.SDK, l)
			res, err := s.Solve(cmd.Context(), solvent.SolveOpts{Root: u.Root, Mode: m})
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err.Error())
				return fmt.Errorf("no valid assignment for %s", u.Root.Name)
			}

			for _, id := range res.Decisions {
				fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", id.Ref.Name, id.Version)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&mode, "mode", "get", "solve mode: get, upgrade, or downgrade")
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "enable debug tracing")
	return cmd
}
