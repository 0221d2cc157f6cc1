package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/unitcalc/pkg/repl"
)

func newReplCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the interactive calculator",
		Args:  cobra.NoArgs,
		RunE:  runREPL,
	}
}

func runREPL(cmd *cobra.Command, _ []string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	in := cmd.InOrStdin()
	interactive := false
	if f, ok := in.(*os.File); ok {
		interactive = isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
	}
	r := repl.New(a.session, in, cmd.OutOrStdout(), repl.WithLogger(a.logger), repl.WithInteractive(interactive))
	return r.Run(cmd.Context())
}

func newEvalCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "eval <expression>...",
		Short: "Evaluate one expression and print the result",
		Example: `  unitcalc eval '100 kg * 9.8 m/s^2 : N'
  unitcalc eval 1 mi : km`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			res, err := a.session.Evaluate(strings.Join(args, " "))
			if verbose, _ := cmd.Flags().GetBool("verbose"); verbose && res.Canonical != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "Interpreting input as: '%s'\n", res.Canonical)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), res.Quantity.String())
			return nil
		},
	}
	cmd.Flags().BoolP("verbose", "v", false, "print the canonical form of the expression")
	return cmd
}

func newConvertCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "convert <value> <from> <to>",
		Short:   "Convert a value between two unit expressions",
		Example: `  unitcalc convert 3 ft in`,
		Args:    cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			value, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("invalid value %q", args[0])
			}
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			q, err := a.session.Convert(value, args[1], args[2])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), q.String())
			return nil
		},
	}
}
