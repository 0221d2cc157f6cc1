package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/unitcalc/pkg/parser"
	"github.com/lemonberrylabs/unitcalc/pkg/repl"
)

// replCommand runs a REPL command once against the configured registry.
func replCommand(cmd *cobra.Command, line string) error {
	a, err := setup(cmd)
	if err != nil {
		return err
	}
	repl.New(a.session, nil, cmd.OutOrStdout(), repl.WithLogger(a.logger)).Execute(line)
	return nil
}

func newUnitsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "units",
		Short: "List the defined units",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return replCommand(cmd, "units")
		},
	}
}

func newPrefixesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "prefixes",
		Short: "List the defined prefixes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return replCommand(cmd, "prefixes")
		},
	}
}

func newDefCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "def <symbol>",
		Short: "Show the definition of a unit or prefix",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd)
			if err != nil {
				return err
			}
			def, err := a.session.UnitDefinition(args[0])
			if err != nil {
				var perr error
				if def, perr = a.session.PrefixDefinition(args[0]); perr != nil {
					return err
				}
			}
			fmt.Fprintln(cmd.OutOrStdout(), def)
			return nil
		},
	}
}

func newFmtCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "fmt <file>",
		Short: "Validate a registry file and re-encode it",
		Long: `fmt loads a registry file, checks every definition, and writes it back
out in canonical order. The output format is taken from --to, then from the
extension of --output, and defaults to yaml.`,
		Example: `  unitcalc fmt legacy.units --to yaml
  unitcalc fmt units.yaml -o units.json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, _ := cmd.Flags().GetString("to")
			out, _ := cmd.Flags().GetString("output")

			format := parser.FormatYAML
			var err error
			switch {
			case to != "":
				format, err = parser.ParseFormat(to)
			case out != "":
				format, err = parser.FormatFromPath(out)
			}
			if err != nil {
				return err
			}

			reg, err := parser.LoadFile(args[0])
			if err != nil {
				return err
			}
			data, err := parser.Encode(reg, format)
			if err != nil {
				return err
			}
			if out == "" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			if err := os.WriteFile(out, data, 0o644); err != nil {
				return fmt.Errorf("writing %s: %w", out, err)
			}
			return nil
		},
	}
	cmd.Flags().String("to", "", "output format: yaml, json or text")
	cmd.Flags().StringP("output", "o", "", "write to this file instead of stdout")
	return cmd
}
