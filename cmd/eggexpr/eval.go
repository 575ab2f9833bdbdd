package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/lemonberrylabs/eggexpr/pkg/types"
)

func newEvalCmd() *cobra.Command {
	var (
		flags    engineFlags
		varsPath string
		asJSON   bool
	)
	cmd := &cobra.Command{
		Use:   "eval EXPR",
		Short: "Evaluate an expression and print its value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			scope, err := scopeFromFile(varsPath)
			if err != nil {
				return err
			}

			v, err := eng.Eval(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			out, err := formatValue(v, asJSON)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&varsPath, "vars", "", "YAML or JSON file of variables")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the value as JSON")
	return cmd
}

func newExpandCmd() *cobra.Command {
	var (
		flags    engineFlags
		varsPath string
	)
	cmd := &cobra.Command{
		Use:   "expand TEMPLATE",
		Short: "Substitute ${expr} sections in a template",
		Long: "Substitute ${expr} sections in a template. Sections that fail to evaluate\n" +
			"render as empty text and are logged as warnings.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := newEngine(flags)
			if err != nil {
				return err
			}
			scope, err := scopeFromFile(varsPath)
			if err != nil {
				return err
			}

			text, _, err := eng.Expand(cmd.Context(), args[0], scope)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), text)
			return nil
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&varsPath, "vars", "", "YAML or JSON file of variables")
	return cmd
}

// formatValue renders v for the terminal. Strings print raw unless JSON
// output is requested.
func formatValue(v types.Value, asJSON bool) (string, error) {
	if !asJSON {
		return v.String(), nil
	}
	b, err := v.MarshalJSON()
	if err != nil {
		return "", err
	}
	return string(b), nil
}
