package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/sandrolain/gometapath/pkg/evaluator"
)

type printTreeOptions struct {
	*rootOptions
	Expression string
	Namespaces []string
}

func newPrintTreeCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &printTreeOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "print-tree",
		Short: "Print the compiled expression tree",
		Long: `Compile an expression and print its expression tree, one node per
line with the static type the compiler inferred for it.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := opts.config.staticContext(opts.Namespaces, "")
			if err != nil {
				return err
			}
			expr, err := evaluator.Compile(opts.Expression, sc)
			if err != nil {
				return err
			}
			opts.logger.Debug("compiled expression", "source", opts.Expression)
			_, err = fmt.Fprint(cmd.OutOrStdout(), expr.Tree())
			return err
		},
	}

	cmd.Flags().StringVarP(&opts.Expression, "expression", "e", "", "Metapath expression to compile")
	cmd.Flags().StringArrayVarP(&opts.Namespaces, "namespace", "n", nil, "namespace binding prefix=uri (repeatable)")
	_ = cmd.MarkFlagRequired("expression")

	return cmd
}
