package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

type listFunctionsOptions struct {
	*rootOptions
	Prefix string
}

func newListFunctionsCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &listFunctionsOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "list-functions",
		Short: "List the available functions",
		Long:  "List the signature of every function available to expressions, grouped by namespace.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sc, err := opts.config.staticContext(nil, "")
			if err != nil {
				return err
			}
			filter := ""
			if opts.Prefix != "" {
				uri, ok := sc.NamespaceURI(opts.Prefix)
				if !ok {
					return fmt.Errorf("unknown namespace prefix %q", opts.Prefix)
				}
				filter = uri
			}

			w := cmd.OutOrStdout()
			current := "\x00"
			for _, d := range sc.Functions().All() {
				ns := d.Name.Namespace
				if filter != "" && ns != filter {
					continue
				}
				if ns != current {
					if current != "\x00" {
						fmt.Fprintln(w)
					}
					fmt.Fprintln(w, headerFmt("%s", ns))
					current = ns
				}
				fmt.Fprintf(w, "  %s\n", d.Signature())
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&opts.Prefix, "prefix", "p", "", "only list functions in the namespace bound to this prefix")

	return cmd
}
