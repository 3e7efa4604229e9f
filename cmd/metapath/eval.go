package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sandrolain/gometapath"
	"github.com/sandrolain/gometapath/pkg/evaluator"
	"github.com/sandrolain/gometapath/pkg/item"
)

type evalOptions struct {
	*rootOptions
	Expression string
	Content    string
	As         string
	Namespaces []string
	BaseURI    string
	Vars       []string
	Timeout    time.Duration
}

func newEvalCommand(rootOpts *rootOptions) *cobra.Command {
	opts := &evalOptions{rootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate an expression",
		Long: `Evaluate an expression, optionally against a document.

Each item of the result is printed on its own line: atomic values by their
string value and nodes by their path. With --as the result is converted to
a single value first.`,
		Example: `  metapath eval -e "count(//control)" -c catalog.xml
  metapath eval -e "//control[@id = \$id]/title" -c catalog.yaml --var id=ac-1
  metapath eval -e "1 to 3" --as string`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVarP(&opts.Expression, "expression", "e", "", "Metapath expression to evaluate")
	cmd.Flags().StringVarP(&opts.Content, "content", "c", "", "document to use as the context item (.xml, .json, .yaml)")
	cmd.Flags().StringVar(&opts.As, "as", "sequence", "result type (sequence|item|number|string|boolean)")
	cmd.Flags().StringArrayVarP(&opts.Namespaces, "namespace", "n", nil, "namespace binding prefix=uri (repeatable)")
	cmd.Flags().StringVar(&opts.BaseURI, "base-uri", "", "static base URI for fn:doc")
	cmd.Flags().StringArrayVar(&opts.Vars, "var", nil, "string variable binding name=value (repeatable)")
	cmd.Flags().DurationVar(&opts.Timeout, "timeout", 30*time.Second, "evaluation timeout")
	_ = cmd.MarkFlagRequired("expression")

	return cmd
}

func runEval(ctx context.Context, opts *evalOptions, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	rt, err := evaluator.ParseResultType(opts.As)
	if err != nil {
		return err
	}
	sc, err := opts.config.staticContext(opts.Namespaces, opts.BaseURI)
	if err != nil {
		return err
	}
	bindings, err := parseVars(opts.Vars)
	if err != nil {
		return err
	}

	ev := evaluator.New(
		evaluator.WithStaticContext(sc),
		evaluator.WithLogger(opts.logger),
		evaluator.WithDebug(opts.Verbose),
		evaluator.WithTimeout(opts.Timeout),
	)
	expr, err := ev.Compile(opts.Expression)
	if err != nil {
		return err
	}

	var focus item.Item
	if opts.Content != "" {
		doc, err := gometapath.LoadDocument(opts.Content)
		if err != nil {
			return fmt.Errorf("loading %s: %w", opts.Content, err)
		}
		opts.logger.Debug("loaded document", "path", opts.Content, "uri", doc.DocumentURI())
		focus = doc
	}

	result, err := ev.EvalWithBindings(ctx, expr, focus, bindings)
	if err != nil {
		return err
	}
	if rt == evaluator.ResultSequence {
		for it := range result.All() {
			fmt.Fprintln(w, valueFmt(formatItem(it)))
		}
		return nil
	}
	v, err := evaluator.ConvertResult(result, rt)
	if err != nil {
		return err
	}
	if v == nil {
		return nil
	}
	if it, ok := v.(item.Item); ok {
		fmt.Fprintln(w, valueFmt(formatItem(it)))
		return nil
	}
	fmt.Fprintln(w, valueFmt(v))
	return nil
}

func parseVars(vars []string) (map[string]item.Sequence, error) {
	out := make(map[string]item.Sequence, len(vars))
	for _, v := range vars {
		name, value, ok := strings.Cut(v, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("invalid variable binding %q, expected name=value", v)
		}
		out[name] = item.Of(item.NewString(value))
	}
	return out, nil
}

// formatItem renders atomic values by their string value and nodes by
// their path.
func formatItem(it item.Item) string {
	switch v := it.(type) {
	case item.AtomicItem:
		return v.StringValue()
	case interface{ Path() string }:
		return v.Path()
	case fmt.Stringer:
		return v.String()
	}
	return fmt.Sprintf("%v", it)
}
