package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sandrolain/gometapath/pkg/types"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	Verbose    bool
	NoColor    bool
	ConfigPath string

	logger *slog.Logger
	config *config
}

var (
	errorLabel = color.New(color.FgRed, color.Bold).SprintFunc()
	codeLabel  = color.New(color.FgYellow).SprintFunc()
	headerFmt  = color.New(color.FgBlue, color.Bold).SprintfFunc()
	valueFmt   = color.New(color.FgGreen).SprintFunc()
)

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "metapath",
		Short: "Evaluate Metapath expressions",
		Long: `Evaluate Metapath expressions against Metaschema-based content.

Documents are read from XML, JSON or YAML files. Namespace bindings,
default namespaces and the static base URI can be set in a YAML
configuration file passed with --config.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if opts.NoColor {
				color.NoColor = true
			}
			level := slog.LevelWarn
			if opts.Verbose {
				level = slog.LevelDebug
			}
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

			cfg, err := loadConfig(opts.ConfigPath)
			if err != nil {
				return err
			}
			opts.config = cfg
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log compilation and evaluation at debug level")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "YAML configuration file")

	cmd.AddCommand(newEvalCommand(opts))
	cmd.AddCommand(newPrintTreeCommand(opts))
	cmd.AddCommand(newListFunctionsCommand(opts))

	return cmd
}

// printError writes err to w, with the expression, position and execution
// stack for Metapath errors.
func printError(w io.Writer, err error) {
	var coded *types.Error
	if !errors.As(err, &coded) {
		fmt.Fprintf(w, "%s %v\n", errorLabel("error:"), err)
		return
	}
	fmt.Fprintf(w, "%s [%s] %s\n", errorLabel("error:"), codeLabel(coded.Code.String()), coded.Message)
	if coded.Expression != "" {
		fmt.Fprintf(w, "  in: %s\n", coded.Expression)
	}
	if coded.Position >= 0 {
		fmt.Fprintf(w, "  at position %d", coded.Position)
		if coded.Token != "" {
			fmt.Fprintf(w, " near '%s'", coded.Token)
		}
		fmt.Fprintln(w)
	}
	for _, frame := range coded.Stack {
		fmt.Fprintf(w, "  at %s\n", frame)
	}
	if coded.Err != nil {
		fmt.Fprintf(w, "  caused by: %v\n", coded.Err)
	}
}
