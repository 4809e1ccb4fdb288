package commands

import (
	"github.com/spf13/cobra"
)

// NewTraceCommand creates the trace command.
func NewTraceCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "trace <file>",
		Short: "Show both execution traces side by side",
		Long: `Run a file under both grammars and print the effects each run
produced, in order, followed by the final memory of each run.`,
		Example: `  leapglot trace hello.c
  leapglot trace -o json hello.c`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			res, _, err := cc.Analyze(cmd, args[0])
			if err != nil {
				return err
			}
			return cc.Renderer.Traces(res)
		},
	}
}

// NewTokensCommand creates the tokens command.
func NewTokensCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tokens <file>",
		Short: "Show the token streams of both grammars",
		Long: `Print the brace tokens after preprocessing and the script tokens.
Brace tokens produced by macro expansion are marked with the position of
the invocation.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cc, err := NewCommandContext(cmd)
			if err != nil {
				return err
			}
			res, _, err := cc.Analyze(cmd, args[0])
			if err != nil {
				return err
			}
			return cc.Renderer.Tokens(res)
		},
	}
}
