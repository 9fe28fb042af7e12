package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/holon-run/talkd/pkg/remote"
)

var bracketsCmd = &cobra.Command{
	Use:   "brackets [ARG...]",
	Short: "Print the arguments as one shell-safe bracketed token",
	Long: `Print the arguments as a parenthesized list, each item single-quoted for
a POSIX shell, ready to be pasted into a daemon script:

  $ talkd brackets a 'b c' ''
  ( 'a' 'b c' '' )`,
	RunE: func(cmd *cobra.Command, args []string) error {
		fmt.Fprintln(cmd.OutOrStdout(), remote.Brackets(args))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(bracketsCmd)
}
