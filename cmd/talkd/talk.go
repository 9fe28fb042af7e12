package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/holon-run/talkd/pkg/talk"
)

var talkCmd = &cobra.Command{
	Use:   "talk",
	Short: "Inspect talk documents",
}

var talkListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the talks",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		names, err := store().List()
		if err != nil {
			return err
		}
		for _, name := range names {
			fmt.Fprintln(cmd.OutOrStdout(), name)
		}
		return nil
	},
}

var talkShowCmd = &cobra.Command{
	Use:   "show NAME",
	Short: "Print the XML document of a talk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := store().Get(args[0])
		if err != nil {
			return err
		}
		doc, err := t.Read()
		if err != nil {
			return err
		}
		data, err := talk.Encode(doc)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var talkAuditCmd = &cobra.Command{
	Use:   "audit NAME",
	Short: "Print the modification history of a talk",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		t, err := store().Get(args[0])
		if err != nil {
			return err
		}
		entries, err := t.Audit()
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", talk.FormatTime(e.At), e.Message, e.Directives)
		}
		return w.Flush()
	},
}

func init() {
	talkCmd.AddCommand(talkListCmd, talkShowCmd, talkAuditCmd)
	rootCmd.AddCommand(talkCmd)
}
