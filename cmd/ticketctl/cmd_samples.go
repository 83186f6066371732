package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/spec-kit/ticket-advisor/internal/knowledge"
)

var samplesCmd = &cobra.Command{
	Use:   "samples",
	Short: "List the bundled sample tickets",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		samples, err := knowledge.LoadSampleTickets()
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tCATEGORY\tPRIORITY\tSUBJECT")
		for _, s := range samples {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", s.ID, s.ExpectedCategory, s.ExpectedPriority, s.Subject)
		}
		return tw.Flush()
	},
}
