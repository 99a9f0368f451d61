package cmd

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/solatis/treelint/internal/selector"
)

func newExplainCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <selector>...",
		Short: "Show how selectors are compiled and in which order they fire",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			compiled := make([]*selector.Compiled, 0, len(args))
			for _, source := range args {
				c, err := selector.Compile(source)
				if err != nil {
					return err
				}
				compiled = append(compiled, c)
			}
			selector.Sort(compiled)
			opts.logger.Debug("selectors compiled", "count", len(compiled))

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
			fmt.Fprintln(tw, "SELECTOR\tEXIT\tTYPES\tPREDICATES\tIDENTIFIERS")
			for _, c := range compiled {
				fmt.Fprintf(tw, "%s\t%t\t%s\t%d\t%d\n",
					c.Source, c.IsExit, candidates(c), c.PredicateWeight, c.IdentifierWeight)
			}
			return tw.Flush()
		},
	}
}

// candidates renders the candidate type set: "*" for any type and "-" for a
// selector that can never match.
func candidates(c *selector.Compiled) string {
	switch {
	case c.CandidateTypes == nil:
		return "*"
	case len(c.CandidateTypes) == 0:
		return "-"
	default:
		return strings.Join(c.CandidateTypes, ",")
	}
}
