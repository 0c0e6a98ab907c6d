package cmd

import (
	"github.com/spf13/cobra"
)

const listLongDescription = `Count the candidate edits the brute-force search would try, grouped
by operator with each operator's top weight, without evaluating any of
them. Useful for sizing a run before committing compute to it.`

// listCmd represents the list command.
var listCmd = newListCmd()

func newListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [manifest]",
		Short: "Count candidate edits per operator",
		Long:  listLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runArgs, err := repairArgs(args)
			if err != nil {
				return err
			}

			return workflow.Estimate(cmd.Context(), runArgs)
		},
	}
}

func init() {
	rootCmd.AddCommand(listCmd)
}
