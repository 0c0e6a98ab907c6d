package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const bruteLongDescription = `Exhaustively try every distance-one edit, highest weight first, and stop
at the first variant that passes the whole test suite. Subatom
(expression-level) candidates are included with --subatoms.`

// bruteCmd represents the brute command.
var bruteCmd = newBruteCmd()

func newBruteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "brute [manifest]",
		Short: "Exhaustive distance-one edit search",
		Long:  bruteLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			// repair binds the same keys to its own flags after this command
			// is built; bind them to this command's flags for this run.
			bindFlagToConfig(cmd.Flags().Lookup(subatomsKey), subatomsKey)
			bindFlagToConfig(cmd.Flags().Lookup(semanticCheckKey), semanticCheckKey)

			runArgs, err := repairArgs(args)
			if err != nil {
				return err
			}

			return workflow.Brute(cmd.Context(), runArgs)
		},
	}

	flags := cmd.Flags()
	flags.Bool(subatomsKey, viper.GetBool(subatomsKey), "enable expression-level candidates")
	flags.String(semanticCheckKey, viper.GetString(semanticCheckKey), "donor filtering: none or scope")
	bindFlagToConfig(flags.Lookup(subatomsKey), subatomsKey)
	bindFlagToConfig(flags.Lookup(semanticCheckKey), semanticCheckKey)

	return cmd
}

func init() {
	rootCmd.AddCommand(bruteCmd)
}
