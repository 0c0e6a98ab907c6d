package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

const repairLongDescription = `Run the genetic-algorithm search for a repair.

The manifest argument (default: genprog.yaml) names the target source
files, the positive tests the program already passes, and the negative
tests that expose the bug. With --num-comps greater than one the search
runs as parallel demes exchanging their best variants.`

// repairCmd represents the repair command.
var repairCmd = newRepairCmd()

func newRepairCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "repair [manifest]",
		Short: "Search for a repair with the genetic algorithm",
		Long:  repairLongDescription,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			runArgs, err := repairArgs(args)
			if err != nil {
				return err
			}

			return workflow.Repair(cmd.Context(), runArgs)
		},
	}

	configureSearchFlags(cmd)
	configureDistributedFlags(cmd)

	return cmd
}

func init() {
	rootCmd.AddCommand(repairCmd)
}

func configureSearchFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.Int(generationsKey, viper.GetInt(generationsKey), "number of GA generations")
	flags.Int(popsizeKey, viper.GetInt(popsizeKey), "population size per deme")
	flags.Float64(mutpKey, viper.GetFloat64(mutpKey), "per-site mutation probability multiplier")
	flags.Int(promutKey, viper.GetInt(promutKey), "force at least this many mutations per variant (0 disables)")
	flags.Float64(crosspKey, viper.GetFloat64(crosspKey), "crossover probability per couple")
	flags.Int(tournamentKKey, viper.GetInt(tournamentKKey), "tournament sample size")
	flags.Float64(tournamentPKey, viper.GetFloat64(tournamentPKey), "tournament acceptance probability")
	flags.Bool(subatomsKey, viper.GetBool(subatomsKey), "enable expression-level mutations")
	flags.Float64(subatomMutpKey, viper.GetFloat64(subatomMutpKey), "probability of an expression-level mutation at a firing site")
	flags.Float64(subatomConstpKey, viper.GetFloat64(subatomConstpKey), "probability a subatom mutation inserts the zero constant")
	flags.String(semanticCheckKey, viper.GetString(semanticCheckKey), "donor filtering: none or scope")
	flags.Bool(swapBugKey, viper.GetBool(swapBugKey), "reproduce the legacy swap behavior (historical experiments only)")

	for _, key := range []string{
		generationsKey, popsizeKey, mutpKey, promutKey, crosspKey,
		tournamentKKey, tournamentPKey, subatomsKey, subatomMutpKey,
		subatomConstpKey, semanticCheckKey, swapBugKey,
	} {
		bindFlagToConfig(flags.Lookup(key), key)
	}
}

func configureDistributedFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	flags.Int(numCompsKey, viper.GetInt(numCompsKey), "number of parallel demes")
	flags.Bool(splitSearchKey, viper.GetBool(splitSearchKey), "partition mutation sites across demes")
	flags.Bool(diversitySelectionKey, viper.GetBool(diversitySelectionKey), "select exchanged variants by history coverage instead of fitness")
	flags.Int(variantsExchangedKey, viper.GetInt(variantsExchangedKey), "variants each deme sends per exchange")
	flags.Int(genPerExchangeKey, viper.GetInt(genPerExchangeKey), "generations between exchanges")

	for _, key := range []string{
		numCompsKey, splitSearchKey, diversitySelectionKey,
		variantsExchangedKey, genPerExchangeKey,
	} {
		bindFlagToConfig(flags.Lookup(key), key)
	}
}
