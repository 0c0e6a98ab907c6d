// Package cmd provides the root command and CLI setup for genprog.
package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/whr0724/genprog-code/internal/adapter"
	"github.com/whr0724/genprog-code/internal/controller"
	"github.com/whr0724/genprog-code/internal/distributed"
	"github.com/whr0724/genprog-code/internal/domain"
	m "github.com/whr0724/genprog-code/internal/model"
	"github.com/whr0724/genprog-code/internal/rep"
	"github.com/whr0724/genprog-code/internal/search"
	"github.com/whr0724/genprog-code/internal/store"
)

var fsAdapter adapter.SourceFSAdapter
var astProvider adapter.ASTProvider
var ui controller.UI
var workflow domain.Workflow

// Shared root-level flags.
var outputDirFlag string
var cacheDirFlag string
var seedFlag int64
var verboseFlag bool
var logFileFlag string

func init() {
	configureRootFlags(rootCmd)

	fsAdapter = adapter.NewLocalSourceFSAdapter()
	astProvider = adapter.NewGoASTAdapter()

	timeout := time.Duration(viper.GetInt(mutationTimeoutKey)) * time.Second
	runner := adapter.NewLocalTestRunnerAdapter(timeout)

	ui = controller.NewUI(rootCmd, controller.IsTTY(os.Stdout))
	workflow = domain.NewWorkflow(fsAdapter, astProvider, runner, ui)
}

const rootLongDescription = `Genprog searches for repairs to a buggy Go program. Given a manifest
naming the target sources, the tests the program passes and the tests it
fails, it explores statement-level edits (delete, append, swap, replace)
guided by coverage-weighted fault localization until a variant passes the
whole suite.`

// rootCmd represents the base command when called without any subcommands.
var rootCmd = baseRootCmd()

func baseRootCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "genprog",
		Short: "Search-based program repair for Go",
		Long:  rootLongDescription,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			if v := viper.GetInt(configVersionKey); v != currentConfigVersion {
				return fmt.Errorf("config version %d is not supported (want %d)", v, currentConfigVersion)
			}

			configureLogger(logFileFlag, verboseFlag || viper.GetBool(logVerboseKey))

			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}
}

func configureRootFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().StringVarP(
		&outputDirFlag, outputKey, "o",
		viper.GetString(outputKey),
		"output directory for run artifacts",
	)
	bindFlagToConfig(cmd.PersistentFlags().Lookup(outputKey), outputKey)

	cmd.PersistentFlags().StringVar(&cacheDirFlag, cacheDirKey, viper.GetString(cacheDirKey), "directory for the persistent fitness cache (empty disables)")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(cacheDirKey), cacheDirKey)

	cmd.PersistentFlags().Int64Var(&seedFlag, seedKey, viper.GetInt64(seedKey), "random seed; a fixed seed reproduces a run")
	bindFlagToConfig(cmd.PersistentFlags().Lookup(seedKey), seedKey)

	cmd.PersistentFlags().BoolVarP(&verboseFlag, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&logFileFlag, "log-file", "", "log file path")
}

// bindFlagToConfig wires a Cobra flag to a Viper key so config/env values
// feed the flag.
func bindFlagToConfig(flag *pflag.Flag, key string) {
	if flag == nil {
		cobra.CheckErr(fmt.Errorf("flag for config key %q not found", key))
		return
	}

	cobra.CheckErr(viper.BindPFlag(key, flag))
}

// Execute adds all child commands to the root command and sets flags
// appropriately. This is called by main.main().
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

// repairArgs assembles the workflow arguments from viper state plus the
// manifest path argument.
func repairArgs(args []string) (domain.RepairArgs, error) {
	manifest := m.Path(configFileName)
	if len(args) > 0 {
		manifest = m.Path(args[0])
	}

	check, err := store.ParseCheckMode(viper.GetString(semanticCheckKey))
	if err != nil {
		return domain.RepairArgs{}, err
	}

	return domain.RepairArgs{
		Manifest: manifest,
		GAParams: search.GAParams{
			Generations: viper.GetInt(generationsKey),
			PopSize:     viper.GetInt(popsizeKey),
			CrossP:      viper.GetFloat64(crosspKey),
			TournamentK: viper.GetInt(tournamentKKey),
			TournamentP: viper.GetFloat64(tournamentPKey),
		},
		Mutator: search.Mutator{
			MutP:          viper.GetFloat64(mutpKey),
			SubatomMutP:   subatomMutP(),
			SubatomConstP: viper.GetFloat64(subatomConstpKey),
			ProMut:        viper.GetInt(promutKey),
			Check:         check,
		},
		Dist: distributed.Params{
			NumComps:           viper.GetInt(numCompsKey),
			VariantsExchanged:  viper.GetInt(variantsExchangedKey),
			GenPerExchange:     viper.GetInt(genPerExchangeKey),
			DiversitySelection: viper.GetBool(diversitySelectionKey),
			SplitSearch:        viper.GetBool(splitSearchKey),
		},
		Seed:     viper.GetInt64(seedKey),
		Check:    check,
		SwapBug:  viper.GetBool(swapBugKey),
		Subatoms: viper.GetBool(subatomsKey),
		Coverage: rep.CoverageOptions{
			Uniq:        viper.GetBool(uniqCoverageKey),
			Multithread: viper.GetBool(multithreadCoverageKey),
		},
		Output:   m.Path(viper.GetString(outputKey)),
		CacheDir: viper.GetString(cacheDirKey),
	}, nil
}

// subatomMutP returns 0 when expression-level mutation is disabled so the
// mutator never takes the subatom branch.
func subatomMutP() float64 {
	if !viper.GetBool(subatomsKey) {
		return 0
	}

	return viper.GetFloat64(subatomMutpKey)
}
