package cmd

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseSlogLevel(t *testing.T) {
	require.Equal(t, slog.LevelDebug, parseSlogLevel("debug", slog.LevelInfo))
	require.Equal(t, slog.LevelWarn, parseSlogLevel("WARNING", slog.LevelInfo))
	require.Equal(t, slog.LevelError, parseSlogLevel(" error ", slog.LevelInfo))
	require.Equal(t, slog.LevelInfo, parseSlogLevel("", slog.LevelInfo))
	require.Equal(t, slog.Level(-4), parseSlogLevel("-4", slog.LevelInfo))
	require.Equal(t, slog.LevelInfo, parseSlogLevel("nonsense", slog.LevelInfo))
}

func TestRepairArgsDefaults(t *testing.T) {
	args, err := repairArgs(nil)
	require.NoError(t, err)

	require.Equal(t, configFileName, string(args.Manifest))
	require.Equal(t, defaultGenerations, args.GAParams.Generations)
	require.Equal(t, defaultPopsize, args.GAParams.PopSize)
	require.Equal(t, defaultCrossp, args.GAParams.CrossP)
	require.Equal(t, defaultTournamentK, args.GAParams.TournamentK)
	require.Equal(t, defaultMutp, args.Mutator.MutP)
	require.Equal(t, defaultPromut, args.Mutator.ProMut)
	require.Equal(t, defaultNumComps, args.Dist.NumComps)
	require.False(t, args.SwapBug)
	require.False(t, args.Subatoms)

	// Subatoms are off by default, so the subatom branch never fires.
	require.Zero(t, args.Mutator.SubatomMutP)
}

func TestRepairArgsManifestArgument(t *testing.T) {
	args, err := repairArgs([]string{"targets/repair.yaml"})
	require.NoError(t, err)
	require.Equal(t, "targets/repair.yaml", string(args.Manifest))
}

func TestCommandsAreRegistered(t *testing.T) {
	names := make(map[string]bool)
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}

	require.True(t, names["repair"])
	require.True(t, names["brute"])
	require.True(t, names["list"])
	require.True(t, names["init"])
	require.True(t, names["version"])
}
