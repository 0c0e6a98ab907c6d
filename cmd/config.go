package cmd

import (
	"errors"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/natefinch/lumberjack.v2"
)

const (
	configVersionKey     = "version"
	currentConfigVersion = 1

	configBaseName   = "genprog"
	configFileName   = configBaseName + ".yaml"
	configFolderPath = "."

	envPrefix = "GENPROG"

	// Search parameters.
	generationsKey       = "generations"
	popsizeKey           = "popsize"
	mutpKey              = "mutp"
	promutKey            = "promut"
	subatomMutpKey       = "subatom-mutp"
	subatomConstpKey     = "subatom-constp"
	crosspKey            = "crossp"
	tournamentKKey       = "tournament-k"
	tournamentPKey       = "tournament-p"
	seedKey              = "seed"
	subatomsKey          = "subatoms"
	semanticCheckKey     = "semantic-check"
	swapBugKey           = "swap-bug"

	// Distributed parameters.
	numCompsKey           = "num-comps"
	splitSearchKey        = "split-search"
	diversitySelectionKey = "diversity-selection"
	variantsExchangedKey  = "variants-exchanged"
	genPerExchangeKey     = "gen-per-exchange"

	// Coverage instrumentation.
	uniqCoverageKey        = "uniq-coverage"
	multithreadCoverageKey = "multithread-coverage"

	// Run plumbing.
	outputKey          = "output"
	cacheDirKey        = "cache-dir"
	mutationTimeoutKey = "mutation-timeout"

	defaultGenerations       = 10
	defaultPopsize           = 40
	defaultMutp              = 0.06
	defaultPromut            = 1
	defaultSubatomMutp       = 0.5
	defaultSubatomConstp     = 0.5
	defaultCrossp            = 1.0
	defaultTournamentK       = 2
	defaultTournamentP       = 1.0
	defaultSeed              = 0
	defaultNumComps          = 1
	defaultVariantsExchanged = 5
	defaultGenPerExchange    = 5
	defaultSemanticCheck     = "scope"
	defaultOutputDir         = ".genprog-reports"
	defaultMutationTimeout   = 120 // seconds

	logFilenameKey   = "log.filename"
	logLevelKey      = "log.level"
	logVerboseKey    = "log.verbose"
	logMaxSizeKey    = "log.max_size"
	logMaxBackupsKey = "log.max_backups"
	logMaxAgeKey     = "log.max_age"
	logCompressKey   = "log.compress"

	defaultLogFilename   = ".genprog.log"
	defaultLogLevel      = int(slog.LevelInfo)
	defaultLogVerbose    = false
	defaultLogMaxSize    = 10
	defaultLogMaxBackups = 3
	defaultLogMaxAge     = 28
	defaultLogCompress   = true
)

var globalLogger *slog.Logger

func init() {
	viper.SetConfigName(configBaseName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configFolderPath)
	viper.SetConfigFile(filepath.Join(configFolderPath, configFileName))
	viper.AutomaticEnv()
	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	viper.SetDefault(configVersionKey, currentConfigVersion)

	viper.SetDefault(generationsKey, defaultGenerations)
	viper.SetDefault(popsizeKey, defaultPopsize)
	viper.SetDefault(mutpKey, defaultMutp)
	viper.SetDefault(promutKey, defaultPromut)
	viper.SetDefault(subatomMutpKey, defaultSubatomMutp)
	viper.SetDefault(subatomConstpKey, defaultSubatomConstp)
	viper.SetDefault(crosspKey, defaultCrossp)
	viper.SetDefault(tournamentKKey, defaultTournamentK)
	viper.SetDefault(tournamentPKey, defaultTournamentP)
	viper.SetDefault(seedKey, defaultSeed)
	viper.SetDefault(subatomsKey, false)
	viper.SetDefault(semanticCheckKey, defaultSemanticCheck)
	viper.SetDefault(swapBugKey, false)

	viper.SetDefault(numCompsKey, defaultNumComps)
	viper.SetDefault(splitSearchKey, false)
	viper.SetDefault(diversitySelectionKey, false)
	viper.SetDefault(variantsExchangedKey, defaultVariantsExchanged)
	viper.SetDefault(genPerExchangeKey, defaultGenPerExchange)

	viper.SetDefault(uniqCoverageKey, false)
	viper.SetDefault(multithreadCoverageKey, false)

	viper.SetDefault(outputKey, defaultOutputDir)
	viper.SetDefault(cacheDirKey, "")
	viper.SetDefault(mutationTimeoutKey, defaultMutationTimeout)

	viper.SetDefault(logFilenameKey, defaultLogFilename)
	viper.SetDefault(logLevelKey, defaultLogLevel)
	viper.SetDefault(logVerboseKey, defaultLogVerbose)
	viper.SetDefault(logMaxSizeKey, defaultLogMaxSize)
	viper.SetDefault(logMaxBackupsKey, defaultLogMaxBackups)
	viper.SetDefault(logMaxAgeKey, defaultLogMaxAge)
	viper.SetDefault(logCompressKey, defaultLogCompress)

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return
		}

		return
	}
}

func parseSlogLevel(value string, defaultLevel slog.Level) slog.Level {
	level := strings.ToLower(strings.TrimSpace(value))
	if level == "" {
		return defaultLevel
	}

	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}

	// Allow numeric slog levels as well (e.g. -4 for debug).
	if n, err := strconv.Atoi(level); err == nil {
		return slog.Level(n)
	}

	return defaultLevel
}

// configureLogger configures the global slog logger.
//
// By default it logs at Info; if verbose is true it logs at Debug.
func configureLogger(logPath string, verbose bool) {
	if strings.TrimSpace(logPath) == "" {
		logPath = viper.GetString(logFilenameKey)
	}

	if strings.TrimSpace(logPath) == "" {
		logPath = defaultLogFilename
	}

	var logLevel slog.Level
	if verbose {
		logLevel = slog.LevelDebug
	} else {
		logLevel = parseSlogLevel(viper.GetString(logLevelKey), slog.LevelInfo)
	}

	logWriter := &lumberjack.Logger{
		Filename:   logPath,
		MaxSize:    viper.GetInt(logMaxSizeKey),
		MaxBackups: viper.GetInt(logMaxBackupsKey),
		MaxAge:     viper.GetInt(logMaxAgeKey),
		Compress:   viper.GetBool(logCompressKey),
	}

	handler := slog.NewTextHandler(logWriter, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	})

	globalLogger = slog.New(handler)
	slog.SetDefault(globalLogger)
}
