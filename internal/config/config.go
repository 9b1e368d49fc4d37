// Package config loads xcflow settings from xcflow.yaml, environment
// variables (XCFLOW_ prefix) and built-in defaults, in that precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SearchStrategy selects how test classes are resolved to source files.
type SearchStrategy string

const (
	StrategyFilename           SearchStrategy = "filename"
	StrategySymbol             SearchStrategy = "symbol"
	StrategyFilenameThenSymbol SearchStrategy = "filename_then_symbol"
	StrategySymbolThenFilename SearchStrategy = "symbol_then_filename"
)

const (
	configBaseName = "xcflow"
	envPrefix      = "XCFLOW"

	keyProjectRoot    = "paths.project_root"
	keyBuildDir       = "paths.build_dir"
	keyStateDir       = "paths.state_dir"
	keyStrategy       = "resolver.strategy"
	keySymbolTimeout  = "resolver.symbol_timeout_ms"
	keyTargetMatching = "resolver.target_matching"
	keyCancelExitCode = "run.cancel_exit_code"
	keyLogFilename    = "log.filename"
	keyLogLevel       = "log.level"
	keyLogMaxSize     = "log.max_size"
	keyLogMaxBackups  = "log.max_backups"
	keyLogMaxAge      = "log.max_age"
	keyLogCompress    = "log.compress"

	defaultSymbolTimeout  = 200 * time.Millisecond
	defaultCancelExitCode = 143
	defaultStateDir       = ".xcflow"
	defaultLogFilename    = ".xcflow/xcflow.log"
)

// Config holds the resolved settings for one editor session.
type Config struct {
	ProjectRoot    string
	BuildDir       string
	StateDir       string
	Strategy       SearchStrategy
	SymbolTimeout  time.Duration
	TargetMatching bool
	CancelExitCode int

	LogFilename   string
	LogLevel      string
	LogMaxSizeMB  int
	LogMaxBackups int
	LogMaxAgeDays int
	LogCompress   bool
}

// Load reads configuration for the given project root. A missing config file
// is not an error; defaults and environment variables still apply.
func Load(projectRoot string) (*Config, error) {
	v := viper.New()
	v.SetConfigName(configBaseName)
	v.SetConfigType("yaml")
	if projectRoot != "" {
		v.AddConfigPath(projectRoot)
	}
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))

	setDefaults(v, projectRoot)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{
		ProjectRoot:    v.GetString(keyProjectRoot),
		BuildDir:       v.GetString(keyBuildDir),
		StateDir:       v.GetString(keyStateDir),
		Strategy:       SearchStrategy(v.GetString(keyStrategy)),
		SymbolTimeout:  time.Duration(v.GetInt(keySymbolTimeout)) * time.Millisecond,
		TargetMatching: v.GetBool(keyTargetMatching),
		CancelExitCode: v.GetInt(keyCancelExitCode),
		LogFilename:    v.GetString(keyLogFilename),
		LogLevel:       v.GetString(keyLogLevel),
		LogMaxSizeMB:   v.GetInt(keyLogMaxSize),
		LogMaxBackups:  v.GetInt(keyLogMaxBackups),
		LogMaxAgeDays:  v.GetInt(keyLogMaxAge),
		LogCompress:    v.GetBool(keyLogCompress),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, projectRoot string) {
	v.SetDefault(keyProjectRoot, projectRoot)
	v.SetDefault(keyBuildDir, "")
	v.SetDefault(keyStateDir, defaultStateDir)
	v.SetDefault(keyStrategy, string(StrategyFilenameThenSymbol))
	v.SetDefault(keySymbolTimeout, int(defaultSymbolTimeout.Milliseconds()))
	v.SetDefault(keyTargetMatching, true)
	v.SetDefault(keyCancelExitCode, defaultCancelExitCode)
	v.SetDefault(keyLogFilename, defaultLogFilename)
	v.SetDefault(keyLogLevel, "warn")
	v.SetDefault(keyLogMaxSize, 10)
	v.SetDefault(keyLogMaxBackups, 3)
	v.SetDefault(keyLogMaxAge, 28)
	v.SetDefault(keyLogCompress, true)
}

func (c *Config) validate() error {
	switch c.Strategy {
	case StrategyFilename, StrategySymbol, StrategyFilenameThenSymbol, StrategySymbolThenFilename:
	default:
		return fmt.Errorf("unknown resolver strategy %q", c.Strategy)
	}
	if c.SymbolTimeout <= 0 {
		c.SymbolTimeout = defaultSymbolTimeout
	}
	if c.CancelExitCode <= 0 {
		c.CancelExitCode = defaultCancelExitCode
	}
	return nil
}
