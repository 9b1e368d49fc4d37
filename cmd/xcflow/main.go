package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/xcflow/xcflow/internal/config"
	"github.com/xcflow/xcflow/internal/diagnostics"
	"github.com/xcflow/xcflow/internal/logger"
	"github.com/xcflow/xcflow/internal/orchestrator"
	"github.com/xcflow/xcflow/internal/report"
	"github.com/xcflow/xcflow/internal/runner"
)

var (
	version = "0.1.0"
	commit  = "unknown"
	date    = "unknown"
)

var (
	flagProjectRoot string
	flagInvocation  runner.Invocation
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "xcflow",
		Short: "Xcode build and test output engine",
		Long: `xcflow runs xcodebuild, parses its streamed output into a structured
report (build diagnostics, per-class test results) and keeps a persistent
test-explorer tree up to date while tests run.

State is written to .xcflow/ inside the project:
• report.json    - Diagnostics and test results of the last invocation
• explorer.json  - The target/class/test tree with execution status
• xcflow.log     - Rotated debug log`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&flagProjectRoot, "root", "C", ".", "project root directory")
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(newParseCmd(), newBuildCmd(), newTestCmd(), newEnumerateCmd(), newQuickfixCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func addInvocationFlags(fs *pflag.FlagSet) {
	fs.StringVar(&flagInvocation.ProjectPath, "project", "", ".xcodeproj or .xcworkspace path")
	fs.StringVar(&flagInvocation.Scheme, "scheme", "", "scheme to build or test")
	fs.StringVar(&flagInvocation.Destination, "destination", "", "xcodebuild destination specifier")
	fs.StringVar(&flagInvocation.TestPlan, "test-plan", "", "test plan name")
}

// setup loads config and opens the rotated debug log.
func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load(flagProjectRoot)
	if err != nil {
		return nil, nil, err
	}
	log, err := logger.New(logger.Options{
		Filename:   cfg.LogFilename,
		Level:      cfg.LogLevel,
		MaxSizeMB:  cfg.LogMaxSizeMB,
		MaxBackups: cfg.LogMaxBackups,
		MaxAgeDays: cfg.LogMaxAgeDays,
		Compress:   cfg.LogCompress,
	})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

// newParseCmd parses a captured xcodebuild log from a file or stdin and
// prints the resulting report as JSON. Useful for inspecting saved logs
// without rerunning the build.
func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse [logfile]",
		Short: "Parse a captured xcodebuild log into a JSON report",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			var in io.Reader = os.Stdin
			if len(args) == 1 {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				in = f
			}

			rep := report.New()
			acc := report.NewAccumulator(rep, cfg.TargetMatching, log)
			scanner := bufio.NewScanner(in)
			scanner.Buffer(make([]byte, 0, 256*1024), 4*1024*1024)
			for scanner.Scan() {
				acc.Feed([]string{scanner.Text()})
			}
			if err := scanner.Err(); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), rep)
		},
	}
}

func newBuildCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build and report diagnostics",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			s := orchestrator.NewSession(orchestrator.Options{
				Config:       cfg,
				BundleLoader: runner.LoadBundle,
				Logger:       log,
			})

			job := s.StartBuild()
			code, err := runner.New(cfg.CancelExitCode, log).Run(cmd.Context(), cfg.ProjectRoot,
				flagInvocation.BuildArgs(),
				func(lines []string) { s.OnOutputChunk(job, lines) })
			if err != nil {
				return err
			}
			s.OnExit(cmd.Context(), job, code)

			if err := printJSON(cmd.OutOrStdout(), s.Report()); err != nil {
				return err
			}
			if code != 0 {
				return fmt.Errorf("build exited with code %d", code)
			}
			return nil
		},
	}
	addInvocationFlags(cmd.Flags())
	return cmd
}

func newTestCmd() *cobra.Command {
	var only []string
	cmd := &cobra.Command{
		Use:   "test",
		Short: "Run tests and report per-test results",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			s := orchestrator.NewSession(orchestrator.Options{
				Config:       cfg,
				BundleLoader: runner.LoadBundle,
				Logger:       log,
			})

			inv := flagInvocation
			inv.OnlyTesting = only
			inv.ResultDir = cfg.StateDir

			var selected []string
			if len(only) > 0 {
				selected = only
			}
			job := s.StartTests(selected)
			code, err := runner.New(cfg.CancelExitCode, log).Run(cmd.Context(), cfg.ProjectRoot,
				inv.TestArgs(job.String()),
				func(lines []string) { s.OnOutputChunk(job, lines) })
			if err != nil {
				return err
			}
			s.OnExit(cmd.Context(), job, code)

			if err := printJSON(cmd.OutOrStdout(), s.Report()); err != nil {
				return err
			}
			if code != 0 && code != cfg.CancelExitCode {
				return fmt.Errorf("tests exited with code %d", code)
			}
			return nil
		},
	}
	addInvocationFlags(cmd.Flags())
	cmd.Flags().StringArrayVar(&only, "only-testing", nil, "test selector (Target, Target/Class or Target/Class/test), repeatable")
	return cmd
}

// newEnumerateCmd lists the test hierarchy without running anything and
// seeds the persisted explorer tree from it.
func newEnumerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enumerate",
		Short: "Enumerate tests and refresh the explorer tree",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			var out strings.Builder
			code, err := runner.New(cfg.CancelExitCode, log).Run(cmd.Context(), cfg.ProjectRoot,
				flagInvocation.EnumerateArgs(),
				func(lines []string) {
					for _, l := range lines {
						out.WriteString(l)
						out.WriteByte('\n')
					}
				})
			if err != nil {
				return err
			}
			if code != 0 {
				return fmt.Errorf("test enumeration exited with code %d", code)
			}

			items, err := runner.ParseEnumeration(extractJSON(out.String()))
			if err != nil {
				return err
			}

			s := orchestrator.NewSession(orchestrator.Options{Config: cfg, Logger: log})
			s.LoadTests(items)
			if err := s.Explorer().Save(cfg.StateDir); err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), items)
		},
	}
	addInvocationFlags(cmd.Flags())
	return cmd
}

// newQuickfixCmd prints the last report as quickfix entries.
func newQuickfixCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "quickfix",
		Short: "Print the last report as navigable quickfix entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := setup()
			if err != nil {
				return err
			}
			rep, err := report.Load(cfg.StateDir)
			if err != nil {
				return err
			}
			if rep == nil {
				return fmt.Errorf("no report found under %s, run a build or test first", cfg.StateDir)
			}
			return printJSON(cmd.OutOrStdout(), diagnostics.Quickfix(rep))
		},
	}
}

// extractJSON cuts the JSON document out of enumeration output, which
// xcodebuild prefixes with its usual invocation banner.
func extractJSON(s string) []byte {
	if i := strings.IndexByte(s, '{'); i >= 0 {
		return []byte(s[i:])
	}
	return []byte(s)
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
