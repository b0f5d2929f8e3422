// Package main implements the lockcheck CLI: a harness that verifies the
// timing-gated lockout behavior of a client-side authentication form.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"lockcheck/internal/browser"
	"lockcheck/internal/config"
	"lockcheck/internal/scenario"
	"lockcheck/internal/server"
)

var (
	// Global flags
	verbose    bool
	configPath string

	// Run flags
	rootDir    string
	port       int
	outputPath string
	runTimeout time.Duration
	headed     bool

	// Logger
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "lockcheck",
	Short: "Verify auth-form lockout timing against a live headless browser",
	Long: `lockcheck serves a static site, drives a headless Chrome session through a
wrong-access-code submission, samples the lockout DOM state at an early
checkpoint and after the full lockout window, and persists the sampled states
plus the page's console output as one JSON report.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runVerification,
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Execute the lockout verification run",
	RunE:  runVerification,
}

func runVerification(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("root") {
		cfg.Server.Root = rootDir
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port = port
	}
	if cmd.Flags().Changed("out") {
		cfg.Output = outputPath
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := scenario.NewHarness(harnessOptions(cfg), logger)
	if err := h.Run(ctx); err != nil {
		logger.Error("Run aborted", zap.Error(err))
		return err
	}
	return nil
}

// harnessOptions maps the loaded config onto the harness wiring.
func harnessOptions(cfg config.Config) scenario.HarnessOptions {
	srvCfg := server.Config{
		Host:             cfg.Server.Host,
		Port:             cfg.Server.Port,
		Root:             cfg.Server.Root,
		ReadinessTimeout: config.ParseDuration(cfg.Server.ReadinessTimeout, 5*time.Second),
		ShutdownTimeout:  config.ParseDuration(cfg.Server.ShutdownTimeout, 3*time.Second),
	}

	brCfg := browser.Config{
		Bin:                 cfg.Browser.Bin,
		DebuggerURL:         cfg.Browser.DebuggerURL,
		Headless:            cfg.Browser.IsHeadless() && !headed,
		NavigationTimeoutMs: cfg.Browser.NavigationTimeoutMs,
		MaxConsoleEvents:    cfg.Browser.MaxConsoleEvents,
		MaxConsoleTextBytes: cfg.Browser.MaxConsoleTextBytes,
	}

	var scenarios []scenario.Scenario
	for _, sc := range cfg.Scenarios {
		base := scenario.Defaults()[0]
		scenarios = append(scenarios, scenario.Scenario{
			Name:             sc.Name,
			AccessCode:       sc.AccessCode,
			EarlySampleDelay: config.ParseDuration(sc.EarlySampleDelay, base.EarlySampleDelay),
			LockoutWindow:    config.ParseDuration(sc.LockoutWindow, base.LockoutWindow),
			FormWaitTimeout:  config.ParseDuration(sc.FormWaitTimeout, base.FormWaitTimeout),
			SampleTimeout:    config.ParseDuration(sc.SampleTimeout, base.SampleTimeout),
		})
	}

	return scenario.HarnessOptions{
		Server:     srvCfg,
		Browser:    brCfg,
		Scenarios:  scenarios,
		OutputPath: cfg.Output,
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to YAML config file")

	for _, cmd := range []*cobra.Command{rootCmd, runCmd} {
		cmd.Flags().StringVar(&rootDir, "root", "public", "directory served as the site root")
		cmd.Flags().IntVar(&port, "port", 4173, "content server port")
		cmd.Flags().StringVar(&outputPath, "out", "tmp/lockout_results.json", "report output path")
		cmd.Flags().DurationVar(&runTimeout, "timeout", 2*time.Minute, "overall run timeout")
		cmd.Flags().BoolVar(&headed, "headed", false, "run the browser with a visible window")
	}

	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
