package scenario

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lockcheck/internal/browser"
	"lockcheck/internal/report"
	"lockcheck/internal/server"
)

// HarnessOptions wires the harness together.
type HarnessOptions struct {
	Server     server.Config
	Browser    browser.Config
	Scenarios  []Scenario
	OutputPath string
}

// Harness orchestrates one full run: content server up, browser session up,
// scenarios in order, aggregate, persist. Both external resources are
// released on every exit path; a fatal error anywhere skips the remaining
// steps, still runs cleanup, and writes nothing — a failed run never
// overwrites a previous artifact.
type Harness struct {
	opts   HarnessOptions
	logger *zap.Logger
}

// NewHarness creates a harness. Empty scenario lists fall back to Defaults.
func NewHarness(opts HarnessOptions, logger *zap.Logger) *Harness {
	if len(opts.Scenarios) == 0 {
		opts.Scenarios = Defaults()
	}
	return &Harness{opts: opts, logger: logger}
}

// Run executes the full verification run.
func (h *Harness) Run(ctx context.Context) (err error) {
	srv, err := server.Start(h.opts.Server, h.logger)
	if err != nil {
		return fmt.Errorf("content server: %w", err)
	}
	defer func() {
		if stopErr := srv.Stop(context.Background()); stopErr != nil && err == nil {
			err = fmt.Errorf("stop content server: %w", stopErr)
		}
	}()

	sess, err := browser.Open(ctx, h.opts.Browser, h.logger)
	if err != nil {
		return fmt.Errorf("browser session: %w", err)
	}
	defer func() {
		if closeErr := sess.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("close browser session: %w", closeErr)
		}
	}()

	results := make([]report.ScenarioResult, 0, len(h.opts.Scenarios))
	for _, sc := range h.opts.Scenarios {
		res, runErr := Run(ctx, sess, srv.URL(), sc, h.logger)
		if runErr != nil {
			return fmt.Errorf("scenario %q: %w", sc.Name, runErr)
		}
		results = append(results, res)
	}

	rep := report.Aggregate(results, sess.ConsoleEvents())
	if err := report.Write(rep, h.opts.OutputPath); err != nil {
		return fmt.Errorf("persist report: %w", err)
	}
	h.logger.Info("Wrote results",
		zap.String("path", h.opts.OutputPath),
		zap.Int("scenarios", len(rep.Results)),
		zap.Int("console_events", len(rep.Console)))
	return nil
}
