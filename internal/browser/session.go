// Package browser launches and tears down the isolated headless Chrome
// session the scenarios run in, and captures the page's console output.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"lockcheck/internal/report"
)

// Config holds browser configuration.
type Config struct {
	Bin                 string `yaml:"bin"`          // Chrome binary, empty = auto-resolve
	DebuggerURL         string `yaml:"debugger_url"` // attach instead of launching
	Headless            bool   `yaml:"headless"`
	NavigationTimeoutMs int    `yaml:"navigation_timeout_ms"`
	MaxConsoleEvents    int    `yaml:"max_console_events"`
	MaxConsoleTextBytes int    `yaml:"max_console_text_bytes"`
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Headless:            true,
		NavigationTimeoutMs: 30000,
		MaxConsoleEvents:    10000,
		MaxConsoleTextBytes: 4096,
	}
}

// NavigationTimeout returns the navigation timeout.
func (c Config) NavigationTimeout() time.Duration {
	if c.NavigationTimeoutMs == 0 {
		return 30 * time.Second
	}
	return time.Duration(c.NavigationTimeoutMs) * time.Millisecond
}

// Session is one isolated browser instance with a single page and an attached
// console sink. Always release it with Close, deferred on every exit path.
type Session struct {
	ID     string
	cfg    Config
	logger *zap.Logger

	launch  *launcher.Launcher
	browser *rod.Browser
	page    *rod.Page
	log     *consoleLog

	closeOnce sync.Once
	closeErr  error
	drained   chan struct{}
}

// Open launches headless Chrome, opens one incognito page, and attaches the
// console listener before any navigation so messages emitted during page boot
// are not missed. Launch failures are fatal; the caller aborts the run.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (*Session, error) {
	controlURL := cfg.DebuggerURL
	var launch *launcher.Launcher
	if controlURL == "" {
		launch = launcher.New().Headless(cfg.Headless)
		if cfg.Bin != "" {
			launch = launch.Bin(cfg.Bin)
		}
		url, err := launch.Launch()
		if err != nil {
			return nil, fmt.Errorf("launch chrome: %w", err)
		}
		controlURL = url
	}

	killLaunch := func() {
		if launch != nil {
			launch.Kill()
			launch.Cleanup()
		}
	}

	b := rod.New().ControlURL(controlURL).Context(ctx)
	if err := b.Connect(); err != nil {
		killLaunch()
		return nil, fmt.Errorf("connect to chrome: %w", err)
	}

	s := &Session{
		ID:      uuid.NewString(),
		cfg:     cfg,
		logger:  logger,
		launch:  launch,
		browser: b,
		log:     newConsoleLog(cfg.MaxConsoleEvents, cfg.MaxConsoleTextBytes),
		drained: make(chan struct{}),
	}

	incognito, err := b.Incognito()
	if err != nil {
		_ = b.Close()
		killLaunch()
		return nil, fmt.Errorf("incognito context: %w", err)
	}
	page, err := incognito.Page(proto.TargetCreateTarget{URL: "about:blank"})
	if err != nil {
		_ = b.Close()
		killLaunch()
		return nil, fmt.Errorf("create page: %w", err)
	}
	s.page = page

	// Console stream drains through a single goroutine into the log; the
	// listener is live before the first navigation.
	wait := page.EachEvent(func(ev *proto.RuntimeConsoleAPICalled) {
		s.log.Append(report.ConsoleEvent{
			Type: string(ev.Type),
			Text: stringifyConsoleArgs(ev.Args),
		})
	})
	go func() {
		defer close(s.drained)
		wait()
	}()

	logger.Debug("Browser session open",
		zap.String("session", s.ID),
		zap.Bool("headless", cfg.Headless))
	return s, nil
}

// Page returns the session's page for the scenario driver.
func (s *Session) Page() *rod.Page {
	return s.page
}

// ConsoleEvents returns the console messages captured so far, in emission
// order.
func (s *Session) ConsoleEvents() []report.ConsoleEvent {
	return s.log.Snapshot()
}

// Close tears down the page, the browser, and the launched Chrome process
// unconditionally. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		if s.page != nil {
			_ = s.page.Close()
		}
		if s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		if s.launch != nil {
			s.launch.Kill()
			s.launch.Cleanup()
		}
		// Give the console drain a moment to observe the closed transport.
		select {
		case <-s.drained:
		case <-time.After(2 * time.Second):
		}
		if n := s.log.Dropped(); n > 0 {
			s.logger.Warn("Console events dropped at cap", zap.Int("dropped", n))
		}
		s.logger.Debug("Browser session closed", zap.String("session", s.ID))
	})
	return s.closeErr
}
