package scenario

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"go.uber.org/zap"

	"lockcheck/internal/browser"
	"lockcheck/internal/report"
)

// ErrFormUnavailable reports that the auth form never became interactable
// within its bound: the page failed to load or its markup changed.
var ErrFormUnavailable = errors.New("auth form never became available")

// Run drives one scenario against a fresh navigation and returns its sampled
// result. The early sample is soft: a timing miss there is recorded as
// absence of data. The final samples are load-bearing and any failure is
// fatal to the scenario.
func Run(ctx context.Context, sess *browser.Session, baseURL string, sc Scenario, logger *zap.Logger) (report.ScenarioResult, error) {
	sc = sc.normalized()
	var zero report.ScenarioResult
	page := sess.Page().Context(ctx)

	// Cache-busting identifier so each run observes a fresh load.
	target := fmt.Sprintf("%s?ts=%d", baseURL, time.Now().UnixNano())
	logger.Info("Running scenario",
		zap.String("scenario", sc.Name),
		zap.String("url", target))

	// Proceed once the document is parsed, not on full resource load.
	waitParsed := page.Timeout(sc.FormWaitTimeout).WaitEvent(&proto.PageDomContentEventFired{})
	if err := page.Timeout(sc.FormWaitTimeout).Navigate(target); err != nil {
		return zero, fmt.Errorf("navigate %s: %w", target, err)
	}
	waitParsed()

	input, err := page.Timeout(sc.FormWaitTimeout).Element(authCodeSelector)
	if err != nil {
		return zero, fmt.Errorf("%w: waiting for %s: %v", ErrFormUnavailable, authCodeSelector, err)
	}
	if err := input.Input(sc.AccessCode); err != nil {
		return zero, fmt.Errorf("fill access code: %w", err)
	}
	submit, err := page.Timeout(sc.FormWaitTimeout).Element(submitSelector)
	if err != nil {
		return zero, fmt.Errorf("%w: waiting for %s: %v", ErrFormUnavailable, submitSelector, err)
	}
	if err := submit.Click(proto.InputMouseButtonLeft, 1); err != nil {
		return zero, fmt.Errorf("submit form: %w", err)
	}
	submittedAt := time.Now()

	// Early sample: shortly after submission, strictly before the lockout
	// window completes. A miss here is swallowed, not asserted.
	if err := sleepUntil(ctx, submittedAt.Add(sc.EarlySampleDelay)); err != nil {
		return zero, err
	}
	var early *report.BodyState
	switch smp := earlyBodySample(page, sc.SampleTimeout); smp.status {
	case SampleOK:
		state := smp.state
		early = &state
	case SampleAbsent:
		logger.Warn("Early sample absent",
			zap.String("scenario", sc.Name),
			zap.Error(smp.err))
	}

	// Let the full lockout window elapse from the submission instant, not
	// from the early sample, so the final reads see stabilized state.
	if err := sleepUntil(ctx, submittedAt.Add(sc.LockoutWindow)); err != nil {
		return zero, err
	}

	overlay := sampleOverlay(page, sc.SampleTimeout)
	if overlay.status != SampleOK {
		return zero, fmt.Errorf("final overlay sample: %w", overlay.err)
	}
	body := sampleBody(page, sc.SampleTimeout)
	if body.status != SampleOK {
		return zero, fmt.Errorf("final body sample: %w", body.err)
	}

	return report.ScenarioResult{
		Scenario:  sc.Name,
		Overlay:   overlay.state,
		Body:      body.state,
		BodyEarly: early,
	}, nil
}

// earlyBodySample reads the body state softly: any failure collapses to an
// absent sample instead of an error, since absence at the early checkpoint is
// informative, not erroneous.
func earlyBodySample(page *rod.Page, timeout time.Duration) bodySample {
	smp := sampleBody(page, timeout)
	if smp.status != SampleOK {
		return bodySample{status: SampleAbsent, err: smp.err}
	}
	return smp
}

// sampleBody projects the body's lockout state via an evaluated read-only
// function.
func sampleBody(page *rod.Page, timeout time.Duration) bodySample {
	res, err := page.Timeout(timeout).Evaluate(&rod.EvalOptions{
		JS: `(cls) => ({
			lockout: document.body.classList.contains(cls),
			classes: document.body.className,
		})`,
		JSArgs:       []interface{}{bodyLockoutClass},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return bodySample{status: SampleFailed, err: fmt.Errorf("evaluate body state: %w", err)}
	}
	if res == nil {
		return bodySample{status: SampleFailed, err: errors.New("evaluate body state: empty result")}
	}
	var state report.BodyState
	if err := decodeEval(res, &state); err != nil {
		return bodySample{status: SampleFailed, err: err}
	}
	return bodySample{status: SampleOK, state: state}
}

// sampleOverlay projects the lockout overlay's visual state. A missing
// overlay element surfaces as an evaluation error.
func sampleOverlay(page *rod.Page, timeout time.Duration) overlaySample {
	res, err := page.Timeout(timeout).Evaluate(&rod.EvalOptions{
		JS: `(sel, hiddenCls, activeCls) => {
			const el = document.querySelector(sel);
			if (!el) throw new Error('missing element: ' + sel);
			return {
				hidden: el.classList.contains(hiddenCls),
				active: el.classList.contains(activeCls),
				className: el.className,
			};
		}`,
		JSArgs:       []interface{}{overlaySelector, overlayHiddenClass, overlayActiveClass},
		ByValue:      true,
		AwaitPromise: true,
	})
	if err != nil {
		return overlaySample{status: SampleFailed, err: fmt.Errorf("evaluate overlay state: %w", err)}
	}
	if res == nil {
		return overlaySample{status: SampleFailed, err: errors.New("evaluate overlay state: empty result")}
	}
	var state report.OverlayState
	if err := decodeEval(res, &state); err != nil {
		return overlaySample{status: SampleFailed, err: err}
	}
	return overlaySample{status: SampleOK, state: state}
}

func decodeEval(res *proto.RuntimeRemoteObject, out interface{}) error {
	raw, err := res.Value.MarshalJSON()
	if err != nil {
		return fmt.Errorf("marshal evaluated state: %w", err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode evaluated state: %w", err)
	}
	return nil
}

// sleepUntil blocks until the deadline or context cancellation.
func sleepUntil(ctx context.Context, deadline time.Time) error {
	d := time.Until(deadline)
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
