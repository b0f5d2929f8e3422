// Package scenario defines the access-code scenarios and drives them against
// a live page: navigate, submit, and sample the lockout DOM state on a fixed
// schedule.
package scenario

import "time"

// DOM contract of the target page. Changing any of these on the page breaks
// the harness at the corresponding read.
const (
	authCodeSelector = "#auth-code"
	submitSelector   = "#auth-form button[type=submit]"
	overlaySelector  = "#lockout-overlay"

	overlayHiddenClass = "is-hidden"
	overlayActiveClass = "is-active"
	bodyLockoutClass   = "lockout-active"
)

// Scenario declares one access-code submission and its sampling schedule.
// Scenarios run strictly in sequence against a fresh navigation each, so
// samples are always ordered relative to the navigation that produced them.
type Scenario struct {
	// Name identifies the scenario in the persisted results.
	Name string

	// AccessCode is the value submitted into the auth form.
	AccessCode string

	// EarlySampleDelay is how long after submission the early body sample is
	// taken. It must precede the lockout activation window.
	EarlySampleDelay time.Duration

	// LockoutWindow is the total time after submission before the final
	// overlay and body samples are taken.
	LockoutWindow time.Duration

	// FormWaitTimeout bounds the wait for the auth form to become
	// interactable. Exceeding it is fatal.
	FormWaitTimeout time.Duration

	// SampleTimeout bounds each DOM read. An early read exceeding it is
	// recorded as an absent sample; a final read exceeding it is fatal.
	SampleTimeout time.Duration
}

// Defaults returns the standard scenario list: a single wrong-code submission
// against a page whose lockout window is 5 seconds.
func Defaults() []Scenario {
	return []Scenario{
		{
			Name:             "access",
			AccessCode:       "wrong-code",
			EarlySampleDelay: 220 * time.Millisecond,
			LockoutWindow:    5200 * time.Millisecond,
			FormWaitTimeout:  10 * time.Second,
			SampleTimeout:    2 * time.Second,
		},
	}
}

// normalized fills zero timing fields with the defaults so partially
// specified scenarios from config still run with sane bounds.
func (s Scenario) normalized() Scenario {
	d := Defaults()[0]
	if s.EarlySampleDelay <= 0 {
		s.EarlySampleDelay = d.EarlySampleDelay
	}
	if s.LockoutWindow <= 0 {
		s.LockoutWindow = d.LockoutWindow
	}
	if s.FormWaitTimeout <= 0 {
		s.FormWaitTimeout = d.FormWaitTimeout
	}
	if s.SampleTimeout <= 0 {
		s.SampleTimeout = d.SampleTimeout
	}
	return s
}
