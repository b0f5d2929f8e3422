package browser

import (
	"strings"
	"sync"

	"github.com/go-rod/rod/lib/proto"

	"lockcheck/internal/report"
)

// consoleLog is the append-only store of console messages for one session.
// Events arrive from a single drain goroutine; snapshots may be taken from
// any goroutine. Order is emission order and is never rewritten.
type consoleLog struct {
	mu        sync.Mutex
	events    []report.ConsoleEvent
	maxEvents int
	maxText   int
	dropped   int
}

func newConsoleLog(maxEvents, maxText int) *consoleLog {
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	if maxText <= 0 {
		maxText = 4096
	}
	return &consoleLog{maxEvents: maxEvents, maxText: maxText}
}

// Append records one event, truncating oversized text. Once the event cap is
// reached further events are dropped rather than crashing the run or evicting
// earlier messages.
func (l *consoleLog) Append(ev report.ConsoleEvent) {
	if len(ev.Text) > l.maxText {
		ev.Text = ev.Text[:l.maxText] + "…[truncated]"
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.events) >= l.maxEvents {
		l.dropped++
		return
	}
	l.events = append(l.events, ev)
}

// Snapshot returns a copy of the captured events in emission order.
func (l *consoleLog) Snapshot() []report.ConsoleEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]report.ConsoleEvent, len(l.events))
	copy(out, l.events)
	return out
}

// Dropped returns how many events were discarded at the cap.
func (l *consoleLog) Dropped() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.dropped
}

// stringifyConsoleArgs flattens CDP console arguments into one line of text.
func stringifyConsoleArgs(args []*proto.RuntimeRemoteObject) string {
	parts := make([]string, 0, len(args))
	for _, a := range args {
		if a == nil {
			continue
		}
		if !a.Value.Nil() {
			parts = append(parts, a.Value.String())
			continue
		}
		if a.Description != "" {
			parts = append(parts, a.Description)
		}
	}
	return strings.Join(parts, " ")
}
