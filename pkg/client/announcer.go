package client

import (
	"sync"
	"time"
)

// Politeness is the aria-live level of an announcement.
type Politeness string

const (
	Polite    Politeness = "polite"
	Assertive Politeness = "assertive"
)

// LiveRegion is the document's single aria-live element.
type LiveRegion interface {
	Announce(p Politeness, text string)
}

// Announcer reads page changes to assistive technology. Announcements are
// debounced so only the last one in a burst is spoken, after the new view
// has painted. Each is set politely first and repeated assertively one delay
// later unless a newer announcement replaced it.
type Announcer struct {
	region LiveRegion
	delay  time.Duration

	mu    sync.Mutex
	seq   uint64
	timer *time.Timer
}

// NewAnnouncer returns an announcer writing to region. A nil region makes
// every call a no-op.
func NewAnnouncer(region LiveRegion, delay time.Duration) *Announcer {
	if delay <= 0 {
		delay = DefaultAnnounceDelay
	}
	return &Announcer{region: region, delay: delay}
}

// Announce schedules text.
func (a *Announcer) Announce(text string) {
	if a == nil || a.region == nil || text == "" {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	seq := a.seq
	if a.timer != nil {
		a.timer.Stop()
	}
	a.timer = time.AfterFunc(a.delay, func() { a.fire(seq, text, Polite) })
}

func (a *Announcer) fire(seq uint64, text string, p Politeness) {
	a.mu.Lock()
	if seq != a.seq {
		a.mu.Unlock()
		return
	}
	if p == Polite {
		a.timer = time.AfterFunc(a.delay, func() { a.fire(seq, text, Assertive) })
	} else {
		a.timer = nil
	}
	a.mu.Unlock()
	a.region.Announce(p, text)
}

// Stop cancels any pending announcement.
func (a *Announcer) Stop() {
	if a == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	if a.timer != nil {
		a.timer.Stop()
		a.timer = nil
	}
}
