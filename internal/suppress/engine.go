// Package suppress implements the page-resident suppression engine: it
// watches the live document for structural changes, locates AI-summary
// regions through four scan strategies, and applies the configured display
// mode to each newly found region exactly once.
package suppress

import (
	"context"
	"fmt"
	"sync"
	"time"

	"skipai/internal/dom"
	"skipai/internal/logging"
	"skipai/internal/matcher"
	"skipai/internal/protocol"
)

// State is the engine's observer lifecycle state.
type State int

const (
	// StateIdle means no observer is attached.
	StateIdle State = iota
	// StateObserving means the mutation observer is active.
	StateObserving
)

// Reason classifies why a region was selected for suppression.
type Reason string

const (
	ReasonHeading    Reason = "heading"
	ReasonRelated    Reason = "related-questions"
	ReasonInlineCard Reason = "inline-card"
	ReasonTabControl Reason = "tab-control"
)

// ModeSource supplies the current display mode. The content-side messenger
// implements this with a memoized fetch and a build-channel default.
type ModeSource interface {
	DisplayMode(ctx context.Context) protocol.DisplayMode
}

// Reporter receives session counters after each scan. Reports are
// fire-and-forget: the engine never blocks on or fails from reporting.
type Reporter interface {
	ReportStats(ctx context.Context, hidden, dupes int)
}

// Counts is a snapshot of the session counters.
type Counts struct {
	Hidden int
	Dupes  int
}

// Options configure the scan strategies and pacing.
type Options struct {
	// ContainerSelector locates the main content container. When absent
	// the scan is a no-op (page not yet rendered).
	ContainerSelector string
	// HeadingSelector selects candidate marker headings.
	HeadingSelector string
	// BoundaryAttrs mark an ancestor as a suppressible region boundary
	// for heading-based detection.
	BoundaryAttrs []string
	// MaxAscend bounds the boundary search; past it the heading's parent
	// is used.
	MaxAscend int
	// RelatedSelector selects "people also ask" question entries.
	RelatedSelector string
	// RelatedAscendLevels is the fixed number of levels from a matched
	// question up to its cluster container.
	RelatedAscendLevels int
	// InlineCardTag is the custom element tag of inline AI cards.
	InlineCardTag string
	// TabSelector selects tab controls; only the first matching tab is
	// ever suppressed, since at most one such control exists per page.
	TabSelector string
	// ScanInterval is the minimum wall-clock spacing between scans.
	// Mutation batches inside the window are coalesced into one deferred
	// full rescan, so latency is traded for throughput but no suppression
	// opportunity is lost.
	ScanInterval time.Duration
	// DevBuild enables the diagnostic label on highlight overlays.
	DevBuild bool
}

// DefaultOptions returns the maintained selector set.
func DefaultOptions() Options {
	return Options{
		ContainerSelector:   "#search",
		HeadingSelector:     "h1, h2",
		BoundaryAttrs:       []string{"jscontroller", "data-async-context"},
		MaxAscend:           8,
		RelatedSelector:     "div[data-q]",
		RelatedAscendLevels: 3,
		InlineCardTag:       "ai-overview",
		TabSelector:         "a[role=tab]",
		ScanInterval:        200 * time.Millisecond,
		DevBuild:            false,
	}
}

// Engine owns the mutation observer and the per-page-load processed set.
// Construct one instance per page load; session counters reset with the
// instance, never behind its back.
type Engine struct {
	doc      dom.Document
	match    *matcher.Matcher
	modes    ModeSource
	reporter Reporter
	opts     Options

	mu          sync.Mutex
	state       State
	stopObserve func()
	processed   map[uint64]struct{}
	hidden      int
	dupes       int
	lastScan    time.Time
	pending     *time.Timer

	now func() time.Time // overridable in tests
}

type candidate struct {
	el     dom.Element
	reason Reason
}

// New creates an engine in the Idle state.
func New(doc dom.Document, m *matcher.Matcher, modes ModeSource, reporter Reporter, opts Options) *Engine {
	if opts.ScanInterval <= 0 {
		opts.ScanInterval = DefaultOptions().ScanInterval
	}
	if opts.MaxAscend <= 0 {
		opts.MaxAscend = DefaultOptions().MaxAscend
	}
	return &Engine{
		doc:       doc,
		match:     m,
		modes:     modes,
		reporter:  reporter,
		opts:      opts,
		processed: make(map[uint64]struct{}),
		now:       time.Now,
	}
}

// Start attaches the mutation observer and runs an initial scan. Calling
// Start while observing is an error.
func (e *Engine) Start(ctx context.Context) error {
	e.mu.Lock()
	if e.state == StateObserving {
		e.mu.Unlock()
		return fmt.Errorf("suppression engine already observing")
	}
	stop, err := e.doc.Observe(func(dom.Batch) {
		e.onBatch(ctx)
	})
	if err != nil {
		e.mu.Unlock()
		return fmt.Errorf("attach mutation observer: %w", err)
	}
	e.stopObserve = stop
	e.state = StateObserving
	e.mu.Unlock()

	logging.Suppress("engine observing (interval=%v)", e.opts.ScanInterval)
	e.onBatch(ctx)
	return nil
}

// Stop detaches the observer and returns to Idle. Not exercised during
// normal page operation; it exists for lifecycle symmetry and tests.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.state == StateIdle {
		return
	}
	if e.stopObserve != nil {
		e.stopObserve()
		e.stopObserve = nil
	}
	if e.pending != nil {
		e.pending.Stop()
		e.pending = nil
	}
	e.state = StateIdle
	logging.Suppress("engine stopped")
}

// State returns the current lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Counts returns the current session counters.
func (e *Engine) Counts() Counts {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Counts{Hidden: e.hidden, Dupes: e.dupes}
}

// onBatch coalesces mutation batches into at most one scan per interval.
func (e *Engine) onBatch(ctx context.Context) {
	e.mu.Lock()
	if e.state != StateObserving {
		e.mu.Unlock()
		return
	}
	since := e.now().Sub(e.lastScan)
	if since >= e.opts.ScanInterval {
		e.lastScan = e.now()
		e.mu.Unlock()
		e.scan(ctx)
		return
	}
	if e.pending == nil {
		delay := e.opts.ScanInterval - since
		e.pending = time.AfterFunc(delay, func() {
			e.mu.Lock()
			e.pending = nil
			if e.state != StateObserving {
				e.mu.Unlock()
				return
			}
			e.lastScan = e.now()
			e.mu.Unlock()
			e.scan(ctx)
		})
	}
	e.mu.Unlock()
}

// scan runs the four strategies against the main container and applies the
// display mode to each region not yet processed.
func (e *Engine) scan(ctx context.Context) {
	timer := logging.StartTimer(logging.CategorySuppress, "scan")
	defer timer.StopWithThreshold(50 * time.Millisecond)

	container, ok := e.doc.Container(e.opts.ContainerSelector)
	if !ok {
		// Page not rendered yet; the next mutation batch retries.
		logging.SuppressDebug("container %q absent, skipping scan", e.opts.ContainerSelector)
		return
	}

	mode := e.modes.DisplayMode(ctx)
	newlyHidden := 0

	for _, c := range e.collect(container) {
		handle := c.el.Handle()
		e.mu.Lock()
		_, done := e.processed[handle]
		e.mu.Unlock()
		if done {
			e.mu.Lock()
			e.dupes++
			e.mu.Unlock()
			continue
		}
		if !mode.Valid() {
			// Never guess a destructive action on an unknown mode.
			logging.SuppressError("unknown display mode %q, skipping %s region", mode, c.reason)
			continue
		}
		if err := e.apply(mode, c); err != nil {
			logging.SuppressWarn("apply %s to %s region: %v", mode, c.reason, err)
			continue
		}
		e.mu.Lock()
		e.processed[handle] = struct{}{}
		e.hidden++
		e.mu.Unlock()
		newlyHidden++
	}

	if newlyHidden > 0 {
		logging.Suppress("suppressed %d new region(s)", newlyHidden)
	}

	counts := e.Counts()
	if e.reporter != nil {
		// Fire-and-forget: reporting failures are logged downstream and
		// never stall suppression.
		go e.reporter.ReportStats(ctx, counts.Hidden, counts.Dupes)
	}
}

// collect gathers candidate regions from all strategies, deduplicated
// within the batch so overlapping strategies pick one reason.
func (e *Engine) collect(container dom.Element) []candidate {
	var out []candidate
	seen := make(map[uint64]struct{})
	add := func(el dom.Element, reason Reason) {
		if el == nil {
			return
		}
		h := el.Handle()
		if _, dup := seen[h]; dup {
			return
		}
		seen[h] = struct{}{}
		out = append(out, candidate{el: el, reason: reason})
	}

	for _, h := range container.Query(e.opts.HeadingSelector) {
		if !e.match.Matches(h.Text()) {
			continue
		}
		add(e.ascendToBoundary(h), ReasonHeading)
	}

	if e.opts.RelatedSelector != "" {
		for _, q := range container.Query(e.opts.RelatedSelector) {
			if !e.match.Matches(q.Text()) {
				continue
			}
			add(ascendLevels(q, e.opts.RelatedAscendLevels), ReasonRelated)
		}
	}

	if e.opts.InlineCardTag != "" {
		for _, card := range container.Query(e.opts.InlineCardTag) {
			add(card, ReasonInlineCard)
		}
	}

	if e.opts.TabSelector != "" {
		for _, tab := range container.Query(e.opts.TabSelector) {
			if e.match.Matches(tab.Text()) {
				add(tab, ReasonTabControl)
				break // only one such control can exist per page
			}
		}
	}

	return out
}

// ascendToBoundary walks up from a matched heading to the nearest ancestor
// carrying a boundary attribute. Falls back to the heading's parent when
// no boundary exists within MaxAscend levels.
func (e *Engine) ascendToBoundary(el dom.Element) dom.Element {
	cur := el
	for i := 0; i < e.opts.MaxAscend; i++ {
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
		for _, attr := range e.opts.BoundaryAttrs {
			if cur.Attr(attr) != "" {
				return cur
			}
		}
	}
	if parent, ok := el.Parent(); ok {
		return parent
	}
	return el
}

// ascendLevels climbs a fixed number of levels, stopping at the root.
func ascendLevels(el dom.Element, levels int) dom.Element {
	cur := el
	for i := 0; i < levels; i++ {
		parent, ok := cur.Parent()
		if !ok {
			break
		}
		cur = parent
	}
	return cur
}

// apply performs the display-mode action on one region.
func (e *Engine) apply(mode protocol.DisplayMode, c candidate) error {
	switch mode {
	case protocol.ModeHide:
		return c.el.SetStyle("display", "none")
	case protocol.ModeHighlight:
		label := ""
		if e.opts.DevBuild {
			label = string(c.reason)
		}
		return c.el.Annotate(label)
	}
	return fmt.Errorf("unknown display mode %q", mode)
}
