// rod.go — live-page Document adapter over a DevTools-driven browser page.
// Mutation observation installs a MutationObserver that accumulates batch
// counts in a window-scoped buffer, drained by a polling goroutine.
package dom

import (
	"context"
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/go-rod/rod"

	"skipai/internal/logging"
)

// PageDocument adapts a rod page to the Document capability.
type PageDocument struct {
	page     *rod.Page
	interval time.Duration

	mu      sync.Mutex
	cancel  context.CancelFunc
	stopped bool
}

// NewPageDocument wraps page. pollInterval controls how often the mutation
// buffer is drained; zero selects 250ms.
func NewPageDocument(page *rod.Page, pollInterval time.Duration) *PageDocument {
	if pollInterval <= 0 {
		pollInterval = 250 * time.Millisecond
	}
	return &PageDocument{page: page, interval: pollInterval}
}

// Container implements Document.
func (d *PageDocument) Container(selector string) (Element, bool) {
	has, el, err := d.page.Has(selector)
	if err != nil || !has {
		return nil, false
	}
	return &pageElement{page: d.page, el: el}, true
}

const installObserverJS = `
() => {
	const w = window;
	if (w.__skipaiObserved) return true;
	w.__skipaiObserved = true;
	w.__skipaiMutations = 0;
	const obs = new MutationObserver((mutations) => {
		w.__skipaiMutations += mutations.length;
	});
	obs.observe(document.documentElement || document.body, { childList: true, subtree: true });
	return true;
}
`

const drainMutationsJS = `
() => {
	const n = window.__skipaiMutations || 0;
	window.__skipaiMutations = 0;
	return n;
}
`

// Observe implements Document. The observer stays attached for the page
// lifetime; stop only halts delivery on this side.
func (d *PageDocument) Observe(fn func(Batch)) (func(), error) {
	if _, err := d.page.Eval(installObserverJS); err != nil {
		return nil, fmt.Errorf("install mutation observer: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	d.mu.Lock()
	d.cancel = cancel
	d.stopped = false
	d.mu.Unlock()

	go func() {
		ticker := time.NewTicker(d.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				res, err := d.page.Eval(drainMutationsJS)
				if err != nil {
					logging.SuppressDebug("drain mutation buffer: %v", err)
					continue
				}
				n := res.Value.Int()
				if n > 0 {
					fn(Batch{Mutations: n})
				}
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			d.stopped = true
			d.mu.Unlock()
			cancel()
		})
	}, nil
}

// pageElement adapts a rod element.
type pageElement struct {
	page *rod.Page
	el   *rod.Element

	handle     uint64
	handleDone bool
}

func (e *pageElement) Handle() uint64 {
	if e.handleDone {
		return e.handle
	}
	// Backend node ids are stable per DOM node for the page session.
	// Remote object ids are NOT: every query materializes fresh object
	// references, so hashing them would give the same node a new identity
	// on each scan and defeat processed-set deduplication.
	if node, err := e.el.Describe(0, false); err == nil && node != nil && node.BackendNodeID != 0 {
		e.handle = uint64(node.BackendNodeID)
		e.handleDone = true
		return e.handle
	}
	// Describe failed (node likely detached mid-scan); fall back to the
	// reference id so the candidate still gets a usable one-off identity.
	h := fnv.New64a()
	if e.el.Object != nil {
		_, _ = h.Write([]byte(e.el.Object.ObjectID))
	}
	e.handle = h.Sum64()
	e.handleDone = true
	return e.handle
}

func (e *pageElement) Tag() string {
	res, err := e.el.Eval(`() => this.tagName.toLowerCase()`)
	if err != nil {
		return ""
	}
	return res.Value.String()
}

func (e *pageElement) Text() string {
	text, err := e.el.Text()
	if err != nil {
		return ""
	}
	return text
}

func (e *pageElement) Attr(name string) string {
	v, err := e.el.Attribute(name)
	if err != nil || v == nil {
		return ""
	}
	return *v
}

func (e *pageElement) Parent() (Element, bool) {
	parent, err := e.el.Parent()
	if err != nil || parent == nil {
		return nil, false
	}
	// html has no useful parent; treat it as the root boundary.
	if res, err := parent.Eval(`() => this.tagName.toLowerCase()`); err == nil &&
		strings.EqualFold(res.Value.String(), "html") {
		return nil, false
	}
	return &pageElement{page: e.page, el: parent}, true
}

func (e *pageElement) Query(selector string) []Element {
	els, err := e.el.Elements(selector)
	if err != nil {
		return nil
	}
	out := make([]Element, 0, len(els))
	for _, el := range els {
		out = append(out, &pageElement{page: e.page, el: el})
	}
	return out
}

func (e *pageElement) SetStyle(property, value string) error {
	_, err := e.el.Eval(`(p, v) => this.style.setProperty(p, v, 'important')`, property, value)
	if err != nil {
		return fmt.Errorf("set style %s=%s: %w", property, value, err)
	}
	return nil
}

const annotateJS = `
(label) => {
	this.style.setProperty('outline', '3px solid #e8710a', 'important');
	this.style.setProperty('position', 'relative', 'important');
	const overlay = document.createElement('div');
	overlay.className = 'skipai-overlay';
	overlay.style.cssText = 'position:absolute;inset:0;background:rgba(232,113,10,0.15);pointer-events:none;z-index:9999;';
	if (label) {
		const tag = document.createElement('span');
		tag.textContent = label;
		tag.style.cssText = 'position:absolute;top:0;left:0;background:#e8710a;color:#fff;font-size:11px;padding:1px 4px;';
		overlay.appendChild(tag);
	}
	this.appendChild(overlay);
}
`

func (e *pageElement) Annotate(label string) error {
	if _, err := e.el.Eval(annotateJS, label); err != nil {
		return fmt.Errorf("annotate element: %w", err)
	}
	return nil
}
