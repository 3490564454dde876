// fake.go — in-memory document used by the suppression engine tests and by
// any environment without a live page. Supports the selector subset the
// engine actually uses: comma lists of tag names, #id, [attr],
// [attr=value], and tag[attr=value].
package dom

import (
	"strings"
	"sync"
)

// FakeDocument is an in-memory Document. Mutating methods notify attached
// observers synchronously.
type FakeDocument struct {
	mu         sync.Mutex
	root       *Node
	nextHandle uint64
	observers  map[int]func(Batch)
	nextObsID  int
}

// NewFakeDocument creates a document with an empty root node.
func NewFakeDocument() *FakeDocument {
	d := &FakeDocument{observers: map[int]func(Batch){}}
	d.root = d.newNode("html", "")
	return d
}

// Root returns the document root node.
func (d *FakeDocument) Root() *Node { return d.root }

func (d *FakeDocument) newNode(tag, text string) *Node {
	d.nextHandle++
	return &Node{
		doc:    d,
		handle: d.nextHandle,
		tag:    strings.ToLower(tag),
		text:   text,
		attrs:  map[string]string{},
		styles: map[string]string{},
	}
}

// NewNode creates a detached node. Attach with Append.
func (d *FakeDocument) NewNode(tag, text string, attrs map[string]string) *Node {
	d.mu.Lock()
	n := d.newNode(tag, text)
	d.mu.Unlock()
	for k, v := range attrs {
		n.attrs[k] = v
	}
	return n
}

// Append attaches child under parent and delivers a mutation batch.
func (d *FakeDocument) Append(parent, child *Node) {
	d.mu.Lock()
	child.parent = parent
	parent.children = append(parent.children, child)
	obs := make([]func(Batch), 0, len(d.observers))
	for _, fn := range d.observers {
		obs = append(obs, fn)
	}
	d.mu.Unlock()
	for _, fn := range obs {
		fn(Batch{Mutations: 1})
	}
}

// Container implements Document.
func (d *FakeDocument) Container(selector string) (Element, bool) {
	matches := d.root.Query(selector)
	if len(matches) == 0 {
		return nil, false
	}
	return matches[0], true
}

// Observe implements Document.
func (d *FakeDocument) Observe(fn func(Batch)) (func(), error) {
	d.mu.Lock()
	id := d.nextObsID
	d.nextObsID++
	d.observers[id] = fn
	d.mu.Unlock()
	var once sync.Once
	return func() {
		once.Do(func() {
			d.mu.Lock()
			delete(d.observers, id)
			d.mu.Unlock()
		})
	}, nil
}

// ObserverCount returns the number of attached observers. Test helper.
func (d *FakeDocument) ObserverCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.observers)
}

// Node is a FakeDocument element.
type Node struct {
	doc        *FakeDocument
	handle     uint64
	tag        string
	text       string
	attrs      map[string]string
	parent     *Node
	children   []*Node
	styles     map[string]string
	annotation string
	annotated  bool
}

func (n *Node) Handle() uint64 { return n.handle }
func (n *Node) Tag() string    { return n.tag }

// Text returns the visible inner text: own text plus descendants, skipping
// display:none subtrees, joined by single spaces.
func (n *Node) Text() string {
	if n.styles["display"] == "none" {
		return ""
	}
	parts := make([]string, 0, 4)
	if strings.TrimSpace(n.text) != "" {
		parts = append(parts, strings.TrimSpace(n.text))
	}
	for _, c := range n.children {
		if t := c.Text(); t != "" {
			parts = append(parts, t)
		}
	}
	return strings.Join(parts, " ")
}

func (n *Node) Attr(name string) string { return n.attrs[name] }

func (n *Node) Parent() (Element, bool) {
	if n.parent == nil {
		return nil, false
	}
	return n.parent, true
}

// Query implements the selector subset documented on the file header.
func (n *Node) Query(selector string) []Element {
	var out []Element
	for _, alt := range strings.Split(selector, ",") {
		pred, ok := parseSimpleSelector(strings.TrimSpace(alt))
		if !ok {
			continue
		}
		n.walk(func(c *Node) {
			if c != n && pred(c) {
				out = append(out, c)
			}
		})
	}
	return out
}

func (n *Node) walk(fn func(*Node)) {
	fn(n)
	for _, c := range n.children {
		c.walk(fn)
	}
}

func (n *Node) SetStyle(property, value string) error {
	n.styles[property] = value
	return nil
}

func (n *Node) Annotate(label string) error {
	n.annotated = true
	n.annotation = label
	return nil
}

// Style returns the inline style value. Test helper.
func (n *Node) Style(property string) string { return n.styles[property] }

// Hidden reports whether the node was removed from layout. Test helper.
func (n *Node) Hidden() bool { return n.styles["display"] == "none" }

// Annotated reports whether a highlight overlay is attached, and its
// label. Test helper.
func (n *Node) Annotated() (bool, string) { return n.annotated, n.annotation }

// parseSimpleSelector compiles one selector alternative into a predicate.
func parseSimpleSelector(sel string) (func(*Node) bool, bool) {
	if sel == "" {
		return nil, false
	}
	// #id sugar: "#search" and "div#search".
	if i := strings.IndexByte(sel, '#'); i >= 0 && !strings.ContainsAny(sel, "[]") {
		sel = sel[:i] + "[id=" + sel[i+1:] + "]"
	}
	tag := sel
	attrExpr := ""
	if i := strings.IndexByte(sel, '['); i >= 0 {
		if !strings.HasSuffix(sel, "]") {
			return nil, false
		}
		tag = sel[:i]
		attrExpr = sel[i+1 : len(sel)-1]
	}
	tag = strings.ToLower(tag)
	var attrName, attrValue string
	hasValue := false
	if attrExpr != "" {
		if j := strings.IndexByte(attrExpr, '='); j >= 0 {
			attrName = attrExpr[:j]
			attrValue = strings.Trim(attrExpr[j+1:], `"'`)
			hasValue = true
		} else {
			attrName = attrExpr
		}
	}
	return func(n *Node) bool {
		if tag != "" && tag != "*" && n.tag != tag {
			return false
		}
		if attrName != "" {
			v, ok := n.attrs[attrName]
			if !ok {
				return false
			}
			if hasValue && v != attrValue {
				return false
			}
		}
		return true
	}, true
}
