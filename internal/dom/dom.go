// Package dom abstracts the page document behind a minimal query/observe
// capability so the suppression engine can run against a live browser page
// (rod adapter) or an in-memory document (tests) through one interface.
package dom

// Element is a handle to one node in the observed document.
type Element interface {
	// Handle returns a stable numeric identity for the node, valid for the
	// lifetime of the page session. Handles are owned by the document
	// arena; holding a handle never pins the underlying node.
	Handle() uint64
	// Tag returns the lowercase tag name.
	Tag() string
	// Text returns the visible inner text of the subtree.
	Text() string
	// Attr returns the attribute value, or "" when absent.
	Attr(name string) string
	// Parent returns the parent element, false at the document root.
	Parent() (Element, bool)
	// Query returns descendant elements matching a CSS-style selector.
	Query(selector string) []Element
	// SetStyle sets an inline style property on the node.
	SetStyle(property, value string) error
	// Annotate overlays a visible highlight with an optional label.
	Annotate(label string) error
}

// Batch describes one delivered group of document mutations. The engine
// only needs to know that something changed; it always rescans the full
// container.
type Batch struct {
	Mutations int
}

// Document is the injected DOM access capability.
type Document interface {
	// Container returns the element for the given selector, or false when
	// the page has not rendered it yet (not an error).
	Container(selector string) (Element, bool)
	// Observe registers fn for mutation batches and starts observation.
	// The returned stop function detaches the observer; it is safe to call
	// more than once.
	Observe(fn func(Batch)) (stop func(), err error)
}
