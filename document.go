// Package sshdedit edits sshd_config files declaratively.
//
// Parse turns the file into a Document of comments, settings and Match blocks; EnsurePresent and
// EnsureAbsent converge one (key, condition) address to a desired state under a per-key Policy;
// Render writes the tree back, leaving every untouched line as it was.
package sshdedit

import (
	"strings"
)

// Node is one element of a Document: *Comment, *Setting or *MatchBlock.
type Node interface {
	// Line is the 1-based source line, or 0 for nodes created by an edit.
	Line() int
	meta() *trivia
}

// trivia is what a node carries besides its meaning: the verbatim source line, the blank lines
// in front of it and its indentation. A node with an empty raw renders from its fields.
type trivia struct {
	raw    string
	line   int
	blank  []string
	indent string
}

func (t *trivia) Line() int     { return t.line }
func (t *trivia) meta() *trivia { return t }

// Comment is a # line. Text excludes the # and surrounding whitespace.
type Comment struct {
	trivia
	Text string
}

// Setting is a Key followed by its values.
type Setting struct {
	trivia
	Key    string
	Values []string
}

// MatchBlock is a Match line and every comment and setting up to the next Match line.
type MatchBlock struct {
	trivia
	Condition Condition
	body      []Node
}

// Body returns the block's comments and settings in order.
func (b *MatchBlock) Body() []Node { return b.body }

// Settings returns the block's settings in order.
func (b *MatchBlock) Settings() []*Setting { return settingsOf(b.body) }

// Document is a parsed sshd configuration file.
type Document struct {
	nodes    []Node
	trailing []string
	crlf     bool
	final    bool // ends with a newline
	indent   string
	policy   *Policy
}

// NewDocument returns an empty document using policy p (nil for DefaultPolicy).
func NewDocument(p *Policy) *Document {
	if p == nil {
		p = DefaultPolicy()
	}
	return &Document{final: true, indent: defaultIndent, policy: p}
}

// Nodes returns the top-level nodes in order.
func (d *Document) Nodes() []Node { return d.nodes }

// Settings returns the top-level settings in order.
func (d *Document) Settings() []*Setting { return settingsOf(d.nodes) }

// Blocks returns the Match blocks in order.
func (d *Document) Blocks() []*MatchBlock {
	var out []*MatchBlock
	for _, n := range d.nodes {
		if b, ok := n.(*MatchBlock); ok {
			out = append(out, b)
		}
	}
	return out
}

// Policy returns the policy the document edits with.
func (d *Document) Policy() *Policy { return d.policy }

// IndexOf returns the position of n among the children of parent (nil for the root), or -1.
func (d *Document) IndexOf(parent *MatchBlock, n Node) int {
	return d.scope(parent).index(n)
}

// InsertBefore inserts n in front of the i-th child of parent. The blank lines in front of the
// displaced node move to n.
func (d *Document) InsertBefore(parent *MatchBlock, i int, n Node) {
	d.scope(parent).insertBefore(i, n)
}

// InsertAfter inserts n right after the i-th child of parent.
func (d *Document) InsertAfter(parent *MatchBlock, i int, n Node) {
	d.scope(parent).insertAfter(i, n)
}

// Append adds n as the last child of parent.
func (d *Document) Append(parent *MatchBlock, n Node) {
	sc := d.scope(parent)
	sc.insertAfter(len(sc.nodes())-1, n)
}

// RemoveAt removes and returns the i-th child of parent.
func (d *Document) RemoveAt(parent *MatchBlock, i int) Node {
	return d.scope(parent).removeAt(i)
}

// Clone returns a deep copy of d sharing only the policy.
func (d *Document) Clone() *Document {
	out := *d
	out.trailing = append([]string(nil), d.trailing...)
	out.nodes = cloneNodes(d.nodes)
	return &out
}

func cloneNodes(ns []Node) []Node {
	if ns == nil {
		return nil
	}
	out := make([]Node, len(ns))
	for i, n := range ns {
		switch v := n.(type) {
		case *Comment:
			c := *v
			c.blank = append([]string(nil), v.blank...)
			out[i] = &c
		case *Setting:
			s := *v
			s.blank = append([]string(nil), v.blank...)
			s.Values = append([]string(nil), v.Values...)
			out[i] = &s
		case *MatchBlock:
			b := *v
			b.blank = append([]string(nil), v.blank...)
			b.Condition = append(Condition(nil), v.Condition...)
			b.body = cloneNodes(v.body)
			out[i] = &b
		}
	}
	return out
}

func settingsOf(ns []Node) []*Setting {
	var out []*Setting
	for _, n := range ns {
		if s, ok := n.(*Setting); ok {
			out = append(out, s)
		}
	}
	return out
}

// scope is a sibling list an edit works on: the document root, or the body of one block.
type scope struct {
	doc   *Document
	block *MatchBlock
}

func (d *Document) scope(b *MatchBlock) scope { return scope{doc: d, block: b} }

func (s scope) nodes() []Node {
	if s.block != nil {
		return s.block.body
	}
	return s.doc.nodes
}

func (s scope) set(ns []Node) {
	if s.block != nil {
		s.block.body = ns
		s.touch()
		return
	}
	s.doc.nodes = ns
}

// touch marks the owning block modified so its header is rendered canonically.
func (s scope) touch() {
	if s.block != nil {
		s.block.raw = ""
	}
}

func (s scope) index(n Node) int {
	for i, x := range s.nodes() {
		if x == n {
			return i
		}
	}
	return -1
}

func (s scope) insert(i int, n ...Node) {
	ns := s.nodes()
	out := make([]Node, 0, len(ns)+len(n))
	out = append(out, ns[:i]...)
	out = append(out, n...)
	out = append(out, ns[i:]...)
	s.set(out)
}

func (s scope) insertBefore(i int, n ...Node) {
	ns := s.nodes()
	if i < len(ns) && len(n) > 0 {
		next, first := ns[i].meta(), n[0].meta()
		first.blank, next.blank = append(first.blank, next.blank...), nil
	}
	s.insert(i, n...)
}

func (s scope) insertAfter(i int, n ...Node) { s.insert(i+1, n...) }

// extract removes the i-th node and leaves its blank lines with it.
func (s scope) extract(i int) Node {
	ns := s.nodes()
	n := ns[i]
	out := make([]Node, 0, len(ns)-1)
	out = append(out, ns[:i]...)
	out = append(out, ns[i+1:]...)
	s.set(out)
	return n
}

// removeAt removes the i-th node; its blank lines go to the following sibling when that has none.
func (s scope) removeAt(i int) Node {
	n := s.extract(i)
	ns := s.nodes()
	if m := n.meta(); len(m.blank) > 0 && i < len(ns) {
		if next := ns[i].meta(); len(next.blank) == 0 {
			next.blank, m.blank = m.blank, nil
		}
	}
	return n
}

// childIndent is the indentation for a new node in this scope.
func (s scope) childIndent() string {
	if s.block == nil {
		return ""
	}
	if sts := s.block.Settings(); len(sts) > 0 {
		return sts[0].indent
	}
	return s.doc.indent
}

// keyEquals compares keys the way sshd does.
func keyEquals(a, b string) bool { return strings.EqualFold(a, b) }
