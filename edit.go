package sshdedit

import (
	"fmt"
	"regexp"
	"strings"
)

// Desired is the state one (key, condition) address should converge to.
type Desired struct {
	Key    string
	Values []string
	// Condition scopes the setting to a Match block; zero means the document root.
	Condition Condition
	// Comment, when set, is kept as "<Key>: <Comment>" right above the setting.
	Comment string
	// Append adds missing values instead of replacing the current ones.
	Append bool
	// Absent removes the setting instead.
	Absent bool
}

func (w Desired) validate() error {
	if !isKeyword(w.Key) {
		return fmt.Errorf("%w: invalid key %q", ErrAddressConflict, w.Key)
	}
	if keyEquals(w.Key, "Match") {
		return fmt.Errorf("%w: Match is not a setting", ErrAddressConflict)
	}
	if err := w.Condition.validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrAddressConflict, err)
	}
	return nil
}

// Apply converges every item of batch, in order. Either all items apply or the document is left
// untouched. Two items aimed at the same (key, condition) are rejected with ErrAddressConflict.
func (d *Document) Apply(batch ...Desired) error {
	for i := range batch {
		for j := 0; j < i; j++ {
			if keyEquals(batch[i].Key, batch[j].Key) && batch[i].Condition.Equal(batch[j].Condition) {
				return editErr(batch[i].Key, batch[i].Condition,
					fmt.Errorf("%w: declared twice", ErrAddressConflict))
			}
		}
	}
	work := d.Clone()
	for _, w := range batch {
		if err := work.Ensure(w); err != nil {
			return err
		}
	}
	*d = *work
	return nil
}

// Ensure dispatches to EnsurePresent or EnsureAbsent.
func (d *Document) Ensure(w Desired) error {
	if w.Absent {
		return d.EnsureAbsent(w.Key, w.Condition)
	}
	return d.EnsurePresent(w)
}

// EnsurePresent makes the (w.Key, w.Condition) setting carry w.Values.
func (d *Document) EnsurePresent(w Desired) error {
	if err := w.validate(); err != nil {
		return editErr(w.Key, w.Condition, err)
	}
	kp, err := d.policy.keyPolicy(w.Key)
	if err != nil {
		return editErr(w.Key, w.Condition, err)
	}
	values := cleanValues(w.Values)
	locs := d.Resolve(w.Key, w.Condition)
	if len(values) == 0 && len(locs) == 0 {
		return editErr(w.Key, w.Condition, ErrNoValue)
	}

	switch {
	case len(values) == 0:
	case len(locs) == 0:
		d.create(w.Key, values, w.Condition, kp)
	case kp.Cardinality == Array:
		d.setArray(locs, values, kp, w.Append)
	case kp.Cardinality == Repeated:
		d.setRepeated(locs, values, kp, w.Append)
	default:
		d.setScalar(locs, values, kp, w.Append)
	}

	locs = d.Resolve(w.Key, w.Condition)
	first := locs[0]
	sc := d.scope(first.Block)
	if w.Comment != "" {
		sc.setComment(first.Setting, w.Key+": "+w.Comment, w.Key)
	}
	d.enforceOrdering(sc, w.Key)
	return nil
}

// EnsureAbsent removes every (key, cond) setting along with its attached comment. A Match block
// emptied this way stays in place.
func (d *Document) EnsureAbsent(key string, cond Condition) error {
	if err := (Desired{Key: key, Condition: cond}).validate(); err != nil {
		return editErr(key, cond, err)
	}
	locs := d.Resolve(key, cond)
	for i := len(locs) - 1; i >= 0; i-- {
		sc := d.scope(locs[i].Block)
		idx := sc.index(locs[i].Setting)
		sc.removeAt(idx)
		if idx > 0 {
			if c, ok := sc.nodes()[idx-1].(*Comment); ok && attached(c, key) {
				sc.removeAt(idx - 1)
			}
		}
	}
	return nil
}

// create adds a key that has no line in its scope yet.
func (d *Document) create(key string, values []string, cond Condition, kp KeyPolicy) {
	var sc scope
	switch {
	case cond.IsZero():
		sc = d.scope(nil)
	default:
		b := d.findBlock(cond)
		if b == nil {
			b = d.newBlock(cond)
		}
		sc = d.scope(b)
	}

	nodes := newSettings(key, values, kp, sc.childIndent())
	at, before := sc.insertionPoint(key, kp)
	if before {
		sc.insertBefore(at, nodes...)
	} else {
		sc.insert(at, nodes...)
	}
}

// newBlock appends an empty block after every existing one.
func (d *Document) newBlock(cond Condition) *MatchBlock {
	b := &MatchBlock{Condition: cond.Canonical()}
	if len(d.nodes) > 0 {
		blank := ""
		if d.crlf {
			blank = "\r"
		}
		b.blank = []string{blank}
	}
	d.nodes = append(d.nodes, b)
	return b
}

func newSettings(key string, values []string, kp KeyPolicy, indent string) []Node {
	if kp.Cardinality == Scalar {
		return []Node{&Setting{trivia: trivia{indent: indent}, Key: key, Values: values}}
	}
	out := make([]Node, len(values))
	for i, v := range values {
		out[i] = &Setting{trivia: trivia{indent: indent}, Key: key, Values: []string{v}}
	}
	return out
}

// setArray gives an array key one line per value.
func (d *Document) setArray(locs []Location, values []string, kp KeyPolicy, appendMode bool) {
	key := locs[0].Setting.Key
	indent := locs[0].Setting.indent
	if appendMode {
		d.appendLines(locs, missing(flatten(locs), values), key, kp, indent)
		return
	}
	if onePerValue(locs, values) {
		return
	}

	for i := len(locs) - 1; i > 0; i-- {
		sc := d.scope(locs[i].Block)
		sc.removeAt(sc.index(locs[i].Setting))
	}
	first := locs[0]
	sc := d.scope(first.Block)
	at := sc.index(first.Setting)
	sc.extract(at)
	nodes := newSettings(key, values, kp, indent)
	nodes[0].meta().blank = first.Setting.blank
	sc.insert(at, nodes...)
}

// setRepeated rewrites the existing lines in order, one value each, dropping or adding lines at
// the end of the run.
func (d *Document) setRepeated(locs []Location, values []string, kp KeyPolicy, appendMode bool) {
	key := locs[0].Setting.Key
	indent := locs[0].Setting.indent
	if appendMode {
		have := make([]string, len(locs))
		for i, l := range locs {
			have[i] = kp.join(l.Setting.Values)
		}
		d.appendLines(locs, missing(have, values), key, kp, indent)
		return
	}

	var last Location
	for i, l := range locs {
		sc := d.scope(l.Block)
		if i >= len(values) {
			sc.removeAt(sc.index(l.Setting))
			continue
		}
		if kp.join(l.Setting.Values) != values[i] {
			l.Setting.Values = []string{values[i]}
			sc.modified(l.Setting)
		}
		last = l
	}
	if len(values) > len(locs) {
		sc := d.scope(last.Block)
		nodes := newSettings(key, values[len(locs):], kp, indent)
		sc.insertAfter(sc.index(last.Setting), nodes...)
	}
}

// setScalar updates the first line in place and drops duplicates.
func (d *Document) setScalar(locs []Location, values []string, kp KeyPolicy, appendMode bool) {
	if appendMode {
		add := missing(flatten(locs), values)
		if len(add) == 0 {
			return
		}
		last := locs[len(locs)-1]
		last.Setting.Values = append(last.Setting.Values, add...)
		d.scope(last.Block).modified(last.Setting)
		return
	}

	first := locs[0]
	if kp.join(first.Setting.Values) != kp.join(values) {
		first.Setting.Values = append([]string(nil), values...)
		d.scope(first.Block).modified(first.Setting)
	}
	for i := len(locs) - 1; i > 0; i-- {
		sc := d.scope(locs[i].Block)
		sc.removeAt(sc.index(locs[i].Setting))
	}
}

// appendLines inserts one line per value after the last existing line.
func (d *Document) appendLines(locs []Location, add []string, key string, kp KeyPolicy, indent string) {
	if len(add) == 0 {
		return
	}
	last := locs[len(locs)-1]
	sc := d.scope(last.Block)
	nodes := make([]Node, len(add))
	for i, v := range add {
		nodes[i] = &Setting{trivia: trivia{indent: indent}, Key: key, Values: []string{v}}
	}
	sc.insertAfter(sc.index(last.Setting), nodes...)
}

// modified drops the cached source line of n so it renders from its fields.
func (s scope) modified(n Node) {
	n.meta().raw = ""
	s.touch()
}

// insertionPoint picks where a new key goes. before reports whether the node at the returned
// index is displaced (and hands over its blank lines).
func (s scope) insertionPoint(key string, kp KeyPolicy) (at int, before bool) {
	ns := s.nodes()

	succ := -1
	for _, b := range kp.Before {
		if i := s.first(b); i >= 0 && (succ < 0 || i < succ) {
			succ = i
		}
	}
	if succ > 0 {
		if c, ok := ns[succ-1].(*Comment); ok {
			if st := ns[succ].(*Setting); attached(c, st.Key) {
				succ--
			}
		}
	}

	if c := s.commentedOut(key); c >= 0 && (succ < 0 || c < succ) {
		return c + 1, false
	}
	if succ >= 0 {
		return succ, true
	}

	if s.block != nil {
		at = len(ns)
		width := len(s.childIndent())
		for at > 0 {
			c, ok := ns[at-1].(*Comment)
			if !ok || len(c.indent) >= width {
				break
			}
			at--
		}
		return at, false
	}

	m := -1
	for i, n := range ns {
		if _, ok := n.(*MatchBlock); ok {
			m = i
			break
		}
	}
	if m < 0 {
		return len(ns), false
	}
	at = m
	for at > 0 {
		if _, ok := ns[at-1].(*Comment); !ok || len(ns[at].meta().blank) > 0 {
			break
		}
		at--
	}
	if at == 0 {
		at = m
	}
	return at, false
}

// commentedOut returns the index of the last comment that looks like a disabled entry for key,
// such as "#UseDNS yes" for UseDNS, or -1.
func (s scope) commentedOut(key string) int {
	re := regexp.MustCompile(`(?i)^` + regexp.QuoteMeta(key) + `([^a-z.].*)?$`)
	last := -1
	for i, n := range s.nodes() {
		if c, ok := n.(*Comment); ok && re.MatchString(c.Text) && !attached(c, key) {
			last = i
		}
	}
	return last
}

// setComment keeps text right above st, rewriting an attached comment for key when present.
func (s scope) setComment(st *Setting, text, key string) {
	i := s.index(st)
	if i > 0 {
		if c, ok := s.nodes()[i-1].(*Comment); ok && attached(c, key) {
			if c.Text != text {
				c.Text = text
				s.modified(c)
			}
			return
		}
	}
	s.insertBefore(i, &Comment{trivia: trivia{indent: st.indent}, Text: text})
}

// attached reports whether c is the managed comment of key: it starts with "<key>:".
func attached(c *Comment, key string) bool {
	return len(c.Text) > len(key) && c.Text[len(key)] == ':' && strings.EqualFold(c.Text[:len(key)], key)
}

// enforceOrdering moves lines inside s so that key precedes its declared successors and key's
// declared predecessors precede key.
func (d *Document) enforceOrdering(s scope, key string) {
	kp, _ := d.policy.Lookup(key)
	for _, succ := range kp.Before {
		s.order(key, succ)
	}
	for _, pred := range d.policy.predecessors(key) {
		s.order(pred, key)
	}
}

// order moves every a line found after the first b line in front of it.
func (s scope) order(a, b string) {
	bi := s.first(b)
	if bi < 0 {
		return
	}
	ns := s.nodes()
	var move []Node
	for i := bi + 1; i < len(ns); i++ {
		st, ok := ns[i].(*Setting)
		if !ok || !keyEquals(st.Key, a) {
			continue
		}
		if c, ok := ns[i-1].(*Comment); ok && i-1 > bi && attached(c, a) {
			move = append(move, c)
		}
		move = append(move, st)
	}
	if len(move) == 0 {
		return
	}
	for _, n := range move {
		s.removeAt(s.index(n))
		n.meta().blank = nil
	}

	at := s.first(b)
	ns = s.nodes()
	if at > 0 {
		if c, ok := ns[at-1].(*Comment); ok && attached(c, b) {
			at--
		}
	}
	s.insertBefore(at, move...)
	s.touch()
}

func cleanValues(in []string) []string {
	var out []string
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func flatten(locs []Location) []string {
	var out []string
	for _, l := range locs {
		out = append(out, l.Setting.Values...)
	}
	return out
}

// missing returns the values of want not in have, without duplicates, in want order.
func missing(have, want []string) []string {
	seen := make(map[string]bool, len(have))
	for _, v := range have {
		seen[v] = true
	}
	var out []string
	for _, v := range want {
		if !seen[v] {
			out = append(out, v)
			seen[v] = true
		}
	}
	return out
}

func onePerValue(locs []Location, values []string) bool {
	if len(locs) != len(values) {
		return false
	}
	for i, l := range locs {
		if len(l.Setting.Values) != 1 || l.Setting.Values[0] != values[i] {
			return false
		}
	}
	return true
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
