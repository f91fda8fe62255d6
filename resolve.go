package sshdedit

// Location is where a resolved setting lives.
type Location struct {
	Block   *MatchBlock // nil for the document root
	Index   int         // position among the parent's children
	Setting *Setting
}

// Resolve returns the settings addressed by (key, cond) in document order. Keys compare
// case-insensitively. A zero cond only sees root settings; otherwise only settings of blocks whose
// condition equals cond are returned.
func (d *Document) Resolve(key string, cond Condition) []Location {
	var out []Location
	for _, sc := range d.scopes(cond) {
		out = append(out, sc.find(key)...)
	}
	return out
}

// scopes returns the sibling lists cond addresses.
func (d *Document) scopes(cond Condition) []scope {
	if cond.IsZero() {
		return []scope{d.scope(nil)}
	}
	var out []scope
	for _, b := range d.Blocks() {
		if b.Condition.Equal(cond) {
			out = append(out, d.scope(b))
		}
	}
	return out
}

// findBlock returns the first block whose condition equals cond.
func (d *Document) findBlock(cond Condition) *MatchBlock {
	for _, b := range d.Blocks() {
		if b.Condition.Equal(cond) {
			return b
		}
	}
	return nil
}

func (s scope) find(key string) []Location {
	var out []Location
	for i, n := range s.nodes() {
		if st, ok := n.(*Setting); ok && keyEquals(st.Key, key) {
			out = append(out, Location{Block: s.block, Index: i, Setting: st})
		}
	}
	return out
}

// first returns the index of the first setting with key, or -1.
func (s scope) first(key string) int {
	for i, n := range s.nodes() {
		if st, ok := n.(*Setting); ok && keyEquals(st.Key, key) {
			return i
		}
	}
	return -1
}
