package sshdedit

import "strings"

// Entry is the current state of one (key, condition) address, as listed by Entries.
type Entry struct {
	Key       string
	Values    []string
	Condition Condition
}

// Entries lists every address present in the document, in document order. Keys are grouped
// case-insensitively per scope and take the spelling of their first line. Scalar and array values
// are the tokens of all lines; repeated keys give one value per line. Keys the policy marks
// unlisted, such as Subsystem, are skipped.
func (d *Document) Entries() []Entry {
	var out []Entry
	collect := func(ns []Node, cond Condition) {
		index := map[string]int{}
		for _, n := range ns {
			st, ok := n.(*Setting)
			if !ok {
				continue
			}
			kp, _ := d.policy.Lookup(st.Key)
			if kp.Unlisted {
				continue
			}
			vals := st.Values
			if kp.Cardinality == Repeated {
				vals = []string{kp.join(st.Values)}
			}
			lk := strings.ToLower(st.Key)
			if i, ok := index[lk]; ok {
				out[i].Values = append(out[i].Values, vals...)
				continue
			}
			index[lk] = len(out)
			out = append(out, Entry{Key: st.Key, Values: append([]string(nil), vals...), Condition: cond})
		}
	}

	collect(d.nodes, nil)
	seen := []Condition{}
	for _, b := range d.Blocks() {
		dup := false
		for _, c := range seen {
			if c.Equal(b.Condition) {
				dup = true
				break
			}
		}
		if dup {
			continue
		}
		seen = append(seen, b.Condition)
		var body []Node
		for _, o := range d.Blocks() {
			if o.Condition.Equal(b.Condition) {
				body = append(body, o.body...)
			}
		}
		collect(body, b.Condition)
	}
	return out
}
