package sshdedit

import (
	"fmt"
	"sort"
	"strings"
)

// Clause is one criterion/argument pair of a Match line, e.g. Host *.example.net.
// Argument is empty for the All criterion.
type Clause struct {
	Criterion string
	Argument  string
}

// Condition is the clause set of a Match block. The zero Condition addresses the document root.
type Condition []Clause

type criterion struct {
	name   string
	rank   int
	noArgs bool
}

// criteria lists the Match criteria in canonical rendering order.
var criteria = map[string]criterion{
	"host":         {name: "Host", rank: 0},
	"user":         {name: "User", rank: 1},
	"group":        {name: "Group", rank: 2},
	"address":      {name: "Address", rank: 3},
	"localaddress": {name: "LocalAddress", rank: 4},
	"localport":    {name: "LocalPort", rank: 5},
	"rdomain":      {name: "RDomain", rank: 6},
	"all":          {name: "All", rank: 7, noArgs: true},
}

// ParseCondition parses the criteria part of a Match line, e.g. "Host foo User root".
// An empty string yields the zero Condition.
func ParseCondition(s string) (Condition, error) {
	toks, err := tokenize(s)
	if err != nil {
		return nil, err
	}
	return conditionFromTokens(toks)
}

// MustCondition is like ParseCondition but panics on error.
func MustCondition(s string) Condition {
	c, err := ParseCondition(s)
	if err != nil {
		panic(err)
	}
	return c
}

func conditionFromTokens(toks []string) (Condition, error) {
	var c Condition
	for i := 0; i < len(toks); i++ {
		cr, ok := criteria[strings.ToLower(toks[i])]
		if !ok {
			return nil, fmt.Errorf("unknown Match criterion %q", toks[i])
		}
		if cr.noArgs {
			c = append(c, Clause{Criterion: cr.name})
			continue
		}
		if i+1 >= len(toks) {
			return nil, fmt.Errorf("Match criterion %s requires an argument", cr.name)
		}
		i++
		c = append(c, Clause{Criterion: cr.name, Argument: toks[i]})
	}
	return c, nil
}

// IsZero reports whether c addresses the document root.
func (c Condition) IsZero() bool { return len(c) == 0 }

// Canonical returns a copy of c sorted into canonical criterion order.
func (c Condition) Canonical() Condition {
	if c == nil {
		return nil
	}
	out := make(Condition, len(c))
	for i, cl := range c {
		if cr, ok := criteria[strings.ToLower(cl.Criterion)]; ok {
			cl.Criterion = cr.name
		}
		out[i] = cl
	}
	sort.SliceStable(out, func(i, j int) bool {
		ri, rj := rank(out[i].Criterion), rank(out[j].Criterion)
		if ri != rj {
			return ri < rj
		}
		return out[i].Argument < out[j].Argument
	})
	return out
}

func rank(name string) int {
	if cr, ok := criteria[strings.ToLower(name)]; ok {
		return cr.rank
	}
	return len(criteria)
}

// Equal reports whether c and o name the same clause set, ignoring clause order and criterion case.
func (c Condition) Equal(o Condition) bool {
	if len(c) != len(o) {
		return false
	}
	a, b := c.Canonical(), o.Canonical()
	for i := range a {
		if !strings.EqualFold(a[i].Criterion, b[i].Criterion) || a[i].Argument != b[i].Argument {
			return false
		}
	}
	return true
}

// String renders the clauses in canonical order, as they appear after "Match".
func (c Condition) String() string {
	parts := make([]string, 0, 2*len(c))
	for _, cl := range c.Canonical() {
		parts = append(parts, cl.Criterion)
		if cl.Argument != "" {
			parts = append(parts, cl.Argument)
		}
	}
	return strings.Join(parts, " ")
}

// validate rejects unknown criteria. A repeated criterion is accepted, as the parser does.
func (c Condition) validate() error {
	for _, cl := range c {
		if _, ok := criteria[strings.ToLower(cl.Criterion)]; !ok {
			return fmt.Errorf("unknown Match criterion %q", cl.Criterion)
		}
	}
	return nil
}
