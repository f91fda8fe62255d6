package sshdedit

import (
	"strings"
)

// Render serializes the document. Nodes that were not modified are written back byte for byte,
// so Render(Parse(x)) == x.
func Render(d *Document) []byte {
	var lines []string
	eol := ""
	if d.crlf {
		eol = "\r"
	}
	emit := func(n Node, text string) {
		m := n.meta()
		lines = append(lines, m.blank...)
		if m.raw != "" {
			lines = append(lines, m.raw)
			return
		}
		lines = append(lines, text+eol)
	}

	var write func(n Node)
	write = func(n Node) {
		switch v := n.(type) {
		case *Comment:
			emit(v, v.indent+"# "+v.Text)
		case *Setting:
			kp, _ := d.policy.Lookup(v.Key)
			emit(v, v.indent+v.Key+" "+kp.join(v.Values))
		case *MatchBlock:
			emit(v, v.indent+"Match "+v.Condition.String())
			for _, c := range v.body {
				write(c)
			}
		}
	}
	for _, n := range d.nodes {
		write(n)
	}
	lines = append(lines, d.trailing...)

	if len(lines) == 0 {
		return []byte{}
	}
	out := strings.Join(lines, "\n")
	if d.final {
		out += "\n"
	}
	return []byte(out)
}

// String renders the document as a string.
func (d *Document) String() string { return string(Render(d)) }

// detectIndent returns the indentation used for settings inside Match blocks: a tab when block
// lines are tab-indented, otherwise the GCD of the indentation widths, or two spaces when no
// block line is indented.
func detectIndent(d *Document) string {
	widths := []int{}
	for _, b := range d.Blocks() {
		for _, n := range b.body {
			ind := n.meta().indent
			if ind == "" {
				continue
			}
			if strings.Contains(ind, "\t") {
				return "\t"
			}
			widths = append(widths, len(ind))
		}
	}
	if len(widths) == 0 {
		return defaultIndent
	}

	result := widths[0]
	for i := 1; i < len(widths); i++ {
		result = gcd(result, widths[i])
		if result == 1 {
			break
		}
	}
	if result > 0 && result <= 8 {
		return strings.Repeat(" ", result)
	}
	return defaultIndent
}

func gcd(a, b int) int {
	if a < 0 {
		a = -a
	}
	if b < 0 {
		b = -b
	}
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
