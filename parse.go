package sshdedit

import (
	"errors"
	"fmt"
	"strings"
)

const defaultIndent = "  "

// ParseOption configures Parse.
type ParseOption func(*parseOptions)

type parseOptions struct {
	path   string
	policy *Policy
}

// WithPath names the file in parse errors.
func WithPath(path string) ParseOption {
	return func(o *parseOptions) { o.path = path }
}

// WithPolicy sets the key policy used to split values and to edit the document.
func WithPolicy(p *Policy) ParseOption {
	return func(o *parseOptions) { o.policy = p }
}

// Parse reads an sshd configuration and returns its document tree. Empty data yields an empty
// document. On error no document is returned.
func Parse(data []byte, opts ...ParseOption) (*Document, error) {
	o := parseOptions{}
	for _, opt := range opts {
		opt(&o)
	}
	doc := NewDocument(o.policy)
	if len(data) == 0 {
		return doc, nil
	}

	text := string(data)
	doc.final = strings.HasSuffix(text, "\n")
	doc.crlf = strings.HasSuffix(strings.SplitN(text, "\n", 2)[0], "\r")
	lines := strings.Split(text, "\n")
	if doc.final {
		lines = lines[:len(lines)-1]
	}

	var (
		block   *MatchBlock
		pending []string
	)
	add := func(n Node) {
		n.meta().blank, pending = pending, nil
		if block != nil {
			block.body = append(block.body, n)
		} else {
			doc.nodes = append(doc.nodes, n)
		}
	}

	for i, line := range lines {
		content := strings.TrimRight(line, "\r")
		trimmed := strings.TrimSpace(content)
		lineNo := i + 1
		t := trivia{raw: line, line: lineNo, indent: leadingSpace(content)}

		switch {
		case trimmed == "":
			pending = append(pending, line)

		case trimmed[0] == '#':
			add(&Comment{trivia: t, Text: strings.TrimSpace(trimmed[1:])})

		default:
			key, args, err := splitKeyword(trimmed)
			if err != nil {
				return nil, &ParseError{Path: o.path, Line: lineNo, Reason: err.Error()}
			}
			if keyEquals(key, "Match") {
				cond, err := parseMatchArgs(args)
				if err != nil {
					return nil, &ParseError{Path: o.path, Line: lineNo, Reason: err.Error()}
				}
				block = nil
				b := &MatchBlock{trivia: t, Condition: cond}
				add(b)
				block = b
				continue
			}
			if args == "" {
				return nil, &ParseError{Path: o.path, Line: lineNo, Reason: fmt.Sprintf("missing argument for %s", key)}
			}
			kp, _ := doc.policy.Lookup(key)
			values, err := kp.split(args)
			if err != nil {
				return nil, &ParseError{Path: o.path, Line: lineNo, Reason: fmt.Sprintf("%s: %v", key, err)}
			}
			add(&Setting{trivia: t, Key: key, Values: values})
		}
	}
	doc.trailing = pending
	doc.indent = detectIndent(doc)
	return doc, nil
}

func parseMatchArgs(args string) (Condition, error) {
	if args == "" {
		return nil, errors.New("Match requires at least one criterion")
	}
	return ParseCondition(args)
}

// splitKeyword splits a trimmed line into its keyword and argument string. The keyword ends at
// the first whitespace or '='; a single '=' between keyword and arguments is allowed.
func splitKeyword(line string) (string, string, error) {
	end := strings.IndexAny(line, " \t=")
	if end < 0 {
		end = len(line)
	}
	key := line[:end]
	if !isKeyword(key) {
		return "", "", fmt.Errorf("invalid keyword %q", key)
	}
	rest := strings.TrimLeft(line[end:], " \t")
	if strings.HasPrefix(rest, "=") {
		rest = strings.TrimLeft(rest[1:], " \t")
	}
	return key, strings.TrimRight(rest, " \t"), nil
}

func isKeyword(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '_' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// tokenize splits on whitespace. A double-quoted run is one token and keeps its quotes.
func tokenize(s string) ([]string, error) {
	var (
		toks  []string
		cur   strings.Builder
		quote bool
		have  bool
	)
	for _, r := range s {
		switch {
		case r == '"':
			quote = !quote
			cur.WriteRune(r)
			have = true
		case !quote && (r == ' ' || r == '\t'):
			if have {
				toks = append(toks, cur.String())
				cur.Reset()
				have = false
			}
		default:
			cur.WriteRune(r)
			have = true
		}
	}
	if quote {
		return nil, errors.New("unterminated quote")
	}
	if have {
		toks = append(toks, cur.String())
	}
	return toks, nil
}

func leadingSpace(s string) string {
	return s[:len(s)-len(strings.TrimLeft(s, " \t"))]
}
