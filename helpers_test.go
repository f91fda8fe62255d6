package sshdedit

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pmezard/go-difflib/difflib"
)

// fixture reads testdata/<name>.
func fixture(t *testing.T, name string) []byte {
	t.Helper()
	data, err := os.ReadFile(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("failed to read fixture %s: %v", name, err)
	}
	return data
}

func mustParse(t *testing.T, data []byte) *Document {
	t.Helper()
	doc, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	return doc
}

func mustEnsure(t *testing.T, doc *Document, w Desired) {
	t.Helper()
	if err := doc.Ensure(w); err != nil {
		t.Fatalf("Ensure(%+v): %v", w, err)
	}
}

func unifiedDiff(before, after string) string {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(before),
		B:        difflib.SplitLines(after),
		FromFile: "before",
		ToFile:   "after",
		Context:  2,
	})
	if err != nil {
		return err.Error()
	}
	return diff
}

func diffStats(diff string) (adds, removes int) {
	for _, line := range strings.Split(diff, "\n") {
		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '+':
			if !strings.HasPrefix(line, "+++") {
				adds++
			}
		case '-':
			if !strings.HasPrefix(line, "---") {
				removes++
			}
		}
	}
	return
}

// keysIn returns the keys of the settings in a sibling list, in order.
func keysIn(ns []Node) []string {
	var out []string
	for _, n := range ns {
		if s, ok := n.(*Setting); ok {
			out = append(out, s.Key)
		}
	}
	return out
}

func indexOf(list []string, want string) int {
	for i, s := range list {
		if strings.EqualFold(s, want) {
			return i
		}
	}
	return -1
}

// lineIndexContaining returns the index of the first line of s containing substr, or -1.
func lineIndexContaining(s, substr string) int {
	for i, line := range strings.Split(s, "\n") {
		if strings.Contains(line, substr) {
			return i
		}
	}
	return -1
}

// linesWithPrefix returns the lines of s starting with prefix.
func linesWithPrefix(s, prefix string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.HasPrefix(line, prefix) {
			out = append(out, line)
		}
	}
	return out
}
