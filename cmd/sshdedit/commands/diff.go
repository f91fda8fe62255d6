package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kevinwang15/sshdedit/internal/target"
)

var (
	addColor  = color.New(color.FgGreen)
	delColor  = color.New(color.FgRed)
	hunkColor = color.New(color.FgCyan)
	fileColor = color.New(color.Bold)
)

// printDiff writes the unified diff of res, colored line by line.
func printDiff(w io.Writer, res *target.Result) {
	diff := res.Diff()
	if diff == "" {
		return
	}
	for _, line := range strings.SplitAfter(diff, "\n") {
		if line == "" {
			continue
		}
		switch {
		case strings.HasPrefix(line, "+++"), strings.HasPrefix(line, "---"):
			fileColor.Fprint(w, line)
		case strings.HasPrefix(line, "@@"):
			hunkColor.Fprint(w, line)
		case strings.HasPrefix(line, "+"):
			addColor.Fprint(w, line)
		case strings.HasPrefix(line, "-"):
			delColor.Fprint(w, line)
		default:
			fmt.Fprint(w, line)
		}
	}
}

// report prints the one-line outcome of an apply.
func report(w io.Writer, res *target.Result, dryRun bool) {
	switch {
	case !res.Changed:
		fmt.Fprintf(w, "%s: unchanged\n", res.Path)
	case dryRun:
		fmt.Fprintf(w, "%s: would change\n", res.Path)
	default:
		fmt.Fprintf(w, "%s: changed\n", res.Path)
	}
}
