// Package diff computes and renders unified diffs between the original
// file and the proposed rewrite.
package diff

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/pmezard/go-difflib/difflib"

	"github.com/gorewood/code-edit/internal/output"
)

// File labels used in the diff header.
const (
	FromLabel = "Original"
	ToLabel   = "Modified"
)

// DefaultContext is the number of unchanged lines shown around each change.
const DefaultContext = 3

const noNewline = "\\ No newline at end of file\n"

// Kind classifies a line of unified diff output.
type Kind int

// Line kinds.
const (
	KindContext Kind = iota
	KindHeader
	KindHunk
	KindAdded
	KindRemoved
	KindNote
)

// Line is one line of diff text, without its newline.
type Line struct {
	Kind Kind
	Text string
}

// Stats counts changed lines.
type Stats struct {
	Added   int `json:"added"`
	Removed int `json:"removed"`
}

// Diff is a computed unified diff. Text is empty when the inputs are equal.
type Diff struct {
	Text  string
	Lines []Line
	Stats Stats
}

// Empty reports whether the inputs were identical.
func (d *Diff) Empty() bool {
	return d.Text == ""
}

// Compute diffs original against proposed with the given number of context
// lines. A negative context selects DefaultContext.
func Compute(original, proposed string, context int) (*Diff, error) {
	if context < 0 {
		context = DefaultContext
	}

	a, b := splitLines(original), splitLines(proposed)

	text, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        a,
		B:        b,
		FromFile: FromLabel,
		ToFile:   ToLabel,
		Context:  context,
	})
	if err != nil {
		return nil, fmt.Errorf("computing diff: %w", err)
	}

	d := &Diff{Text: text, Lines: classify(text)}
	for _, op := range difflib.NewMatcher(a, b).GetOpCodes() {
		switch op.Tag {
		case 'r':
			d.Stats.Removed += op.I2 - op.I1
			d.Stats.Added += op.J2 - op.J1
		case 'd':
			d.Stats.Removed += op.I2 - op.I1
		case 'i':
			d.Stats.Added += op.J2 - op.J1
		}
	}
	return d, nil
}

// splitLines splits s after each newline. A final line without a newline
// carries the no-newline marker, so it differs from the same line with one.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		return lines[:len(lines)-1]
	}
	lines[len(lines)-1] += "\n" + noNewline
	return lines
}

func classify(text string) []Line {
	if text == "" {
		return nil
	}

	raw := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	lines := make([]Line, 0, len(raw))
	for i, l := range raw {
		kind := KindContext
		switch {
		case i < 2:
			kind = KindHeader
		case strings.HasPrefix(l, "@@"):
			kind = KindHunk
		case strings.HasPrefix(l, "+"):
			kind = KindAdded
		case strings.HasPrefix(l, "-"):
			kind = KindRemoved
		case strings.HasPrefix(l, "\\"):
			kind = KindNote
		}
		lines = append(lines, Line{Kind: kind, Text: l})
	}
	return lines
}

// Render writes the diff to w, one styled line at a time.
func Render(w io.Writer, d *Diff, styles *output.Styles) error {
	for _, line := range d.Lines {
		style := styleFor(line.Kind, styles)
		text := style.TabWidth(lipgloss.NoTabConversion).Render(line.Text)
		if _, err := io.WriteString(w, text+"\n"); err != nil {
			return fmt.Errorf("writing diff: %w", err)
		}
	}
	return nil
}

func styleFor(kind Kind, styles *output.Styles) lipgloss.Style {
	switch kind {
	case KindHeader:
		return styles.Header
	case KindHunk:
		return styles.Hunk
	case KindAdded:
		return styles.Added
	case KindRemoved:
		return styles.Removed
	case KindNote:
		return styles.Muted
	default:
		return lipgloss.NewStyle()
	}
}

// Summary formats stats as "+N -M".
func (s Stats) Summary() string {
	return fmt.Sprintf("+%d -%d", s.Added, s.Removed)
}
