// Package extract pulls the rewritten file out of a model response.
//
// Responses are parsed as Markdown. When the response holds fenced code
// blocks, one of them is picked as the file body; otherwise the whole
// response is taken as-is. The choice is a best guess: a model that
// ignores its instructions can still produce a wrong pick, which the diff
// preview is there to catch.
//
// In raw mode the response is the file itself, so fences inside it are
// kept as file content.
package extract

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// ErrEmpty is returned when the selected content is blank.
var ErrEmpty = errors.New("response contained no file content")

// Block is a fenced code block found in a response.
type Block struct {
	// Lang is the first word of the info string, lowercased.
	Lang string
	// Hint is the paragraph immediately before the block, if any.
	Hint string
	// Content is the text between the fences, without the fences.
	Content string
}

// Options steer block selection.
type Options struct {
	Language string // detected language of the target file
	FileName string // target path; its base name is matched against hints
	// Raw treats the response as bare file text, with no block selection.
	Raw bool
}

// Extraction is the selected file body and how it was found.
type Extraction struct {
	Content string
	// Lang is the selected block's language; empty on fallback.
	Lang string
	// Blocks is the number of fenced blocks in the response.
	Blocks int
	// Fallback is set when no fenced block existed and the whole response
	// was used.
	Fallback bool
	// Dropped counts conversational lines removed around a fallback body.
	Dropped int
	// Raw is set when the response was read as bare file text.
	Raw bool
	// Ambiguous is set when several blocks were candidates.
	Ambiguous bool
}

// Blocks returns every fenced code block in source, in document order.
func Blocks(source []byte) ([]Block, error) {
	var blocks []Block
	root := parse(source)

	walker := func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		fenced, ok := node.(*ast.FencedCodeBlock)
		if !ok {
			return ast.WalkContinue, nil
		}

		blocks = append(blocks, blockFrom(fenced, source))
		return ast.WalkSkipChildren, nil
	}

	if err := ast.Walk(root, walker); err != nil {
		return nil, err
	}
	return blocks, nil
}

func parse(source []byte) ast.Node {
	return goldmark.DefaultParser().Parse(text.NewReader(source))
}

func blockFrom(fenced *ast.FencedCodeBlock, source []byte) Block {
	block := Block{Lang: strings.ToLower(string(fenced.Language(source)))}

	var content bytes.Buffer
	lines := fenced.Lines()
	for i := range lines.Len() {
		line := lines.At(i)
		content.Write(line.Value(source))
	}
	block.Content = content.String()

	if prev := fenced.PreviousSibling(); prev != nil {
		if p, ok := prev.(*ast.Paragraph); ok {
			block.Hint = strings.TrimSpace(paragraphText(p, source))
		}
	}
	return block
}

// wrappingBlock returns the fenced block that makes up the whole of
// source, if there is one.
func wrappingBlock(source []byte) (Block, bool) {
	root := parse(source)
	first := root.FirstChild()
	if first == nil || first != root.LastChild() {
		return Block{}, false
	}
	fenced, ok := first.(*ast.FencedCodeBlock)
	if !ok {
		return Block{}, false
	}
	return blockFrom(fenced, source), true
}

// Extract selects the file body from a model response.
func Extract(response string, opts Options) (*Extraction, error) {
	if opts.Raw {
		return extractRaw(response)
	}

	blocks, err := Blocks([]byte(response))
	if err != nil {
		return nil, err
	}

	if len(blocks) == 0 {
		body, dropped := stripChatter(response)
		content := trimBlankLines(body)
		if strings.TrimSpace(content) == "" {
			return nil, ErrEmpty
		}
		return &Extraction{Content: content, Fallback: true, Dropped: dropped}, nil
	}

	candidates := candidatesFor(blocks, opts)
	chosen := longest(candidates)
	if strings.TrimSpace(chosen.Content) == "" {
		return nil, ErrEmpty
	}

	return &Extraction{
		Content:   chosen.Content,
		Lang:      chosen.Lang,
		Blocks:    len(blocks),
		Ambiguous: len(candidates) > 1,
	}, nil
}

// extractRaw takes the response as the file body. Fences inside it belong
// to the file; only a fence around the entire response is removed.
func extractRaw(response string) (*Extraction, error) {
	ext := &Extraction{Raw: true}
	if block, ok := wrappingBlock([]byte(response)); ok {
		ext.Content, ext.Lang, ext.Blocks = block.Content, block.Lang, 1
	} else {
		ext.Content = trimBlankLines(response)
	}
	if strings.TrimSpace(ext.Content) == "" {
		return nil, ErrEmpty
	}
	return ext, nil
}

// candidatesFor narrows blocks to the best candidates, never returning none.
func candidatesFor(blocks []Block, opts Options) []Block {
	candidates := filter(blocks, func(b Block) bool { return !isPatch(b.Lang) })
	if len(candidates) == 0 {
		candidates = blocks
	}

	if lang := canonicalLang(opts.Language); lang != "" {
		if matched := filter(candidates, func(b Block) bool { return canonicalLang(b.Lang) == lang }); len(matched) > 0 {
			candidates = matched
		}
	}

	if opts.FileName != "" {
		base := filepath.Base(opts.FileName)
		if named := filter(candidates, func(b Block) bool { return strings.Contains(b.Hint, base) }); len(named) > 0 {
			candidates = named
		}
	}

	return candidates
}

func filter(blocks []Block, keep func(Block) bool) []Block {
	var out []Block
	for _, b := range blocks {
		if keep(b) {
			out = append(out, b)
		}
	}
	return out
}

// longest returns the first of the longest blocks.
func longest(blocks []Block) Block {
	best := blocks[0]
	for _, b := range blocks[1:] {
		if len(b.Content) > len(best.Content) {
			best = b
		}
	}
	return best
}

func isPatch(lang string) bool {
	return lang == "diff" || lang == "patch" || lang == "udiff"
}

var langAliases = map[string]string{
	"py":      "python",
	"python3": "python",
	"js":      "javascript",
	"jsx":     "javascript",
	"ts":      "typescript",
	"tsx":     "typescript",
	"golang":  "go",
	"rs":      "rust",
	"rb":      "ruby",
	"c++":     "cpp",
	"cc":      "cpp",
	"cs":      "csharp",
	"c#":      "csharp",
	"kt":      "kotlin",
	"sh":      "bash",
	"shell":   "bash",
	"yml":     "yaml",
}

func canonicalLang(lang string) string {
	lang = strings.ToLower(strings.TrimSpace(lang))
	if canonical, ok := langAliases[lang]; ok {
		return canonical
	}
	return lang
}

// trimBlankLines drops whitespace-only lines at both ends and leaves
// exactly one trailing newline.
func trimBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	start, end := 0, len(lines)
	for start < end && strings.TrimSpace(lines[start]) == "" {
		start++
	}
	for end > start && strings.TrimSpace(lines[end-1]) == "" {
		end--
	}
	if start == end {
		return ""
	}
	return strings.Join(lines[start:end], "\n") + "\n"
}

func paragraphText(p *ast.Paragraph, source []byte) string {
	var buf bytes.Buffer
	lines := p.Lines()
	for i := range lines.Len() {
		line := lines.At(i)
		buf.Write(line.Value(source))
	}
	return buf.String()
}
