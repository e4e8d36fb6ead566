package edit

import (
	"fmt"
	"html"
	"strings"

	"github.com/gorewood/code-edit/internal/llm"
)

// BuildPrompt assembles the model request. The instruction and the file
// are tagged so the model cannot confuse one for the other.
func BuildPrompt(req *Request, system string, temperature *float64, maxTokens int) llm.Request {
	var b strings.Builder

	b.WriteString("Modify the file below according to the instruction.\n\n")
	fmt.Fprintf(&b, "<instruction>\n%s\n</instruction>\n\n", req.Instruction)

	fmt.Fprintf(&b, "<file path=\"%s\"", html.EscapeString(req.SourcePath))
	if req.Language != "" {
		fmt.Fprintf(&b, " language=\"%s\"", req.Language)
	}
	b.WriteString(">\n")
	b.WriteString(req.SourceText)
	if !strings.HasSuffix(req.SourceText, "\n") {
		b.WriteString("\n")
	}
	b.WriteString("</file>\n")

	return llm.Request{
		System:      system,
		Prompt:      b.String(),
		Temperature: temperature,
		MaxTokens:   maxTokens,
	}
}
