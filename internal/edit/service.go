package edit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/gorewood/code-edit/internal/diff"
	"github.com/gorewood/code-edit/internal/extract"
	"github.com/gorewood/code-edit/internal/llm"
	"github.com/gorewood/code-edit/internal/logs"
	"github.com/gorewood/code-edit/internal/output"
)

// Completer sends one request to a model. *llm.Client satisfies it.
type Completer interface {
	Complete(ctx context.Context, req llm.Request) (*llm.Response, error)
}

// Service asks a model for a rewrite and prepares it for review.
type Service struct {
	Completer    Completer
	Logger       *slog.Logger
	System       string   // system prompt
	Temperature  *float64 // nil leaves the provider default
	MaxTokens    int      // 0 leaves the provider default
	ContextLines int      // diff context; negative means diff.DefaultContext
	RawOutput    bool     // the system prompt asks for bare file text
}

// Result is a proposed rewrite. Original always equals the request's
// SourceText.
type Result struct {
	Original   string
	Proposed   string
	Raw        string
	Model      string
	Extraction *extract.Extraction
	Diff       *diff.Diff
}

// Changed reports whether the proposal differs from the original.
func (r *Result) Changed() bool {
	return r.Original != r.Proposed
}

// Propose makes a single model call and returns the extracted rewrite with
// its diff. Nothing is written.
func (s *Service) Propose(ctx context.Context, req *Request) (*Result, error) {
	log := s.logger()
	ctx = logs.WithAttrs(ctx, "file", req.SourcePath)

	llmReq := BuildPrompt(req, s.System, s.Temperature, s.MaxTokens)
	log.DebugContext(ctx, "sending request",
		"language", req.Language,
		"source_bytes", len(req.SourceText),
		"prompt_bytes", len(llmReq.Prompt))

	resp, err := s.Completer.Complete(ctx, llmReq)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, output.NewProviderErrorWithCause("request cancelled", ctxErr)
		}
		return nil, err
	}
	log.DebugContext(ctx, "response received", "model", resp.Model, "response_bytes", len(resp.Content))

	ext, err := extract.Extract(resp.Content, extract.Options{
		Language: req.Language,
		FileName: req.SourcePath,
		Raw:      s.RawOutput,
	})
	if err != nil {
		if errors.Is(err, extract.ErrEmpty) {
			return nil, output.NewProviderError("model returned no file content")
		}
		return nil, output.NewSystemErrorWithCause("failed to parse model response", err)
	}
	log.DebugContext(ctx, "content extracted",
		"blocks", ext.Blocks,
		"fallback", ext.Fallback,
		"raw", ext.Raw,
		"ambiguous", ext.Ambiguous)

	proposed := matchFinalNewline(req.SourceText, ext.Content)

	d, err := diff.Compute(req.SourceText, proposed, s.ContextLines)
	if err != nil {
		return nil, output.NewSystemErrorWithCause("failed to compute diff", err)
	}

	return &Result{
		Original:   req.SourceText,
		Proposed:   proposed,
		Raw:        resp.Content,
		Model:      resp.Model,
		Extraction: ext,
		Diff:       d,
	}, nil
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return logs.Discard()
	}
	return s.Logger
}

// matchFinalNewline drops the single trailing newline that extraction
// always leaves when the original file had none.
func matchFinalNewline(original, proposed string) string {
	if original != "" && !strings.HasSuffix(original, "\n") {
		return strings.TrimSuffix(proposed, "\n")
	}
	return proposed
}

// Warnings lists soft problems worth telling the user about.
func (r *Result) Warnings() []string {
	var warnings []string
	if r.Extraction.Fallback {
		warnings = append(warnings, "response had no fenced code block; using the whole response as the new file")
	}
	if r.Extraction.Dropped > 0 {
		warnings = append(warnings, fmt.Sprintf("dropped %d conversational line(s) around the response", r.Extraction.Dropped))
	}
	if r.Extraction.Ambiguous {
		warnings = append(warnings, "response had several candidate code blocks; using the best match")
	}
	return warnings
}
