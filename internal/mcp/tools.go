package mcp

import (
	"context"
	"errors"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/gorewood/code-edit/internal/edit"
	"github.com/gorewood/code-edit/internal/llm"
)

// --- Shared types ---

// DiffSummary describes the change between original and proposed content.
type DiffSummary struct {
	Changed  bool     `json:"changed"            jsonschema:"whether the proposal differs from the original"`
	Diff     string   `json:"diff,omitempty"     jsonschema:"unified diff from Original to Modified"`
	Added    int      `json:"added"              jsonschema:"number of added lines"`
	Removed  int      `json:"removed"            jsonschema:"number of removed lines"`
	Model    string   `json:"model"              jsonschema:"model that produced the proposal"`
	Warnings []string `json:"warnings,omitempty" jsonschema:"non-fatal extraction warnings"`
}

func summarize(result *edit.Result) DiffSummary {
	return DiffSummary{
		Changed:  result.Changed(),
		Diff:     result.Diff.Text,
		Added:    result.Diff.Stats.Added,
		Removed:  result.Diff.Stats.Removed,
		Model:    result.Model,
		Warnings: result.Warnings(),
	}
}

func propose(ctx context.Context, deps Deps, file, instruction string) (*edit.Request, *edit.Result, error) {
	if deps.Service == nil {
		return nil, nil, errors.New("no model configured")
	}
	req, err := edit.Resolve(edit.Options{Prompt: instruction, File: file})
	if err != nil {
		return nil, nil, err
	}
	if deps.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, deps.Timeout)
		defer cancel()
	}
	result, err := deps.Service.Propose(ctx, req)
	if err != nil {
		return nil, nil, err
	}
	return req, result, nil
}

// --- Propose tool ---

// ProposeInput is the input for the propose_edit tool.
type ProposeInput struct {
	File        string `json:"file"        jsonschema:"path of the file to edit"`
	Instruction string `json:"instruction" jsonschema:"natural-language description of the change"`
}

// ProposeOutput is the output for the propose_edit tool.
type ProposeOutput struct {
	File     string      `json:"file"               jsonschema:"path of the file"`
	Language string      `json:"language,omitempty" jsonschema:"language detected from the extension"`
	Proposed string      `json:"proposed"           jsonschema:"complete proposed file content"`
	Change   DiffSummary `json:"change"             jsonschema:"how the proposal differs from the file"`
}

func handleProposeEdit(deps Deps) mcp.ToolHandlerFor[ProposeInput, ProposeOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ProposeInput) (*mcp.CallToolResult, ProposeOutput, error) {
		req, result, err := propose(ctx, deps, input.File, input.Instruction)
		if err != nil {
			return nil, ProposeOutput{}, err
		}

		return nil, ProposeOutput{
			File:     req.SourcePath,
			Language: req.Language,
			Proposed: result.Proposed,
			Change:   summarize(result),
		}, nil
	}
}

// --- Apply tool ---

// ApplyInput is the input for the apply_edit tool.
type ApplyInput struct {
	File        string `json:"file"             jsonschema:"path of the file to edit"`
	Instruction string `json:"instruction"      jsonschema:"natural-language description of the change"`
	Output      string `json:"output,omitempty" jsonschema:"write here instead of over the file"`
	Backup      bool   `json:"backup,omitempty" jsonschema:"copy the original to a backup file first"`
}

// ApplyOutput is the output for the apply_edit tool.
type ApplyOutput struct {
	Path       string      `json:"path"                  jsonschema:"file that was written"`
	BackupPath string      `json:"backup_path,omitempty" jsonschema:"backup of the original, if one was made"`
	Written    bool        `json:"written"               jsonschema:"false when the proposal was identical and nothing was written"`
	Change     DiffSummary `json:"change"                jsonschema:"how the written content differs from the original"`
}

func handleApplyEdit(deps Deps) mcp.ToolHandlerFor[ApplyInput, ApplyOutput] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input ApplyInput) (*mcp.CallToolResult, ApplyOutput, error) {
		req, result, err := propose(ctx, deps, input.File, input.Instruction)
		if err != nil {
			return nil, ApplyOutput{}, err
		}

		applied, err := edit.Apply(req, result, edit.ApplyOptions{
			Output:       input.Output,
			Backup:       input.Backup,
			BackupSuffix: deps.BackupSuffix,
		})
		if err != nil {
			return nil, ApplyOutput{}, err
		}

		return nil, ApplyOutput{
			Path:       applied.Path,
			BackupPath: applied.BackupPath,
			Written:    applied.Written,
			Change:     summarize(result),
		}, nil
	}
}

// --- Providers tool ---

// ProvidersInput is the input for the providers tool (no parameters needed).
type ProvidersInput struct{}

// ProviderSummary describes one provider.
type ProviderSummary struct {
	Name    string            `json:"name"              jsonschema:"provider name"`
	EnvVar  string            `json:"env_var,omitempty" jsonschema:"API key environment variable"`
	KeySet  bool              `json:"key_set"           jsonschema:"whether the key variable is set"`
	Aliases map[string]string `json:"aliases,omitempty" jsonschema:"model aliases and the models they expand to"`
}

// ProvidersOutput is the output for the providers tool.
type ProvidersOutput struct {
	Providers []ProviderSummary `json:"providers" jsonschema:"supported providers"`
}

func handleProviders() mcp.ToolHandlerFor[ProvidersInput, ProvidersOutput] {
	return func(_ context.Context, _ *mcp.CallToolRequest, _ ProvidersInput) (*mcp.CallToolResult, ProvidersOutput, error) {
		var out ProvidersOutput
		for _, info := range llm.ProviderInfos() {
			out.Providers = append(out.Providers, ProviderSummary{
				Name:    info.Name,
				EnvVar:  info.EnvVar,
				KeySet:  info.KeySet,
				Aliases: info.Aliases,
			})
		}
		return nil, out, nil
	}
}
